package redaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHighlight(t *testing.T) {
	text := "John Doe lives at 123 Main St."
	entities := []Entity{
		{Text: "123 Main St", Category: "Address", Offset: 18, Length: 11},
		{Text: "John Doe", Category: "Person", Offset: 0, Length: 8},
	}

	got := Highlight(text, entities)

	assert.Equal(t,
		`<mark class="redaction-suggestion" data-category="Person">John Doe</mark> lives at `+
			`<mark class="redaction-suggestion" data-category="Address">123 Main St</mark>.`,
		got)
}

func TestHighlight_EscapesAndSkipsOverlaps(t *testing.T) {
	text := "<b>Jane</b> & Co"
	entities := []Entity{
		{Category: "Person", Offset: 1, Length: 3},
		{Category: "Person", Offset: 3, Length: 4},
		{Category: "Organization", Offset: 14, Length: 10},
	}

	got := Highlight(text, entities)

	assert.Equal(t,
		`&lt;b&gt;<mark class="redaction-suggestion" data-category="Person">Jane</mark>&lt;/b&gt; &amp; Co`,
		got)
}

func TestHighlight_NoEntities(t *testing.T) {
	assert.Equal(t, "plain &#34;text&#34;", Highlight(`plain "text"`, nil))
}
