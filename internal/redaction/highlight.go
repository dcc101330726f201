package redaction

import (
	"fmt"
	"html"
	"slices"
	"strings"
)

// Highlight wraps each entity span of text in a <mark> element. Text outside
// the spans is HTML escaped. Entities overlapping a later span are skipped.
func Highlight(text string, entities []Entity) string {
	runes := []rune(text)
	sorted := sortByOffset(entities)

	parts := make([]string, 0, 2*len(sorted)+1)
	cursor := len(runes)
	for i := len(sorted) - 1; i >= 0; i-- {
		e := sorted[i]
		start, end := e.Offset, e.Offset+e.Length
		if start < 0 || e.Length <= 0 || end > cursor {
			continue
		}
		parts = append(parts,
			html.EscapeString(string(runes[end:cursor])),
			fmt.Sprintf(`<mark class="redaction-suggestion" data-category="%s">%s</mark>`,
				html.EscapeString(e.Category), html.EscapeString(string(runes[start:end]))),
		)
		cursor = start
	}
	parts = append(parts, html.EscapeString(string(runes[:cursor])))

	slices.Reverse(parts)
	return strings.Join(parts, "")
}
