package redaction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText(t *testing.T) {
	tests := []struct {
		name      string
		length    int
		size      int
		wantCount int
		wantLast  int
	}{
		{"empty", 0, 5000, 0, 0},
		{"shorter than a chunk", 12, 5000, 1, 12},
		{"exact multiple", 10000, 5000, 2, 5000},
		{"remainder", 12001, 5000, 3, 2001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := strings.Repeat("a", tt.length)
			chunks := ChunkText(text, tt.size)
			require.Len(t, chunks, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Len(t, []rune(chunks[len(chunks)-1]), tt.wantLast)
			}
			assert.Equal(t, text, strings.Join(chunks, ""))
		})
	}
}

func TestChunkText_CountsCodePoints(t *testing.T) {
	text := strings.Repeat("é", 7)
	chunks := ChunkText(text, 3)
	assert.Equal(t, []string{"ééé", "ééé", "é"}, chunks)
}

func TestBatchChunks(t *testing.T) {
	chunks := ChunkText(strings.Repeat("x", 5000*11), 5000)
	batches := BatchChunks(chunks, 5)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 5)
	assert.Len(t, batches[1], 5)
	assert.Len(t, batches[2], 1)
	assert.Nil(t, BatchChunks(nil, 5))
}
