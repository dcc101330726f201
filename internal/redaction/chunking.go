package redaction

// ChunkText splits text into consecutive chunks of at most size code points.
// Chunks do not overlap and concatenate back to text.
func ChunkText(text string, size int) []string {
	if text == "" || size <= 0 {
		return nil
	}
	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// BatchChunks groups chunks into batches of at most size, keeping order
func BatchChunks(chunks []string, size int) [][]string {
	if len(chunks) == 0 || size <= 0 {
		return nil
	}
	batches := make([][]string, 0, (len(chunks)+size-1)/size)
	for start := 0; start < len(chunks); start += size {
		end := min(start+size, len(chunks))
		batches = append(batches, chunks[start:end])
	}
	return batches
}
