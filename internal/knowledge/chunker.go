package knowledge

import (
	"strings"
)

// Chunker splits text into overlapping word-based passages.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given size and overlap (in words).
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 200
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk returns passages of at most size words, each starting size-overlap
// words after the previous one. The last passage always reaches the end of text.
func (c *Chunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var passages []string
	step := c.size - c.overlap
	for i := 0; i < len(words); i += step {
		end := i + c.size
		if end > len(words) {
			end = len(words)
		}
		passages = append(passages, strings.Join(words[i:end], " "))
		if end >= len(words) {
			break
		}
	}
	return passages
}
