// Package chunker splits extracted document text into overlapping,
// sentence-boundary-aware segments sized for embedding.
package chunker

import (
	"strings"
	"unicode/utf8"

	"visamate/types"
)

// DefaultChunkSize is the default window size in characters.
const DefaultChunkSize = 1000

// DefaultOverlap is the default number of characters shared by
// consecutive windows.
const DefaultOverlap = 200

// sentenceBreakRatio is how far into the window a sentence break must sit
// before the window is truncated there.
const sentenceBreakRatio = 0.7

// minChunkLength filters out trimmed chunks too short to carry meaning.
const minChunkLength = 50

type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	// The window must always advance.
	if overlap >= size {
		overlap = size / 4
	}
	return &Chunker{
		size:    size,
		overlap: overlap,
	}
}

// Split walks a window of size characters over text, advancing by
// size-overlap each step. A window that does not reach the end of the text
// is truncated at its last period or newline when that break sits past 70%
// of the window, keeping chunks sentence-coherent. Chunks whose trimmed
// length is at most 50 characters are dropped; surviving chunks are indexed
// 0..n-1 in text order.
func (c *Chunker) Split(text string) []types.Chunk {
	runes := []rune(text)

	var parts []string
	for start := 0; start < len(runes); start += c.size - c.overlap {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		window := runes[start:end]

		if end < len(runes) {
			if bp := lastSentenceBreak(window); bp > int(float64(c.size)*sentenceBreakRatio) {
				window = window[:bp+1]
			}
		}

		parts = append(parts, strings.TrimSpace(string(window)))
	}

	chunks := make([]types.Chunk, 0, len(parts))
	for _, part := range parts {
		if utf8.RuneCountInString(part) <= minChunkLength {
			continue
		}
		chunks = append(chunks, types.Chunk{
			Text:  part,
			Index: len(chunks),
		})
	}
	return chunks
}

func lastSentenceBreak(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == '.' || window[i] == '\n' {
			return i
		}
	}
	return -1
}
