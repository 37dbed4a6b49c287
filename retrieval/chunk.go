package retrieval

import (
	"fmt"
	"unicode/utf8"
)

// Chunk is one slice of a source document. Text carries Overlap leading
// characters repeated from the previous chunk, so stripping each chunk's
// overlap and concatenating reproduces the source exactly.
type Chunk struct {
	Index   int
	Text    string
	Overlap int
}

// Chunker splits text into bounded, sentence-aware chunks with a fixed
// overlap margin between neighbors.
type Chunker struct {
	maxChunkSize int
	overlap      int
}

const (
	// DefaultMaxChunkSize bounds chunk length including the overlap margin.
	DefaultMaxChunkSize = 500
	// DefaultOverlap is the repeated margin carried into each next chunk.
	DefaultOverlap = 50
)

// NewChunker validates the sizes and returns a Chunker. The overlap must
// leave room for new content in every chunk.
func NewChunker(maxChunkSize, overlap int) (*Chunker, error) {
	if maxChunkSize <= 0 {
		return nil, fmt.Errorf("chunker: max chunk size must be positive, got %d", maxChunkSize)
	}
	if overlap < 0 || overlap >= maxChunkSize {
		return nil, fmt.Errorf("chunker: overlap %d must be in [0, %d)", overlap, maxChunkSize)
	}
	return &Chunker{maxChunkSize: maxChunkSize, overlap: overlap}, nil
}

// Split cuts text into chunks of at most maxChunkSize characters. Cut
// points prefer the last sentence boundary inside the window; a window
// with no boundary is cut hard at the size limit.
func (c *Chunker) Split(text string) []Chunk {
	if text == "" {
		return nil
	}
	if len(text) <= c.maxChunkSize {
		return []Chunk{{Index: 0, Text: text}}
	}

	var chunks []Chunk
	start := 0 // position of the first non-overlap character
	ov := 0
	for start < len(text) {
		ostart := start - ov
		limit := ostart + c.maxChunkSize
		var end int
		if limit >= len(text) {
			end = len(text)
		} else {
			end = lastSentenceBreak(text, start, limit)
			if end <= start {
				// Hard split, but never through the middle of a rune.
				end = limit
				for end > start && !utf8.RuneStart(text[end]) {
					end--
				}
				if end == start {
					_, size := utf8.DecodeRuneInString(text[start:])
					end = start + size
				}
			}
		}
		chunks = append(chunks, Chunk{
			Index:   len(chunks),
			Text:    text[ostart:end],
			Overlap: ov,
		})
		ov = c.overlap
		if ov > end {
			ov = end
		}
		// The overlap margin must start on a rune boundary too.
		for ov > 0 && !utf8.RuneStart(text[end-ov]) {
			ov--
		}
		start = end
	}
	return chunks
}

// lastSentenceBreak returns the largest cut position in (start, limit]
// that sits just after a sentence terminator, or start when none exists.
func lastSentenceBreak(text string, start, limit int) int {
	for i := limit; i > start; i-- {
		switch text[i-1] {
		case '.', '!', '?', '\n':
			return i
		}
	}
	return start
}

// Reassemble joins chunks back into the original text by dropping each
// chunk's leading overlap.
func Reassemble(chunks []Chunk) string {
	var out []byte
	for _, ch := range chunks {
		out = append(out, ch.Text[ch.Overlap:]...)
	}
	return string(out)
}
