package ingest

import (
	"strings"
	"unicode/utf8"
)

// boundaryWindow bounds how far the chunker looks behind the target cut
// point for a sentence or whitespace boundary before cutting hard.
const boundaryWindow = 120

// Span is a half-open byte range [Start, End) into the chunked text.
type Span struct {
	Start int
	End   int
}

// Chunker splits text into chunks of roughly size bytes with overlap bytes
// shared between consecutive chunks. Cuts prefer sentence endings, then
// whitespace, within boundaryWindow of the target; only as a last resort is
// text cut mid-run (never mid-rune).
//
// The produced spans cover the input completely: the first span starts at 0,
// the last ends at len(text), and every span starts at or before the end of
// its predecessor. That makes retrieval blind to no part of the text, at the
// cost of re-embedding the overlapped region.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker. size must be positive and overlap must be
// smaller than size; config validation enforces both.
func NewChunker(size, overlap int) *Chunker {
	return &Chunker{size: size, overlap: overlap}
}

// Split returns the chunk spans for text. Empty or all-whitespace text
// produces no spans.
func (c *Chunker) Split(text string) []Span {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var spans []Span
	start := 0
	for {
		if start+c.size >= len(text) {
			spans = append(spans, Span{Start: start, End: len(text)})
			return spans
		}

		cut := c.cutPoint(text, start)
		spans = append(spans, Span{Start: start, End: cut})

		next := cut - c.overlap
		if next <= start {
			next = start + 1
		}
		// Don't start the next chunk mid-word: advance to the next space
		// inside the overlap region, keeping next < cut so coverage holds.
		if idx := strings.IndexAny(text[next:cut], " \t\n"); idx >= 0 && next+idx+1 < cut {
			next += idx + 1
		}
		start = next
	}
}

// cutPoint picks where to end the chunk that starts at start. It scans
// backward from start+size for a sentence end, then for whitespace, within
// boundaryWindow; otherwise it cuts at the target, aligned to a rune start.
func (c *Chunker) cutPoint(text string, start int) int {
	target := start + c.size
	low := target - boundaryWindow
	if low < start+1 {
		low = start + 1
	}

	// Sentence boundary: .! or ? followed by whitespace.
	for i := target - 1; i >= low; i-- {
		ch := text[i]
		if (ch == '.' || ch == '!' || ch == '?') && i+1 < len(text) && isSpaceByte(text[i+1]) {
			return i + 1
		}
	}

	// Any whitespace.
	for i := target; i > low; i-- {
		if isSpaceByte(text[i-1]) {
			return i
		}
	}

	// Hard cut, but never in the middle of a multi-byte rune.
	for target > start+1 && !utf8.RuneStart(text[target]) {
		target--
	}
	return target
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
