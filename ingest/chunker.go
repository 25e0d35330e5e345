// Package ingest turns uploaded documents into indexed knowledge base
// chunks: extract plain text from the source format, split it into
// overlapping windows, and upsert the chunks into the search indexes.
package ingest

import (
	"strings"
	"unicode"
)

const (
	defaultChunkSize    = 500
	defaultChunkOverlap = 50
)

// Chunker splits text into overlapping windows measured in runes, so
// multi-byte characters never get cut mid-sequence. Window boundaries prefer
// whitespace near the target size to avoid splitting words.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the default window of 500 runes and an
// overlap of 50 runes between consecutive chunks.
func NewChunker() *Chunker {
	return &Chunker{
		chunkSize:    defaultChunkSize,
		chunkOverlap: defaultChunkOverlap,
	}
}

// WithChunkSize sets the window size in runes.
func (chunker *Chunker) WithChunkSize(size int) *Chunker {
	if size > 0 {
		chunker.chunkSize = size
	}
	return chunker
}

// WithChunkOverlap sets the overlap between consecutive windows in runes.
// The overlap is clamped below the chunk size so the walk always advances.
func (chunker *Chunker) WithChunkOverlap(overlap int) *Chunker {
	if overlap >= 0 {
		chunker.chunkOverlap = overlap
	}
	return chunker
}

// Split breaks the text into overlapping chunks. Whitespace-only input
// yields no chunks. Each chunk is trimmed of surrounding whitespace;
// empty windows (runs of consecutive whitespace larger than the chunk
// size) are skipped.
func (chunker *Chunker) Split(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	overlap := chunker.chunkOverlap
	if overlap >= chunker.chunkSize {
		overlap = chunker.chunkSize - 1
	}
	stride := chunker.chunkSize - overlap

	var chunks []string
	for start := 0; start < len(runes); start += stride {
		end := start + chunker.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			// The break may not retreat past the next window start, or text
			// between the windows would be lost.
			end = breakNearWhitespace(runes, start, end, start+stride)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(runes) {
			break
		}
	}
	return chunks
}

// breakNearWhitespace walks backwards from the target end looking for a
// whitespace rune to break on, so chunks end on word boundaries when one is
// close enough. The search is bounded to the last tenth of the window and
// never retreats past minEnd; if no whitespace is found there, the hard cut
// at end stands.
func breakNearWhitespace(runes []rune, start, end, minEnd int) int {
	searchFloor := end - (end-start)/10
	if searchFloor < minEnd {
		searchFloor = minEnd
	}
	for position := end; position > searchFloor; position-- {
		if unicode.IsSpace(runes[position-1]) {
			return position
		}
	}
	return end
}
