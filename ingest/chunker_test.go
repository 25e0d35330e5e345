package ingest

import (
	"strings"
	"testing"
)

func TestSplit_ShortTextYieldsSingleChunk(testCase *testing.T) {
	chunks := NewChunker().Split("a short document")
	if len(chunks) != 1 || chunks[0] != "a short document" {
		testCase.Fatalf("expected single chunk, got %v", chunks)
	}
}

func TestSplit_EmptyAndWhitespaceYieldNothing(testCase *testing.T) {
	chunker := NewChunker()
	for _, input := range []string{"", "   ", "\n\t\n"} {
		if chunks := chunker.Split(input); chunks != nil {
			testCase.Errorf("input %q: expected no chunks, got %v", input, chunks)
		}
	}
}

func TestSplit_ConsecutiveChunksOverlap(testCase *testing.T) {
	// Unbroken text with no whitespace forces hard cuts at exact offsets, so
	// overlaps can be checked positionally.
	text := strings.Repeat("0123456789", 12)
	chunker := NewChunker().WithChunkSize(50).WithChunkOverlap(10)

	chunks := chunker.Split(text)
	if len(chunks) < 2 {
		testCase.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for chunkIndex := 1; chunkIndex < len(chunks); chunkIndex++ {
		previousTail := chunks[chunkIndex-1][len(chunks[chunkIndex-1])-10:]
		currentHead := chunks[chunkIndex][:10]
		if previousTail != currentHead {
			testCase.Errorf("chunk %d does not overlap its predecessor: %q vs %q",
				chunkIndex, previousTail, currentHead)
		}
	}
}

func TestSplit_PrefersWordBoundaries(testCase *testing.T) {
	words := strings.Repeat("lorem ipsum dolor sit amet ", 40)
	chunker := NewChunker().WithChunkSize(100).WithChunkOverlap(20)

	for _, chunk := range chunker.Split(words) {
		if strings.HasSuffix(chunk, "lor") || strings.HasSuffix(chunk, "ips") {
			testCase.Errorf("chunk ends mid-word: %q", chunk)
		}
	}
}

func TestSplit_NoTextIsLostBetweenChunks(testCase *testing.T) {
	words := strings.Repeat("alpha beta gamma delta epsilon ", 50)
	chunker := NewChunker().WithChunkSize(80).WithChunkOverlap(20)

	chunks := chunker.Split(words)
	reassembled := strings.Join(chunks, " ")
	for _, word := range []string{"alpha", "beta", "gamma", "delta", "epsilon"} {
		if strings.Count(reassembled, word) < strings.Count(words, word) {
			testCase.Errorf("word %q lost during chunking", word)
		}
	}
}

func TestSplit_CountsRunesNotBytes(testCase *testing.T) {
	// Multi-byte runes; a byte-based splitter would cut mid-sequence.
	text := strings.Repeat("日本語のテキスト ", 100)
	chunker := NewChunker().WithChunkSize(50).WithChunkOverlap(10)

	for _, chunk := range chunker.Split(text) {
		if !strings.ContainsRune("日本語のテキスト", []rune(chunk)[0]) {
			testCase.Errorf("chunk starts with unexpected rune: %q", chunk)
		}
		if runeCount := len([]rune(chunk)); runeCount > 50 {
			testCase.Errorf("chunk exceeds size in runes: %d", runeCount)
		}
	}
}

func TestSplit_OverlapClampedBelowChunkSize(testCase *testing.T) {
	// Overlap equal to the chunk size would never advance; the chunker must
	// still terminate.
	chunker := NewChunker().WithChunkSize(10).WithChunkOverlap(10)
	chunks := chunker.Split(strings.Repeat("x", 100))
	if len(chunks) == 0 {
		testCase.Fatal("expected chunks")
	}
}
