package rag_test

import (
	"errors"
	"strings"
	"testing"

	"scholarbot/src/core/rag"
)

func TestNewChunkerValidation(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
		wantErr   bool
	}{
		{
			name:      "valid window",
			chunkSize: 600,
			overlap:   100,
			wantErr:   false,
		},
		{
			name:      "zero overlap",
			chunkSize: 100,
			overlap:   0,
			wantErr:   false,
		},
		{
			name:      "zero chunk size",
			chunkSize: 0,
			overlap:   0,
			wantErr:   true,
		},
		{
			name:      "negative overlap",
			chunkSize: 100,
			overlap:   -1,
			wantErr:   true,
		},
		{
			name:      "overlap equals chunk size",
			chunkSize: 100,
			overlap:   100,
			wantErr:   true,
		},
		{
			name:      "overlap larger than chunk size",
			chunkSize: 100,
			overlap:   150,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rag.NewChunker(tt.chunkSize, tt.overlap)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewChunker(%d, %d) error = %v, wantErr %v", tt.chunkSize, tt.overlap, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, rag.ErrInvalidConfig) {
				t.Errorf("NewChunker(%d, %d) error = %v, want ErrInvalidConfig", tt.chunkSize, tt.overlap, err)
			}
		})
	}
}

func wordText(n int) rag.ExtractedText {
	text := strings.TrimSpace(strings.Repeat("word ", n))
	return rag.ExtractedText{
		Text:  text,
		Pages: []rag.PageSpan{{Number: 1, Start: 0, End: len(text)}},
	}
}

func TestChunkWindowCount(t *testing.T) {
	tests := []struct {
		name       string
		tokens     int
		chunkSize  int
		overlap    int
		wantChunks int
	}{
		{
			name:       "empty document",
			tokens:     0,
			chunkSize:  600,
			overlap:    100,
			wantChunks: 0,
		},
		{
			name:       "single partial window",
			tokens:     50,
			chunkSize:  600,
			overlap:    100,
			wantChunks: 1,
		},
		{
			name:       "exactly one window",
			tokens:     600,
			chunkSize:  600,
			overlap:    100,
			wantChunks: 1,
		},
		{
			name:       "sliding windows with overlap",
			tokens:     1800,
			chunkSize:  600,
			overlap:    100,
			wantChunks: 4,
		},
		{
			name:       "no overlap",
			tokens:     1000,
			chunkSize:  250,
			overlap:    0,
			wantChunks: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunker, err := rag.NewChunker(tt.chunkSize, tt.overlap)
			if err != nil {
				t.Fatalf("NewChunker() error = %v", err)
			}
			chunks := chunker.Chunk("doc", wordText(tt.tokens))
			if len(chunks) != tt.wantChunks {
				t.Errorf("Chunk() produced %d chunks, want %d", len(chunks), tt.wantChunks)
			}
		})
	}
}

func TestChunkDeterministicIDsAndOffsets(t *testing.T) {
	chunker, err := rag.NewChunker(600, 100)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	extracted := wordText(1800)
	chunks := chunker.Chunk("abc123", extracted)
	if len(chunks) != 4 {
		t.Fatalf("Chunk() produced %d chunks, want 4", len(chunks))
	}

	for i, c := range chunks {
		if want := rag.ChunkID("abc123", i); c.ID != want {
			t.Errorf("chunk %d ID = %q, want %q", i, c.ID, want)
		}
		if c.Seq != i {
			t.Errorf("chunk %d Seq = %d, want %d", i, c.Seq, i)
		}
		if got := extracted.Text[c.StartOffset:c.EndOffset]; got != c.Text {
			t.Errorf("chunk %d text does not match its offsets into the source", i)
		}
	}

	// Window of 600 with stride 500: every chunk but the last carries the
	// full window, the last carries the remainder.
	for i, c := range chunks[:len(chunks)-1] {
		if c.TokenCount != 600 {
			t.Errorf("chunk %d TokenCount = %d, want 600", i, c.TokenCount)
		}
	}
	if last := chunks[len(chunks)-1]; last.TokenCount != 300 {
		t.Errorf("last chunk TokenCount = %d, want 300", last.TokenCount)
	}

	// Consecutive chunks must overlap in the source text.
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartOffset >= chunks[i-1].EndOffset {
			t.Errorf("chunk %d does not overlap its predecessor", i)
		}
	}

	// Re-chunking the same input yields identical output.
	again := chunker.Chunk("abc123", extracted)
	for i := range chunks {
		if chunks[i] != again[i] {
			t.Errorf("chunk %d differs between identical runs", i)
		}
	}
}

func TestChunkCoversSource(t *testing.T) {
	chunker, err := rag.NewChunker(40, 10)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	extracted := wordText(173)
	chunks := chunker.Chunk("doc", extracted)
	if len(chunks) == 0 {
		t.Fatal("Chunk() produced no chunks")
	}

	// Concatenating each chunk up to the next chunk's start reconstructs the
	// token span of the source exactly.
	var b strings.Builder
	for i, c := range chunks {
		if i == len(chunks)-1 {
			b.WriteString(extracted.Text[c.StartOffset:c.EndOffset])
			break
		}
		b.WriteString(extracted.Text[c.StartOffset:chunks[i+1].StartOffset])
	}
	want := extracted.Text[chunks[0].StartOffset:chunks[len(chunks)-1].EndOffset]
	if b.String() != want {
		t.Error("chunks do not cover the source token span")
	}
}

func TestChunkRoundTripWithoutOverlap(t *testing.T) {
	chunker, err := rag.NewChunker(3, 0)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	source := "one two three four  five\nsix"
	chunks := chunker.Chunk("doc", rag.ExtractedText{Text: source})
	if len(chunks) != 2 {
		t.Fatalf("Chunk() produced %d chunks, want 2", len(chunks))
	}

	// Adjacent chunks share a boundary offset and their concatenated texts
	// reproduce the source, separators included.
	if chunks[0].EndOffset != chunks[1].StartOffset {
		t.Errorf("chunk boundary gap: first ends at %d, second starts at %d",
			chunks[0].EndOffset, chunks[1].StartOffset)
	}
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text)
	}
	if b.String() != source {
		t.Errorf("concatenated chunk texts = %q, want %q", b.String(), source)
	}
}

func TestChunkPageAttribution(t *testing.T) {
	// Two pages of 30 tokens each; window of 40 tokens straddles the
	// boundary, and page membership follows the chunk's start offset.
	page1 := strings.TrimSpace(strings.Repeat("alpha ", 30))
	page2 := strings.TrimSpace(strings.Repeat("beta ", 30))
	text := page1 + "\n" + page2
	extracted := rag.ExtractedText{
		Text: text,
		Pages: []rag.PageSpan{
			{Number: 1, Start: 0, End: len(page1)},
			{Number: 2, Start: len(page1) + 1, End: len(text)},
		},
	}

	chunker, err := rag.NewChunker(40, 0)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}
	chunks := chunker.Chunk("doc", extracted)
	if len(chunks) != 2 {
		t.Fatalf("Chunk() produced %d chunks, want 2", len(chunks))
	}
	if chunks[0].PageNumber != 1 {
		t.Errorf("first chunk PageNumber = %d, want 1", chunks[0].PageNumber)
	}
	if chunks[1].PageNumber != 2 {
		t.Errorf("second chunk PageNumber = %d, want 2", chunks[1].PageNumber)
	}
}
