package rag

import "fmt"

// Chunker splits extracted text into overlapping, size-bounded chunks using a
// sliding window over the deterministic token stream.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker validates the window parameters. The stride
// (chunkSize - overlap) must be at least one token.
func NewChunker(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidConfig, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidConfig, overlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk produces the ordered chunk sequence for a document's extracted text.
// Every chunk records its byte offsets in the source text and the page its
// start offset falls on. The final chunk may be shorter than the window.
func (c *Chunker) Chunk(documentID string, extracted ExtractedText) []Chunk {
	tokens := tokenize(extracted.Text)
	if len(tokens) == 0 {
		return nil
	}

	stride := c.chunkSize - c.overlap
	var chunks []Chunk
	for start := 0; ; start += stride {
		end := start + c.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		first := tokens[start]
		textEnd := tokens[end-1].end
		// Without overlap the separators after a chunk's last token belong to
		// that chunk, so concatenating chunk texts reproduces the source.
		if c.overlap == 0 && end < len(tokens) {
			textEnd = tokens[end].start
		}
		seq := len(chunks)
		chunks = append(chunks, Chunk{
			ID:          ChunkID(documentID, seq),
			DocumentID:  documentID,
			Seq:         seq,
			Text:        extracted.Text[first.start:textEnd],
			TokenCount:  end - start,
			StartOffset: first.start,
			EndOffset:   textEnd,
			PageNumber:  pageForOffset(extracted.Pages, first.start),
		})
		if end == len(tokens) {
			break
		}
	}
	return chunks
}

// ChunkID builds the deterministic chunk identifier.
func ChunkID(documentID string, seq int) string {
	return fmt.Sprintf("%s:%d", documentID, seq)
}

func pageForOffset(pages []PageSpan, offset int) int {
	for _, p := range pages {
		if offset >= p.Start && offset < p.End {
			return p.Number
		}
	}
	if n := len(pages); n > 0 && offset >= pages[n-1].End {
		return pages[n-1].Number
	}
	return 0
}
