package rag

import (
	"context"
	"fmt"
	"sync"
)

const DefaultEmbedBatchSize = 16

// Embedder batches embedding calls against the model endpoint, preserving
// input order. Each batch either succeeds completely or fails with the
// underlying error after the retry budget is spent; partial results are never
// returned.
type Embedder struct {
	provider  LLMProvider
	batchSize int
	maxRetry  int

	mu    sync.Mutex
	cache map[string][]float32
}

func NewEmbedder(provider LLMProvider, batchSize, maxRetry int) *Embedder {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	return &Embedder{
		provider:  provider,
		batchSize: batchSize,
		maxRetry:  maxRetry,
		cache:     make(map[string][]float32),
	}
}

// EmbedBatch returns one vector per input text, order-preserving.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.embedOnce(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch starting at %d: %w", start, err)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// EmbedQuery embeds a single query text through a small cache, so repeated
// questions within a maintenance window skip the model round trip.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	cached, ok := e.cache[text]
	e.mu.Unlock()
	if ok {
		return cached, nil
	}

	vectors, err := e.embedOnce(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[text] = vectors[0]
	e.mu.Unlock()
	return vectors[0], nil
}

// ReleaseBuffers drops cached query embeddings. Safe to call concurrently
// with in-flight embedding calls.
func (e *Embedder) ReleaseBuffers() {
	e.mu.Lock()
	e.cache = make(map[string][]float32)
	e.mu.Unlock()
}

// embedOnce embeds one batch all-or-nothing with bounded backoff on transient
// failures.
func (e *Embedder) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := retryTransient(ctx, e.maxRetry, func() error {
		vectors = vectors[:0]
		for _, text := range texts {
			vec, err := e.provider.Embed(ctx, text)
			if err != nil {
				return err
			}
			vectors = append(vectors, vec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}
