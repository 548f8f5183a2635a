package rag

import (
	"context"
	"fmt"

	"scholarbot/src/log"
)

const (
	DefaultTopK           = 4
	DefaultPerDocumentCap = 2
	DefaultMinSimilarity  = 0.25
)

// RetrieverConfig fixes the ranking and diversity policy for a run.
type RetrieverConfig struct {
	TopK int
	// PerDocumentCap limits how many chunks of one document may appear in a
	// result, so a single document cannot dominate the context. The cap is
	// relaxed rather than returning an empty result when matches exist.
	PerDocumentCap int
	// MinSimilarity is the score floor below which candidates are discarded.
	MinSimilarity float64
	MaxRetry      int
}

// Retriever embeds a query and asks the vector store for the most relevant
// chunks. An empty index or no candidate above the floor yields an empty
// result, not an error.
type Retriever struct {
	embedder *Embedder
	store    VectorStore
	cfg      RetrieverConfig
}

func NewRetriever(embedder *Embedder, store VectorStore, cfg RetrieverConfig) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.PerDocumentCap <= 0 {
		cfg.PerDocumentCap = DefaultPerDocumentCap
	}
	return &Retriever{embedder: embedder, store: store, cfg: cfg}
}

// Retrieve returns at most TopK chunks sorted by non-increasing score.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]RetrievedChunk, error) {
	embedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// Over-fetch so the diversity filter has alternatives to promote.
	var candidates []RetrievedChunk
	if err := retryTransient(ctx, r.cfg.MaxRetry, func() error {
		var qerr error
		candidates, qerr = r.store.Query(ctx, embedding, r.cfg.TopK*2)
		return qerr
	}); err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}

	filtered := candidates[:0:0]
	for _, c := range candidates {
		if c.Score >= r.cfg.MinSimilarity {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		log.Debug("no candidates above similarity floor", "query_len", len(query), "fetched", len(candidates))
		return nil, nil
	}

	result := r.applyDiversity(filtered)
	if len(result) > r.cfg.TopK {
		result = result[:r.cfg.TopK]
	}
	return result, nil
}

// applyDiversity drops chunks beyond the per-document cap, but never below
// one result when any match exists.
func (r *Retriever) applyDiversity(candidates []RetrievedChunk) []RetrievedChunk {
	perDoc := make(map[string]int)
	var result []RetrievedChunk
	for _, c := range candidates {
		if perDoc[c.DocumentID] >= r.cfg.PerDocumentCap {
			continue
		}
		perDoc[c.DocumentID]++
		result = append(result, c)
	}
	if len(result) == 0 {
		return candidates[:1]
	}
	return result
}
