// Package vectorindex provides an exact-scan vector store persisted as a
// single JSON file. It is the default backend for local corpora; larger
// deployments can switch to the Weaviate backend behind the same interface.
package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"scholarbot/src/core/rag"
)

type Index struct {
	mu      sync.RWMutex
	path    string
	records map[string]rag.VectorRecord
}

// NewIndex loads the index file at path, creating an empty index when none
// exists yet.
func NewIndex(path string) (*Index, error) {
	idx := &Index{
		path:    path,
		records: make(map[string]rag.VectorRecord),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read index file: %v", rag.ErrStoreUnavailable, err)
	}

	var records []rag.VectorRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse index file %s: %w", path, err)
	}
	for _, r := range records {
		idx.records[r.ChunkID] = r
	}
	return idx, nil
}

// Upsert writes records idempotently by chunk id. A query running concurrently
// sees either the previous or the new version of a record, never a half
// write.
func (idx *Index) Upsert(ctx context.Context, records []rag.VectorRecord) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, r := range records {
		idx.records[r.ChunkID] = r
	}
	return idx.persistLocked()
}

// DeleteByDocument atomically removes every record of the document; queries
// after return observe none of them.
func (idx *Index) DeleteByDocument(ctx context.Context, documentID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for id, r := range idx.records {
		if r.DocumentID == documentID {
			delete(idx.records, id)
		}
	}
	return idx.persistLocked()
}

// Query scans all records under cosine similarity. Equal scores are ordered
// by most-recently-ingested document first, then chunk sequence ascending.
func (idx *Index) Query(ctx context.Context, embedding []float32, limit int) ([]rag.RetrievedChunk, error) {
	if limit <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	results := make([]rag.RetrievedChunk, 0, len(idx.records))
	ingested := make(map[string]int64, len(idx.records))
	for _, r := range idx.records {
		ingested[r.DocumentID] = r.IngestedAt.UnixNano()
		results = append(results, rag.RetrievedChunk{
			ChunkID:    r.ChunkID,
			DocumentID: r.DocumentID,
			Seq:        r.Seq,
			Score:      cosineSimilarity(embedding, r.Embedding),
			Text:       r.Text,
			PageNumber: r.PageNumber,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if ingested[a.DocumentID] != ingested[b.DocumentID] {
			return ingested[a.DocumentID] > ingested[b.DocumentID]
		}
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		return a.Seq < b.Seq
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (idx *Index) Count(ctx context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records), nil
}

func (idx *Index) ListDocuments(ctx context.Context) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	seen := make(map[string]bool)
	var docs []string
	for _, r := range idx.records {
		if !seen[r.DocumentID] {
			seen[r.DocumentID] = true
			docs = append(docs, r.DocumentID)
		}
	}
	sort.Strings(docs)
	return docs, nil
}

// Compact rewrites the index file. Registered as a maintenance hook; it takes
// the write lock briefly and is safe alongside ongoing retrieval.
func (idx *Index) Compact() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_ = idx.persistLocked()
}

// persistLocked writes the snapshot via rename so a crash never leaves a
// truncated index file.
func (idx *Index) persistLocked() error {
	if idx.path == "" {
		return nil
	}

	records := make([]rag.VectorRecord, 0, len(idx.records))
	for _, r := range idx.records {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ChunkID < records[j].ChunkID })

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	tmp := idx.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(idx.path), 0755); err != nil {
		return fmt.Errorf("%w: %v", rag.ErrStoreUnavailable, err)
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", rag.ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmp, idx.path); err != nil {
		return fmt.Errorf("%w: %v", rag.ErrStoreUnavailable, err)
	}
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
