package vectorindex_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"scholarbot/src/core/rag"
	"scholarbot/src/storage/vectorindex"
)

func record(doc string, seq int, embedding []float32, ingested time.Time) rag.VectorRecord {
	return rag.VectorRecord{
		ChunkID:    rag.ChunkID(doc, seq),
		DocumentID: doc,
		Seq:        seq,
		Embedding:  embedding,
		Text:       "text",
		IngestedAt: ingested,
	}
}

func TestIndexUpsertIsIdempotent(t *testing.T) {
	idx, err := vectorindex.NewIndex(filepath.Join(t.TempDir(), "index.json"))
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}

	ctx := context.Background()
	now := time.Now().UTC()
	records := []rag.VectorRecord{
		record("doc", 0, []float32{1, 0}, now),
		record("doc", 1, []float32{0, 1}, now),
	}
	if err := idx.Upsert(ctx, records); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := idx.Upsert(ctx, records); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	count, err := idx.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d after duplicate upsert, want 2", count)
	}
}

func TestIndexQueryOrdering(t *testing.T) {
	idx, err := vectorindex.NewIndex("")
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}

	ctx := context.Background()
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := old.Add(24 * time.Hour)

	// docNew and docOld hold identical vectors; the tie breaks toward the
	// more recently ingested document, then ascending sequence.
	if err := idx.Upsert(ctx, []rag.VectorRecord{
		record("docOld", 0, []float32{1, 0}, old),
		record("docNew", 1, []float32{1, 0}, recent),
		record("docNew", 0, []float32{1, 0}, recent),
		record("docFar", 0, []float32{0, 1}, recent),
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := idx.Query(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("Query() returned %d chunks, want 4", len(got))
	}

	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatal("Query() scores are not non-increasing")
		}
	}

	wantOrder := []string{
		rag.ChunkID("docNew", 0),
		rag.ChunkID("docNew", 1),
		rag.ChunkID("docOld", 0),
		rag.ChunkID("docFar", 0),
	}
	for i, want := range wantOrder {
		if got[i].ChunkID != want {
			t.Errorf("Query() position %d = %s, want %s", i, got[i].ChunkID, want)
		}
	}
}

func TestIndexQueryLimit(t *testing.T) {
	idx, err := vectorindex.NewIndex("")
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}

	ctx := context.Background()
	now := time.Now().UTC()
	if err := idx.Upsert(ctx, []rag.VectorRecord{
		record("doc", 0, []float32{1, 0}, now),
		record("doc", 1, []float32{0.9, 0.1}, now),
		record("doc", 2, []float32{0, 1}, now),
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := idx.Query(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Query() returned %d chunks with limit 2", len(got))
	}

	got, err = idx.Query(ctx, []float32{1, 0}, 0)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Query() returned %d chunks with limit 0, want 0", len(got))
	}
}

func TestIndexQueryEmpty(t *testing.T) {
	idx, err := vectorindex.NewIndex("")
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}
	got, err := idx.Query(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Query() on empty index error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Query() on empty index returned %d chunks", len(got))
	}
}

func TestIndexDeleteByDocument(t *testing.T) {
	idx, err := vectorindex.NewIndex("")
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}

	ctx := context.Background()
	now := time.Now().UTC()
	if err := idx.Upsert(ctx, []rag.VectorRecord{
		record("keep", 0, []float32{1, 0}, now),
		record("drop", 0, []float32{1, 0}, now),
		record("drop", 1, []float32{0, 1}, now),
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := idx.DeleteByDocument(ctx, "drop"); err != nil {
		t.Fatalf("DeleteByDocument() error = %v", err)
	}

	got, err := idx.Query(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	for _, c := range got {
		if c.DocumentID == "drop" {
			t.Errorf("deleted document still returned: %s", c.ChunkID)
		}
	}

	docs, err := idx.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(docs) != 1 || docs[0] != "keep" {
		t.Errorf("ListDocuments() = %v, want [keep]", docs)
	}
}

func TestIndexPersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	idx, err := vectorindex.NewIndex(path)
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}
	if err := idx.Upsert(ctx, []rag.VectorRecord{
		record("doc", 0, []float32{1, 0}, now),
		record("doc", 1, []float32{0, 1}, now),
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	reloaded, err := vectorindex.NewIndex(path)
	if err != nil {
		t.Fatalf("NewIndex() reload error = %v", err)
	}
	count, err := reloaded.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("reloaded Count() = %d, want 2", count)
	}

	got, err := reloaded.Query(ctx, []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Query() after reload error = %v", err)
	}
	if len(got) != 1 || got[0].ChunkID != rag.ChunkID("doc", 0) {
		t.Errorf("Query() after reload = %+v", got)
	}
}
