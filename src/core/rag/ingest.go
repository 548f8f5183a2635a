package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"scholarbot/src/log"
)

// Ingestor drives a document through extract, chunk, embed and index. A
// document is either fully indexed or absent: any records upserted during a
// failed run are rolled back with a compensating delete.
type Ingestor struct {
	registry  DocumentRegistry
	store     VectorStore
	blobs     BlobStore
	extractor *Extractor
	chunker   *Chunker
	embedder  *Embedder
	files     FileSource
	maxRetry  int
}

func NewIngestor(registry DocumentRegistry, store VectorStore, blobs BlobStore, extractor *Extractor, chunker *Chunker, embedder *Embedder, files FileSource, maxRetry int) *Ingestor {
	return &Ingestor{
		registry:  registry,
		store:     store,
		blobs:     blobs,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		files:     files,
		maxRetry:  maxRetry,
	}
}

// DocumentID is the content hash of the raw bytes.
func DocumentID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IngestFile runs the full state machine for one document. Re-ingesting
// identical bytes short-circuits to the already-indexed record.
func (ing *Ingestor) IngestFile(ctx context.Context, name string, data []byte) (*IngestResult, error) {
	docID := DocumentID(data)
	state := StateReceived

	existing, err := ing.registry.Get(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to check registry: %w", err)
	}
	if existing != nil {
		log.Info("skipping duplicate document", "name", name, "document_id", docID)
		return &IngestResult{
			DocumentID: docID,
			Name:       existing.Name,
			State:      StateIndexed,
			ChunkCount: existing.ChunkCount,
			Duplicate:  true,
		}, nil
	}

	if ing.blobs != nil {
		if err := retryTransient(ctx, ing.maxRetry, func() error {
			return ing.blobs.Put(ctx, docID, data)
		}); err != nil {
			return ing.failed(ctx, docID, name, state, false, fmt.Errorf("failed to archive raw bytes: %w", err))
		}
	}

	return ing.index(ctx, docID, name, data, false)
}

// index runs extract through register for archived bytes. In rebuild mode the
// archive and the registry entry are preserved on failure so the run can be
// repeated; a fresh ingest rolls everything back.
func (ing *Ingestor) index(ctx context.Context, docID, name string, data []byte, rebuild bool) (*IngestResult, error) {
	state := StateExtracting
	extracted, err := ing.extractor.Extract(ctx, name, data)
	if err != nil {
		return ing.failed(ctx, docID, name, state, rebuild, err)
	}

	state = StateChunking
	chunks := ing.chunker.Chunk(docID, extracted)
	if len(chunks) == 0 {
		return ing.failed(ctx, docID, name, state, rebuild, fmt.Errorf("%w: %s contains no text", ErrCorruptDocument, name))
	}

	state = StateEmbedding
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := ing.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return ing.failed(ctx, docID, name, state, rebuild, err)
	}

	state = StateIndexing
	if rebuild {
		// Chunking parameters may have changed since the original run, so the
		// old vectors cannot simply be overwritten by chunk id.
		if err := retryTransient(ctx, ing.maxRetry, func() error {
			return ing.store.DeleteByDocument(ctx, docID)
		}); err != nil {
			return ing.failed(ctx, docID, name, state, rebuild, err)
		}
	}
	now := time.Now().UTC()
	records := make([]VectorRecord, len(chunks))
	for i, c := range chunks {
		records[i] = VectorRecord{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Seq:        c.Seq,
			Embedding:  vectors[i],
			Text:       c.Text,
			PageNumber: c.PageNumber,
			IngestedAt: now,
		}
	}
	if err := retryTransient(ctx, ing.maxRetry, func() error {
		return ing.store.Upsert(ctx, records)
	}); err != nil {
		return ing.failed(ctx, docID, name, state, rebuild, err)
	}

	doc := &Document{
		ID:         docID,
		Name:       name,
		MimeType:   MimeTypeFor(name),
		PageCount:  len(extracted.Pages),
		ChunkCount: len(chunks),
		IngestedAt: now,
	}
	if err := ing.registry.Create(ctx, doc); err != nil {
		return ing.failed(ctx, docID, name, state, rebuild, fmt.Errorf("failed to register document: %w", err))
	}

	log.Info("document indexed", "name", name, "document_id", docID, "chunks", len(chunks), "pages", doc.PageCount)
	return &IngestResult{
		DocumentID: docID,
		Name:       name,
		State:      StateIndexed,
		ChunkCount: len(chunks),
	}, nil
}

// failed rolls back partial index state so the vector store never holds a
// partially-ingested document, then surfaces the original error. A rebuild
// keeps the archived bytes and the registry entry: they are the inputs the
// next attempt recovers from.
func (ing *Ingestor) failed(ctx context.Context, docID, name string, state DocumentState, rebuild bool, cause error) (*IngestResult, error) {
	log.Error(cause, "ingestion failed", "name", name, "document_id", docID, "state", string(state))
	if state == StateIndexing {
		if err := ing.store.DeleteByDocument(ctx, docID); err != nil {
			log.Error(err, "compensating delete failed", "document_id", docID)
		}
	}
	if !rebuild && ing.blobs != nil {
		if err := ing.blobs.Delete(ctx, docID); err != nil {
			log.Error(err, "failed to remove archived bytes", "document_id", docID)
		}
	}
	return &IngestResult{DocumentID: docID, Name: name, State: StateFailed}, cause
}

// IngestFolder processes every supported file under path independently. A
// per-document failure is recorded in the report and never aborts siblings.
func (ing *Ingestor) IngestFolder(ctx context.Context, path string) (*BatchReport, error) {
	paths, err := ing.files.ListFiles(path, SupportedExtensions())
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", path, err)
	}

	report := &BatchReport{}
	for _, p := range paths {
		data, err := ing.files.ReadFile(p)
		if err != nil {
			report.Failed = append(report.Failed, BatchFailure{Name: filepath.Base(p), Reason: err.Error()})
			continue
		}
		result, err := ing.IngestFile(ctx, filepath.Base(p), data)
		switch {
		case err != nil:
			report.Failed = append(report.Failed, BatchFailure{Name: filepath.Base(p), Reason: err.Error()})
		case result.Duplicate:
			report.Skipped = append(report.Skipped, *result)
		default:
			report.Succeeded = append(report.Succeeded, *result)
		}
	}
	return report, nil
}

// DeleteDocument removes the document's vectors first, then the registry
// entry and the archived bytes, so a concurrent query never sees orphans.
func (ing *Ingestor) DeleteDocument(ctx context.Context, docID string) error {
	doc, err := ing.registry.Get(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to look up document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
	}

	if err := retryTransient(ctx, ing.maxRetry, func() error {
		return ing.store.DeleteByDocument(ctx, docID)
	}); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	if err := ing.registry.Delete(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete registry entry: %w", err)
	}
	if ing.blobs != nil {
		if err := ing.blobs.Delete(ctx, docID); err != nil {
			log.Error(err, "failed to delete archived bytes", "document_id", docID)
		}
	}
	log.Info("document deleted", "document_id", docID, "name", doc.Name)
	return nil
}

// ListDocuments returns the registry contents.
func (ing *Ingestor) ListDocuments(ctx context.Context) ([]Document, error) {
	return ing.registry.List(ctx)
}

// Rebuild re-indexes every registered document from its archived bytes. The
// registry and the session log survive a lost vector index; this restores it.
func (ing *Ingestor) Rebuild(ctx context.Context) (*BatchReport, error) {
	if ing.blobs == nil {
		return nil, fmt.Errorf("%w: no blob archive configured", ErrInvalidConfig)
	}
	docs, err := ing.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list registry: %w", err)
	}

	report := &BatchReport{}
	for _, doc := range docs {
		data, err := ing.blobs.Get(ctx, doc.ID)
		if err != nil {
			report.Failed = append(report.Failed, BatchFailure{Name: doc.Name, Reason: err.Error()})
			continue
		}
		result, err := ing.index(ctx, doc.ID, doc.Name, data, true)
		if err != nil {
			report.Failed = append(report.Failed, BatchFailure{Name: doc.Name, Reason: err.Error()})
			continue
		}
		report.Succeeded = append(report.Succeeded, *result)
	}
	return report, nil
}
