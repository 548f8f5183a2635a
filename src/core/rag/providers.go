package rag

import "context"

// LLMProvider defines operations against the local model endpoint.
type LLMProvider interface {
	// Embed generates an embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// GenerateStream starts a streaming generation. The returned channel is
	// closed after a chunk with Done or Err is delivered, or when ctx is
	// cancelled.
	GenerateStream(ctx context.Context, system, prompt string) (<-chan StreamChunk, error)
}

// VectorStore persists chunk embeddings and serves nearest-neighbor queries.
type VectorStore interface {
	// Upsert writes records idempotently by chunk id, overwriting on conflict.
	Upsert(ctx context.Context, records []VectorRecord) error
	// DeleteByDocument removes all records of a document. After return a
	// concurrent query must observe none of them.
	DeleteByDocument(ctx context.Context, documentID string) error
	// Query returns up to limit records ordered by descending similarity.
	// Ties are broken by most-recently-ingested document first, then chunk
	// sequence ascending.
	Query(ctx context.Context, embedding []float32, limit int) ([]RetrievedChunk, error)
	Count(ctx context.Context) (int, error)
	ListDocuments(ctx context.Context) ([]string, error)
}

// DocumentRegistry stores document metadata, durable independently of the
// vector index.
type DocumentRegistry interface {
	// Get returns nil, nil when the id is not registered.
	Get(ctx context.Context, id string) (*Document, error)
	Create(ctx context.Context, doc *Document) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Document, error)
}

// HistoryStore is the append-only per-session conversation log. Append must be
// durable before it returns.
type HistoryStore interface {
	Append(ctx context.Context, msg *ChatMessage) error
	Load(ctx context.Context, sessionID string) ([]ChatMessage, error)
	ListSessions(ctx context.Context) ([]string, error)
	// DeleteSession removes a whole session log. Individual messages are never
	// edited or deleted.
	DeleteSession(ctx context.Context, sessionID string) error
}

// BlobStore archives raw document bytes so the vector index can be rebuilt
// from source content.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// CounterStore persists the global query counter across restarts.
type CounterStore interface {
	LoadQueryCount(ctx context.Context) (uint64, error)
	SaveQueryCount(ctx context.Context, n uint64) error
}

// PaginatedConverter turns a paginated binary format into per-page text.
type PaginatedConverter interface {
	Convert(ctx context.Context, filename string, data []byte) ([]PageText, error)
}

// PageText is one page of converted text.
type PageText struct {
	Number int
	Text   string
}

// FileSource lists and reads candidate files for folder ingestion.
type FileSource interface {
	ListFiles(path string, extensions []string) ([]string, error)
	ReadFile(path string) ([]byte, error)
}
