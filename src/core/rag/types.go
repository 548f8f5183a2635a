package rag

import "time"

// Document is the registry record for one ingested file. The ID is the SHA-256
// hash of the raw bytes, so re-ingesting identical content is a no-op.
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MimeType   string    `json:"mime_type"`
	PageCount  int       `json:"page_count"`
	ChunkCount int       `json:"chunk_count"`
	IngestedAt time.Time `json:"ingested_at"`
}

// PageSpan maps a page number to its byte range in the extracted text.
type PageSpan struct {
	Number int `json:"number"`
	Start  int `json:"start"`
	End    int `json:"end"`
}

// ExtractedText is the extractor output: plain text plus page offsets.
type ExtractedText struct {
	Text  string
	Pages []PageSpan
}

// Chunk is a bounded slice of a document's extracted text. Chunk IDs are
// deterministic: "<document id>:<sequence index>".
type Chunk struct {
	ID          string `json:"id"`
	DocumentID  string `json:"document_id"`
	Seq         int    `json:"seq"`
	Text        string `json:"text"`
	TokenCount  int    `json:"token_count"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	PageNumber  int    `json:"page_number,omitempty"`
}

// VectorRecord is the persisted unit of the vector store.
type VectorRecord struct {
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id"`
	Seq        int       `json:"seq"`
	Embedding  []float32 `json:"embedding"`
	Text       string    `json:"text"`
	PageNumber int       `json:"page_number,omitempty"`
	IngestedAt time.Time `json:"ingested_at"`
}

// RetrievedChunk is one scored result of a nearest-neighbor query.
type RetrievedChunk struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Seq        int     `json:"seq"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
	PageNumber int     `json:"page_number,omitempty"`
}

// Citation resolves a marker in generated text back to its source.
type Citation struct {
	Marker       string `json:"marker"`
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	PageNumber   int    `json:"page_number,omitempty"`
}

// ChatMessage is one append-only entry of a session log. Incomplete marks
// answers cut short by cancellation or a mid-stream failure.
type ChatMessage struct {
	MessageID  string     `json:"message_id"`
	SessionID  string     `json:"session_id"`
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Citations  []Citation `json:"citations,omitempty"`
	Incomplete bool       `json:"incomplete,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DocumentState tracks a document through the ingestion state machine.
type DocumentState string

const (
	StateReceived   DocumentState = "received"
	StateExtracting DocumentState = "extracting"
	StateChunking   DocumentState = "chunking"
	StateEmbedding  DocumentState = "embedding"
	StateIndexing   DocumentState = "indexing"
	StateIndexed    DocumentState = "indexed"
	StateFailed     DocumentState = "failed"
)

// IngestResult reports the outcome for a single document.
type IngestResult struct {
	DocumentID string        `json:"document_id"`
	Name       string        `json:"name"`
	State      DocumentState `json:"state"`
	ChunkCount int           `json:"chunk_count"`
	Duplicate  bool          `json:"duplicate,omitempty"`
}

// BatchFailure names a document that failed during folder ingestion.
type BatchFailure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// BatchReport summarizes a folder ingestion. One document's failure never
// aborts its siblings.
type BatchReport struct {
	Succeeded []IngestResult `json:"succeeded"`
	Failed    []BatchFailure `json:"failed"`
	Skipped   []IngestResult `json:"skipped_duplicates"`
}

// StreamChunk is one increment of a model's token stream.
type StreamChunk struct {
	Content string
	Done    bool
	Err     error
}

// AnswerEvent is one increment of a streamed answer. Exactly one event with
// Done set (carrying the resolved citations) or with Err set terminates the
// stream.
type AnswerEvent struct {
	Token     string     `json:"token,omitempty"`
	Done      bool       `json:"done,omitempty"`
	Citations []Citation `json:"citations,omitempty"`
	Err       error      `json:"-"`
}
