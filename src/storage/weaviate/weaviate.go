// Package weaviate adapts a Weaviate instance to the pipeline's VectorStore
// contract, for corpora that outgrow the exact-scan file index.
package weaviate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"scholarbot/src/core/rag"
)

const ClassName = "DocumentChunk"

// chunkNamespace seeds the deterministic object UUIDs, making batch upserts
// idempotent by chunk id.
var chunkNamespace = uuid.MustParse("8a9e7a70-9f43-4a52-bb7b-6f3c9e2f1c55")

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// EnsureSchema creates the chunk class when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	schema, err := s.client.Schema().Getter().Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get schema: %v", rag.ErrStoreUnavailable, err)
	}
	for _, class := range schema.Classes {
		if class.Class == ClassName {
			return nil
		}
	}

	class := &models.Class{
		Class:      ClassName,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "chunkId", DataType: []string{"text"}},
			{Name: "documentId", DataType: []string{"text"}},
			{Name: "seq", DataType: []string{"int"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "pageNumber", DataType: []string{"int"}},
			{Name: "ingestedAt", DataType: []string{"date"}},
		},
	}
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return nil
		}
		return fmt.Errorf("%w: failed to create class: %v", rag.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, records []rag.VectorRecord) error {
	objs := make([]*models.Object, len(records))
	for i, r := range records {
		objs[i] = &models.Object{
			ID:     strfmt.UUID(uuid.NewSHA1(chunkNamespace, []byte(r.ChunkID)).String()),
			Class:  ClassName,
			Vector: r.Embedding,
			Properties: map[string]interface{}{
				"chunkId":    r.ChunkID,
				"documentId": r.DocumentID,
				"seq":        r.Seq,
				"content":    r.Text,
				"pageNumber": r.PageNumber,
				"ingestedAt": r.IngestedAt.Format(time.RFC3339),
			},
		}
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objs...).Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to batch upsert vectors: %v", rag.ErrStoreUnavailable, err)
	}
	if len(resp) == 0 {
		return fmt.Errorf("%w: batch upsert returned no results", rag.ErrStoreUnavailable)
	}
	return nil
}

func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	where := filters.Where().
		WithPath([]string{"documentId"}).
		WithOperator(filters.Equal).
		WithValueString(documentID)

	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(ClassName).
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to delete document vectors: %v", rag.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, embedding []float32, limit int) ([]rag.RetrievedChunk, error) {
	fields := []graphql.Field{
		{Name: "chunkId"},
		{Name: "documentId"},
		{Name: "seq"},
		{Name: "content"},
		{Name: "pageNumber"},
		{Name: "_additional { certainty }"},
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(embedding)

	result, err := s.client.GraphQL().Get().
		WithClassName(ClassName).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query vectors: %v", rag.ErrStoreUnavailable, err)
	}

	var chunks []rag.RetrievedChunk
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return chunks, nil
	}
	objects, ok := data[ClassName].([]interface{})
	if !ok {
		return chunks, nil
	}
	for _, obj := range objects {
		objMap, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}
		chunk := rag.RetrievedChunk{}
		if v, ok := objMap["chunkId"].(string); ok {
			chunk.ChunkID = v
		}
		if v, ok := objMap["documentId"].(string); ok {
			chunk.DocumentID = v
		}
		if v, ok := objMap["seq"].(float64); ok {
			chunk.Seq = int(v)
		}
		if v, ok := objMap["content"].(string); ok {
			chunk.Text = v
		}
		if v, ok := objMap["pageNumber"].(float64); ok {
			chunk.PageNumber = int(v)
		}
		if additional, ok := objMap["_additional"].(map[string]interface{}); ok {
			if v, ok := additional["certainty"].(float64); ok {
				chunk.Score = cosineFromCertainty(v)
			}
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// cosineFromCertainty maps Weaviate's certainty, (1 + cosine) / 2, back to
// cosine similarity so scores compare against the same floor on every backend.
func cosineFromCertainty(certainty float64) float64 {
	return 2*certainty - 1
}

func (s *Store) Count(ctx context.Context) (int, error) {
	result, err := s.client.GraphQL().Aggregate().
		WithClassName(ClassName).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to aggregate count: %v", rag.ErrStoreUnavailable, err)
	}

	data, ok := result.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	objects, ok := data[ClassName].([]interface{})
	if !ok || len(objects) == 0 {
		return 0, nil
	}
	objMap, ok := objects[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	meta, ok := objMap["meta"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	count, _ := meta["count"].(float64)
	return int(count), nil
}

func (s *Store) ListDocuments(ctx context.Context) ([]string, error) {
	result, err := s.client.GraphQL().Get().
		WithClassName(ClassName).
		WithFields(graphql.Field{Name: "documentId"}).
		WithLimit(10000).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list documents: %v", rag.ErrStoreUnavailable, err)
	}

	seen := make(map[string]bool)
	var docs []string
	if data, ok := result.Data["Get"].(map[string]interface{}); ok {
		if objects, ok := data[ClassName].([]interface{}); ok {
			for _, obj := range objects {
				if objMap, ok := obj.(map[string]interface{}); ok {
					if id, ok := objMap["documentId"].(string); ok && !seen[id] {
						seen[id] = true
						docs = append(docs, id)
					}
				}
			}
		}
	}
	return docs, nil
}
