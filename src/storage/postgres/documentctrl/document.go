// Package documentctrl persists document registry entries in Postgres.
package documentctrl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"scholarbot/src/core/rag"
)

type DocumentRecord struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"not null" json:"name"`
	MimeType   string    `gorm:"not null" json:"mime_type"`
	PageCount  int       `gorm:"not null" json:"page_count"`
	ChunkCount int       `gorm:"not null" json:"chunk_count"`
	IngestedAt time.Time `gorm:"not null" json:"ingested_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (DocumentRecord) TableName() string {
	return "documents"
}

type DocumentService struct {
	db *gorm.DB
}

func NewDocumentService(db *gorm.DB) *DocumentService {
	return &DocumentService{db: db}
}

// Migrate creates or updates the documents table.
func (s *DocumentService) Migrate() error {
	return s.db.AutoMigrate(&DocumentRecord{})
}

func (s *DocumentService) Create(ctx context.Context, doc *rag.Document) error {
	record := &DocumentRecord{
		ID:         doc.ID,
		Name:       doc.Name,
		MimeType:   doc.MimeType,
		PageCount:  doc.PageCount,
		ChunkCount: doc.ChunkCount,
		IngestedAt: doc.IngestedAt,
	}

	// Save upserts on the primary key so re-ingesting after a partial
	// failure does not conflict.
	result := s.db.WithContext(ctx).Save(record)
	if result.Error != nil {
		return fmt.Errorf("%w: failed to create document: %v", rag.ErrStoreUnavailable, result.Error)
	}
	return nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*rag.Document, error) {
	var record DocumentRecord
	result := s.db.WithContext(ctx).Where("id = ?", id).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to get document: %v", rag.ErrStoreUnavailable, result.Error)
	}
	return toDocument(&record), nil
}

func (s *DocumentService) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&DocumentRecord{})
	if result.Error != nil {
		return fmt.Errorf("%w: failed to delete document: %v", rag.ErrStoreUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return rag.ErrDocumentNotFound
	}
	return nil
}

func (s *DocumentService) List(ctx context.Context) ([]rag.Document, error) {
	var records []DocumentRecord
	result := s.db.WithContext(ctx).Order("ingested_at desc").Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: failed to list documents: %v", rag.ErrStoreUnavailable, result.Error)
	}

	docs := make([]rag.Document, len(records))
	for i := range records {
		docs[i] = *toDocument(&records[i])
	}
	return docs, nil
}

func toDocument(record *DocumentRecord) *rag.Document {
	return &rag.Document{
		ID:         record.ID,
		Name:       record.Name,
		MimeType:   record.MimeType,
		PageCount:  record.PageCount,
		ChunkCount: record.ChunkCount,
		IngestedAt: record.IngestedAt,
	}
}
