// Package historyctrl persists per-session chat transcripts in Postgres.
package historyctrl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"scholarbot/src/core/rag"
)

type MessageRecord struct {
	MessageID  string          `gorm:"primaryKey" json:"message_id"`
	SessionID  string          `gorm:"not null;index" json:"session_id"`
	Role       string          `gorm:"not null" json:"role"`
	Content    string          `gorm:"not null" json:"content"`
	Citations  json.RawMessage `gorm:"type:jsonb" json:"citations,omitempty"`
	Incomplete bool            `gorm:"not null;default:false" json:"incomplete"`
	CreatedAt  time.Time       `gorm:"not null;index" json:"created_at"`
}

func (MessageRecord) TableName() string {
	return "chat_messages"
}

type HistoryService struct {
	db *gorm.DB
}

func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db}
}

// Migrate creates or updates the chat_messages table.
func (s *HistoryService) Migrate() error {
	return s.db.AutoMigrate(&MessageRecord{})
}

func (s *HistoryService) Append(ctx context.Context, msg *rag.ChatMessage) error {
	record := &MessageRecord{
		MessageID:  msg.MessageID,
		SessionID:  msg.SessionID,
		Role:       msg.Role,
		Content:    msg.Content,
		Incomplete: msg.Incomplete,
		CreatedAt:  msg.CreatedAt,
	}
	if len(msg.Citations) > 0 {
		data, err := json.Marshal(msg.Citations)
		if err != nil {
			return fmt.Errorf("failed to marshal citations: %w", err)
		}
		record.Citations = data
	}

	result := s.db.WithContext(ctx).Create(record)
	if result.Error != nil {
		return fmt.Errorf("%w: failed to append message: %v", rag.ErrStoreUnavailable, result.Error)
	}
	return nil
}

func (s *HistoryService) Load(ctx context.Context, sessionID string) ([]rag.ChatMessage, error) {
	var records []MessageRecord
	result := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at asc, message_id asc").
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: failed to load history: %v", rag.ErrStoreUnavailable, result.Error)
	}

	messages := make([]rag.ChatMessage, 0, len(records))
	for i := range records {
		msg, err := toMessage(&records[i])
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, nil
}

func (s *HistoryService) ListSessions(ctx context.Context) ([]string, error) {
	var sessions []string
	result := s.db.WithContext(ctx).
		Model(&MessageRecord{}).
		Distinct("session_id").
		Order("session_id asc").
		Pluck("session_id", &sessions)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: failed to list sessions: %v", rag.ErrStoreUnavailable, result.Error)
	}
	return sessions, nil
}

func (s *HistoryService) DeleteSession(ctx context.Context, sessionID string) error {
	result := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&MessageRecord{})
	if result.Error != nil {
		return fmt.Errorf("%w: failed to delete session: %v", rag.ErrStoreUnavailable, result.Error)
	}
	return nil
}

func toMessage(record *MessageRecord) (*rag.ChatMessage, error) {
	msg := &rag.ChatMessage{
		MessageID:  record.MessageID,
		SessionID:  record.SessionID,
		Role:       record.Role,
		Content:    record.Content,
		Incomplete: record.Incomplete,
		CreatedAt:  record.CreatedAt,
	}
	if len(record.Citations) > 0 {
		if err := json.Unmarshal(record.Citations, &msg.Citations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal citations: %w", err)
		}
	}
	return msg, nil
}
