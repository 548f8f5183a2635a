// Package systemctrl persists small pieces of server state that must survive
// restarts, such as the maintenance query counter.
package systemctrl

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"scholarbot/src/core/rag"
)

const queryCountKey = "query_count"

type StateRecord struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (StateRecord) TableName() string {
	return "system_state"
}

type SystemService struct {
	db *gorm.DB
}

func NewSystemService(db *gorm.DB) *SystemService {
	return &SystemService{db: db}
}

// Migrate creates or updates the system_state table.
func (s *SystemService) Migrate() error {
	return s.db.AutoMigrate(&StateRecord{})
}

func (s *SystemService) LoadQueryCount(ctx context.Context) (uint64, error) {
	var record StateRecord
	result := s.db.WithContext(ctx).Where("key = ?", queryCountKey).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: failed to load query count: %v", rag.ErrStoreUnavailable, result.Error)
	}

	count, err := strconv.ParseUint(record.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid query count value %q: %w", record.Value, err)
	}
	return count, nil
}

func (s *SystemService) SaveQueryCount(ctx context.Context, count uint64) error {
	record := &StateRecord{
		Key:   queryCountKey,
		Value: strconv.FormatUint(count, 10),
	}
	result := s.db.WithContext(ctx).Save(record)
	if result.Error != nil {
		return fmt.Errorf("%w: failed to save query count: %v", rag.ErrStoreUnavailable, result.Error)
	}
	return nil
}
