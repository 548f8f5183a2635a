// Package job runs folder ingestion in the background through an AMQP queue,
// tracking each run in Postgres.
package job

import (
	"context"
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

const TaskTypeIngestFolder = "ingest_folder"

// IngestFolderPayload is the message body for folder ingestion jobs.
type IngestFolderPayload struct {
	Path string `json:"path"`
}

type Job struct {
	ID        int64           `json:"id"`
	TaskType  string          `json:"task_type"`
	Payload   json.RawMessage `json:"payload"`
	Status    JobStatus       `json:"status"`
	Error     *string         `json:"error,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type JobRepository interface {
	Create(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error)
	Get(ctx context.Context, id int64) (*Job, error)
	UpdateStatus(ctx context.Context, id int64, status JobStatus, errMsg *string, result json.RawMessage) error
}
