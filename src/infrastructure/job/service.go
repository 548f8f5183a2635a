package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"scholarbot/src/core/rag"
)

const QueueTopic = "jobs"

// Ingestor is the part of the ingestion pipeline the worker needs.
type Ingestor interface {
	IngestFolder(ctx context.Context, path string) (*rag.BatchReport, error)
}

type JobService struct {
	publisher message.Publisher
	repo      JobRepository
	logger    watermill.LoggerAdapter
	ingestor  Ingestor
}

type JobMessage struct {
	JobID    int64           `json:"job_id"`
	TaskType string          `json:"task_type"`
	Payload  json.RawMessage `json:"payload"`
}

func NewJobService(
	publisher message.Publisher,
	repo JobRepository,
	logger watermill.LoggerAdapter,
	ingestor Ingestor,
) *JobService {
	return &JobService{
		publisher: publisher,
		repo:      repo,
		logger:    logger,
		ingestor:  ingestor,
	}
}

// EnqueueIngestFolder records a folder ingestion job and publishes it.
func (s *JobService) EnqueueIngestFolder(ctx context.Context, path string) (*Job, error) {
	payload, err := json.Marshal(IngestFolderPayload{Path: path})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	job, err := s.repo.Create(ctx, TaskTypeIngestFolder, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	jobMsg := JobMessage{
		JobID:    job.ID,
		TaskType: job.TaskType,
		Payload:  job.Payload,
	}

	msgPayload, err := json.Marshal(jobMsg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job message: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), msgPayload)
	if err := s.publisher.Publish(QueueTopic, msg); err != nil {
		return nil, fmt.Errorf("failed to publish job message: %w", err)
	}

	return job, nil
}

// GetJob returns a job record, or nil when the id is unknown.
func (s *JobService) GetJob(ctx context.Context, id int64) (*Job, error) {
	return s.repo.Get(ctx, id)
}

// ProcessJobMessage handles one message pulled from the queue.
func (s *JobService) ProcessJobMessage(msg *message.Message) error {
	var jobMsg JobMessage
	if err := json.Unmarshal(msg.Payload, &jobMsg); err != nil {
		return fmt.Errorf("failed to unmarshal job message: %w", err)
	}

	ctx := context.Background()

	job, err := s.repo.Get(ctx, jobMsg.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job not found: %d", jobMsg.JobID)
	}

	if err := s.repo.UpdateStatus(ctx, job.ID, JobStatusRunning, nil, nil); err != nil {
		return fmt.Errorf("failed to update job status to running: %w", err)
	}

	result, err := s.processJob(ctx, job)
	if err != nil {
		errStr := err.Error()
		if updateErr := s.repo.UpdateStatus(ctx, job.ID, JobStatusFailed, &errStr, nil); updateErr != nil {
			s.logger.Error("Failed to update job status to failed", updateErr, watermill.LogFields{
				"job_id": job.ID,
			})
		}
		return fmt.Errorf("failed to process job: %w", err)
	}

	if err := s.repo.UpdateStatus(ctx, job.ID, JobStatusCompleted, nil, result); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	return nil
}

func (s *JobService) processJob(ctx context.Context, job *Job) (json.RawMessage, error) {
	switch job.TaskType {
	case TaskTypeIngestFolder:
		var payload IngestFolderPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ingest payload: %w", err)
		}

		report, err := s.ingestor.IngestFolder(ctx, payload.Path)
		if err != nil {
			return nil, err
		}

		result, err := json.Marshal(report)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal batch report: %w", err)
		}
		s.logger.Info("Folder ingestion finished", watermill.LogFields{
			"job_id":    job.ID,
			"path":      payload.Path,
			"succeeded": len(report.Succeeded),
			"failed":    len(report.Failed),
			"skipped":   len(report.Skipped),
		})
		return result, nil
	default:
		return nil, fmt.Errorf("unknown task type: %s", job.TaskType)
	}
}
