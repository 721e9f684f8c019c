package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// QueueEmails is the Redis list key for outbound email jobs.
	QueueEmails = "worker:emails"
	// QueueDLQ is the dead-letter queue for jobs that exhausted retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of attempts before a job moves to the DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between worker retries.
	RetryBackoff = 10 * time.Second
)

// EmailPayload is the payload for attendance-token email jobs.
type EmailPayload struct {
	Recipient     string    `json:"recipient"`
	ParticipantID string    `json:"participant_id"`
	EventTitle    string    `json:"event_title"`
	Token         string    `json:"token"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Job is the envelope pushed onto the Redis list.
type Job struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues email jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *slog.Logger
}

// NewQueue creates a Redis-backed email job queue.
func NewQueue(client *redis.Client, logger *slog.Logger) *Queue {
	return &Queue{client: client, logger: logger}
}

// EnqueueEmail pushes an email job onto the queue.
func (q *Queue) EnqueueEmail(ctx context.Context, payload EmailPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueEmails, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued email job",
		slog.String("job_id", job.ID),
		slog.String("recipient", payload.Recipient))
	return nil
}

// Dequeue blocks until a job is available or ctx is done.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, 0, QueueEmails).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", slog.String("raw", result[1]), slog.Any("error", err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job with an incremented attempt count, moving it to
// the DLQ once MaxRetries is reached.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", slog.Any("error", err), slog.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", slog.String("job_id", job.ID), slog.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.client.RPush(ctx, QueueEmails, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", slog.String("job_id", job.ID), slog.Int("attempt", job.Attempt))
	return nil
}
