package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nadhifr/eventra/internal/monitoring"
	"github.com/nadhifr/eventra/pkg/queue"
)

// JobQueue is the subset of the Redis queue the processor consumes.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// Sender delivers one attendance-token email.
type Sender interface {
	SendAttendanceToken(ctx context.Context, payload queue.EmailPayload) error
}

// EmailProcessor drains the email queue and hands each job to the sender.
type EmailProcessor struct {
	queue  JobQueue
	sender Sender
	logger *slog.Logger
}

// NewEmailProcessor creates a processor over the given queue and sender.
func NewEmailProcessor(q JobQueue, sender Sender, logger *slog.Logger) *EmailProcessor {
	return &EmailProcessor{queue: q, sender: sender, logger: logger}
}

// Run consumes jobs until ctx is canceled. Send failures re-enqueue the job
// with backoff; jobs that exhaust their retries land in the dead-letter queue.
func (p *EmailProcessor) Run(ctx context.Context) error {
	p.logger.Info("email worker started")
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				p.logger.Info("email worker stopped")
				return nil
			}
			p.logger.Error("dequeue failed", slog.Any("error", err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(queue.RetryBackoff):
			}
			continue
		}
		if job == nil {
			continue
		}
		if err := p.process(ctx, job); err != nil {
			p.logger.Error("email job failed",
				slog.String("job_id", job.ID),
				slog.Int("attempt", job.Attempt),
				slog.Any("error", err))
			monitoring.RecordEmailJob(monitoring.OutcomeFailure)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(queue.RetryBackoff):
			}
			if retryErr := p.queue.Retry(ctx, job); retryErr != nil {
				p.logger.Error("retry enqueue failed",
					slog.String("job_id", job.ID),
					slog.Any("error", retryErr))
			}
			continue
		}
		monitoring.RecordEmailJob(monitoring.OutcomeSuccess)
	}
}

func (p *EmailProcessor) process(ctx context.Context, job *queue.Job) error {
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		// Malformed payloads never become sendable; drop instead of retrying.
		p.logger.Warn("dropping malformed job", slog.String("job_id", job.ID), slog.Any("error", err))
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := p.sender.SendAttendanceToken(sendCtx, payload); err != nil {
		return fmt.Errorf("send attendance token: %w", err)
	}
	p.logger.Info("attendance token email sent",
		slog.String("job_id", job.ID),
		slog.String("participant_id", payload.ParticipantID))
	return nil
}
