package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clubhouse/backend/internal/models"
	"github.com/clubhouse/backend/pkg/queue"
)

// Inbox stores delivered notifications.
type Inbox interface {
	Create(ctx context.Context, n *models.Notification) error
}

// JobSource is the queue the processor drains.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// NotificationProcessor delivers club notification jobs into user inboxes.
type NotificationProcessor struct {
	inbox   Inbox
	queue   JobSource
	logger  *zap.Logger
	backoff time.Duration
}

// NewNotificationProcessor creates a notification processor.
func NewNotificationProcessor(inbox Inbox, q JobSource, logger *zap.Logger) *NotificationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationProcessor{inbox: inbox, queue: q, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one notification job.
func (p *NotificationProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeNotification {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	jobID, err := uuid.Parse(job.ID)
	if err != nil {
		return fmt.Errorf("invalid job id %q: %w", job.ID, err)
	}
	var payload queue.Notification
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload.RecipientID < 1 {
		return fmt.Errorf("notification without recipient")
	}

	n := &models.Notification{
		JobID:       jobID,
		RecipientID: payload.RecipientID,
		Type:        string(payload.Type),
		ClubID:      payload.ClubID,
		ClubName:    payload.ClubName,
		ActorID:     payload.ActorID,
	}
	if err := p.inbox.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	p.logger.Info("notification delivered",
		zap.String("job_id", job.ID),
		zap.String("type", n.Type),
		zap.Int64("recipient_id", n.RecipientID),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *NotificationProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *NotificationProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
