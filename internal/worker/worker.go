package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pairprep/backend/internal/metrics"
	"github.com/pairprep/backend/internal/models"
	"github.com/pairprep/backend/internal/realtime"
	"github.com/pairprep/backend/pkg/queue"
)

// UserStore is the user table as seen by the sync worker.
type UserStore interface {
	Upsert(ctx context.Context, u *models.User) (*models.User, error)
	DeleteByExternalID(ctx context.Context, externalID string) error
}

// ChatUsers mirrors users onto the chat provider.
type ChatUsers interface {
	UpsertUser(ctx context.Context, user realtime.ChatUser) error
	DeleteUser(ctx context.Context, id string) error
}

// JobQueue is the source of identity jobs.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) (bool, error)
}

// IdentityProcessor syncs identity provider users into the users table and the chat provider.
type IdentityProcessor struct {
	users   UserStore
	chat    ChatUsers
	queue   JobQueue
	backoff time.Duration
	logger  *zap.Logger
}

// NewIdentityProcessor creates an identity sync processor.
func NewIdentityProcessor(users UserStore, chat ChatUsers, q JobQueue, logger *zap.Logger) *IdentityProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityProcessor{users: users, chat: chat, queue: q, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one identity sync job.
func (p *IdentityProcessor) Process(ctx context.Context, job *queue.Job) error {
	var payload queue.UserPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload.ExternalID == "" {
		return fmt.Errorf("job %s has no external id", job.ID)
	}

	switch job.Type {
	case queue.JobTypeUserUpsert:
		user, err := p.users.Upsert(ctx, &models.User{
			ExternalID:   payload.ExternalID,
			Email:        payload.Email,
			Name:         payload.Name,
			ProfileImage: payload.ImageURL,
		})
		if err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}
		if err := p.chat.UpsertUser(ctx, realtime.ChatUser{ID: payload.ExternalID, Name: payload.Name, Image: payload.ImageURL}); err != nil {
			return fmt.Errorf("upsert chat user: %w", err)
		}
		p.logger.Info("user synced", zap.String("user_id", user.ID.String()), zap.String("external_id", payload.ExternalID))
	case queue.JobTypeUserDelete:
		if err := p.users.DeleteByExternalID(ctx, payload.ExternalID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if err := p.chat.DeleteUser(ctx, payload.ExternalID); err != nil && !isMissing(err) {
			return fmt.Errorf("delete chat user: %w", err)
		}
		p.logger.Info("user deleted", zap.String("external_id", payload.ExternalID))
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	return nil
}

func isMissing(err error) bool {
	var perr *realtime.ProviderError
	return errors.As(err, &perr) && perr.Status == http.StatusNotFound
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *IdentityProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("identity worker stopping")
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
		p.handle(ctx, job)
	}
}

func (p *IdentityProcessor) handle(ctx context.Context, job *queue.Job) {
	p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	err := p.Process(ctx, job)
	if err == nil {
		metrics.JobsProcessed.WithLabelValues(string(job.Type), "ok").Inc()
		return
	}
	p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
	dead, reErr := p.queue.Retry(ctx, job)
	if reErr != nil {
		p.logger.Error("retry enqueue failed", zap.String("job_id", job.ID), zap.Error(reErr))
	}
	result := "retry"
	if dead {
		result = "dead_letter"
	}
	metrics.JobsProcessed.WithLabelValues(string(job.Type), result).Inc()
	p.sleep(ctx)
}

func (p *IdentityProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
