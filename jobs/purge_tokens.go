package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/corpbank/corpbank/internal/observability"
)

// TokenPurger deletes expired tokens and reports how many were removed.
type TokenPurger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// PurgeTokensPayload is the payload of TaskPurgeExpiredTokens.
type PurgeTokensPayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewPurgeTokensTask builds a purge task.
func NewPurgeTokensTask(reason string) (*asynq.Task, error) {
	body, err := json.Marshal(PurgeTokensPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPurgeExpiredTokens, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// PurgeTokensJob runs TaskPurgeExpiredTokens.
type PurgeTokensJob struct {
	Purger  TokenPurger
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// NewPurgeTokensJob initialises the purge handler.
func NewPurgeTokensJob(purger TokenPurger, logger *slog.Logger, metrics *observability.Metrics) *PurgeTokensJob {
	return &PurgeTokensJob{Purger: purger, Logger: logger, Metrics: metrics}
}

// Handle executes the purge.
func (j *PurgeTokensJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Purger == nil {
		return errors.New("purge tokens: handler not configured")
	}
	var payload PurgeTokensPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	defer func() { j.Metrics.ObserveJob(TaskPurgeExpiredTokens, err) }()

	start := time.Now()
	logger := j.logger().With(slog.String("reason", payload.Reason))
	removed, err := j.Purger.PurgeExpired(ctx)
	if err != nil {
		logger.Error("purge failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddPurgedTokens(removed)
	logger.Info("purged expired tokens",
		slog.Int("removed", removed),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *PurgeTokensJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPurgeExpiredTokens))
	}
	return slog.Default().With(slog.String("job", TaskPurgeExpiredTokens))
}
