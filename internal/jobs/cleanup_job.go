package jobs

import (
	"context"
	"fmt"
	"time"

	"botoapp/user/internal/repositories"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CleanupJob periodically purges expired pending registrations and one-time tokens.
type CleanupJob struct {
	pending *repositories.PendingUserRepository
	tokens  *repositories.TokenRepository
	config  *CleanupConfig
	logger  *zap.Logger
	cron    *cron.Cron
	now     func() time.Time
}

type CleanupConfig struct {
	Schedule      string // cron spec, e.g. "@every 15m"
	OTPLifespan   time.Duration
	TokenLifespan time.Duration
}

func NewCleanupJob(pending *repositories.PendingUserRepository, tokens *repositories.TokenRepository, config *CleanupConfig, logger *zap.Logger) *CleanupJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CleanupJob{
		pending: pending,
		tokens:  tokens,
		config:  config,
		logger:  logger,
		cron:    cron.New(),
		now:     time.Now,
	}
}

// Start schedules the purge and starts the cron runner.
func (j *CleanupJob) Start() error {
	if j.config.Schedule == "" {
		j.logger.Info("cleanup schedule empty, skipping scheduler")
		return nil
	}

	_, err := j.cron.AddFunc(j.config.Schedule, func() {
		if _, err := j.RunOnce(context.Background()); err != nil {
			j.logger.Error("cleanup job failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule cleanup job: %w", err)
	}

	j.cron.Start()
	j.logger.Info("cleanup job started", zap.String("schedule", j.config.Schedule))
	return nil
}

// Stop halts the scheduler and waits for a running purge to finish.
func (j *CleanupJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
		j.logger.Info("cleanup job stopped")
	}
}

// RunOnce performs a single purge.
func (j *CleanupJob) RunOnce(ctx context.Context) (repositories.CleanupResult, error) {
	res, err := repositories.PurgeExpired(ctx, j.pending, j.tokens, j.now(), j.config.OTPLifespan, j.config.TokenLifespan)
	if err != nil {
		return res, err
	}
	j.logger.Info("expired records purged",
		zap.Int64("pending_users", res.PendingUsers),
		zap.Int64("tokens", res.Tokens))
	return res, nil
}
