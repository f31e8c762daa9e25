package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"botoapp/user/internal/metrics"
	"botoapp/user/internal/notify"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	NotificationQueueKey = "notifications:queue"
	MaxDeliveryAttempts  = 3
)

// RedisQueue pushes notifications onto a Redis list and drains them in a worker.
type RedisQueue struct {
	rdb         *redis.Client
	sender      notify.Sender
	logger      *zap.Logger
	key         string
	maxAttempts int
	pollTimeout time.Duration
	instanceID  string
}

func NewRedisQueue(rdb *redis.Client, sender notify.Sender, logger *zap.Logger) *RedisQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisQueue{
		rdb:         rdb,
		sender:      sender,
		logger:      logger,
		key:         NotificationQueueKey,
		maxAttempts: MaxDeliveryAttempts,
		pollTimeout: time.Second,
		instanceID:  uuid.New().String()[:8],
	}
}

// Enqueue stores msg for delivery by a worker.
func (q *RedisQueue) Enqueue(ctx context.Context, msg notify.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// Run blocks, delivering queued notifications until ctx is cancelled.
func (q *RedisQueue) Run(ctx context.Context) {
	q.logger.Info("notification worker started", zap.String("instance", q.instanceID), zap.String("queue", q.key))
	for {
		if ctx.Err() != nil {
			q.logger.Info("notification worker stopped", zap.String("instance", q.instanceID))
			return
		}
		if _, err := q.ProcessOne(ctx); err != nil && ctx.Err() == nil {
			q.logger.Warn("notification queue read failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessOne waits up to the poll timeout for one message and handles it.
// It reports whether a message was taken off the queue.
func (q *RedisQueue) ProcessOne(ctx context.Context) (bool, error) {
	res, err := q.rdb.BRPop(ctx, q.pollTimeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// BRPOP replies with [key, value].
	q.handle(ctx, res[1])
	return true, nil
}

func (q *RedisQueue) handle(ctx context.Context, payload string) {
	var msg notify.Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		q.logger.Error("failed to decode notification", zap.Error(err))
		return
	}

	err := q.sender.Send(ctx, msg)
	if err == nil {
		metrics.NotificationsDelivered.WithLabelValues(string(msg.Channel)).Inc()
		q.logger.Info("notification delivered",
			zap.String("instance", q.instanceID),
			zap.String("id", msg.ID),
			zap.String("channel", string(msg.Channel)))
		return
	}

	msg.Attempts++
	if msg.Attempts >= q.maxAttempts {
		metrics.NotificationsFailed.WithLabelValues(string(msg.Channel)).Inc()
		q.logger.Error("notification dropped",
			zap.String("id", msg.ID),
			zap.String("channel", string(msg.Channel)),
			zap.Int("attempts", msg.Attempts),
			zap.Error(err))
		return
	}

	q.logger.Warn("notification delivery failed, retrying",
		zap.String("id", msg.ID),
		zap.Int("attempts", msg.Attempts),
		zap.Error(err))
	if rerr := q.Enqueue(context.WithoutCancel(ctx), msg); rerr != nil {
		q.logger.Error("failed to requeue notification", zap.String("id", msg.ID), zap.Error(rerr))
	}
}

// DirectQueue delivers inline. Used when Redis is disabled.
type DirectQueue struct {
	sender      notify.Sender
	logger      *zap.Logger
	maxAttempts int
}

func NewDirectQueue(sender notify.Sender, logger *zap.Logger) *DirectQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectQueue{sender: sender, logger: logger, maxAttempts: MaxDeliveryAttempts}
}

// Enqueue tries delivery up to the attempt limit. Delivery failures are logged,
// never returned.
func (d *DirectQueue) Enqueue(ctx context.Context, msg notify.Message) error {
	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err = d.sender.Send(ctx, msg); err == nil {
			metrics.NotificationsDelivered.WithLabelValues(string(msg.Channel)).Inc()
			return nil
		}
		msg.Attempts = attempt
	}
	metrics.NotificationsFailed.WithLabelValues(string(msg.Channel)).Inc()
	d.logger.Error("notification dropped",
		zap.String("channel", string(msg.Channel)),
		zap.Int("attempts", msg.Attempts),
		zap.Error(err))
	return nil
}
