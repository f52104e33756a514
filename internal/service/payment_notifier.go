package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/elearning-backend/internal/config"
	"github.com/stemsi/elearning-backend/internal/model"
)

// RedisPaymentNotifier publishes confirmations on the payment's status
// channel and queues the enrollment confirmation e-mail.
type RedisPaymentNotifier struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisPaymentNotifier creates a new RedisPaymentNotifier.
func NewRedisPaymentNotifier(rdb *redis.Client, log zerolog.Logger) *RedisPaymentNotifier {
	return &RedisPaymentNotifier{
		rdb: rdb,
		log: log.With().Str("component", "payment_notifier").Logger(),
	}
}

// PaymentConfirmed implements PaymentNotifier. Failures are logged only:
// the payment is already committed.
func (n *RedisPaymentNotifier) PaymentConfirmed(ctx context.Context, c *model.PaymentConfirmation) {
	p := c.Payment

	event, _ := json.Marshal(model.PaymentStatusEvent{
		Type:      model.PaymentStatusConfirmed,
		PaymentID: p.ID,
		CourseID:  p.CourseID,
		Status:    p.Status,
	})
	if err := n.rdb.Publish(ctx, config.CacheKey.PaymentStatusChannel(p.ID), event).Err(); err != nil {
		n.log.Warn().Err(err).Int64("payment_id", p.ID).Msg("Failed to publish payment status")
	}

	job, _ := json.Marshal(model.EnrollmentMailJob{
		PaymentID: p.ID,
		UserID:    p.UserID,
		CourseID:  p.CourseID,
	})
	if err := n.rdb.RPush(ctx, config.WorkerKey.EnrollmentMailQueue, job).Err(); err != nil {
		n.log.Warn().Err(err).Int64("payment_id", p.ID).Msg("Failed to queue enrollment mail")
	}
}

// SubscribePaymentStatus subscribes to the payment's status channel and
// returns once Redis has acknowledged the subscription, so nothing published
// after it returns is missed.
func (n *RedisPaymentNotifier) SubscribePaymentStatus(ctx context.Context, paymentID int64) (<-chan *redis.Message, func() error, error) {
	pubsub := n.rdb.Subscribe(ctx, config.CacheKey.PaymentStatusChannel(paymentID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe payment status: %w", err)
	}
	return pubsub.Channel(), pubsub.Close, nil
}
