package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/kyc-review/internal/application/port"
	"github.com/garyjia/kyc-review/internal/domain/workflow"
)

const (
	// DefaultKey is the Redis list that carries next-step signals
	DefaultKey = "kyc:workflow:next_step"

	// DefaultBlock is how long Next waits for a message
	DefaultBlock = 5 * time.Second

	// processingSuffix names the in-flight list next to the queue key
	processingSuffix = ":processing"
)

// ErrMalformedMessage is returned by Next when a queued payload cannot be decoded
var ErrMalformedMessage = errors.New("malformed trigger message")

// ClientConfig holds Redis connection settings
type ClientConfig struct {
	Address  string
	Password string
	DB       int
}

// NewClient creates a Redis client
func NewClient(cfg ClientConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

// RedisTrigger is a FIFO next-step queue on a Redis list. Notify LPUSHes; Next BLMOVEs the
// oldest message into a processing list where it stays until Ack removes it or Nack requeues it.
type RedisTrigger struct {
	client     *redis.Client
	key        string
	processing string
	block  time.Duration
	clock  func() time.Time
	logger *zap.Logger
}

// Option configures a RedisTrigger
type Option func(*RedisTrigger)

// WithKey overrides the list key
func WithKey(key string) Option {
	return func(t *RedisTrigger) {
		if key != "" {
			t.key = key
		}
	}
}

// WithBlock overrides the BLMOVE wait
func WithBlock(d time.Duration) Option {
	return func(t *RedisTrigger) {
		if d > 0 {
			t.block = d
		}
	}
}

// WithClock overrides the enqueue timestamp source
func WithClock(clock func() time.Time) Option {
	return func(t *RedisTrigger) {
		t.clock = clock
	}
}

// NewRedisTrigger creates a trigger queue over client
func NewRedisTrigger(client *redis.Client, logger *zap.Logger, opts ...Option) *RedisTrigger {
	t := &RedisTrigger{
		client: client,
		key:    DefaultKey,
		block:  DefaultBlock,
		clock:  time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.processing = t.key + processingSuffix
	return t
}

// Notify enqueues a next-step signal for the application's new state
func (t *RedisTrigger) Notify(ctx context.Context, applicationID string, state workflow.State) error {
	payload, err := json.Marshal(port.TriggerMessage{
		ApplicationID: applicationID,
		State:         state,
		EnqueuedAt:    t.clock().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode trigger message: %w", err)
	}

	if err := t.client.LPush(ctx, t.key, payload).Err(); err != nil {
		t.logger.Error("Failed to enqueue next-step trigger",
			zap.String("application_id", applicationID),
			zap.String("state", string(state)),
			zap.Error(err))
		return fmt.Errorf("failed to enqueue trigger: %w", err)
	}

	t.logger.Debug("Next-step trigger enqueued",
		zap.String("application_id", applicationID),
		zap.String("state", string(state)))
	return nil
}

// Next blocks for up to the configured window and moves the oldest queued signal in flight
func (t *RedisTrigger) Next(ctx context.Context) (*port.TriggerMessage, error) {
	raw, err := t.client.BLMove(ctx, t.key, t.processing, "RIGHT", "LEFT", t.block).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop trigger: %w", err)
	}

	var msg port.TriggerMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.discard(ctx, raw)
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.ApplicationID == "" || !msg.State.IsValid() {
		t.discard(ctx, raw)
		return nil, fmt.Errorf("%w: missing application id or unknown state %q", ErrMalformedMessage, msg.State)
	}
	msg.Raw = raw
	return &msg, nil
}

// Ack removes a dispatched message from the processing list
func (t *RedisTrigger) Ack(ctx context.Context, msg *port.TriggerMessage) error {
	if err := t.client.LRem(ctx, t.processing, 1, msg.Raw).Err(); err != nil {
		return fmt.Errorf("failed to ack trigger: %w", err)
	}
	return nil
}

// Nack moves a message back to the tail of the queue for another attempt
func (t *RedisTrigger) Nack(ctx context.Context, msg *port.TriggerMessage) error {
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, t.processing, 1, msg.Raw)
		pipe.LPush(ctx, t.key, msg.Raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to requeue trigger: %w", err)
	}
	return nil
}

// Recover returns messages left in flight by a consumer that stopped before acking
// to the head of the queue, oldest first. Call it once before consumers start.
func (t *RedisTrigger) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := t.client.LMove(ctx, t.processing, t.key, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return moved, fmt.Errorf("failed to recover in-flight triggers: %w", err)
		}
		moved++
	}
	if moved > 0 {
		t.logger.Info("Requeued in-flight next-step triggers", zap.Int("count", moved))
	}
	return moved, nil
}

// InFlight returns the number of messages taken by Next and not yet acked
func (t *RedisTrigger) InFlight(ctx context.Context) (int64, error) {
	return t.client.LLen(ctx, t.processing).Result()
}

// discard drops an undecodable payload so it is not redelivered forever
func (t *RedisTrigger) discard(ctx context.Context, raw string) {
	if err := t.client.LRem(ctx, t.processing, 1, raw).Err(); err != nil {
		t.logger.Error("Failed to discard malformed trigger", zap.Error(err))
	}
}

// Len returns the number of queued signals
func (t *RedisTrigger) Len(ctx context.Context) (int64, error) {
	return t.client.LLen(ctx, t.key).Result()
}

// Ping checks the Redis connection
func (t *RedisTrigger) Ping(ctx context.Context) error {
	if err := t.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Verify interface compliance
var (
	_ port.NextStepTrigger = (*RedisTrigger)(nil)
	_ port.TriggerConsumer = (*RedisTrigger)(nil)
)
