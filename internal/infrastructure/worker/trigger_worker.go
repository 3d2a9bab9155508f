package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/kyc-review/internal/application/port"
	"github.com/garyjia/kyc-review/internal/domain/event"
)

// Trigger outcomes
const (
	TriggerDispatched = "dispatched"
	TriggerFailed     = "failed"
)

// EventDispatcher delivers an event to its subscribers synchronously
type EventDispatcher interface {
	Dispatch(ctx context.Context, evt *event.Event) error
}

// TriggerRecorder counts consumed triggers
type TriggerRecorder interface {
	ObserveTrigger(outcome string)
}

// TriggerWorkerConfig holds configuration for the trigger worker
type TriggerWorkerConfig struct {
	ErrorBackoff time.Duration
	StopTimeout  time.Duration
}

// DefaultTriggerWorkerConfig returns default configuration
func DefaultTriggerWorkerConfig() TriggerWorkerConfig {
	return TriggerWorkerConfig{
		ErrorBackoff: time.Second,
		StopTimeout:  10 * time.Second,
	}
}

// TriggerWorker consumes next-step signals and republishes them as next_step.requested events
type TriggerWorker struct {
	config     TriggerWorkerConfig
	consumer   port.TriggerConsumer
	dispatcher EventDispatcher
	metrics    TriggerRecorder
	logger     *zap.Logger

	mu             sync.RWMutex
	cancel         context.CancelFunc
	done           chan struct{}
	isRunning      bool
	processedCount int
	failedCount    int
}

// NewTriggerWorker creates a new trigger worker. metrics may be nil.
func NewTriggerWorker(
	config TriggerWorkerConfig,
	consumer port.TriggerConsumer,
	dispatcher EventDispatcher,
	metrics TriggerRecorder,
	logger *zap.Logger,
) *TriggerWorker {
	if config.ErrorBackoff <= 0 {
		config.ErrorBackoff = DefaultTriggerWorkerConfig().ErrorBackoff
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = DefaultTriggerWorkerConfig().StopTimeout
	}
	return &TriggerWorker{
		config:     config,
		consumer:   consumer,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Start begins consuming in a background goroutine
func (w *TriggerWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("trigger worker already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("TriggerWorker started", zap.Duration("error_backoff", w.config.ErrorBackoff))

	go w.consumeLoop(runCtx, w.done)
	return nil
}

// Stop cancels the loop and waits for the in-flight message to finish
func (w *TriggerWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()

	select {
	case <-done:
	case <-time.After(w.config.StopTimeout):
		return fmt.Errorf("trigger worker did not stop within %s", w.config.StopTimeout)
	}

	processed, failed := w.Counts()
	w.logger.Info("TriggerWorker stopped",
		zap.Int("processed_count", processed),
		zap.Int("failed_count", failed))
	return nil
}

// Name returns the worker name for identification
func (w *TriggerWorker) Name() string {
	return "TriggerWorker"
}

// Counts returns how many triggers were dispatched and how many failed
func (w *TriggerWorker) Counts() (processed, failed int) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.processedCount, w.failedCount
}

func (w *TriggerWorker) consumeLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for ctx.Err() == nil {
		msg, err := w.consumer.Next(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			w.record(TriggerFailed)
			w.logger.Error("Failed to receive next-step trigger", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.config.ErrorBackoff):
			}
			continue
		}
		if msg == nil {
			continue
		}

		if !w.handle(ctx, msg) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.config.ErrorBackoff):
			}
		}
	}
}

// handle dispatches one message and acks it; a failed dispatch is nacked for redelivery
func (w *TriggerWorker) handle(ctx context.Context, msg *port.TriggerMessage) bool {
	evt := event.NewEvent(event.TypeNextStepRequested, msg.ApplicationID, "", map[string]interface{}{
		event.KeyToState: string(msg.State),
		"enqueued_at":    msg.EnqueuedAt,
	})

	if err := w.dispatcher.Dispatch(ctx, evt); err != nil {
		w.record(TriggerFailed)
		w.logger.Error("Failed to dispatch next-step event, requeueing",
			zap.String("application_id", msg.ApplicationID),
			zap.String("state", string(msg.State)),
			zap.Error(err))

		if nackErr := w.consumer.Nack(context.WithoutCancel(ctx), msg); nackErr != nil {
			w.logger.Error("Failed to requeue next-step trigger",
				zap.String("application_id", msg.ApplicationID),
				zap.Error(nackErr))
		}
		return false
	}

	if err := w.consumer.Ack(context.WithoutCancel(ctx), msg); err != nil {
		w.logger.Error("Failed to ack next-step trigger",
			zap.String("application_id", msg.ApplicationID),
			zap.Error(err))
	}

	w.record(TriggerDispatched)
	w.logger.Debug("Next-step event dispatched",
		zap.String("application_id", msg.ApplicationID),
		zap.String("state", string(msg.State)),
		zap.Duration("queue_latency", time.Since(time.Unix(msg.EnqueuedAt, 0))))
	return true
}

func (w *TriggerWorker) record(outcome string) {
	w.mu.Lock()
	if outcome == TriggerDispatched {
		w.processedCount++
	} else {
		w.failedCount++
	}
	w.mu.Unlock()

	if w.metrics != nil {
		w.metrics.ObserveTrigger(outcome)
	}
}
