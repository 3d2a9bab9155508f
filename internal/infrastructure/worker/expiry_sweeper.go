package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/kyc-review/internal/domain/entity"
)

// ExpiredLister lists open applications whose expiry has passed
type ExpiredLister interface {
	ListExpired(ctx context.Context, limit int) ([]*entity.Application, error)
}

// Expirer moves one application to EXPIRED
type Expirer interface {
	Expire(ctx context.Context, applicationID string) (*entity.Application, error)
}

// AuditPurger removes audit entries past retention
type AuditPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// SweepRecorder counts sweep results
type SweepRecorder interface {
	AddExpired(n int)
	AddAuditPurged(n int64)
}

// ExpirySweeperConfig holds configuration for the expiry sweeper
type ExpirySweeperConfig struct {
	Interval  time.Duration
	BatchSize int
}

// DefaultExpirySweeperConfig returns default configuration
func DefaultExpirySweeperConfig() ExpirySweeperConfig {
	return ExpirySweeperConfig{
		Interval:  time.Hour,
		BatchSize: 100,
	}
}

// ExpirySweeper periodically expires stale applications and purges old audit entries
type ExpirySweeper struct {
	config  ExpirySweeperConfig
	lister  ExpiredLister
	expirer Expirer
	purger  AuditPurger
	metrics SweepRecorder
	logger  *zap.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
}

// NewExpirySweeper creates a new expiry sweeper. purger and metrics may be nil.
func NewExpirySweeper(
	config ExpirySweeperConfig,
	lister ExpiredLister,
	expirer Expirer,
	purger AuditPurger,
	metrics SweepRecorder,
	logger *zap.Logger,
) *ExpirySweeper {
	def := DefaultExpirySweeperConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	return &ExpirySweeper{
		config:  config,
		lister:  lister,
		expirer: expirer,
		purger:  purger,
		metrics: metrics,
		logger:  logger,
	}
}

// Start runs one sweep immediately and then one per interval
func (s *ExpirySweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("expiry sweeper already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.isRunning = true
	s.mu.Unlock()

	s.logger.Info("ExpirySweeper started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("batch_size", s.config.BatchSize))

	go s.loop(runCtx, s.done)
	return nil
}

// Stop gracefully terminates the sweeper
func (s *ExpirySweeper) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.logger.Info("ExpirySweeper stopped")
	return nil
}

// Name returns the worker name for identification
func (s *ExpirySweeper) Name() string {
	return "ExpirySweeper"
}

func (s *ExpirySweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("Expiry sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep expires one batch of stale applications and purges audit entries past retention.
// A failure on one application is logged and does not stop the batch.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	apps, err := s.lister.ListExpired(ctx, s.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired applications: %w", err)
	}

	expired := 0
	for _, app := range apps {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.expirer.Expire(ctx, app.ID); err != nil {
			s.logger.Error("Failed to expire application",
				zap.String("application_id", app.ID),
				zap.String("state", string(app.State)),
				zap.Error(err))
			continue
		}
		expired++
	}

	if s.metrics != nil {
		s.metrics.AddExpired(expired)
	}
	if len(apps) > 0 {
		s.logger.Info("Expiry sweep completed",
			zap.Int("candidates", len(apps)),
			zap.Int("expired", expired))
	}

	if s.purger != nil {
		purged, err := s.purger.PurgeExpired(ctx)
		if err != nil {
			return expired, fmt.Errorf("failed to purge audit entries: %w", err)
		}
		if s.metrics != nil {
			s.metrics.AddAuditPurged(purged)
		}
	}

	return expired, nil
}
