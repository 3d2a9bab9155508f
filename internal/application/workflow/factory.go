package workflow

import (
	"fmt"
	"time"

	"github.com/garyjia/kyc-review/internal/application/port"
	"github.com/garyjia/kyc-review/internal/domain/scoring"
	domainwf "github.com/garyjia/kyc-review/internal/domain/workflow"
)

// Settings are the injected workflow parameters
type Settings struct {
	Thresholds        scoring.Thresholds
	RequiredDocuments []string
	MaxRetries        int
	Clock             func() time.Time
}

// BuildEngine validates the KYC transition table and wraps it in an engine.
// A malformed table is a startup error.
func BuildEngine() (*domainwf.Engine, error) {
	catalog, err := domainwf.DefaultCatalog()
	if err != nil {
		return nil, err
	}
	return domainwf.NewEngine(catalog), nil
}

// BuildLifecycle wires the default engine and an evaluator into a coordinator
func BuildLifecycle(
	settings Settings,
	repo port.ApplicationRepository,
	audit port.AuditSink,
	txManager port.TransactionManager,
	logger Logger,
	opts ...CoordinatorOption,
) (*Coordinator, error) {
	if err := settings.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workflow thresholds: %w", err)
	}

	engine, err := BuildEngine()
	if err != nil {
		return nil, err
	}

	clock := settings.Clock
	if clock == nil {
		clock = time.Now
	}

	evaluator := NewEvaluator(settings.Thresholds, settings.RequiredDocuments, clock)

	base := []CoordinatorOption{WithClock(clock)}
	if settings.MaxRetries > 0 {
		base = append(base, WithMaxRetries(settings.MaxRetries))
	}
	return NewCoordinator(engine, evaluator, repo, audit, txManager, logger, append(base, opts...)...), nil
}
