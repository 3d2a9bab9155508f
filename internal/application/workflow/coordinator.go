package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/kyc-review/internal/application/port"
	"github.com/garyjia/kyc-review/internal/domain/entity"
	"github.com/garyjia/kyc-review/internal/domain/event"
	"github.com/garyjia/kyc-review/internal/domain/scoring"
	domainwf "github.com/garyjia/kyc-review/internal/domain/workflow"
)

// DefaultMaxRetries bounds how often a lost compare-and-swap is retried
const DefaultMaxRetries = 3

// DefaultTriggerTimeout bounds one post-commit next-step notification
const DefaultTriggerTimeout = 5 * time.Second

// Metric outcomes
const (
	OutcomeCommitted = "committed"
	OutcomeRefused   = "refused"
	OutcomeFailed    = "failed"
)

// Operation names carried by WorkflowError
const (
	OpAdvance = "advance"
	OpApprove = "approve"
	OpReject  = "reject"
	OpSubmit  = "submit"
	OpExpire  = "expire"
)

var _ Lifecycle = (*Coordinator)(nil)

// Coordinator applies engine-validated transitions to stored applications.
// Each transition is a read, decide and compare-and-swap inside one transaction,
// with the audit entry written in the same transaction.
type Coordinator struct {
	engine    *domainwf.Engine
	evaluator *Evaluator
	repo      port.ApplicationRepository
	audit     port.AuditSink
	txManager port.TransactionManager
	logger    Logger

	trigger    port.NextStepTrigger
	publisher  port.EventPublisher
	metrics    port.TransitionMetrics
	now        func() time.Time
	maxRetries int

	triggerTimeout time.Duration
	pending        sync.WaitGroup
}

// CoordinatorOption configures the coordinator
type CoordinatorOption func(*Coordinator)

// WithTrigger sets the collaborator signalled after each committed transition
func WithTrigger(t port.NextStepTrigger) CoordinatorOption {
	return func(c *Coordinator) {
		c.trigger = t
	}
}

// WithDispatcher sets the publisher for post-commit domain events
func WithDispatcher(p port.EventPublisher) CoordinatorOption {
	return func(c *Coordinator) {
		c.publisher = p
	}
}

// WithMetrics sets the transition metrics recorder
func WithMetrics(m port.TransitionMetrics) CoordinatorOption {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithTriggerTimeout bounds how long a background next-step notification may take
func WithTriggerTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.triggerTimeout = d
		}
	}
}

// WithClock overrides the clock used for timestamps
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		c.now = now
	}
}

// WithMaxRetries sets how many times a version conflict is retried
func WithMaxRetries(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// NewCoordinator creates a new lifecycle coordinator
func NewCoordinator(
	engine *domainwf.Engine,
	evaluator *Evaluator,
	repo port.ApplicationRepository,
	audit port.AuditSink,
	txManager port.TransactionManager,
	logger Logger,
	opts ...CoordinatorOption,
) *Coordinator {
	c := &Coordinator{
		engine:     engine,
		evaluator:  evaluator,
		repo:       repo,
		audit:      audit,
		txManager:  txManager,
		logger:     logger,
		now:        time.Now,
		maxRetries: DefaultMaxRetries,

		triggerTimeout: DefaultTriggerTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// plan is a validated intent to move an application to a new state
type plan struct {
	to          domainwf.State
	role        domainwf.Role
	conds       domainwf.Conditions
	actor       entity.Actor
	action      string
	description string
	metadata    map[string]string
	apply       func(app *entity.Application, now time.Time)
}

// planner inspects the freshly loaded application and returns nil for a no-op
type planner func(app *entity.Application) (*plan, error)

// committed captures what happened so post-commit signals can be sent
type committed struct {
	from domainwf.State
	plan *plan
}

// Advance moves the application to its automatically selected next state
func (c *Coordinator) Advance(ctx context.Context, applicationID string, results *scoring.ScorePayload) (*entity.Application, error) {
	return c.run(ctx, OpAdvance, applicationID, func(app *entity.Application) (*plan, error) {
		if app.State.IsTerminal() {
			return nil, nil
		}

		var resolved *scoring.Resolved
		if results != nil {
			r := results.Resolve(app.StageScores())
			resolved = &r
		}

		th := c.evaluator.Thresholds()
		next := selectNextState(app, resolved, th)
		if next == app.State {
			return nil, nil
		}

		p := &plan{
			to:          next,
			role:        domainwf.RoleSystem,
			conds:       c.evaluator.Evaluate(app, results),
			actor:       entity.SystemActor,
			action:      entity.AuditActionWorkflowTransition,
			description: fmt.Sprintf("Workflow transition %s -> %s", app.State, next),
			metadata:    map[string]string{},
		}

		p.apply = func(a *entity.Application, now time.Time) {
			if resolved == nil {
				return
			}
			a.DocumentScore = resolved.Document
			a.FaceScore = resolved.Face
			a.FraudScore = resolved.Fraud
			overall := resolved.Overall
			a.OverallScore = &overall
			a.RiskLevel = scoring.TierFor(overall)

			if next == domainwf.StateApproved || next == domainwf.StateRejected {
				a.DecisionMadeAt = &now
				a.DecisionReason = autoDecisionReason(next, overall, th)
			}
		}

		if resolved != nil {
			p.metadata["overall_score"] = fmt.Sprintf("%.4f", resolved.Overall)
			p.metadata["risk_level"] = string(scoring.TierFor(resolved.Overall))
		}

		return p, nil
	})
}

// Approve records a reviewer approval out of MANUAL_REVIEW
func (c *Coordinator) Approve(ctx context.Context, applicationID string, actor entity.Actor, notes string) (*entity.Application, error) {
	return c.run(ctx, OpApprove, applicationID, func(app *entity.Application) (*plan, error) {
		if app.State.IsTerminal() {
			return nil, alreadyTerminal(app.State, domainwf.StateApproved)
		}

		return &plan{
			to:          domainwf.StateApproved,
			role:        actor.Role,
			conds:       c.evaluator.Evaluate(app, nil).With(domainwf.CondAgentApproved, true),
			actor:       actor,
			action:      entity.AuditActionApprove,
			description: fmt.Sprintf("Application approved by %s", actor.Username),
			metadata:    map[string]string{"notes": notes},
			apply: func(a *entity.Application, now time.Time) {
				a.ReviewedByID = actor.ID
				a.ReviewNotes = notes
				a.ReviewedAt = &now
				a.DecisionMadeAt = &now
				a.DecisionReason = "approved by reviewer"
			},
		}, nil
	})
}

// Reject records a reviewer rejection out of MANUAL_REVIEW
func (c *Coordinator) Reject(ctx context.Context, applicationID string, actor entity.Actor, reason, notes string) (*entity.Application, error) {
	return c.run(ctx, OpReject, applicationID, func(app *entity.Application) (*plan, error) {
		if app.State.IsTerminal() {
			return nil, alreadyTerminal(app.State, domainwf.StateRejected)
		}

		return &plan{
			to:          domainwf.StateRejected,
			role:        actor.Role,
			conds:       c.evaluator.Evaluate(app, nil).With(domainwf.CondAgentRejected, true),
			actor:       actor,
			action:      entity.AuditActionReject,
			description: fmt.Sprintf("Application rejected by %s: %s", actor.Username, reason),
			metadata:    map[string]string{"reason": reason, "notes": notes},
			apply: func(a *entity.Application, now time.Time) {
				a.ReviewedByID = actor.ID
				a.ReviewNotes = notes
				a.ReviewedAt = &now
				a.DecisionMadeAt = &now
				a.DecisionReason = reason
			},
		}, nil
	})
}

// Submit moves a DRAFT application to SUBMITTED on behalf of actor
func (c *Coordinator) Submit(ctx context.Context, applicationID string, actor entity.Actor) (*entity.Application, error) {
	return c.run(ctx, OpSubmit, applicationID, func(app *entity.Application) (*plan, error) {
		if app.State.IsTerminal() {
			return nil, alreadyTerminal(app.State, domainwf.StateSubmitted)
		}

		return &plan{
			to:          domainwf.StateSubmitted,
			role:        actor.Role,
			conds:       c.evaluator.Evaluate(app, nil),
			actor:       actor,
			action:      entity.AuditActionSubmit,
			description: "Application submitted for verification",
			apply: func(a *entity.Application, now time.Time) {
				a.SubmittedAt = &now
			},
		}, nil
	})
}

// Expire closes an application whose expiry has passed. Terminal applications are left alone.
func (c *Coordinator) Expire(ctx context.Context, applicationID string) (*entity.Application, error) {
	return c.run(ctx, OpExpire, applicationID, func(app *entity.Application) (*plan, error) {
		if app.State.IsTerminal() {
			return nil, nil
		}

		return &plan{
			to:          domainwf.StateExpired,
			role:        domainwf.RoleSystem,
			conds:       c.evaluator.Evaluate(app, nil),
			actor:       entity.SystemActor,
			action:      entity.AuditActionExpire,
			description: "Application expired",
			apply: func(a *entity.Application, now time.Time) {
				a.DecisionMadeAt = &now
				a.DecisionReason = "application expired"
			},
		}, nil
	})
}

// NextStates returns the catalog successors of the application's current state
func (c *Coordinator) NextStates(ctx context.Context, applicationID string) ([]domainwf.State, error) {
	app, err := c.repo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load application %s: %w", applicationID, err)
	}
	return c.engine.NextStates(app.State), nil
}

// Engine returns the transition engine the coordinator validates against
func (c *Coordinator) Engine() *domainwf.Engine {
	return c.engine
}

// run executes one planned transition with optimistic retry on version conflicts
func (c *Coordinator) run(ctx context.Context, op, applicationID string, decide planner) (*entity.Application, error) {
	for attempt := 0; ; attempt++ {
		var (
			result   *entity.Application
			done     *committed
			from, to domainwf.State
		)

		err := c.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			app, err := c.repo.GetByID(txCtx, applicationID)
			if err != nil {
				return fmt.Errorf("failed to load application %s: %w", applicationID, err)
			}

			p, err := decide(app)
			if err != nil {
				return &WorkflowError{Op: op, ApplicationID: applicationID, From: app.State, To: targetOf(err), Err: err}
			}
			if p == nil {
				result = app
				return nil
			}
			from, to = app.State, p.to

			if ok, err := c.engine.CanTransition(app.State, p.to, p.conds, p.role); !ok {
				return &WorkflowError{Op: op, ApplicationID: applicationID, From: app.State, To: p.to, Err: err}
			}

			now := c.now()
			next := app.Clone()
			p.apply(next, now)
			next.State = p.to
			next.UpdatedAt = now

			if err := c.repo.CompareAndSwap(txCtx, next, app.Version); err != nil {
				return err
			}

			if err := c.audit.Record(txCtx, c.auditEntry(app, p, now)); err != nil {
				return fmt.Errorf("failed to record audit entry: %w", err)
			}

			result = next
			done = &committed{from: app.State, plan: p}
			return nil
		})

		if err == nil {
			if done != nil {
				c.afterCommit(ctx, result, done)
			}
			return result, nil
		}

		if errors.Is(err, port.ErrVersionConflict) {
			if c.metrics != nil {
				c.metrics.ObserveConflict()
			}
			if attempt < c.maxRetries {
				c.logger.Info("Version conflict, retrying transition",
					"op", op,
					"application_id", applicationID,
					"attempt", attempt+1,
				)
				continue
			}
			return nil, &WorkflowError{Op: op, ApplicationID: applicationID, Err: err}
		}

		var wfErr *WorkflowError
		if errors.As(err, &wfErr) {
			c.observe(wfErr.From, wfErr.To, OutcomeRefused)
			c.logger.Info("Transition refused",
				"op", op,
				"application_id", applicationID,
				"from", wfErr.From,
				"to", wfErr.To,
				"reason", wfErr.Err,
			)
			return nil, err
		}

		c.observe(from, to, OutcomeFailed)
		c.logger.Error("Transition failed",
			"op", op,
			"application_id", applicationID,
			"from", from,
			"to", to,
			"error", err,
		)
		return nil, err
	}
}

func (c *Coordinator) auditEntry(app *entity.Application, p *plan, now time.Time) *entity.AuditEntry {
	meta := make(map[string]string, len(p.metadata)+2)
	for k, v := range p.metadata {
		if v != "" {
			meta[k] = v
		}
	}
	meta["old_status"] = string(app.State)
	meta["new_status"] = string(p.to)

	return &entity.AuditEntry{
		ID:            uuid.NewString(),
		ActorID:       p.actor.ID,
		ActorUsername: p.actor.Username,
		ActorRole:     p.actor.Role,
		IPAddress:     p.actor.IPAddress,
		Action:        p.action,
		Resource:      entity.ResourceKYCApplication,
		ResourceID:    app.ID,
		ApplicationID: app.ID,
		Description:   p.description,
		FromState:     app.State,
		ToState:       p.to,
		Metadata:      meta,
		Timestamp:     now,
	}
}

// afterCommit sends best-effort signals. Failures are logged and never undo the transition.
func (c *Coordinator) afterCommit(ctx context.Context, app *entity.Application, done *committed) {
	c.observe(done.from, app.State, OutcomeCommitted)

	c.logger.Info("Application transitioned",
		"application_id", app.ID,
		"application_number", app.ApplicationNumber,
		"from", done.from,
		"to", app.State,
		"actor", done.plan.actor.ID,
	)

	if c.publisher != nil {
		payload := map[string]interface{}{
			event.KeyFromState: string(done.from),
			event.KeyToState:   string(app.State),
			event.KeyActorID:   done.plan.actor.ID,
			event.KeyActorRole: string(done.plan.actor.Role),
		}
		if app.OverallScore != nil {
			payload[event.KeyOverall] = *app.OverallScore
			payload[event.KeyRiskLevel] = string(app.RiskLevel)
		}
		if app.DecisionReason != "" {
			payload[event.KeyReason] = app.DecisionReason
		}
		c.publisher.DispatchAsync(ctx, event.NewEvent(eventTypeFor(app.State), app.ID, app.ApplicationNumber, payload))
	}

	if c.trigger != nil {
		c.pending.Add(1)
		go c.notify(context.WithoutCancel(ctx), app.ID, app.State)
	}
}

// notify signals the next step off the caller's path, detached from its cancellation
func (c *Coordinator) notify(ctx context.Context, applicationID string, state domainwf.State) {
	defer c.pending.Done()

	ctx, cancel := context.WithTimeout(ctx, c.triggerTimeout)
	defer cancel()

	if err := c.trigger.Notify(ctx, applicationID, state); err != nil {
		c.logger.Error("Next-step trigger failed",
			"application_id", applicationID,
			"state", state,
			"error", err,
		)
	}
}

// Wait blocks until in-flight next-step notifications have finished
func (c *Coordinator) Wait() {
	c.pending.Wait()
}

func (c *Coordinator) observe(from, to domainwf.State, outcome string) {
	if c.metrics != nil {
		c.metrics.ObserveTransition(from, to, outcome)
	}
}

func eventTypeFor(s domainwf.State) event.Type {
	switch s {
	case domainwf.StateSubmitted:
		return event.TypeApplicationSubmitted
	case domainwf.StateApproved:
		return event.TypeApplicationApproved
	case domainwf.StateRejected:
		return event.TypeApplicationRejected
	case domainwf.StateExpired:
		return event.TypeApplicationExpired
	default:
		return event.TypeApplicationTransitioned
	}
}

func alreadyTerminal(from, to domainwf.State) error {
	return &domainwf.TransitionError{Kind: domainwf.ErrAlreadyTerminal, From: from, To: to}
}

func targetOf(err error) domainwf.State {
	var te *domainwf.TransitionError
	if errors.As(err, &te) {
		return te.To
	}
	return ""
}

func autoDecisionReason(to domainwf.State, overall float64, th scoring.Thresholds) string {
	if to == domainwf.StateApproved {
		return fmt.Sprintf("auto-approved: overall score %.2f >= %.2f", overall, th.AutoApprove)
	}
	return fmt.Sprintf("auto-rejected: overall score %.2f below %.2f", overall, th.ManualReview)
}
