package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/kyc-review/internal/domain/entity"
	"github.com/garyjia/kyc-review/internal/domain/scoring"
	domainwf "github.com/garyjia/kyc-review/internal/domain/workflow"
)

// Lifecycle drives a KYC application through the review workflow
type Lifecycle interface {
	// Advance moves the application to the automatically selected next state, if any
	Advance(ctx context.Context, applicationID string, results *scoring.ScorePayload) (*entity.Application, error)

	// Approve records a reviewer approval
	Approve(ctx context.Context, applicationID string, actor entity.Actor, notes string) (*entity.Application, error)

	// Reject records a reviewer rejection
	Reject(ctx context.Context, applicationID string, actor entity.Actor, reason, notes string) (*entity.Application, error)

	// Submit moves a draft into the pipeline
	Submit(ctx context.Context, applicationID string, actor entity.Actor) (*entity.Application, error)

	// Expire closes an application whose expiry has passed
	Expire(ctx context.Context, applicationID string) (*entity.Application, error)

	// NextStates returns the states the application could reach in one step
	NextStates(ctx context.Context, applicationID string) ([]domainwf.State, error)
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// WorkflowError reports a refused or failed lifecycle operation.
// Err is usually a *domainwf.TransitionError.
type WorkflowError struct {
	Op            string
	ApplicationID string
	From          domainwf.State
	To            domainwf.State
	Err           error
}

func (e *WorkflowError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("%s %s (state %s): %v", e.Op, e.ApplicationID, e.From, e.Err)
	}
	return fmt.Sprintf("%s %s (%s -> %s): %v", e.Op, e.ApplicationID, e.From, e.To, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}
