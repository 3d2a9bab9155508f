package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTransitionDefined is returned when the catalog has no (from, to) entry
	ErrNoTransitionDefined = errors.New("no transition defined")

	// ErrRolePermissionDenied is returned when the actor role may not trigger the transition
	ErrRolePermissionDenied = errors.New("role not permitted")

	// ErrConditionNotMet is returned when a required condition is absent or false
	ErrConditionNotMet = errors.New("required condition not met")

	// ErrAlreadyTerminal is returned when a transition is attempted from a terminal state
	ErrAlreadyTerminal = errors.New("application already in terminal state")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrCatalogConfig is returned when the transition catalog is malformed
	ErrCatalogConfig = errors.New("invalid transition catalog")
)

// TransitionError explains why a transition was refused.
// It unwraps to one of the sentinel errors above.
type TransitionError struct {
	Kind      error
	From      State
	To        State
	Role      Role
	Condition Condition
}

func (e *TransitionError) Error() string {
	switch e.Kind {
	case ErrNoTransitionDefined:
		return fmt.Sprintf("%s from %s to %s", e.Kind, e.From, e.To)
	case ErrRolePermissionDenied:
		return fmt.Sprintf("%s: role %s for %s -> %s", e.Kind, e.Role, e.From, e.To)
	case ErrConditionNotMet:
		return fmt.Sprintf("%s: %s", e.Kind, e.Condition)
	case ErrAlreadyTerminal:
		return fmt.Sprintf("%s: %s", e.Kind, e.From)
	case ErrInvalidState:
		return fmt.Sprintf("%s: %q", e.Kind, string(e.From))
	default:
		return fmt.Sprintf("%v: %s -> %s", e.Kind, e.From, e.To)
	}
}

func (e *TransitionError) Unwrap() error {
	return e.Kind
}

// Reason returns the refusal text surfaced to callers
func (e *TransitionError) Reason() string {
	return e.Error()
}
