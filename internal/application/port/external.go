package port

import (
	"context"
	"io"

	"github.com/garyjia/kyc-review/internal/domain/entity"
	"github.com/garyjia/kyc-review/internal/domain/event"
	"github.com/garyjia/kyc-review/internal/domain/workflow"
)

// AuditSink durably records audit entries. Called inside the transition transaction.
type AuditSink interface {
	Record(ctx context.Context, entry *entity.AuditEntry) error
}

// NextStepTrigger is signalled after every committed transition.
// Delivery is best effort and at least once.
type NextStepTrigger interface {
	Notify(ctx context.Context, applicationID string, state workflow.State) error
}

// TriggerMessage is one queued next-step signal
type TriggerMessage struct {
	ApplicationID string         `json:"application_id"`
	State         workflow.State `json:"state"`
	EnqueuedAt    int64          `json:"enqueued_at"`

	// Raw is the payload as stored by the queue, used to acknowledge it
	Raw string `json:"-"`
}

// TriggerConsumer pulls queued next-step signals with at-least-once delivery.
// A message returned by Next stays in flight until it is acked or nacked.
type TriggerConsumer interface {
	// Next blocks until a message is available, ctx is done, or the poll window elapses.
	// A nil message with nil error means the window elapsed.
	Next(ctx context.Context) (*TriggerMessage, error)

	// Ack removes a handled message from the in-flight list
	Ack(ctx context.Context, msg *TriggerMessage) error

	// Nack returns an unhandled message to the queue for redelivery
	Nack(ctx context.Context, msg *TriggerMessage) error
}

// EventPublisher publishes domain events to in-process subscribers
type EventPublisher interface {
	DispatchAsync(ctx context.Context, evt *event.Event)
}

// TransitionMetrics records workflow outcomes
type TransitionMetrics interface {
	ObserveTransition(from, to workflow.State, outcome string)
	ObserveConflict()
}

// AuditExporter writes an application's audit trail in a portable format
type AuditExporter interface {
	Export(w io.Writer, app *entity.Application, entries []*entity.AuditEntry) error
}
