package dispatcher

import (
	"context"

	"github.com/garyjia/kyc-review/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}

// LogHandler returns a handler that only logs the event, useful as a default subscriber
func LogHandler(logger Logger) Handler {
	return func(ctx context.Context, evt *event.Event) error {
		logger.Info("Domain event",
			"event_type", evt.Type,
			"event_id", evt.ID,
			"application_id", evt.ApplicationID,
			"correlation_id", evt.CorrelationID,
		)
		return nil
	}
}
