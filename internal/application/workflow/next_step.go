package workflow

import (
	"context"

	"github.com/garyjia/kyc-review/internal/application/dispatcher"
	"github.com/garyjia/kyc-review/internal/domain/event"
	domainwf "github.com/garyjia/kyc-review/internal/domain/workflow"
)

// Downstream steps requested after a state is entered
const (
	StepDocumentVerification = "document_verification"
	StepFaceVerification     = "face_verification"
	StepReviewerAssignment   = "reviewer_assignment"
	StepDecisionNotification = "decision_notification"
)

// NextStepFor returns the downstream step owed to an application that just entered state.
// DRAFT owes nothing.
func NextStepFor(state domainwf.State) string {
	switch state {
	case domainwf.StateSubmitted, domainwf.StateDocumentVerification:
		return StepDocumentVerification
	case domainwf.StateFaceVerification:
		return StepFaceVerification
	case domainwf.StateManualReview:
		return StepReviewerAssignment
	case domainwf.StateApproved, domainwf.StateRejected, domainwf.StateExpired:
		return StepDecisionNotification
	default:
		return ""
	}
}

// NextStepHandler handles next_step.requested events by logging the step each one asks for.
// The scoring and notification services that perform the steps live outside this process.
func NextStepHandler(logger Logger) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		state := domainwf.State(evt.GetPayloadString(event.KeyToState))
		step := NextStepFor(state)
		if step == "" {
			return nil
		}
		logger.Info("Next step requested",
			"application_id", evt.ApplicationID,
			"state", state,
			"step", step,
			"event_id", evt.ID)
		return nil
	}
}
