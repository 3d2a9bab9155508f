package workflow

import (
	"github.com/garyjia/kyc-review/internal/domain/entity"
	"github.com/garyjia/kyc-review/internal/domain/scoring"
	domainwf "github.com/garyjia/kyc-review/internal/domain/workflow"
)

// selectNextState picks the single automatic successor of the application's state.
// Returning the current state means there is nothing to do.
func selectNextState(app *entity.Application, resolved *scoring.Resolved, th scoring.Thresholds) domainwf.State {
	switch app.State {
	case domainwf.StateSubmitted:
		if len(app.Documents) > 0 {
			return domainwf.StateDocumentVerification
		}

	case domainwf.StateDocumentVerification:
		if resolved == nil {
			break
		}
		if gatingScore(app.State, *resolved) >= th.ManualReview {
			return domainwf.StateFaceVerification
		}
		return domainwf.StateManualReview

	case domainwf.StateFaceVerification:
		if resolved == nil {
			break
		}
		switch th.Route(resolved.Overall) {
		case scoring.DecisionAutoApprove:
			return domainwf.StateApproved
		case scoring.DecisionManualReview:
			return domainwf.StateManualReview
		default:
			return domainwf.StateRejected
		}
	}

	// DRAFT waits for Submit, MANUAL_REVIEW for a reviewer, terminal states never move
	return app.State
}

// gatingScore is the score a stage routes on. Document verification gates on
// the document score alone, a missing one counting as zero.
func gatingScore(state domainwf.State, r scoring.Resolved) float64 {
	if state != domainwf.StateDocumentVerification {
		return r.Overall
	}
	if r.Document == nil {
		return 0
	}
	return *r.Document
}
