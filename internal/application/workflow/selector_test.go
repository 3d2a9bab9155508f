package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyjia/kyc-review/internal/domain/entity"
	"github.com/garyjia/kyc-review/internal/domain/scoring"
	domainwf "github.com/garyjia/kyc-review/internal/domain/workflow"
)

func TestSelectNextState(t *testing.T) {
	th := scoring.DefaultThresholds()
	resolved := func(doc *float64, overall float64) *scoring.Resolved {
		return &scoring.Resolved{Document: doc, Overall: overall}
	}

	tests := []struct {
		name     string
		state    domainwf.State
		noDocs   bool
		resolved *scoring.Resolved
		want     domainwf.State
	}{
		{"draft waits for submit", domainwf.StateDraft, false, resolved(nil, 1), domainwf.StateDraft},
		{"submitted with documents", domainwf.StateSubmitted, false, nil, domainwf.StateDocumentVerification},
		{"submitted without documents", domainwf.StateSubmitted, true, nil, domainwf.StateSubmitted},
		{"doc stage without results", domainwf.StateDocumentVerification, false, nil, domainwf.StateDocumentVerification},
		{"doc stage without document score", domainwf.StateDocumentVerification, false, resolved(nil, 0.9), domainwf.StateManualReview},
		{"doc score gates over overall", domainwf.StateDocumentVerification, false, resolved(scoring.Score(0.6), 0.9), domainwf.StateManualReview},
		{"doc score high", domainwf.StateDocumentVerification, false, resolved(scoring.Score(0.8), 0.8), domainwf.StateFaceVerification},
		{"doc score at threshold", domainwf.StateDocumentVerification, false, resolved(scoring.Score(0.75), 0.75), domainwf.StateFaceVerification},
		{"doc score low", domainwf.StateDocumentVerification, false, resolved(scoring.Score(0.6), 0.6), domainwf.StateManualReview},
		{"face without results", domainwf.StateFaceVerification, false, nil, domainwf.StateFaceVerification},
		{"face auto approve", domainwf.StateFaceVerification, false, resolved(nil, 0.96), domainwf.StateApproved},
		{"face manual review", domainwf.StateFaceVerification, false, resolved(nil, 0.80), domainwf.StateManualReview},
		{"face reject", domainwf.StateFaceVerification, false, resolved(nil, 0.40), domainwf.StateRejected},
		{"manual review stays", domainwf.StateManualReview, false, resolved(nil, 0.99), domainwf.StateManualReview},
		{"approved stays", domainwf.StateApproved, false, resolved(nil, 0.1), domainwf.StateApproved},
		{"rejected stays", domainwf.StateRejected, false, resolved(nil, 0.99), domainwf.StateRejected},
		{"expired stays", domainwf.StateExpired, false, nil, domainwf.StateExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &entity.Application{State: tt.state}
			if !tt.noDocs {
				app.Documents = []entity.Document{{Type: entity.DocumentTypeCINFront}}
			}
			assert.Equal(t, tt.want, selectNextState(app, tt.resolved, th))
		})
	}
}
