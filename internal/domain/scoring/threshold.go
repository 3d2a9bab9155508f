package scoring

import "fmt"

// Thresholds defines the decision boundaries applied to confidence scores
type Thresholds struct {
	AutoApprove  float64 // Default: 0.95 - approve without a reviewer
	ManualReview float64 // Default: 0.75 - at or above goes to a reviewer, below is low confidence
	Reject       float64 // Default: 0.50 - below counts as a failed verification
}

// DefaultThresholds returns the default threshold configuration
func DefaultThresholds() Thresholds {
	return Thresholds{
		AutoApprove:  0.95,
		ManualReview: 0.75,
		Reject:       0.50,
	}
}

// Validate ensures threshold values are within [0, 1] and strictly ordered
func (t Thresholds) Validate() error {
	for name, v := range map[string]float64{
		"AutoApprove":  t.AutoApprove,
		"ManualReview": t.ManualReview,
		"Reject":       t.Reject,
	} {
		if v < 0.0 || v > 1.0 {
			return fmt.Errorf("%s threshold must be between 0.0 and 1.0, got %.2f", name, v)
		}
	}

	if t.AutoApprove <= t.ManualReview {
		return fmt.Errorf("AutoApprove must be greater than ManualReview (auto: %.2f, review: %.2f)", t.AutoApprove, t.ManualReview)
	}

	if t.ManualReview <= t.Reject {
		return fmt.Errorf("ManualReview must be greater than Reject (review: %.2f, reject: %.2f)", t.ManualReview, t.Reject)
	}

	return nil
}

// Decision is the routing outcome for an overall confidence score
type Decision string

const (
	DecisionAutoApprove  Decision = "AUTO_APPROVE"
	DecisionManualReview Decision = "MANUAL_REVIEW"
	DecisionReject       Decision = "REJECT"
)

// Route assigns a routing decision: at or above AutoApprove approves, at or above
// ManualReview goes to a reviewer, anything lower is rejected.
func (t Thresholds) Route(overall float64) Decision {
	switch {
	case overall >= t.AutoApprove:
		return DecisionAutoApprove
	case overall >= t.ManualReview:
		return DecisionManualReview
	default:
		return DecisionReject
	}
}
