package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultThresholds(t *testing.T) {
	th := DefaultThresholds()

	assert.Equal(t, 0.95, th.AutoApprove, "AutoApprove should be 0.95")
	assert.Equal(t, 0.75, th.ManualReview, "ManualReview should be 0.75")
	assert.Equal(t, 0.50, th.Reject, "Reject should be 0.50")
	require.NoError(t, th.Validate())
}

func TestThresholds_Validate(t *testing.T) {
	tests := []struct {
		name          string
		th            Thresholds
		errorContains string
	}{
		{"auto too high", Thresholds{AutoApprove: 1.5, ManualReview: 0.75, Reject: 0.5}, "AutoApprove threshold must be between"},
		{"reject negative", Thresholds{AutoApprove: 0.95, ManualReview: 0.75, Reject: -0.1}, "Reject threshold must be between"},
		{"auto below review", Thresholds{AutoApprove: 0.7, ManualReview: 0.75, Reject: 0.5}, "AutoApprove must be greater than ManualReview"},
		{"review equals reject", Thresholds{AutoApprove: 0.95, ManualReview: 0.5, Reject: 0.5}, "ManualReview must be greater than Reject"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.th.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestThresholds_Route(t *testing.T) {
	th := DefaultThresholds()

	assert.Equal(t, DecisionAutoApprove, th.Route(0.96))
	assert.Equal(t, DecisionAutoApprove, th.Route(0.95))
	assert.Equal(t, DecisionManualReview, th.Route(0.80))
	assert.Equal(t, DecisionManualReview, th.Route(0.75))
	assert.Equal(t, DecisionReject, th.Route(0.74))
	assert.Equal(t, DecisionReject, th.Route(0.40))
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		scores   StageScores
		expected float64
	}{
		{"none present", StageScores{}, 0},
		{"document only renormalises", StageScores{Document: Score(0.8)}, 0.8},
		{"document and face", StageScores{Document: Score(0.8), Face: Score(0.6)}, 0.7},
		{"all three", StageScores{Document: Score(1), Face: Score(0.5), Fraud: Score(0.5)}, 0.7},
		{"fraud only", StageScores{Fraud: Score(0.3)}, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Aggregate(tt.scores), 1e-9)
		})
	}
}

func TestTierFor(t *testing.T) {
	assert.Equal(t, RiskLow, TierFor(0.90))
	assert.Equal(t, RiskMedium, TierFor(0.89))
	assert.Equal(t, RiskMedium, TierFor(0.75))
	assert.Equal(t, RiskHigh, TierFor(0.5))
	assert.Equal(t, RiskCritical, TierFor(0.49))
	assert.Equal(t, RiskCritical, TierFor(0))
}

func TestScorePayload_Resolve(t *testing.T) {
	t.Run("explicit overall wins over stored and sub-scores", func(t *testing.T) {
		p := &ScorePayload{Overall: Score(0.96), Document: Score(0.1)}
		r := p.Resolve(StageScores{Document: Score(0.2), Face: Score(0.2)})
		assert.Equal(t, 0.96, r.Overall)
		assert.Equal(t, 0.1, *r.Document)
		assert.Equal(t, 0.2, *r.Face)
	})

	t.Run("aggregates payload with stored fallback", func(t *testing.T) {
		p := &ScorePayload{Face: Score(0.6)}
		r := p.Resolve(StageScores{Document: Score(0.8)})
		assert.InDelta(t, 0.7, r.Overall, 1e-9)
		assert.Nil(t, r.Fraud)
	})

	t.Run("clamps out of range values", func(t *testing.T) {
		p := &ScorePayload{Overall: Score(1.4)}
		assert.Equal(t, 1.0, p.Resolve(StageScores{}).Overall)
	})
}

func TestFraudScore(t *testing.T) {
	assert.Equal(t, 1.0, FraudScore(FraudIndicators{}))
	assert.Equal(t, 1.0, FraudScore(FraudIndicators{ApplicationsFromIP: FraudIPLimit}))
	assert.InDelta(t, 0.7, FraudScore(FraudIndicators{ApplicationsFromIP: FraudIPLimit + 1}), 1e-9)
}
