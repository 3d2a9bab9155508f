package scoring

import "time"

const (
	// FraudWindow is the look-back period for per-IP application counts
	FraudWindow = 7 * 24 * time.Hour

	// FraudIPLimit is the number of applications from one IP tolerated in FraudWindow
	FraudIPLimit = 5

	fraudIPPenalty = 0.3
)

// FraudIndicators are the signals collected about an application's origin
type FraudIndicators struct {
	ApplicationsFromIP int
}

// FraudScore starts from full trust and subtracts a penalty per indicator.
// 1.0 means no fraud signal, the result never drops below 0.
func FraudScore(ind FraudIndicators) float64 {
	score := 1.0
	if ind.ApplicationsFromIP > FraudIPLimit {
		score -= fraudIPPenalty
	}
	if score < 0 {
		return 0
	}
	return score
}
