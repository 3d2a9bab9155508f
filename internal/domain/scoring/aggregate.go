package scoring

const (
	WeightDocument = 0.4
	WeightFace     = 0.4
	WeightFraud    = 0.2
)

// Aggregate computes the weighted overall score, renormalised over the
// sub-scores actually present. No sub-scores yields 0.
func Aggregate(s StageScores) float64 {
	var sum, weights float64

	if s.Document != nil {
		sum += *s.Document * WeightDocument
		weights += WeightDocument
	}
	if s.Face != nil {
		sum += *s.Face * WeightFace
		weights += WeightFace
	}
	if s.Fraud != nil {
		sum += *s.Fraud * WeightFraud
		weights += WeightFraud
	}

	if weights == 0 {
		return 0
	}
	return sum / weights
}

// RiskLevel is the tier derived from an overall score
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// TierFor maps an overall score onto a risk tier
func TierFor(overall float64) RiskLevel {
	switch {
	case overall >= 0.90:
		return RiskLow
	case overall >= 0.75:
		return RiskMedium
	case overall >= 0.50:
		return RiskHigh
	default:
		return RiskCritical
	}
}
