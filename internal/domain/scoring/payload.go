package scoring

// ScorePayload carries the scores produced by verification collaborators.
// Nil fields mean the score was not supplied.
type ScorePayload struct {
	Document *float64 `json:"document_score,omitempty"`
	Face     *float64 `json:"face_score,omitempty"`
	Fraud    *float64 `json:"fraud_score,omitempty"`
	Overall  *float64 `json:"overall_score,omitempty"`
}

// Score returns a pointer to v, for building payloads inline
func Score(v float64) *float64 {
	return &v
}

// Resolved is a payload whose overall score has been settled
type Resolved struct {
	Document *float64
	Face     *float64
	Fraud    *float64
	Overall  float64
}

// Resolve settles the overall score for a payload. An explicit Overall wins.
// Otherwise each missing sub-score falls back to stored, then the weighted
// aggregate is computed over whatever is present.
func (p *ScorePayload) Resolve(stored StageScores) Resolved {
	r := Resolved{
		Document: firstNonNil(p.Document, stored.Document),
		Face:     firstNonNil(p.Face, stored.Face),
		Fraud:    firstNonNil(p.Fraud, stored.Fraud),
	}

	if p.Overall != nil {
		r.Overall = clamp(*p.Overall)
		return r
	}

	r.Overall = Aggregate(StageScores{Document: r.Document, Face: r.Face, Fraud: r.Fraud})
	return r
}

// StageScores are per-stage scores already recorded on an application
type StageScores struct {
	Document *float64
	Face     *float64
	Fraud    *float64
}

func firstNonNil(a, b *float64) *float64 {
	if a != nil {
		v := clamp(*a)
		return &v
	}
	if b != nil {
		v := *b
		return &v
	}
	return nil
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
