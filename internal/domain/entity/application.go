package entity

import (
	"time"

	"github.com/garyjia/kyc-review/internal/domain/scoring"
	"github.com/garyjia/kyc-review/internal/domain/workflow"
)

// Application is a KYC application and the aggregate root of the review workflow
type Application struct {
	ID                string         `json:"id"`
	ApplicationNumber string         `json:"application_number"`
	CustomerID        string         `json:"customer_id,omitempty"`
	CINNumber         string         `json:"cin_number"`
	FirstName         string         `json:"first_name"`
	LastName          string         `json:"last_name"`
	DateOfBirth       string         `json:"date_of_birth"`
	PlaceOfBirth      string         `json:"place_of_birth,omitempty"`
	Nationality       string         `json:"nationality"`
	Phone             string         `json:"phone,omitempty"`
	Email             string         `json:"email,omitempty"`
	Address           string         `json:"address,omitempty"`
	State             workflow.State `json:"state"`

	RiskLevel       scoring.RiskLevel `json:"risk_level,omitempty"`
	DocumentScore   *float64          `json:"document_score,omitempty"`
	FaceScore       *float64          `json:"face_score,omitempty"`
	FraudScore      *float64          `json:"fraud_score,omitempty"`
	OverallScore    *float64          `json:"overall_score,omitempty"`
	AssignedAgentID string            `json:"assigned_agent_id,omitempty"`
	ReviewedByID    string            `json:"reviewed_by_id,omitempty"`
	ReviewNotes     string            `json:"review_notes,omitempty"`
	ReviewedAt      *time.Time        `json:"reviewed_at,omitempty"`
	DecisionReason  string            `json:"decision_reason,omitempty"`
	DecisionMadeAt  *time.Time        `json:"decision_made_at,omitempty"`

	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`

	Documents     []Document     `json:"documents,omitempty"`
	Verifications []Verification `json:"verifications,omitempty"`

	// Version is bumped on every stored mutation and guards compare-and-swap writes
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Clone returns a deep copy so that a candidate mutation never touches the original
func (a *Application) Clone() *Application {
	if a == nil {
		return nil
	}
	c := *a
	c.DocumentScore = copyFloat(a.DocumentScore)
	c.FaceScore = copyFloat(a.FaceScore)
	c.FraudScore = copyFloat(a.FraudScore)
	c.OverallScore = copyFloat(a.OverallScore)
	c.ReviewedAt = copyTime(a.ReviewedAt)
	c.DecisionMadeAt = copyTime(a.DecisionMadeAt)
	c.SubmittedAt = copyTime(a.SubmittedAt)
	c.ExpiresAt = copyTime(a.ExpiresAt)
	c.Documents = append([]Document(nil), a.Documents...)
	c.Verifications = append([]Verification(nil), a.Verifications...)
	return &c
}

// StageScores returns the stage scores stored on the application
func (a *Application) StageScores() scoring.StageScores {
	return scoring.StageScores{
		Document: a.DocumentScore,
		Face:     a.FaceScore,
		Fraud:    a.FraudScore,
	}
}

// DocumentTypes returns the set of attached document types
func (a *Application) DocumentTypes() map[string]bool {
	out := make(map[string]bool, len(a.Documents))
	for _, d := range a.Documents {
		out[d.Type] = true
	}
	return out
}

// VerifiedDocumentCount returns how many documents have been verified
func (a *Application) VerifiedDocumentCount() int {
	n := 0
	for _, d := range a.Documents {
		if d.Status == DocumentStatusVerified {
			n++
		}
	}
	return n
}

// FullName returns the applicant's display name
func (a *Application) FullName() string {
	if a.FirstName == "" {
		return a.LastName
	}
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
