package workflow

import (
	"strings"
	"time"

	"github.com/garyjia/kyc-review/internal/domain/entity"
	"github.com/garyjia/kyc-review/internal/domain/scoring"
	domainwf "github.com/garyjia/kyc-review/internal/domain/workflow"
)

// DefaultRequiredDocuments are the document types every application must carry
var DefaultRequiredDocuments = []string{
	entity.DocumentTypeCINFront,
	entity.DocumentTypeCINBack,
	entity.DocumentTypeSelfie,
}

// minVerifiedDocuments is how many verified documents satisfy documents_verified
const minVerifiedDocuments = 2

// Evaluator derives named workflow conditions from an application and optional scores
type Evaluator struct {
	thresholds scoring.Thresholds
	required   []string
	now        func() time.Time
}

// NewEvaluator creates an evaluator. Empty required falls back to DefaultRequiredDocuments,
// a nil clock to time.Now.
func NewEvaluator(thresholds scoring.Thresholds, required []string, clock func() time.Time) *Evaluator {
	if len(required) == 0 {
		required = DefaultRequiredDocuments
	}
	if clock == nil {
		clock = time.Now
	}
	return &Evaluator{
		thresholds: thresholds,
		required:   append([]string(nil), required...),
		now:        clock,
	}
}

// Thresholds returns the thresholds the evaluator scores against
func (e *Evaluator) Thresholds() scoring.Thresholds {
	return e.thresholds
}

// Evaluate computes the baseline conditions and, when results is non-nil, the
// score-tier conditions. Without results every score-tier condition is false.
// Score tiers use the document score during document verification and the
// overall score elsewhere.
func (e *Evaluator) Evaluate(app *entity.Application, results *scoring.ScorePayload) domainwf.Conditions {
	conds := domainwf.Conditions{
		domainwf.CondHasRequiredDocuments: e.hasRequiredDocuments(app),
		domainwf.CondHasCustomerData:      hasCustomerData(app),
		domainwf.CondDocumentsUploaded:    len(app.Documents) > 0,
		domainwf.CondDocumentsVerified:    app.VerifiedDocumentCount() >= minVerifiedDocuments,
		domainwf.CondApplicationExpired:   app.ExpiresAt != nil && e.now().After(*app.ExpiresAt),

		domainwf.CondHighConfidenceScore:   false,
		domainwf.CondMediumConfidenceScore: false,
		domainwf.CondLowConfidenceScore:    false,
		domainwf.CondFailedVerification:    false,
		domainwf.CondAllChecksPassed:       false,
	}

	if results == nil {
		return conds
	}

	score := gatingScore(app.State, results.Resolve(app.StageScores()))
	conds[domainwf.CondHighConfidenceScore] = score >= e.thresholds.AutoApprove
	conds[domainwf.CondMediumConfidenceScore] = score >= e.thresholds.ManualReview
	conds[domainwf.CondLowConfidenceScore] = score < e.thresholds.ManualReview
	conds[domainwf.CondFailedVerification] = score < e.thresholds.Reject
	conds[domainwf.CondAllChecksPassed] = allChecksPassed(app.Verifications)

	return conds
}

func (e *Evaluator) hasRequiredDocuments(app *entity.Application) bool {
	have := app.DocumentTypes()
	for _, t := range e.required {
		if !have[t] {
			return false
		}
	}
	return true
}

func hasCustomerData(app *entity.Application) bool {
	for _, f := range []string{app.CINNumber, app.FirstName, app.LastName, app.DateOfBirth} {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	return true
}

func allChecksPassed(vs []entity.Verification) bool {
	if len(vs) == 0 {
		return false
	}
	for _, v := range vs {
		if !v.Passed() {
			return false
		}
	}
	return true
}
