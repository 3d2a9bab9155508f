package workflow

// Condition is a named boolean fact about an application, used as a transition precondition
type Condition string

const (
	CondHasRequiredDocuments Condition = "has_required_documents"
	CondHasCustomerData      Condition = "has_customer_data"
	CondDocumentsUploaded    Condition = "documents_uploaded"
	CondDocumentsVerified    Condition = "documents_verified"
	CondApplicationExpired   Condition = "application_expired"

	CondHighConfidenceScore   Condition = "high_confidence_score"
	CondMediumConfidenceScore Condition = "medium_confidence_score"
	CondLowConfidenceScore    Condition = "low_confidence_score"
	CondFailedVerification    Condition = "failed_verification"
	CondAllChecksPassed       Condition = "all_checks_passed"

	CondAgentApproved Condition = "agent_approved"
	CondAgentRejected Condition = "agent_rejected"
)

// String returns the string representation of the condition
func (c Condition) String() string {
	return string(c)
}

// Conditions maps condition names to their evaluated value.
// A missing key is treated the same as false.
type Conditions map[Condition]bool

// Holds reports whether the condition is present and true
func (c Conditions) Holds(cond Condition) bool {
	return c[cond]
}

// With returns a copy with cond forced to the given value
func (c Conditions) With(cond Condition, v bool) Conditions {
	out := make(Conditions, len(c)+1)
	for k, val := range c {
		out[k] = val
	}
	out[cond] = v
	return out
}
