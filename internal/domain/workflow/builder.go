package workflow

// CatalogBuilder assembles a transition table fluently, one source state at a time.
// Validation is deferred to Build so that every problem surfaces through NewCatalog.
type CatalogBuilder interface {
	// Configure returns a configuration scoped to the given source state
	Configure(state State) StateConfiguration

	// Build validates the collected transitions and returns the catalog
	Build() (*Catalog, error)
}

// StateConfiguration configures the outgoing edges of one source state
type StateConfiguration interface {
	// Permit declares an edge to toState for the given roles, gated by conditions
	Permit(toState State, roles []Role, conditions ...Condition) StateConfiguration
}

type stateConfig struct {
	builder   *catalogBuilder
	fromState State
}

type catalogBuilder struct {
	transitions []StateTransition
}

// NewBuilder creates a new catalog builder
func NewBuilder() CatalogBuilder {
	return &catalogBuilder{}
}

// Configure returns a state configuration for the given state
func (b *catalogBuilder) Configure(state State) StateConfiguration {
	return &stateConfig{builder: b, fromState: state}
}

// Build creates the immutable catalog from everything configured so far
func (b *catalogBuilder) Build() (*Catalog, error) {
	return NewCatalog(b.transitions)
}

// Permit appends a transition from the configured state
func (c *stateConfig) Permit(toState State, roles []Role, conditions ...Condition) StateConfiguration {
	c.builder.transitions = append(c.builder.transitions, StateTransition{
		From:               c.fromState,
		To:                 toState,
		RequiredConditions: append([]Condition(nil), conditions...),
		AllowedRoles:       append([]Role(nil), roles...),
	})
	return c
}

var (
	systemOnly = []Role{RoleSystem}
	submitters = []Role{RoleAPIClient, RoleAgent}
	reviewers  = []Role{RoleAgent, RoleSupervisor, RoleAdmin}
)

// DefaultTransitions returns the KYC review transition table
func DefaultTransitions() []StateTransition {
	b := &catalogBuilder{}

	b.Configure(StateDraft).
		Permit(StateSubmitted, submitters, CondHasRequiredDocuments, CondHasCustomerData).
		Permit(StateExpired, systemOnly, CondApplicationExpired)

	b.Configure(StateSubmitted).
		Permit(StateDocumentVerification, systemOnly, CondDocumentsUploaded).
		Permit(StateExpired, systemOnly, CondApplicationExpired)

	b.Configure(StateDocumentVerification).
		Permit(StateFaceVerification, systemOnly, CondDocumentsVerified).
		Permit(StateManualReview, systemOnly, CondLowConfidenceScore).
		Permit(StateExpired, systemOnly, CondApplicationExpired)

	b.Configure(StateFaceVerification).
		Permit(StateApproved, systemOnly, CondHighConfidenceScore, CondAllChecksPassed).
		Permit(StateManualReview, systemOnly, CondMediumConfidenceScore).
		Permit(StateRejected, systemOnly, CondFailedVerification)

	b.Configure(StateManualReview).
		Permit(StateApproved, reviewers, CondAgentApproved).
		Permit(StateRejected, reviewers, CondAgentRejected)

	return b.transitions
}

// DefaultCatalog builds the catalog from DefaultTransitions
func DefaultCatalog() (*Catalog, error) {
	return NewCatalog(DefaultTransitions())
}
