package workflow

// State represents a KYC application state in the review pipeline
type State string

const (
	StateDraft                State = "DRAFT"
	StateSubmitted            State = "SUBMITTED"
	StateDocumentVerification State = "DOCUMENT_VERIFICATION"
	StateFaceVerification     State = "FACE_VERIFICATION"
	StateManualReview         State = "MANUAL_REVIEW"
	StateApproved             State = "APPROVED"
	StateRejected             State = "REJECTED"
	StateExpired              State = "EXPIRED"
)

// orderedStates is the canonical pipeline order, used to sort introspection output
var orderedStates = []State{
	StateDraft,
	StateSubmitted,
	StateDocumentVerification,
	StateFaceVerification,
	StateManualReview,
	StateApproved,
	StateRejected,
	StateExpired,
}

var stateRank = func() map[State]int {
	m := make(map[State]int, len(orderedStates))
	for i, s := range orderedStates {
		m[s] = i
	}
	return m
}()

var terminalStates = map[State]bool{
	StateApproved: true,
	StateRejected: true,
	StateExpired:  true,
}

// AllStates returns every known state in pipeline order
func AllStates() []State {
	return append([]State(nil), orderedStates...)
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	_, ok := stateRank[s]
	return ok
}

// ParseState converts a stored or user-supplied value into a State
func ParseState(v string) (State, error) {
	s := State(v)
	if !s.IsValid() {
		return "", &TransitionError{Kind: ErrInvalidState, From: s}
	}
	return s, nil
}
