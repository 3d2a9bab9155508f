package event

// Type identifies the type of domain event
type Type string

const (
	TypeApplicationCreated      Type = "application.created"
	TypeApplicationSubmitted    Type = "application.submitted"
	TypeApplicationTransitioned Type = "application.transitioned"
	TypeApplicationApproved     Type = "application.approved"
	TypeApplicationRejected     Type = "application.rejected"
	TypeApplicationExpired      Type = "application.expired"
	TypeNextStepRequested       Type = "next_step.requested"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeApplicationCreated,
		TypeApplicationSubmitted,
		TypeApplicationTransitioned,
		TypeApplicationApproved,
		TypeApplicationRejected,
		TypeApplicationExpired,
		TypeNextStepRequested:
		return true
	default:
		return false
	}
}
