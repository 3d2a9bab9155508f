package workflow

// Role identifies the kind of actor requesting a transition
type Role string

const (
	RoleSystem     Role = "system"
	RoleAPIClient  Role = "api_client"
	RoleAgent      Role = "agent"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
	RoleAuditor    Role = "auditor"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsReviewer reports whether the role may take manual review decisions
func (r Role) IsReviewer() bool {
	switch r {
	case RoleAgent, RoleSupervisor, RoleAdmin:
		return true
	default:
		return false
	}
}
