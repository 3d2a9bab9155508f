package entity

import (
	"time"

	"github.com/garyjia/kyc-review/internal/domain/workflow"
)

// Actor identifies who performed an action
type Actor struct {
	ID        string        `json:"id"`
	Username  string        `json:"username"`
	Role      workflow.Role `json:"role"`
	IPAddress string        `json:"ip_address,omitempty"`
}

// SystemActor is the actor used for automatic transitions
var SystemActor = Actor{ID: "system", Username: "system", Role: workflow.RoleSystem, IPAddress: "system"}

// AuditEntry is an append-only record of an action on an application
type AuditEntry struct {
	ID             string            `json:"id"`
	ActorID        string            `json:"actor_id"`
	ActorUsername  string            `json:"actor_username"`
	ActorRole      workflow.Role     `json:"actor_role"`
	IPAddress      string            `json:"ip_address"`
	Action         string            `json:"action"`
	Resource       string            `json:"resource"`
	ResourceID     string            `json:"resource_id"`
	ApplicationID  string            `json:"application_id"`
	Description    string            `json:"description"`
	FromState      workflow.State    `json:"from_state,omitempty"`
	ToState        workflow.State    `json:"to_state,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
	RetentionUntil *time.Time        `json:"retention_until,omitempty"`
}
