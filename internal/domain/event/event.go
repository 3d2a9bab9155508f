package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys shared by publishers and handlers
const (
	KeyFromState = "from_state"
	KeyToState   = "to_state"
	KeyActorID   = "actor_id"
	KeyActorRole = "actor_role"
	KeyOverall   = "overall_score"
	KeyRiskLevel = "risk_level"
	KeyReason    = "reason"
)

// Event represents a domain event
type Event struct {
	ID                string                 `json:"id"`
	Type              Type                   `json:"type"`
	ApplicationID     string                 `json:"application_id"`
	ApplicationNumber string                 `json:"application_number,omitempty"`
	Payload           map[string]interface{} `json:"payload"`
	Timestamp         time.Time              `json:"timestamp"`
	CorrelationID     string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with generated ID and timestamp
func NewEvent(eventType Type, applicationID, applicationNumber string, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, applicationID, applicationNumber, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to a correlation chain
func NewEventWithCorrelation(eventType Type, applicationID, applicationNumber string, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &Event{
		ID:                uuid.NewString(),
		Type:              eventType,
		ApplicationID:     applicationID,
		ApplicationNumber: applicationNumber,
		Payload:           payload,
		Timestamp:         time.Now(),
		CorrelationID:     correlationID,
	}
}

// WithPayload returns a new Event with an added payload key-value pair
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	c := *e
	c.Payload = newPayload
	return &c
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case string:
			return v
		case interface{ String() string }:
			return v.String()
		}
	}
	return ""
}

// GetPayloadFloat retrieves a float64 value from the payload
func (e *Event) GetPayloadFloat(key string) float64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case int64:
			return float64(v)
		case int:
			return float64(v)
		}
	}
	return 0.0
}
