package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/farmer-dashboard/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAuthDecision EventType = "auth_decision"
)

// Outcome of a gate decision.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
)

// Event represents a domain event emitted by the gate and services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AuthDecision is the redacted audit record of one gate decision.
// TokenRef is a fingerprint; the credential itself is never carried.
type AuthDecision struct {
	Outcome  Outcome             `json:"outcome"`
	Kind     string              `json:"kind,omitempty"`
	Reason   string              `json:"reason,omitempty"`
	Channel  domain.TokenChannel `json:"channel"`
	TokenRef string              `json:"token_ref,omitempty"`
	UserID   string              `json:"user_id,omitempty"`
	Role     domain.Role         `json:"role,omitempty"`
	Method   string              `json:"method"`
	Path     string              `json:"path"`
}

// NewAuthDecisionEvent wraps a decision in an Event envelope.
func NewAuthDecisionEvent(decision AuthDecision, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      EventAuthDecision,
		Timestamp: at,
		Payload:   decision,
	}
}
