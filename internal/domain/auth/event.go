package auth

import "time"

// EventType identifies an engine notification.
type EventType string

const (
	EventAuthenticated           EventType = "authenticated"
	EventAuthenticationFailed    EventType = "authentication_failed"
	EventSyntheticVoiceDetected  EventType = "synthetic_voice_detected"
	EventBehavioralAnomaly       EventType = "behavioral_anomaly"
	EventStressDetected          EventType = "stress_detected"
	EventIdentityMismatch        EventType = "identity_mismatch"
	EventLockout                 EventType = "lockout"
	EventAlternativeAuthRequired EventType = "alternative_auth_required"
	EventEnrollmentRequired      EventType = "enrollment_required"
)

// Event is a single engine notification delivered on the event stream.
// Score carries the event-specific confidence or anomaly value; Failures is
// set only for lockout events.
type Event struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
	Score     float64   `json:"score,omitempty"`
	Cloned    bool      `json:"cloned,omitempty"`
	Failures  int       `json:"failures,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
