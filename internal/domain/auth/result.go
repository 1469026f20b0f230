package auth

import (
	"time"

	"github.com/google/uuid"
)

// Result is the completed verdict for one authentication attempt. The engine
// does not retain it; persistence is the caller's concern.
type Result struct {
	AttemptID          uuid.UUID     `json:"attempt_id"`
	UserID             string        `json:"user_id"`
	Success            bool          `json:"success"`
	CombinedConfidence float64       `json:"combined_confidence"`
	Factors            Factors       `json:"factors"`
	StressDetected     bool          `json:"stress_detected"`
	SecurityLevel      SecurityLevel `json:"-"`
	Critical           bool          `json:"critical"`
	Timestamp          time.Time     `json:"timestamp"`
}

// AlternativeUsed reports whether a non-voice fallback produced the verdict.
func (r Result) AlternativeUsed() bool {
	return r.Factors.UsedAlternative
}

// OutcomeKind discriminates the Outcome union.
type OutcomeKind string

const (
	OutcomeAccepted           OutcomeKind = "accepted"
	OutcomeRejected           OutcomeKind = "rejected"
	OutcomeLockedOut          OutcomeKind = "locked_out"
	OutcomeEnrollmentRequired OutcomeKind = "enrollment_required"
)

// Outcome is the single tagged result delivered to callers in place of a
// multi-method listener interface. Exactly one of the optional fields is
// meaningful for a given kind: Reason for rejections, Failures for lockouts,
// Prompt for enrollment.
type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	Reason   string      `json:"reason,omitempty"`
	Failures int         `json:"failures,omitempty"`
	Prompt   string      `json:"prompt,omitempty"`
}

// Accepted builds an accepted outcome.
func Accepted() Outcome {
	return Outcome{Kind: OutcomeAccepted}
}

// Rejected builds a rejected outcome with a human-readable reason.
func Rejected(reason string) Outcome {
	return Outcome{Kind: OutcomeRejected, Reason: reason}
}

// LockedOut builds a lockout outcome carrying the consecutive failure count.
func LockedOut(reason string, failures int) Outcome {
	return Outcome{Kind: OutcomeLockedOut, Reason: reason, Failures: failures}
}

// EnrollmentRequired builds an outcome instructing the caller to enroll the
// user first, echoing the prompt to speak.
func EnrollmentRequired(prompt string) Outcome {
	return Outcome{Kind: OutcomeEnrollmentRequired, Prompt: prompt}
}
