package voiceauth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/voicegate/backend/internal/domain/auth"
)

// Service defines the multi-factor voice authentication engine interface
type Service interface {
	// Authenticate runs a full multi-factor attempt for the user
	Authenticate(ctx context.Context, req AuthRequest) (*auth.Result, auth.Outcome, error)
	// AuthenticateAlternative authenticates with a non-voice fallback method
	AuthenticateAlternative(ctx context.Context, userID string, method auth.AlternativeMethod, secret string) (*auth.Result, auth.Outcome, error)
	// Enroll starts voice enrollment for the user
	Enroll(ctx context.Context, userID, prompt string, sample []byte) (*EnrollmentStatus, error)
	// SetSecurityLevel changes the active security level (privileged)
	SetSecurityLevel(ctx context.Context, level auth.SecurityLevel) error
	// SecurityLevel returns the active security level
	SecurityLevel() auth.SecurityLevel
	// ResetFailedAttempts clears the consecutive failure counter (privileged)
	ResetFailedAttempts(ctx context.Context, userID string) error
	// TimeSinceLastAuth returns the elapsed time since the user's last
	// successful authentication; ok is false if none has occurred
	TimeSinceLastAuth(ctx context.Context, userID string) (time.Duration, bool, error)
	// AuthStillValid reports whether a prior success is within the window
	AuthStillValid(ctx context.Context, userID string, window time.Duration) (bool, error)
	// Events returns the engine notification stream
	Events() <-chan auth.Event
}

// AuthRequest carries the inputs for one authentication attempt.
type AuthRequest struct {
	UserID           string
	AudioSample      []byte
	EnrollmentPrompt string
	Critical         bool
}

// BiometricMatcher is the voiceprint matching collaborator. A missing
// voiceprint is reported as an enrollment error (errors.ErrorTypeEnrollment),
// which short-circuits the attempt instead of being scored.
type BiometricMatcher interface {
	// Match compares the sample against the user's enrolled voiceprint
	Match(ctx context.Context, userID string, sample []byte) (*MatchResult, error)
	// Enroll records one enrollment sample for the user
	Enroll(ctx context.Context, userID, prompt string, sample []byte) (*EnrollmentStatus, error)
	// VerifyAlternative checks a non-voice fallback secret
	VerifyAlternative(ctx context.Context, userID string, method auth.AlternativeMethod, secret string) (bool, error)
}

// MatchResult is the biometric matcher's verdict.
type MatchResult struct {
	Matched    bool
	Confidence float64
}

// EnrollmentStatus reports enrollment progress for a user.
type EnrollmentStatus struct {
	Attempt     int
	MaxAttempts int
	Complete    bool
}

// SyntheticDetector is the synthetic/cloned voice detection collaborator.
type SyntheticDetector interface {
	Analyze(ctx context.Context, sample []byte) (*SyntheticAnalysis, error)
}

// SyntheticAnalysis is the synthetic detector's verdict. The engine derives
// a factor as success = !Synthetic && !Cloned with confidence
// 1 - max(SyntheticConfidence, ClonedConfidence).
type SyntheticAnalysis struct {
	Synthetic           bool
	Cloned              bool
	SyntheticConfidence float64
	ClonedConfidence    float64
}

// BehavioralAnalyzer is the behavioral consistency collaborator.
type BehavioralAnalyzer interface {
	// Analyze checks the sample against the user's behavioral profile
	Analyze(ctx context.Context, userID string, sample []byte) (*BehavioralAnalysis, error)
	// RecordPattern adds a sample to the user's behavioral profile
	RecordPattern(ctx context.Context, userID string, sample []byte) error
}

// BehavioralAnalysis is the behavioral analyzer's verdict. The engine derives
// a factor as success = IdentityConfirmed && !AbnormalBehavior with
// confidence IdentityScore.
type BehavioralAnalysis struct {
	IdentityConfirmed bool
	AbnormalBehavior  bool
	IdentityScore     float64
	AnomalyScore      float64
	StressScore       float64
}

// FailureStore tracks consecutive authentication failures per user. The
// counter has no time decay; it is cleared only by success or an
// administrative reset.
type FailureStore interface {
	// Increment bumps the user's counter and returns the new count
	Increment(ctx context.Context, userID string) (int, error)
	// Reset clears the user's counter
	Reset(ctx context.Context, userID string) error
	// Count returns the user's current counter
	Count(ctx context.Context, userID string) (int, error)
}

// SessionStore records last successful authentication times per user.
type SessionStore interface {
	// RecordSuccess stores the time of a successful authentication
	RecordSuccess(ctx context.Context, userID string, at time.Time) error
	// LastSuccess returns the last success time; ok is false if none exists
	LastSuccess(ctx context.Context, userID string) (time.Time, bool, error)
}

// AttemptRepository persists completed attempt records for audit.
type AttemptRepository interface {
	// SaveAttempt stores a completed attempt record
	SaveAttempt(ctx context.Context, record *AttemptRecord) error
	// ListAttempts retrieves recent attempts for a user, newest first
	ListAttempts(ctx context.Context, userID string, limit int) ([]*AttemptRecord, error)
}

// AttemptRecord is the persisted audit form of one attempt.
type AttemptRecord struct {
	ID                 uuid.UUID
	UserID             string
	Success            bool
	CombinedConfidence float64
	SecurityLevel      auth.SecurityLevel
	Critical           bool
	UsedAlternative    bool
	StressDetected     bool
	Outcome            auth.OutcomeKind
	Reason             string
	Factors            auth.Factors
	CreatedAt          time.Time
}

// SecurityZone identifies a guarded subsystem for access control checks.
type SecurityZone string

const (
	ZoneVoice    SecurityZone = "voice"
	ZoneSecurity SecurityZone = "security"
	ZoneStorage  SecurityZone = "storage"
)

// PermissionLevel orders access control permission levels.
type PermissionLevel int

const (
	PermissionReadOnly PermissionLevel = iota
	PermissionWrite
	PermissionExecute
	PermissionAdmin
)

// AccessController gates privileged operations. Denial is surfaced before
// any detector is invoked and never counts as an authentication failure.
type AccessController interface {
	CheckPermission(ctx context.Context, zone SecurityZone, level PermissionLevel) bool
}
