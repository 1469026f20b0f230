package voiceauth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/voicegate/backend/internal/domain/auth"
	"github.com/voicegate/backend/internal/domain/errors"
	"github.com/voicegate/backend/internal/metrics"
)

// Engine implements the Service interface. One engine serves many users;
// the security level is engine-wide, while failure counters and sessions
// are per user. Attempts for the same user are serialized, concurrent
// attempts for different users are not.
type Engine struct {
	biometric  BiometricMatcher
	synthetic  SyntheticDetector
	behavioral BehavioralAnalyzer
	failures   FailureStore
	sessions   SessionStore
	attempts   AttemptRepository
	access     AccessController

	policy            PolicyTable
	neutralConfidence float64
	detectorTimeout   time.Duration

	logger  *slog.Logger
	metrics *metrics.Registry
	tracer  trace.Tracer

	mu    sync.RWMutex
	level auth.SecurityLevel

	events    chan auth.Event
	userLocks sync.Map // userID -> *sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithSecurityLevel sets the initial security level.
func WithSecurityLevel(level auth.SecurityLevel) Option {
	return func(e *Engine) { e.level = level }
}

// WithPolicy replaces the default policy table.
func WithPolicy(p PolicyTable) Option {
	return func(e *Engine) { e.policy = p }
}

// WithNeutralConfidence sets the confidence substituted when a detector
// fails or times out.
func WithNeutralConfidence(c float64) Option {
	return func(e *Engine) { e.neutralConfidence = c }
}

// WithDetectorTimeout bounds each detector call.
func WithDetectorTimeout(d time.Duration) Option {
	return func(e *Engine) { e.detectorTimeout = d }
}

// WithAttemptRepository enables attempt persistence for audit.
func WithAttemptRepository(r AttemptRepository) Option {
	return func(e *Engine) { e.attempts = r }
}

// WithAccessController gates privileged operations.
func WithAccessController(a AccessController) Option {
	return func(e *Engine) { e.access = a }
}

// WithMetrics enables metric recording.
func WithMetrics(m *metrics.Registry) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates the authentication engine with the given detector
// collaborators and stores.
func NewEngine(
	biometric BiometricMatcher,
	synthetic SyntheticDetector,
	behavioral BehavioralAnalyzer,
	failures FailureStore,
	sessions SessionStore,
	opts ...Option,
) *Engine {
	e := &Engine{
		biometric:         biometric,
		synthetic:         synthetic,
		behavioral:        behavioral,
		failures:          failures,
		sessions:          sessions,
		policy:            DefaultPolicyTable(),
		neutralConfidence: DefaultNeutralConfidence,
		detectorTimeout:   DefaultDetectorTimeout,
		level:             auth.LevelMedium,
		logger:            slog.Default(),
		tracer:            otel.Tracer("voicegate.voiceauth"),
		events:            make(chan auth.Event, eventBufferSize),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Events returns the engine notification stream. Events are dropped, not
// queued, when the consumer falls behind the buffer.
func (e *Engine) Events() <-chan auth.Event {
	return e.events
}

// SecurityLevel returns the active security level.
func (e *Engine) SecurityLevel() auth.SecurityLevel {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.level
}

// SetSecurityLevel changes the active security level. Requires admin
// permission on the security zone when an access controller is configured.
func (e *Engine) SetSecurityLevel(ctx context.Context, level auth.SecurityLevel) error {
	if !level.Valid() {
		return errors.NewValidationError("INVALID_SECURITY_LEVEL", "security level must be low, medium or high")
	}
	if e.access != nil && !e.access.CheckPermission(ctx, ZoneSecurity, PermissionAdmin) {
		return errors.NewForbiddenError("changing the security level requires admin permission")
	}

	e.mu.Lock()
	prev := e.level
	e.level = level
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "security level changed",
		slog.String("from", prev.String()),
		slog.String("to", level.String()),
	)
	return nil
}

// ResetFailedAttempts clears a user's consecutive failure counter. Requires
// write permission on the security zone when an access controller is
// configured.
func (e *Engine) ResetFailedAttempts(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.ErrInvalidInput
	}
	if e.access != nil && !e.access.CheckPermission(ctx, ZoneSecurity, PermissionWrite) {
		return errors.NewForbiddenError("resetting failed attempts requires write permission")
	}
	if err := e.failures.Reset(ctx, userID); err != nil {
		return errors.Wrap(err, "reset failed attempts")
	}
	e.logger.InfoContext(ctx, "failed attempts reset", slog.String("user_id", userID))
	return nil
}

// TimeSinceLastAuth returns the elapsed time since the user's last
// successful authentication.
func (e *Engine) TimeSinceLastAuth(ctx context.Context, userID string) (time.Duration, bool, error) {
	if userID == "" {
		return 0, false, errors.ErrInvalidInput
	}
	at, ok, err := e.sessions.LastSuccess(ctx, userID)
	if err != nil {
		return 0, false, errors.Wrap(err, "load last success")
	}
	if !ok {
		return 0, false, nil
	}
	return time.Since(at), true, nil
}

// AuthStillValid reports whether the user's last success falls inside the
// given window. A user who never authenticated is never valid.
func (e *Engine) AuthStillValid(ctx context.Context, userID string, window time.Duration) (bool, error) {
	elapsed, ok, err := e.TimeSinceLastAuth(ctx, userID)
	if err != nil {
		return false, err
	}
	return ok && elapsed <= window, nil
}

// Enroll records one enrollment sample for the user.
func (e *Engine) Enroll(ctx context.Context, userID, prompt string, sample []byte) (*EnrollmentStatus, error) {
	if userID == "" {
		return nil, errors.ErrInvalidInput
	}
	if len(sample) == 0 {
		return nil, errors.ErrEmptyAudio
	}

	status, err := e.biometric.Enroll(ctx, userID, prompt, sample)
	if err != nil {
		return nil, errors.Wrap(err, "enroll voice sample")
	}
	if e.metrics != nil {
		e.metrics.RecordEnrollment(ctx, status.Complete)
	}
	e.logger.InfoContext(ctx, "enrollment sample recorded",
		slog.String("user_id", userID),
		slog.Int("attempt", status.Attempt),
		slog.Int("max_attempts", status.MaxAttempts),
		slog.Bool("complete", status.Complete),
	)
	return status, nil
}

// Authenticate runs one full multi-factor attempt. Biometric matching runs
// first; unless it short-circuits, synthetic and behavioral analysis run in
// parallel, then the combined score is evaluated against the level policy.
func (e *Engine) Authenticate(ctx context.Context, req AuthRequest) (*auth.Result, auth.Outcome, error) {
	if req.UserID == "" {
		return nil, auth.Outcome{}, errors.ErrInvalidInput
	}
	if len(req.AudioSample) == 0 {
		return nil, auth.Outcome{}, errors.ErrEmptyAudio
	}

	ctx, span := e.tracer.Start(ctx, "voiceauth.Authenticate",
		trace.WithAttributes(
			attribute.String("user_id", req.UserID),
			attribute.Bool("critical", req.Critical),
		))
	defer span.End()

	lock := e.userLock(req.UserID)
	if !lock.TryLock() {
		return nil, auth.Outcome{}, errors.ErrAttemptInProgress
	}
	defer lock.Unlock()

	level := e.SecurityLevel()
	weights, threshold, maxFailures := e.policy.Lookup(level, req.Critical)

	// A user already at the cap stays locked out until a success through
	// an alternative method or an administrative reset.
	if count, err := e.failures.Count(ctx, req.UserID); err == nil && count >= maxFailures {
		e.emit(auth.Event{
			Type:      auth.EventAlternativeAuthRequired,
			UserID:    req.UserID,
			Failures:  count,
			Timestamp: time.Now(),
		})
		return nil, auth.LockedOut("account locked after consecutive failures", count), nil
	}

	factors, stress, outcome, done := e.collectFactors(ctx, req, level)
	if done {
		// Enrollment short-circuit: not a failed attempt.
		return nil, outcome, nil
	}

	score := CombineScore(factors, weights)
	ok, reason := EvaluateDecision(level, factors, score, threshold)

	result := &auth.Result{
		AttemptID:          uuid.New(),
		UserID:             req.UserID,
		Success:            ok,
		CombinedConfidence: score,
		Factors:            factors,
		StressDetected:     stress,
		SecurityLevel:      level,
		Critical:           req.Critical,
		Timestamp:          time.Now(),
	}

	outcome = e.settle(ctx, result, reason, maxFailures)
	e.record(ctx, result, outcome)
	return result, outcome, nil
}

// AuthenticateAlternative verifies a non-voice fallback secret. A success
// yields a reduced-confidence biometric factor and clears the failure
// counter, which also releases a lockout.
func (e *Engine) AuthenticateAlternative(ctx context.Context, userID string, method auth.AlternativeMethod, secret string) (*auth.Result, auth.Outcome, error) {
	if userID == "" || secret == "" {
		return nil, auth.Outcome{}, errors.ErrInvalidInput
	}

	ctx, span := e.tracer.Start(ctx, "voiceauth.AuthenticateAlternative",
		trace.WithAttributes(
			attribute.String("user_id", userID),
			attribute.String("method", string(method)),
		))
	defer span.End()

	lock := e.userLock(userID)
	if !lock.TryLock() {
		return nil, auth.Outcome{}, errors.ErrAttemptInProgress
	}
	defer lock.Unlock()

	verified, err := e.biometric.VerifyAlternative(ctx, userID, method, secret)
	if err != nil {
		return nil, auth.Outcome{}, errors.Wrap(err, "verify alternative method")
	}
	if e.metrics != nil {
		e.metrics.RecordAlternative(ctx, string(method), verified)
	}

	level := e.SecurityLevel()
	factor := auth.NewFactor(verified, AlternativeAuthConfidence)
	result := &auth.Result{
		AttemptID:          uuid.New(),
		UserID:             userID,
		Success:            verified,
		CombinedConfidence: factor.Confidence,
		Factors: auth.Factors{
			Biometric:       &factor,
			UsedAlternative: true,
			AlternativeType: method,
		},
		SecurityLevel: level,
		Timestamp:     time.Now(),
	}

	var outcome auth.Outcome
	if verified {
		if err := e.failures.Reset(ctx, userID); err != nil {
			e.logger.WarnContext(ctx, "failure counter reset failed",
				slog.String("user_id", userID), slog.Any("error", err))
		}
		if err := e.sessions.RecordSuccess(ctx, userID, result.Timestamp); err != nil {
			e.logger.WarnContext(ctx, "session record failed",
				slog.String("user_id", userID), slog.Any("error", err))
		}
		e.emit(auth.Event{
			Type:      auth.EventAuthenticated,
			UserID:    userID,
			Score:     result.CombinedConfidence,
			Timestamp: result.Timestamp,
		})
		outcome = auth.Accepted()
	} else {
		result.CombinedConfidence = 0
		_, _, maxFailures := e.policy.Lookup(level, false)
		outcome = e.fail(ctx, result, "alternative authentication failed", maxFailures)
	}

	e.record(ctx, result, outcome)
	return result, outcome, nil
}

// collectFactors runs the detectors for one attempt. done is true when the
// attempt short-circuited into the returned outcome (enrollment required).
func (e *Engine) collectFactors(ctx context.Context, req AuthRequest, level auth.SecurityLevel) (auth.Factors, bool, auth.Outcome, bool) {
	var factors auth.Factors

	bio, enrollNeeded := e.matchBiometric(ctx, req, level)
	if enrollNeeded {
		e.emit(auth.Event{
			Type:      auth.EventEnrollmentRequired,
			UserID:    req.UserID,
			Reason:    req.EnrollmentPrompt,
			Timestamp: time.Now(),
		})
		return factors, false, auth.EnrollmentRequired(req.EnrollmentPrompt), true
	}
	factors.Biometric = bio

	// An explicit biometric mismatch decides the attempt at medium and
	// high; running the remaining detectors would not change the verdict.
	if level >= auth.LevelMedium && bio != nil && !bio.Success {
		return factors, false, auth.Outcome{}, false
	}

	var (
		stress  bool
		synthMu sync.Mutex
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f := e.analyzeSynthetic(gctx, req)
		synthMu.Lock()
		factors.Synthetic = f
		synthMu.Unlock()
		return nil
	})
	g.Go(func() error {
		f, s := e.analyzeBehavioral(gctx, req)
		synthMu.Lock()
		factors.Behavioral = f
		stress = s
		synthMu.Unlock()
		return nil
	})
	_ = g.Wait() // detector errors degrade to neutral factors, never abort

	if stress {
		e.emit(auth.Event{
			Type:      auth.EventStressDetected,
			UserID:    req.UserID,
			Score:     factors.Behavioral.Confidence,
			Timestamp: time.Now(),
		})
	}

	return factors, stress, auth.Outcome{}, false
}

// matchBiometric runs the biometric matcher under the detector timeout.
// enrollNeeded is true when the user has no voiceprint. A matcher error at
// low security degrades to a neutral factor; at medium and high the factor
// stays absent so the mandatory-factor rule rejects the attempt.
func (e *Engine) matchBiometric(ctx context.Context, req AuthRequest, level auth.SecurityLevel) (*auth.Factor, bool) {
	dctx, cancel := context.WithTimeout(ctx, e.detectorTimeout)
	defer cancel()

	start := time.Now()
	match, err := e.biometric.Match(dctx, req.UserID, req.AudioSample)
	if e.metrics != nil {
		e.metrics.RecordDetector(ctx, "biometric", time.Since(start), err != nil)
	}

	if err != nil {
		if errors.IsType(err, errors.ErrorTypeEnrollment) {
			return nil, true
		}
		e.logger.WarnContext(ctx, "biometric matcher unavailable",
			slog.String("user_id", req.UserID), slog.Any("error", err))
		if level == auth.LevelLow {
			f := auth.NewFactor(true, e.neutralConfidence)
			return &f, false
		}
		return nil, false
	}

	f := auth.NewFactor(match.Matched, match.Confidence)
	if !match.Matched {
		e.emit(auth.Event{
			Type:      auth.EventIdentityMismatch,
			UserID:    req.UserID,
			Score:     match.Confidence,
			Timestamp: time.Now(),
		})
	}
	return &f, false
}

// analyzeSynthetic runs the synthetic voice detector under the detector
// timeout, degrading to a neutral factor on error.
func (e *Engine) analyzeSynthetic(ctx context.Context, req AuthRequest) *auth.Factor {
	dctx, cancel := context.WithTimeout(ctx, e.detectorTimeout)
	defer cancel()

	start := time.Now()
	analysis, err := e.synthetic.Analyze(dctx, req.AudioSample)
	if e.metrics != nil {
		e.metrics.RecordDetector(ctx, "synthetic", time.Since(start), err != nil)
	}

	if err != nil {
		e.logger.WarnContext(ctx, "synthetic detector unavailable",
			slog.String("user_id", req.UserID), slog.Any("error", err))
		f := auth.NewFactor(true, e.neutralConfidence)
		return &f
	}

	flagged := analysis.Synthetic || analysis.Cloned
	confidence := analysis.SyntheticConfidence
	if analysis.ClonedConfidence > confidence {
		confidence = analysis.ClonedConfidence
	}
	if flagged {
		e.emit(auth.Event{
			Type:      auth.EventSyntheticVoiceDetected,
			UserID:    req.UserID,
			Score:     confidence,
			Cloned:    analysis.Cloned,
			Timestamp: time.Now(),
		})
	}

	f := auth.NewFactor(!flagged, 1-confidence)
	return &f
}

// analyzeBehavioral runs the behavioral analyzer under the detector
// timeout. A user with no profile yet gets their sample recorded as the
// first pattern and a provisional passing factor. The second return value
// reports stress, inferred from low behavioral confidence.
func (e *Engine) analyzeBehavioral(ctx context.Context, req AuthRequest) (*auth.Factor, bool) {
	dctx, cancel := context.WithTimeout(ctx, e.detectorTimeout)
	defer cancel()

	start := time.Now()
	analysis, err := e.behavioral.Analyze(dctx, req.UserID, req.AudioSample)
	if e.metrics != nil {
		e.metrics.RecordDetector(ctx, "behavioral", time.Since(start), err != nil)
	}

	if err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			if recErr := e.behavioral.RecordPattern(ctx, req.UserID, req.AudioSample); recErr != nil {
				e.logger.WarnContext(ctx, "recording first behavioral pattern failed",
					slog.String("user_id", req.UserID), slog.Any("error", recErr))
			}
			f := auth.NewFactor(true, FirstPatternConfidence)
			return &f, false
		}
		e.logger.WarnContext(ctx, "behavioral analyzer unavailable",
			slog.String("user_id", req.UserID), slog.Any("error", err))
		f := auth.NewFactor(true, e.neutralConfidence)
		return &f, false
	}

	if analysis.AbnormalBehavior {
		e.emit(auth.Event{
			Type:      auth.EventBehavioralAnomaly,
			UserID:    req.UserID,
			Score:     analysis.AnomalyScore,
			Timestamp: time.Now(),
		})
	}

	f := auth.NewFactor(analysis.IdentityConfirmed && !analysis.AbnormalBehavior, analysis.IdentityScore)
	return &f, f.Confidence < StressConfidenceThreshold
}

// settle applies the success or failure bookkeeping for a scored attempt
// and returns the outcome.
func (e *Engine) settle(ctx context.Context, result *auth.Result, reason string, maxFailures int) auth.Outcome {
	if result.Success {
		if err := e.failures.Reset(ctx, result.UserID); err != nil {
			e.logger.WarnContext(ctx, "failure counter reset failed",
				slog.String("user_id", result.UserID), slog.Any("error", err))
		}
		if err := e.sessions.RecordSuccess(ctx, result.UserID, result.Timestamp); err != nil {
			e.logger.WarnContext(ctx, "session record failed",
				slog.String("user_id", result.UserID), slog.Any("error", err))
		}
		e.emit(auth.Event{
			Type:      auth.EventAuthenticated,
			UserID:    result.UserID,
			Score:     result.CombinedConfidence,
			Timestamp: result.Timestamp,
		})
		return auth.Accepted()
	}
	return e.fail(ctx, result, reason, maxFailures)
}

// fail increments the failure counter and decides between rejection and
// lockout.
func (e *Engine) fail(ctx context.Context, result *auth.Result, reason string, maxFailures int) auth.Outcome {
	count, err := e.failures.Increment(ctx, result.UserID)
	if err != nil {
		e.logger.ErrorContext(ctx, "failure counter increment failed",
			slog.String("user_id", result.UserID), slog.Any("error", err))
	}

	if err == nil && count >= maxFailures {
		now := time.Now()
		e.emit(auth.Event{
			Type:      auth.EventLockout,
			UserID:    result.UserID,
			Failures:  count,
			Reason:    reason,
			Timestamp: now,
		})
		e.emit(auth.Event{
			Type:      auth.EventAlternativeAuthRequired,
			UserID:    result.UserID,
			Failures:  count,
			Timestamp: now,
		})
		if e.metrics != nil {
			e.metrics.RecordLockout(ctx, result.SecurityLevel.String())
		}
		return auth.LockedOut(reason, count)
	}

	e.emit(auth.Event{
		Type:      auth.EventAuthenticationFailed,
		UserID:    result.UserID,
		Score:     result.CombinedConfidence,
		Failures:  count,
		Reason:    reason,
		Timestamp: time.Now(),
	})
	return auth.Rejected(reason)
}

// record logs, measures, and persists a completed attempt. Persistence is
// best effort; an audit write failure never changes the verdict.
func (e *Engine) record(ctx context.Context, result *auth.Result, outcome auth.Outcome) {
	e.logger.InfoContext(ctx, "authentication attempt completed",
		slog.String("user_id", result.UserID),
		slog.String("attempt_id", result.AttemptID.String()),
		slog.String("outcome", string(outcome.Kind)),
		slog.String("security_level", result.SecurityLevel.String()),
		slog.Bool("critical", result.Critical),
		slog.Float64("combined_confidence", result.CombinedConfidence),
		slog.Bool("stress_detected", result.StressDetected),
		slog.String("reason", outcome.Reason),
	)
	if e.metrics != nil {
		e.metrics.RecordAttempt(ctx, string(outcome.Kind), result.SecurityLevel.String(), result.Critical, result.CombinedConfidence)
	}
	if e.attempts == nil {
		return
	}

	rec := &AttemptRecord{
		ID:                 result.AttemptID,
		UserID:             result.UserID,
		Success:            result.Success,
		CombinedConfidence: result.CombinedConfidence,
		SecurityLevel:      result.SecurityLevel,
		Critical:           result.Critical,
		UsedAlternative:    result.Factors.UsedAlternative,
		StressDetected:     result.StressDetected,
		Outcome:            outcome.Kind,
		Reason:             outcome.Reason,
		Factors:            result.Factors,
		CreatedAt:          result.Timestamp,
	}
	if err := e.attempts.SaveAttempt(ctx, rec); err != nil {
		e.logger.ErrorContext(ctx, "attempt audit write failed",
			slog.String("attempt_id", rec.ID.String()), slog.Any("error", err))
	}
}

func (e *Engine) userLock(userID string) *sync.Mutex {
	v, _ := e.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (e *Engine) emit(ev auth.Event) {
	select {
	case e.events <- ev:
	default:
		e.logger.Warn("event dropped, consumer lagging", slog.String("type", string(ev.Type)))
	}
}
