package detectors

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"sync"

	"github.com/voicegate/backend/internal/domain/auth"
	"github.com/voicegate/backend/internal/domain/errors"
	"github.com/voicegate/backend/internal/service/voiceauth"
)

const (
	// EnrollmentSamples is how many samples a voiceprint needs before
	// matching is possible.
	EnrollmentSamples = 3

	matchThreshold = 0.85
)

// BiometricStore is an in-process voiceprint matcher. Enrollment collects a
// fixed number of samples per user; matching scores a sample against the
// closest enrolled one. Production deployments swap this for a dedicated
// speaker-verification backend behind the same interface.
type BiometricStore struct {
	logger *slog.Logger

	mu      sync.RWMutex
	prints  map[string]*voiceprint
	secrets map[string]map[auth.AlternativeMethod]string
}

type voiceprint struct {
	samples [][]float64
	prompt  string
}

func (v *voiceprint) complete() bool {
	return len(v.samples) >= EnrollmentSamples
}

// NewBiometricStore creates an empty in-process matcher.
func NewBiometricStore(logger *slog.Logger) *BiometricStore {
	return &BiometricStore{
		logger:  logger,
		prints:  make(map[string]*voiceprint),
		secrets: make(map[string]map[auth.AlternativeMethod]string),
	}
}

// Match scores the sample against the user's enrolled voiceprint. An
// unenrolled or partially enrolled user gets an enrollment error.
func (s *BiometricStore) Match(ctx context.Context, userID string, sample []byte) (*voiceauth.MatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	print, ok := s.prints[userID]
	s.mu.RUnlock()

	if !ok || !print.complete() {
		prompt := ""
		if ok {
			prompt = print.prompt
		}
		return nil, errors.NewEnrollmentRequiredError(prompt)
	}

	features := featuresOf(sample)
	var best float64
	for _, enrolled := range print.samples {
		if sim := cosine(features, enrolled); sim > best {
			best = sim
		}
	}

	return &voiceauth.MatchResult{
		Matched:    best >= matchThreshold,
		Confidence: best,
	}, nil
}

// Enroll records one enrollment sample for the user.
func (s *BiometricStore) Enroll(ctx context.Context, userID, prompt string, sample []byte) (*voiceauth.EnrollmentStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	print, ok := s.prints[userID]
	if !ok {
		print = &voiceprint{prompt: prompt}
		s.prints[userID] = print
	}
	if print.complete() {
		return &voiceauth.EnrollmentStatus{
			Attempt:     len(print.samples),
			MaxAttempts: EnrollmentSamples,
			Complete:    true,
		}, nil
	}

	print.samples = append(print.samples, featuresOf(sample))
	s.logger.InfoContext(ctx, "voiceprint sample stored",
		slog.String("user_id", userID),
		slog.Int("samples", len(print.samples)))

	return &voiceauth.EnrollmentStatus{
		Attempt:     len(print.samples),
		MaxAttempts: EnrollmentSamples,
		Complete:    print.complete(),
	}, nil
}

// VerifyAlternative checks a fallback secret in constant time.
func (s *BiometricStore) VerifyAlternative(ctx context.Context, userID string, method auth.AlternativeMethod, secret string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	stored, ok := s.secrets[userID][method]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(secret)) == 1, nil
}

// SetAlternativeSecret provisions a fallback secret for the user.
func (s *BiometricStore) SetAlternativeSecret(userID string, method auth.AlternativeMethod, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.secrets[userID] == nil {
		s.secrets[userID] = make(map[auth.AlternativeMethod]string)
	}
	s.secrets[userID][method] = secret
}
