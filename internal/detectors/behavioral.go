package detectors

import (
	"context"
	"log/slog"
	"sync"

	"github.com/voicegate/backend/internal/domain/errors"
	"github.com/voicegate/backend/internal/service/voiceauth"
)

const (
	// maxPatterns bounds the per-user rolling profile window.
	maxPatterns = 20

	anomalyDistanceThreshold = 0.35
	identityConfirmThreshold = 0.5
)

// BehavioralProfiler tracks per-user interaction patterns and scores new
// samples against the rolling profile centroid.
type BehavioralProfiler struct {
	logger *slog.Logger

	mu       sync.RWMutex
	profiles map[string][][]float64
}

// NewBehavioralProfiler creates an empty profiler.
func NewBehavioralProfiler(logger *slog.Logger) *BehavioralProfiler {
	return &BehavioralProfiler{
		logger:   logger,
		profiles: make(map[string][][]float64),
	}
}

// Analyze scores the sample against the user's behavioral profile. A user
// with no recorded patterns gets a profile-not-found error so the engine
// can seed the profile instead.
func (p *BehavioralProfiler) Analyze(ctx context.Context, userID string, sample []byte) (*voiceauth.BehavioralAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	patterns := p.profiles[userID]
	p.mu.RUnlock()

	if len(patterns) == 0 {
		return nil, errors.ErrProfileNotFound
	}

	features := featuresOf(sample)
	center := centroid(patterns)
	distance := euclidean(features, center)

	identityScore := 1 / (1 + 4*distance)
	abnormal := distance > anomalyDistanceThreshold

	// Energy far off the profile baseline reads as vocal stress.
	stressScore := features[histogramBins] - center[histogramBins]
	if stressScore < 0 {
		stressScore = -stressScore
	}

	analysis := &voiceauth.BehavioralAnalysis{
		IdentityConfirmed: identityScore >= identityConfirmThreshold,
		AbnormalBehavior:  abnormal,
		IdentityScore:     identityScore,
		AnomalyScore:      distance,
		StressScore:       stressScore,
	}

	if abnormal {
		p.logger.WarnContext(ctx, "behavioral anomaly",
			slog.String("user_id", userID),
			slog.Float64("distance", distance))
	}
	return analysis, nil
}

// RecordPattern adds a sample to the user's rolling profile, evicting the
// oldest pattern past the window.
func (p *BehavioralProfiler) RecordPattern(ctx context.Context, userID string, sample []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	patterns := append(p.profiles[userID], featuresOf(sample))
	if len(patterns) > maxPatterns {
		patterns = patterns[len(patterns)-maxPatterns:]
	}
	p.profiles[userID] = patterns
	return nil
}
