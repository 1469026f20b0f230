package detectors

import (
	"context"
	"log/slog"
	"math"

	"github.com/voicegate/backend/internal/domain/errors"
	"github.com/voicegate/backend/internal/service/voiceauth"
)

const (
	// Generated audio tends to have an unnaturally flat byte
	// distribution; natural speech is strongly skewed.
	flatnessSuspicionThreshold = 0.90

	// High 4-gram repetition suggests splicing from a cloned source.
	repetitionSuspicionThreshold = 0.5

	minSampleBytes = 64
)

// SyntheticAnalyzer screens samples for synthetic or cloned voice markers
// using cheap structural heuristics. A production deployment swaps this
// for a trained anti-spoofing model behind the same interface.
type SyntheticAnalyzer struct {
	logger *slog.Logger
}

// NewSyntheticAnalyzer creates the heuristic screener.
func NewSyntheticAnalyzer(logger *slog.Logger) *SyntheticAnalyzer {
	return &SyntheticAnalyzer{logger: logger}
}

// Analyze screens the sample and reports synthetic and cloned suspicion
// with per-flag confidences.
func (a *SyntheticAnalyzer) Analyze(ctx context.Context, sample []byte) (*voiceauth.SyntheticAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(sample) < minSampleBytes {
		return nil, errors.NewDetectorError("synthetic", "sample too short to analyze")
	}

	flatness := spectralFlatness(sample)
	repetition := repetitionRatio(sample)

	analysis := &voiceauth.SyntheticAnalysis{
		Synthetic:           flatness >= flatnessSuspicionThreshold,
		Cloned:              repetition >= repetitionSuspicionThreshold,
		SyntheticConfidence: flatness,
		ClonedConfidence:    repetition,
	}

	if analysis.Synthetic || analysis.Cloned {
		a.logger.WarnContext(ctx, "synthetic voice markers found",
			slog.Float64("flatness", flatness),
			slog.Float64("repetition", repetition))
	}
	return analysis, nil
}

// spectralFlatness returns the geometric/arithmetic mean ratio of the byte
// histogram in [0,1]. Uniform noise scores near 1; natural speech, which
// leaves most of the range empty, scores near 0.
func spectralFlatness(sample []byte) float64 {
	const epsilon = 1e-4
	hist := featuresOf(sample)[:histogramBins]

	var logSum, sum float64
	for _, p := range hist {
		if p < epsilon {
			p = epsilon
		}
		logSum += math.Log(p)
		sum += p
	}
	geometric := math.Exp(logSum / histogramBins)
	arithmetic := sum / histogramBins
	return geometric / arithmetic
}

// repetitionRatio measures how much of the sample is repeated 4-byte
// sequences.
func repetitionRatio(sample []byte) float64 {
	const gram = 4
	if len(sample) < gram*2 {
		return 0
	}

	seen := make(map[[gram]byte]struct{})
	repeats := 0
	total := len(sample) - gram + 1
	for i := 0; i < total; i++ {
		var key [gram]byte
		copy(key[:], sample[i:i+gram])
		if _, ok := seen[key]; ok {
			repeats++
		} else {
			seen[key] = struct{}{}
		}
	}
	return float64(repeats) / float64(total)
}
