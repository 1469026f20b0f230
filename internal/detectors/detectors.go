// Package detectors provides in-process reference implementations of the
// engine's detector interfaces. They use cheap structural heuristics in
// place of trained models and are intended for development, testing, and
// as the template for real detector integrations.
package detectors

import (
	"log/slog"

	"github.com/voicegate/backend/internal/service/voiceauth"
)

// NewDefaultSet returns the three in-process detectors sharing one logger.
func NewDefaultSet(logger *slog.Logger) (voiceauth.BiometricMatcher, voiceauth.SyntheticDetector, voiceauth.BehavioralAnalyzer) {
	return NewBiometricStore(logger), NewSyntheticAnalyzer(logger), NewBehavioralProfiler(logger)
}
