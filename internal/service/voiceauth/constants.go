package voiceauth

import "time"

// Base acceptance thresholds per security level
const (
	// ThresholdLow is the base acceptance threshold at low security
	ThresholdLow = 0.70

	// ThresholdMedium is the base acceptance threshold at medium security
	ThresholdMedium = 0.80

	// ThresholdHigh is the base acceptance threshold at high security
	ThresholdHigh = 0.90

	// CriticalThresholdBonus is added to the threshold for critical operations
	CriticalThresholdBonus = 0.05
)

// Consecutive failure caps per security level
const (
	// MaxFailuresLow is the lockout cap at low security
	MaxFailuresLow = 5

	// MaxFailuresMedium is the lockout cap at medium security
	MaxFailuresMedium = 3

	// MaxFailuresHigh is the lockout cap at high security
	MaxFailuresHigh = 2
)

// Confidence substitution values
const (
	// DefaultNeutralConfidence replaces a factor when its detector fails
	// or times out, so one collaborator outage cannot block the pipeline
	DefaultNeutralConfidence = 0.5

	// AlternativeAuthConfidence is the reduced biometric confidence
	// credited when a non-voice fallback method succeeds
	AlternativeAuthConfidence = 0.7

	// FirstPatternConfidence is the behavioral confidence for users with
	// no behavioral profile yet (their first sample seeds the profile)
	FirstPatternConfidence = 0.7

	// StressConfidenceThreshold marks stress when behavioral confidence
	// falls below it
	StressConfidenceThreshold = 0.4
)

// Critical-operation weight adjustment, applied before renormalization
const (
	CriticalBiometricWeightBonus  = 0.1
	CriticalSyntheticWeightBonus  = 0.1
	CriticalBehavioralWeightMalus = -0.2
)

// Timing defaults
const (
	// DefaultDetectorTimeout bounds each detector call; expiry is treated
	// the same as a detector failure
	DefaultDetectorTimeout = 5 * time.Second

	// DefaultSessionWindow is the default re-authentication grace window
	DefaultSessionWindow = 15 * time.Minute
)

// eventBufferSize bounds the engine notification channel; events beyond the
// buffer are dropped rather than blocking the attempt pipeline.
const eventBufferSize = 64
