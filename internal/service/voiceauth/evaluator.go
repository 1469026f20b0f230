package voiceauth

import (
	"fmt"

	"github.com/voicegate/backend/internal/domain/auth"
)

// Rejection reasons surfaced in outcomes and events.
const (
	ReasonScoreBelowThreshold = "combined confidence below threshold"
	ReasonBiometricRequired   = "biometric verification required"
	ReasonBiometricFailed     = "biometric verification failed"
	ReasonSyntheticRequired   = "synthetic voice screening required"
	ReasonSyntheticDetected   = "synthetic voice detected"
)

// EvaluateDecision applies the acceptance rules for a security level:
// the combined score must clear the threshold, medium and high levels
// additionally require a successful biometric match, and high requires
// the synthetic screen to have passed. Hard constraints are checked
// before the score so the reported reason names the binding failure.
func EvaluateDecision(level auth.SecurityLevel, factors auth.Factors, score, threshold float64) (bool, string) {
	if level >= auth.LevelMedium {
		if factors.Biometric == nil {
			return false, ReasonBiometricRequired
		}
		if !factors.Biometric.Success {
			return false, ReasonBiometricFailed
		}
	}

	if level >= auth.LevelHigh {
		if factors.Synthetic == nil {
			return false, ReasonSyntheticRequired
		}
		if !factors.Synthetic.Success {
			return false, ReasonSyntheticDetected
		}
	}

	if score < threshold {
		return false, fmt.Sprintf("%s (%.2f < %.2f)", ReasonScoreBelowThreshold, score, threshold)
	}

	return true, ""
}
