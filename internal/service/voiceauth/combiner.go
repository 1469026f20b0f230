package voiceauth

import (
	"github.com/voicegate/backend/internal/domain/auth"
)

// CombineScore folds the populated factors into a single confidence in
// [0,1] using the supplied weights. Missing factors contribute nothing:
// the score is the weighted mean over present factors only, so a lone
// factor yields its own confidence regardless of its nominal weight.
// No factors at all means zero confidence.
func CombineScore(factors auth.Factors, weights Weights) float64 {
	var weighted, total float64

	if factors.Biometric != nil {
		weighted += weights.Biometric * factors.Biometric.Confidence
		total += weights.Biometric
	}
	if factors.Synthetic != nil {
		weighted += weights.Synthetic * factors.Synthetic.Confidence
		total += weights.Synthetic
	}
	if factors.Behavioral != nil {
		weighted += weights.Behavioral * factors.Behavioral.Confidence
		total += weights.Behavioral
	}

	if total <= 0 {
		return 0
	}
	return weighted / total
}
