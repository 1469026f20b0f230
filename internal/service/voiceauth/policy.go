package voiceauth

import (
	"github.com/voicegate/backend/internal/domain/auth"
)

// Weights holds the relative factor weights for one security level. They
// need not sum to one; normalization happens at combine time over the
// factors actually present.
type Weights struct {
	Biometric  float64
	Synthetic  float64
	Behavioral float64
}

// Sum returns the total of the three weights.
func (w Weights) Sum() float64 {
	return w.Biometric + w.Synthetic + w.Behavioral
}

// normalized scales the weights to sum to one. Zero-sum weights are
// returned unchanged.
func (w Weights) normalized() Weights {
	sum := w.Sum()
	if sum <= 0 {
		return w
	}
	return Weights{
		Biometric:  w.Biometric / sum,
		Synthetic:  w.Synthetic / sum,
		Behavioral: w.Behavioral / sum,
	}
}

// PolicyEntry is the static decision policy for one security level.
type PolicyEntry struct {
	Weights                Weights
	BaseThreshold          float64
	CriticalBonus          float64
	MaxConsecutiveFailures int
}

// PolicyTable maps each security level to its policy entry. The table is
// static configuration; every level must have an entry.
type PolicyTable map[auth.SecurityLevel]PolicyEntry

// DefaultPolicyTable returns the standard policy:
// high (0.5,0.3,0.2)/0.90/2, medium (0.4,0.3,0.3)/0.80/3,
// low (0.4,0.2,0.4)/0.70/5.
func DefaultPolicyTable() PolicyTable {
	return PolicyTable{
		auth.LevelHigh: {
			Weights:                Weights{Biometric: 0.5, Synthetic: 0.3, Behavioral: 0.2},
			BaseThreshold:          ThresholdHigh,
			CriticalBonus:          CriticalThresholdBonus,
			MaxConsecutiveFailures: MaxFailuresHigh,
		},
		auth.LevelMedium: {
			Weights:                Weights{Biometric: 0.4, Synthetic: 0.3, Behavioral: 0.3},
			BaseThreshold:          ThresholdMedium,
			CriticalBonus:          CriticalThresholdBonus,
			MaxConsecutiveFailures: MaxFailuresMedium,
		},
		auth.LevelLow: {
			Weights:                Weights{Biometric: 0.4, Synthetic: 0.2, Behavioral: 0.4},
			BaseThreshold:          ThresholdLow,
			CriticalBonus:          CriticalThresholdBonus,
			MaxConsecutiveFailures: MaxFailuresLow,
		},
	}
}

// Lookup resolves the effective weights, acceptance threshold, and failure
// cap for a level and operation criticality. Critical operations shift
// weight toward biometric and synthetic detection and raise the threshold.
// Returned weights are normalized to sum to one.
func (t PolicyTable) Lookup(level auth.SecurityLevel, critical bool) (Weights, float64, int) {
	entry, ok := t[level]
	if !ok {
		// Every level must have an entry; fall back to the low policy
		// rather than panicking on misconfiguration.
		entry = t[auth.LevelLow]
	}

	w := entry.Weights
	threshold := entry.BaseThreshold

	if critical {
		w.Biometric += CriticalBiometricWeightBonus
		w.Synthetic += CriticalSyntheticWeightBonus
		w.Behavioral += CriticalBehavioralWeightMalus
		if w.Behavioral < 0 {
			w.Behavioral = 0
		}
		threshold += entry.CriticalBonus
	}

	return w.normalized(), threshold, entry.MaxConsecutiveFailures
}
