package voiceauth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voicegate/backend/internal/domain/auth"
)

func TestEvaluateDecision(t *testing.T) {
	tests := []struct {
		name       string
		level      auth.SecurityLevel
		factors    auth.Factors
		score      float64
		threshold  float64
		wantOK     bool
		wantReason string
	}{
		{
			name:      "low level passes on score alone",
			level:     auth.LevelLow,
			factors:   auth.Factors{Behavioral: factorOf(true, 0.72)},
			score:     0.72,
			threshold: 0.70,
			wantOK:    true,
		},
		{
			name:       "low level below threshold rejects",
			level:      auth.LevelLow,
			factors:    auth.Factors{Behavioral: factorOf(true, 0.65)},
			score:      0.65,
			threshold:  0.70,
			wantOK:     false,
			wantReason: ReasonScoreBelowThreshold,
		},
		{
			name:       "medium requires biometric presence",
			level:      auth.LevelMedium,
			factors:    auth.Factors{Synthetic: factorOf(true, 0.95), Behavioral: factorOf(true, 0.95)},
			score:      0.95,
			threshold:  0.80,
			wantOK:     false,
			wantReason: ReasonBiometricRequired,
		},
		{
			name:  "medium rejects failed biometric despite high score",
			level: auth.LevelMedium,
			factors: auth.Factors{
				Biometric:  factorOf(false, 0.9),
				Synthetic:  factorOf(true, 0.9),
				Behavioral: factorOf(true, 0.9),
			},
			score:      0.9,
			threshold:  0.80,
			wantOK:     false,
			wantReason: ReasonBiometricFailed,
		},
		{
			name:  "high requires synthetic presence",
			level: auth.LevelHigh,
			factors: auth.Factors{
				Biometric:  factorOf(true, 0.95),
				Behavioral: factorOf(true, 0.95),
			},
			score:      0.95,
			threshold:  0.90,
			wantOK:     false,
			wantReason: ReasonSyntheticRequired,
		},
		{
			name:  "high rejects detected synthetic despite high score",
			level: auth.LevelHigh,
			factors: auth.Factors{
				Biometric:  factorOf(true, 0.99),
				Synthetic:  factorOf(false, 0.95),
				Behavioral: factorOf(true, 0.99),
			},
			score:      0.97,
			threshold:  0.90,
			wantOK:     false,
			wantReason: ReasonSyntheticDetected,
		},
		{
			name:  "high passes with all constraints satisfied",
			level: auth.LevelHigh,
			factors: auth.Factors{
				Biometric:  factorOf(true, 0.95),
				Synthetic:  factorOf(true, 0.92),
				Behavioral: factorOf(true, 0.90),
			},
			score:     0.93,
			threshold: 0.90,
			wantOK:    true,
		},
		{
			name:  "failed synthetic at medium is score-weighted only",
			level: auth.LevelMedium,
			factors: auth.Factors{
				Biometric:  factorOf(true, 0.95),
				Synthetic:  factorOf(false, 0.2),
				Behavioral: factorOf(true, 0.9),
			},
			score:     0.85,
			threshold: 0.80,
			wantOK:    true,
		},
		{
			name:       "score exactly at threshold passes",
			level:      auth.LevelLow,
			factors:    auth.Factors{Biometric: factorOf(true, 0.70)},
			score:      0.70,
			threshold:  0.70,
			wantOK:     true,
			wantReason: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := EvaluateDecision(tt.level, tt.factors, tt.score, tt.threshold)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Empty(t, reason)
			} else {
				assert.Contains(t, reason, tt.wantReason)
			}
		})
	}
}
