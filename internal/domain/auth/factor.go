package auth

// Factor is one detector's verdict for a single authentication attempt:
// a success flag plus a confidence in [0,1]. Factors are immutable once
// created and owned by the attempt's Factors aggregate.
type Factor struct {
	Success    bool    `json:"success"`
	Confidence float64 `json:"confidence"`
}

// NewFactor creates a factor, clamping confidence into [0,1].
func NewFactor(success bool, confidence float64) Factor {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return Factor{Success: success, Confidence: confidence}
}

// AlternativeMethod identifies a non-voice fallback authentication method.
type AlternativeMethod string

const (
	AlternativeNone             AlternativeMethod = ""
	AlternativePasscode         AlternativeMethod = "passcode"
	AlternativePIN              AlternativeMethod = "pin"
	AlternativeSecurityQuestion AlternativeMethod = "security_question"
)

// Factors aggregates the per-detector results for one attempt. Any subset
// may be nil if a detector failed or was skipped. The aggregate is created
// at attempt start, filled as detectors report, consumed once by the
// evaluator, and then discarded.
type Factors struct {
	Biometric  *Factor `json:"biometric,omitempty"`
	Synthetic  *Factor `json:"synthetic,omitempty"`
	Behavioral *Factor `json:"behavioral,omitempty"`

	UsedAlternative bool              `json:"used_alternative,omitempty"`
	AlternativeType AlternativeMethod `json:"alternative_type,omitempty"`
}

// Populated returns the number of factors present.
func (f Factors) Populated() int {
	n := 0
	if f.Biometric != nil {
		n++
	}
	if f.Synthetic != nil {
		n++
	}
	if f.Behavioral != nil {
		n++
	}
	return n
}
