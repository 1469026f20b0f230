package auth

import "fmt"

// SecurityLevel controls how strict the decision engine is. Exactly one
// level is active per engine at any time.
type SecurityLevel int

const (
	// LevelLow allows flexible authentication and tolerates factor failures.
	LevelLow SecurityLevel = iota
	// LevelMedium requires a successful biometric factor.
	LevelMedium
	// LevelHigh requires successful biometric and synthetic factors.
	LevelHigh
)

func (l SecurityLevel) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ParseSecurityLevel converts a string representation to a SecurityLevel.
func ParseSecurityLevel(s string) (SecurityLevel, error) {
	switch s {
	case "low", "LOW":
		return LevelLow, nil
	case "medium", "MEDIUM":
		return LevelMedium, nil
	case "high", "HIGH":
		return LevelHigh, nil
	default:
		return LevelLow, fmt.Errorf("invalid security level: %q", s)
	}
}

// Valid reports whether the level is one of the three defined levels.
func (l SecurityLevel) Valid() bool {
	return l == LevelLow || l == LevelMedium || l == LevelHigh
}
