package types

import "fmt"

// RiskLevel is the unified verdict severity. Ordering matters: composing
// verdicts never discards a higher severity in favor of a lower one.
type RiskLevel int

const (
	// RiskPass means the content is clean.
	RiskPass RiskLevel = iota
	// RiskReview means the content needs human attention. This is also the
	// fail-closed default when a provider cannot produce a verdict.
	RiskReview
	// RiskBlock means the content is definitely violating.
	RiskBlock
)

// String implements fmt.Stringer.
func (r RiskLevel) String() string {
	switch r {
	case RiskPass:
		return "pass"
	case RiskReview:
		return "review"
	case RiskBlock:
		return "block"
	default:
		return fmt.Sprintf("risk(%d)", int(r))
	}
}

// Valid reports whether r is one of the defined levels.
func (r RiskLevel) Valid() bool {
	return r >= RiskPass && r <= RiskBlock
}

// ParseRiskLevel converts a string form back to a RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch s {
	case "pass":
		return RiskPass, nil
	case "review":
		return RiskReview, nil
	case "block":
		return RiskBlock, nil
	default:
		return RiskReview, fmt.Errorf("unknown risk level %q", s)
	}
}

// MaxRisk returns the more severe of two levels.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b > a {
		return b
	}
	return a
}
