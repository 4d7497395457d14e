package valueobject

import "fmt"

// RiskTier is an immutable, totally ordered risk bucket.
type RiskTier struct {
	value string
	rank  int
}

var (
	RiskTierLow      = RiskTier{value: "LOW", rank: 1}
	RiskTierMedium   = RiskTier{value: "MEDIUM", rank: 2}
	RiskTierHigh     = RiskTier{value: "HIGH", rank: 3}
	RiskTierCritical = RiskTier{value: "CRITICAL", rank: 4}
)

// RiskTiers lists every tier in ascending order.
func RiskTiers() []RiskTier {
	return []RiskTier{RiskTierLow, RiskTierMedium, RiskTierHigh, RiskTierCritical}
}

// RiskTierFromString reconstructs a RiskTier from its string representation.
func RiskTierFromString(s string) (RiskTier, error) {
	for _, t := range RiskTiers() {
		if t.value == s {
			return t, nil
		}
	}
	return RiskTier{}, fmt.Errorf("invalid risk tier: %q", s)
}

// String returns the string representation.
func (t RiskTier) String() string {
	return t.value
}

// AtLeast reports whether t ranks at or above other.
func (t RiskTier) AtLeast(other RiskTier) bool {
	return t.rank >= other.rank
}

// IsAlertable reports whether decisions in this tier raise an alert.
func (t RiskTier) IsAlertable() bool {
	return t.AtLeast(RiskTierHigh)
}

// IsZero returns true if the RiskTier has not been set.
func (t RiskTier) IsZero() bool {
	return t.value == ""
}

// Equal checks equality with another RiskTier.
func (t RiskTier) Equal(other RiskTier) bool {
	return t.value == other.value
}
