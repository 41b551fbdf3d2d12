package money

import (
	"math"
	"strings"
)

// Epsilon is added before every rounding step to absorb binary floating point
// error (19.999999999 must become 20.00, never 19.99).
const Epsilon = 1e-9

// Mode selects how a half-cent is resolved.
type Mode string

const (
	// HalfUp rounds x.xx5 away from zero. This is the ledger default.
	HalfUp Mode = "half_up"
	// HalfDown rounds x.xx5 toward zero.
	HalfDown Mode = "half_down"
	// Floor truncates to the cent.
	Floor Mode = "floor"
)

// ParseMode converts a configuration value into a Mode, falling back to HalfUp.
func ParseMode(value string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case HalfDown:
		return HalfDown
	case Floor:
		return Floor
	default:
		return HalfUp
	}
}

// Round rounds x to two decimals using the mode. Every mode tolerates the
// same epsilon: HalfUp and Floor nudge up by it, HalfDown treats anything
// within it of the half-cent as the tie.
func (m Mode) Round(x float64) float64 {
	var cents float64
	switch m {
	case HalfDown:
		cents = math.Ceil(x*100 - 0.5 - Epsilon*100)
	case Floor:
		cents = math.Floor((x + Epsilon) * 100)
	default:
		cents = math.Round((x + Epsilon) * 100)
	}
	out := cents / 100
	if out == 0 {
		// normalise negative zero so results compare bit-identical
		return 0
	}
	return out
}

// Round is the ledger rounding primitive: round((x + 1e-9) * 100) / 100.
func Round(x float64) float64 {
	return HalfUp.Round(x)
}

// NonNegative rounds x and clamps it at zero.
func NonNegative(x float64) float64 {
	r := Round(x)
	if r < 0 {
		return 0
	}
	return r
}

// Percentage returns base*pct/100 without rounding. A non-positive base or
// percent yields zero.
func Percentage(base, pct float64) float64 {
	if base <= 0 || pct <= 0 {
		return 0
	}
	return base * pct / 100
}
