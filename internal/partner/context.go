package partner

import "strings"

// Source records which signal attributed the partner.
type Source string

const (
	SourceOverride  Source = "override"
	SourceCoupon    Source = "coupon"
	SourceSelfServe Source = "self_serve"
	SourceNone      Source = "none"
)

// Flag explains why a candidate partner was not attributed.
type Flag string

const (
	FlagNone        Flag = ""
	FlagUnknownCode Flag = "unknown_code"
	FlagSelfDealing Flag = "self_dealing"
	FlagNotAdmin    Flag = "override_not_permitted"
)

// Record is a partner directory entry.
type Record struct {
	Code          string  `json:"code"`
	UserID        string  `json:"userId"`
	DiscountPct   float64 `json:"discountPct"`
	CommissionPct float64 `json:"commissionPct"`
	Email         string  `json:"email"`
}

// Context is the partner attribution of one booking. It is a value object:
// build it with Active or Inactive and never mutate it afterwards.
type Context struct {
	Code          string  `json:"code"`
	UserID        string  `json:"userId"`
	DiscountPct   float64 `json:"discountPct"`
	CommissionPct float64 `json:"commissionPct"`
	Email         string  `json:"email"`
	Active        bool    `json:"active"`
	Source        Source  `json:"source"`
	Flag          Flag    `json:"flag,omitempty"`
}

// Active builds an attributed context from a directory record.
func Active(rec Record, source Source) Context {
	return Context{
		Code:          NormalizeCode(rec.Code),
		UserID:        strings.TrimSpace(rec.UserID),
		DiscountPct:   clampPercent(rec.DiscountPct),
		CommissionPct: clampPercent(rec.CommissionPct),
		Email:         strings.TrimSpace(rec.Email),
		Active:        true,
		Source:        source,
	}
}

// Inactive builds a context with no attribution.
func Inactive(flag Flag) Context {
	return Context{Source: SourceNone, Flag: flag}
}

// EffectiveDiscountPct is the discount percent to apply; zero when inactive.
func (c Context) EffectiveDiscountPct() float64 {
	if !c.Active {
		return 0
	}
	return c.DiscountPct
}

// EffectiveCommissionPct is the commission percent owed; zero when inactive.
func (c Context) EffectiveCommissionPct() float64 {
	if !c.Active {
		return 0
	}
	return c.CommissionPct
}

// NormalizeCode trims and case-folds a partner code. An empty result means
// no code.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
