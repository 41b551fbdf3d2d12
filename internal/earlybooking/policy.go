package earlybooking

import (
	"sort"
	"strings"

	"github.com/noah-isme/booking-ledger/internal/pricing"
)

// Tier grants a discount to bookings made at least DaysBefore days ahead of
// the event. Exactly one of Percent or Amount is meaningful; Amount wins when
// both are set.
type Tier struct {
	DaysBefore int     `json:"daysBefore"`
	Percent    float64 `json:"percent,omitempty"`
	Amount     float64 `json:"amount,omitempty"`
}

// Fixed reports whether the tier grants a fixed amount.
func (t Tier) Fixed() bool {
	return t.Amount > 0
}

// CapKind tells how Cap.Value is interpreted.
type CapKind string

const (
	// CapAmount caps the discount at an absolute amount.
	CapAmount CapKind = "amount"
	// CapPercent caps the discount at a percentage of the eligible base.
	CapPercent CapKind = "percent"
)

// Cap bounds the early-booking discount.
type Cap struct {
	Kind  CapKind `json:"kind"`
	Value float64 `json:"value"`
}

// Policy is the early-booking configuration of one event.
type Policy struct {
	Tiers                []Tier `json:"tiers"`
	GlobalCap            *Cap   `json:"globalCap,omitempty"`
	ParticipationEnabled bool   `json:"participationEnabled"`
	RentalEnabled        bool   `json:"rentalEnabled"`
}

// Enabled reports whether the scope takes part in the early-booking discount.
func (p Policy) Enabled(scope pricing.Scope) bool {
	switch scope {
	case pricing.ScopeParticipation:
		return p.ParticipationEnabled
	case pricing.ScopeRental:
		return p.RentalEnabled
	default:
		return false
	}
}

// Normalize returns a copy with invalid tiers removed and tiers sorted by
// ascending threshold. Duplicate thresholds keep the last definition.
func (p Policy) Normalize() Policy {
	out := p
	byDays := make(map[int]Tier, len(p.Tiers))
	for _, t := range p.Tiers {
		if t.DaysBefore < 0 || t.Percent < 0 || t.Amount < 0 {
			continue
		}
		if t.Percent == 0 && t.Amount == 0 {
			continue
		}
		if t.Percent > 100 {
			t.Percent = 100
		}
		byDays[t.DaysBefore] = t
	}
	out.Tiers = make([]Tier, 0, len(byDays))
	for _, t := range byDays {
		out.Tiers = append(out.Tiers, t)
	}
	sort.Slice(out.Tiers, func(i, j int) bool {
		return out.Tiers[i].DaysBefore < out.Tiers[j].DaysBefore
	})
	if p.GlobalCap != nil {
		c := *p.GlobalCap
		c.Kind = CapKind(strings.ToLower(strings.TrimSpace(string(c.Kind))))
		if c.Value < 0 || (c.Kind != CapAmount && c.Kind != CapPercent) {
			out.GlobalCap = nil
		} else {
			out.GlobalCap = &c
		}
	}
	return out
}

// TierFor returns the most generous tier the booking still qualifies for: the
// largest threshold that is <= daysBefore. Tiers must be normalized.
func (p Policy) TierFor(daysBefore int) (Tier, bool) {
	if daysBefore < 0 {
		return Tier{}, false
	}
	var (
		found Tier
		ok    bool
	)
	for _, t := range p.Tiers {
		if t.DaysBefore <= daysBefore {
			found = t
			ok = true
		}
	}
	return found, ok
}
