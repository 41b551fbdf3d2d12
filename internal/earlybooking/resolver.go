package earlybooking

import (
	"time"

	"github.com/noah-isme/booking-ledger/internal/money"
	"github.com/noah-isme/booking-ledger/internal/pricing"
)

const secondsPerDay = 24 * 60 * 60

// Result is the resolved early-booking discount for one booking.
type Result struct {
	DaysBefore int     `json:"daysBefore"`
	Eligible   bool    `json:"eligible"`
	HasTier    bool    `json:"hasTier"`
	Tier       Tier    `json:"tier"`
	Base       float64 `json:"base"`
	Percent    float64 `json:"percent"`
	Amount     float64 `json:"amount"`
	Fixed      bool    `json:"fixed"`
	Capped     bool    `json:"capped"`
}

// DaysBefore returns the number of whole days between now and the event
// start. The value is negative once the event has started.
func DaysBefore(eventStart, now time.Time) int {
	diff := eventStart.Unix() - now.Unix()
	days := diff / secondsPerDay
	if diff < 0 && diff%secondsPerDay != 0 {
		days--
	}
	return int(days)
}

// Base sums the prices of every scope the policy enables.
func Base(prices pricing.Prices, policy Policy) float64 {
	var base float64
	for _, scope := range pricing.Scopes {
		if policy.Enabled(scope) {
			base += prices.Of(scope)
		}
	}
	return money.Round(base)
}

// Resolve computes the early-booking discount for a booking made at now for
// an event starting at eventStart.
func Resolve(eventStart, now time.Time, prices pricing.Prices, policy Policy) Result {
	policy = policy.Normalize()
	res := Result{
		DaysBefore: DaysBefore(eventStart, now),
		Base:       Base(prices, policy),
	}
	if res.DaysBefore < 0 {
		return res
	}
	res.Eligible = true

	tier, ok := policy.TierFor(res.DaysBefore)
	if !ok {
		return res
	}
	res.HasTier = true
	res.Tier = tier
	if res.Base <= 0 {
		return res
	}

	if tier.Fixed() {
		res.Fixed = true
		res.Amount = money.Round(min(res.Base, tier.Amount))
	} else {
		res.Percent = tier.Percent
		res.Amount = money.Round(money.Percentage(res.Base, tier.Percent))
	}

	if limit, ok := capAmount(policy.GlobalCap, res.Base); ok && res.Amount > limit {
		res.Amount = limit
		res.Capped = true
	}
	if res.Amount > res.Base {
		res.Amount = res.Base
	}
	if res.Fixed || res.Capped {
		res.Percent = money.Round(res.Amount / res.Base * 100)
	}
	return res
}

func capAmount(c *Cap, base float64) (float64, bool) {
	if c == nil {
		return 0, false
	}
	switch c.Kind {
	case CapAmount:
		return money.NonNegative(c.Value), true
	case CapPercent:
		return money.Round(money.Percentage(base, c.Value)), true
	default:
		return 0, false
	}
}
