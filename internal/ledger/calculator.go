package ledger

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/booking-ledger/internal/earlybooking"
	"github.com/noah-isme/booking-ledger/internal/money"
	"github.com/noah-isme/booking-ledger/internal/partner"
	"github.com/noah-isme/booking-ledger/internal/pricing"
)

// Input captures everything one ledger computation depends on.
type Input struct {
	Prices                pricing.Prices
	Policy                earlybooking.Policy
	EventStart            time.Time
	Now                   time.Time
	Partner               partner.Context
	PartnerProgramEnabled bool
}

// ScopeLine is the per-scope breakdown of a result.
type ScopeLine struct {
	Scope           pricing.Scope `json:"scope"`
	Base            float64       `json:"base"`
	EBEligible      bool          `json:"ebEligible"`
	EBDiscount      float64       `json:"ebDiscount"`
	AfterEB         float64       `json:"afterEb"`
	PartnerDiscount float64       `json:"partnerDiscount"`
	Commission      float64       `json:"commission"`
}

// Result is the authoritative price breakdown of a pack.
type Result struct {
	BasePrice             float64     `json:"basePrice"`
	EBDaysBefore          int         `json:"ebDaysBefore"`
	EBDiscountPct         float64     `json:"ebDiscountPct"`
	EBDiscountAmount      float64     `json:"ebDiscountAmount"`
	PartnerDiscountPct    float64     `json:"partnerDiscountPct"`
	PartnerDiscountAmount float64     `json:"partnerDiscountAmount"`
	PartnerCommissionPct  float64     `json:"partnerCommissionPct"`
	PartnerCommission     float64     `json:"partnerCommission"`
	TotalAfterEB          float64     `json:"totalAfterEb"`
	TotalAfterPartner     float64     `json:"totalAfterPartner"`
	PartnerProgramOff     bool        `json:"partnerProgramOff,omitempty"`
	Scopes                []ScopeLine `json:"scopes"`
}

// Scope returns the breakdown line for scope, if present.
func (r Result) Scope(scope pricing.Scope) (ScopeLine, bool) {
	for _, line := range r.Scopes {
		if line.Scope == scope {
			return line, true
		}
	}
	return ScopeLine{}, false
}

// Calculator computes ledger results. The zero value is usable: it rounds
// partner lines half-up and logs nothing.
type Calculator struct {
	Logger       zerolog.Logger
	LineRounding money.Mode
}

// NewCalculator constructs a calculator with the given partner line rounding.
func NewCalculator(logger zerolog.Logger, lineRounding money.Mode) *Calculator {
	return &Calculator{Logger: logger, LineRounding: lineRounding}
}

// Calculate computes the ledger for in. It is pure apart from logging:
// identical inputs always produce identical results.
func (c *Calculator) Calculate(in Input) Result {
	prices := pricing.Prices{
		Participation: money.NonNegative(in.Prices.Participation),
		Rental:        money.NonNegative(in.Prices.Rental),
		HasRental:     in.Prices.HasRental,
	}

	partnerPct := in.Partner.EffectiveDiscountPct()
	commissionPct := in.Partner.EffectiveCommissionPct()
	res := Result{}
	if !in.PartnerProgramEnabled {
		if in.Partner.Active {
			c.Logger.Info().
				Str("partner_code", in.Partner.Code).
				Str("partner_source", string(in.Partner.Source)).
				Msg("partner_program_disabled")
		}
		partnerPct, commissionPct = 0, 0
		res.PartnerProgramOff = true
	}

	eb := earlybooking.Resolve(in.EventStart, in.Now, prices, in.Policy)
	policy := in.Policy.Normalize()
	res.EBDaysBefore = eb.DaysBefore

	lines := scopeLines(prices)
	applyEarlyBooking(lines, eb, policy)

	var base, afterEB, partnerSum, commission float64
	for i := range lines {
		line := &lines[i]
		if partnerPct > 0 {
			line.PartnerDiscount = c.LineRounding.Round(line.AfterEB * partnerPct / 100)
		}
		if commissionPct > 0 {
			line.Commission = money.Round(line.AfterEB * commissionPct / 100)
		}
		base += line.Base
		afterEB += line.AfterEB
		partnerSum += line.PartnerDiscount
		commission += line.Commission
	}

	res.BasePrice = money.Round(base)
	res.TotalAfterEB = money.NonNegative(afterEB)
	res.EBDiscountAmount = money.NonNegative(res.BasePrice - res.TotalAfterEB)
	if res.EBDiscountAmount > 0 {
		res.EBDiscountPct = eb.Percent
	}
	res.PartnerDiscountPct = partnerPct
	res.PartnerDiscountAmount = money.Round(partnerSum)
	res.TotalAfterPartner = money.NonNegative(res.TotalAfterEB - res.PartnerDiscountAmount)
	res.PartnerCommissionPct = commissionPct
	res.PartnerCommission = money.Round(commission)
	res.Scopes = lines
	return res
}

func scopeLines(prices pricing.Prices) []ScopeLine {
	lines := make([]ScopeLine, 0, len(pricing.Scopes))
	for _, scope := range pricing.Scopes {
		if !prices.Present(scope) {
			continue
		}
		base := prices.Of(scope)
		lines = append(lines, ScopeLine{Scope: scope, Base: base, AfterEB: base})
	}
	return lines
}

// applyEarlyBooking spreads the resolved EB amount over the eligible scopes in
// cents. Percent tiers go through the same allocation so the scope discounts
// always add up to the aggregate amount.
func applyEarlyBooking(lines []ScopeLine, eb earlybooking.Result, policy earlybooking.Policy) {
	if eb.Amount <= 0 {
		return
	}
	weights := make([]int64, len(lines))
	var preference []int
	for i := range lines {
		lines[i].EBEligible = policy.Enabled(lines[i].Scope) && lines[i].Base > 0
		if lines[i].EBEligible {
			weights[i] = toCents(lines[i].Base)
		}
		if lines[i].Scope == pricing.ScopeRental {
			preference = append([]int{i}, preference...)
		} else {
			preference = append(preference, i)
		}
	}
	shares := allocateByWeight(toCents(eb.Amount), weights, preference)
	for i := range lines {
		if shares[i] == 0 {
			continue
		}
		lines[i].EBDiscount = fromCents(shares[i])
		lines[i].AfterEB = fromCents(toCents(lines[i].Base) - shares[i])
	}
}
