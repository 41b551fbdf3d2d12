package ledger

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/noah-isme/booking-ledger/internal/money"
)

// DefaultTolerance is the largest submitted/computed difference accepted
// without healing.
const DefaultTolerance = 0.02

// Reconciliation is the outcome of comparing a client submitted total with
// the authoritative recomputation.
type Reconciliation struct {
	Submitted float64 `json:"submitted"`
	Computed  float64 `json:"computed"`
	Delta     float64 `json:"delta"`
	Value     float64 `json:"value"`
	Healed    bool    `json:"healed"`
}

// Reconcile compares submitted with computed. Within tolerance the submitted
// value stands; beyond it the computed value wins and Healed is set. A
// non-positive tolerance falls back to DefaultTolerance.
func Reconcile(submitted, computed, tolerance float64) Reconciliation {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	submitted = money.NonNegative(submitted)
	computed = money.NonNegative(computed)
	out := Reconciliation{
		Submitted: submitted,
		Computed:  computed,
		Delta:     money.Round(computed - submitted),
		Value:     submitted,
	}
	if math.Abs(out.Delta) > tolerance+money.Epsilon {
		out.Value = computed
		out.Healed = true
	}
	return out
}

// LogHeal writes the self-heal warning with the full component breakdown.
// It does nothing when rec was not healed.
func LogHeal(logger zerolog.Logger, rec Reconciliation, res Result) {
	if !rec.Healed {
		return
	}
	logger.Warn().
		Float64("submitted", rec.Submitted).
		Float64("computed", rec.Computed).
		Float64("delta", rec.Delta).
		Float64("base_price", res.BasePrice).
		Float64("eb_discount_pct", res.EBDiscountPct).
		Float64("eb_discount_amount", res.EBDiscountAmount).
		Float64("partner_discount_pct", res.PartnerDiscountPct).
		Float64("partner_discount_amount", res.PartnerDiscountAmount).
		Float64("total_after_eb", res.TotalAfterEB).
		Float64("total_after_partner", res.TotalAfterPartner).
		Float64("partner_commission", res.PartnerCommission).
		Msg("ledger_self_heal")
}
