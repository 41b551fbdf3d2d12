package ledger

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/booking-ledger/internal/earlybooking"
	"github.com/noah-isme/booking-ledger/internal/money"
	"github.com/noah-isme/booking-ledger/internal/partner"
	"github.com/noah-isme/booking-ledger/internal/pricing"
)

var (
	eventStart = time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	sixtyDays  = eventStart.Add(-60 * 24 * time.Hour)
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func tenPercentPolicy() earlybooking.Policy {
	return earlybooking.Policy{
		Tiers:                []earlybooking.Tier{{DaysBefore: 30, Percent: 10}},
		ParticipationEnabled: true,
		RentalEnabled:        true,
	}
}

func activePartner(discount, commission float64) partner.Context {
	return partner.Active(partner.Record{Code: "alpine", UserID: "p-1", DiscountPct: discount, CommissionPct: commission}, partner.SourceCoupon)
}

func TestCalculateScenarios(t *testing.T) {
	calc := NewCalculator(testLogger(), money.HalfDown)

	res := calc.Calculate(Input{
		Prices:                pricing.Prices{Participation: 100, Rental: 20, HasRental: true},
		EventStart:            eventStart,
		Now:                   sixtyDays,
		PartnerProgramEnabled: true,
	})
	require.Equal(t, 120.0, res.TotalAfterEB)
	require.Equal(t, 120.0, res.TotalAfterPartner)
	require.Zero(t, res.EBDiscountAmount)
	require.Zero(t, res.PartnerCommission)

	res = calc.Calculate(Input{
		Prices:                pricing.Prices{Participation: 95, Rental: 35, HasRental: true},
		Policy:                tenPercentPolicy(),
		EventStart:            eventStart,
		Now:                   sixtyDays,
		PartnerProgramEnabled: true,
	})
	require.Equal(t, 117.0, res.TotalAfterEB)
	require.Equal(t, 13.0, res.EBDiscountAmount)
	participation, ok := res.Scope(pricing.ScopeParticipation)
	require.True(t, ok)
	require.Equal(t, 85.5, participation.AfterEB)
	rental, ok := res.Scope(pricing.ScopeRental)
	require.True(t, ok)
	require.Equal(t, 31.5, rental.AfterEB)
	require.True(t, rental.EBEligible)

	res = calc.Calculate(Input{
		Prices:                pricing.Prices{Participation: 47.5, Rental: 12.5, HasRental: true},
		EventStart:            eventStart,
		Now:                   sixtyDays,
		Partner:               activePartner(1, 10),
		PartnerProgramEnabled: true,
	})
	participation, _ = res.Scope(pricing.ScopeParticipation)
	rental, _ = res.Scope(pricing.ScopeRental)
	require.Equal(t, 0.47, participation.PartnerDiscount)
	require.Equal(t, 0.12, rental.PartnerDiscount)
	require.Equal(t, 0.59, res.PartnerDiscountAmount)
	require.Equal(t, 59.41, res.TotalAfterPartner)
	require.Equal(t, 60.0, res.TotalAfterEB, "partner discount never changes the charged total")
}

func TestCalculateInvariants(t *testing.T) {
	calc := NewCalculator(testLogger(), money.HalfDown)
	prices := []pricing.Prices{
		{Participation: 0},
		{Participation: 0.01, Rental: 0.01, HasRental: true},
		{Participation: 19.99, Rental: 5.01, HasRental: true},
		{Participation: 47.5, Rental: 12.5, HasRental: true},
		{Participation: 95, Rental: 35, HasRental: true},
		{Participation: 333.33, Rental: 66.67, HasRental: true},
		{Participation: -5, Rental: 10, HasRental: true},
		{Participation: 1234.56},
	}
	policies := []earlybooking.Policy{
		{},
		tenPercentPolicy(),
		{Tiers: []earlybooking.Tier{{DaysBefore: 1, Percent: 12.5}}, RentalEnabled: true},
		{Tiers: []earlybooking.Tier{{DaysBefore: 1, Amount: 7.77}}, ParticipationEnabled: true, RentalEnabled: true},
		{Tiers: []earlybooking.Tier{{DaysBefore: 1, Percent: 33}}, GlobalCap: &earlybooking.Cap{Kind: earlybooking.CapAmount, Value: 3.33}, ParticipationEnabled: true, RentalEnabled: true},
		{Tiers: []earlybooking.Tier{{DaysBefore: 1, Percent: 100}}, ParticipationEnabled: true, RentalEnabled: true},
	}
	partners := []partner.Context{partner.Inactive(partner.FlagNone), activePartner(1, 10), activePartner(7.5, 12.5), activePartner(100, 100)}

	for _, p := range prices {
		for _, policy := range policies {
			for _, pc := range partners {
				in := Input{Prices: p, Policy: policy, EventStart: eventStart, Now: sixtyDays, Partner: pc, PartnerProgramEnabled: true}
				res := calc.Calculate(in)

				require.Equal(t, res, calc.Calculate(in), "idempotent")
				for _, v := range []float64{res.BasePrice, res.EBDiscountAmount, res.PartnerDiscountAmount, res.TotalAfterEB, res.TotalAfterPartner, res.PartnerCommission} {
					require.GreaterOrEqual(t, v, 0.0)
				}
				require.Equal(t, money.Round(res.BasePrice-res.EBDiscountAmount), res.TotalAfterEB)
				require.Equal(t, money.NonNegative(res.TotalAfterEB-res.PartnerDiscountAmount), res.TotalAfterPartner)

				aggregate := money.Round(res.TotalAfterEB * res.PartnerDiscountPct / 100)
				require.LessOrEqual(t, math.Abs(aggregate-res.PartnerDiscountAmount), 0.01+money.Epsilon, "per-scope parity")

				eb := earlybooking.Resolve(in.EventStart, in.Now, p, policy)
				var ebSum float64
				for _, line := range res.Scopes {
					ebSum += line.EBDiscount
					require.LessOrEqual(t, line.AfterEB, line.Base)
				}
				require.Equal(t, eb.Amount, money.Round(ebSum), "drift conservation")
			}
		}
	}
}

func TestCalculatePercentTierKeepsAggregateAmount(t *testing.T) {
	calc := NewCalculator(testLogger(), money.HalfDown)
	res := calc.Calculate(Input{
		Prices: pricing.Prices{Participation: 10.05, Rental: 10.05, HasRental: true},
		Policy: earlybooking.Policy{
			Tiers:                []earlybooking.Tier{{DaysBefore: 30, Percent: 5}},
			ParticipationEnabled: true,
			RentalEnabled:        true,
		},
		EventStart:            eventStart,
		Now:                   sixtyDays,
		PartnerProgramEnabled: true,
	})
	require.Equal(t, 1.01, res.EBDiscountAmount)
	require.Equal(t, 19.09, res.TotalAfterEB)

	participation, _ := res.Scope(pricing.ScopeParticipation)
	rental, _ := res.Scope(pricing.ScopeRental)
	require.Equal(t, 0.51, participation.EBDiscount)
	require.Equal(t, 0.5, rental.EBDiscount, "rental absorbs the rounding drift")
	require.Equal(t, 9.54, participation.AfterEB)
	require.Equal(t, 9.55, rental.AfterEB)
}

func TestCalculatePartnerProgramDisabled(t *testing.T) {
	var buf bytes.Buffer
	calc := NewCalculator(zerolog.New(&buf), money.HalfDown)
	res := calc.Calculate(Input{
		Prices:                pricing.Prices{Participation: 100},
		EventStart:            eventStart,
		Now:                   sixtyDays,
		Partner:               activePartner(10, 15),
		PartnerProgramEnabled: false,
	})
	require.True(t, res.PartnerProgramOff)
	require.Zero(t, res.PartnerDiscountPct)
	require.Zero(t, res.PartnerDiscountAmount)
	require.Zero(t, res.PartnerCommission)
	require.Zero(t, res.PartnerCommissionPct)
	require.Equal(t, 100.0, res.TotalAfterPartner)
	require.Contains(t, buf.String(), "partner_program_disabled")
}

func TestCalculateInactivePartnerContributesNothing(t *testing.T) {
	calc := &Calculator{}
	inactive := partner.Inactive(partner.FlagSelfDealing)
	res := calc.Calculate(Input{
		Prices:                pricing.Prices{Participation: 50, Rental: 10, HasRental: true},
		EventStart:            eventStart,
		Now:                   sixtyDays,
		Partner:               inactive,
		PartnerProgramEnabled: true,
	})
	require.Zero(t, res.PartnerDiscountAmount)
	require.Zero(t, res.PartnerCommission)
	require.Equal(t, 60.0, res.TotalAfterPartner)
}

func TestCalculateCommissionOnPostEBBase(t *testing.T) {
	calc := NewCalculator(testLogger(), money.HalfDown)
	res := calc.Calculate(Input{
		Prices:                pricing.Prices{Participation: 95, Rental: 35, HasRental: true},
		Policy:                tenPercentPolicy(),
		EventStart:            eventStart,
		Now:                   sixtyDays,
		Partner:               activePartner(5, 10),
		PartnerProgramEnabled: true,
	})
	require.Equal(t, 10.0, res.PartnerCommissionPct)
	require.Equal(t, 11.7, res.PartnerCommission)
	require.Equal(t, 5.84, res.PartnerDiscountAmount)
}

func TestCalculateMonotonicInEarlyBookingPercent(t *testing.T) {
	calc := NewCalculator(testLogger(), money.HalfDown)
	prev := math.Inf(1)
	for pct := 0.0; pct <= 100; pct += 0.5 {
		res := calc.Calculate(Input{
			Prices:                pricing.Prices{Participation: 95.35, Rental: 34.99, HasRental: true},
			Policy:                earlybooking.Policy{Tiers: []earlybooking.Tier{{DaysBefore: 1, Percent: pct}}, ParticipationEnabled: true, RentalEnabled: true},
			EventStart:            eventStart,
			Now:                   sixtyDays,
			PartnerProgramEnabled: true,
		})
		require.LessOrEqual(t, res.TotalAfterEB, prev, "pct %.1f", pct)
		prev = res.TotalAfterEB
	}
}
