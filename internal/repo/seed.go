package repo

import (
	"context"
	"fmt"

	"github.com/noah-isme/booking-ledger/internal/booking"
	"github.com/noah-isme/booking-ledger/internal/partner"
)

const (
	upsertEventSQL = `INSERT INTO events (id, name, starts_at, participation_price, rental_price, rental_available,
    partner_program_enabled, eb_participation_enabled, eb_rental_enabled, eb_cap_kind, eb_cap_value)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, starts_at = EXCLUDED.starts_at,
    participation_price = EXCLUDED.participation_price, rental_price = EXCLUDED.rental_price,
    rental_available = EXCLUDED.rental_available, partner_program_enabled = EXCLUDED.partner_program_enabled,
    eb_participation_enabled = EXCLUDED.eb_participation_enabled, eb_rental_enabled = EXCLUDED.eb_rental_enabled,
    eb_cap_kind = EXCLUDED.eb_cap_kind, eb_cap_value = EXCLUDED.eb_cap_value, updated_at = now()`
	deleteTiersSQL = `DELETE FROM early_booking_tiers WHERE event_id = $1`
	insertTierSQL  = `INSERT INTO early_booking_tiers (event_id, days_before, percent, amount) VALUES ($1, $2, $3, $4)`
	upsertPartner  = `INSERT INTO partners (code, user_id, email, discount_pct, commission_pct, active)
VALUES ($1, $2, $3, $4, $5, TRUE)
ON CONFLICT (code) DO UPDATE SET user_id = EXCLUDED.user_id, email = EXCLUDED.email,
    discount_pct = EXCLUDED.discount_pct, commission_pct = EXCLUDED.commission_pct, active = TRUE`
)

// UpsertEvent writes ev and replaces its tiers. It backs the seeding tool;
// the API itself never writes events.
func UpsertEvent(ctx context.Context, db DB, ev booking.Event) error {
	var capKind *string
	var capValue *float64
	if c := ev.Policy.GlobalCap; c != nil {
		kind := string(c.Kind)
		value := c.Value
		capKind, capValue = &kind, &value
	}
	if _, err := db.Exec(ctx, upsertEventSQL, ev.ID, ev.Name, ev.StartsAt, ev.ParticipationPrice, ev.RentalPrice,
		ev.RentalAvailable, ev.PartnerProgramEnabled, ev.Policy.ParticipationEnabled, ev.Policy.RentalEnabled,
		capKind, capValue); err != nil {
		return fmt.Errorf("upsert event %s: %w", ev.ID, err)
	}
	if _, err := db.Exec(ctx, deleteTiersSQL, ev.ID); err != nil {
		return fmt.Errorf("reset tiers %s: %w", ev.ID, err)
	}
	for _, t := range ev.Policy.Normalize().Tiers {
		if _, err := db.Exec(ctx, insertTierSQL, ev.ID, t.DaysBefore, t.Percent, t.Amount); err != nil {
			return fmt.Errorf("insert tier %s/%d: %w", ev.ID, t.DaysBefore, err)
		}
	}
	return nil
}

// UpsertPartner writes an active partner record.
func UpsertPartner(ctx context.Context, db DB, rec partner.Record) error {
	code := partner.NormalizeCode(rec.Code)
	if code == "" {
		return fmt.Errorf("upsert partner: empty code")
	}
	if _, err := db.Exec(ctx, upsertPartner, code, rec.UserID, rec.Email, rec.DiscountPct, rec.CommissionPct); err != nil {
		return fmt.Errorf("upsert partner %s: %w", code, err)
	}
	return nil
}
