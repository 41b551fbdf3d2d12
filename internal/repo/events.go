package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/booking-ledger/internal/booking"
	"github.com/noah-isme/booking-ledger/internal/earlybooking"
)

const (
	getEventSQL = `SELECT id, name, starts_at, participation_price, rental_price, rental_available,
       partner_program_enabled, eb_participation_enabled, eb_rental_enabled, eb_cap_kind, eb_cap_value
FROM events WHERE id = $1`
	listTiersSQL = `SELECT days_before, percent, amount FROM early_booking_tiers WHERE event_id = $1 ORDER BY days_before`
)

// EventCatalog loads events and their early-booking policy from Postgres.
type EventCatalog struct {
	DB DB
}

// Event implements booking.Catalog.
func (c EventCatalog) Event(ctx context.Context, id string) (booking.Event, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return booking.Event{}, booking.ErrEventNotFound
	}
	var (
		ev       booking.Event
		startsAt time.Time
		capKind  *string
		capValue *float64
	)
	err := c.DB.QueryRow(ctx, getEventSQL, id).Scan(
		&ev.ID, &ev.Name, &startsAt, &ev.ParticipationPrice, &ev.RentalPrice, &ev.RentalAvailable,
		&ev.PartnerProgramEnabled, &ev.Policy.ParticipationEnabled, &ev.Policy.RentalEnabled, &capKind, &capValue,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return booking.Event{}, fmt.Errorf("%w: %s", booking.ErrEventNotFound, id)
		}
		return booking.Event{}, fmt.Errorf("get event: %w", err)
	}
	ev.StartsAt = startsAt.UTC()
	if capKind != nil && capValue != nil {
		ev.Policy.GlobalCap = &earlybooking.Cap{Kind: earlybooking.CapKind(*capKind), Value: *capValue}
	}

	tiers, err := c.tiers(ctx, id)
	if err != nil {
		return booking.Event{}, err
	}
	ev.Policy.Tiers = tiers
	ev.Policy = ev.Policy.Normalize()
	return ev, nil
}

func (c EventCatalog) tiers(ctx context.Context, eventID string) ([]earlybooking.Tier, error) {
	rows, err := c.DB.Query(ctx, listTiersSQL, eventID)
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	defer rows.Close()
	var tiers []earlybooking.Tier
	for rows.Next() {
		var t earlybooking.Tier
		if err := rows.Scan(&t.DaysBefore, &t.Percent, &t.Amount); err != nil {
			return nil, fmt.Errorf("scan tier: %w", err)
		}
		tiers = append(tiers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	return tiers, nil
}
