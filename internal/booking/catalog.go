package booking

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/booking-ledger/internal/earlybooking"
	"github.com/noah-isme/booking-ledger/internal/pricing"
)

// ErrEventNotFound is returned by a Catalog for unknown events.
var ErrEventNotFound = errors.New("event not found")

// Event is everything the ledger needs to know about one event.
type Event struct {
	ID                    string
	Name                  string
	StartsAt              time.Time
	ParticipationPrice    float64
	RentalPrice           float64
	RentalAvailable       bool
	PartnerProgramEnabled bool
	Policy                earlybooking.Policy
}

// Prices returns the event's list prices for a pack with or without rental.
func (e Event) Prices(withRental bool) pricing.Prices {
	return pricing.Prices{
		Participation: e.ParticipationPrice,
		Rental:        e.RentalPrice,
		HasRental:     withRental && e.RentalAvailable,
	}
}

// Catalog loads events. Implementations must be read-only.
type Catalog interface {
	Event(ctx context.Context, id string) (Event, error)
}
