package pricing

import "github.com/noah-isme/booking-ledger/internal/money"

// Scope identifies a priced line category within a booking pack.
type Scope string

const (
	// ScopeParticipation is the mandatory participation line.
	ScopeParticipation Scope = "participation"
	// ScopeRental is the optional rental line.
	ScopeRental Scope = "rental"
)

// Scopes lists every scope in calculation order.
var Scopes = []Scope{ScopeParticipation, ScopeRental}

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeParticipation || s == ScopeRental
}

// Prices holds the base price of each line of a pack.
type Prices struct {
	Participation float64 `json:"participation"`
	Rental        float64 `json:"rental"`
	HasRental     bool    `json:"hasRental"`
}

// Of returns the rounded, non-negative base price for the scope. A pack
// without a rental line prices the rental scope at zero.
func (p Prices) Of(scope Scope) float64 {
	switch scope {
	case ScopeParticipation:
		return money.NonNegative(p.Participation)
	case ScopeRental:
		if !p.HasRental {
			return 0
		}
		return money.NonNegative(p.Rental)
	default:
		return 0
	}
}

// Present reports whether the pack carries a line for the scope.
func (p Prices) Present(scope Scope) bool {
	switch scope {
	case ScopeParticipation:
		return true
	case ScopeRental:
		return p.HasRental
	default:
		return false
	}
}

// Total is the rounded sum of all present lines.
func (p Prices) Total() float64 {
	var total float64
	for _, s := range Scopes {
		total += p.Of(s)
	}
	return money.Round(total)
}
