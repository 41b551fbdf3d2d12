package pack

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/noah-isme/booking-ledger/internal/common"
	"github.com/noah-isme/booking-ledger/internal/pricing"
)

// Role is the position of a line inside its pack.
type Role string

const (
	// RoleParent marks the participation line.
	RoleParent Role = "parent"
	// RoleChild marks the rental line.
	RoleChild Role = "child"
)

// ErrOrphanedRental is returned when a rental line has no participation line
// in the same transaction.
var ErrOrphanedRental = errors.New("rental line without participation line")

// Line is one entry of a transaction. A rental line's GroupID is the ID of
// its participation line.
type Line struct {
	ID      string        `json:"id" validate:"required"`
	GroupID string        `json:"groupId"`
	Scope   pricing.Scope `json:"scope" validate:"required,oneof=participation rental"`
	Role    Role          `json:"role"`
}

// RoleFor returns the role a line of scope plays in a pack.
func RoleFor(scope pricing.Scope) Role {
	if scope == pricing.ScopeRental {
		return RoleChild
	}
	return RoleParent
}

// Group returns the identifier shared by every line of the line's pack.
func (l Line) Group() string {
	if l.Scope == pricing.ScopeRental {
		return strings.TrimSpace(l.GroupID)
	}
	if g := strings.TrimSpace(l.GroupID); g != "" {
		return g
	}
	return strings.TrimSpace(l.ID)
}

// ValidateFinalization checks that every rental line in lines belongs to a
// participation line of the same transaction. It is only enforced at
// finalization; intermediate states are allowed to be incomplete.
func ValidateFinalization(lines []Line) error {
	parents := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if l.Scope == pricing.ScopeParticipation {
			parents[strings.TrimSpace(l.ID)] = struct{}{}
		}
	}
	var orphans []string
	for _, l := range lines {
		if l.Scope != pricing.ScopeRental {
			continue
		}
		if _, ok := parents[strings.TrimSpace(l.GroupID)]; !ok {
			orphans = append(orphans, l.ID)
		}
	}
	if len(orphans) == 0 {
		return nil
	}
	return &common.AppError{
		Code:       "ORPHANED_RENTAL",
		Message:    "a rental can only be booked together with its participation",
		HTTPStatus: http.StatusUnprocessableEntity,
		Err:        fmt.Errorf("%w: %s", ErrOrphanedRental, strings.Join(orphans, ",")),
		Details:    map[string]any{"lines": orphans},
	}
}
