package pack

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/booking-ledger/internal/common"
)

// ErrLineNotFound is returned by Remove for an id that is not in the
// transaction.
var ErrLineNotFound = errors.New("line not found")

// Removal is what is left of a transaction after removing a line.
type Removal struct {
	Lines   []Line   `json:"lines"`
	Removed []string `json:"removed"`
}

// Remove deletes the line id from lines and cascades the removal to the rest
// of its pack through a Guard. The input slice is not modified.
func Remove(ctx context.Context, lines []Line, id string) (Removal, error) {
	id = strings.TrimSpace(id)
	tx := &transaction{lines: append([]Line(nil), lines...)}
	tx.guard = NewGuard(RemoverFunc(tx.remove))
	if err := tx.remove(ctx, id); err != nil {
		return Removal{}, err
	}
	if len(tx.removed) == 0 {
		return Removal{}, common.NewAppError("LINE_NOT_FOUND", "line not found", http.StatusNotFound, ErrLineNotFound)
	}
	out := Removal{Lines: tx.lines, Removed: tx.removed}
	if out.Lines == nil {
		out.Lines = []Line{}
	}
	return out, nil
}

type transaction struct {
	lines   []Line
	removed []string
	guard   *Guard
}

// remove is the transaction's removal hook; it re-enters the guard for every
// line it deletes.
func (tx *transaction) remove(ctx context.Context, id string) error {
	idx := -1
	for i, l := range tx.lines {
		if strings.TrimSpace(l.ID) == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	removed := tx.lines[idx]
	tx.lines = append(tx.lines[:idx:idx], tx.lines[idx+1:]...)
	tx.removed = append(tx.removed, removed.ID)
	return tx.guard.OnRemoved(ctx, removed, append([]Line(nil), tx.lines...))
}
