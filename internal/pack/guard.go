package pack

import (
	"context"
	"errors"
	"fmt"
)

// Remover deletes a line from the transaction. Implementations typically call
// back into Guard.OnRemoved for the line they remove.
type Remover interface {
	RemoveLine(ctx context.Context, lineID string) error
}

// RemoverFunc adapts a function to Remover.
type RemoverFunc func(ctx context.Context, lineID string) error

// RemoveLine implements Remover.
func (f RemoverFunc) RemoveLine(ctx context.Context, lineID string) error {
	return f(ctx, lineID)
}

// Guard cascades the removal of one pack line to its siblings. The
// processing set only prevents recursion through the removal hook within a
// single synchronous call; it is not a lock.
type Guard struct {
	Remover    Remover
	processing map[string]struct{}
}

// NewGuard returns a guard removing siblings through remover.
func NewGuard(remover Remover) *Guard {
	return &Guard{Remover: remover, processing: make(map[string]struct{})}
}

// Processing reports whether a cascade for group is running.
func (g *Guard) Processing(group string) bool {
	_, ok := g.processing[group]
	return ok
}

// OnRemoved is the removal hook. It removes every other line of removed's
// group from lines. A re-entrant call for the same group is a no-op.
func (g *Guard) OnRemoved(ctx context.Context, removed Line, lines []Line) error {
	group := removed.Group()
	if group == "" || g.Remover == nil {
		return nil
	}
	if g.processing == nil {
		g.processing = make(map[string]struct{})
	}
	if g.Processing(group) {
		return nil
	}
	g.processing[group] = struct{}{}
	defer delete(g.processing, group)

	var errs []error
	for _, l := range lines {
		if l.ID == removed.ID || l.Group() != group {
			continue
		}
		if err := g.Remover.RemoveLine(ctx, l.ID); err != nil {
			errs = append(errs, fmt.Errorf("remove line %s: %w", l.ID, err))
		}
	}
	return errors.Join(errs...)
}
