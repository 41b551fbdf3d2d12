// Package reqscope holds state that lives exactly as long as one request.
package reqscope

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Scope is created per request and discarded with it. It is not safe for
// concurrent use.
type Scope struct {
	ID     string
	Now    time.Time
	Logger zerolog.Logger
	warned map[string]struct{}
}

// New returns a scope with a fresh identifier. The logger is tagged with the
// scope id.
func New(logger zerolog.Logger, now time.Time) *Scope {
	id := uuid.NewString()
	return &Scope{
		ID:     id,
		Now:    now,
		Logger: logger.With().Str("scope_id", id).Logger(),
		warned: make(map[string]struct{}),
	}
}

// WarnOnce returns a warning event the first time key is seen and nil after
// that. zerolog treats a nil event as a no-op, so callers can chain freely.
func (s *Scope) WarnOnce(key string) *zerolog.Event {
	if s == nil {
		return nil
	}
	if s.warned == nil {
		s.warned = make(map[string]struct{})
	}
	if _, seen := s.warned[key]; seen {
		return nil
	}
	s.warned[key] = struct{}{}
	return s.Logger.Warn().Str("warn_key", key)
}

type ctxKey struct{}

// WithScope stores s on ctx.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the scope stored on ctx, if any.
func FromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Scope)
	return s, ok && s != nil
}
