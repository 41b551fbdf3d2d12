package partner

import (
	"context"
	"fmt"
	"strings"
)

// Actor is the authenticated caller of a booking operation.
type Actor struct {
	UserID  string
	IsAdmin bool
}

// Request carries every partner signal available for one booking.
type Request struct {
	Actor Actor
	// OverrideCode is an administrator supplied partner code.
	OverrideCode string
	// AppliedCodes are codes already present in the cart or session.
	AppliedCodes []string
	// PackOwnerID is the user the pack is booked for. Empty means the actor
	// is booking for themselves.
	PackOwnerID string
}

func (r Request) owner() string {
	if owner := strings.TrimSpace(r.PackOwnerID); owner != "" {
		return owner
	}
	return strings.TrimSpace(r.Actor.UserID)
}

// Strategy is one partner signal. Resolve returns the candidate context the
// signal produces; ok is false when the signal is absent.
type Strategy interface {
	Source() Source
	Resolve(ctx context.Context, dir Directory, req Request) (c Context, ok bool, err error)
}

// Resolver walks its strategies in order; the first active candidate wins.
type Resolver struct {
	Directory  Directory
	Strategies []Strategy
}

// NewResolver returns a resolver with the standard precedence:
// administrative override, applied coupon, self-serve.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{
		Directory:  dir,
		Strategies: DefaultStrategies(),
	}
}

// DefaultStrategies returns the standard precedence order.
func DefaultStrategies() []Strategy {
	return []Strategy{OverrideStrategy{}, CouponStrategy{}, SelfServeStrategy{}}
}

// Resolve determines the partner attributed to a booking. Unknown codes and
// rejected candidates are not errors; only directory failures are.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Context, error) {
	if r == nil || r.Directory == nil {
		return Inactive(FlagNone), ErrDirectoryUnavailable
	}
	dir := r.Directory
	if _, cached := dir.(*RequestCache); !cached {
		dir = NewRequestCache(dir)
	}
	strategies := r.Strategies
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	firstFlag := FlagNone
	for _, s := range strategies {
		candidate, ok, err := s.Resolve(ctx, dir, req)
		if err != nil {
			return Inactive(FlagNone), fmt.Errorf("partner %s: %w", s.Source(), err)
		}
		if !ok {
			continue
		}
		if candidate.Active {
			return candidate, nil
		}
		if firstFlag == FlagNone {
			firstFlag = candidate.Flag
		}
	}
	return Inactive(firstFlag), nil
}

func lookup(ctx context.Context, dir Directory, code string, source Source) (Context, bool, error) {
	code = NormalizeCode(code)
	if code == "" {
		return Context{}, false, nil
	}
	rec, found, err := dir.LookupCode(ctx, code)
	if err != nil {
		return Context{}, false, err
	}
	if !found {
		return Inactive(FlagUnknownCode), true, nil
	}
	if rec.Code == "" {
		rec.Code = code
	}
	return Active(rec, source), true, nil
}

// OverrideStrategy honours an explicit partner code from an administrator.
type OverrideStrategy struct{}

// Source implements Strategy.
func (OverrideStrategy) Source() Source { return SourceOverride }

// Resolve implements Strategy.
func (OverrideStrategy) Resolve(ctx context.Context, dir Directory, req Request) (Context, bool, error) {
	if NormalizeCode(req.OverrideCode) == "" {
		return Context{}, false, nil
	}
	if !req.Actor.IsAdmin {
		return Inactive(FlagNotAdmin), true, nil
	}
	return lookup(ctx, dir, req.OverrideCode, SourceOverride)
}

// CouponStrategy uses the first code already applied to the transaction.
type CouponStrategy struct{}

// Source implements Strategy.
func (CouponStrategy) Source() Source { return SourceCoupon }

// Resolve implements Strategy.
func (CouponStrategy) Resolve(ctx context.Context, dir Directory, req Request) (Context, bool, error) {
	for _, code := range req.AppliedCodes {
		if NormalizeCode(code) == "" {
			continue
		}
		return lookup(ctx, dir, code, SourceCoupon)
	}
	return Context{}, false, nil
}

// SelfServeStrategy attributes the actor's own partner code. A partner can
// never earn commission on a pack booked for themselves.
type SelfServeStrategy struct{}

// Source implements Strategy.
func (SelfServeStrategy) Source() Source { return SourceSelfServe }

// Resolve implements Strategy.
func (SelfServeStrategy) Resolve(ctx context.Context, dir Directory, req Request) (Context, bool, error) {
	userID := strings.TrimSpace(req.Actor.UserID)
	if userID == "" {
		return Context{}, false, nil
	}
	code, found, err := dir.CodeForUser(ctx, userID)
	if err != nil {
		return Context{}, false, err
	}
	if !found || NormalizeCode(code) == "" {
		return Context{}, false, nil
	}
	candidate, ok, err := lookup(ctx, dir, code, SourceSelfServe)
	if err != nil || !ok || !candidate.Active {
		return candidate, ok, err
	}
	if candidate.UserID == "" {
		candidate.UserID = userID
	}
	if candidate.UserID == req.owner() {
		return Inactive(FlagSelfDealing), true, nil
	}
	return candidate, true, nil
}
