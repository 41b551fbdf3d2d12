package resilience

import (
	"context"

	"github.com/noah-isme/booking-ledger/internal/partner"
)

// Directory guards a partner directory with a breaker. While the breaker is
// open lookups fail fast with ErrOpenCircuit instead of waiting on the
// database.
type Directory struct {
	Next    partner.Directory
	Breaker *Breaker
}

// LookupCode implements partner.Directory.
func (d Directory) LookupCode(ctx context.Context, code string) (partner.Record, bool, error) {
	if d.Next == nil {
		return partner.Record{}, false, partner.ErrDirectoryUnavailable
	}
	var (
		rec   partner.Record
		found bool
	)
	err := d.do(ctx, func() (err error) {
		rec, found, err = d.Next.LookupCode(ctx, code)
		return err
	})
	return rec, found, err
}

// CodeForUser implements partner.Directory.
func (d Directory) CodeForUser(ctx context.Context, userID string) (string, bool, error) {
	if d.Next == nil {
		return "", false, partner.ErrDirectoryUnavailable
	}
	var (
		code  string
		found bool
	)
	err := d.do(ctx, func() (err error) {
		code, found, err = d.Next.CodeForUser(ctx, userID)
		return err
	})
	return code, found, err
}

func (d Directory) do(ctx context.Context, fn func() error) error {
	if d.Breaker == nil {
		return fn()
	}
	// a cancelled caller says nothing about the database
	return d.Breaker.Do(ctx, fn, func(error) bool { return ctx.Err() != nil })
}
