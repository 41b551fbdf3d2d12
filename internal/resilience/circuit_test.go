package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/booking-ledger/internal/partner"
	"github.com/noah-isme/booking-ledger/internal/resilience"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestBreakerTransitions(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)}
	breaker := resilience.NewBreaker(2, 0.5, time.Minute).WithTarget("test_transitions").WithClock(clock.now)
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())
	require.False(t, breaker.Allow(ctx), "breaker should open after threshold exceeded")

	clock.t = clock.t.Add(61 * time.Second)
	require.True(t, breaker.Allow(ctx), "breaker should move to half-open after cool off")
	require.Equal(t, resilience.HalfOpen, breaker.State())
	breaker.Report(ctx, true)
	require.Equal(t, resilience.Closed, breaker.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)}
	breaker := resilience.NewBreaker(1, 0.5, time.Second).WithTarget("test_reopen").WithClock(clock.now)
	ctx := context.Background()

	breaker.Report(ctx, false)
	clock.t = clock.t.Add(2 * time.Second)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())
	require.False(t, breaker.Allow(ctx))
}

type flakyDirectory struct {
	partner.StaticDirectory
	err   error
	calls int
}

func (d *flakyDirectory) LookupCode(ctx context.Context, code string) (partner.Record, bool, error) {
	d.calls++
	if d.err != nil {
		return partner.Record{}, false, d.err
	}
	return d.StaticDirectory.LookupCode(ctx, code)
}

func TestDirectoryFailsFastWhenOpen(t *testing.T) {
	next := &flakyDirectory{
		StaticDirectory: partner.StaticDirectory{"alpine": {Code: "alpine", UserID: "u1", DiscountPct: 5}},
		err:             errors.New("connection refused"),
	}
	dir := resilience.Directory{
		Next:    next,
		Breaker: resilience.NewBreaker(2, 0.5, time.Minute).WithTarget("test_directory"),
	}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, err := dir.LookupCode(ctx, "alpine")
		require.ErrorIs(t, err, next.err)
	}
	_, _, err := dir.LookupCode(ctx, "alpine")
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.Equal(t, 2, next.calls)

	code, found, err := dir.CodeForUser(ctx, "u1")
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.False(t, found)
	require.Empty(t, code)
}

func TestDirectoryPassesThroughWithoutBreaker(t *testing.T) {
	next := &flakyDirectory{StaticDirectory: partner.StaticDirectory{"alpine": {Code: "alpine", UserID: "u1"}}}
	dir := resilience.Directory{Next: next}

	rec, found, err := dir.LookupCode(context.Background(), "alpine")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "u1", rec.UserID)

	code, found, err := dir.CodeForUser(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "alpine", code)

	_, _, err = resilience.Directory{}.LookupCode(context.Background(), "alpine")
	require.ErrorIs(t, err, partner.ErrDirectoryUnavailable)
}
