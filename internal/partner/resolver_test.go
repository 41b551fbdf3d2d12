package partner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingDirectory struct {
	StaticDirectory
	lookups int
	users   int
	err     error
}

func (d *countingDirectory) LookupCode(ctx context.Context, code string) (Record, bool, error) {
	d.lookups++
	if d.err != nil {
		return Record{}, false, d.err
	}
	return d.StaticDirectory.LookupCode(ctx, code)
}

func (d *countingDirectory) CodeForUser(ctx context.Context, userID string) (string, bool, error) {
	d.users++
	if d.err != nil {
		return "", false, d.err
	}
	return d.StaticDirectory.CodeForUser(ctx, userID)
}

func sampleDirectory() *countingDirectory {
	return &countingDirectory{StaticDirectory: StaticDirectory{
		"alpine": {Code: "alpine", UserID: "user-alpine", DiscountPct: 5, CommissionPct: 10, Email: "alpine@example.com"},
		"summit": {Code: "summit", UserID: "user-summit", DiscountPct: 1, CommissionPct: 8},
	}}
}

func TestResolveOverrideRequiresAdmin(t *testing.T) {
	r := NewResolver(sampleDirectory())

	got, err := r.Resolve(context.Background(), Request{
		Actor:        Actor{UserID: "admin-1", IsAdmin: true},
		OverrideCode: "  SUMMIT ",
		AppliedCodes: []string{"alpine"},
	})
	require.NoError(t, err)
	require.True(t, got.Active)
	require.Equal(t, SourceOverride, got.Source)
	require.Equal(t, "summit", got.Code)

	got, err = r.Resolve(context.Background(), Request{
		Actor:        Actor{UserID: "user-9"},
		OverrideCode: "summit",
		AppliedCodes: []string{"Alpine"},
	})
	require.NoError(t, err)
	require.True(t, got.Active)
	require.Equal(t, SourceCoupon, got.Source)
	require.Equal(t, "alpine", got.Code)
}

func TestResolveUnknownCodeFallsThrough(t *testing.T) {
	r := NewResolver(sampleDirectory())
	got, err := r.Resolve(context.Background(), Request{
		Actor:        Actor{UserID: "user-summit"},
		AppliedCodes: []string{"nope"},
		PackOwnerID:  "user-7",
	})
	require.NoError(t, err)
	require.True(t, got.Active)
	require.Equal(t, SourceSelfServe, got.Source)
	require.Equal(t, "summit", got.Code)
}

func TestResolveKeepsFirstFlagWhenNothingMatches(t *testing.T) {
	r := NewResolver(sampleDirectory())
	got, err := r.Resolve(context.Background(), Request{
		Actor:        Actor{UserID: "user-1"},
		OverrideCode: "alpine",
		AppliedCodes: []string{"missing"},
	})
	require.NoError(t, err)
	require.False(t, got.Active)
	require.Equal(t, FlagNotAdmin, got.Flag)
	require.Equal(t, SourceNone, got.Source)
	require.Zero(t, got.EffectiveDiscountPct())
	require.Zero(t, got.EffectiveCommissionPct())
}

func TestResolveSelfServeBlocksSelfDealing(t *testing.T) {
	r := NewResolver(sampleDirectory())

	got, err := r.Resolve(context.Background(), Request{Actor: Actor{UserID: "user-alpine"}})
	require.NoError(t, err)
	require.False(t, got.Active)
	require.Equal(t, FlagSelfDealing, got.Flag)

	got, err = r.Resolve(context.Background(), Request{
		Actor:       Actor{UserID: "user-alpine"},
		PackOwnerID: "user-alpine",
	})
	require.NoError(t, err)
	require.False(t, got.Active)

	got, err = r.Resolve(context.Background(), Request{
		Actor:       Actor{UserID: "user-alpine"},
		PackOwnerID: "customer-3",
	})
	require.NoError(t, err)
	require.True(t, got.Active)
	require.Equal(t, 10.0, got.EffectiveCommissionPct())
}

func TestResolveNoSignals(t *testing.T) {
	r := NewResolver(sampleDirectory())
	got, err := r.Resolve(context.Background(), Request{Actor: Actor{UserID: "guest"}})
	require.NoError(t, err)
	require.Equal(t, Inactive(FlagNone), got)
}

func TestResolvePropagatesDirectoryErrors(t *testing.T) {
	dir := sampleDirectory()
	dir.err = errors.New("db down")
	r := NewResolver(dir)
	_, err := r.Resolve(context.Background(), Request{AppliedCodes: []string{"alpine"}})
	require.Error(t, err)
	require.ErrorIs(t, err, dir.err)

	var nilResolver *Resolver
	_, err = nilResolver.Resolve(context.Background(), Request{})
	require.ErrorIs(t, err, ErrDirectoryUnavailable)
}

func TestRequestCacheMemoisesLookups(t *testing.T) {
	dir := sampleDirectory()
	cache := NewRequestCache(dir)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, found, err := cache.LookupCode(ctx, "alpine")
		require.NoError(t, err)
		require.True(t, found)
		_, found, err = cache.LookupCode(ctx, "missing")
		require.NoError(t, err)
		require.False(t, found)
		code, found, err := cache.CodeForUser(ctx, "user-summit")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "summit", code)
	}
	require.Equal(t, 2, dir.lookups)
	require.Equal(t, 1, dir.users)
}

func TestActiveClampsPercentages(t *testing.T) {
	c := Active(Record{Code: " X ", DiscountPct: -3, CommissionPct: 140}, SourceCoupon)
	require.Equal(t, "x", c.Code)
	require.Zero(t, c.DiscountPct)
	require.Equal(t, 100.0, c.CommissionPct)
}
