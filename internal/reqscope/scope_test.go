package reqscope

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestWarnOnceDeduplicates(t *testing.T) {
	var buf bytes.Buffer
	s := New(zerolog.New(&buf), time.Now())

	for i := 0; i < 3; i++ {
		s.WarnOnce("money_parse").Str("input", "abc").Msg("unparseable_money")
	}
	s.WarnOnce("other").Msg("other_warning")

	out := buf.String()
	require.Equal(t, 1, strings.Count(out, "unparseable_money"))
	require.Equal(t, 1, strings.Count(out, "other_warning"))
	require.Contains(t, out, s.ID)
}

func TestScopesAreIndependent(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	a := New(logger, time.Now())
	b := New(logger, time.Now())
	require.NotEqual(t, a.ID, b.ID)

	a.WarnOnce("k").Msg("first")
	b.WarnOnce("k").Msg("second")
	require.Equal(t, 2, strings.Count(buf.String(), "warn_key"))
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)

	s := New(zerolog.Nop(), time.Now())
	got, ok := FromContext(WithScope(context.Background(), s))
	require.True(t, ok)
	require.Same(t, s, got)

	var nilScope *Scope
	require.Nil(t, nilScope.WarnOnce("x"))
}
