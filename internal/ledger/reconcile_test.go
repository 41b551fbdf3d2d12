package ledger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	rec := Reconcile(117.01, 117, 0.02)
	require.False(t, rec.Healed)
	require.Equal(t, 117.01, rec.Value)

	rec = Reconcile(117.02, 117, 0.02)
	require.False(t, rec.Healed, "difference equal to tolerance is accepted")

	rec = Reconcile(120, 117, 0.02)
	require.True(t, rec.Healed)
	require.Equal(t, 117.0, rec.Value)
	require.Equal(t, -3.0, rec.Delta)

	rec = Reconcile(0, 117, 0)
	require.True(t, rec.Healed, "zero tolerance falls back to the default")
	require.Equal(t, 117.0, rec.Value)
}

func TestLogHeal(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	LogHeal(logger, Reconcile(117, 117, DefaultTolerance), Result{})
	require.Empty(t, buf.String())

	LogHeal(logger, Reconcile(100, 117, DefaultTolerance), Result{BasePrice: 130, TotalAfterEB: 117})
	out := buf.String()
	require.Contains(t, out, "ledger_self_heal")
	require.Contains(t, out, `"base_price":130`)
	require.Contains(t, out, `"level":"warn"`)
}
