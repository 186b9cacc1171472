package eventrt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfig_ThreeTierPrecedence(t *testing.T) {
	cfg := NewConfig(WithAggregateOptions("Counter", AggregateOptions{
		ShutdownTimeout: 5 * time.Minute,
		SnapshotEvery:   50,
	}))

	// Explicit argument wins over the registered module setting.
	require.Equal(t, 30*time.Second, cfg.ShutdownTimeout("Counter", 30*time.Second))
	require.Equal(t, 10, cfg.SnapshotEvery("Counter", 10))

	// No explicit value: the registered module setting wins.
	require.Equal(t, 5*time.Minute, cfg.ShutdownTimeout("Counter", 0))
	require.Equal(t, 50, cfg.SnapshotEvery("Counter", 0))

	// Neither given: the framework default applies.
	require.Equal(t, defaultShutdownTimeout, cfg.ShutdownTimeout("Cart", 0))
	require.Equal(t, defaultSnapshotEvery, cfg.SnapshotEvery("Cart", 0))
}

func TestConfig_SetOverwritesPriorRegistration(t *testing.T) {
	cfg := NewConfig()
	cfg.Set("Cart", AggregateOptions{SnapshotEvery: 20})
	require.Equal(t, 20, cfg.SnapshotEvery("Cart", 0))

	cfg.Set("Cart", AggregateOptions{SnapshotEvery: 40})
	require.Equal(t, 40, cfg.SnapshotEvery("Cart", 0))
}
