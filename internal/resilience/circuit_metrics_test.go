package resilience_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-resto/internal/resilience"
)

func TestBreakerExportsStateAndTransitions(t *testing.T) {
	const target = "metrics_gateway"
	ctx := context.Background()
	gauge := func() float64 { return testutil.ToFloat64(resilience.BreakerState.WithLabelValues(target)) }
	moved := func(from, to string) float64 {
		return testutil.ToFloat64(resilience.BreakerTransitions.WithLabelValues(target, from, to))
	}

	b := resilience.NewBreaker(1, 0.5, 20*time.Millisecond).WithTarget(target)
	require.Zero(t, gauge())

	require.True(t, b.Allow(ctx))
	b.Report(ctx, false)
	require.Equal(t, float64(resilience.Open), gauge())
	require.Equal(t, 1.0, testutil.ToFloat64(resilience.BreakerOpenedTotal.WithLabelValues(target)))

	time.Sleep(30 * time.Millisecond)
	require.True(t, b.Allow(ctx))
	require.Equal(t, float64(resilience.HalfOpen), gauge())

	b.Report(ctx, true)
	require.Equal(t, float64(resilience.Closed), gauge())

	require.Equal(t, 1.0, moved("closed", "open"))
	require.Equal(t, 1.0, moved("open", "half_open"))
	require.Equal(t, 1.0, moved("half_open", "closed"))
}
