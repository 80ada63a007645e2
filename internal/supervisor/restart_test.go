package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRestartBudgetDegradesAfterMaxRestarts(t *testing.T) {
	b := newRestartBudget()
	now := time.Now()

	for i := 0; i < 10; i++ {
		require.False(t, b.recordFailure(now.Add(time.Duration(i)*time.Millisecond)))
	}
	require.True(t, b.recordFailure(now.Add(11*time.Millisecond)))
	require.True(t, b.isDegraded())
}

func TestRestartBudgetPrunesOutsideWindow(t *testing.T) {
	b := newRestartBudget()
	b.window = 100 * time.Millisecond
	now := time.Now()

	for i := 0; i < 10; i++ {
		b.recordFailure(now)
	}
	require.False(t, b.isDegraded())

	// Failures outside the rolling window should be pruned, so a fresh
	// burst well after the old ones doesn't trip the budget early.
	require.False(t, b.recordFailure(now.Add(time.Second)))
}

func TestRestartBudgetClearResets(t *testing.T) {
	b := newRestartBudget()
	now := time.Now()
	for i := 0; i < 11; i++ {
		b.recordFailure(now)
	}
	require.True(t, b.isDegraded())

	b.clear()
	require.False(t, b.isDegraded())
}

func TestSuperviseStopsOnCleanReturn(t *testing.T) {
	calls := 0
	supervise(context.Background(), "test", newRestartBudget(), nil, func(ctx context.Context) error {
		calls++
		return nil
	})
	require.Equal(t, 1, calls)
}

func TestSuperviseRetriesThenDegrades(t *testing.T) {
	b := newRestartBudget()
	b.backoffMin = time.Millisecond
	b.backoffMax = time.Millisecond

	calls := 0
	degraded := false
	supervise(context.Background(), "test", b, func(name string) { degraded = true }, func(ctx context.Context) error {
		calls++
		return errors.New("boom")
	})

	require.True(t, degraded)
	require.Equal(t, 11, calls)
}

func TestSuperviseRecoversPanic(t *testing.T) {
	b := newRestartBudget()
	b.backoffMin = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	supervise(ctx, "test", b, nil, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			panic("kaboom")
		}
		cancel()
		return errors.New("still failing")
	})
	require.GreaterOrEqual(t, calls, 2)
}
