package retry_test

import (
	"context"
	"testing"
	"testing/synctest"
	"time"

	"github.com/teenjuna/sendbuf/internal/testing/require"
	"github.com/teenjuna/sendbuf/retry"
)

// Amount of time allowed for measurement error.
const epsilon = time.Microsecond * 10

func run(t *testing.T, name string, fn func(t *testing.T)) {
	t.Run(name, func(t *testing.T) {
		t.Helper()
		t.Parallel()
		synctest.Test(t, fn)
	})
}

// expectSchedule checks that consecutive calls to p.Attempt wait the given delays (within
// jitter) and return true, and that the call after them returns false.
func expectSchedule(t *testing.T, p retry.Policy, jitter float64, delays ...time.Duration) {
	t.Helper()
	for i, delay := range delays {
		if !measure(t, delay, jitter, func() bool { return p.Attempt(t.Context()) }) {
			t.Fatalf("attempt %d: expected true", i+1)
		}
	}
	require.Equal(t, p.Attempt(t.Context()), false)
}

func measure(t *testing.T, delay time.Duration, jitter float64, fn func() bool) bool {
	t.Helper()

	delta := time.Duration(float64(delay) * jitter)
	minDelay := (delay - delta).Truncate(epsilon)
	maxDelay := (delay + delta + epsilon).Truncate(epsilon)

	started := time.Now()
	ok := fn()
	took := time.Since(started).Truncate(epsilon)

	if took < minDelay {
		t.Fatalf("delay %s < min delay %s", took, minDelay)
	}
	if took > maxDelay {
		t.Fatalf("delay %s > max delay %s", took, maxDelay)
	}
	return ok
}

func expectCancel(t *testing.T, p retry.Policy, jitter float64, delays ...time.Duration) {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	for _, delay := range delays {
		measure(t, delay, jitter, func() bool {
			require.Equal(t, p.Attempt(ctx), true)
			return true
		})
	}
	cancel()
	measure(t, 0, 0, func() bool {
		require.Equal(t, p.Attempt(ctx), false)
		return false
	})
}
