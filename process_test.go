package sendbuf

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/teenjuna/sendbuf/internal/testing/require"
	"github.com/teenjuna/sendbuf/retry"
)

var errSend = errors.New("send failed")

func TestProcessCommits(t *testing.T) {
	run(t, func(t *testing.T) {
		var (
			attempts atomic.Int64
			sent     = make(chan []int, 1)
		)
		b := New(3, func(c *Config[int]) {
			c.OnFlush(Process(t.Context(), func(ctx context.Context, batch []int) error {
				if attempts.Add(1) < 3 {
					return errSend
				}
				sent <- batch
				return nil
			}, retry.Fixed(3, time.Second).WithJitter(0)))
		})
		deferClose(t, b)

		for i := range 3 {
			require.Nil(t, b.Add(i))
		}

		synctest.Wait()
		require.Equal(t, attempts.Load(), int64(1))
		require.Equal(t, b.IsFlushing(), true)

		time.Sleep(2 * time.Second)
		synctest.Wait()
		require.Equal(t, attempts.Load(), int64(3))
		require.Equal(t, expect(t, sent), []int{0, 1, 2})
		require.Equal(t, b.IsFlushing(), false)
		require.Equal(t, b.Current(), []int{})
	})
}

func TestProcessRollsBackAfterCooldown(t *testing.T) {
	run(t, func(t *testing.T) {
		var attempts atomic.Int64
		b := New(2, func(c *Config[int]) {
			c.OnFlush(Process(t.Context(), func(ctx context.Context, batch []int) error {
				attempts.Add(1)
				return errSend
			}, retry.Fixed(2, time.Second).WithJitter(0).WithCooldown(time.Minute)))
		})
		deferClose(t, b)

		for i := range 3 {
			require.Nil(t, b.Add(i))
		}

		time.Sleep(30 * time.Second)
		synctest.Wait()
		require.Equal(t, attempts.Load(), int64(2))
		require.Equal(t, b.Locked(), []int{0, 1})

		time.Sleep(time.Minute)
		synctest.Wait()
		require.Equal(t, b.Locked(), []int{})
		require.Equal(t, b.Current(), []int{0, 1, 2})
		require.Equal(t, attempts.Load(), int64(2))
	})
}

func TestProcessCanceled(t *testing.T) {
	run(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())

		var attempts atomic.Int64
		b := New(1, func(c *Config[int]) {
			c.OnFlush(Process(ctx, func(ctx context.Context, batch []int) error {
				attempts.Add(1)
				return errSend
			}, retry.Fixed(0, time.Hour)))
		})
		deferClose(t, b)

		require.Nil(t, b.Add(1))
		synctest.Wait()
		require.Equal(t, b.IsFlushing(), true)

		cancel()
		synctest.Wait()
		require.Equal(t, attempts.Load(), int64(1))
		require.Equal(t, b.IsFlushing(), false)
		require.Equal(t, b.Current(), []int{1})
	})
}

type neverPolicy struct{}

func (neverPolicy) Attempt(context.Context) bool { return false }
func (neverPolicy) Cooldown() time.Duration { return 0 }
func (p neverPolicy) Derive() retry.Policy { return p }

func TestProcessRollsBackWithoutAttempts(t *testing.T) {
	run(t, func(t *testing.T) {
		var (
			attempts atomic.Int64
			removed  = make(chan int, 2)
			added    = make(chan int, 4)
		)
		b := New(2, func(c *Config[int]) {
			c.AutoFlush(false)
			c.OnAdded(func(item int) { added <- item })
			c.OnRemoved(func(item int) { removed <- item })
			c.OnFlush(Process(t.Context(), func(ctx context.Context, batch []int) error {
				attempts.Add(1)
				return nil
			}, neverPolicy{}))
		})
		deferClose(t, b)

		require.Nil(t, b.Add(1))
		require.Nil(t, b.Add(2))
		require.Equal(t, expect(t, added), 1)
		require.Equal(t, expect(t, added), 2)

		require.Nil(t, b.Flush())
		synctest.Wait()
		require.Equal(t, attempts.Load(), int64(0))
		require.Equal(t, b.IsFlushing(), false)
		require.Equal(t, b.Current(), []int{1, 2})
		expectNone(t, removed)

		// Rollback re-adds the batch back to front.
		require.Equal(t, expect(t, added), 2)
		require.Equal(t, expect(t, added), 1)
	})
}

func TestProcessValidation(t *testing.T) {
	require.PanicWithError(t, "process can't be nil", func() {
		Process[int](context.Background(), nil, retry.Immediate(1))
	})
	require.PanicWithError(t, "policy can't be nil", func() {
		Process[int](context.Background(), func(context.Context, []int) error { return nil }, nil)
	})
}
