// This package contains the [Policy] interface, which decides how a batch is retried before its
// flush is rolled back, and several implementations.
package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Policy defines how many times, and how often, sending a batch is attempted.
//
// Implementations are not thread-safe. Each flush uses its own instance obtained by Derive.
type Policy interface {
	// Attempt reports whether another attempt should be made.
	//
	// The first call returns true right away. Later calls block for the interval of the policy
	// and return false once no attempts remain or ctx is done.
	Attempt(ctx context.Context) bool
	// Cooldown returns how long a batch whose attempts all failed stays locked before it is
	// rolled back into the buffer.
	Cooldown() time.Duration
	// Derive returns a fresh instance with the same settings and no attempts made.
	Derive() Policy
}

// budget counts attempts. Zero attempts means an unlimited number of them.
type budget struct {
	attempts  int
	attempted int
	cooldown  time.Duration
}

func newBudget(attempts int) budget {
	if attempts < 0 {
		panic("attempts can't be < 0")
	}
	return budget{attempts: attempts}
}

func (b *budget) infinite() bool {
	return b.attempts == 0
}

func (b *budget) setCooldown(cooldown time.Duration) {
	if b.infinite() && cooldown > 0 {
		panic("can't set cooldown with infinite attempts")
	}
	if cooldown < 0 {
		panic("cooldown can't be < 0")
	}
	b.cooldown = cooldown
}

// next makes an attempt after waiting interval(retry) with jitter applied, where retry is the
// number of attempts made so far.
func (b *budget) next(
	ctx context.Context,
	interval func(retry int) time.Duration,
	jitter float64,
) bool {
	if b.attempted == 0 {
		b.attempted += 1
		return true
	}
	if !b.infinite() && b.attempted >= b.attempts {
		return false
	}
	if !wait(ctx, interval(b.attempted), jitter) {
		return false
	}
	b.attempted += 1
	return true
}

func wait(ctx context.Context, interval time.Duration, jitter float64) bool {
	if jitter < 0 || jitter >= 1 {
		panic("invalid jitter")
	}
	if interval <= 0 {
		return ctx.Err() == nil
	}

	m := (rand.Float64() * 2) - 1
	d := interval + time.Duration(m*jitter*float64(interval))

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func validateJitter(jitter float64) {
	if jitter < 0 {
		panic("jitter can't be < 0")
	}
	if jitter >= 1 {
		panic("jitter can't be >= 1")
	}
}

func validateRange(minInterval, maxInterval time.Duration) {
	if minInterval <= 0 {
		panic("minInterval can't be <= 0")
	}
	if minInterval >= maxInterval {
		panic("minInterval can't be >= maxInterval")
	}
}
