package retry

import (
	"context"
	"math"
	"time"
)

var (
	_ Policy = (*LinearPolicy)(nil)
	_ Policy = (*ExponentialPolicy)(nil)
)

// LinearPolicy grows the interval by a fixed step after every retry, up to a maximum.
type LinearPolicy struct {
	budget
	jitter      float64
	step        time.Duration
	minInterval time.Duration
	maxInterval time.Duration
}

// Linear returns a policy making up to attempts attempts. Zero attempts means no limit. The
// first retry waits minInterval and the interval reaches maxInterval on the last retry; with no
// limit the step is minInterval. The default jitter is 0.1.
func Linear(attempts int, minInterval, maxInterval time.Duration) *LinearPolicy {
	b := newBudget(attempts)
	validateRange(minInterval, maxInterval)

	var step time.Duration
	switch {
	case attempts == 0:
		step = minInterval
	case attempts > 2:
		step = (maxInterval - minInterval) / time.Duration(attempts-2)
	}

	return &LinearPolicy{
		budget:      b,
		jitter:      0.1,
		step:        step,
		minInterval: minInterval,
		maxInterval: maxInterval,
	}
}

func (p *LinearPolicy) WithStep(step time.Duration) *LinearPolicy {
	if step <= 0 {
		panic("step can't be <= 0")
	}
	p.step = step
	return p
}

func (p *LinearPolicy) WithJitter(jitter float64) *LinearPolicy {
	validateJitter(jitter)
	p.jitter = jitter
	return p
}

func (p *LinearPolicy) WithCooldown(cooldown time.Duration) *LinearPolicy {
	p.setCooldown(cooldown)
	return p
}

func (p *LinearPolicy) Attempt(ctx context.Context) bool {
	return p.next(ctx, p.interval, p.jitter)
}

func (p *LinearPolicy) interval(retry int) time.Duration {
	return min(p.minInterval+p.step*time.Duration(retry-1), p.maxInterval)
}

func (p *LinearPolicy) Cooldown() time.Duration {
	return p.cooldown
}

func (p *LinearPolicy) Derive() Policy {
	derived := Linear(p.attempts, p.minInterval, p.maxInterval).
		WithJitter(p.jitter).
		WithCooldown(p.cooldown)
	derived.step = p.step
	return derived
}

// ExponentialPolicy multiplies the interval by a base after every retry, up to a maximum.
type ExponentialPolicy struct {
	budget
	jitter      float64
	base        float64
	minInterval time.Duration
	maxInterval time.Duration
}

// Exponential returns a policy making up to attempts attempts. Zero attempts means no limit. The
// first retry waits minInterval, every next one base times longer, capped at maxInterval. The
// default base is 2 and the default jitter is 0.1.
func Exponential(attempts int, minInterval, maxInterval time.Duration) *ExponentialPolicy {
	b := newBudget(attempts)
	validateRange(minInterval, maxInterval)

	return &ExponentialPolicy{
		budget:      b,
		jitter:      0.1,
		base:        2,
		minInterval: minInterval,
		maxInterval: maxInterval,
	}
}

func (p *ExponentialPolicy) WithBase(base float64) *ExponentialPolicy {
	if base <= 1 {
		panic("base can't be <= 1")
	}
	p.base = base
	return p
}

func (p *ExponentialPolicy) WithJitter(jitter float64) *ExponentialPolicy {
	validateJitter(jitter)
	p.jitter = jitter
	return p
}

func (p *ExponentialPolicy) WithCooldown(cooldown time.Duration) *ExponentialPolicy {
	p.setCooldown(cooldown)
	return p
}

func (p *ExponentialPolicy) Attempt(ctx context.Context) bool {
	return p.next(ctx, p.interval, p.jitter)
}

func (p *ExponentialPolicy) interval(retry int) time.Duration {
	interval := float64(p.minInterval) * math.Pow(p.base, float64(retry-1))
	if interval >= float64(p.maxInterval) {
		return p.maxInterval
	}
	return time.Duration(interval)
}

func (p *ExponentialPolicy) Cooldown() time.Duration {
	return p.cooldown
}

func (p *ExponentialPolicy) Derive() Policy {
	return Exponential(p.attempts, p.minInterval, p.maxInterval).
		WithBase(p.base).
		WithJitter(p.jitter).
		WithCooldown(p.cooldown)
}
