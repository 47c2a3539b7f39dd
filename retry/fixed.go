package retry

import (
	"context"
	"time"
)

var _ Policy = (*FixedPolicy)(nil)

// FixedPolicy waits the same interval before every retry.
type FixedPolicy struct {
	budget
	interval time.Duration
	jitter   float64
}

// Fixed returns a policy making up to attempts attempts, interval apart. Zero attempts means no
// limit. The default jitter is 0.1.
func Fixed(attempts int, interval time.Duration) *FixedPolicy {
	if interval < 0 {
		panic("interval can't be < 0")
	}
	return &FixedPolicy{
		budget:   newBudget(attempts),
		interval: interval,
		jitter:   0.1,
	}
}

func (p *FixedPolicy) WithJitter(jitter float64) *FixedPolicy {
	validateJitter(jitter)
	p.jitter = jitter
	return p
}

func (p *FixedPolicy) WithCooldown(cooldown time.Duration) *FixedPolicy {
	p.setCooldown(cooldown)
	return p
}

func (p *FixedPolicy) Attempt(ctx context.Context) bool {
	return p.next(ctx, func(int) time.Duration { return p.interval }, p.jitter)
}

func (p *FixedPolicy) Cooldown() time.Duration {
	return p.cooldown
}

func (p *FixedPolicy) Derive() Policy {
	return Fixed(p.attempts, p.interval).
		WithJitter(p.jitter).
		WithCooldown(p.cooldown)
}
