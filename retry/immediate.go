package retry

import (
	"context"
	"time"
)

var _ Policy = (*ImmediatePolicy)(nil)

// ImmediatePolicy retries without waiting.
type ImmediatePolicy struct {
	budget
}

// Immediate returns a policy making up to attempts attempts back to back. Zero attempts means
// no limit.
func Immediate(attempts int) *ImmediatePolicy {
	return &ImmediatePolicy{
		budget: newBudget(attempts),
	}
}

func (p *ImmediatePolicy) WithCooldown(cooldown time.Duration) *ImmediatePolicy {
	p.setCooldown(cooldown)
	return p
}

func (p *ImmediatePolicy) Attempt(ctx context.Context) bool {
	return p.next(ctx, func(int) time.Duration { return 0 }, 0)
}

func (p *ImmediatePolicy) Cooldown() time.Duration {
	return p.cooldown
}

func (p *ImmediatePolicy) Derive() Policy {
	return Immediate(p.attempts).WithCooldown(p.cooldown)
}
