package retry_test

import (
	"testing"
	"time"

	"github.com/teenjuna/sendbuf/internal/testing/require"
	"github.com/teenjuna/sendbuf/retry"
)

func TestValidation(t *testing.T) {
	cases := []struct {
		msg string
		fn  func()
	}{
		{"attempts can't be < 0", func() { retry.Fixed(-1, time.Second) }},
		{"attempts can't be < 0", func() { retry.Immediate(-1) }},
		{"attempts can't be < 0", func() { retry.Linear(-1, time.Second, time.Minute) }},
		{"attempts can't be < 0", func() { retry.Exponential(-1, time.Second, time.Minute) }},
		{"interval can't be < 0", func() { retry.Fixed(0, -1) }},
		{"minInterval can't be <= 0", func() { retry.Linear(0, 0, time.Minute) }},
		{"minInterval can't be >= maxInterval", func() { retry.Exponential(0, time.Second, time.Second) }},
		{"step can't be <= 0", func() { retry.Linear(0, time.Second, time.Minute).WithStep(0) }},
		{"base can't be <= 1", func() { retry.Exponential(0, time.Second, time.Minute).WithBase(1) }},
		{"jitter can't be < 0", func() { retry.Fixed(0, time.Second).WithJitter(-0.1) }},
		{"jitter can't be >= 1", func() { retry.Linear(0, time.Second, time.Minute).WithJitter(1) }},
		{"cooldown can't be < 0", func() { retry.Fixed(5, time.Second).WithCooldown(-1) }},
		{"can't set cooldown with infinite attempts", func() { retry.Immediate(0).WithCooldown(time.Second) }},
		{"can't set cooldown with infinite attempts", func() {
			retry.Exponential(0, time.Second, time.Minute).WithCooldown(time.Second)
		}},
	}
	for _, c := range cases {
		require.PanicWithError(t, c.msg, c.fn)
	}
}

func TestCooldown(t *testing.T) {
	require.Equal(t, retry.Fixed(5, time.Second).Cooldown(), time.Duration(0))
	require.Equal(t, retry.Fixed(5, time.Second).WithCooldown(time.Second).Cooldown(), time.Second)
	require.Equal(t, retry.Immediate(1).WithCooldown(time.Minute).Cooldown(), time.Minute)
	require.Equal(t,
		retry.Linear(3, time.Second, time.Minute).WithCooldown(time.Hour).Derive().Cooldown(),
		time.Hour,
	)
}

func TestSchedules(t *testing.T) {
	run(t, "Fixed", func(t *testing.T) {
		p := retry.Fixed(3, time.Second).WithJitter(0.1)
		expectSchedule(t, p, 0.1, 0, time.Second, time.Second)
	})

	run(t, "Fixed without interval", func(t *testing.T) {
		p := retry.Fixed(3, 0).WithJitter(0.1)
		expectSchedule(t, p, 0.1, 0, 0, 0)
	})

	run(t, "Immediate", func(t *testing.T) {
		expectSchedule(t, retry.Immediate(4), 0, 0, 0, 0, 0)
	})

	run(t, "Linear", func(t *testing.T) {
		p := retry.Linear(5, time.Second, time.Second*4).WithJitter(0.1)
		expectSchedule(t, p, 0.1, 0, time.Second, time.Second*2, time.Second*3, time.Second*4)
	})

	run(t, "Linear with step", func(t *testing.T) {
		p := retry.Linear(5, time.Second, time.Second*4).WithStep(time.Second * 2).WithJitter(0)
		expectSchedule(t, p, 0, 0, time.Second, time.Second*3, time.Second*4, time.Second*4)
	})

	run(t, "Exponential", func(t *testing.T) {
		p := retry.Exponential(5, time.Second, time.Second*8).WithJitter(0.1)
		expectSchedule(t, p, 0.1, 0, time.Second, time.Second*2, time.Second*4, time.Second*8)
	})

	run(t, "Exponential with base", func(t *testing.T) {
		p := retry.Exponential(4, time.Second, time.Second*5).WithBase(3).WithJitter(0)
		expectSchedule(t, p, 0, 0, time.Second, time.Second*3, time.Second*5)
	})
}

func TestInfinite(t *testing.T) {
	run(t, "Fixed", func(t *testing.T) {
		p := retry.Fixed(0, time.Second).WithJitter(0)
		for range 1000 {
			require.Equal(t, p.Attempt(t.Context()), true)
		}
	})

	run(t, "Linear reaches max", func(t *testing.T) {
		p := retry.Linear(0, time.Second, time.Second*3).WithJitter(0)
		for _, delay := range []time.Duration{0, time.Second, time.Second * 2, time.Second * 3} {
			measure(t, delay, 0, func() bool { return p.Attempt(t.Context()) })
		}
		for range 100 {
			measure(t, time.Second*3, 0, func() bool { return p.Attempt(t.Context()) })
		}
	})
}

func TestContextCancel(t *testing.T) {
	run(t, "Fixed", func(t *testing.T) {
		expectCancel(t, retry.Fixed(0, time.Second).WithJitter(0), 0, 0, time.Second)
	})

	run(t, "Exponential", func(t *testing.T) {
		p := retry.Exponential(0, time.Second, time.Second*8).WithJitter(0)
		expectCancel(t, p, 0, 0, time.Second, time.Second*2)
	})

	run(t, "Immediate", func(t *testing.T) {
		expectCancel(t, retry.Immediate(0), 0, 0, 0)
	})
}

func TestDerive(t *testing.T) {
	policies := map[string]retry.Policy{
		"Fixed":       retry.Fixed(3, time.Second).WithCooldown(time.Second),
		"Immediate":   retry.Immediate(3).WithCooldown(time.Second),
		"Linear":      retry.Linear(3, time.Second, time.Second*2).WithCooldown(time.Second),
		"Exponential": retry.Exponential(3, time.Second, time.Second*2).WithCooldown(time.Second),
	}

	for name, p := range policies {
		run(t, name, func(t *testing.T) {
			exhaust := func(p retry.Policy) {
				for range 3 {
					require.Equal(t, p.Attempt(t.Context()), true)
				}
				require.Equal(t, p.Attempt(t.Context()), false)
				require.Equal(t, p.Cooldown(), time.Second)
			}

			before := p.Derive()
			exhaust(before)
			exhaust(before.Derive())
			exhaust(p.Derive())
		})
	}
}
