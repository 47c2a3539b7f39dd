package sendbuf

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/teenjuna/sendbuf/retry"
)

// ErrNotProcessed resolves a batch that the retry policy never let [Process] attempt.
var ErrNotProcessed = errors.New("batch was not processed")

// ProcessFunc sends a batch somewhere. A nil error commits the batch; otherwise the attempt is
// retried according to the policy passed to [Process].
type ProcessFunc[Item any] = func(ctx context.Context, batch []Item) error

// Process adapts process into a [FlushFunc]. Every batch is processed on its own goroutine, so
// the serializer is never blocked. Attempts are made while policy allows it. If all of them
// fail, the batch stays locked for the cooldown of the policy and is then rolled back.
// Otherwise it's committed.
//
// Once ctx is done, pending attempts stop and the batch is rolled back.
//
// Panics if process or policy is nil.
func Process[Item any](
	ctx context.Context,
	process ProcessFunc[Item],
	policy retry.Policy,
) FlushFunc[Item] {
	if process == nil {
		panic("process can't be nil")
	}
	if policy == nil {
		panic("policy can't be nil")
	}

	return func(batch []Item, outcome *Outcome, queue *Serializer) {
		retry := policy.Derive()

		go func() {
			var (
				ok         bool
				attempts   int
				processErr error
			)
			for retry.Attempt(ctx) {
				attempts += 1
				if processErr = process(ctx, batch); processErr == nil {
					ok = true
					break
				}
				queue.logger.Debug("process attempt failed",
					zap.Int("attempt", attempts),
					zap.Int("items", len(batch)),
					zap.Error(processErr),
				)
			}

			if !ok {
				if processErr == nil {
					processErr = context.Cause(ctx)
				}
				if processErr == nil {
					processErr = ErrNotProcessed
				}
				queue.logger.Warn("process failed",
					zap.Int("attempts", attempts),
					zap.Int("items", len(batch)),
					zap.Duration("cooldown", retry.Cooldown()),
					zap.Error(processErr),
				)
				cooldown(ctx, retry.Cooldown())
			}

			err := queue.Submit(func() {
				if err := outcome.Resolve(processErr); err != nil {
					queue.logger.Error("resolve flush", zap.Error(err))
				}
			})
			if err != nil {
				queue.logger.Warn("flush left unresolved", zap.Error(err))
			}
		}()
	}
}

func cooldown(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
