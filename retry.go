package redlock

import (
	"context"
	"math/rand/v2"
	"time"
)

// retryDriver wraps a quorumAttempter in a retry loop governed by
// Settings.RetryCount/RetryDelay/RetryJitter.
type retryDriver struct {
	attempter *quorumAttempter
	settings  Settings
}

// run loops attempt until a "for" vote is decided or the retry
// budget is exhausted. It returns the full, in-order list of attempt
// stats either way; callers distinguish success from failure by the
// returned vote.
func (r *retryDriver) run(ctx context.Context, s *script, keys []string, args ...interface{}) (vote, []*ExecutionStats, error) {
	var attempts []*ExecutionStats

	for i := 0; ; i++ {
		if i > 0 {
			if err := sleepContext(ctx, jitteredDelay(r.settings.RetryDelay, r.settings.RetryJitter)); err != nil {
				return voteAgainst, attempts, err
			}
		}

		v, stats, done := r.attempter.attempt(ctx, s, keys, args...)
		<-done // attempts are strictly sequential: drain every reply first
		attempts = append(attempts, stats)

		if v == voteFor {
			return voteFor, attempts, nil
		}

		if r.settings.RetryCount != -1 && len(attempts) == r.settings.RetryCount+1 {
			return voteAgainst, attempts, &ExecutionError{Attempts: attempts}
		}
	}
}

func jitteredDelay(base, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2*jitter+1))) - jitter
	d := base + offset
	if d < 0 {
		return 0
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
