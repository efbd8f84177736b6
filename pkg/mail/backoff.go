package mail

import (
	"context"
	"time"
)

const (
	// defaultBaseDelay is the delay before the first retry.
	defaultBaseDelay = 1 * time.Second
	// defaultMaxDelay caps the exponential backoff.
	defaultMaxDelay = 32 * time.Second
)

// backoffDelay returns the delay slept after failed attempt number attempt
// (1-based): base * 2^(attempt-1), capped at max. Pure so tests can verify
// the schedule without waiting.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// BackoffSchedule returns the full sequence of delays for a send with the
// given retry count.
func BackoffSchedule(retries int, base, max time.Duration) []time.Duration {
	schedule := make([]time.Duration, retries)
	for i := range schedule {
		schedule[i] = backoffDelay(i+1, base, max)
	}
	return schedule
}

// sleepFunc suspends between attempts. The default implementation is
// context-aware; tests substitute one that records delays instead of waiting.
type sleepFunc func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
