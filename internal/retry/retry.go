// Package retry runs an operation a bounded number of times with a
// uniformly jittered delay between attempts.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Policy bounds a retry loop.
type Policy struct {
	// Attempts is the total number of tries, including the first. Values < 1 mean 1.
	Attempts int

	// MinDelay and MaxDelay bound the random wait between attempts.
	MinDelay time.Duration
	MaxDelay time.Duration

	// OnRetry is called after a failed attempt that will be retried.
	OnRetry func(attempt int, err error, wait time.Duration)

	// jitter and sleep are swapped out in tests.
	jitter func(min, max time.Duration) time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
}

// ErrStop marks an error as permanent. Do returns immediately on it.
var ErrStop = errors.New("retry: stop")

// Do calls fn until it succeeds, returns an error wrapping ErrStop, or the
// attempts are used up. It returns the last error seen and the number of
// attempts made.
func Do(ctx context.Context, p Policy, fn func(attempt int) error) (int, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	jitter := p.jitter
	if jitter == nil {
		jitter = Jitter
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return attempt, nil
		}
		if errors.Is(lastErr, ErrStop) || attempt == attempts {
			return attempt, lastErr
		}

		wait := jitter(p.MinDelay, p.MaxDelay)
		if p.OnRetry != nil {
			p.OnRetry(attempt, lastErr, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return attempt, errors.Join(lastErr, err)
		}
	}
	return attempts, lastErr
}

// Jitter returns a uniform random duration in [min, max].
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
