package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func noWait(p Policy) Policy {
	p.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return p
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	n, err := Do(context.Background(), noWait(Policy{Attempts: 3}), func(int) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 || calls != 1 {
		t.Errorf("expected 1 attempt, got n=%d calls=%d", n, calls)
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	var retried []int
	p := noWait(Policy{
		Attempts: 3,
		OnRetry:  func(attempt int, err error, wait time.Duration) { retried = append(retried, attempt) },
	})

	n, err := Do(context.Background(), p, func(attempt int) error {
		if attempt < 3 {
			return fmt.Errorf("attempt %d failed", attempt)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
	if len(retried) != 2 {
		t.Errorf("expected 2 retry callbacks, got %v", retried)
	}
}

func TestDoExhaustsAndReturnsLastError(t *testing.T) {
	calls := 0
	n, err := Do(context.Background(), noWait(Policy{Attempts: 3}), func(attempt int) error {
		calls++
		return fmt.Errorf("boom %d", attempt)
	})
	if err == nil || err.Error() != "boom 3" {
		t.Fatalf("expected last error 'boom 3', got %v", err)
	}
	if n != 3 || calls != 3 {
		t.Errorf("expected exactly 3 attempts, got n=%d calls=%d", n, calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), noWait(Policy{Attempts: 5}), func(int) error {
		calls++
		return fmt.Errorf("bad config: %w", ErrStop)
	})
	if !errors.Is(err, ErrStop) {
		t.Fatalf("expected ErrStop, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoAbortsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, noWait(Policy{Attempts: 3}), func(int) error {
		calls++
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call before abort, got %d", calls)
	}
}

func TestJitterBounds(t *testing.T) {
	min, max := time.Second, 3*time.Second
	for i := 0; i < 1000; i++ {
		d := Jitter(min, max)
		if d < min || d > max {
			t.Fatalf("jitter %s outside [%s, %s]", d, min, max)
		}
	}
	if d := Jitter(max, min); d != max {
		t.Errorf("inverted bounds should return min, got %s", d)
	}
}

func TestSleepZero(t *testing.T) {
	if err := Sleep(context.Background(), 0); err != nil {
		t.Errorf("zero sleep should not error: %v", err)
	}
}
