package retry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

// customError implements temporary interface for testing
type customError struct {
	message   string
	temporary bool
}

func (e customError) Error() string   { return e.message }
func (e customError) Temporary() bool { return e.temporary }

// instantAfter makes waits return immediately.
func instantAfter(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:    attempts,
		InitialDelay:   time.Millisecond,
		MaxDelay:       10 * time.Millisecond,
		Multiplier:     2.0,
		JitterStrategy: JitterNone,
		After:          instantAfter,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxAttempts != 3 {
		t.Errorf("expected MaxAttempts=3, got %d", cfg.MaxAttempts)
	}
	if cfg.InitialDelay != 100*time.Millisecond {
		t.Errorf("expected InitialDelay=100ms, got %v", cfg.InitialDelay)
	}
	if cfg.JitterStrategy != JitterDecorrelated {
		t.Errorf("expected decorrelated jitter, got %v", cfg.JitterStrategy)
	}
}

func TestNormalize_Rejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero attempts", Config{InitialDelay: time.Millisecond}},
		{"zero delay", Config{MaxAttempts: 1}},
		{"min above max", Config{MaxAttempts: 1, InitialDelay: time.Second, MinDelay: time.Minute, MaxDelay: time.Second}},
		{"shrinking multiplier", Config{MaxAttempts: 1, InitialDelay: time.Millisecond, Multiplier: 0.5}},
		{"negative budget", Config{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxElapsedTime: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if err := cfg.Normalize(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDefaultRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"context canceled", context.Canceled, false},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"connection reset", fmt.Errorf("write: %w", syscall.ECONNRESET), true},
		{"temporary error", customError{"temp", true}, true},
		{"non-temporary error", customError{"not temp", false}, false},
		{"regular error", errors.New("regular"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryable(tt.err); got != tt.expected {
				t.Errorf("DefaultRetryable(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestCalculateDelay(t *testing.T) {
	config := Config{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second}, // capped
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := config.calculateDelay(tt.attempt); got != tt.expected {
				t.Errorf("calculateDelay(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestDoSuccess(t *testing.T) {
	var attempts int32
	err := Do(context.Background(), fastConfig(3), func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return nil
	})

	if err != nil {
		t.Errorf("expected success, got error: %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestDoRetryableError(t *testing.T) {
	var attempts int32
	var retries int32

	cfg := fastConfig(3)
	cfg.OnRetry = func(int, error, time.Duration) { atomic.AddInt32(&retries, 1) }

	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return customError{"temporary failure", true}
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected success after retries, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if retries != 2 {
		t.Errorf("expected 2 OnRetry calls, got %d", retries)
	}
}

func TestDoNonRetryableError(t *testing.T) {
	var attempts int32
	expectedErr := errors.New("permanent error")

	err := DoWithRetryable(context.Background(), fastConfig(5), func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return expectedErr
	}, func(error) bool { return false })

	if err != expectedErr {
		t.Errorf("expected permanent error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt (no retries), got %d", attempts)
	}
}

func TestDoMaxAttemptsReached(t *testing.T) {
	var attempts int32
	expectedErr := customError{"always fails", true}

	err := Do(context.Background(), fastConfig(2), func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return expectedErr
	})

	var retryErr *RetriesExceededError
	if !errors.As(err, &retryErr) {
		t.Fatalf("expected RetriesExceededError, got %T: %v", err, err)
	}
	if retryErr.Attempts != 2 {
		t.Errorf("expected 2 attempts in error, got %d", retryErr.Attempts)
	}
	if !errors.Is(err, expectedErr) {
		t.Error("RetriesExceededError should unwrap to the last error")
	}
	if attempts != 2 {
		t.Errorf("expected 2 calls, got %d", attempts)
	}
}

func TestDoContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var attempts int32
	err := Do(ctx, fastConfig(3), func(ctx context.Context) error {
		atomic.AddInt32(&attempts, 1)
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if attempts != 0 {
		t.Errorf("expected no attempts, got %d", attempts)
	}
}

func TestApplyJitter_StaysInBounds(t *testing.T) {
	for _, strategy := range []JitterStrategy{JitterNone, JitterEqual, JitterDecorrelated} {
		cfg := Config{
			MaxAttempts:    1,
			InitialDelay:   10 * time.Millisecond,
			MaxDelay:       50 * time.Millisecond,
			JitterStrategy: strategy,
		}
		if err := cfg.Normalize(); err != nil {
			t.Fatalf("normalize: %v", err)
		}

		for i := 0; i < 100; i++ {
			d := cfg.applyJitter(40 * time.Millisecond)
			if d < cfg.MinDelay || d > cfg.MaxDelay {
				t.Fatalf("strategy %d produced %v outside [%v, %v]", strategy, d, cfg.MinDelay, cfg.MaxDelay)
			}
		}
	}
}
