package util

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig controls the shared retry loop used by outbound HTTP clients.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetry is the baseline policy for network calls.
func DefaultRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

// Retry runs fn up to MaxAttempts times with exponential backoff and jitter.
// It stops early when fn succeeds or ctx is cancelled; on exhaustion the
// last error is returned.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	delay := cfg.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		sleep := delay + time.Duration(rand.Int63n(int64(delay)/4+1))
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return lastErr
}

// IsRetryableStatus reports whether an HTTP status is worth another attempt.
func IsRetryableStatus(code int) bool {
	if code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}
