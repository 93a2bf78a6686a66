package ai

import (
	"context"
	"time"
)

// RetryConfig bounds repeated attempts against an AI collaborator.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// AttemptTimeout caps each individual attempt.
	AttemptTimeout time.Duration
	// BackoffBase is the delay before the second attempt.
	BackoffBase time.Duration
	// BackoffMultiplier is applied to the delay after each failed attempt.
	BackoffMultiplier float64
	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns the retry budget used for collaborator calls.
// The budget is deliberately small: attempts run while a per-session lock is
// held, so the worst-case hold time must stay bounded.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		AttemptTimeout:    30 * time.Second,
		BackoffBase:       500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        5 * time.Second,
	}
}

func (c RetryConfig) normalized() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 30 * time.Second
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
	if c.BackoffMultiplier < 1 {
		c.BackoffMultiplier = 1
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = c.BackoffBase
	}
	return c
}

// Retry runs op with the configured attempt budget and exponential backoff.
// Each attempt gets its own timeout derived from ctx. The last attempt's
// error is returned when the budget is exhausted; a context cancellation
// stops further attempts immediately.
func Retry(ctx context.Context, cfg RetryConfig, op func(context.Context) error) error {
	cfg = cfg.normalized()

	var lastErr error
	delay := cfg.BackoffBase
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay = time.Duration(float64(delay) * cfg.BackoffMultiplier)
			if delay > cfg.MaxBackoff {
				delay = cfg.MaxBackoff
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, cfg.AttemptTimeout)
		err := op(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}
