// Package retry implements bounded exponential backoff for collaborator
// calls. Transient failures (timeouts, rate limits) are retried up to a
// fixed attempt bound; permanent failures and context cancellation surface
// immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/creatorops/outreach/core"
)

// Config bounds the retry loop.
type Config struct {
	// MaxAttempts includes the initial attempt; 0 or 1 disables retries.
	MaxAttempts int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between retries.
	MaxBackoff time.Duration
	// Multiplier grows the backoff after each retry; 2.0 is exponential.
	Multiplier float64
	// Jitter adds up to the given fraction of randomness to each delay.
	Jitter float64
}

// DefaultConfig returns the bound used for collaborator calls.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.1,
	}
}

// ExhaustedError is returned when every attempt failed with a retryable
// error. It unwraps to the last attempt's error.
type ExhaustedError struct {
	Attempts int
	Elapsed  time.Duration
	LastErr  error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted after %d attempts over %v: %v", e.Attempts, e.Elapsed, e.LastErr)
}

// Unwrap returns the last attempt's error.
func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// Retryable classifies an error for the retry loop. Context cancellation is
// never retried: the human asked to stop. A deadline on a single call is a
// transient condition worth retrying, as are collaborator errors marked
// retryable.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return core.IsRetryable(err)
}

// Do runs fn until it succeeds, fails permanently, or cfg.MaxAttempts is
// reached. The backoff wait respects ctx cancellation.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !Retryable(err) {
			return err
		}
		if attempt >= cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(cfg, attempt)):
		}
	}

	return &ExhaustedError{Attempts: cfg.MaxAttempts, Elapsed: time.Since(start), LastErr: lastErr}
}

func backoff(cfg Config, attempt int) time.Duration {
	d := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if max := float64(cfg.MaxBackoff); d > max {
		d = max
	}
	if cfg.Jitter > 0 {
		d += d * cfg.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(d)
}
