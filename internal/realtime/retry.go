package realtime

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/twitchtv/twirp"
	"go.uber.org/zap"
)

// RetryConfig bounds a provider call: each attempt gets its own timeout and
// the whole call makes at most MaxAttempts attempts.
type RetryConfig struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	BackoffFactor  float64
}

// DefaultRetryConfig returns the defaults used when nothing is configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		AttemptTimeout: 5 * time.Second,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		BackoffFactor:  2,
	}
}

// ProviderError is a non-2xx answer from an HTTP provider.
type ProviderError struct {
	Op     string
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: provider returned %d: %s", e.Op, e.Status, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *ProviderError) Retryable() bool {
	return e.Status == 429 || e.Status >= 500
}

// withRetry runs fn until it succeeds, fails permanently, or attempts run out.
func withRetry(ctx context.Context, cfg RetryConfig, logger *zap.Logger, op string, fn func(ctx context.Context) error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = runAttempt(ctx, cfg.AttemptTimeout, fn)
		if lastErr == nil {
			if attempt > 1 {
				logger.Info("realtime call succeeded after retry", zap.String("operation", op), zap.Int("attempt", attempt))
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		delay := backoff(attempt, cfg)
		logger.Warn("retrying realtime call",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("retry_delay", delay),
			zap.Error(lastErr),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, lastErr)
}

func runAttempt(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(attemptCtx)
}

func backoff(attempt int, cfg RetryConfig) time.Duration {
	factor := cfg.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	d := float64(cfg.InitialDelay) * math.Pow(factor, float64(attempt-1))
	if cfg.MaxDelay > 0 && d > float64(cfg.MaxDelay) {
		d = float64(cfg.MaxDelay)
	}
	return time.Duration(d)
}

func isRetryable(err error) bool {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Retryable()
	}
	var terr twirp.Error
	if errors.As(err, &terr) {
		switch terr.Code() {
		case twirp.Unavailable, twirp.DeadlineExceeded, twirp.ResourceExhausted, twirp.Internal, twirp.Unknown:
			return true
		default:
			return false
		}
	}
	// Timeouts of a single attempt and transport failures.
	return true
}

func isNotFound(err error) bool {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Status == 404
	}
	var terr twirp.Error
	if errors.As(err, &terr) {
		return terr.Code() == twirp.NotFound
	}
	return false
}
