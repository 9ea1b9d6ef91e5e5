// ABOUTME: This file implements exponential backoff retry with additive jitter.
// ABOUTME: Wraps transient fetch failures so workers only see final outcomes.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

type RetryConfig struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterMax     time.Duration
}

type ErrorClassifier func(error) bool

type Retrier struct {
	config      RetryConfig
	isRetryable ErrorClassifier
	logger      *slog.Logger
}

func NewRetrier(config RetryConfig, classifier ErrorClassifier, logger *slog.Logger) *Retrier {
	return &Retrier{
		config:      config,
		isRetryable: classifier,
		logger:      logger,
	}
}

// Do runs operation up to MaxAttempts times. Non-retryable errors and
// context cancellation stop the loop immediately; between retryable
// failures it sleeps backoff plus jitter.
func (r *Retrier) Do(ctx context.Context, operation func() error) error {
	start := time.Now()
	var lastErr error
	var totalWaitTime time.Duration

	attempts := 0

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		attempts = attempt
		attemptStart := time.Now()
		lastErr = operation()
		attemptDuration := time.Since(attemptStart)

		if lastErr == nil {
			if attempt > 1 {
				r.logger.Info("operation succeeded after retry",
					"attempt", attempt,
					"attempt_duration_ms", attemptDuration.Milliseconds(),
					"total_duration_ms", time.Since(start).Milliseconds(),
					"total_wait_time_ms", totalWaitTime.Milliseconds())
			}
			return nil
		}

		isRetryable := r.isRetryable != nil && r.isRetryable(lastErr)
		r.logger.Warn("operation attempt failed",
			"attempt", attempt,
			"error", lastErr,
			"retryable", isRetryable,
			"attempt_duration_ms", attemptDuration.Milliseconds())

		if attempt == r.config.MaxAttempts || !isRetryable {
			r.logger.Error("operation failed permanently",
				"attempt", attempt,
				"error", lastErr,
				"retryable", isRetryable,
				"total_duration_ms", time.Since(start).Milliseconds(),
				"total_wait_time_ms", totalWaitTime.Milliseconds())
			break
		}

		delay := r.calculateDelay(attempt)
		totalWaitTime += delay

		r.logger.Info("retry backoff wait",
			"attempt", attempt,
			"error", lastErr,
			"retry_delay_ms", delay.Milliseconds(),
			"total_wait_time_ms", totalWaitTime.Milliseconds())

		select {
		case <-ctx.Done():
			r.logger.Error("retry cancelled by context",
				"attempt", attempt,
				"context_error", ctx.Err(),
				"total_duration_ms", time.Since(start).Milliseconds())
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("operation failed after %d attempts (total: %dms, wait: %dms): %w",
		attempts, time.Since(start).Milliseconds(), totalWaitTime.Milliseconds(), lastErr)
}

// calculateDelay returns BackoffFactor^attempt times the base delay, capped
// at MaxDelay, plus a uniform random slice of JitterMax.
func (r *Retrier) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.BaseDelay) * math.Pow(r.config.BackoffFactor, float64(attempt))

	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}

	if r.config.JitterMax > 0 {
		delay += rand.Float64() * float64(r.config.JitterMax)
	}

	return time.Duration(delay)
}
