package shopify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RateLimiter spaces API calls to stay inside Shopify's REST bucket
// (2 requests/second sustained for standard plans).
type RateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	last        time.Time
	logger      zerolog.Logger
}

// NewRateLimiter creates a rate limiter with the standard-plan interval
func NewRateLimiter(logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		minInterval: 500 * time.Millisecond,
		logger:      logger,
	}
}

// Wait blocks until the next call is allowed or the context is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	now := time.Now()
	next := rl.last.Add(rl.minInterval)
	if next.Before(now) {
		next = now
	}
	rl.last = next
	rl.mu.Unlock()

	delay := time.Until(next)
	if delay <= 0 {
		return nil
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryConfig controls retry behavior for transient API failures.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the retry policy used in production
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
	}
}

// backoff sleeps for the attempt's exponential delay, honoring the context.
func (c RetryConfig) backoff(ctx context.Context, attempt int) error {
	delay := c.InitialBackoff << (attempt - 1)
	if delay > c.MaxBackoff {
		delay = c.MaxBackoff
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
