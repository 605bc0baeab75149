package graph

import (
	"context"
	"strings"
	"time"
)

// BackoffStrategy selects how retry delays grow between attempts.
type BackoffStrategy int

const (
	// FixedBackoff waits the base delay between every attempt.
	FixedBackoff BackoffStrategy = iota
	// LinearBackoff waits base, 2*base, 3*base, ...
	LinearBackoff
	// ExponentialBackoff waits base, 2*base, 4*base, ...
	ExponentialBackoff
)

// RetryPolicy defines how node failures are retried. Graphs carry no policy
// by default: a node error propagates to the caller unchanged.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// Backoff selects the delay growth strategy.
	Backoff BackoffStrategy

	// BaseDelay is the delay unit. Defaults to one second.
	BaseDelay time.Duration

	// RetryableErrors restricts retries to errors whose message contains one
	// of these substrings. Empty means every error is retryable.
	RetryableErrors []string
}

func (p *RetryPolicy) retryable(err error) bool {
	if len(p.RetryableErrors) == 0 {
		return true
	}
	msg := err.Error()
	for _, pattern := range p.RetryableErrors {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func (p *RetryPolicy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}

	switch p.Backoff {
	case LinearBackoff:
		return base * time.Duration(attempt+1)
	case ExponentialBackoff:
		return base * time.Duration(1<<attempt)
	default:
		return base
	}
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
