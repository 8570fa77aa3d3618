// Package retry runs operations with bounded exponential backoff.
//
// Dashboard requests and completion requests share one retry policy:
// transient failures are retried a fixed number of times with growing
// delays, while failures marked permanent stop immediately.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Default backoff intervals.
const (
	DefaultInitialInterval = 1 * time.Second
	DefaultMaxInterval     = 20 * time.Second
)

// Policy bounds the retries of one operation.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	// Zero means the operation runs once.
	MaxRetries int

	// InitialInterval is the delay before the first retry.
	// Each later delay is doubled, up to MaxInterval.
	InitialInterval time.Duration

	// MaxInterval caps the delay between retries.
	MaxInterval time.Duration
}

// NewPolicy returns a policy with the default intervals.
func NewPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries:      maxRetries,
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
	}
}

// Permanent marks err as not worth retrying.
// Do returns the wrapped error unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a permanent error, the retries are
// exhausted or ctx is done. notify, if not nil, is called before each retry
// with the error that caused it and the delay before the next attempt.
func Do(ctx context.Context, p Policy, op func() error, notify func(err error, next time.Duration)) error {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0

	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
	return backoff.RetryNotify(op, policy, notify)
}
