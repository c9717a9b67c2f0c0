package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes a bounded retry schedule with exponential backoff.
type Policy struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	Jitter      float64       `mapstructure:"jitter"`
}

// DefaultPolicy returns the retry policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Jitter:      0.2,
	}
}

// Do runs op up to MaxAttempts times. An error for which retryable returns
// false aborts the loop immediately and is returned as-is. A nil retryable
// treats every error as retryable.
func Do(ctx context.Context, policy Policy, op func() error, retryable func(error) bool) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	b := backoff.NewExponentialBackOff()
	if policy.BaseDelay > 0 {
		b.InitialInterval = policy.BaseDelay
	}
	if policy.MaxDelay > 0 {
		b.MaxInterval = policy.MaxDelay
	}
	b.RandomizationFactor = policy.Jitter
	b.Reset()

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(wrapped, backoff.WithContext(backoff.WithMaxRetries(b, uint64(policy.MaxAttempts-1)), ctx))
}
