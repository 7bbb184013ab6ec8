package remote

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/avast/retry-go/v4"
)

// Policy is a bounded exponential-backoff retry policy.
type Policy struct {
	MaxAttempts int           // total attempts including the first, default 3
	BaseDelay   time.Duration // delay before the second attempt, default 1s
	Multiplier  float64       // growth per retry, default 2
	Retryable   func(error) bool

	// OnRetry is called after each failed attempt that passed Retryable,
	// including the last one.
	OnRetry func(attempt uint, err error)

	// Timer overrides how backoff waits are scheduled. Tests use it to
	// count sleeps without sleeping.
	Timer retry.Timer
}

// DefaultPolicy retries transient failures 3 times total with delays of
// 1s then 2s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  2,
		Retryable:   IsTransient,
	}
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

// Backoff returns the wait before retry number n (1-based).
func (p Policy) Backoff(n uint) time.Duration {
	p = p.normalized()
	if n == 0 {
		n = 1
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(n-1)))
}

// Do runs fn under the policy and returns the last error on failure.
func Do[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	p = p.normalized()
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(p.MaxAttempts)),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return p.Backoff(n)
		}),
		retry.RetryIf(p.Retryable),
		retry.LastErrorOnly(true),
	}
	if p.OnRetry != nil {
		opts = append(opts, retry.OnRetry(p.OnRetry))
	}
	if p.Timer != nil {
		opts = append(opts, retry.WithTimer(p.Timer))
	}
	return retry.DoWithData(fn, opts...)
}
