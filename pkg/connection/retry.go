package connection

import (
	"errors"
	"fmt"
	"time"
)

// Retry defaults.
const (
	// DefaultMaxAttempts is the number of reconnection attempts made after
	// a loss before the supervisor gives up.
	DefaultMaxAttempts = 5

	// DefaultRetryDelay is the fixed wait before each attempt.
	DefaultRetryDelay = 5 * time.Second
)

// ErrInvalidPolicy is returned by RetryPolicy.Validate.
var ErrInvalidPolicy = errors.New("invalid retry policy")

// RetryPolicy is a bounded, fixed-delay retry schedule.
type RetryPolicy struct {
	// MaxAttempts is the number of attempts per loss. Must be >= 1.
	MaxAttempts int

	// Delay is waited before every attempt, including the first.
	Delay time.Duration
}

// DefaultRetryPolicy returns 5 attempts spaced 5 seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultRetryDelay,
	}
}

// Validate checks the policy bounds.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts %d, need at least 1", ErrInvalidPolicy, p.MaxAttempts)
	}
	if p.Delay < 0 {
		return fmt.Errorf("%w: negative delay %s", ErrInvalidPolicy, p.Delay)
	}
	return nil
}

// withDefaults fills zero fields. A zero delay is kept only when
// MaxAttempts was set explicitly.
func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
		if p.Delay == 0 {
			p.Delay = DefaultRetryDelay
		}
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	return p
}

// Schedule returns the delay before each attempt, in order.
func (p RetryPolicy) Schedule() []time.Duration {
	p = p.withDefaults()
	out := make([]time.Duration, p.MaxAttempts)
	for i := range out {
		out[i] = p.Delay
	}
	return out
}

// TotalWait is the sum of all delays if every attempt fails.
func (p RetryPolicy) TotalWait() time.Duration {
	p = p.withDefaults()
	return time.Duration(p.MaxAttempts) * p.Delay
}
