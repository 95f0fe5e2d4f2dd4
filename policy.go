package uniqw

import "time"

const (
	// DefaultAttempts is the attempt count used when none is configured.
	DefaultAttempts = 5
	// DefaultBackoffDelay is the initial exponential backoff used when none is configured.
	DefaultBackoffDelay = 2 * time.Second
	// DefaultRetainOnSuccess is how many succeeded records are kept per queue by default.
	DefaultRetainOnSuccess = 1000
)

// RetryPolicy holds the process-wide retry tuning applied to produced jobs.
// Build it once at startup and share it by value.
type RetryPolicy struct {
	Attempts     int
	BackoffDelay time.Duration
}

// NewRetryPolicy returns a policy with the given tuning. Non-positive values
// fall back to DefaultAttempts and DefaultBackoffDelay.
func NewRetryPolicy(attempts int, backoffDelay time.Duration) RetryPolicy {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if backoffDelay < time.Millisecond {
		backoffDelay = DefaultBackoffDelay
	}
	return RetryPolicy{Attempts: attempts, BackoffDelay: backoffDelay.Truncate(time.Millisecond)}
}

// DefaultRetryPolicy returns the policy used when nothing is configured.
func DefaultRetryPolicy() RetryPolicy {
	return NewRetryPolicy(DefaultAttempts, DefaultBackoffDelay)
}

// BuildDefaultOptions returns the default job options merged with overrides.
// Any field present in overrides replaces the computed default; absent fields
// keep it. Failed records are retained indefinitely unless overridden.
func (p RetryPolicy) BuildDefaultOptions(overrides JobOptions) JobOptions {
	p = NewRetryPolicy(p.Attempts, p.BackoffDelay)
	base := JobOptions{
		Attempts:        p.Attempts,
		Backoff:         ExponentialBackoff(p.BackoffDelay),
		RetainOnSuccess: retentionPtr(KeepLast(DefaultRetainOnSuccess)),
		RetainOnFailure: retentionPtr(KeepAll()),
	}
	return base.merge(overrides)
}

// Options is a shorthand for WithJobOptions(p.BuildDefaultOptions(overrides)).
func (p RetryPolicy) Options(overrides JobOptions) Option {
	return WithJobOptions(p.BuildDefaultOptions(overrides))
}
