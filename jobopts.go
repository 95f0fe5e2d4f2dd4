package uniqw

import (
	"time"

	"github.com/UniQw/uniqw-dlq/internal/jobopt"
)

// Backoff describes how long a failed task waits before its next attempt.
type Backoff = jobopt.Backoff

// Retention bounds how many finished records of one outcome are kept.
// It encodes to JSON as true (keep all), false (keep none) or N (keep the newest N).
type Retention = jobopt.Retention

const (
	BackoffExponential = jobopt.BackoffExponential
	BackoffFixed       = jobopt.BackoffFixed
)

// MaxPriority is the largest accepted task priority.
const MaxPriority = 1000

// KeepAll retains every finished record.
func KeepAll() Retention { return jobopt.KeepAll() }

// KeepNone drops finished records immediately.
func KeepNone() Retention { return jobopt.KeepNone() }

// KeepLast retains the newest n finished records.
func KeepLast(n int) Retention { return jobopt.KeepLast(n) }

// ExponentialBackoff returns a backoff starting at initial and doubling on every failed attempt.
func ExponentialBackoff(initial time.Duration) *Backoff {
	return &Backoff{Type: BackoffExponential, Delay: initial.Milliseconds()}
}

// JobOptions is the serializable set of per-job settings. Zero or nil fields are
// treated as absent, which is what lets RetryPolicy merge overrides field by field.
type JobOptions struct {
	ID              string     `json:"id,omitempty"`
	Attempts        int        `json:"attempts,omitempty"`
	Backoff         *Backoff   `json:"backoff,omitempty"`
	RetainOnSuccess *Retention `json:"retain_on_success,omitempty"`
	RetainOnFailure *Retention `json:"retain_on_failure,omitempty"`
	Priority        int        `json:"priority,omitempty"`
	DelayMs         int64      `json:"delay_ms,omitempty"`
}

// merge returns o with every field present in overrides replaced.
func (o JobOptions) merge(overrides JobOptions) JobOptions {
	if overrides.ID != "" {
		o.ID = overrides.ID
	}
	if overrides.Attempts > 0 {
		o.Attempts = overrides.Attempts
	}
	if overrides.Backoff != nil {
		o.Backoff = overrides.Backoff
	}
	if overrides.RetainOnSuccess != nil {
		o.RetainOnSuccess = overrides.RetainOnSuccess
	}
	if overrides.RetainOnFailure != nil {
		o.RetainOnFailure = overrides.RetainOnFailure
	}
	if overrides.Priority > 0 {
		o.Priority = overrides.Priority
	}
	if overrides.DelayMs > 0 {
		o.DelayMs = overrides.DelayMs
	}
	return o
}

func retentionPtr(r Retention) *Retention { return &r }
