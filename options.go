package uniqw

import "time"

type options struct {
	id              string
	delay           time.Duration
	attempts        int
	backoff         *Backoff
	retainOnSuccess *Retention
	retainOnFailure *Retention
	priority        int
}

// Option is a function that configures task behavior during Enqueue.
type Option func(*options)

// TaskID sets a custom ID for the task. If not provided, a random UUID will be generated.
func TaskID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// Delay schedules the task to be executed after the specified duration.
func Delay(d time.Duration) Option {
	return func(o *options) {
		o.delay = d
	}
}

// Attempts sets the total number of executions allowed before the task fails for good.
func Attempts(n int) Option {
	return func(o *options) {
		o.attempts = n
	}
}

// WithBackoff sets the wait strategy between failed attempts.
func WithBackoff(b Backoff) Option {
	return func(o *options) {
		o.backoff = &b
	}
}

// RetainOnSuccess bounds how many succeeded records of the queue are kept.
func RetainOnSuccess(r Retention) Option {
	return func(o *options) {
		o.retainOnSuccess = retentionPtr(r)
	}
}

// RetainOnFailure bounds how many failed records of the queue are kept.
func RetainOnFailure(r Retention) Option {
	return func(o *options) {
		o.retainOnFailure = retentionPtr(r)
	}
}

// Priority places the task in the prioritized set. Lower values run first;
// values are clamped to [1, MaxPriority]. Zero keeps plain FIFO ordering.
func Priority(p int) Option {
	return func(o *options) {
		if p > MaxPriority {
			p = MaxPriority
		}
		if p < 0 {
			p = 0
		}
		o.priority = p
	}
}

// WithJobOptions applies every field present in jo. Options listed after it win.
func WithJobOptions(jo JobOptions) Option {
	return func(o *options) {
		if jo.ID != "" {
			o.id = jo.ID
		}
		if jo.Attempts > 0 {
			o.attempts = jo.Attempts
		}
		if jo.Backoff != nil {
			b := *jo.Backoff
			o.backoff = &b
		}
		if jo.RetainOnSuccess != nil {
			o.retainOnSuccess = retentionPtr(*jo.RetainOnSuccess)
		}
		if jo.RetainOnFailure != nil {
			o.retainOnFailure = retentionPtr(*jo.RetainOnFailure)
		}
		if jo.Priority > 0 {
			Priority(jo.Priority)(o)
		}
		if jo.DelayMs > 0 {
			o.delay = time.Duration(jo.DelayMs) * time.Millisecond
		}
	}
}
