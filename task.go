package uniqw

// Task represents a unit of work to be processed by a worker.
// It is serialized to JSON and stored in Redis.
type Task struct {
	// ID is the unique identifier for the task.
	ID string `json:"id"`
	// Type is the job name, used by Mux to route to the correct handler.
	Type string `json:"type"`
	// Queue is the name of the queue this task belongs to.
	Queue string `json:"queue"`
	// Payload is the raw task data.
	Payload []byte `json:"payload"`
	// Attempts is the total number of executions allowed before the task fails for good.
	Attempts int `json:"attempts"`
	// AttemptsMade is the number of failed executions so far.
	AttemptsMade int `json:"attempts_made"`
	// Backoff controls the wait between failed attempts.
	Backoff *Backoff `json:"backoff,omitempty"`
	// RetainOnSuccess bounds how many succeeded records of the queue are kept.
	RetainOnSuccess *Retention `json:"retain_on_success,omitempty"`
	// RetainOnFailure bounds how many failed records of the queue are kept.
	RetainOnFailure *Retention `json:"retain_on_failure,omitempty"`
	// Priority orders prioritized tasks; lower runs first. Zero means FIFO.
	Priority int `json:"priority,omitempty"`
	// CreatedAt is the timestamp (ms) when the task was enqueued.
	CreatedAt int64 `json:"created_at,omitempty"`
	// StartedAt is the timestamp (ms) when the worker started processing the task.
	StartedAt int64 `json:"started_at,omitempty"`
	// CompletedAt is the timestamp (ms) when the task was finished (success or final failure).
	CompletedAt int64 `json:"completed_at,omitempty"`
	// LastError is the error message from the last failed attempt.
	LastError string `json:"last_error,omitempty"`
	// LastErrorAt is the timestamp (ms) of the last failed attempt.
	LastErrorAt int64 `json:"last_error_at,omitempty"`

	// state and raw locate the stored member a fetched task was read from.
	state State
	raw   []byte
}

// State returns the state the task was fetched from, or "" for tasks that were not fetched.
func (t *Task) State() State { return t.state }

// Options returns the job options the task was enqueued with, without its ID.
func (t *Task) Options() JobOptions {
	return JobOptions{
		Attempts:        t.Attempts,
		Backoff:         t.Backoff,
		RetainOnSuccess: t.RetainOnSuccess,
		RetainOnFailure: t.RetainOnFailure,
		Priority:        t.Priority,
	}
}
