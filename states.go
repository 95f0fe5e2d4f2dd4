package uniqw

// State represents a queue state used to store and inspect tasks.
// Use the exported constants (StatePending, StateActive, etc.) instead of
// raw strings to avoid typos.
type State string

const (
	// StatePending contains tasks ready for execution in FIFO order (LIST).
	StatePending State = "pending"
	// StatePrioritized contains ready tasks ordered by priority (ZSET).
	StatePrioritized State = "prioritized"
	// StateActive contains tasks currently being processed by workers (ZSET).
	StateActive State = "active"
	// StateDelayed contains scheduled tasks or tasks in backoff retry (ZSET).
	StateDelayed State = "delayed"
	// StateSucceeded contains successfully completed tasks (ZSET).
	StateSucceeded State = "succeeded"
	// StateFailed contains tasks that exhausted their attempts (ZSET).
	StateFailed State = "failed"
)

// AllStates lists every valid queue state in a stable order.
var AllStates = []State{StatePending, StatePrioritized, StateActive, StateDelayed, StateSucceeded, StateFailed}

// ReplayableStates lists the states whose tasks have not been picked up by a consumer yet.
var ReplayableStates = []State{StatePending, StateDelayed, StatePrioritized}

// String returns the raw string value of the state.
func (s State) String() string { return string(s) }

// ParseState converts a string into a State, returning an error for unknown values.
func ParseState(s string) (State, error) {
	for _, st := range AllStates {
		if string(st) == s {
			return st, nil
		}
	}
	return "", ErrUnknownState
}
