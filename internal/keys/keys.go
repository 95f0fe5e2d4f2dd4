package keys

// Package keys centralizes Redis key construction.
// It is kept in internal to avoid leaking key formats to public API.
// Every key of a queue shares the {queue} hash tag so multi-key scripts stay cluster-safe.

func Pending(q string) string     { return "uniqw:{" + q + "}:pending" }
func Prioritized(q string) string { return "uniqw:{" + q + "}:prioritized" }
func Active(q string) string      { return "uniqw:{" + q + "}:active" }
func Delayed(q string) string     { return "uniqw:{" + q + "}:delayed" }
func Succeeded(q string) string   { return "uniqw:{" + q + "}:succeeded" }
func Failed(q string) string      { return "uniqw:{" + q + "}:failed" }

// Unique returns the per-queue Set key that tracks IDs of unfinished tasks for de-duplication.
func Unique(q string) string { return "uniqw:{" + q + "}:unique" }

// Queue holds all precomputed keys for a queue name to avoid repeated concatenations.
type Queue struct {
	Name        string
	Pending     string
	Prioritized string
	Active      string
	Delayed     string
	Succeeded   string
	Failed      string
	Unique      string
}

// For returns a set of precomputed keys for the provided queue.
func For(q string) Queue {
	prefix := "uniqw:{" + q + "}:"
	return Queue{
		Name:        q,
		Pending:     prefix + "pending",
		Prioritized: prefix + "prioritized",
		Active:      prefix + "active",
		Delayed:     prefix + "delayed",
		Succeeded:   prefix + "succeeded",
		Failed:      prefix + "failed",
		Unique:      prefix + "unique",
	}
}
