package uniqw

import (
	"encoding/json"
	"fmt"
)

// DLQSuffix is appended to a queue name to form the name of its dead-letter queue.
const DLQSuffix = "-dlq"

// DLQName returns the dead-letter queue name for queue.
func DLQName(queue string) string { return queue + DLQSuffix }

// DeadLetterPayload is the payload of a task sitting in a dead-letter queue.
// It carries everything needed to re-publish the original job.
type DeadLetterPayload struct {
	OriginalQueue   string          `json:"originalQueue"`
	OriginalJobName string          `json:"originalJobName"`
	OriginalJobID   string          `json:"originalJobId,omitempty"`
	OriginalData    json.RawMessage `json:"originalData,omitempty"`
	OriginalOptions *JobOptions     `json:"originalOptions,omitempty"`
	FailedReason    string          `json:"failedReason,omitempty"`
	FailedAt        int64           `json:"failedAt,omitempty"`
}

// NewDeadLetter builds the payload routed to a dead-letter queue for a task that failed for good.
func NewDeadLetter(t *Task) DeadLetterPayload {
	opts := t.Options()
	p := DeadLetterPayload{
		OriginalQueue:   t.Queue,
		OriginalJobName: t.Type,
		OriginalJobID:   t.ID,
		OriginalOptions: &opts,
		FailedReason:    t.LastError,
		FailedAt:        t.CompletedAt,
	}
	if len(t.Payload) > 0 {
		p.OriginalData = json.RawMessage(t.Payload)
	}
	return p
}

// ParseDeadLetter decodes a dead-letter task payload. Every error it returns
// wraps ErrMalformedDeadLetter; such entries must be left where they are.
func ParseDeadLetter(data []byte) (DeadLetterPayload, error) {
	var p DeadLetterPayload
	if err := (&JSONEncoder{}).Decode(data, &p); err != nil {
		return DeadLetterPayload{}, fmt.Errorf("%w: %v", ErrMalformedDeadLetter, err)
	}
	if p.OriginalQueue == "" {
		return DeadLetterPayload{}, fmt.Errorf("%w: missing originalQueue", ErrMalformedDeadLetter)
	}
	if p.OriginalJobName == "" {
		return DeadLetterPayload{}, fmt.Errorf("%w: missing originalJobName", ErrMalformedDeadLetter)
	}
	return p, nil
}
