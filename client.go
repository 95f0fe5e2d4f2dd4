package uniqw

import (
	"context"
	"fmt"
	"time"

	ikeys "github.com/UniQw/uniqw-dlq/internal/keys"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// priorityScale separates priority bands in the prioritized ZSET so that tasks
// of equal priority keep their enqueue order.
const priorityScale = 1e13

// removeScript deletes one stored member and releases its ID only if the member was still there.
var removeScript = redis.NewScript(`
local removed
if ARGV[3] == 'list' then
  removed = redis.call('LREM', KEYS[1], 1, ARGV[1])
else
  removed = redis.call('ZREM', KEYS[1], ARGV[1])
end
if removed > 0 then
  redis.call('SREM', KEYS[2], ARGV[2])
end
return removed
`)

// Client provides APIs to enqueue and manage tasks in Redis.
type Client struct {
	rdb     redis.UniversalClient
	encoder Encoder
	metrics *Metrics
}

// NewClient creates a new UniQw client.
func NewClient(rdb redis.UniversalClient) *Client {
	return &Client{rdb: rdb, encoder: &JSONEncoder{}}
}

// Enqueue adds a new task to the specified queue and returns the stored task.
// It returns ErrDuplicateTask if the task ID (explicit or generated) already exists in the queue.
func (c *Client) Enqueue(ctx context.Context, queue, taskType string, payload any, opts ...Option) (*Task, error) {
	data, err := c.encoder.Encode(payload)
	if err != nil {
		return nil, err
	}

	cfg := &options{}
	for _, opt := range opts {
		opt(cfg)
	}

	id := cfg.id
	if id == "" {
		id = uuid.NewString()
	}
	attempts := cfg.attempts
	if attempts < 1 {
		attempts = 1
	}

	// Uniqueness check: reserve ID in queue-specific set.
	ukey := ikeys.Unique(queue)
	ok, err := c.rdb.SAdd(ctx, ukey, id).Result()
	if err != nil {
		return nil, err
	}
	if ok == 0 {
		return nil, ErrDuplicateTask
	}

	now := time.Now()
	rt := &Task{
		ID:              id,
		Type:            taskType,
		Queue:           queue,
		Payload:         data,
		Attempts:        attempts,
		Backoff:         cfg.backoff,
		RetainOnSuccess: cfg.retainOnSuccess,
		RetainOnFailure: cfg.retainOnFailure,
		Priority:        cfg.priority,
		CreatedAt:       now.UnixMilli(),
	}

	raw, _ := c.encoder.Encode(rt)

	_, opErr := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		switch {
		case cfg.delay > 0:
			rt.state = StateDelayed
			p.ZAdd(ctx, ikeys.Delayed(queue), redis.Z{
				Score:  float64(now.Add(cfg.delay).UnixMilli()),
				Member: raw,
			})
		case cfg.priority > 0:
			rt.state = StatePrioritized
			p.ZAdd(ctx, ikeys.Prioritized(queue), redis.Z{
				Score:  float64(cfg.priority)*priorityScale + float64(rt.CreatedAt),
				Member: raw,
			})
		default:
			rt.state = StatePending
			p.LPush(ctx, ikeys.Pending(queue), raw)
		}
		return nil
	})

	if opErr != nil {
		// Rollback uniqueness on failure
		_ = c.rdb.SRem(ctx, ukey, id).Err()
		return nil, opErr
	}

	rt.raw = raw
	c.metrics.enqueued(queue)
	return rt, nil
}

// FetchTasks returns up to limit tasks stored in the given states, oldest first
// within each state and states in the order given. offset skips that many tasks
// of the concatenated sequence. A negative limit returns everything.
// Entries that cannot be decoded are skipped.
func (c *Client) FetchTasks(ctx context.Context, queue string, states []State, offset, limit int) ([]*Task, error) {
	if limit == 0 {
		return nil, nil
	}
	if offset < 0 {
		offset = 0
	}
	var out []*Task
	skip := offset
	for _, st := range states {
		if limit > 0 && len(out) >= limit {
			break
		}
		key, isList, err := stateKey(queue, st)
		if err != nil {
			return nil, err
		}

		var n int64
		if isList {
			n, err = c.rdb.LLen(ctx, key).Result()
		} else {
			n, err = c.rdb.ZCard(ctx, key).Result()
		}
		if err != nil {
			return nil, err
		}
		if int64(skip) >= n {
			skip -= int(n)
			continue
		}

		start := int64(skip)
		stop := n - 1
		if limit > 0 {
			if want := start + int64(limit-len(out)) - 1; want < stop {
				stop = want
			}
		}
		skip = 0

		var members []string
		if isList {
			// LPUSH puts the newest at the head, so oldest-first index i is n-1-i.
			members, err = c.rdb.LRange(ctx, key, n-1-stop, n-1-start).Result()
			for i, j := 0, len(members)-1; i < j; i, j = i+1, j-1 {
				members[i], members[j] = members[j], members[i]
			}
		} else {
			members, err = c.rdb.ZRange(ctx, key, start, stop).Result()
		}
		if err != nil {
			return nil, err
		}

		for _, m := range members {
			t := &Task{}
			if err := c.encoder.Decode([]byte(m), t); err != nil {
				continue
			}
			t.state = st
			t.raw = []byte(m)
			out = append(out, t)
		}
	}
	return out, nil
}

// TaskFilter is a function used to filter tasks during ListTasks.
type TaskFilter func(*Task) bool

// ListTasks returns every task in a specific state for the given queue.
// It supports filtering tasks by any field.
func (c *Client) ListTasks(ctx context.Context, queue string, state State, filter TaskFilter) ([]*Task, error) {
	tasks, err := c.FetchTasks(ctx, queue, []State{state}, 0, -1)
	if err != nil || filter == nil {
		return tasks, err
	}
	out := tasks[:0]
	for _, t := range tasks {
		if filter(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// RemoveTask deletes a task previously returned by FetchTasks or ListTasks and
// releases its ID. It returns ErrTaskNotFound if the task has moved since it was fetched.
func (c *Client) RemoveTask(ctx context.Context, t *Task) error {
	if t == nil || t.raw == nil {
		return ErrTaskNotFound
	}
	key, isList, err := stateKey(t.Queue, t.state)
	if err != nil {
		return err
	}
	kind := "zset"
	if isList {
		kind = "list"
	}
	n, err := removeScript.Run(ctx, c.rdb, []string{key, ikeys.Unique(t.Queue)}, t.raw, t.ID, kind).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Ping checks that the Redis connection is alive.
func (c *Client) Ping(ctx context.Context) (string, error) {
	return c.rdb.Ping(ctx).Result()
}

func stateKey(queue string, st State) (string, bool, error) {
	switch st {
	case StatePending:
		return ikeys.Pending(queue), true, nil
	case StatePrioritized:
		return ikeys.Prioritized(queue), false, nil
	case StateActive:
		return ikeys.Active(queue), false, nil
	case StateDelayed:
		return ikeys.Delayed(queue), false, nil
	case StateSucceeded:
		return ikeys.Succeeded(queue), false, nil
	case StateFailed:
		return ikeys.Failed(queue), false, nil
	default:
		return "", false, fmt.Errorf("%w: %q", ErrUnknownState, st)
	}
}
