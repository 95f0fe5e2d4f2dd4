package worker

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/UniQw/uniqw-dlq/internal/jobopt"
	"github.com/UniQw/uniqw-dlq/internal/keys"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// taskRec is a minimal internal representation used to manage task lifecycle.
// Its JSON layout must stay in sync with uniqw.Task.
type taskRec struct {
	ID              string            `json:"id"`
	Type            string            `json:"type"`
	Queue           string            `json:"queue"`
	Payload         []byte            `json:"payload"`
	Attempts        int               `json:"attempts"`
	AttemptsMade    int               `json:"attempts_made"`
	Backoff         *jobopt.Backoff   `json:"backoff,omitempty"`
	RetainOnSuccess *jobopt.Retention `json:"retain_on_success,omitempty"`
	RetainOnFailure *jobopt.Retention `json:"retain_on_failure,omitempty"`
	Priority        int               `json:"priority,omitempty"`
	// Metadata
	CreatedAt   int64  `json:"created_at,omitempty"`
	StartedAt   int64  `json:"started_at,omitempty"`
	CompletedAt int64  `json:"completed_at,omitempty"`
	LastError   string `json:"last_error,omitempty"`
	LastErrorAt int64  `json:"last_error_at,omitempty"`
}

var taskPool = sync.Pool{New: func() any { return new(taskRec) }}

// Atomic dequeue script: take the oldest pending item, falling back to the
// lowest-scored prioritized item, and lease it into active with a visibility score.
var dequeueScript = redis.NewScript(
	// language=Lua
	`
	local v = redis.call('RPOP', KEYS[1])
	if not v then
		local items = redis.call('ZRANGE', KEYS[2], 0, 0)
		if #items == 0 then return false end
		v = items[1]
		redis.call('ZREM', KEYS[2], v)
	end
	redis.call('ZADD', KEYS[3], ARGV[1], v)
	return v
	`,
)

// Recycle returns a taskRec to the pool to reduce allocations.
func Recycle(t *taskRec) {
	if t == nil {
		return
	}
	*t = taskRec{}
	taskPool.Put(t)
}

// DequeueTask atomically moves a task from Pending (or Prioritized) to the Active ZSET
// and returns the task object and its raw JSON representation.
func DequeueTask(ctx context.Context, rdb redis.UniversalClient, k keys.Queue, ttl time.Duration) (*taskRec, []byte) {
	expire := time.Now().Add(ttl).UnixMilli()
	res, err := dequeueScript.Run(ctx, rdb, []string{k.Pending, k.Prioritized, k.Active}, strconv.FormatInt(expire, 10)).Result()
	if err == redis.Nil || res == nil {
		return nil, nil
	}
	if err != nil {
		return nil, nil
	}
	var raw []byte
	switch v := res.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return nil, nil
	}

	t := taskPool.Get().(*taskRec)
	_ = sonic.Unmarshal(raw, t)
	return t, raw
}

// Complete removes a finished task from Active, releases its ID and records it in
// the Succeeded ZSET according to its success retention.
func Complete(ctx context.Context, rdb redis.UniversalClient, k keys.Queue, t *taskRec, raw []byte) error {
	t.CompletedAt = time.Now().UnixMilli()
	limit := int64(0)
	if t.RetainOnSuccess != nil {
		limit = t.RetainOnSuccess.Limit()
	}
	newRaw := encodeJSON(t)
	_, err := rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRem(ctx, k.Active, raw)
		p.SRem(ctx, k.Unique, t.ID)
		retain(ctx, p, k.Succeeded, newRaw, t.CompletedAt, limit)
		return nil
	})
	return err
}

// RetryOrFail counts the failed attempt and either schedules the task in the
// Delayed ZSET after its backoff or fails it for good once attempts are exhausted.
// It reports whether the task reached the failed state.
func RetryOrFail(ctx context.Context, rdb redis.UniversalClient, k keys.Queue, t *taskRec, raw []byte, lastErr string) (bool, error) {
	t.AttemptsMade++
	allowed := t.Attempts
	if allowed < 1 {
		allowed = 1
	}
	if t.AttemptsMade >= allowed {
		return true, Fail(ctx, rdb, k, t, raw, lastErr)
	}

	t.LastError = lastErr
	t.LastErrorAt = time.Now().UnixMilli()
	newRaw := encodeJSON(t)
	next := time.Now().Add(t.Backoff.Next(t.AttemptsMade)).UnixMilli()
	_, err := rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRem(ctx, k.Active, raw)
		p.ZAdd(ctx, k.Delayed, redis.Z{Score: float64(next), Member: newRaw})
		return nil
	})
	return false, err
}

// Fail moves a task from the Active ZSET to the Failed ZSET, honouring its failure retention.
// Tasks without an explicit retention are kept.
func Fail(ctx context.Context, rdb redis.UniversalClient, k keys.Queue, t *taskRec, raw []byte, reason string) error {
	now := time.Now().UnixMilli()
	if reason != "" {
		t.LastError = reason
		t.LastErrorAt = now
	}
	t.CompletedAt = now
	limit := int64(-1)
	if t.RetainOnFailure != nil {
		limit = t.RetainOnFailure.Limit()
	}
	newRaw := encodeJSON(t)
	_, err := rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRem(ctx, k.Active, raw)
		p.SRem(ctx, k.Unique, t.ID)
		retain(ctx, p, k.Failed, newRaw, now, limit)
		return nil
	})
	return err
}

// Encode returns the current JSON form of t.
func Encode(t *taskRec) []byte { return encodeJSON(t) }

// retain records member in a finished ZSET scored by completion time and trims
// it to the newest limit entries. A limit of 0 keeps nothing; -1 keeps everything.
func retain(ctx context.Context, p redis.Pipeliner, key string, member []byte, scoreMs int64, limit int64) {
	if limit == 0 {
		return
	}
	p.ZAdd(ctx, key, redis.Z{Score: float64(scoreMs), Member: member})
	if limit > 0 {
		p.ZRemRangeByRank(ctx, key, 0, -(limit + 1))
	}
}

// encodeJSON encodes value using stdlib json.Marshal for lower latency in encoding.
func encodeJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
