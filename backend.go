package uniqw

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Queue is a handle on one named queue.
type Queue interface {
	Name() string
	// Enqueue adds a job and returns the stored task.
	Enqueue(ctx context.Context, jobName string, data any, opts ...Option) (*Task, error)
	// Fetch returns up to limit tasks in the given states, oldest first.
	Fetch(ctx context.Context, states []State, offset, limit int) ([]*Task, error)
	// Remove deletes a task previously returned by Fetch.
	Remove(ctx context.Context, t *Task) error
	Ping(ctx context.Context) (string, error)
	Close(ctx context.Context) error
}

// Backend opens queue handles. Pick one with NewBackend at startup.
type Backend interface {
	Open(name string) (Queue, error)
	Ping(ctx context.Context) (string, error)
	Close() error
}

// Mode selects the Backend variant.
type Mode string

const (
	ModeRedis Mode = "redis"
	ModeStub  Mode = "stub"
)

// NewBackend builds the backend for mode. Redis mode dials conn; stub mode ignores it.
func NewBackend(mode Mode, conn Connection, metrics *Metrics) Backend {
	if mode == ModeStub {
		return NewStubBackend()
	}
	return Connect(conn, metrics)
}

// RedisBackend binds queue handles to one Redis connection pool.
type RedisBackend struct {
	rdb    redis.UniversalClient
	client *Client
	owned  bool

	mu     sync.Mutex
	queues map[*redisQueue]struct{}
}

// NewRedisBackend wraps an existing client. Close leaves rdb open.
func NewRedisBackend(rdb redis.UniversalClient, metrics *Metrics) *RedisBackend {
	c := NewClient(rdb)
	c.metrics = metrics
	return &RedisBackend{rdb: rdb, client: c, queues: make(map[*redisQueue]struct{})}
}

// Connect dials conn and returns a backend owning the connection pool.
func Connect(conn Connection, metrics *Metrics) *RedisBackend {
	b := NewRedisBackend(redis.NewClient(conn.Options()), metrics)
	b.owned = true
	return b
}

// Client exposes the underlying task client.
func (b *RedisBackend) Client() *Client { return b.client }

// Open returns a new handle for name. Handles share the connection pool but
// close independently.
func (b *RedisBackend) Open(name string) (Queue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := &redisQueue{name: name, b: b}
	b.queues[q] = struct{}{}
	return q, nil
}

// Ping checks that the Redis connection is alive.
func (b *RedisBackend) Ping(ctx context.Context) (string, error) { return b.client.Ping(ctx) }

// Close closes every open handle and, for backends built by Connect, closes the pool.
func (b *RedisBackend) Close() error {
	b.mu.Lock()
	for q := range b.queues {
		q.markClosed()
		delete(b.queues, q)
	}
	b.mu.Unlock()
	if b.owned {
		return b.rdb.Close()
	}
	return nil
}

func (b *RedisBackend) release(q *redisQueue) {
	b.mu.Lock()
	delete(b.queues, q)
	b.mu.Unlock()
}

type redisQueue struct {
	name string
	b    *RedisBackend

	mu     sync.RWMutex
	closed bool
}

func (q *redisQueue) Name() string { return q.name }

func (q *redisQueue) Enqueue(ctx context.Context, jobName string, data any, opts ...Option) (*Task, error) {
	if q.isClosed() {
		return nil, ErrQueueClosed
	}
	return q.b.client.Enqueue(ctx, q.name, jobName, data, opts...)
}

func (q *redisQueue) Fetch(ctx context.Context, states []State, offset, limit int) ([]*Task, error) {
	if q.isClosed() {
		return nil, ErrQueueClosed
	}
	return q.b.client.FetchTasks(ctx, q.name, states, offset, limit)
}

func (q *redisQueue) Remove(ctx context.Context, t *Task) error {
	if q.isClosed() {
		return ErrQueueClosed
	}
	return q.b.client.RemoveTask(ctx, t)
}

func (q *redisQueue) Ping(ctx context.Context) (string, error) {
	if q.isClosed() {
		return "", ErrQueueClosed
	}
	return q.b.client.Ping(ctx)
}

// Close is idempotent; the connection pool stays with the backend.
func (q *redisQueue) Close(context.Context) error {
	if q.markClosed() {
		q.b.release(q)
	}
	return nil
}

func (q *redisQueue) markClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.closed = true
	return true
}

func (q *redisQueue) isClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// StubBackend hands out queues that store nothing. It lets dependent code run without Redis.
type StubBackend struct{}

// NewStubBackend returns a StubBackend.
func NewStubBackend() *StubBackend { return &StubBackend{} }

func (*StubBackend) Open(name string) (Queue, error)          { return stubQueue{name: name}, nil }
func (*StubBackend) Ping(context.Context) (string, error)     { return "PONG", nil }
func (*StubBackend) Close() error                             { return nil }

type stubQueue struct{ name string }

func (q stubQueue) Name() string { return q.name }

// Enqueue returns the task that would have been stored.
func (q stubQueue) Enqueue(_ context.Context, jobName string, data any, opts ...Option) (*Task, error) {
	cfg := &options{}
	for _, opt := range opts {
		opt(cfg)
	}
	id := cfg.id
	if id == "" {
		id = uuid.NewString()
	}
	payload, err := (&JSONEncoder{}).Encode(data)
	if err != nil {
		return nil, err
	}
	return &Task{
		ID:              id,
		Type:            jobName,
		Queue:           q.name,
		Payload:         payload,
		Attempts:        cfg.attempts,
		Backoff:         cfg.backoff,
		RetainOnSuccess: cfg.retainOnSuccess,
		RetainOnFailure: cfg.retainOnFailure,
		Priority:        cfg.priority,
		CreatedAt:       time.Now().UnixMilli(),
	}, nil
}

func (stubQueue) Fetch(context.Context, []State, int, int) ([]*Task, error) { return nil, nil }
func (stubQueue) Remove(context.Context, *Task) error                       { return nil }
func (stubQueue) Ping(context.Context) (string, error)                      { return "PONG", nil }
func (stubQueue) Close(context.Context) error                               { return nil }
