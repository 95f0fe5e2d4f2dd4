package uniqw

import (
	"context"
	"testing"

	mrd "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisBackend_HandlesCloseIndependently(t *testing.T) {
	s := mrd.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	b := NewRedisBackend(rdb, nil)
	q1, err := b.Open("orders")
	require.NoError(t, err)
	q2, err := b.Open("orders")
	require.NoError(t, err)
	require.NotSame(t, q1, q2)
	require.Equal(t, "orders", q1.Name())

	require.NoError(t, q1.Close(ctx))
	require.NoError(t, q1.Close(ctx))
	_, err = q1.Enqueue(ctx, "job", nil)
	require.ErrorIs(t, err, ErrQueueClosed)
	_, err = q1.Fetch(ctx, ReplayableStates, 0, 10)
	require.ErrorIs(t, err, ErrQueueClosed)
	require.ErrorIs(t, q1.Remove(ctx, &Task{}), ErrQueueClosed)

	// another handle on the same queue is unaffected
	_, err = q2.Enqueue(ctx, "job", nil)
	require.NoError(t, err)
	pong, err := q2.Ping(ctx)
	require.NoError(t, err)
	require.Equal(t, "PONG", pong)

	require.NoError(t, b.Close())
	_, err = q2.Ping(ctx)
	require.ErrorIs(t, err, ErrQueueClosed)
	// the caller's client stays usable
	require.NoError(t, rdb.Ping(ctx).Err())
}

func TestRedisBackend_EnqueueFetchRemove(t *testing.T) {
	s := mrd.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	b := NewRedisBackend(rdb, nil)
	q, err := b.Open("orders")
	require.NoError(t, err)

	_, err = q.Enqueue(ctx, "ship", map[string]int{"n": 1}, TaskID("a"))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, "ship", map[string]int{"n": 2}, TaskID("b"))
	require.NoError(t, err)

	tasks, err := q.Fetch(ctx, ReplayableStates, 0, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	require.Equal(t, "a", tasks[0].ID)

	require.NoError(t, q.Remove(ctx, tasks[0]))
	tasks, err = q.Fetch(ctx, ReplayableStates, 0, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "b", tasks[0].ID)
}

func TestConnect_OwnsPool(t *testing.T) {
	s := mrd.RunT(t)
	conn, err := ParseConnection("redis://" + s.Addr())
	require.NoError(t, err)

	b := NewBackend(ModeRedis, conn, nil)
	pong, err := b.Ping(context.Background())
	require.NoError(t, err)
	require.Equal(t, "PONG", pong)
	require.NoError(t, b.Close())
	_, err = b.Ping(context.Background())
	require.Error(t, err)
}

func TestStubBackend_NoOps(t *testing.T) {
	ctx := context.Background()
	b := NewBackend(ModeStub, Connection{}, nil)
	_, ok := b.(*StubBackend)
	require.True(t, ok)

	q, err := b.Open("anything")
	require.NoError(t, err)
	task, err := q.Enqueue(ctx, "job", map[string]string{"k": "v"}, TaskID("fixed"), Attempts(3))
	require.NoError(t, err)
	require.Equal(t, "fixed", task.ID)
	require.Equal(t, "anything", task.Queue)
	require.Equal(t, 3, task.Attempts)
	require.JSONEq(t, `{"k":"v"}`, string(task.Payload))

	tasks, err := q.Fetch(ctx, ReplayableStates, 0, 100)
	require.NoError(t, err)
	require.Empty(t, tasks)
	require.NoError(t, q.Remove(ctx, task))
	pong, err := q.Ping(ctx)
	require.NoError(t, err)
	require.Equal(t, "PONG", pong)
	require.NoError(t, q.Close(ctx))
	require.NoError(t, b.Close())
}
