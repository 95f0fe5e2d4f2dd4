package replay

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestIDGenerator_Format(t *testing.T) {
	g := &IDGenerator{now: fixedClock(1700000000000)}

	require.Equal(t, "abc:dlq-replay:1700000000000", g.Next("abc"))

	id := g.Next("")
	parts := strings.Split(id, ":")
	require.Len(t, parts, 3)
	require.Equal(t, "dlq-replay", parts[0])
	require.Equal(t, "1700000000001", parts[1])
	require.Len(t, parts[2], 8)
}

func TestIDGenerator_DistinctForSameJob(t *testing.T) {
	g := &IDGenerator{now: fixedClock(42)}
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := g.Next("abc")
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestIDGenerator_ClockGoingBackwards(t *testing.T) {
	now := int64(5000)
	g := &IDGenerator{now: func() time.Time { return time.UnixMilli(now) }}
	require.Equal(t, "x:dlq-replay:5000", g.Next("x"))
	now = 4000
	require.Equal(t, "x:dlq-replay:5001", g.Next("x"))
	now = 9000
	require.Equal(t, "x:dlq-replay:9000", g.Next("x"))
}

func TestIDGenerator_WallClock(t *testing.T) {
	g := NewIDGenerator()
	a, b := g.Next("job"), g.Next("job")
	require.NotEqual(t, a, b)
	require.True(t, strings.HasPrefix(a, "job:dlq-replay:"))
}
