package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys_Builders(t *testing.T) {
	q := "stripe-events"
	assert.Equal(t, "uniqw:{stripe-events}:pending", Pending(q))
	assert.Equal(t, "uniqw:{stripe-events}:prioritized", Prioritized(q))
	assert.Equal(t, "uniqw:{stripe-events}:active", Active(q))
	assert.Equal(t, "uniqw:{stripe-events}:delayed", Delayed(q))
	assert.Equal(t, "uniqw:{stripe-events}:succeeded", Succeeded(q))
	assert.Equal(t, "uniqw:{stripe-events}:failed", Failed(q))
	assert.Equal(t, "uniqw:{stripe-events}:unique", Unique(q))
}

func TestKeys_For(t *testing.T) {
	q := For("usage-rollups-dlq")
	assert.Equal(t, "usage-rollups-dlq", q.Name)
	assert.Equal(t, Pending("usage-rollups-dlq"), q.Pending)
	assert.Equal(t, Prioritized("usage-rollups-dlq"), q.Prioritized)
	assert.Equal(t, Active("usage-rollups-dlq"), q.Active)
	assert.Equal(t, Delayed("usage-rollups-dlq"), q.Delayed)
	assert.Equal(t, Succeeded("usage-rollups-dlq"), q.Succeeded)
	assert.Equal(t, Failed("usage-rollups-dlq"), q.Failed)
	assert.Equal(t, Unique("usage-rollups-dlq"), q.Unique)
}
