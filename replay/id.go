package replay

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// idMarker tags every identifier handed to a replayed job.
const idMarker = "dlq-replay"

// IDGenerator derives identifiers for replayed jobs. Timestamps it embeds are
// strictly increasing per generator, so two calls never return the same identifier
// for the same original job. Separate processes share no such guarantee.
type IDGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewIDGenerator returns a generator driven by the wall clock.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// Next returns "<originalID>:dlq-replay:<ms>" or, without an original ID,
// "dlq-replay:<ms>:<8 random chars>".
func (g *IDGenerator) Next(originalID string) string {
	ms := strconv.FormatInt(g.tick(), 10)
	if originalID != "" {
		return originalID + ":" + idMarker + ":" + ms
	}
	return idMarker + ":" + ms + ":" + randomSuffix()
}

func (g *IDGenerator) tick() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return ms
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
