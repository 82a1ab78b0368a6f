package core

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TaskIDGenerator produces unique, lexically time-ordered task ids.
// ULIDs sort by creation time, which the ready queue relies on as the
// insertion-order tiebreak.
type TaskIDGenerator interface {
	NewID() string
}

type ulidGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewTaskIDGenerator creates a generator with monotonic entropy so ids
// minted within the same millisecond still sort in mint order.
func NewTaskIDGenerator() TaskIDGenerator {
	return &ulidGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (g *ulidGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), g.entropy).String()
}
