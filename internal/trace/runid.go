package trace

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// RunIDGenerator produces unique run identifiers.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type RunIDGenerator interface {
	NewRunID() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, so run ids sort
// by creation time in trace storage and filenames.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// NewRunID creates a new UUIDv7 as a hyphenated string.
func (UUIDv7Generator) NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined run ids for deterministic tests
// and golden trace comparison. Panics when exhausted, which fails fast on
// a test creating more runs than it declared.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator returning ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// NewRunID returns the next predetermined id.
func (g *FixedGenerator) NewRunID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic(fmt.Sprintf("FixedGenerator: all %d run ids exhausted", len(g.ids)))
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
