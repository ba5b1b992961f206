package ledger

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDSource generates unique identifiers for records and events.
// Implemented by UUIDSource (production), and by FixedIDs and SequenceIDs
// for deterministic tests and golden comparison.
type IDSource interface {
	NewID() string
}

// UUIDSource generates time-sortable UUIDv7 identifiers.
//
// UUIDv7 embeds a timestamp in the most significant bits, so event ids
// sort by creation time, which keeps durable-store ordering stable even
// under tie-breaking by id.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDSource struct{}

// NewID returns a new hyphenated UUIDv7 string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDSource) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedIDs returns predetermined identifiers in order.
//
// Panics when exhausted: fail-fast for test misconfiguration (the test
// recorded more events than it supplied ids for).
type FixedIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDs creates a source that returns ids in the given order.
func NewFixedIDs(ids ...string) *FixedIDs {
	return &FixedIDs{ids: ids}
}

// NewID returns the next predetermined id.
func (f *FixedIDs) NewID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx >= len(f.ids) {
		panic("FixedIDs: all ids exhausted")
	}
	id := f.ids[f.idx]
	f.idx++
	return id
}

// SequenceIDs generates "prefix-0001", "prefix-0002", ... forever.
// Used by the scenario harness where the number of events is script-driven.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDs creates a sequential id source with the given prefix.
func NewSequenceIDs(prefix string) *SequenceIDs {
	return &SequenceIDs{prefix: prefix}
}

// NewID returns the next sequential id.
func (s *SequenceIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%04d", s.prefix, s.n)
}
