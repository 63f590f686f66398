// Package commands holds write requests until the simulation collects them
// on its next tick.
package commands

import (
	"errors"
	"fmt"
	"sync"

	"github.com/krpc/spacecenter/pkg/core"
)

// ErrBufferFull is returned when the buffer holds its limit of distinct
// pending writes.
var ErrBufferFull = errors.New("write buffer full")

// DefaultLimit is the number of distinct pending writes a buffer accepts
// when none is configured.
const DefaultLimit = 4096

// Buffer collects write requests between simulation ticks. A request for
// a field that already has a pending write replaces it in place, so each
// field is written at most once per drain with its latest value.
type Buffer struct {
	mu      sync.Mutex
	pending []core.WriteRequest
	index   map[core.WriteKey]int
	limit   int

	submitted  uint64
	superseded uint64
}

// NewBuffer creates a buffer holding at most limit distinct writes.
func NewBuffer(limit int) *Buffer {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Buffer{
		index: make(map[core.WriteKey]int),
		limit: limit,
	}
}

// Submit queues w, replacing any pending write to the same field.
func (b *Buffer) Submit(w core.WriteRequest) error {
	if w.Kind == "" {
		return errors.New("write request has no kind")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	key := w.Key()
	if i, ok := b.index[key]; ok {
		b.pending[i] = w
		b.submitted++
		b.superseded++
		return nil
	}
	if len(b.pending) >= b.limit {
		return fmt.Errorf("%w: %d pending", ErrBufferFull, len(b.pending))
	}
	b.index[key] = len(b.pending)
	b.pending = append(b.pending, w)
	b.submitted++
	return nil
}

// Drain returns the pending writes in first-submitted order and empties the
// buffer.
func (b *Buffer) Drain() []core.WriteRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	b.pending = nil
	clear(b.index)
	return out
}

// Discard drops every pending write for a vessel, returning how many were
// removed. It is used when the vessel leaves the simulation.
func (b *Buffer) Discard(vesselID uint64) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.pending[:0]
	for _, w := range b.pending {
		if w.VesselID != vesselID {
			kept = append(kept, w)
		}
	}
	removed := len(b.pending) - len(kept)
	clear(b.pending[len(kept):])
	b.pending = kept

	clear(b.index)
	for i, w := range b.pending {
		b.index[w.Key()] = i
	}
	return removed
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Stats reports how many writes were submitted and how many of those
// replaced an earlier pending write.
func (b *Buffer) Stats() (submitted, superseded uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submitted, b.superseded
}
