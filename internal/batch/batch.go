// Package batch implements keel's Batch Mode (§4.8): a scoped deferral of
// non-structural violations between `batch-start` and `batch-end`, with a
// 60s auto-expire timer. Structural violations always surface immediately.
package batch

import (
	"sync"
	"time"

	"github.com/FryrAI/keel/internal/graph"
)

// ExpireAfter is the auto-expire inactivity window (§4.8).
const ExpireAfter = 60 * time.Second

// Batch tracks deferred non-structural violations for one active batch
// scope. Zero value is an inactive batch (matches graph.BatchState{active:
// false}).
type Batch struct {
	mu        sync.Mutex
	active    bool
	startedAt time.Time
	lastSeen  time.Time
	deferred  []graph.Violation
}

// New returns an inactive batch.
func New() *Batch {
	return &Batch{}
}

// Start begins a batch scope at the given moment (caller-supplied so the
// package has no wall-clock dependency beyond this one entry point and
// IsExpired's comparisons, matching the teacher's Timer/StartTimer shape
// for "elapsed since start" computation, see DESIGN.md).
func (b *Batch) Start(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = true
	b.startedAt = now
	b.lastSeen = now
	b.deferred = nil
}

// Active reports whether a batch scope is open and not yet expired as of now.
func (b *Batch) Active(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.activeLocked(now)
}

func (b *Batch) activeLocked(now time.Time) bool {
	if !b.active {
		return false
	}
	if now.Sub(b.lastSeen) > ExpireAfter {
		b.active = false
		return false
	}
	return true
}

// Offer routes a violation through batch containment (§4.8, §8 "Batch
// containment"): structural codes always pass through immediately;
// non-structural codes are collected silently while the batch is active and
// not yet expired. Returns true if the violation was deferred (should not
// appear in the immediate output).
func (b *Batch) Offer(v graph.Violation, now time.Time) (deferred bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if graph.IsStructural(v.Code) {
		return false
	}
	if !b.activeLocked(now) {
		return false
	}
	b.lastSeen = now
	b.deferred = append(b.deferred, v)
	return true
}

// End flushes and closes the batch, returning every violation deferred
// during its scope (§4.8 "batch-end flushes the deferred set").
func (b *Batch) End() []graph.Violation {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.deferred
	b.active = false
	b.deferred = nil
	return out
}

// Snapshot exposes the current state as a graph.BatchState value, for
// diagnostics and the output assembler's verbose mode.
func (b *Batch) Snapshot() graph.BatchState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return graph.BatchState{
		Active:    b.active,
		StartedAt: b.startedAt.Unix(),
		Deferred:  append([]graph.Violation(nil), b.deferred...),
	}
}
