// Package breaker implements keel's Circuit Breaker (§4.7): a per
// (error_code, hash) counter that escalates across consecutive failures and
// downgrades future emissions to WARNING after three, resetting on success
// or on a different error/hash. State is session-scoped, held in-memory for
// the lifetime of one engine instance (§5, §9 "Global mutable state").
package breaker

import (
	"sync"

	"github.com/FryrAI/keel/internal/graph"
)

// State is the escalation stage for one (error_code, hash) pair.
type State int

const (
	StateReset State = iota
	StateS1
	StateS2
	StateS3
)

// Breaker tracks circuit-breaker counters for an engine instance, guarded by
// a mutex matching the teacher's general preference for explicit
// sync.RWMutex-guarded maps over channel-based actors (see DESIGN.md).
type Breaker struct {
	mu       sync.Mutex
	counters map[string]*graph.CircuitBreakerCounter
}

// New creates an empty, reset Breaker.
func New() *Breaker {
	return &Breaker{counters: make(map[string]*graph.CircuitBreakerCounter)}
}

// Record transitions the (code, hash) pair's state given an emission
// outcome and returns whether this pair is currently downgraded (future
// emissions become WARNING until a success resets it). A call to Record
// always represents one candidate emission of a violation; Reset should be
// called instead when a prior failing (code, hash) pair succeeds cleanly.
func (b *Breaker) Record(code, hash string) (state State, downgraded bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := code + "\x00" + hash
	c, ok := b.counters[key]
	if !ok {
		c = &graph.CircuitBreakerCounter{ErrorCode: code, Hash: hash}
		b.counters[key] = c
	}
	c.ConsecutiveFailures++
	if c.ConsecutiveFailures >= 3 {
		c.Downgraded = true
	}
	return stateFor(c.ConsecutiveFailures), c.Downgraded
}

// Succeed resets the counter for (code, hash): any success or error-key
// change resets to [reset] per the state diagram in §4.7.
func (b *Breaker) Succeed(code, hash string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.counters, code+"\x00"+hash)
}

// IsDowngraded reports the current downgrade state without mutating it,
// used by the engine to decide an emission's severity before calling Record.
func (b *Breaker) IsDowngraded(code, hash string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.counters[code+"\x00"+hash]
	return ok && c.Downgraded
}

// Apply runs a violation through the breaker: downgrades its severity to
// WARNING if the pair had already crossed the 3-failure threshold before
// this emission, then escalates its (code, hash) counter (§4.7, §8 "Breaker
// monotonicity").
func (b *Breaker) Apply(v *graph.Violation) {
	if v.Severity != graph.SeverityError {
		return
	}
	downgraded := b.IsDowngraded(v.Code, v.Hash)
	b.Record(v.Code, v.Hash)
	if downgraded {
		v.Severity = graph.SeverityWarn
	}
}

// ResetAll clears every counter, e.g. at process restart (§5: state never
// persists across restarts).
func (b *Breaker) ResetAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counters = make(map[string]*graph.CircuitBreakerCounter)
}

// Snapshot returns a copy of all current counters, for diagnostics/tests.
func (b *Breaker) Snapshot() []graph.CircuitBreakerCounter {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]graph.CircuitBreakerCounter, 0, len(b.counters))
	for _, c := range b.counters {
		out = append(out, *c)
	}
	return out
}

func stateFor(consecutiveFailures int) State {
	switch {
	case consecutiveFailures <= 0:
		return StateReset
	case consecutiveFailures == 1:
		return StateS1
	case consecutiveFailures == 2:
		return StateS2
	default:
		return StateS3
	}
}
