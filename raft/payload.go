package raft

import "github.com/worldcryptonomad/rsm/primitives/lock"

// Payload is the narrow capability set the user's application state
// must implement. Apply runs under the write barrier, exactly once per
// committed index, in order; Flush materializes a snapshot for read
// consumers. Carried forward from the Rust reference's Payload trait
// (original_source/src/bin/cluster.rs: `impl Payload for COUNTER`).
type Payload interface {
	// Apply mutates the payload for one committed log entry's blob.
	// Must be deterministic and must not call back into the owning
	// Raft's public API.
	Apply(blob []byte)
	// Flush serializes the current payload for a read consumer.
	Flush() []byte
}

// barrier is the single-writer/multi-reader protection around a
// Payload, built on the fairness lock of primitives/lock: the writer
// (the apply pipeline) runs its mutation as the release action of
// Unlock, and a reader runs its snapshot as the acquire action of
// Lock, leaving Unlock's action empty. Both sides of the Lock/Unlock
// contract are exercised this way.
type barrier[P Payload] struct {
	lk *lock.Lock[P]
}

func newBarrier[P Payload](strategy lock.Strategy, payload P) *barrier[P] {
	return &barrier[P]{lk: lock.NewWithValue[P](strategy, payload)}
}

// apply runs fn (which mutates the payload for one committed entry) as
// the release action of the lock.
func (b *barrier[P]) apply(fn func(p P)) {
	b.lk.Lock(func(p *P) {})
	b.lk.Unlock(func(p *P) { fn(*p) })
}

// snapshot acquires the lock to read a consistent flush of the payload.
func (b *barrier[P]) snapshot() []byte {
	var out []byte
	b.lk.Lock(func(p *P) { out = (*p).Flush() })
	b.lk.Unlock(func(p *P) {})
	return out
}

// ReadHandle is the read side of the payload barrier, returned to the
// caller of Spawn. Any number of goroutines may hold and use a
// ReadHandle concurrently.
type ReadHandle[P Payload] struct {
	b *barrier[P]
}

// Snapshot returns Flush() of the payload as of some applied index
// <= the automaton's current commit index.
func (h *ReadHandle[P]) Snapshot() []byte {
	return h.b.snapshot()
}
