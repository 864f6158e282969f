// Package registry implements the Actor Registry (spec.md component B):
// a reader/writer-locked map from ActorId to either a live Ref or a
// recorded exit reason, plus nothing else — the running-actor await
// barrier lives in package id, not here, per spec.md §4.A/§4.B's split.
package registry

import (
	"sync"

	"github.com/nimbusact/actorcore/internal/rtlog"
	"github.com/nimbusact/actorcore/ref"
)

// Entry is the pair of fields spec.md §3 requires: at most one of
// Reference and Reason is meaningful at a time.
type Entry struct {
	Reference ref.Ref
	Reason    ref.ExitReason
}

// Registry maps ActorIds to live references or recorded exit reasons.
// The zero value is not usable; use New.
type Registry struct {
	mu      sync.RWMutex
	entries map[ref.ActorId]Entry
}

// New returns an empty, ready-to-use Registry.
func New() *Registry {
	return &Registry{entries: make(map[ref.ActorId]Entry)}
}

// Put inserts (ref, ExitInvalid) for id. If an entry already exists for
// id it is a no-op (the first put wins), logged at warn.
func (r *Registry) Put(id ref.ActorId, reference ref.Ref) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; exists {
		rtlog.Warnf("registry: put ignored, entry already exists for actor %d", id)
		return
	}
	r.entries[id] = Entry{Reference: reference}
}

// Erase replaces id's reference with nil and records reason. reason must
// be non-zero. Calling Erase twice with the same reason is a no-op;
// calling it twice with conflicting reasons keeps the first and logs a
// warning, per spec.md §4.B / §7.
func (r *Registry) Erase(id ref.ActorId, reason ref.ExitReason) {
	if reason == ref.ExitInvalid {
		rtlog.Warnf("registry: erase called with invalid (zero) reason for actor %d, ignoring", id)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, exists := r.entries[id]
	switch {
	case !exists:
		r.entries[id] = Entry{Reason: reason}
	case existing.Reason == ref.ExitInvalid:
		r.entries[id] = Entry{Reason: reason}
	case existing.Reason != reason:
		rtlog.Warnf("registry: conflicting exit reasons for actor %d: keeping %d, dropping %d",
			id, existing.Reason, reason)
	}
}

// Get returns the live reference for id, or nil if the actor never
// existed or has already exited.
func (r *Registry) Get(id ref.ActorId) ref.Ref {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[id].Reference
}

// GetEntry returns the full entry for id, letting callers distinguish
// "never existed" ((nil, ExitInvalid)) from "exited" ((nil, r != 0)).
func (r *Registry) GetEntry(id ref.ActorId) Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[id]
}

// Len reports how many entries (live or exited) the registry holds. Used
// by tests and diagnostics; not part of the spec's contract.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
