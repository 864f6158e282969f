package actor

import (
	"sync"

	"github.com/nimbusact/actorcore/ref"
)

// groupRegistry tracks named-group membership, process-wide, so any
// actor can Join/Leave a group and later be found by name. It backs
// spec.md's supplementary group-broadcast facility, grounded on the
// same reader/writer-locked-map shape as package registry but keyed by
// an application-chosen string instead of an ActorId.
type groupRegistry struct {
	mu      sync.RWMutex
	members map[string]map[ref.ActorAddress]ref.Ref
}

func newGroupRegistry() *groupRegistry {
	return &groupRegistry{members: make(map[string]map[ref.ActorAddress]ref.Ref)}
}

func (g *groupRegistry) join(group string, addr ref.ActorAddress, r ref.Ref) {
	g.mu.Lock()
	defer g.mu.Unlock()
	set, ok := g.members[group]
	if !ok {
		set = make(map[ref.ActorAddress]ref.Ref)
		g.members[group] = set
	}
	set[addr] = r
}

func (g *groupRegistry) leave(group string, addr ref.ActorAddress) {
	g.mu.Lock()
	defer g.mu.Unlock()
	set, ok := g.members[group]
	if !ok {
		return
	}
	delete(set, addr)
	if len(set) == 0 {
		delete(g.members, group)
	}
}

// broadcast delivers payload to every current member of group, one
// Enqueue per member with that member's own address as Recipient.
func (g *groupRegistry) broadcast(group string, sender ref.ActorAddress, payload interface{}, priority int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for addr, r := range g.members[group] {
		r.Enqueue(ref.MessageHeader{Sender: sender, Recipient: addr, Priority: priority}, payload)
	}
}

// snapshot returns a copy of group's current membership.
func (g *groupRegistry) snapshot(group string) []ref.Ref {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set := g.members[group]
	out := make([]ref.Ref, 0, len(set))
	for _, r := range set {
		out = append(out, r)
	}
	return out
}
