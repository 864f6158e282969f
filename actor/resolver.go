package actor

import (
	"github.com/nimbusact/actorcore/ref"
	"github.com/nimbusact/actorcore/registry"
)

// LocalResolver implements ref.Resolver for addresses on a single node,
// backed directly by the Actor Registry. The root System facade wraps a
// LocalResolver together with the proxy manager to also resolve
// addresses on other nodes; a bare LocalResolver is enough for any
// single-process runtime and for tests.
type LocalResolver struct {
	Node     ref.NodeId
	Registry *registry.Registry
}

// Resolve returns the live Ref for addr if it names this resolver's node
// and the registry still holds a live entry for it.
func (r LocalResolver) Resolve(addr ref.ActorAddress) ref.Ref {
	if !addr.Node.Equal(r.Node) {
		return nil
	}
	return r.Registry.Get(addr.ID)
}

// ExitReason reports the exit reason of a since-terminated local actor.
func (r LocalResolver) ExitReason(addr ref.ActorAddress) (ref.ExitReason, bool) {
	if !addr.Node.Equal(r.Node) {
		return ref.ExitInvalid, false
	}
	entry := r.Registry.GetEntry(addr.ID)
	return entry.Reason, entry.Reason != ref.ExitInvalid
}
