package proxy

import (
	"sync"

	"github.com/nimbusact/actorcore/ref"
)

// Manager get-or-creates the single Proxy each remote ActorAddress uses
// on this node, and lets the middleman sever every proxy for a node in
// one pass when its peer session disconnects.
type Manager struct {
	forwarder func(node ref.NodeId) Forwarder

	mu      sync.Mutex
	proxies map[ref.ActorAddress]*Proxy
}

// NewManager returns a Manager that asks forwarderFor for the Forwarder
// backing a given remote node the first time an address on that node is
// resolved.
func NewManager(forwarderFor func(node ref.NodeId) Forwarder) *Manager {
	return &Manager{
		forwarder: forwarderFor,
		proxies:   make(map[ref.ActorAddress]*Proxy),
	}
}

// Get returns the Proxy for addr, creating one if this is the first time
// addr has been named. Returns nil if no Forwarder is available for
// addr.Node (with the middleman's forwarder: no peer session to that node
// is open; Get never dials one).
func (m *Manager) Get(addr ref.ActorAddress) *Proxy {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.proxies[addr]; ok {
		return p
	}
	fwd := m.forwarder(addr.Node)
	if fwd == nil {
		return nil
	}
	p := New(addr, fwd)
	m.proxies[addr] = p
	return p
}

// SeverNode marks every proxy for node as disconnected, in response to
// its peer session closing.
func (m *Manager) SeverNode(node ref.NodeId) {
	m.mu.Lock()
	var toSever []*Proxy
	for addr, p := range m.proxies {
		if addr.Node.Equal(node) {
			toSever = append(toSever, p)
			delete(m.proxies, addr)
		}
	}
	m.mu.Unlock()
	for _, p := range toSever {
		p.Sever()
	}
}
