// Package proxy implements the Proxy Actor (spec.md component E): a
// local stand-in for an actor that lives on another node. It satisfies
// ref.Ref exactly like actor.Actor does, so any code holding a Ref
// neither knows nor cares whether it is talking to a local actor or a
// remote one — the tagged-variant design spec.md §9 calls for.
//
// A Proxy never runs its own goroutine or owns a real mailbox; Enqueue
// hands the message straight to an injected Forwarder, which the
// middleman package implements to actually serialize and write it to
// the peer connection. This keeps this package free of any import on
// package peer or package middleman, avoiding the import cycle those
// two packages would otherwise create with this one.
package proxy

import (
	"sync"

	"github.com/nimbusact/actorcore/internal/rtlog"
	"github.com/nimbusact/actorcore/ref"
	"github.com/nimbusact/actorcore/sysmsg"
)

// Forwarder hands one addressed message off to whatever transport
// connects this node to addr.Node. The middleman's peer-session map
// implements it; tests can fake it trivially.
type Forwarder interface {
	Forward(hdr ref.MessageHeader, payload interface{}) error
}

// Proxy stands in for a single remote ActorAddress.
type Proxy struct {
	address   ref.ActorAddress
	forwarder Forwarder

	mu       sync.Mutex
	linked   map[ref.ActorAddress]ref.Ref
	monitors []ref.Ref
	severed  bool
}

// New returns a Proxy for addr that forwards outbound traffic through
// forwarder.
func New(addr ref.ActorAddress, forwarder Forwarder) *Proxy {
	return &Proxy{
		address:   addr,
		forwarder: forwarder,
		linked:    make(map[ref.ActorAddress]ref.Ref),
	}
}

// Address returns the remote actor's address.
func (p *Proxy) Address() ref.ActorAddress { return p.address }

// Enqueue forwards hdr/payload over the wire. A Proxy has no mailbox of
// its own to fill up or close; once the peer session has been severed,
// Enqueue is a silent no-op, mirroring a closed local mailbox.
func (p *Proxy) Enqueue(hdr ref.MessageHeader, payload interface{}) {
	p.mu.Lock()
	severed := p.severed
	p.mu.Unlock()
	if severed {
		return
	}
	if err := p.forwarder.Forward(hdr, payload); err != nil {
		rtlog.Warnf("proxy %s: forward failed: %v", p.address, err)
	}
}

// LinkTo records that other has linked to the remote actor this Proxy
// stands in for, so Sever can send it an Exit if the peer session drops.
// It also forwards a LinkRequest naming other, but wire.Codec (gob)
// cannot encode the local Ref a LinkRequest carries, so over a peer
// session that forward fails and is logged, and the remote actor itself
// is not linked.
func (p *Proxy) LinkTo(other ref.Ref) {
	p.mu.Lock()
	p.linked[other.Address()] = other
	p.mu.Unlock()
	p.Enqueue(ref.MessageHeader{Recipient: p.address}, sysmsg.LinkRequest{From: other})
}

// UnlinkFrom is LinkTo's inverse.
func (p *Proxy) UnlinkFrom(other ref.Ref) {
	p.mu.Lock()
	delete(p.linked, other.Address())
	p.mu.Unlock()
	p.Enqueue(ref.MessageHeader{Recipient: p.address}, sysmsg.LinkRequest{From: other, Unlink: true})
}

// MonitorBy records observer as wanting a Down notification for the
// connection-lost case (see Sever). It also forwards a MonitorRequest,
// but like LinkTo's LinkRequest it carries a local Ref that wire.Codec
// cannot encode, so over a peer session the remote actor's own
// termination is not reported to observer.
func (p *Proxy) MonitorBy(observer ref.Ref) {
	p.mu.Lock()
	p.monitors = append(p.monitors, observer)
	p.mu.Unlock()
	p.Enqueue(ref.MessageHeader{Recipient: p.address}, sysmsg.MonitorRequest{Observer: observer})
}

// DemonitorBy cancels one prior MonitorBy registration for observer.
func (p *Proxy) DemonitorBy(observer ref.Ref) {
	p.mu.Lock()
	for i, r := range p.monitors {
		if r.Address() == observer.Address() {
			p.monitors = append(p.monitors[:i], p.monitors[i+1:]...)
			break
		}
	}
	p.mu.Unlock()
	p.Enqueue(ref.MessageHeader{Recipient: p.address}, sysmsg.MonitorRequest{Observer: observer, Demonitor: true})
}

// Sever is called by the middleman when the peer session backing this
// Proxy disconnects. It synthesizes the same Exit/Down fan-out a real
// actor's cleanup protocol would produce, using ref.ExitConnectionLost
// as the reason, then marks the Proxy dead so further Enqueue calls are
// silently dropped instead of writing to a closed connection.
func (p *Proxy) Sever() {
	p.mu.Lock()
	if p.severed {
		p.mu.Unlock()
		return
	}
	p.severed = true
	linked := p.linked
	monitors := p.monitors
	p.linked = nil
	p.monitors = nil
	p.mu.Unlock()

	for addr, l := range linked {
		l.Enqueue(ref.MessageHeader{Sender: p.address, Recipient: addr},
			sysmsg.Exit{Who: p.address, Reason: ref.ExitConnectionLost, Relation: sysmsg.RelationLinked})
		l.UnlinkFrom(p)
	}
	for _, m := range monitors {
		m.Enqueue(ref.MessageHeader{Sender: p.address, Recipient: m.Address()},
			sysmsg.Down{Who: p.address, Reason: ref.ExitConnectionLost})
	}
}
