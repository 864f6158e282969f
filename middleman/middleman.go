// Package middleman implements the Middleman (spec.md component G): the
// process-wide owner of every peer session, grounded on
// original_source/src/mailman.cpp's single map from process_information
// to a connected socket. Where the original serializes all outbound
// writes and inbound reads through one thread pulling off a job queue,
// this port gives every Session its own goroutine (peer.Session.Forward
// already serializes concurrent writers with a mutex) and keeps the
// Middleman itself as just the map plus the accept loop, guarded by one
// mutex — the same trade a Go port of a single-threaded reactor makes
// when the underlying primitives (net.Conn, sync.Mutex) are already
// safe for concurrent use.
package middleman

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/nimbusact/actorcore/actorerr"
	"github.com/nimbusact/actorcore/eventstream"
	"github.com/nimbusact/actorcore/internal/rtlog"
	"github.com/nimbusact/actorcore/peer"
	"github.com/nimbusact/actorcore/proxy"
	"github.com/nimbusact/actorcore/ref"
	"github.com/nimbusact/actorcore/registry"
	"github.com/nimbusact/actorcore/wire"
)

// Middleman owns every peer.Session this node has open and the listener
// accepting new inbound connections.
type Middleman struct {
	local ref.NodeId
	codec *wire.Codec
	reg   *registry.Registry

	mu       sync.Mutex
	sessions map[ref.NodeId]*peer.Session
	listener net.Listener

	proxies *proxy.Manager
	events  *eventstream.Stream

	advertised       func() []ref.ActorId
	handshakeTimeout time.Duration
}

// New returns a Middleman for local, resolving local recipients through
// reg and remote disconnects through proxies. advertised, if non-nil, is
// consulted for the AdvertisedIDs field of every handshake this node
// sends; a nil advertised sends an empty list. handshakeTimeout bounds
// every inbound and outbound handshake (0 means no deadline). Every
// connect/disconnect is published on events, so application code (or a
// supervisor) can react to node lifecycle without polling the Middleman
// directly.
func New(local ref.NodeId, codec *wire.Codec, reg *registry.Registry, events *eventstream.Stream, advertised func() []ref.ActorId, handshakeTimeout time.Duration) *Middleman {
	m := &Middleman{
		local:            local,
		codec:            codec,
		reg:              reg,
		sessions:         make(map[ref.NodeId]*peer.Session),
		events:           events,
		advertised:       advertised,
		handshakeTimeout: handshakeTimeout,
	}
	m.proxies = proxy.NewManager(m.forwarderFor)
	return m
}

// Proxies returns the proxy manager backed by this Middleman, so callers
// building a Resolver can route foreign-node addresses through it.
func (m *Middleman) Proxies() *proxy.Manager { return m.proxies }

func (m *Middleman) advertisedIDs() []ref.ActorId {
	if m.advertised == nil {
		return nil
	}
	return m.advertised()
}

// Listen starts accepting inbound connections on addr. The accept loop
// runs in its own goroutine; Listen returns once the listener is bound.
func (m *Middleman) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("middleman: listen %s: %w", addr, err)
	}
	m.mu.Lock()
	m.listener = ln
	m.mu.Unlock()
	go m.acceptLoop(ln)
	return nil
}

// Addr reports the listener's bound address, or "" if Listen was never
// called or has since Stopped.
func (m *Middleman) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

func (m *Middleman) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			rtlog.Infof("middleman: accept loop on %s stopped: %v", ln.Addr(), err)
			return
		}
		go m.acceptOne(conn)
	}
}

func (m *Middleman) acceptOne(conn net.Conn) {
	s, err := peer.AcceptAndHandshake(conn, m.codec, m.local, m.advertisedIDs(), m.handshakeTimeout)
	if err != nil {
		rtlog.Warnf("middleman: inbound handshake failed: %v", err)
		return
	}
	m.adopt(s)
}

// Dial connects to addr and adopts the resulting session, unless a
// session for the resulting remote node already exists (first
// connection wins, per this runtime's resolution of the duplicate-node
// Open Question).
func (m *Middleman) Dial(addr string) (ref.NodeId, error) {
	s, err := peer.DialAndHandshake(addr, m.codec, m.local, m.advertisedIDs(), m.handshakeTimeout)
	if err != nil {
		return ref.NodeId{}, err
	}
	if !m.adopt(s) {
		return ref.NodeId{}, actorerr.ErrDuplicateNode
	}
	return s.RemoteNode(), nil
}

// adopt registers s under its remote node, running its receive loop.
// If a session for that node is already registered, s is closed and
// adopt returns false: the first connection between two nodes wins, and
// a second one is torn down rather than replacing it.
func (m *Middleman) adopt(s *peer.Session) bool {
	m.mu.Lock()
	if _, exists := m.sessions[s.RemoteNode()]; exists {
		m.mu.Unlock()
		rtlog.Warnf("middleman: duplicate connection to %s rejected", s.RemoteNode())
		s.Close()
		return false
	}
	m.sessions[s.RemoteNode()] = s
	m.mu.Unlock()

	if m.events != nil {
		m.events.Publish(eventstream.NodeUp{Node: s.RemoteNode()})
	}
	go m.run(s)
	return true
}

func (m *Middleman) run(s *peer.Session) {
	node := s.RemoteNode()
	err := s.Run(m.deliver)
	rtlog.Infof("middleman: session to %s ended: %v", node, err)

	m.mu.Lock()
	if m.sessions[node] == s {
		delete(m.sessions, node)
	}
	m.mu.Unlock()
	m.proxies.SeverNode(node)
	if m.events != nil {
		m.events.Publish(eventstream.NodeDown{Node: node, Reason: err})
	}
}

// deliver routes one decoded inbound envelope to its local recipient.
func (m *Middleman) deliver(hdr ref.MessageHeader, payload interface{}) {
	if !hdr.Recipient.Node.Equal(m.local) {
		rtlog.Warnf("middleman: dropping envelope for %s: %v", hdr.Recipient, actorerr.ErrNoRoute)
		return
	}
	target := m.reg.Get(hdr.Recipient.ID)
	if target == nil {
		rtlog.Warnf("middleman: dropping envelope for %s: %v", hdr.Recipient, actorerr.ErrActorNotFound)
		return
	}
	target.Enqueue(hdr, payload)
}

// forwarderFor returns the Session for node, or nil if no session is
// currently open to it. It is the func proxy.Manager uses to resolve a
// Forwarder the first time an address on a new node is seen; this
// Middleman never dials proactively on that path, since Proxy creation
// is driven by an inbound reference (e.g. a Sender field), not by local
// intent to connect.
func (m *Middleman) forwarderFor(node ref.NodeId) proxy.Forwarder {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[node]
	if !ok {
		return nil
	}
	return s
}

// Stop closes the listener and every open session.
func (m *Middleman) Stop() {
	m.mu.Lock()
	if m.listener != nil {
		m.listener.Close()
	}
	sessions := m.sessions
	m.sessions = make(map[ref.NodeId]*peer.Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
