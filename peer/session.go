// Package peer implements the Peer Session (spec.md component F): the
// per-connection state machine that turns a raw net.Conn into a stream
// of decoded (header, payload) envelopes, grounded on
// original_source/src/mailman.cpp's per-peer socket handling — a single
// outbound writer guarded against interleaving, and disconnect-on-error
// treated as unconditional session teardown, never a retry.
//
// A Session speaks a two-step handshake before any application traffic:
// the initiating side writes then reads a wire.ProcessInfo frame and the
// accepting side reads then writes one (mirroring
// spec.md §6's process-info exchange), after which RemoteNode is fixed
// for the session's lifetime. Everything after the handshake is a
// sequence of length-prefixed gob envelopes read by Run's loop.
package peer

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/nimbusact/actorcore/actorerr"
	"github.com/nimbusact/actorcore/internal/rtlog"
	"github.com/nimbusact/actorcore/ref"
	"github.com/nimbusact/actorcore/wire"
)

// Deliver receives one decoded envelope read off the wire.
type Deliver func(hdr ref.MessageHeader, payload interface{})

// Session owns one TCP connection to exactly one remote node.
type Session struct {
	conn   net.Conn
	codec  *wire.Codec
	local  ref.NodeId
	remote ref.NodeId

	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

// DialAndHandshake connects to addr, exchanges process-info frames as
// the initiating side (write first, then read), and returns a Session
// ready for Run. timeout bounds the handshake only (0 means no
// deadline); the connection has no read/write deadline once Run starts.
func DialAndHandshake(addr string, codec *wire.Codec, local ref.NodeId, advertised []ref.ActorId, timeout time.Duration) (*Session, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("peer: dial %s: %w", addr, err)
	}
	return DialAndHandshakeConn(conn, codec, local, advertised, timeout)
}

// DialAndHandshakeConn runs the initiating side of the handshake over an
// already-established conn. Exposed separately from DialAndHandshake so
// tests can drive it over an in-memory net.Pipe.
func DialAndHandshakeConn(conn net.Conn, codec *wire.Codec, local ref.NodeId, advertised []ref.ActorId, timeout time.Duration) (*Session, error) {
	s := newSession(conn, codec, local)
	if err := s.handshakeWithin(advertised, true, timeout); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// AcceptAndHandshake wraps an already-accepted connection, exchanging
// process-info frames as the accepting side (read first, then write).
func AcceptAndHandshake(conn net.Conn, codec *wire.Codec, local ref.NodeId, advertised []ref.ActorId, timeout time.Duration) (*Session, error) {
	s := newSession(conn, codec, local)
	if err := s.handshakeWithin(advertised, false, timeout); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func newSession(conn net.Conn, codec *wire.Codec, local ref.NodeId) *Session {
	tuneTCP(conn)
	return &Session{
		conn:   conn,
		codec:  codec,
		local:  local,
		closed: make(chan struct{}),
	}
}

// handshakeWithin runs handshake with conn's deadline bounded by timeout
// (0 leaves any existing deadline alone), clearing the deadline again
// once the handshake returns so a slow application-level peer is never
// mistaken for a hung one after Run takes over.
func (s *Session) handshakeWithin(advertised []ref.ActorId, initiator bool, timeout time.Duration) error {
	if timeout > 0 {
		if err := s.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return fmt.Errorf("%w: set deadline: %v", actorerr.ErrHandshakeFailed, err)
		}
		defer s.conn.SetDeadline(time.Time{})
	}
	return s.handshake(advertised, initiator)
}

func (s *Session) handshake(advertised []ref.ActorId, initiator bool) error {
	mine := wire.ProcessInfo{Node: s.local, AdvertisedIDs: advertised}
	var theirs wire.ProcessInfo
	var err error
	if initiator {
		if err = wire.WriteProcessInfo(s.conn, mine); err == nil {
			theirs, err = wire.ReadProcessInfo(s.conn)
		}
	} else {
		if theirs, err = wire.ReadProcessInfo(s.conn); err == nil {
			err = wire.WriteProcessInfo(s.conn, mine)
		}
	}
	if err != nil {
		return fmt.Errorf("%w: with %s: %v", actorerr.ErrHandshakeFailed, s.conn.RemoteAddr(), err)
	}
	if theirs.Node.IsZero() {
		return fmt.Errorf("%w: peer advertised a zero NodeId", actorerr.ErrHandshakeFailed)
	}
	s.remote = theirs.Node
	return nil
}

// RemoteNode reports the node this session connects to, valid only
// after a successful handshake.
func (s *Session) RemoteNode() ref.NodeId { return s.remote }

// Forward encodes hdr/payload and writes it as one frame. It is safe to
// call concurrently with itself; the underlying connection sees writes
// in the order Forward calls acquire writeMu, exactly as mailman_loop's
// single outbound path serializes sends to one peer socket.
func (s *Session) Forward(hdr ref.MessageHeader, payload interface{}) error {
	body, err := s.codec.EncodeEnvelope(hdr, payload)
	if err != nil {
		return fmt.Errorf("peer: encode for %s: %w", s.remote, err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	select {
	case <-s.closed:
		return fmt.Errorf("peer: session to %s is closed", s.remote)
	default:
	}
	if err := wire.WriteFrame(s.conn, body); err != nil {
		s.Close()
		return fmt.Errorf("peer: write to %s: %w", s.remote, err)
	}
	return nil
}

// Run reads frames until the connection fails or Close is called,
// invoking deliver for each successfully decoded envelope. It returns
// the error that ended the loop (io.EOF on a clean remote close). Run
// is meant to be the body of the per-session goroutine the middleman
// starts after a successful handshake.
func (s *Session) Run(deliver Deliver) error {
	for {
		payload, err := wire.ReadFrame(s.conn)
		if err != nil {
			s.Close()
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return fmt.Errorf("peer: read from %s: %w", s.remote, err)
		}
		hdr, decoded, err := s.codec.DecodeEnvelope(payload)
		if err != nil {
			// A single corrupted envelope is a protocol violation, not a
			// transient fault; original_source/src/mailman.cpp likewise
			// treats any serialization failure as grounds to drop the peer
			// rather than try to resynchronize the stream.
			rtlog.Warnf("peer: dropping session to %s: %v", s.remote, err)
			s.Close()
			return err
		}
		deliver(hdr, decoded)
	}
}

// Close tears down the connection. Safe to call more than once and
// concurrently with Forward/Run.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.conn.Close()
	})
	return err
}
