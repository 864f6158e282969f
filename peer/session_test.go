package peer_test

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nimbusact/actorcore/actorerr"
	"github.com/nimbusact/actorcore/peer"
	"github.com/nimbusact/actorcore/ref"
	"github.com/nimbusact/actorcore/wire"
)

type echoPayload struct{ Text string }

func pipeNodes(t *testing.T) (a, b net.Conn) {
	t.Helper()
	a, b = net.Pipe()
	t.Cleanup(func() { a.Close(); b.Close() })
	return a, b
}

func TestSessionHandshakeAndForward(t *testing.T) {
	codec := wire.NewCodec()
	codec.Register(echoPayload{})

	connA, connB := pipeNodes(t)
	nodeA := ref.NodeId{ProcessID: 1}
	nodeB := ref.NodeId{ProcessID: 2}

	type result struct {
		s   *peer.Session
		err error
	}
	initiated := make(chan result, 1)
	accepted := make(chan result, 1)

	go func() {
		s, err := peer.DialAndHandshakeConn(connA, codec, nodeA, []ref.ActorId{1, 2}, 0)
		initiated <- result{s, err}
	}()
	go func() {
		s, err := peer.AcceptAndHandshake(connB, codec, nodeB, []ref.ActorId{7}, 0)
		accepted <- result{s, err}
	}()

	ra := <-initiated
	rb := <-accepted
	require.NoError(t, ra.err)
	require.NoError(t, rb.err)
	require.True(t, ra.s.RemoteNode().Equal(nodeB))
	require.True(t, rb.s.RemoteNode().Equal(nodeA))

	received := make(chan interface{}, 1)
	go rb.s.Run(func(hdr ref.MessageHeader, payload interface{}) {
		received <- payload
	})

	hdr := ref.MessageHeader{Sender: ref.ActorAddress{ID: 1, Node: nodeA}, Recipient: ref.ActorAddress{ID: 9, Node: nodeB}}
	require.NoError(t, ra.s.Forward(hdr, echoPayload{Text: "hi"}))

	select {
	case p := <-received:
		require.Equal(t, echoPayload{Text: "hi"}, p)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivered envelope")
	}
}

// TestSessionHandshakeTimeout exercises the handshake deadline: a peer
// that never speaks must not hang the dialer forever.
func TestSessionHandshakeTimeout(t *testing.T) {
	codec := wire.NewCodec()
	connA, _ := pipeNodes(t)
	nodeA := ref.NodeId{ProcessID: 1}

	_, err := peer.DialAndHandshakeConn(connA, codec, nodeA, nil, 20*time.Millisecond)
	require.Error(t, err)
	require.ErrorIs(t, err, actorerr.ErrHandshakeFailed)
}

func TestSessionCloseEndsRun(t *testing.T) {
	codec := wire.NewCodec()
	connA, connB := pipeNodes(t)
	nodeA := ref.NodeId{ProcessID: 1}
	nodeB := ref.NodeId{ProcessID: 2}

	initiated := make(chan *peer.Session, 1)
	accepted := make(chan *peer.Session, 1)
	go func() {
		s, err := peer.DialAndHandshakeConn(connA, codec, nodeA, nil, 0)
		require.NoError(t, err)
		initiated <- s
	}()
	go func() {
		s, err := peer.AcceptAndHandshake(connB, codec, nodeB, nil, 0)
		require.NoError(t, err)
		accepted <- s
	}()
	sa := <-initiated
	sb := <-accepted

	runErr := make(chan error, 1)
	go func() { runErr <- sb.Run(func(ref.MessageHeader, interface{}) {}) }()

	require.NoError(t, sa.Close())

	select {
	case err := <-runErr:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after peer closed")
	}
}
