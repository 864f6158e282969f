package actorcore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	actorcore "github.com/nimbusact/actorcore"
	"github.com/nimbusact/actorcore/actor"
	"github.com/nimbusact/actorcore/ref"
)

type greeting struct {
	Text string
}

func newTestSystem(t *testing.T, node uint32) *actorcore.System {
	t.Helper()
	sys, err := actorcore.New(actorcore.Config{Node: ref.NodeId{ProcessID: node}})
	require.NoError(t, err)
	t.Cleanup(sys.Shutdown)
	return sys
}

func TestSpawnAndSelfSend(t *testing.T) {
	sys := newTestSystem(t, 1)

	received := make(chan greeting, 1)
	a := sys.Spawn(func(a *actor.Actor) {
		a.Recv(func(payload interface{}) bool {
			if g, ok := payload.(greeting); ok {
				received <- g
			}
			return false
		})
	})
	a.Enqueue(ref.MessageHeader{Recipient: a.Self()}, greeting{Text: "hi"})

	select {
	case g := <-received:
		require.Equal(t, "hi", g.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestRegisterAndWhereIs(t *testing.T) {
	sys := newTestSystem(t, 2)

	a := sys.Spawn(func(a *actor.Actor) {
		a.Recv(func(interface{}) bool { return true })
	})
	require.NoError(t, sys.Register("worker", a))
	require.Equal(t, a.Self(), sys.WhereIs("worker").Address())

	require.Error(t, sys.Register("worker", a))

	sys.Unregister("worker")
	require.Nil(t, sys.WhereIs("worker"))
}

// TestConfigTunablesAreHonored exercises Config's real tunables
// end-to-end: a System built with non-default MailboxCapacity,
// SchedulerCapacityHint and HandshakeTimeout still spawns and delivers
// messages normally.
func TestConfigTunablesAreHonored(t *testing.T) {
	sys, err := actorcore.New(actorcore.Config{
		Node:                  ref.NodeId{ProcessID: 30},
		MailboxCapacity:       4,
		SchedulerCapacityHint: 2,
		HandshakeTimeout:      time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(sys.Shutdown)

	received := make(chan greeting, 1)
	a := sys.Spawn(func(a *actor.Actor) {
		a.Recv(func(payload interface{}) bool {
			if g, ok := payload.(greeting); ok {
				received <- g
			}
			return false
		})
	})
	a.Enqueue(ref.MessageHeader{Recipient: a.Self()}, greeting{Text: "tuned"})

	select {
	case g := <-received:
		require.Equal(t, "tuned", g.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message on a tuned System")
	}
}

func TestCrossNodeSendThroughListenAndConnect(t *testing.T) {
	sysA, err := actorcore.New(actorcore.Config{Node: ref.NodeId{ProcessID: 10}, ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	t.Cleanup(sysA.Shutdown)
	sysA.Codec().Register(greeting{})

	sysB, err := actorcore.New(actorcore.Config{Node: ref.NodeId{ProcessID: 20}})
	require.NoError(t, err)
	t.Cleanup(sysB.Shutdown)
	sysB.Codec().Register(greeting{})

	received := make(chan greeting, 1)
	target := sysA.Spawn(func(a *actor.Actor) {
		a.Recv(func(payload interface{}) bool {
			if g, ok := payload.(greeting); ok {
				received <- g
			}
			return false
		})
	})

	remoteNode, err := sysB.Connect(sysA.Addr())
	require.NoError(t, err)
	require.True(t, remoteNode.Equal(sysA.Node()))

	proxyRef := sysB.Resolve(target.Self())
	require.NotNil(t, proxyRef)
	proxyRef.Enqueue(ref.MessageHeader{Recipient: target.Self()}, greeting{Text: "from B"})

	select {
	case g := <-received:
		require.Equal(t, "from B", g.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cross-node message")
	}
}
