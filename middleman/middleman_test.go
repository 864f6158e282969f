package middleman_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nimbusact/actorcore/eventstream"
	"github.com/nimbusact/actorcore/middleman"
	"github.com/nimbusact/actorcore/ref"
	"github.com/nimbusact/actorcore/registry"
	"github.com/nimbusact/actorcore/wire"
)

type recordingRef struct {
	addr     ref.ActorAddress
	received chan interface{}
}

func (r *recordingRef) Address() ref.ActorAddress { return r.addr }
func (r *recordingRef) Enqueue(_ ref.MessageHeader, payload interface{}) {
	r.received <- payload
}
func (r *recordingRef) LinkTo(ref.Ref)      {}
func (r *recordingRef) UnlinkFrom(ref.Ref)  {}
func (r *recordingRef) MonitorBy(ref.Ref)   {}
func (r *recordingRef) DemonitorBy(ref.Ref) {}

type greeting struct{ Text string }

func TestMiddlemanDeliversAcrossNodes(t *testing.T) {
	codec := wire.NewCodec()
	codec.Register(greeting{})

	nodeA := ref.NodeId{ProcessID: 100}
	nodeB := ref.NodeId{ProcessID: 200}

	regA := registry.New()
	regB := registry.New()

	events := eventstream.New()
	nodeUps := make(chan eventstream.NodeUp, 4)
	events.Subscribe(func(e interface{}) {
		if up, ok := e.(eventstream.NodeUp); ok {
			nodeUps <- up
		}
	})

	mmA := middleman.New(nodeA, codec, regA, events, nil, 0)
	mmB := middleman.New(nodeB, codec, regB, nil, nil, 0)

	require.NoError(t, mmB.Listen("127.0.0.1:0"))
	defer mmA.Stop()
	defer mmB.Stop()

	remoteNode, err := mmA.Dial(mmB.Addr())
	require.NoError(t, err)
	require.True(t, remoteNode.Equal(nodeB))

	select {
	case up := <-nodeUps:
		require.True(t, up.Node.Equal(nodeB))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for NodeUp event")
	}

	target := &recordingRef{addr: ref.ActorAddress{ID: 42, Node: nodeB}, received: make(chan interface{}, 1)}
	regB.Put(42, target)

	fwd := mmA.Proxies().Get(target.addr)
	require.NotNil(t, fwd)
	fwd.Enqueue(ref.MessageHeader{Recipient: target.addr}, greeting{Text: "hello from A"})

	select {
	case payload := <-target.received:
		require.Equal(t, greeting{Text: "hello from A"}, payload)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cross-node delivery")
	}
}

func TestMiddlemanDuplicateConnectionRejected(t *testing.T) {
	codec := wire.NewCodec()
	nodeA := ref.NodeId{ProcessID: 1}
	nodeB := ref.NodeId{ProcessID: 2}

	mmA := middleman.New(nodeA, codec, registry.New(), nil, nil, 0)
	mmB := middleman.New(nodeB, codec, registry.New(), nil, nil, 0)
	require.NoError(t, mmB.Listen("127.0.0.1:0"))
	defer mmA.Stop()
	defer mmB.Stop()

	_, err := mmA.Dial(mmB.Addr())
	require.NoError(t, err)

	_, err = mmA.Dial(mmB.Addr())
	require.Error(t, err)
}
