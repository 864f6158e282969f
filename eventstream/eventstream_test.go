package eventstream_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nimbusact/actorcore/eventstream"
	"github.com/nimbusact/actorcore/ref"
)

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	s := eventstream.New()
	var a, b []interface{}
	s.Subscribe(func(e interface{}) { a = append(a, e) })
	s.Subscribe(func(e interface{}) { b = append(b, e) })

	node := ref.NodeId{ProcessID: 7}
	s.Publish(eventstream.NodeUp{Node: node})

	require.Equal(t, []interface{}{eventstream.NodeUp{Node: node}}, a)
	require.Equal(t, []interface{}{eventstream.NodeUp{Node: node}}, b)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := eventstream.New()
	var got []interface{}
	sub := s.Subscribe(func(e interface{}) { got = append(got, e) })

	s.Publish(eventstream.NodeUp{Node: ref.NodeId{ProcessID: 1}})
	sub.Unsubscribe()
	s.Publish(eventstream.NodeUp{Node: ref.NodeId{ProcessID: 2}})

	require.Len(t, got, 1)
}
