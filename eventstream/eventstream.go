// Package eventstream broadcasts node connect/disconnect notifications
// to any number of subscribers, grounded on
// ConnorDoyle-spider/pkg/actor/event_stream.go's Subscribe/Unsubscribe/
// Publish shape. That teacher-pack example backs its stream with a
// dedicated worker actor and channel-shaped Ask/Send calls; this port
// drops the worker-actor indirection in favor of a directly
// mutex-guarded subscriber set, the same simplification this repo
// already makes for registry.Registry and proxy.Manager — internal
// runtime bookkeeping that many goroutines touch, but that never needs
// its own mailbox and dispatch loop.
package eventstream

import (
	"sync"

	"github.com/nimbusact/actorcore/ref"
)

// NodeUp is published once a peer session's handshake with a remote
// node completes.
type NodeUp struct {
	Node ref.NodeId
}

// NodeDown is published once a peer session to a remote node ends, for
// any reason (clean close, read error, or a rejected duplicate never
// reaching that point does not publish one).
type NodeDown struct {
	Node   ref.NodeId
	Reason error
}

// Subscriber receives every event published on a Stream after it
// subscribes. Implementations must not block; a slow subscriber
// delays every other subscriber's delivery of the same event, since
// Publish delivers synchronously to a snapshot of the subscriber set.
type Subscriber func(event interface{})

// token identifies one Subscribe call so Unsubscribe can remove exactly
// that registration, without requiring Subscriber to be comparable.
type token uint64

// Stream is a process-wide broadcaster of node lifecycle events. The
// zero value is not usable; use New.
type Stream struct {
	mu   sync.RWMutex
	next token
	subs map[token]Subscriber
}

// New returns an empty, ready-to-use Stream.
func New() *Stream {
	return &Stream{subs: make(map[token]Subscriber)}
}

// Subscription is returned by Subscribe and lets the caller stop
// receiving events.
type Subscription struct {
	stream *Stream
	id     token
}

// Unsubscribe removes this subscription. Safe to call more than once.
func (s Subscription) Unsubscribe() {
	s.stream.mu.Lock()
	delete(s.stream.subs, s.id)
	s.stream.mu.Unlock()
}

// Subscribe registers fn to receive every subsequently published event.
func (s *Stream) Subscribe(fn Subscriber) Subscription {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()
	return Subscription{stream: s, id: id}
}

// Publish delivers event to every current subscriber, synchronously and
// in an unspecified order, from the calling goroutine.
func (s *Stream) Publish(event interface{}) {
	s.mu.RLock()
	snapshot := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		snapshot = append(snapshot, fn)
	}
	s.mu.RUnlock()
	for _, fn := range snapshot {
		fn(event)
	}
}
