package mailbox_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nimbusact/actorcore/mailbox"
	"github.com/nimbusact/actorcore/ref"
	"github.com/nimbusact/actorcore/sysmsg"
)

func elem(n int) mailbox.Element {
	return mailbox.Element{Payload: n}
}

func TestPriorityMailboxFIFOAtEqualPriority(t *testing.T) {
	m := mailbox.NewPriorityMailbox(4)
	for i := 0; i < 5; i++ {
		m.Enqueue(elem(i))
	}
	for i := 0; i < 5; i++ {
		e, ok := m.Dequeue()
		require.True(t, ok)
		require.Equal(t, i, e.Payload)
	}
}

func TestPriorityMailboxTryDequeueEmpty(t *testing.T) {
	m := mailbox.NewPriorityMailbox(0)
	_, ok := m.TryDequeue()
	require.False(t, ok)
}

func TestPriorityMailboxCloseStopsDelivery(t *testing.T) {
	m := mailbox.NewPriorityMailbox(0)
	m.Enqueue(elem(1))
	m.Close()
	require.True(t, m.Closed())
	m.Enqueue(elem(2))
	_, ok := m.TryDequeue()
	require.False(t, ok, "no element should ever be delivered once Close has completed")
}

func TestPriorityMailboxDequeueTimeout(t *testing.T) {
	m := mailbox.NewPriorityMailbox(0)
	_, ok, timedOut := m.DequeueTimeout(20 * time.Millisecond)
	require.False(t, ok)
	require.True(t, timedOut)
}

// TestPriorityMailboxHigherPriorityDequeuesFirst exercises spec.md
// §4.D/H's send/delayed_send priority parameter: a low-priority message
// enqueued first must still dequeue after a higher-priority one enqueued
// behind it.
func TestPriorityMailboxHigherPriorityDequeuesFirst(t *testing.T) {
	m := mailbox.NewPriorityMailbox(0)
	m.Enqueue(mailbox.Element{Header: ref.MessageHeader{Priority: 0}, Payload: "low"})
	m.Enqueue(mailbox.Element{Header: ref.MessageHeader{Priority: 5}, Payload: "high"})

	e, ok := m.Dequeue()
	require.True(t, ok)
	require.Equal(t, "high", e.Payload)

	e, ok = m.Dequeue()
	require.True(t, ok)
	require.Equal(t, "low", e.Payload)
}

// TestPriorityMailboxSystemMessagesAreNeverStarved exercises SPEC_FULL's
// system-message lane: a sysmsg.IsSystem message must dequeue ahead of
// ordinary traffic regardless of the priority the ordinary traffic
// requested, since exit/down/kill delivery cannot be starved by an
// application flooding its own mailbox with high-priority sends.
func TestPriorityMailboxSystemMessagesAreNeverStarved(t *testing.T) {
	m := mailbox.NewPriorityMailbox(0)
	for i := 0; i < 10; i++ {
		m.Enqueue(mailbox.Element{Header: ref.MessageHeader{Priority: 1000}, Payload: i})
	}
	m.Enqueue(mailbox.Element{Payload: sysmsg.Kill{Reason: ref.ExitKilled}})

	e, ok := m.Dequeue()
	require.True(t, ok)
	_, isKill := e.Payload.(sysmsg.Kill)
	require.True(t, isKill, "system message should dequeue ahead of a backlog of ordinary traffic")
}

// TestPerProducerOrdering exercises spec.md §8's FIFO-per-sender property
// across multiple concurrent producers into one consumer, matching the
// literal end-to-end scenario #6.
func TestPerProducerOrdering(t *testing.T) {
	const producers = 8
	const perProducer = 1250

	m := mailbox.NewPriorityMailbox(64)
	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				m.Enqueue(mailbox.Element{
					Header:  ref.MessageHeader{Sender: ref.ActorAddress{ID: ref.ActorId(p + 1)}},
					Payload: i,
				})
			}
		}(p)
	}
	wg.Wait()

	lastSeen := make(map[ref.ActorId]int)
	total := 0
	for total < producers*perProducer {
		e, ok := m.Dequeue()
		require.True(t, ok)
		sender := e.Header.Sender.ID
		require.Equal(t, lastSeen[sender], e.Payload, "message out of order for sender %d", sender)
		lastSeen[sender] = e.Payload.(int) + 1
		total++
	}
}

func TestMPSCMailboxFIFO(t *testing.T) {
	m := mailbox.NewMPSCMailbox()
	for i := 0; i < 5; i++ {
		m.Enqueue(elem(i))
	}
	for i := 0; i < 5; i++ {
		e, ok := m.Dequeue()
		require.True(t, ok)
		require.Equal(t, i, e.Payload)
	}
}

func TestMPSCMailboxCloseUnblocksDequeue(t *testing.T) {
	m := mailbox.NewMPSCMailbox()
	done := make(chan struct{})
	go func() {
		_, ok := m.Dequeue()
		require.False(t, ok)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	m.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not unblock after Close")
	}
}
