package mailbox

import (
	"sync/atomic"
	"time"

	"github.com/Workiva/go-datastructures/queue"

	"github.com/nimbusact/actorcore/actorerr"
	"github.com/nimbusact/actorcore/internal/rtlog"
	"github.com/nimbusact/actorcore/sysmsg"
)

// DefaultCapacity is the PriorityQueue's initial size hint. go-datastructures'
// PriorityQueue grows past this if needed; it is a throughput hint, not a cap.
const DefaultCapacity = 128

// systemPriority is the effective priority every sysmsg.IsSystem message
// carries, regardless of the Priority its header was built with. Exit,
// Down, Kill, LinkRequest and MonitorRequest are what keep links, monitors
// and forced termination working at all, so they must dequeue ahead of
// ordinary application traffic no matter what priority a Send or
// DelayedSend call requested.
const systemPriority = int(^uint(0) >> 1)

// item wraps an Element with the strictly increasing sequence number that
// breaks ties between elements of equal priority, so equal-priority
// traffic still dequeues in the order it was enqueued.
type item struct {
	Element
	seq int64
}

func effectivePriority(e Element) int {
	if _, ok := e.Payload.(sysmsg.IsSystem); ok {
		return systemPriority
	}
	return e.Header.Priority
}

// Compare implements queue.Item. go-datastructures' PriorityQueue is a
// min-heap that pops the least Compare value first, so "sorts first"
// means "compares less".
func (it *item) Compare(other queue.Item) int {
	o := other.(*item)
	p1, p2 := effectivePriority(it.Element), effectivePriority(o.Element)
	switch {
	case p1 > p2:
		return -1
	case p1 < p2:
		return 1
	case it.seq < o.seq:
		return -1
	case it.seq > o.seq:
		return 1
	default:
		return 0
	}
}

// PriorityMailbox is the default Mailbox implementation for ordinary
// (non-blocking-thread) local actors, backed by
// github.com/Workiva/go-datastructures/queue.PriorityQueue — the same
// dependency and collection type the Delayed-Send Scheduler already uses
// (delay/scheduler.go's entry/Compare pattern), applied here to the
// mailbox itself so spec.md §4.D/H's send/delayed_send priority parameter
// has somewhere to act and system messages are never starved behind a
// backlog of low-priority ordinary sends. A dedicated wake channel plays
// the blocking role RingBuffer.Get/Poll played in the plain-FIFO version
// this replaces, since PriorityQueue exposes no timeout-aware pop.
type PriorityMailbox struct {
	q      *queue.PriorityQueue
	seq    int64
	wake   chan struct{}
	done   chan struct{}
	closed int32
}

// NewPriorityMailbox returns a PriorityMailbox with the given capacity hint.
func NewPriorityMailbox(capacityHint uint64) *PriorityMailbox {
	if capacityHint == 0 {
		capacityHint = DefaultCapacity
	}
	return &PriorityMailbox{
		q:    queue.NewPriorityQueue(int(capacityHint), false),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (m *PriorityMailbox) Enqueue(e Element) {
	if atomic.LoadInt32(&m.closed) == 1 {
		rtlog.Warnf("mailbox: enqueue dropped: %v", actorerr.ErrMailboxClosed)
		return
	}
	it := &item{Element: e, seq: atomic.AddInt64(&m.seq, 1)}
	if err := m.q.Put(it); err != nil {
		// Put only errors once the queue has been disposed, which only
		// happens from Close; the element is simply dropped.
		rtlog.Warnf("mailbox: enqueue on disposed priority queue dropped a message: %v", err)
		return
	}
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *PriorityMailbox) TryDequeue() (Element, bool) {
	if m.q.Empty() {
		return Element{}, false
	}
	items, err := m.q.Get(1)
	if err != nil || len(items) == 0 {
		return Element{}, false
	}
	return items[0].(*item).Element, true
}

func (m *PriorityMailbox) Dequeue() (Element, bool) {
	for {
		if e, ok := m.TryDequeue(); ok {
			return e, true
		}
		select {
		case <-m.done:
			return Element{}, false
		case <-m.wake:
		}
	}
}

func (m *PriorityMailbox) DequeueTimeout(d time.Duration) (Element, bool, bool) {
	deadline := time.Now().Add(d)
	for {
		if e, ok := m.TryDequeue(); ok {
			return e, true, false
		}
		wait := time.Until(deadline)
		if wait <= 0 {
			return Element{}, false, true
		}
		timer := time.NewTimer(wait)
		select {
		case <-m.done:
			timer.Stop()
			return Element{}, false, false
		case <-m.wake:
			timer.Stop()
		case <-timer.C:
			return Element{}, false, true
		}
	}
}

func (m *PriorityMailbox) Close() {
	if atomic.CompareAndSwapInt32(&m.closed, 0, 1) {
		m.q.Dispose()
		close(m.done)
	}
}

func (m *PriorityMailbox) Closed() bool {
	return atomic.LoadInt32(&m.closed) == 1
}

func (m *PriorityMailbox) Len() int {
	return m.q.Len()
}
