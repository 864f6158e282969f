package mailbox

import (
	"sync/atomic"
	"time"

	mpsc "github.com/t3rm1n4l/go-mpscqueue"
)

const (
	statusIdle int32 = iota
	statusSignalled
)

// MPSCMailbox backs the "blocking actor" variant named in spec.md §5: an
// actor that runs on its own dedicated OS thread rather than a pooled
// worker. It is grounded on the teacher's mailbox_mpsc.go, which wraps
// the same github.com/t3rm1n4l/go-mpscqueue collection (a bare push/pop
// queue with no blocking primitive of its own) with a signal channel to
// implement the blocking Dequeue spec.md's Mailbox contract requires.
type MPSCMailbox struct {
	q      *mpsc.MPSCQueue
	signal chan struct{}
	done   chan struct{}
	status int32
}

// NewMPSCMailbox returns a ready-to-use MPSCMailbox.
func NewMPSCMailbox() *MPSCMailbox {
	return &MPSCMailbox{
		q:      mpsc.New(),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (m *MPSCMailbox) Enqueue(e Element) {
	select {
	case <-m.done:
		return
	default:
	}
	m.q.Push(e)
	if atomic.CompareAndSwapInt32(&m.status, statusIdle, statusSignalled) {
		select {
		case m.signal <- struct{}{}:
		case <-m.done:
		}
	}
}

func (m *MPSCMailbox) TryDequeue() (Element, bool) {
	if m.q.Size() == 0 {
		return Element{}, false
	}
	v := m.q.Pop()
	if v == nil {
		return Element{}, false
	}
	return v.(Element), true
}

func (m *MPSCMailbox) Dequeue() (Element, bool) {
	for {
		if e, ok := m.TryDequeue(); ok {
			return e, true
		}
		select {
		case <-m.done:
			return Element{}, false
		case <-m.signal:
			atomic.StoreInt32(&m.status, statusIdle)
		}
	}
}

func (m *MPSCMailbox) DequeueTimeout(d time.Duration) (Element, bool, bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		if e, ok := m.TryDequeue(); ok {
			return e, true, false
		}
		select {
		case <-m.done:
			return Element{}, false, false
		case <-m.signal:
			atomic.StoreInt32(&m.status, statusIdle)
		case <-timer.C:
			return Element{}, false, true
		}
	}
}

func (m *MPSCMailbox) Close() {
	select {
	case <-m.done:
	default:
		close(m.done)
	}
}

func (m *MPSCMailbox) Closed() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

func (m *MPSCMailbox) Len() int {
	return int(m.q.Size())
}
