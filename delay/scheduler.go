// Package delay implements the Delayed-Send Scheduler (spec.md
// component H): a deadline-ordered queue drained by a dedicated
// goroutine that runs each entry's job once its delay elapses.
//
// The backing structure is
// github.com/Workiva/go-datastructures/queue.PriorityQueue, reusing the
// same third-party dependency the teacher already pulls in for its
// RingBuffer mailbox, applied here to its other collection type instead
// of adding a second priority-queue dependency or hand-rolling
// container/heap.
package delay

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Workiva/go-datastructures/queue"
)

// Job is the unit of work a Scheduler runs once its deadline elapses. The
// actor package uses it to perform "the send" on the original sender's
// behalf, per spec.md §4.D/§4.H, without this package needing to know
// anything about actors, addresses or mailboxes.
type Job func()

// DefaultCapacity is the PriorityQueue's initial size hint, used when
// NewScheduler is given 0.
const DefaultCapacity = 16

type entry struct {
	deadline time.Time
	priority int
	seq      int64
	job      Job
}

// Compare implements queue.Item: entries sort by deadline first (earlier
// first), then by priority (higher first) for entries sharing a
// deadline, then by seq (earlier scheduled first) for entries sharing
// both — without this last tiebreaker, two jobs scheduled with the same
// deadline and priority compare equal under allowDuplicates=false and one
// of them is silently dropped by the queue instead of ever running.
// go-datastructures' PriorityQueue is a min-heap that pops the least
// Compare value first, so "sorts first" means "compares less".
func (e *entry) Compare(other queue.Item) int {
	o := other.(*entry)
	switch {
	case e.deadline.Before(o.deadline):
		return -1
	case e.deadline.After(o.deadline):
		return 1
	case e.priority != o.priority:
		if e.priority > o.priority {
			return -1
		}
		return 1
	case e.seq < o.seq:
		return -1
	case e.seq > o.seq:
		return 1
	default:
		return 0
	}
}

// Scheduler runs jobs once their deadline elapses.
type Scheduler struct {
	pq     *queue.PriorityQueue
	seq    int64
	wake   chan struct{}
	stopCh chan struct{}
	once   sync.Once
}

// NewScheduler starts a Scheduler on its own goroutine. capacityHint sizes
// the backing PriorityQueue's initial allocation (a throughput hint, not a
// cap — it grows past this if needed); 0 uses DefaultCapacity.
func NewScheduler(capacityHint int) *Scheduler {
	if capacityHint <= 0 {
		capacityHint = DefaultCapacity
	}
	s := &Scheduler{
		pq:     queue.NewPriorityQueue(capacityHint, false),
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
	go s.loop()
	return s
}

// Schedule registers job to run after delay elapses, at the given
// priority (used only to order entries that share a deadline).
func (s *Scheduler) Schedule(job Job, priority int, delay time.Duration) {
	e := &entry{
		deadline: time.Now().Add(delay),
		priority: priority,
		seq:      atomic.AddInt64(&s.seq, 1),
		job:      job,
	}
	_ = s.pq.Put(e)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Stop halts the scheduler's background goroutine and disposes its
// queue. Pending, not-yet-fired entries are discarded.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		close(s.stopCh)
		s.pq.Dispose()
	})
}

func (s *Scheduler) loop() {
	for {
		if s.pq.Empty() {
			select {
			case <-s.stopCh:
				return
			case <-s.wake:
				continue
			}
		}

		next, ok := s.pq.Peek().(*entry)
		if !ok {
			continue
		}
		wait := time.Until(next.deadline)
		if wait <= 0 {
			s.fireDue()
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case <-s.wake:
			// A nearer deadline may have just been inserted; re-peek.
			timer.Stop()
			continue
		case <-timer.C:
			s.fireDue()
		}
	}
}

// fireDue pops and runs every entry whose deadline has passed.
func (s *Scheduler) fireDue() {
	now := time.Now()
	for {
		if s.pq.Empty() {
			return
		}
		next, ok := s.pq.Peek().(*entry)
		if !ok || next.deadline.After(now) {
			return
		}
		items, err := s.pq.Get(1)
		if err != nil || len(items) == 0 {
			return
		}
		items[0].(*entry).job()
	}
}
