// Package mailbox implements the per-actor mailbox described in spec.md
// component C, extended with the priority ordering spec.md §4.D/H's
// send/delayed_send parameter names. The actual storage is treated as an
// external collaborator per spec.md §1 ("the low-level lock-free
// intrusive queue used to back mailboxes... contract: single-reader
// multi-writer FIFO with blocking pop"); this package adapts two real
// third-party queues already pulled in by the teacher
// (Workiva/go-datastructures's PriorityQueue and t3rm1n4l/go-mpscqueue)
// to that contract, rather than hand-rolling a lock-free structure
// ourselves.
package mailbox

import (
	"time"

	"github.com/nimbusact/actorcore/ref"
)

// Element is one unit of mailbox traffic: a header plus its payload. The
// "next pointer" spec.md §3 mentions for MailboxElement is an
// implementation detail owned by the backing queue (PriorityQueue/MPSC
// queue), not something this package manages directly.
type Element struct {
	Header  ref.MessageHeader
	Payload interface{}
}

// Mailbox is the single-consumer, multi-producer FIFO contract from
// spec.md §4.C.
type Mailbox interface {
	// Enqueue always succeeds (from the producer's point of view); once
	// Close has completed, enqueued elements are discarded
	// (PriorityMailbox logs each one at warn).
	Enqueue(e Element)
	// TryDequeue returns (element, true) if one was immediately
	// available, or (Element{}, false) otherwise.
	TryDequeue() (Element, bool)
	// Dequeue blocks until an element is available or the mailbox is
	// closed, in which case ok is false.
	Dequeue() (Element, bool)
	// DequeueTimeout blocks until an element is available, the timeout
	// elapses (returns ok=false, timedOut=true), or the mailbox closes
	// (returns ok=false, timedOut=false).
	DequeueTimeout(d time.Duration) (e Element, ok bool, timedOut bool)
	// Close causes all subsequent Enqueue calls to discard their element.
	// Once Close returns, no further element will ever be delivered to
	// the consumer, per spec.md §4.C's invariant.
	Close()
	// Closed reports whether Close has been called.
	Closed() bool
	// Len reports the number of elements currently queued. Diagnostic
	// only; not part of the spec's contract.
	Len() int
}
