// Package actorerr collects the sentinel errors reported across
// actorcore's components, following the teacher's habit of plain
// stdlib errors rather than a custom error-framework dependency.
package actorerr

import "errors"

var (
	// ErrActorNotFound is returned when an operation names an ActorId the
	// registry has never seen.
	ErrActorNotFound = errors.New("actorcore: actor not found")
	// ErrAlreadyExited is returned when an operation targets an actor whose
	// registry entry already carries a non-zero exit reason.
	ErrAlreadyExited = errors.New("actorcore: actor already exited")
	// ErrMailboxClosed is logged by PriorityMailbox.Enqueue when an element
	// arrives after Close; Enqueue itself returns nothing.
	ErrMailboxClosed = errors.New("actorcore: mailbox closed")
	// ErrDuplicateNode is returned when a second connection from an
	// already-connected NodeId arrives while the first is still live.
	ErrDuplicateNode = errors.New("actorcore: node already connected")
	// ErrHandshakeFailed is returned when a peer session's initial
	// process-info exchange fails to decode or times out.
	ErrHandshakeFailed = errors.New("actorcore: peer handshake failed")
	// ErrDecodeFailed is returned when a received frame's payload cannot be
	// decoded by the wire codec.
	ErrDecodeFailed = errors.New("actorcore: frame decode failed")
	// ErrNoRoute is returned when a frame's recipient node is neither the
	// local node nor a node with an established peer session.
	ErrNoRoute = errors.New("actorcore: no route to recipient node")
	// ErrTimeout is returned by Actor.ReceiveResponse when no response
	// arrives before its own timeout or before a timed_sync_send's deadline.
	ErrTimeout = errors.New("actorcore: sync send timed out")
	// ErrStopped is returned by Actor.ReceiveResponse when the actor is told
	// to stop (a Kill, an untrapped Exit, or a closed mailbox) before the
	// awaited response arrives.
	ErrStopped = errors.New("actorcore: actor stopped")
	// ErrNoPendingRequest is returned by ReceiveResponse when given a
	// MessageID that sync_send/timed_sync_send never registered, or that
	// has already been consumed.
	ErrNoPendingRequest = errors.New("actorcore: no pending request for that id")
	// ErrNameTaken is returned by System.Register when the given name is
	// already bound to a Ref.
	ErrNameTaken = errors.New("actorcore: name already registered")
)
