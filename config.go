package actorcore

import (
	"time"

	"github.com/nimbusact/actorcore/ref"
)

// Config configures one System. The zero value is a usable single-node,
// non-listening configuration with every tunable defaulted, following
// the teacher's own supervisor.Options: a plain struct with defaulted
// zero values plus setter methods, rather than a `WithX(...) Option`
// functional-options package — nothing in the teacher or the rest of the
// retrieval pack actually builds an Option-function API for a component
// this shape (supervisor.Options is itself constructed directly or via
// NewOptions/SetName, never a slice of `func(*Options)`), so Config
// follows the pattern that is actually there instead of inventing one.
type Config struct {
	// Node overrides the automatically-derived NodeId (host id plus
	// process id). Tests that spin up several Systems in the same
	// process must set distinct Nodes explicitly, since the automatic
	// derivation is process-wide.
	Node ref.NodeId
	// ListenAddr, if non-empty, starts the middleman's accept loop on
	// this address so other nodes can Connect to this one.
	ListenAddr string
	// Advertised, if non-nil, is consulted for the set of ActorIds this
	// node advertises in every peer handshake (spec.md §6's
	// process-info exchange).
	Advertised func() []ref.ActorId
	// MailboxCapacity sizes every spawned actor's PriorityMailbox (a
	// throughput hint, not a hard cap — the queue grows past it). Zero
	// uses mailbox.DefaultCapacity.
	MailboxCapacity uint64
	// SchedulerCapacityHint sizes the Delayed-Send Scheduler's backing
	// priority queue. Zero uses delay.DefaultCapacity.
	SchedulerCapacityHint int
	// HandshakeTimeout bounds every inbound and outbound peer session's
	// process-info exchange (spec.md §6); zero means no deadline, matching
	// the teacher's own connections, which never set one.
	HandshakeTimeout time.Duration
}
