// Package ref defines the identity and addressing types shared by every
// other package in actorcore, plus the Ref interface that lets the local
// actor core, the registry and the proxy actor all speak of "a thing that
// can receive a message" without importing one another.
package ref

import (
	"encoding/hex"
	"fmt"
)

// ActorId is a process-unique, strictly monotonically allocated identifier.
// 0 is reserved for "invalid".
type ActorId uint32

// Invalid is the reserved zero ActorId.
const Invalid ActorId = 0

// HostIDSize is the width of NodeId's hardware-derived identifier. It is
// deliberately the digest size of RIPEMD-160, the hash the original
// implementation hashes MAC addresses and the root filesystem UUID with.
const HostIDSize = 20

// HostID is a stable, process-lifetime-constant identifier for the machine
// a node is running on.
type HostID [HostIDSize]byte

// NodeId identifies a process participating in the distributed runtime.
type NodeId struct {
	ProcessID uint32
	HostID    HostID
}

// Equal reports whether two NodeIds refer to the same process instance.
func (n NodeId) Equal(other NodeId) bool {
	return n.ProcessID == other.ProcessID && n.HostID == other.HostID
}

// IsZero reports whether n is the zero-value NodeId (never a valid node).
func (n NodeId) IsZero() bool {
	return n.ProcessID == 0 && n.HostID == HostID{}
}

// String renders the canonical "<processId>@<hexHostId>" textual form.
func (n NodeId) String() string {
	return fmt.Sprintf("%d@%s", n.ProcessID, hex.EncodeToString(n.HostID[:]))
}

// ActorAddress is a value-typed, freely copyable reference to an actor,
// local or remote.
type ActorAddress struct {
	ID   ActorId
	Node NodeId
}

// IsZero reports whether a is the zero-value address.
func (a ActorAddress) IsZero() bool {
	return a.ID == Invalid && a.Node.IsZero()
}

func (a ActorAddress) String() string {
	return fmt.Sprintf("%d@%s", a.ID, a.Node)
}

// MessageID packs a 62-bit request/response correlation number plus two
// flag bits into a single uint64, matching spec.md's wire representation.
// The zero value means "this is an asynchronous message".
type MessageID uint64

const (
	flagRequest  MessageID = 1 << 63
	flagResponse MessageID = 1 << 62
	idMask       MessageID = flagResponse - 1
)

// NewRequestID builds a request-flagged MessageID from a 62-bit sequence
// number. The caller (component D) is responsible for allocating unique
// sequence numbers.
func NewRequestID(seq uint64) MessageID {
	return flagRequest | (MessageID(seq) & idMask)
}

// IsAsync reports whether the message carries no correlation information.
func (m MessageID) IsAsync() bool { return m == 0 }

// IsRequest reports whether the message expects a correlated reply.
func (m MessageID) IsRequest() bool { return m&flagRequest != 0 && m&flagResponse == 0 }

// IsResponse reports whether the message is a reply to an earlier request.
func (m MessageID) IsResponse() bool { return m&flagResponse != 0 }

// Sequence returns the 62-bit correlation number, stripped of flag bits.
func (m MessageID) Sequence() uint64 { return uint64(m & idMask) }

// AsResponse converts a request MessageID into the MessageID its reply
// must carry.
func (m MessageID) AsResponse() MessageID {
	return flagResponse | (m & idMask)
}

// MessageHeader travels with every message, local or remote.
type MessageHeader struct {
	Sender    ActorAddress
	Recipient ActorAddress
	MessageID MessageID
	// Priority is the send/delayed_send priority named in spec.md §4.D/H.
	// Higher sorts first; the zero value is the default priority ordinary
	// sends use. It rides in the header rather than as a separate Enqueue
	// argument so it survives the trip across the wire like MessageID
	// does, and so Ref.Enqueue's signature stays the single seam every
	// local actor, proxy and registry entry already implements.
	Priority int
}

// ExitReason is a well-known u32 termination code. Zero means "invalid /
// not yet exited".
type ExitReason uint32

const (
	// ExitInvalid marks an actor that has not exited.
	ExitInvalid ExitReason = 0
	// ExitNormal is a clean, requested termination.
	ExitNormal ExitReason = 1
	// ExitUnhandledException marks termination via an unrecovered panic.
	ExitUnhandledException ExitReason = 2
	// ExitUnallowedFunctionCall marks a contract violation forcing termination.
	ExitUnallowedFunctionCall ExitReason = 3
	// ExitUnhandledSyncFailure marks termination due to an unmatched sync
	// response with no configured handler.
	ExitUnhandledSyncFailure ExitReason = 4
	// ExitUnhandledSyncTimeout marks termination due to an expired
	// timed_sync_send with no configured handler.
	ExitUnhandledSyncTimeout ExitReason = 5
	// ExitConnectionLost is the synthetic reason delivered to actors linked
	// to a proxy when its peer session disconnects.
	ExitConnectionLost ExitReason = 6
	// ExitKilled marks an unconditional termination requested by another
	// actor via a Kill message; unlike Exit, it cannot be trapped.
	ExitKilled ExitReason = 7
	// ExitSupervisionLimitExceeded marks a supervisor terminating itself
	// because a child exceeded its configured restart intensity.
	ExitSupervisionLimitExceeded ExitReason = 8
	// ExitUserDefinedBegin is the first code available to application code.
	ExitUserDefinedBegin ExitReason = 0x10000
)

// Ref is the tagged-variant interface implemented by every kind of
// addressable actor: a local actor, a blocking actor, and a proxy for a
// remote actor. It is the seam that lets component D (Local Actor Core)
// and component E (Proxy Actor) share links, monitors and cleanup logic
// without either package importing the other.
type Ref interface {
	// Address returns this ref's stable address.
	Address() ActorAddress
	// Enqueue delivers one message, built from hdr and payload, into the
	// ref's mailbox (local) or forwards it to the peer layer (proxy).
	Enqueue(hdr MessageHeader, payload interface{})
	// LinkTo establishes a symmetric link between this ref and other, from
	// this ref's side only; callers are expected to invoke LinkTo on both
	// sides to realize the symmetric relation.
	LinkTo(other Ref)
	// UnlinkFrom removes a previously established link, this side only.
	UnlinkFrom(other Ref)
	// MonitorBy registers observer as wanting a down notification when
	// this ref terminates.
	MonitorBy(observer Ref)
	// DemonitorBy cancels one prior MonitorBy registration for observer.
	DemonitorBy(observer Ref)
}

// Resolver turns an ActorAddress — the value-typed identifier carried in
// every MessageHeader — into the live Ref it currently names, per the
// "weak handle" design in spec.md §9's cyclic-reference note: senders
// are stored as addresses, never as strong references, and are resolved
// back to a Ref lazily, only when a reply or link actually needs to be
// sent. A local address resolves through the registry; a foreign-node
// address resolves through a proxy manager.
type Resolver interface {
	// Resolve returns the live Ref for addr, or nil if no such actor is
	// currently reachable.
	Resolve(addr ActorAddress) Ref
	// ExitReason reports the reason a since-terminated local actor exited,
	// so that a monitor placed on an already-dead target can still be
	// answered with a synthetic Down instead of silently failing.
	ExitReason(addr ActorAddress) (reason ExitReason, exited bool)
}
