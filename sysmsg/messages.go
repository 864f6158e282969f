// Package sysmsg defines the well-known message types that travel
// through the same mailboxes as ordinary user traffic: exit
// notifications, down notifications, and the connection-lost signal
// proxies synthesize. Grounded on the teacher's sysmsg/messages.go
// (Exit/Shutdown/Monitor/Link/Timeout), generalized to the
// ExitReason/ActorAddress vocabulary spec.md's data model defines.
package sysmsg

import "github.com/nimbusact/actorcore/ref"

// Relation records why a Down/Exit message was delivered: because the
// recipient linked to the terminated actor, or because it monitored it.
type Relation int

const (
	// RelationLinked marks a message delivered across a link.
	RelationLinked Relation = iota
	// RelationMonitored marks a message delivered across a monitor.
	RelationMonitored
)

// Exit is the well-known exit tuple sent to linked actors (spec.md
// §4.D's send_exit and cleanup protocol step 1). An actor whose
// trap_exit is false that receives an Exit with Reason != ExitNormal
// must call quit(Reason); trap_exit == true delivers it as an ordinary
// message instead.
type Exit struct {
	Who      ref.ActorAddress
	Reason   ref.ExitReason
	Relation Relation
}

// Down is the one-shot notification a monitor observer receives when its
// target terminates (spec.md §4.D cleanup protocol step 2, and the
// "Monitor fan-out" property in §8: N monitor calls yield N Down
// messages).
type Down struct {
	Who    ref.ActorAddress
	Reason ref.ExitReason
}

// Timeout is delivered to a RecvWithTimeout handler when no message
// arrives within its timeout. A timed_sync_send's expiry is reported
// through the actor's OnSyncTimeout hook instead.
type Timeout struct {
	RequestID ref.MessageID
}

// LinkRequest asks the recipient to add/remove From from its linked set.
// It never escapes into user-visible handler code; the mailbox dispatch
// loop intercepts it.
type LinkRequest struct {
	From   ref.Ref
	Unlink bool
}

// MonitorRequest asks the recipient to add/remove Observer from its
// monitor set. Like LinkRequest, it is intercepted before reaching user
// handlers.
type MonitorRequest struct {
	Observer  ref.Ref
	Demonitor bool
}

// Kill forces its recipient to terminate with Reason, unconditionally
// and regardless of trap_exit — the one part of this repo's message
// vocabulary a handler can never intercept or ignore, mirroring
// Erlang's exit(Pid, kill). The supervisor package uses it to tear down
// a specific child without having to kill every actor linked to it.
type Kill struct {
	Reason ref.ExitReason
}
