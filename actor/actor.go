// Package actor implements the Local Actor Core (spec.md component D):
// the mailbox-driven state machine every ordinary actor runs on top of,
// plus the "blocking actor" variant from spec.md §5 that pins itself to
// a dedicated OS thread.
//
// The dispatch model is grounded directly on the teacher's actor.go and
// context.go: an actor's whole body is a Func that receives *Actor and
// drives its own mailbox by calling Recv/RecvWithTimeout, exactly the
// way the teacher's ActorFunc calls actor.Recv(handler). Recv itself
// intercepts LinkRequest/MonitorRequest/Exit before offering anything to
// the caller's handler, mirroring the teacher's queueMailbox.receive and
// its handleSystemMessage helper almost line for line, generalized from
// *PID/*Actor pointers to the ref.ActorAddress/ref.Ref vocabulary
// spec.md's data model defines. Termination (spec.md's cleanup
// protocol) is driven from the same recover-based defer the teacher's
// spawn/handleTermination pair uses.
//
// spec.md's "behavior stack" falls directly out of this model: calling
// Recv with a new handler pushes a frame (the previous handler's Recv
// call is blocked on the stack beneath it, in the literal Go call-stack
// sense), and a handler returning false pops back to whichever caller
// invoked Recv one level up. There is no separate Become/Unbecome API;
// nesting Recv calls, or simply letting one Recv call return so the
// actor's Func body proceeds to call it again with a new handler, plays
// that role, exactly the way the teacher's examples change behavior: by
// returning false and calling Recv again with a different handler.
package actor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nimbusact/actorcore/actorerr"
	"github.com/nimbusact/actorcore/delay"
	"github.com/nimbusact/actorcore/id"
	"github.com/nimbusact/actorcore/internal/rtlog"
	"github.com/nimbusact/actorcore/mailbox"
	"github.com/nimbusact/actorcore/ref"
	"github.com/nimbusact/actorcore/registry"
	"github.com/nimbusact/actorcore/sysmsg"
)

const (
	trapExitNo int32 = iota
	trapExitYes
)

// MessageHandler processes one message and reports whether the caller's
// Recv/RecvWithTimeout loop should keep receiving.
type MessageHandler func(payload interface{}) bool

// Func is the entire body of an actor, run on its own goroutine (or, for
// a blocking actor, its own OS thread).
type Func func(actor *Actor)

// timeoutSentinel is delivered to an actor's own mailbox by the
// Delayed-Send Scheduler when a timed_sync_send's deadline elapses with
// no response yet received.
type timeoutSentinel struct{ id ref.MessageID }

// Actor is the running state of one local actor: its mailbox, its links
// and monitors, and the bookkeeping sync_send needs to correlate
// requests with replies.
type Actor struct {
	address ref.ActorAddress
	fn      Func
	args    []interface{}

	mailbox   mailbox.Mailbox
	resolver  ref.Resolver
	registry  *registry.Registry
	ids       *id.Allocator
	scheduler *delay.Scheduler
	groups    *groupRegistry

	trapExit int32 // trapExitNo / trapExitYes, atomic

	linked        map[ref.ActorAddress]ref.Ref
	monitors      []ref.Ref          // observers watching this actor; NOT deduplicated
	monitorsIHold []ref.ActorAddress // addresses this actor is monitoring
	joinedGroups  map[string]struct{}

	pendingResponses map[ref.MessageID]struct{}
	syncSeq          uint64
	currentHeader    ref.MessageHeader

	onExit        func(reason ref.ExitReason)
	onSyncFailure func(payload interface{})
	onSyncTimeout func(id ref.MessageID)

	plannedExitReason uint32 // ref.ExitReason, atomic; ExitInvalid means "still running"
	cleanupOnce       sync.Once
}

// Address returns the actor's stable address. Address, Enqueue, LinkTo,
// UnlinkFrom, MonitorBy and DemonitorBy together satisfy ref.Ref.
func (a *Actor) Address() ref.ActorAddress { return a.address }

// Enqueue delivers one message into the actor's mailbox. It is safe to
// call from any goroutine; it is how every cross-actor send, including
// the LinkRequest/MonitorRequest self-messages below, actually happens.
func (a *Actor) Enqueue(hdr ref.MessageHeader, payload interface{}) {
	if a.mailbox.Closed() {
		return
	}
	a.mailbox.Enqueue(mailbox.Element{Header: hdr, Payload: payload})
}

// LinkTo asks this actor to add other to its own linked set. It is
// invoked from other's goroutine, so it must not touch a.linked
// directly; it self-enqueues a LinkRequest, which dispatchOne applies
// from inside this actor's own goroutine.
func (a *Actor) LinkTo(other ref.Ref) {
	a.Enqueue(ref.MessageHeader{Recipient: a.address}, sysmsg.LinkRequest{From: other})
}

// UnlinkFrom is LinkTo's inverse.
func (a *Actor) UnlinkFrom(other ref.Ref) {
	a.Enqueue(ref.MessageHeader{Recipient: a.address}, sysmsg.LinkRequest{From: other, Unlink: true})
}

// MonitorBy registers observer to receive a Down message on this
// actor's termination. Not deduplicated: N calls yield N Down messages.
func (a *Actor) MonitorBy(observer ref.Ref) {
	a.Enqueue(ref.MessageHeader{Recipient: a.address}, sysmsg.MonitorRequest{Observer: observer})
}

// DemonitorBy cancels one prior MonitorBy registration for observer.
func (a *Actor) DemonitorBy(observer ref.Ref) {
	a.Enqueue(ref.MessageHeader{Recipient: a.address}, sysmsg.MonitorRequest{Observer: observer, Demonitor: true})
}

// Args returns the arguments the actor was spawned with.
func (a *Actor) Args() []interface{} { return a.args }

// Self returns the actor's own address, for embedding in messages sent
// to other actors that need to reply.
func (a *Actor) Self() ref.ActorAddress { return a.address }

// TrapExit controls whether an Exit from a linked actor is delivered to
// the current handler as an ordinary message (true) or forces this
// actor to quit with the linked actor's reason (false, the default).
func (a *Actor) TrapExit(trap bool) {
	v := trapExitNo
	if trap {
		v = trapExitYes
	}
	atomic.StoreInt32(&a.trapExit, v)
}

func (a *Actor) trapsExit() bool { return atomic.LoadInt32(&a.trapExit) == trapExitYes }

// Quit plans reason as this actor's exit reason. The first call wins;
// later calls (including the implicit one issued when the actor's Func
// returns normally) are no-ops, matching the registry's own first-wins
// rule for conflicting exit reasons. The first call also enqueues a Kill
// carrying reason into the actor's own mailbox, so an actor blocked
// waiting for mail wakes and its Recv returns even when Quit is called
// from another goroutine.
func (a *Actor) Quit(reason ref.ExitReason) {
	if !atomic.CompareAndSwapUint32(&a.plannedExitReason, uint32(ref.ExitInvalid), uint32(reason)) {
		return
	}
	if a.onExit != nil {
		a.onExit(reason)
	}
	a.Enqueue(ref.MessageHeader{Recipient: a.address}, sysmsg.Kill{Reason: reason})
}

func (a *Actor) exitPlanned() bool {
	return atomic.LoadUint32(&a.plannedExitReason) != uint32(ref.ExitInvalid)
}

// OnExit installs a hook run once, the first time Quit takes effect.
func (a *Actor) OnExit(hook func(reason ref.ExitReason)) { a.onExit = hook }

// OnSyncFailure installs a handler for responses that arrive with no
// matching pending request. Without one, an unmatched response quits
// the actor with ExitUnhandledSyncFailure.
func (a *Actor) OnSyncFailure(hook func(payload interface{})) { a.onSyncFailure = hook }

// OnSyncTimeout installs a handler run when a timed_sync_send's deadline
// elapses. Without one, an expired timeout quits the actor with
// ExitUnhandledSyncTimeout.
func (a *Actor) OnSyncTimeout(hook func(id ref.MessageID)) { a.onSyncTimeout = hook }

// Send delivers payload to recipient asynchronously, at the given
// priority (spec.md §4.D's send(recipient, payload, priority)). Higher
// values dequeue first at the recipient's mailbox; ties, including the
// default priority of 0, are broken in send order. Priority orders this
// message against all other ordinary traffic in the recipient's mailbox,
// whoever sent it — it can never delay the system messages (Exit, Down, Kill,
// LinkRequest, MonitorRequest) the runtime itself relies on.
func (a *Actor) Send(recipient ref.ActorAddress, payload interface{}, priority int) {
	target := a.resolver.Resolve(recipient)
	if target == nil {
		rtlog.Warnf("actor %s: send to recipient %s dropped: %v", a.address, recipient, a.resolveFailureErr(recipient))
		return
	}
	target.Enqueue(ref.MessageHeader{Sender: a.address, Recipient: recipient, Priority: priority}, payload)
}

// resolveFailureErr picks the sentinel that best explains why recipient
// could not be resolved: ErrAlreadyExited if the registry still
// remembers it having run and terminated, ErrActorNotFound otherwise.
func (a *Actor) resolveFailureErr(recipient ref.ActorAddress) error {
	if _, exited := a.resolver.ExitReason(recipient); exited {
		return actorerr.ErrAlreadyExited
	}
	return actorerr.ErrActorNotFound
}

// Reply answers the message currently being handled, using its
// MessageID's response form. Calling Reply outside of a request handler
// is a no-op, logged at warn.
func (a *Actor) Reply(payload interface{}) {
	h := a.currentHeader
	if !h.MessageID.IsRequest() {
		rtlog.Warnf("actor %s: Reply called with no pending request, dropped", a.address)
		return
	}
	target := a.resolver.Resolve(h.Sender)
	if target == nil {
		rtlog.Warnf("actor %s: reply to %s dropped: %v", a.address, h.Sender, a.resolveFailureErr(h.Sender))
		return
	}
	target.Enqueue(ref.MessageHeader{Sender: a.address, Recipient: h.Sender, MessageID: h.MessageID.AsResponse()}, payload)
}

// SyncSend sends payload to recipient and registers a pending request,
// returning the MessageID a matching ReceiveResponse call must name.
// Returns 0 if recipient cannot be resolved.
func (a *Actor) SyncSend(recipient ref.ActorAddress, payload interface{}) ref.MessageID {
	target := a.resolver.Resolve(recipient)
	if target == nil {
		rtlog.Warnf("actor %s: sync_send to recipient %s dropped: %v", a.address, recipient, a.resolveFailureErr(recipient))
		return 0
	}
	reqID := ref.NewRequestID(atomic.AddUint64(&a.syncSeq, 1))
	a.pendingResponses[reqID] = struct{}{}
	target.Enqueue(ref.MessageHeader{Sender: a.address, Recipient: recipient, MessageID: reqID}, payload)
	return reqID
}

// TimedSyncSend is SyncSend plus a scheduled timeout: if no response has
// arrived by the deadline, the scheduler delivers a self-message that
// resolves the pending request into a timeout instead.
func (a *Actor) TimedSyncSend(recipient ref.ActorAddress, payload interface{}, timeout time.Duration) ref.MessageID {
	reqID := a.SyncSend(recipient, payload)
	if reqID == 0 {
		return 0
	}
	self, deadlineID := a, reqID
	a.scheduler.Schedule(func() {
		self.Enqueue(ref.MessageHeader{Recipient: self.address}, timeoutSentinel{id: deadlineID})
	}, 0, timeout)
	return reqID
}

// DelayedSend registers payload to be sent to recipient once delay
// elapses, at the given priority (spec.md §4.H's delayed_send(recipient,
// payload, delay, priority)), performed by the Delayed-Send Scheduler on
// this actor's behalf so the caller does not need to stay alive to see
// it through. priority governs the eventual mailbox delivery, the same
// as Send's; the scheduler orders pending timers by deadline and uses
// priority only to order timers that share a deadline; see
// delay.Scheduler.Schedule.
func (a *Actor) DelayedSend(recipient ref.ActorAddress, payload interface{}, delay time.Duration, priority int) {
	resolver, sender := a.resolver, a.address
	a.scheduler.Schedule(func() {
		target := resolver.Resolve(recipient)
		if target == nil {
			err := actorerr.ErrActorNotFound
			if _, exited := resolver.ExitReason(recipient); exited {
				err = actorerr.ErrAlreadyExited
			}
			rtlog.Warnf("delayed_send: recipient %s dropped: %v", recipient, err)
			return
		}
		target.Enqueue(ref.MessageHeader{Sender: sender, Recipient: recipient, Priority: priority}, payload)
	}, priority, delay)
}

// Link establishes a symmetric link with target: idempotent, since
// a.linked and the target's own linked set are both keyed by address.
func (a *Actor) Link(target ref.ActorAddress) {
	if _, exists := a.linked[target]; exists {
		return
	}
	t := a.resolver.Resolve(target)
	if t == nil {
		rtlog.Warnf("actor %s: link to %s dropped: %v", a.address, target, a.resolveFailureErr(target))
		return
	}
	a.linked[target] = t
	t.LinkTo(a)
}

// Unlink removes a previously established link, symmetrically.
func (a *Actor) Unlink(target ref.ActorAddress) {
	t, exists := a.linked[target]
	if !exists {
		return
	}
	delete(a.linked, target)
	t.UnlinkFrom(a)
}

// Monitor registers this actor to receive a Down message when target
// terminates. Repeated calls are not deduplicated: each yields its own
// Down. Monitoring an already-terminated actor delivers a synthetic Down
// immediately.
func (a *Actor) Monitor(target ref.ActorAddress) {
	if t := a.resolver.Resolve(target); t != nil {
		a.monitorsIHold = append(a.monitorsIHold, target)
		t.MonitorBy(a)
		return
	}
	if reason, exited := a.resolver.ExitReason(target); exited {
		a.Enqueue(ref.MessageHeader{Sender: target, Recipient: a.address}, sysmsg.Down{Who: target, Reason: reason})
		return
	}
	rtlog.Warnf("actor %s: monitor target %s dropped: %v", a.address, target, actorerr.ErrActorNotFound)
}

// Demonitor cancels one prior Monitor registration for target.
func (a *Actor) Demonitor(target ref.ActorAddress) {
	for i, addr := range a.monitorsIHold {
		if addr == target {
			a.monitorsIHold = append(a.monitorsIHold[:i], a.monitorsIHold[i+1:]...)
			break
		}
	}
	if t := a.resolver.Resolve(target); t != nil {
		t.DemonitorBy(a)
	}
}

// Join adds this actor to a named group, for later use by supervisor and
// event-stream style pub-sub fan-out. Membership is left automatically
// on termination.
func (a *Actor) Join(group string) {
	if _, ok := a.joinedGroups[group]; ok {
		return
	}
	a.joinedGroups[group] = struct{}{}
	a.groups.join(group, a.address, a)
}

// Leave removes this actor from a named group.
func (a *Actor) Leave(group string) {
	if _, ok := a.joinedGroups[group]; !ok {
		return
	}
	delete(a.joinedGroups, group)
	a.groups.leave(group, a.address)
}

// SendToGroup delivers payload, at the given priority, to every actor
// currently joined to group — Send's broadcast counterpart, and the
// operation Join/Leave exist to serve.
func (a *Actor) SendToGroup(group string, payload interface{}, priority int) {
	a.groups.broadcast(group, a.address, payload, priority)
}

// GroupMembers returns the addresses currently joined to group. It is a
// snapshot: membership may change the instant after it is taken.
func (a *Actor) GroupMembers(group string) []ref.ActorAddress {
	members := a.groups.snapshot(group)
	addrs := make([]ref.ActorAddress, len(members))
	for i, r := range members {
		addrs[i] = r.Address()
	}
	return addrs
}

// Recv blocks, dispatching messages to handler until handler returns
// false or the actor's mailbox is closed by cleanup.
func (a *Actor) Recv(handler MessageHandler) {
	for {
		stop, _, _ := a.dispatchOne(0, handler, nil)
		if stop || a.exitPlanned() {
			return
		}
	}
}

// RecvWithTimeout is Recv, except handler additionally receives a
// sysmsg.Timeout if no message arrives within d.
func (a *Actor) RecvWithTimeout(d time.Duration, handler MessageHandler) {
	if d <= 0 {
		a.Recv(handler)
		return
	}
	for {
		stop, _, _ := a.dispatchOne(d, handler, nil)
		if stop || a.exitPlanned() {
			return
		}
	}
}

// ReceiveResponse blocks until the response for reqID arrives, timeout
// elapses (if > 0), or the actor is asked to stop. Other messages
// dequeued while waiting are dropped with a warning: receive_response is
// a narrow wait for one specific correlation id, not a general receive.
func (a *Actor) ReceiveResponse(reqID ref.MessageID, timeout time.Duration) (interface{}, error) {
	if _, ok := a.pendingResponses[reqID]; !ok {
		return nil, actorerr.ErrNoPendingRequest
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		wait := timeout
		if !deadline.IsZero() {
			wait = time.Until(deadline)
			if wait <= 0 {
				delete(a.pendingResponses, reqID)
				return nil, actorerr.ErrTimeout
			}
		}
		stop, payload, matched := a.dispatchOne(wait, nil, &reqID)
		if matched {
			return payload, nil
		}
		if _, stillPending := a.pendingResponses[reqID]; !stillPending {
			return nil, actorerr.ErrTimeout
		}
		if stop {
			return nil, actorerr.ErrStopped
		}
	}
}

// dispatchOne dequeues exactly one element (or synthesizes a timeout)
// and applies spec.md §4.D's dispatch algorithm: LinkRequest and
// MonitorRequest are intercepted unconditionally; a timeoutSentinel
// resolves a pending timed_sync_send; wantID (if non-nil) short-circuits
// straight to ReceiveResponse's caller; an untrapped Exit quits the
// actor; a response with no matching pending request is a sync failure;
// everything else is offered to handler.
func (a *Actor) dispatchOne(timeout time.Duration, handler MessageHandler, wantID *ref.MessageID) (stop bool, matchedPayload interface{}, matched bool) {
	var e mailbox.Element
	var ok, timedOut bool
	if timeout <= 0 {
		e, ok = a.mailbox.Dequeue()
	} else {
		e, ok, timedOut = a.mailbox.DequeueTimeout(timeout)
	}
	if timedOut {
		if handler != nil {
			return !handler(sysmsg.Timeout{}), nil, false
		}
		return false, nil, false
	}
	if !ok {
		return true, nil, false
	}

	switch msg := e.Payload.(type) {
	case sysmsg.Kill:
		a.Quit(msg.Reason)
		return true, nil, false
	case sysmsg.LinkRequest:
		if msg.Unlink {
			delete(a.linked, msg.From.Address())
		} else {
			a.linked[msg.From.Address()] = msg.From
		}
		return false, nil, false
	case sysmsg.MonitorRequest:
		if msg.Demonitor {
			removeFirstMatch(&a.monitors, msg.Observer.Address())
		} else {
			a.monitors = append(a.monitors, msg.Observer)
		}
		return false, nil, false
	case timeoutSentinel:
		if _, pending := a.pendingResponses[msg.id]; pending {
			delete(a.pendingResponses, msg.id)
			if a.onSyncTimeout != nil {
				a.onSyncTimeout(msg.id)
			} else {
				a.Quit(ref.ExitUnhandledSyncTimeout)
			}
		}
		return false, nil, false
	}

	a.currentHeader = e.Header

	if wantID != nil && e.Header.MessageID == wantID.AsResponse() {
		delete(a.pendingResponses, *wantID)
		return true, e.Payload, true
	}

	if exitMsg, isExit := e.Payload.(sysmsg.Exit); isExit {
		if a.trapsExit() {
			if handler == nil {
				return false, nil, false
			}
			return !handler(exitMsg), nil, false
		}
		if exitMsg.Reason == ref.ExitNormal {
			return false, nil, false
		}
		a.Quit(exitMsg.Reason)
		return true, nil, false
	}

	if e.Header.MessageID.IsResponse() {
		// pendingResponses is keyed by the request-flagged form (the id
		// SyncSend handed out and ReceiveResponse's caller names); a
		// reply always carries the response-flagged form of that same
		// sequence number, so it must be converted back before lookup.
		reqID := ref.NewRequestID(e.Header.MessageID.Sequence())
		if _, pending := a.pendingResponses[reqID]; pending {
			// A genuine reply to one of this actor's own sync_sends,
			// just not the one wantID is narrowly waiting for (or
			// received outside of a ReceiveResponse call entirely):
			// deliver it like any other message instead of failing.
			delete(a.pendingResponses, reqID)
			if handler == nil {
				rtlog.Warnf("actor %s: dropped a correlated reply with no active handler", a.address)
				return false, nil, false
			}
			return !handler(e.Payload), nil, false
		}
		if a.onSyncFailure != nil {
			a.onSyncFailure(e.Payload)
			return false, nil, false
		}
		a.Quit(ref.ExitUnhandledSyncFailure)
		return true, nil, false
	}

	if handler == nil {
		rtlog.Warnf("actor %s: dropped unmatched message of type %T while awaiting a specific response", a.address, e.Payload)
		return false, nil, false
	}
	return !handler(e.Payload), nil, false
}

// cleanup runs spec.md §4.D's five-step termination protocol exactly
// once, however many goroutine-exit paths (panic, normal return, an
// exhausted Recv loop) end up triggering it.
func (a *Actor) cleanup() {
	a.cleanupOnce.Do(func() {
		reason := ref.ExitReason(atomic.LoadUint32(&a.plannedExitReason))

		for addr, l := range a.linked {
			l.Enqueue(ref.MessageHeader{Sender: a.address, Recipient: addr},
				sysmsg.Exit{Who: a.address, Reason: reason, Relation: sysmsg.RelationLinked})
			l.UnlinkFrom(a)
		}
		a.linked = nil

		for _, m := range a.monitors {
			m.Enqueue(ref.MessageHeader{Sender: a.address, Recipient: m.Address()},
				sysmsg.Down{Who: a.address, Reason: reason})
		}
		a.monitors = nil

		for g := range a.joinedGroups {
			a.groups.leave(g, a.address)
		}
		a.joinedGroups = nil

		a.registry.Erase(a.address.ID, reason)
		a.ids.DecRunning()
		a.mailbox.Close()
	})
}

func removeFirstMatch(refs *[]ref.Ref, addr ref.ActorAddress) {
	for i, r := range *refs {
		if r.Address() == addr {
			*refs = append((*refs)[:i], (*refs)[i+1:]...)
			return
		}
	}
}

func (a *Actor) String() string {
	return fmt.Sprintf("actor(%s)", a.address)
}
