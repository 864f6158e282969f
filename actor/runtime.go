package actor

import (
	"runtime"

	"github.com/rs/xid"

	"github.com/nimbusact/actorcore/delay"
	"github.com/nimbusact/actorcore/id"
	"github.com/nimbusact/actorcore/internal/rtlog"
	"github.com/nimbusact/actorcore/mailbox"
	"github.com/nimbusact/actorcore/ref"
	"github.com/nimbusact/actorcore/registry"
)

// Runtime holds the shared collaborators every spawned Actor needs: the
// identifier allocator, the registry, the delayed-send scheduler and a
// Resolver capable of turning any local or remote ActorAddress back into
// a live ref.Ref. One Runtime backs one local node.
type Runtime struct {
	ids             *id.Allocator
	registry        *registry.Registry
	scheduler       *delay.Scheduler
	resolver        ref.Resolver
	node            ref.NodeId
	groups          *groupRegistry
	mailboxCapacity uint64
}

// NewRuntime wires a Runtime for node out of its collaborators. resolver
// is typically the root System facade, which knows how to reach both
// local actors (via registry) and remote ones (via the proxy manager).
// Every PriorityMailbox created by Spawn, SpawnLink and SpawnMonitor is
// sized with mailboxCapacity (0 uses mailbox.DefaultCapacity).
func NewRuntime(node ref.NodeId, ids *id.Allocator, reg *registry.Registry, sched *delay.Scheduler, resolver ref.Resolver, mailboxCapacity uint64) *Runtime {
	return &Runtime{
		ids:             ids,
		registry:        reg,
		scheduler:       sched,
		resolver:        resolver,
		node:            node,
		groups:          newGroupRegistry(),
		mailboxCapacity: mailboxCapacity,
	}
}

func (rt *Runtime) newActor(fn Func, args []interface{}, box mailbox.Mailbox) *Actor {
	actorID := rt.ids.NextID()
	return &Actor{
		address:          ref.ActorAddress{ID: actorID, Node: rt.node},
		fn:               fn,
		args:             args,
		mailbox:          box,
		resolver:         rt.resolver,
		registry:         rt.registry,
		ids:              rt.ids,
		scheduler:        rt.scheduler,
		groups:           rt.groups,
		linked:           make(map[ref.ActorAddress]ref.Ref),
		joinedGroups:     make(map[string]struct{}),
		pendingResponses: make(map[ref.MessageID]struct{}),
	}
}

// run starts a's goroutine, mirroring the teacher's spawn/handleTermination
// pair: a deferred recover converts a panic into ExitUnhandledException, a
// plain return that never called Quit becomes ExitNormal, and either way
// cleanup runs exactly once before the goroutine ends.
func (a *Actor) run() {
	a.registry.Put(a.address.ID, a)
	a.ids.IncRunning()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.Quit(ref.ExitUnhandledException)
				rtlog.Warnf("actor %s terminated on panic: %v", a.address, r)
			} else {
				a.Quit(ref.ExitNormal)
			}
			a.cleanup()
		}()
		a.fn(a)
	}()
}

// Spawn starts fn as a new, unlinked, unmonitored actor.
func (rt *Runtime) Spawn(fn Func, args ...interface{}) *Actor {
	a := rt.newActor(fn, args, mailbox.NewPriorityMailbox(rt.mailboxCapacity))
	a.run()
	return a
}

// SpawnLink starts fn as a new actor symmetrically linked to parent.
func (rt *Runtime) SpawnLink(parent *Actor, fn Func, args ...interface{}) *Actor {
	child := rt.newActor(fn, args, mailbox.NewPriorityMailbox(rt.mailboxCapacity))
	child.linked[parent.address] = parent
	parent.linked[child.address] = child
	child.run()
	return child
}

// SpawnMonitor starts fn as a new actor monitored by parent: parent
// receives a Down message, not an Exit, when the child terminates.
func (rt *Runtime) SpawnMonitor(parent *Actor, fn Func, args ...interface{}) *Actor {
	child := rt.newActor(fn, args, mailbox.NewPriorityMailbox(rt.mailboxCapacity))
	child.monitors = append(child.monitors, parent)
	parent.monitorsIHold = append(parent.monitorsIHold, child.address)
	child.run()
	return child
}

// SpawnBlocking starts fn as a "blocking actor" (spec.md §5): backed by
// an MPSC mailbox instead of the default PriorityMailbox, and pinned for its
// whole lifetime to a dedicated OS thread via runtime.LockOSThread, so a
// handler that blocks the underlying thread (cgo, a blocking syscall)
// never starves the Go scheduler's other goroutines. Grounded on the
// teacher's mailbox_mpsc.go existing alongside its default queue
// mailbox as a selectable alternative backing.
func (rt *Runtime) SpawnBlocking(fn Func, args ...interface{}) *Actor {
	a := rt.newActor(fn, args, mailbox.NewMPSCMailbox())
	a.registry.Put(a.address.ID, a)
	a.ids.IncRunning()
	threadLabel := xid.New().String()
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer func() {
			if r := recover(); r != nil {
				a.Quit(ref.ExitUnhandledException)
				rtlog.Warnf("blocking actor %s (thread %s) terminated on panic: %v", a.address, threadLabel, r)
			} else {
				a.Quit(ref.ExitNormal)
			}
			a.cleanup()
		}()
		a.fn(a)
	}()
	return a
}
