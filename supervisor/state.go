package supervisor

import (
	"time"

	"github.com/nimbusact/actorcore/actor"
	"github.com/nimbusact/actorcore/ref"
	"github.com/nimbusact/actorcore/sysmsg"
)

// state is the supervisor actor's own private data, closed over by its
// Func and never touched from any other goroutine — the same
// single-goroutine-owns-its-state discipline every actor in this repo
// already relies on, so no extra locking is needed here.
type state struct {
	rt      *actor.Runtime
	self    *actor.Actor
	order   []string
	specs   map[string]ChildSpec
	options Options

	// children holds the live *actor.Actor for each currently-running
	// child, keyed by spec id; an id absent from this map has never been
	// spawned or is currently dead awaiting restart.
	children map[string]*actor.Actor
	// restarts records the timestamps of past restarts within the
	// current Period, per spec id, mirroring the teacher's
	// registry.timeTracer.
	restarts map[string][]time.Time
}

func newState(rt *actor.Runtime, self *actor.Actor, order []string, specs map[string]ChildSpec, options Options) *state {
	return &state{
		rt:       rt,
		self:     self,
		order:    order,
		specs:    specs,
		options:  options,
		children: make(map[string]*actor.Actor, len(specs)),
		restarts: make(map[string][]time.Time, len(specs)),
	}
}

func (st *state) init() {
	for _, id := range st.order {
		st.spawn(id)
	}
}

// spawn starts (or restarts) the child named id, recording a restart
// timestamp if it has run before.
func (st *state) spawn(id string) {
	spec := st.specs[id]
	child := st.rt.SpawnLink(st.self, spec.Func, spec.Args...)
	st.children[id] = child
	if _, everStarted := st.restarts[id]; everStarted {
		st.restarts[id] = append(st.restarts[id], time.Now())
	} else {
		st.restarts[id] = nil
	}
}

// idFor finds the spec id for a terminated child's address, returning
// found=false if addr belongs to something this supervisor never
// tracked (or already reaped).
func (st *state) idFor(addr ref.ActorAddress) (id string, found bool) {
	for candidate, child := range st.children {
		if child.Self() == addr {
			return candidate, true
		}
	}
	return "", false
}

// reachedIntensityLimit reports whether id has restarted more than
// options.MaxRestarts times within the trailing Period, counting the
// restart that is about to happen.
func (st *state) reachedIntensityLimit(id string) bool {
	cutoff := time.Now().Add(-st.options.Period)
	var live []time.Time
	for _, at := range st.restarts[id] {
		if at.After(cutoff) {
			live = append(live, at)
		}
	}
	st.restarts[id] = live
	return len(live)+1 > st.options.MaxRestarts
}

func (st *state) shouldRestart(policy RestartPolicy, reason ref.ExitReason) bool {
	switch policy {
	case RestartAlways:
		return true
	case RestartTransient:
		return reason != ref.ExitNormal
	default:
		return false
	}
}

// killChild forces id's current child down with ExitKilled and removes
// it from the live set, without waiting for its own Exit notification —
// used when restarting a sibling under one_for_all/rest_for_one, where
// the sibling hasn't terminated on its own.
func (st *state) killChild(id string) {
	child, alive := st.children[id]
	if !alive {
		return
	}
	delete(st.children, id)
	st.self.Unlink(child.Self())
	child.Enqueue(ref.MessageHeader{Sender: st.self.Self(), Recipient: child.Self()}, sysmsg.Kill{Reason: ref.ExitKilled})
}

// shutdownAll force-kills every currently-alive child, in spec order.
func (st *state) shutdownAll() {
	for _, id := range st.order {
		st.killChild(id)
	}
}

func (st *state) restartOneForAll() {
	for _, id := range st.order {
		if _, alive := st.children[id]; alive {
			st.killChild(id)
		}
	}
	for _, id := range st.order {
		st.spawn(id)
	}
}

func (st *state) restartRestForOne(from string) {
	var affected []string
	seen := false
	for _, id := range st.order {
		if id == from {
			seen = true
		}
		if seen {
			affected = append(affected, id)
		}
	}
	for _, id := range affected {
		if _, alive := st.children[id]; alive {
			st.killChild(id)
		}
	}
	for _, id := range affected {
		st.spawn(id)
	}
}
