package supervisor

import (
	"github.com/nimbusact/actorcore/actor"
	"github.com/nimbusact/actorcore/internal/rtlog"
	"github.com/nimbusact/actorcore/ref"
	"github.com/nimbusact/actorcore/sysmsg"
)

// Stop asks a running supervisor to force-kill every child and then
// terminate itself normally.
type Stop struct{}

// startRequest is the private argument bundle passed to the supervisor
// actor's Func; it never leaves this package.
type startRequest struct {
	rt      *actor.Runtime
	order   []string
	specs   map[string]ChildSpec
	options Options
	ready   chan error
}

// Start spawns a supervisor actor under rt that starts every spec (in
// the order given) and, per options.Strategy, restarts them across
// terminations according to each spec's RestartPolicy. Start blocks
// until every initial child has been spawned, returning an error
// (without spawning anything) if specs or options are invalid.
func Start(rt *actor.Runtime, options Options, specs ...ChildSpec) (*actor.Actor, error) {
	order, byID, err := toOrderedMap(specs)
	if err != nil {
		return nil, err
	}
	if err := options.validate(); err != nil {
		return nil, err
	}

	ready := make(chan error, 1)
	sup := rt.Spawn(runSupervisor, startRequest{rt: rt, order: order, specs: byID, options: options, ready: ready})
	if err := <-ready; err != nil {
		return nil, err
	}
	return sup, nil
}

func runSupervisor(a *actor.Actor) {
	req := a.Args()[0].(startRequest)
	a.TrapExit(true)

	st := newState(req.rt, a, req.order, req.specs, req.options)
	st.init()
	req.ready <- nil

	a.Recv(func(payload interface{}) bool {
		switch msg := payload.(type) {
		case sysmsg.Exit:
			return handleChildExit(a, st, msg)
		case Stop:
			st.shutdownAll()
			a.Quit(ref.ExitNormal)
			return false
		default:
			rtlog.Warnf("supervisor %s: ignoring unexpected message %T", a.Self(), msg)
			return true
		}
	})
}

// handleChildExit reacts to one child's Exit notification, returning
// false only when the supervisor itself must stop (restart intensity
// exceeded).
func handleChildExit(a *actor.Actor, st *state, exit sysmsg.Exit) bool {
	id, tracked := st.idFor(exit.Who)
	if !tracked {
		// Already reaped by a sibling restart (one_for_all/rest_for_one), or
		// not one of ours at all.
		return true
	}
	delete(st.children, id)

	spec := st.specs[id]
	if !st.shouldRestart(spec.Restart, exit.Reason) {
		return true
	}
	if st.reachedIntensityLimit(id) {
		rtlog.Warnf("supervisor %s: child %q exceeded restart intensity, shutting down", a.Self(), id)
		st.shutdownAll()
		a.Quit(ref.ExitSupervisionLimitExceeded)
		return false
	}

	switch st.options.Strategy {
	case OneForOneStrategy:
		st.spawn(id)
	case OneForAllStrategy:
		st.restartOneForAll()
	case RestForOneStrategy:
		st.restartRestForOne(id)
	}
	return true
}
