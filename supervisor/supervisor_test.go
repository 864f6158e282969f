package supervisor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nimbusact/actorcore/actor"
	"github.com/nimbusact/actorcore/delay"
	"github.com/nimbusact/actorcore/id"
	"github.com/nimbusact/actorcore/ref"
	"github.com/nimbusact/actorcore/registry"
	"github.com/nimbusact/actorcore/supervisor"
)

func newTestRuntime(t *testing.T) *actor.Runtime {
	t.Helper()
	node := ref.NodeId{ProcessID: 1}
	reg := registry.New()
	ids := id.NewAllocator()
	sched := delay.NewScheduler(0)
	t.Cleanup(sched.Stop)
	resolver := actor.LocalResolver{Node: node, Registry: reg}
	return actor.NewRuntime(node, ids, reg, sched, resolver, 0)
}

// flakyWorker panics on its first spawn (spawns are counted through a
// shared channel) and behaves forever after.
func flakyWorker(spawns chan int) actor.Func {
	return func(a *actor.Actor) {
		n := len(spawns) + 1
		spawns <- n
		if n == 1 {
			panic("boom")
		}
		a.Recv(func(interface{}) bool { return true })
	}
}

func TestOneForOneRestartsOnlyTheFailedChild(t *testing.T) {
	rt := newTestRuntime(t)

	spawnsA := make(chan int, 10)
	stableStarts := make(chan struct{}, 10)

	stable := func(a *actor.Actor) {
		stableStarts <- struct{}{}
		a.Recv(func(interface{}) bool { return true })
	}

	specs := []supervisor.ChildSpec{
		supervisor.NewChildSpec("flaky", flakyWorker(spawnsA)).SetRestart(supervisor.RestartAlways),
		supervisor.NewChildSpec("stable", stable).SetRestart(supervisor.RestartAlways),
	}
	_, err := supervisor.Start(rt, supervisor.DefaultOptions(), specs...)
	require.NoError(t, err)

	waitForLen(t, func() int { return len(stableStarts) }, 1)
	waitForLen(t, func() int { return len(spawnsA) }, 2) // first spawn panics, supervisor restarts it once
	require.Len(t, stableStarts, 1, "the stable child must not be restarted")

	select {
	case n := <-spawnsA:
		require.Equal(t, 1, n)
	default:
		t.Fatal("expected first flaky spawn to have run")
	}
}

func TestStopKillsEveryChild(t *testing.T) {
	rt := newTestRuntime(t)

	done := make(chan struct{}, 4)
	worker := func(a *actor.Actor) {
		a.OnExit(func(ref.ExitReason) { done <- struct{}{} })
		a.Recv(func(interface{}) bool { return true })
	}

	specs := []supervisor.ChildSpec{
		supervisor.NewChildSpec("a", worker),
		supervisor.NewChildSpec("b", worker),
	}
	sup, err := supervisor.Start(rt, supervisor.DefaultOptions(), specs...)
	require.NoError(t, err)

	sup.Enqueue(ref.MessageHeader{Recipient: sup.Self()}, supervisor.Stop{})

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for a child to be killed")
		}
	}
}

func waitForLen(t *testing.T, length func() int, want int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if length() >= want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for length to reach %d (have %d)", want, length())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
