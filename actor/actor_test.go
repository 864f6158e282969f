package actor_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nimbusact/actorcore/actor"
	"github.com/nimbusact/actorcore/delay"
	"github.com/nimbusact/actorcore/id"
	"github.com/nimbusact/actorcore/ref"
	"github.com/nimbusact/actorcore/registry"
	"github.com/nimbusact/actorcore/sysmsg"
)

func newTestRuntime(t *testing.T) (*actor.Runtime, *registry.Registry, *id.Allocator, *delay.Scheduler) {
	t.Helper()
	node := ref.NodeId{ProcessID: 1}
	reg := registry.New()
	ids := id.NewAllocator()
	sched := delay.NewScheduler(0)
	t.Cleanup(sched.Stop)
	resolver := actor.LocalResolver{Node: node, Registry: reg}
	return actor.NewRuntime(node, ids, reg, sched, resolver, 0), reg, ids, sched
}

// TestPingPong exercises request/response correlation: one requester
// makes 100 synchronous ping/pong round trips to a single responder,
// after which both actors exit.
func TestPingPong(t *testing.T) {
	rt, _, ids, _ := newTestRuntime(t)

	const rounds = 100
	var wg sync.WaitGroup
	wg.Add(1)

	pong := rt.Spawn(func(a *actor.Actor) {
		count := 0
		a.Recv(func(payload interface{}) bool {
			if payload == "ping" {
				a.Reply("pong")
				count++
				return count < rounds
			}
			return true
		})
	})
	pongPID := pong.Address()

	rt.Spawn(func(a *actor.Actor) {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			reqID := a.SyncSend(pongPID, "ping")
			resp, err := a.ReceiveResponse(reqID, time.Second)
			require.NoError(t, err)
			require.Equal(t, "pong", resp)
		}
	})

	wg.Wait()
	ids.AwaitRunningEqual(0)
}

// TestLinkExitPropagationWithoutTrap exercises §8's "an untrapped Exit
// forces the linked actor to quit with the same reason" property.
func TestLinkExitPropagationWithoutTrap(t *testing.T) {
	rt, _, ids, _ := newTestRuntime(t)

	started := make(chan ref.ActorAddress)
	var down sync.WaitGroup
	down.Add(1)

	victim := rt.Spawn(func(a *actor.Actor) {
		started <- a.Address()
		a.Recv(func(interface{}) bool { return true })
	})

	rt.Spawn(func(a *actor.Actor) {
		defer down.Done()
		target := <-started
		a.Link(target)
		a.Recv(func(payload interface{}) bool {
			return true
		})
	})

	// Give the link a moment to register, then force the victim to quit.
	time.Sleep(20 * time.Millisecond)
	victim.Quit(ref.ExitUserDefinedBegin + 1)

	down.Wait()
	ids.AwaitRunningEqual(0)
}

// TestLinkExitPropagationWithTrap exercises trap_exit converting an Exit
// into an ordinary observable message instead of forcing termination.
func TestLinkExitPropagationWithTrap(t *testing.T) {
	rt, _, ids, _ := newTestRuntime(t)

	victimStarted := make(chan ref.ActorAddress)
	observed := make(chan sysmsg.Exit, 1)

	victim := rt.Spawn(func(a *actor.Actor) {
		victimStarted <- a.Address()
		a.Recv(func(interface{}) bool { return true })
	})

	rt.Spawn(func(a *actor.Actor) {
		a.TrapExit(true)
		target := <-victimStarted
		a.Link(target)
		a.Recv(func(payload interface{}) bool {
			if exit, ok := payload.(sysmsg.Exit); ok {
				observed <- exit
				return false
			}
			return true
		})
	})

	time.Sleep(20 * time.Millisecond)
	victim.Quit(ref.ExitNormal)

	select {
	case exit := <-observed:
		require.Equal(t, ref.ExitNormal, exit.Reason)
		require.Equal(t, sysmsg.RelationLinked, exit.Relation)
	case <-time.After(time.Second):
		t.Fatal("trap_exit actor never observed the linked Exit")
	}
	ids.AwaitRunningEqual(0)
}

// TestLinkExitPropagationNormalReasonIgnored exercises §4.D's carve-out:
// a non-trapping actor linked to a partner that terminates with
// ExitNormal must not itself be forced to quit.
func TestLinkExitPropagationNormalReasonIgnored(t *testing.T) {
	rt, _, ids, _ := newTestRuntime(t)

	victimStarted := make(chan ref.ActorAddress)
	victim := rt.Spawn(func(a *actor.Actor) {
		victimStarted <- a.Address()
		a.Recv(func(interface{}) bool { return true })
	})

	survived := make(chan struct{}, 1)
	linker := rt.Spawn(func(a *actor.Actor) {
		target := <-victimStarted
		a.Link(target)
		a.Recv(func(payload interface{}) bool {
			if payload == "still alive" {
				survived <- struct{}{}
				return false
			}
			return true
		})
	})

	time.Sleep(20 * time.Millisecond)
	victim.Quit(ref.ExitNormal)

	time.Sleep(20 * time.Millisecond)
	linker.Enqueue(ref.MessageHeader{Recipient: linker.Address()}, "still alive")

	select {
	case <-survived:
	case <-time.After(time.Second):
		t.Fatal("linked actor was killed by a normal exit instead of ignoring it")
	}
	ids.AwaitRunningEqual(0)
}

// TestMonitorFanOut exercises §8's "N monitor calls yield N Down
// messages" invariant.
func TestMonitorFanOut(t *testing.T) {
	rt, _, ids, _ := newTestRuntime(t)

	started := make(chan ref.ActorAddress)
	target := rt.Spawn(func(a *actor.Actor) {
		started <- a.Address()
		a.Recv(func(interface{}) bool { return true })
	})
	addr := <-started

	const observers = 3
	downs := make(chan sysmsg.Down, observers)
	var wg sync.WaitGroup
	wg.Add(observers)
	for i := 0; i < observers; i++ {
		rt.Spawn(func(a *actor.Actor) {
			defer wg.Done()
			a.Monitor(addr)
			a.Recv(func(payload interface{}) bool {
				if d, ok := payload.(sysmsg.Down); ok {
					downs <- d
					return false
				}
				return true
			})
		})
	}

	time.Sleep(20 * time.Millisecond)
	target.Quit(ref.ExitNormal)

	wg.Wait()
	close(downs)
	count := 0
	for d := range downs {
		require.Equal(t, addr, d.Who)
		count++
	}
	require.Equal(t, observers, count)
	ids.AwaitRunningEqual(0)
}

// TestSendToGroupFansOutToAllMembers exercises the group facility
// Join/Leave were built to serve: every actor currently joined to a
// group receives a SendToGroup call, and GroupMembers reports every
// joined member.
func TestSendToGroupFansOutToAllMembers(t *testing.T) {
	rt, _, ids, _ := newTestRuntime(t)

	const members = 3
	received := make(chan string, members)
	joined := make(chan struct{}, members)
	for i := 0; i < members; i++ {
		rt.Spawn(func(a *actor.Actor) {
			a.Join("room")
			joined <- struct{}{}
			a.Recv(func(payload interface{}) bool {
				if s, ok := payload.(string); ok {
					received <- s
					return false
				}
				return true
			})
		})
		<-joined
	}

	rt.Spawn(func(a *actor.Actor) {
		require.Len(t, a.GroupMembers("room"), members)
		a.SendToGroup("room", "gather", 0)
		a.Quit(ref.ExitNormal)
	})

	for i := 0; i < members; i++ {
		select {
		case msg := <-received:
			require.Equal(t, "gather", msg)
		case <-time.After(time.Second):
			t.Fatal("group member never received the broadcast")
		}
	}
	ids.AwaitRunningEqual(0)
}

// TestTimedSyncSendTimeout exercises §8's timed_sync_send timeout path:
// no response ever arrives, so ReceiveResponse must report a timeout.
func TestTimedSyncSendTimeout(t *testing.T) {
	rt, _, ids, _ := newTestRuntime(t)

	silent := rt.Spawn(func(a *actor.Actor) {
		a.Recv(func(interface{}) bool { return true })
	})

	done := make(chan error, 1)
	rt.Spawn(func(a *actor.Actor) {
		reqID := a.TimedSyncSend(silent.Address(), "ping", 20*time.Millisecond)
		_, err := a.ReceiveResponse(reqID, time.Second)
		done <- err
		a.Quit(ref.ExitNormal)
	})

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed_sync_send never resolved")
	}
	silent.Quit(ref.ExitNormal)
	ids.AwaitRunningEqual(0)
}

// TestTimedSyncSendReceivesReply exercises timed_sync_send's happy path:
// a reply does arrive before the deadline, so ReceiveResponse must
// return its payload rather than ErrStopped or a bogus sync-failure
// quit (the MessageID request/response flag-form mismatch this guards
// against made every genuine reply look uncorrelated).
func TestTimedSyncSendReceivesReply(t *testing.T) {
	rt, _, ids, _ := newTestRuntime(t)

	responder := rt.Spawn(func(a *actor.Actor) {
		a.Recv(func(payload interface{}) bool {
			if payload == "ping" {
				a.Reply("pong")
				return false
			}
			return true
		})
	})

	done := make(chan struct {
		payload interface{}
		err     error
	}, 1)
	rt.Spawn(func(a *actor.Actor) {
		reqID := a.TimedSyncSend(responder.Address(), "ping", time.Second)
		payload, err := a.ReceiveResponse(reqID, time.Second)
		done <- struct {
			payload interface{}
			err     error
		}{payload, err}
		a.Quit(ref.ExitNormal)
	})

	select {
	case result := <-done:
		require.NoError(t, result.err)
		require.Equal(t, "pong", result.payload)
	case <-time.After(time.Second):
		t.Fatal("timed_sync_send never resolved")
	}
	ids.AwaitRunningEqual(0)
}
