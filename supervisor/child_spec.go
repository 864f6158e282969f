// Package supervisor implements link-based one-for-one/one-for-all/
// rest-for-one supervision on top of package actor's Spawn/Link/
// TrapExit/Kill primitives, replacing the teacher's supervisor/spec and
// supervisor/ref subpackages with a single flat package built directly
// against this repo's own actor core instead of a separate PID/context
// abstraction.
package supervisor

import (
	"fmt"

	"github.com/nimbusact/actorcore/actor"
)

// RestartPolicy decides whether a terminated child gets respawned.
type RestartPolicy int32

const (
	// RestartAlways respawns the child regardless of its exit reason.
	RestartAlways RestartPolicy = iota
	// RestartTransient respawns the child only if it exited abnormally.
	RestartTransient
	// RestartNever never respawns the child.
	RestartNever
)

// ChildSpec describes one child a supervisor starts and, per Restart,
// keeps running.
type ChildSpec struct {
	ID      string
	Func    actor.Func
	Args    []interface{}
	Restart RestartPolicy
}

// NewChildSpec returns a ChildSpec with the common RestartTransient
// policy; use SetRestart to change it.
func NewChildSpec(id string, fn actor.Func, args ...interface{}) ChildSpec {
	return ChildSpec{ID: id, Func: fn, Args: args, Restart: RestartTransient}
}

// SetRestart returns a copy of spec with Restart set to policy.
func (spec ChildSpec) SetRestart(policy RestartPolicy) ChildSpec {
	spec.Restart = policy
	return spec
}

func (spec ChildSpec) validate() error {
	if spec.ID == "" {
		return fmt.Errorf("supervisor: child spec id must not be empty")
	}
	if spec.Func == nil {
		return fmt.Errorf("supervisor: child spec %q: Func must not be nil", spec.ID)
	}
	if spec.Restart != RestartAlways && spec.Restart != RestartTransient && spec.Restart != RestartNever {
		return fmt.Errorf("supervisor: child spec %q: invalid restart policy %v", spec.ID, spec.Restart)
	}
	return nil
}

func toOrderedMap(specs []ChildSpec) (order []string, byID map[string]ChildSpec, err error) {
	if len(specs) == 0 {
		return nil, nil, fmt.Errorf("supervisor: at least one child spec is required")
	}
	byID = make(map[string]ChildSpec, len(specs))
	order = make([]string, 0, len(specs))
	for _, spec := range specs {
		if err := spec.validate(); err != nil {
			return nil, nil, err
		}
		if _, dup := byID[spec.ID]; dup {
			return nil, nil, fmt.Errorf("supervisor: duplicate child spec id %q", spec.ID)
		}
		byID[spec.ID] = spec
		order = append(order, spec.ID)
	}
	return order, byID, nil
}
