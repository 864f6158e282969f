package supervisor

import (
	"fmt"
	"time"

	"github.com/rs/xid"
)

// Strategy decides which children get restarted when one terminates.
type Strategy int32

const (
	// OneForOneStrategy restarts only the terminated child.
	OneForOneStrategy Strategy = iota
	// OneForAllStrategy restarts every child whenever one terminates.
	OneForAllStrategy
	// RestForOneStrategy restarts the terminated child and every child
	// started after it, in spec order.
	RestForOneStrategy
)

const (
	defaultMaxRestarts = 3
	defaultPeriod      = 5 * time.Second
)

// Options configures one supervisor's restart intensity and identity.
type Options struct {
	Strategy    Strategy
	MaxRestarts int
	Period      time.Duration
	Name        string
}

// NewOptions returns Options with an auto-generated Name, matching the
// teacher's use of github.com/rs/xid for identifiers that don't need to
// be human-chosen.
func NewOptions(strategy Strategy, maxRestarts int, period time.Duration) Options {
	return Options{Strategy: strategy, MaxRestarts: maxRestarts, Period: period, Name: xid.New().String()}
}

// DefaultOptions returns OneForOneStrategy with a 3-restarts-per-5s
// intensity, the teacher's own defaults.
func DefaultOptions() Options {
	return NewOptions(OneForOneStrategy, defaultMaxRestarts, defaultPeriod)
}

// SetName returns a copy of opts with Name set.
func (opts Options) SetName(name string) Options {
	opts.Name = name
	return opts
}

func (opts Options) validate() error {
	if opts.Name == "" {
		return fmt.Errorf("supervisor: invalid name %q", opts.Name)
	}
	if opts.Strategy < OneForOneStrategy || opts.Strategy > RestForOneStrategy {
		return fmt.Errorf("supervisor: invalid strategy %d", opts.Strategy)
	}
	if opts.Period < 0 {
		return fmt.Errorf("supervisor: invalid period %s", opts.Period)
	}
	if opts.MaxRestarts < 0 {
		return fmt.Errorf("supervisor: invalid max restarts %d", opts.MaxRestarts)
	}
	return nil
}
