// This file is part of TSVM.
//
// TSVM is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// TSVM is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with TSVM.  If not, see <https://www.gnu.org/licenses/>.

package watchdog

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/curioustorvald/tsvm/environment"
	"github.com/curioustorvald/tsvm/hardware/clocks"
	"github.com/curioustorvald/tsvm/hardware/signals"
	"github.com/curioustorvald/tsvm/logger"
)

// Registry is the collection of watchdogs belonging to a machine host.
type Registry struct {
	env   *environment.Environment
	board *signals.Board
	clock clocks.Source

	crit sync.RWMutex
	dogs map[string]*watchdog

	observers []func(Trip)
}

// NewRegistry is the preferred method of initialisation for the Registry type.
func NewRegistry(env *environment.Environment, board *signals.Board, clock clocks.Source) *Registry {
	if clock == nil {
		clock = &clocks.Counter{}
	}
	return &Registry{
		env:   env,
		board: board,
		clock: clock,
		dogs:  make(map[string]*watchdog),
	}
}

// AddObserver adds a function to be called for every trip, after the fault
// action has been run.
func (r *Registry) AddObserver(f func(Trip)) {
	r.crit.Lock()
	defer r.crit.Unlock()
	r.observers = append(r.observers, f)
}

// Register a watchdog. The watchdog is bound to the flag named by
// Spec.Source. The new watchdog is disarmed.
func (r *Registry) Register(spec Spec) error {
	if spec.Source == "" {
		return fmt.Errorf("watchdog: %s: %w", spec.Name, ErrSource)
	}
	if r.board == nil {
		return fmt.Errorf("watchdog: %s: %w: no signal board", spec.Name, ErrSource)
	}
	return r.RegisterCondition(spec, r.board.Publish(spec.Source))
}

// RegisterCondition registers a watchdog bound to an arbitrary condition.
func (r *Registry) RegisterCondition(spec Spec, cond Condition) error {
	if spec.Deadline < 1 {
		return fmt.Errorf("watchdog: %s: %w", spec.Name, ErrDeadline)
	}
	if cond == nil {
		return fmt.Errorf("watchdog: %s: %w", spec.Name, ErrSource)
	}

	r.crit.Lock()
	defer r.crit.Unlock()

	if _, ok := r.dogs[spec.Name]; ok {
		return fmt.Errorf("watchdog: %s: %w", spec.Name, ErrDuplicate)
	}

	if spec.Action == nil {
		spec.Action = LogAction(r.env)
	}

	r.dogs[spec.Name] = &watchdog{
		spec:      spec,
		cond:      cond,
		state:     Disarmed,
		deadline:  spec.Deadline,
		remaining: spec.Deadline,
	}

	return nil
}

// Unregister removes the watchdog from the registry.
func (r *Registry) Unregister(name string) error {
	r.crit.Lock()
	defer r.crit.Unlock()

	if _, ok := r.dogs[name]; !ok {
		return fmt.Errorf("watchdog: %s: %w", name, ErrUnknown)
	}
	delete(r.dogs, name)

	return nil
}

func (r *Registry) lookup(name string) (*watchdog, error) {
	w, ok := r.dogs[name]
	if !ok {
		return nil, fmt.Errorf("watchdog: %s: %w", name, ErrUnknown)
	}
	return w, nil
}

// Arm the watchdog, resetting its countdown. A deadline of zero keeps the
// current deadline. Arming an armed watchdog restarts the countdown. A tripped
// watchdog must be acknowledged rather than armed.
func (r *Registry) Arm(name string, deadline int) error {
	if deadline < 0 {
		return fmt.Errorf("watchdog: %s: %w", name, ErrDeadline)
	}

	r.crit.Lock()
	defer r.crit.Unlock()

	w, err := r.lookup(name)
	if err != nil {
		return err
	}
	if w.state == Tripped {
		return fmt.Errorf("watchdog: %s: %w", name, ErrTripped)
	}

	if deadline > 0 {
		w.deadline = deadline
	}
	w.remaining = w.deadline
	w.state = Armed

	return nil
}

// ArmAll arms every watchdog that is not tripped with its registered deadline.
func (r *Registry) ArmAll() {
	r.crit.Lock()
	defer r.crit.Unlock()

	for _, w := range r.dogs {
		if w.state == Tripped {
			continue
		}
		w.deadline = w.spec.Deadline
		w.remaining = w.deadline
		w.state = Armed
	}
}

// Disarm the watchdog and clear its trip count. A tripped watchdog can be
// disarmed.
func (r *Registry) Disarm(name string) error {
	r.crit.Lock()
	defer r.crit.Unlock()

	w, err := r.lookup(name)
	if err != nil {
		return err
	}
	w.state = Disarmed
	w.trips = 0

	return nil
}

// DisarmAll disarms every watchdog and clears the trip counts.
func (r *Registry) DisarmAll() {
	r.crit.Lock()
	defer r.crit.Unlock()

	for _, w := range r.dogs {
		w.state = Disarmed
		w.trips = 0
	}
}

// Acknowledge a tripped watchdog, returning it to the armed state with a
// fresh countdown. Acknowledging a watchdog that is not tripped does nothing.
func (r *Registry) Acknowledge(name string) error {
	r.crit.Lock()
	defer r.crit.Unlock()

	w, err := r.lookup(name)
	if err != nil {
		return err
	}

	if w.state == Tripped {
		w.state = Armed
		w.remaining = w.deadline
		logger.Logf(r.env, r.env.Tag("watchdog"), "%s acknowledged", name)
	}

	return nil
}

// Tick advances the countdown of every armed watchdog. Watchdogs whose
// countdown reaches zero are tripped and their fault actions run, in name
// order.
//
// Any escalated trips are returned as a single error.
func (r *Registry) Tick() error {
	var tripped []*watchdog

	r.crit.Lock()
	for _, w := range r.dogs {
		if w.state != Armed {
			continue
		}

		if w.cond.Satisfied() {
			w.remaining = w.deadline
			continue
		}

		w.remaining--
		if w.remaining <= 0 {
			w.remaining = 0
			w.state = Tripped
			w.trips++
			tripped = append(tripped, w)
		}
	}
	observers := r.observers
	r.crit.Unlock()

	if len(tripped) == 0 {
		return nil
	}

	sort.Slice(tripped, func(i, j int) bool {
		return tripped[i].spec.Name < tripped[j].spec.Name
	})

	at := r.clock.NowTicks()

	// actions are run outside of the critical section so that an action can
	// query or acknowledge watchdogs
	var errs []error
	for _, w := range tripped {
		trip := Trip{
			Name:     w.spec.Name,
			Source:   w.spec.Source,
			Deadline: w.deadline,
			At:       at,
		}

		trip.Err = w.spec.Action(trip)
		if trip.Err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrTrip, trip.Name, trip.Err))
		}

		for _, o := range observers {
			o(trip)
		}
	}

	return errors.Join(errs...)
}

// State returns the state of the named watchdog.
func (r *Registry) State(name string) (State, error) {
	r.crit.RLock()
	defer r.crit.RUnlock()

	w, err := r.lookup(name)
	if err != nil {
		return Disarmed, err
	}
	return w.state, nil
}

// Info returns a snapshot of the named watchdog.
func (r *Registry) Info(name string) (Info, error) {
	r.crit.RLock()
	defer r.crit.RUnlock()

	w, err := r.lookup(name)
	if err != nil {
		return Info{}, err
	}
	return w.info(), nil
}

// Remaining returns the number of ticks left before the named watchdog trips.
func (r *Registry) Remaining(name string) (int, error) {
	r.crit.RLock()
	defer r.crit.RUnlock()

	w, err := r.lookup(name)
	if err != nil {
		return 0, err
	}
	return w.remaining, nil
}

// Trips returns the number of times the named watchdog has tripped.
func (r *Registry) Trips(name string) (int, error) {
	r.crit.RLock()
	defer r.crit.RUnlock()

	w, err := r.lookup(name)
	if err != nil {
		return 0, err
	}
	return w.trips, nil
}

// All returns a snapshot of every watchdog, in name order.
func (r *Registry) All() []Info {
	r.crit.RLock()
	defer r.crit.RUnlock()

	inf := make([]Info, 0, len(r.dogs))
	for _, w := range r.dogs {
		inf = append(inf, w.info())
	}
	sort.Slice(inf, func(i, j int) bool {
		return inf[i].Name < inf[j].Name
	})
	return inf
}

// Names returns the names of all watchdogs, in name order.
func (r *Registry) Names() []string {
	r.crit.RLock()
	defer r.crit.RUnlock()

	n := make([]string, 0, len(r.dogs))
	for k := range r.dogs {
		n = append(n, k)
	}
	sort.Strings(n)
	return n
}

// Tripped returns the names of all tripped watchdogs, in name order.
func (r *Registry) Tripped() []string {
	r.crit.RLock()
	defer r.crit.RUnlock()

	var n []string
	for k, w := range r.dogs {
		if w.state == Tripped {
			n = append(n, k)
		}
	}
	sort.Strings(n)
	return n
}
