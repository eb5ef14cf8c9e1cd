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
)

// Sentinel errors returned by the watchdog package.
var (
	ErrTrip      = errors.New("watchdog trip")
	ErrFatal     = errors.New("fatal watchdog trip")
	ErrUnknown   = errors.New("unknown watchdog")
	ErrDuplicate = errors.New("watchdog already registered")
	ErrDeadline  = errors.New("watchdog deadline must be one tick or more")
	ErrTripped   = errors.New("watchdog is tripped")
	ErrSource    = errors.New("watchdog has no condition source")
)

// State of a watchdog.
type State int

// List of valid watchdog states.
const (
	Disarmed State = iota
	Armed
	Tripped
)

func (s State) String() string {
	switch s {
	case Disarmed:
		return "DISARMED"
	case Armed:
		return "ARMED"
	case Tripped:
		return "TRIPPED"
	}
	return "unknown"
}

// Condition is the predicate observed by a watchdog.
type Condition interface {
	Satisfied() bool
}

// ConditionFunc allows a function to be used as a Condition.
type ConditionFunc func() bool

// Satisfied implements the Condition interface.
func (f ConditionFunc) Satisfied() bool {
	return f()
}

// Trip describes a single tripping of a watchdog.
type Trip struct {
	Name     string
	Source   string
	Deadline int

	// the time of the trip according to the registry's clock
	At int64

	// the error returned by the fault action. nil if the action dealt with
	// the trip
	Err error
}

func (t Trip) String() string {
	if t.Err != nil {
		return fmt.Sprintf("%s tripped after %d ticks at %d: %v", t.Name, t.Deadline, t.At, t.Err)
	}
	return fmt.Sprintf("%s tripped after %d ticks at %d", t.Name, t.Deadline, t.At)
}

// FaultAction is run once every time a watchdog trips.
type FaultAction func(Trip) error

// Spec is the definition of a watchdog.
type Spec struct {
	Name string

	// the name of the flag on the signal board observed by the watchdog
	Source string

	// number of ticks the condition may remain unsatisfied
	Deadline int

	// run when the watchdog trips. a nil action logs the trip
	Action FaultAction
}

// Info is a snapshot of a watchdog's state.
type Info struct {
	Name      string
	Source    string
	State     State
	Deadline  int
	Remaining int
	Trips     int
}

func (i Info) String() string {
	return fmt.Sprintf("%s (%s): %s %d/%d trips=%d", i.Name, i.Source, i.State, i.Remaining, i.Deadline, i.Trips)
}

type watchdog struct {
	spec      Spec
	cond      Condition
	state     State
	deadline  int
	remaining int
	trips     int
}

func (w *watchdog) info() Info {
	return Info{
		Name:      w.spec.Name,
		Source:    w.spec.Source,
		State:     w.state,
		Deadline:  w.deadline,
		Remaining: w.remaining,
		Trips:     w.trips,
	}
}
