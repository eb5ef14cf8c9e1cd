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

package govern

// State indicates the state requested of a run loop.
type State int

// List of possible states.
//
// Initialising is used when the host is being booted or reset and should not
// be stepped.
//
// Paused leaves the host unstepped. Watchdogs are not ticked while the host is
// paused.
const (
	Initialising State = iota
	Paused
	Running
	Ending
)

func (s State) String() string {
	switch s {
	case Initialising:
		return "Initialising"
	case Paused:
		return "Paused"
	case Running:
		return "Running"
	case Ending:
		return "Ending"
	}
	return ""
}
