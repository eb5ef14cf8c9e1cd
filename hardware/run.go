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
package hardware

import (
	"fmt"
	"time"

	"github.com/curioustorvald/tsvm/govern"
)

// PerformanceBrake is the duration the Run() loop sleeps for while the host
// is paused.
const PerformanceBrake = 20 * time.Millisecond

// Run sets the host running, stepping for as long as continueCheck returns
// the Running state. In the Paused state the host is neither stepped nor are
// its watchdogs ticked. The loop ends when continueCheck returns the Ending
// state or an error.
//
// A nil continueCheck is the same as a function that always returns Running.
// In that case the loop only ends on error.
func (h *Host) Run(continueCheck func() (govern.State, error)) error {
	if continueCheck == nil {
		continueCheck = func() (govern.State, error) { return govern.Running, nil }
	}

	var err error

	state := govern.Running
	for state != govern.Ending && state != govern.Initialising {
		switch state {
		case govern.Running:
			err = h.Step()
			if err != nil {
				return err
			}
		case govern.Paused:
			time.Sleep(PerformanceBrake)
		default:
			return fmt.Errorf("hardware: unsupported emulation state (%s) in Run() function", state)
		}

		state, err = continueCheck()
		if err != nil {
			return err
		}
	}

	return nil
}

// RunForSteps steps the host n times. The first error ends the run.
func (h *Host) RunForSteps(n int) error {
	for range n {
		if err := h.Step(); err != nil {
			return err
		}
	}
	return nil
}
