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
)

// Step the host forward by one unit of work. The interpreter runs first and
// an error from the interpreter is returned before anything else happens.
// Otherwise, the clock is advanced, the bus serviced and the watchdogs
// ticked exactly once.
//
// Watchdog trips that are escalated by their fault action are returned
// wrapped in the returned error.
func (h *Host) Step() error {
	switch h.lifecycle() {
	case destroyed:
		return fmt.Errorf("hardware: %w", ErrDestroyed)
	case booted:
	default:
		return fmt.Errorf("hardware: %w", ErrNotBooted)
	}

	if h.interp != nil {
		if err := h.interp.Step(h); err != nil {
			return fmt.Errorf("hardware: %w", err)
		}
	}

	if h.counter != nil {
		h.counter.Advance()
	}

	h.bus.Service()

	if err := h.watchdogs.Tick(); err != nil {
		return fmt.Errorf("hardware: %w", err)
	}

	return nil
}
