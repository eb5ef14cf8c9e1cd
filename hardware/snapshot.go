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
	"github.com/curioustorvald/tsvm/hardware/bus"
	"github.com/curioustorvald/tsvm/hardware/memory"
	"github.com/curioustorvald/tsvm/hardware/watchdog"
)

// Snapshot is a copy of the observable state of a host. It is produced by
// the Snapshot() function and is used by monitoring tools.
//
// Note that the contents of memory are not part of the snapshot.
type Snapshot struct {
	ID         string
	Label      string
	State      string
	MemorySize int
	Clock      int64
	Uptime     int64
	Roms       []memory.Window
	Windows    []MappedWindow
	Ports      []bus.PortInfo
	Watchdogs  []watchdog.Info
	Signals    map[string]bool
}

// Snapshot the state of the host. Safe to call from outside the goroutine
// driving the host.
func (h *Host) Snapshot() *Snapshot {
	return &Snapshot{
		ID:         h.id,
		Label:      string(h.env.Label),
		State:      h.lifecycle().String(),
		MemorySize: h.mem.Size(),
		Clock:      h.clock.NowTicks(),
		Uptime:     h.Uptime(),
		Roms:       h.mem.Windows(),
		Windows:    h.Mapped(),
		Ports:      h.bus.Ports(),
		Watchdogs:  h.watchdogs.All(),
		Signals:    h.signals.Snapshot(),
	}
}
