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
	"github.com/curioustorvald/tsvm/environment"
	"github.com/curioustorvald/tsvm/hardware/bus"
	"github.com/curioustorvald/tsvm/hardware/memory/rom"
	"github.com/curioustorvald/tsvm/hardware/peripherals"
)

// Interpreter executes the program of a machine host. The instruction set is
// entirely the concern of the Interpreter.
type Interpreter interface {
	// Reset is called at the end of every boot, after the ROM set has been
	// mapped into memory
	Reset(Machine) error

	// Step runs one unit of work
	Step(Machine) error
}

// Machine is the view of the host that is given to an Interpreter.
type Machine interface {
	ID() string
	Env() *environment.Environment

	// memory access. addresses outside of user memory are routed to memory
	// mapped peripherals
	Peek(addr int) (uint8, error)
	Poke(addr int, v uint8) error
	MemorySize() int

	// block transfers
	Slots() int
	BeginRead(port int, offset int64, length int) ([]byte, error)
	BeginWrite(port int, offset int64, data []byte) error
	Poll(port int) (bus.TransferState, error)
	Received(port int) ([]byte, error)
	DeviceID(port int) (peripherals.ID, bool)

	// the value of a named flag on the signal board. the second value is
	// false if the flag has never been published
	Signal(name string) (bool, bool)

	// number of ticks since the last boot
	Uptime() int64

	// the ROM set that was mapped at boot
	Roms() rom.Set
}
