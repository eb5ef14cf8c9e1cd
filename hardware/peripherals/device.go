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

package peripherals

import (
	"errors"

	"github.com/curioustorvald/tsvm/hardware/watchdog"
)

// ErrBusy is returned by ReadBlock() and WriteBlock() when the device has
// accepted the operation but has not yet completed it. The device reports
// BUSY through Status() until the operation has completed. ErrBusy is not a
// fault.
var ErrBusy = errors.New("device busy")

// ID is the identity tag of a device. For example, "disk".
type ID string

// Status of a device.
type Status int

// List of valid device Status values.
const (
	Idle Status = iota
	Busy
	Fault
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Busy:
		return "BUSY"
	case Fault:
		return "FAULT"
	}
	return "unknown"
}

// Device is the capability interface consumed by the peripheral bus.
//
// Block offsets and lengths are interpreted by the device. The device is owned
// by the bus port it is attached to, for as long as it is attached.
type Device interface {
	// the identity tag of the device
	ID() ID

	// notification that the device has been attached to a port
	AttachNotify(port int)

	// notification that the device has been detached from its port
	DetachNotify()

	// read length bytes starting at the block offset
	ReadBlock(offset int64, length int) ([]byte, error)

	// write data starting at the block offset
	WriteBlock(offset int64, data []byte) error

	// the current status of the device
	Status() Status
}

// MemoryMapped is implemented by devices that can also be addressed through a
// memory window. Addresses are relative to the start of the window.
type MemoryMapped interface {
	Peek(addr int) (uint8, error)
	Poke(addr int, v uint8) error

	// the size of the window required by the device
	WindowSize() int
}

// Aborter is implemented by devices that can cancel an operation that has
// been accepted but not completed.
type Aborter interface {
	Abort()
}

// Supervised is implemented by devices that need watchdogs to enforce the
// liveness of their protocol. The watchdogs are registered with the host when
// the device is attached by a session.
type Supervised interface {
	Watchdogs() []watchdog.Spec
}
