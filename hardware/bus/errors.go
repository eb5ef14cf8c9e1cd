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

package bus

import "errors"

// Sentinel errors returned by the bus package.
var (
	ErrPortBusy         = errors.New("port busy")
	ErrTransferInFlight = errors.New("transfer in flight")
	ErrNoDevice         = errors.New("no device")
	ErrDeviceFault      = errors.New("device fault")
	ErrPortFaulted      = errors.New("port is in error state")
	ErrNoSuchPort       = errors.New("no such port")
	ErrAborted          = errors.New("transfer aborted")
	ErrSlots            = errors.New("number of slots is not valid")

	// ErrPending is not a failure. The transfer has been accepted by the
	// device and should be advanced with Poll()
	ErrPending = errors.New("transfer pending")
)
