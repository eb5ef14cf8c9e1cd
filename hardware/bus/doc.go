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

// Package bus implements the peripheral bus of a machine host.
//
// The bus is a fixed number of block ports. Each port has its own transfer
// state machine:
//
//	          BeginRead()                  success
//	IDLE ----------------> READ_PENDING -----------> IDLE
//	  |                         |
//	  |     BeginWrite()        |  device fault / Abort()
//	  +------------------> WRITE_PENDING ---------> ERROR
//	                                                  |
//	IDLE <---------------------------------------------+
//	                       ClearError()
//
// Only one transfer can be outstanding on a port. Ports arbitrate
// independently: there is no lock shared between ports, so a stalled device
// on one port does not affect the traffic on another.
//
// A device that cannot complete an operation immediately returns
// peripherals.ErrBusy. The port stays pending and the caller receives
// ErrPending. The transfer is advanced with Poll(), which consults the
// device's Status() and never blocks. The machine host polls all pending
// ports once every step with Service().
//
// Every port publishes a flag named "port<N>.idle" on the host's signal board.
// The flag is false while a transfer is pending.
package bus
