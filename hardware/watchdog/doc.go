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

// Package watchdog implements the liveness monitors of a machine host.
//
// A watchdog is bound, when it is registered, to a condition. Usually the
// condition is a named flag on the host's signal board, published by the bus
// or by a peripheral. For example, the display adapter publishes a "committed"
// flag which is false while a frame update is in progress.
//
// Each call to Registry.Tick() advances every armed watchdog. If the
// condition of an armed watchdog is satisfied then its countdown is reset.
// Otherwise the countdown is decremented and when it reaches zero the
// watchdog is tripped and its fault action is run.
//
// A tripped watchdog stays tripped until it is acknowledged. It never re-arms
// itself. This separates the detection of a stall from the recovery from it.
//
// The fault action decides what a trip means. An action that returns nil has
// dealt with the trip. An action that returns an error escalates the trip and
// the error is returned by Tick(), wrapped with ErrTrip.
//
// The registry is owned by a single host and should only be ticked by the
// goroutine driving that host. Queries are safe from other goroutines.
package watchdog
