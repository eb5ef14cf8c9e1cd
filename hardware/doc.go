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
// Package hardware is the base package for a machine host. A Host owns an
// AddressSpace, the ROM set mapped into it, a peripheral bus, a watchdog
// registry and the signal board that the bus and the peripherals publish
// their conditions on.
//
// A Host advances cooperatively. Every call to Step() runs one unit of the
// Interpreter, services the bus and then ticks the watchdog registry exactly
// once:
//
//	interpreter -> clock -> bus.Service() -> watchdogs.Tick()
//
// Run() drives Step() for as long as the continueCheck function allows it.
// There is no background goroutine belonging to the host. Devices may have
// their own goroutines but they are only ever visible through the status of
// the device.
//
// More than one host can run in the same process. Hosts can also be shared
// by more than one session, each attaching devices to its own slots. This is
// the coprocessor pattern.
package hardware
