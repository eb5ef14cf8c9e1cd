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
// Package luabios implements a hardware.Interpreter that runs a BIOS written
// in Lua. The program is the first image of the ROM set. It is run as a
// coroutine and every call to Step() resumes the coroutine until it next
// yields.
//
// The following functions are available to the program in addition to the
// base, string, table, math and coroutine libraries:
//
//	peek(addr)                  byte at address
//	poke(addr, v)               write byte to address
//	read(port, offset, length)  start a block read. returns the data or nil and "pending"
//	write(port, offset, data)   start a block write. returns the state of the port
//	poll(port)                  advance a pending transfer. returns the state of the port
//	received(port)              data of the most recent completed read
//	signal(name)                value of a named flag or nil
//	uptime()                    ticks since boot
//	log(msg)                    add an entry to the log
//	memsize()                   size of user memory
//	slots()                     number of bus slots
//	device(port)                identity of the attached device or nil
//	hostid()                    identifier of the host
//
// Errors other than a pending transfer are returned as a second value of nil
// and the error message. Memory access errors raise a Lua error.
package luabios
