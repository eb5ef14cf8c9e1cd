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
// Package session wires peripherals to a machine host. A Session is created
// with a list of peripheral entries, each of which is constructed from the
// factory registry and attached to its slot on the host's bus. Teardown()
// detaches the session's own devices and nothing else.
//
// More than one session can share a host, providing each session uses
// different slots. This is the coprocessor pattern: a primary session might
// own the display and the disk, while a second session attaches a modem to
// the same host.
//
// The session also drives the host. Watchdog trips that are escalated by
// their fault action can be dealt with by resetting the host, rather than
// returning the error to the caller.
package session
