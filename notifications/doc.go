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

// Package notifications allow communication from a machine host or a machine
// session to whatever is driving it. This is useful, for example, to tell the
// presentation layer that a host has been reset following a watchdog trip.
//
// Notifications are sometimes passed onto the user to indicate the event that
// has happened. For some notifications however, it is appropriate for the
// session to deal with the notification invisibly.
package notifications
