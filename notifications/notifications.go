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

package notifications

// Notice describes events raised by a machine host or a machine session.
// These notifications can be used by the presentation layer to present
// additional information to the user
type Notice string

// List of defined notifications.
const (
	// the host has been reset. usually in response to a fatal watchdog trip
	NotifyHostReset Notice = "NotifyHostReset"

	// a watchdog has tripped and its fault action has escalated the trip
	NotifyWatchdogTrip Notice = "NotifyWatchdogTrip"

	// a device reported a fault during a transfer
	NotifyDeviceFault Notice = "NotifyDeviceFault"

	// the peripherals of a session have been attached
	NotifySessionStarted Notice = "NotifySessionStarted"

	// the peripherals of a session have been detached
	NotifySessionEnded Notice = "NotifySessionEnded"
)

// Notify is used for direct communication between the hardware and the
// session or presentation layer. Not often used but necessary for:
//
// Watchdog trips that escalate to the session, which may choose to reset the
// host.
//
// Session lifecycle events that the presentation layer uses to open and close
// viewports.
type Notify interface {
	Notify(notice Notice) error
}
