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

// Package peripherals defines the capability interface implemented by every
// device that can be attached to the peripheral bus, and the registry of
// factories used to construct devices from a peripheral entry.
//
// The sub-packages contain the devices themselves:
//
//	disk      file-backed block store
//	modem     asynchronous byte stream over HTTP, TCP or a serial line
//	audio     PCM audio adapter
//	media     read-only library of decoded audio files
//	display   auxiliary display adapter
//	rambank   banked extension memory
//
// The catalog package contains the registry of all the devices above.
package peripherals
