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

// Package modem implements an asynchronous modem.
//
// Commands are written to the modem as blocks. Network activity happens in a
// goroutine and the modem reports BUSY through its Status() until the
// activity has concluded. The host's emulation goroutine never waits on the
// network.
//
// Commands:
//
//	GET <url>     fetch the url. the response body is read with ReadBlock()
//	DIAL <addr>   open a connection. subsequent writes are sent on the connection
//	HANGUP        close the connection
//	DEVRST        reset the modem
//	DEVSTU        query status. the answer is read with ReadBlock()
//	DEVTYP        query device type
//	DEVNAM        query device name
//
// A command may be terminated by the end of send block byte (0x17).
package modem
