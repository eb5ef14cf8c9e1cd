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

// Package memory implements the address space of a machine host.
//
// The address space is a flat, byte addressable buffer. ROM windows are
// overlaid on top of the buffer:
//
//	   0x00000 +------------------+
//	           | ROM window 0     |  boot vector
//	   0x10000 +------------------+
//	           | ROM window 1     |
//	           +------------------+
//	           |                  |
//	           | user memory      |
//	           |                  |
//	      size +------------------+
//
// Reads of an address inside a window return the ROM content. Writes to an
// address inside a window are dropped. This is not an error: it models the
// behaviour of a read-only chip sitting on the memory bus.
//
// ROM windows are composed from a rom.Set with the MapRoms() function. The
// composition can only be changed when the address space is unsealed. The
// machine host seals the address space once boot has completed.
package memory
