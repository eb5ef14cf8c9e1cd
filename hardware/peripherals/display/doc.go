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

// Package display implements an auxiliary display adapter.
//
// The framebuffer is memory mapped. A program draws into the back buffer and
// commits it with the control register, which immediately follows the
// framebuffer in the memory window:
//
//	control register:  1 = begin update, 2 = commit
//	status register:   bit 0 = committed, bit 1 = synced
//
// The presentation layer collects committed frames with Sync().
//
// Two watchdogs supervise the handshake. The display-commit watchdog trips if
// an update is begun and not committed within the deadline. The display-sync
// watchdog trips if a committed frame is not collected within the deadline.
// In both cases the fault action forces a resync: the back buffer is committed
// and the frame is marked as collected.
package display
