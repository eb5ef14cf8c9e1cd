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

// Package disk implements a block addressed disk drive.
//
// The disk image is held in memory and written back to the image file by
// Sync(). Any write to the drive clears the "synced" flag of the slot, which
// is observed by the disk-sync watchdog. If the image is not synced within the
// deadline the watchdog forces a sync.
package disk
