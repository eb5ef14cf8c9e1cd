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
package peripherals

// BlockStart returns the byte position of the block offset in a store of size
// bytes. The second return value is false if the offset is negative or if the
// range [start, start+length) does not lie within the store.
//
// The offset is checked against the number of blocks in the store before it
// is scaled, so the result never overflows.
func BlockStart(offset int64, length int, blockSize int, size int) (int, bool) {
	if offset < 0 || length < 0 || blockSize <= 0 {
		return 0, false
	}
	if offset > int64(size/blockSize) {
		return 0, false
	}
	start := offset * int64(blockSize)
	if int64(length) > int64(size)-start {
		return 0, false
	}
	return int(start), true
}
