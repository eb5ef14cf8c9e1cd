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
package peripherals_test

import (
	"math"
	"testing"

	"github.com/curioustorvald/tsvm/hardware/peripherals"
	"github.com/curioustorvald/tsvm/test"
)

func TestBlockStart(t *testing.T) {
	start, ok := peripherals.BlockStart(0, 10, 4096, 8192)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, start, 0)

	start, ok = peripherals.BlockStart(1, 4096, 4096, 8192)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, start, 4096)

	// a zero length range at the very end of the store
	start, ok = peripherals.BlockStart(2, 0, 4096, 8192)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, start, 8192)

	_, ok = peripherals.BlockStart(1, 4097, 4096, 8192)
	test.ExpectFailure(t, ok)
	_, ok = peripherals.BlockStart(3, 0, 4096, 8192)
	test.ExpectFailure(t, ok)
	_, ok = peripherals.BlockStart(-1, 1, 4096, 8192)
	test.ExpectFailure(t, ok)
	_, ok = peripherals.BlockStart(0, -1, 4096, 8192)
	test.ExpectFailure(t, ok)

	// offsets that overflow when scaled by the block size
	_, ok = peripherals.BlockStart(1<<51, 1, 4096, 8192)
	test.ExpectFailure(t, ok)
	_, ok = peripherals.BlockStart(math.MaxInt64, 1, 4096, 8192)
	test.ExpectFailure(t, ok)
	_, ok = peripherals.BlockStart(0, math.MaxInt, 4096, 8192)
	test.ExpectFailure(t, ok)
}
