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

package audio_test

import (
	"encoding/binary"
	"errors"
	"os"
	"testing"

	"github.com/curioustorvald/tsvm/hardware/peripherals"
	"github.com/curioustorvald/tsvm/hardware/peripherals/audio"
	"github.com/curioustorvald/tsvm/test"
)

func TestPlayheads(t *testing.T) {
	a, err := audio.NewAdapter(peripherals.Context{Slot: 3, StorageRoot: t.TempDir()})
	test.DemandSuccess(t, err)

	test.ExpectSuccess(t, a.WriteBlock(0, []byte{1, 2, 3}))
	test.ExpectSuccess(t, a.WriteBlock(2, []byte{4}))
	test.ExpectSuccess(t, a.WriteBlock(6, []byte{5, 6}))
	test.ExpectFailure(t, a.WriteBlock(-1, []byte{5}))

	test.ExpectEquality(t, a.Queued(0), 3)
	test.ExpectEquality(t, a.Queued(1), 0)
	test.ExpectEquality(t, a.Queued(2), 3)

	data, err := a.ReadBlock(0, 100)
	test.ExpectSuccess(t, err)
	test.DemandEquality(t, len(data), 16)
	test.ExpectEquality(t, binary.LittleEndian.Uint32(data[0:]), uint32(3))
	test.ExpectEquality(t, binary.LittleEndian.Uint32(data[4:]), uint32(0))
	test.ExpectEquality(t, binary.LittleEndian.Uint32(data[8:]), uint32(3))

	data, _ = a.ReadBlock(0, 4)
	test.ExpectEquality(t, len(data), 4)
}

func TestClose(t *testing.T) {
	a, err := audio.NewAdapter(peripherals.Context{Slot: 1, StorageRoot: t.TempDir()})
	test.DemandSuccess(t, err)

	test.ExpectSuccess(t, a.WriteBlock(1, []byte{128, 128, 128}))
	test.ExpectSuccess(t, a.Close())
	test.ExpectSuccess(t, a.Close())

	_, err = os.Stat(a.Filename(1))
	test.ExpectSuccess(t, err)

	// playheads with nothing queued are not written
	_, err = os.Stat(a.Filename(0))
	test.ExpectEquality(t, errors.Is(err, os.ErrNotExist), true)

	err = a.WriteBlock(0, []byte{1})
	test.ExpectEquality(t, errors.Is(err, audio.ErrClosed), true)
}
