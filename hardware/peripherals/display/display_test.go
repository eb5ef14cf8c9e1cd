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

package display_test

import (
	"errors"
	"testing"

	"github.com/curioustorvald/tsvm/environment"
	"github.com/curioustorvald/tsvm/hardware/peripherals"
	"github.com/curioustorvald/tsvm/hardware/peripherals/display"
	"github.com/curioustorvald/tsvm/hardware/signals"
	"github.com/curioustorvald/tsvm/hardware/watchdog"
	"github.com/curioustorvald/tsvm/test"
)

func newDisplay(t *testing.T, w, h int) (*display.Adapter, peripherals.Context) {
	t.Helper()
	env, err := environment.NewEnvironment(environment.MainEmulation, nil)
	test.DemandSuccess(t, err)
	ctx := peripherals.Context{
		Env:     env,
		Slot:    0,
		Width:   w,
		Height:  h,
		Signals: signals.NewBoard(),
	}
	d, err := display.NewAdapter(ctx)
	test.DemandSuccess(t, err)
	return d, ctx
}

func TestDimensions(t *testing.T) {
	d, _ := newDisplay(t, 0, 0)
	w, h := d.Dimensions()
	test.ExpectEquality(t, w, display.DefaultWidth)
	test.ExpectEquality(t, h, display.DefaultHeight)

	_, err := display.NewAdapter(peripherals.Context{Width: 4096, Height: 4096})
	test.ExpectFailure(t, err)

	d, _ = newDisplay(t, 8, 4)
	test.ExpectEquality(t, d.ControlRegister(), 32)
	test.ExpectEquality(t, d.WindowSize() > d.StatusRegister(), true)
}

func TestHandshake(t *testing.T) {
	d, ctx := newDisplay(t, 8, 4)

	committed, _ := ctx.Signals.Lookup("slot0.committed")
	synced, _ := ctx.Signals.Lookup("slot0.synced")
	test.ExpectEquality(t, committed.Get(), true)
	test.ExpectEquality(t, synced.Get(), true)

	test.ExpectSuccess(t, d.Poke(d.ControlRegister(), display.ControlBegin))
	test.ExpectEquality(t, committed.Get(), false)

	test.ExpectSuccess(t, d.Poke(5, 0x7f))
	v, err := d.Peek(5)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v, uint8(0x7f))

	// the committed frame is unchanged until the commit
	data, _ := d.ReadBlock(0, 8)
	test.ExpectEquality(t, data[5], uint8(0))

	test.ExpectSuccess(t, d.Poke(d.ControlRegister(), display.ControlCommit))
	test.ExpectEquality(t, committed.Get(), true)
	test.ExpectEquality(t, synced.Get(), false)

	status, _ := d.Peek(d.StatusRegister())
	test.ExpectEquality(t, status, uint8(display.StatusCommitted))

	frame := d.Sync()
	test.ExpectEquality(t, frame[5], uint8(0x7f))
	test.ExpectEquality(t, synced.Get(), true)

	status, _ = d.Peek(d.StatusRegister())
	test.ExpectEquality(t, status, uint8(display.StatusCommitted|display.StatusSynced))

	_, err = d.Peek(d.WindowSize())
	test.ExpectEquality(t, errors.Is(err, display.ErrAddress), true)
}

func TestBlockCommit(t *testing.T) {
	d, _ := newDisplay(t, 100, 100)

	test.ExpectSuccess(t, d.WriteBlock(1, []byte{1, 2, 3}))
	test.ExpectSuccess(t, d.WriteBlock(0, []byte("COMMIT")))

	data, err := d.ReadBlock(1, 3)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, string(data), string([]byte{1, 2, 3}))

	test.ExpectFailure(t, d.WriteBlock(3, make([]byte, display.BlockSize)))
}

func TestForcedResync(t *testing.T) {
	d, ctx := newDisplay(t, 8, 4)
	test.DemandSuccess(t, ctx.Env.Prefs.DisplayDeadline.Set(5))

	// the deadline is taken when the adapter is created
	d, err := display.NewAdapter(ctx)
	test.DemandSuccess(t, err)

	r := watchdog.NewRegistry(ctx.Env, ctx.Signals, nil)
	for _, s := range d.Watchdogs() {
		test.ExpectEquality(t, s.Deadline, 5)
		test.DemandSuccess(t, r.Register(s))
		test.DemandSuccess(t, r.Arm(s.Name, 0))
	}

	d.Begin()
	test.ExpectSuccess(t, d.Poke(0, 9))

	for range 4 {
		test.ExpectSuccess(t, r.Tick())
	}
	state, _ := r.State(display.CommitWatchdog)
	test.ExpectEquality(t, state, watchdog.Armed)

	test.ExpectSuccess(t, r.Tick())
	state, _ = r.State(display.CommitWatchdog)
	test.ExpectEquality(t, state, watchdog.Tripped)

	commits, _, forced := d.Counts()
	test.ExpectEquality(t, commits, 1)
	test.ExpectEquality(t, forced, 1)

	// the forced resync leaves the sync watchdog satisfied
	state, _ = r.State(display.SyncWatchdog)
	test.ExpectEquality(t, state, watchdog.Armed)

	data, _ := d.ReadBlock(0, 1)
	test.ExpectEquality(t, data[0], uint8(9))
}

func TestOffsetOverflow(t *testing.T) {
	d, _ := newDisplay(t, 8, 4)

	_, err := d.ReadBlock(1<<51, 1)
	test.ExpectEquality(t, errors.Is(err, display.ErrAddress), true)
	err = d.WriteBlock(1<<51, []byte{1})
	test.ExpectEquality(t, errors.Is(err, display.ErrAddress), true)
}

func TestCapabilities(t *testing.T) {
	d, _ := newDisplay(t, 8, 4)
	mm := test.DemandImplements[peripherals.MemoryMapped](t, d)
	test.ExpectEquality(t, mm.WindowSize(), d.WindowSize())

	sup := test.DemandImplements[peripherals.Supervised](t, d)
	test.ExpectEquality(t, len(sup.Watchdogs()), 2)
}
