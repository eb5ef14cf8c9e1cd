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

package disk_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/curioustorvald/tsvm/environment"
	"github.com/curioustorvald/tsvm/hardware/bus"
	"github.com/curioustorvald/tsvm/hardware/peripherals"
	"github.com/curioustorvald/tsvm/hardware/peripherals/disk"
	"github.com/curioustorvald/tsvm/hardware/signals"
	"github.com/curioustorvald/tsvm/hardware/watchdog"
	"github.com/curioustorvald/tsvm/test"
)

func newContext(t *testing.T, slot int, args map[string]string) peripherals.Context {
	t.Helper()
	env, err := environment.NewEnvironment(environment.MainEmulation, nil)
	test.DemandSuccess(t, err)
	return peripherals.Context{
		Env:         env,
		Slot:        slot,
		StorageRoot: t.TempDir(),
		Args:        args,
		Signals:     signals.NewBoard(),
	}
}

func TestBusTransfer(t *testing.T) {
	ctx := newContext(t, 0, nil)
	d, err := disk.NewDrive(ctx)
	test.DemandSuccess(t, err)

	b, err := bus.NewBus(ctx.Env, 1, ctx.Signals)
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, b.Attach(0, d))

	test.ExpectSuccess(t, b.BeginWrite(0, 0, []byte{0xaa, 0xbb}))
	test.ExpectEquality(t, b.State(0), bus.Idle)

	data, err := b.BeginRead(0, 0, 2)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, string(data), string([]byte{0xaa, 0xbb}))
	test.ExpectEquality(t, b.State(0), bus.Idle)
}

func TestBlockAddressing(t *testing.T) {
	d, err := disk.NewDrive(newContext(t, 1, nil))
	test.DemandSuccess(t, err)

	test.ExpectSuccess(t, d.WriteBlock(2, []byte{1, 2, 3}))
	test.ExpectEquality(t, d.Data[2*disk.BlockSize+1], uint8(2))

	// unwritten areas read as zero
	data, err := d.ReadBlock(2, 6)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, string(data), string([]byte{1, 2, 3, 0, 0, 0}))

	// beyond the end of the disk
	_, err = d.ReadBlock(disk.DefaultCapacity/disk.BlockSize, 1)
	test.ExpectEquality(t, errors.Is(err, disk.ErrCapacity), true)
	test.ExpectEquality(t, d.Code(), disk.OperationFailed)
	err = d.WriteBlock(-1, []byte{1})
	test.ExpectEquality(t, errors.Is(err, disk.ErrCapacity), true)
}

func TestFaultThroughBus(t *testing.T) {
	ctx := newContext(t, 0, map[string]string{"capacity": "8192"})
	d, err := disk.NewDrive(ctx)
	test.DemandSuccess(t, err)

	b, _ := bus.NewBus(ctx.Env, 1, ctx.Signals)
	test.DemandSuccess(t, b.Attach(0, d))

	_, err = b.BeginRead(0, 2, 1)
	test.ExpectEquality(t, errors.Is(err, bus.ErrDeviceFault), true)
	test.ExpectEquality(t, errors.Is(err, disk.ErrCapacity), true)
	test.ExpectEquality(t, b.State(0), bus.Error)
}

func TestSync(t *testing.T) {
	ctx := newContext(t, 1, map[string]string{"image": "test.img"})
	d, err := disk.NewDrive(ctx)
	test.DemandSuccess(t, err)

	synced, ok := ctx.Signals.Lookup("slot1.synced")
	test.DemandEquality(t, ok, true)
	test.ExpectEquality(t, synced.Get(), true)

	test.ExpectSuccess(t, d.WriteBlock(0, []byte("hello")))
	test.ExpectEquality(t, synced.Get(), false)
	test.ExpectEquality(t, d.Dirty(), true)

	test.ExpectSuccess(t, d.Sync())
	test.ExpectEquality(t, synced.Get(), true)
	test.ExpectEquality(t, d.Dirty(), false)

	data, err := os.ReadFile(filepath.Join(ctx.StorageRoot, "test.img"))
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, string(data[:5]), "hello")

	// a new drive on the same image sees the data
	e, err := disk.NewDrive(ctx)
	test.DemandSuccess(t, err)
	data, err = e.ReadBlock(0, 5)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, string(data), "hello")
}

func TestReadOnly(t *testing.T) {
	ctx := newContext(t, 0, map[string]string{"image": "ro.img", "readonly": "true"})

	// a read only disk must exist
	_, err := disk.NewDrive(ctx)
	test.ExpectFailure(t, err)

	test.DemandSuccess(t, os.WriteFile(filepath.Join(ctx.StorageRoot, "ro.img"), []byte{9, 8, 7}, 0o644))
	d, err := disk.NewDrive(ctx)
	test.DemandSuccess(t, err)

	err = d.WriteBlock(0, []byte{1})
	test.ExpectEquality(t, errors.Is(err, disk.ErrReadOnly), true)
	test.ExpectEquality(t, d.Code(), disk.ReadOnly)

	data, err := d.ReadBlock(0, 3)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, string(data), string([]byte{9, 8, 7}))
}

func TestSyncWatchdog(t *testing.T) {
	ctx := newContext(t, 2, nil)
	test.DemandSuccess(t, ctx.Env.Prefs.SyncDeadline.Set(5))

	d, err := disk.NewDrive(ctx)
	test.DemandSuccess(t, err)

	r := watchdog.NewRegistry(ctx.Env, ctx.Signals, nil)
	specs := d.Watchdogs()
	test.DemandEquality(t, len(specs), 1)
	test.ExpectEquality(t, specs[0].Name, disk.SyncWatchdog)
	test.ExpectEquality(t, specs[0].Source, "slot2.synced")
	test.ExpectEquality(t, specs[0].Deadline, 5)

	test.DemandSuccess(t, r.Register(specs[0]))
	test.DemandSuccess(t, r.Arm(disk.SyncWatchdog, 0))

	// a synced disk never trips the watchdog
	for range 10 {
		test.ExpectSuccess(t, r.Tick())
	}
	state, _ := r.State(disk.SyncWatchdog)
	test.ExpectEquality(t, state, watchdog.Armed)

	test.ExpectSuccess(t, d.WriteBlock(0, []byte{0xff}))
	for range 4 {
		test.ExpectSuccess(t, r.Tick())
	}
	state, _ = r.State(disk.SyncWatchdog)
	test.ExpectEquality(t, state, watchdog.Armed)
	test.ExpectEquality(t, d.Dirty(), true)

	// the fifth tick forces the sync
	test.ExpectSuccess(t, r.Tick())
	state, _ = r.State(disk.SyncWatchdog)
	test.ExpectEquality(t, state, watchdog.Tripped)
	test.ExpectEquality(t, d.Dirty(), false)

	_, err = os.Stat(d.Path())
	test.ExpectSuccess(t, err)
}

func TestClose(t *testing.T) {
	ctx := newContext(t, 0, nil)
	d, err := disk.NewDrive(ctx)
	test.DemandSuccess(t, err)

	test.ExpectSuccess(t, d.WriteBlock(1, []byte{5}))
	test.ExpectSuccess(t, d.Close())
	test.ExpectSuccess(t, d.Close())

	_, err = d.ReadBlock(0, 1)
	test.ExpectEquality(t, errors.Is(err, disk.ErrClosed), true)

	data, err := os.ReadFile(filepath.Join(ctx.StorageRoot, "disk0.img"))
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, data[disk.BlockSize], uint8(5))
}

func TestComposeAnswer(t *testing.T) {
	a := disk.ComposeAnswer("0", "READY")
	test.ExpectEquality(t, string(a), "0\x1fREADY\x17")
	test.ExpectEquality(t, disk.SystemIOError.String(), "IO ERROR ON SIMULATED DRIVE")
}

func TestOffsetOverflow(t *testing.T) {
	ctx := newContext(t, 0, nil)
	d, err := disk.NewDrive(ctx)
	test.DemandSuccess(t, err)

	b, err := bus.NewBus(ctx.Env, 1, ctx.Signals)
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, b.Attach(0, d))

	// the offset overflows when scaled by the block size
	_, err = b.BeginRead(0, 1<<51, 1)
	test.ExpectEquality(t, errors.Is(err, bus.ErrDeviceFault), true)
	test.ExpectEquality(t, errors.Is(err, disk.ErrCapacity), true)
	test.ExpectEquality(t, b.State(0), bus.Error)

	test.DemandSuccess(t, b.ClearError(0))
	err = b.BeginWrite(0, 1<<51, []byte{1})
	test.ExpectEquality(t, errors.Is(err, disk.ErrCapacity), true)
	test.ExpectEquality(t, b.State(0), bus.Error)
}
