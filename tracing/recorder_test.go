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
package tracing_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/curioustorvald/tsvm/environment"
	"github.com/curioustorvald/tsvm/hardware"
	"github.com/curioustorvald/tsvm/hardware/memory/rom"
	"github.com/curioustorvald/tsvm/hardware/peripherals"
	"github.com/curioustorvald/tsvm/hardware/peripherals/disk"
	"github.com/curioustorvald/tsvm/hardware/watchdog"
	"github.com/curioustorvald/tsvm/test"
	"github.com/curioustorvald/tsvm/tracing"
)

func newHost(t *testing.T) *hardware.Host {
	t.Helper()

	env, err := environment.NewEnvironment(environment.MainEmulation, nil)
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, env.Prefs.MemorySize.Set(4096))
	test.DemandSuccess(t, env.Prefs.Logging.Set(false))

	img, _ := rom.NewImage("bios", []byte{0})
	set, _ := rom.NewSet(img)

	h, err := hardware.NewHost(env, set, nil)
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, h.Boot())

	return h
}

func TestRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.sqlite3")

	r, err := tracing.NewRecorder(path)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, r.Path(), path)

	h := newHost(t)
	r.Attach(h)

	d, err := disk.NewDrive(peripherals.Context{Env: h.Env(), StorageRoot: t.TempDir()})
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, h.Attach(0, d))

	test.ExpectSuccess(t, h.BeginWrite(0, 0, []byte{1, 2, 3}))
	_, err = h.BeginRead(0, 0, 3)
	test.ExpectSuccess(t, err)

	// no device on port 1 so there is nothing to record
	_, err = h.BeginRead(1, 0, 3)
	test.ExpectFailure(t, err)

	unsatisfied := watchdog.ConditionFunc(func() bool { return false })
	test.DemandSuccess(t, h.Watchdogs().RegisterCondition(watchdog.Spec{Name: "stall", Deadline: 1}, unsatisfied))
	test.DemandSuccess(t, h.Watchdogs().Arm("stall", 0))
	test.ExpectSuccess(t, h.Step())

	// nothing is written until the records are flushed
	n, err := r.Count("transfers")
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, n, 0)

	test.DemandSuccess(t, r.Flush())

	n, err = r.Count("transfers")
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, n, 2)

	n, err = r.Count("trips")
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, n, 1)

	_, err = r.Count("users")
	test.ExpectFailure(t, err)

	test.ExpectSuccess(t, r.Close())
	test.ExpectSuccess(t, r.Close())

	// the database file is never overwritten
	_, err = tracing.NewRecorder(path)
	test.ExpectEquality(t, errors.Is(err, tracing.ErrExists), true)
}

func TestBatch(t *testing.T) {
	r, err := tracing.NewRecorder(filepath.Join(t.TempDir(), "trace.sqlite3"))
	test.DemandSuccess(t, err)
	defer r.Close()
	r.BatchSize = 2

	h := newHost(t)
	r.Attach(h)

	d, err := disk.NewDrive(peripherals.Context{Env: h.Env(), StorageRoot: t.TempDir()})
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, h.Attach(0, d))

	for range 5 {
		test.ExpectSuccess(t, h.BeginWrite(0, 0, []byte{1}))
	}

	// two full batches have been written
	n, err := r.Count("transfers")
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, n, 4)
}
