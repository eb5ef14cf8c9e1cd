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

package watchdog_test

import (
	"errors"
	"testing"

	"github.com/curioustorvald/tsvm/hardware/clocks"
	"github.com/curioustorvald/tsvm/hardware/signals"
	"github.com/curioustorvald/tsvm/hardware/watchdog"
	"github.com/curioustorvald/tsvm/test"
)

func newRegistry() (*watchdog.Registry, *signals.Board, *clocks.Counter) {
	board := signals.NewBoard()
	clk := &clocks.Counter{}
	return watchdog.NewRegistry(nil, board, clk), board, clk
}

func TestRegister(t *testing.T) {
	r, board, _ := newRegistry()

	test.ExpectSuccess(t, r.Register(watchdog.Spec{Name: "sync", Source: "slot1.synced", Deadline: 5}))

	// the source flag exists as soon as the watchdog is registered
	_, ok := board.Lookup("slot1.synced")
	test.ExpectSuccess(t, ok)

	err := r.Register(watchdog.Spec{Name: "sync", Source: "slot1.synced", Deadline: 5})
	test.ExpectSuccess(t, errors.Is(err, watchdog.ErrDuplicate))

	err = r.Register(watchdog.Spec{Name: "zero", Source: "x", Deadline: 0})
	test.ExpectSuccess(t, errors.Is(err, watchdog.ErrDeadline))

	err = r.Register(watchdog.Spec{Name: "nosource", Deadline: 1})
	test.ExpectSuccess(t, errors.Is(err, watchdog.ErrSource))

	// new watchdogs are disarmed
	st, err := r.State("sync")
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, st, watchdog.Disarmed)

	test.ExpectSuccess(t, r.Unregister("sync"))
	test.ExpectSuccess(t, errors.Is(r.Unregister("sync"), watchdog.ErrUnknown))
	_, err = r.State("sync")
	test.ExpectSuccess(t, errors.Is(err, watchdog.ErrUnknown))
}

// a watchdog with a deadline of D trips on exactly the D-th tick
func TestTripsOnDeadline(t *testing.T) {
	for d := 1; d <= 10; d++ {
		r, _, _ := newRegistry()

		var fired int
		test.DemandSuccess(t, r.Register(watchdog.Spec{
			Name:     "commit",
			Source:   "slot1.committed",
			Deadline: d,
			Action: func(watchdog.Trip) error {
				fired++
				return nil
			},
		}))
		test.DemandSuccess(t, r.Arm("commit", 0))

		for i := 1; i < d; i++ {
			test.ExpectSuccess(t, r.Tick())
			st, _ := r.State("commit")
			test.ExpectEquality(t, st, watchdog.Armed, d, i)
		}

		test.ExpectSuccess(t, r.Tick())
		st, _ := r.State("commit")
		test.ExpectEquality(t, st, watchdog.Tripped, d)
		test.ExpectEquality(t, fired, 1, d)

		// a tripped watchdog is not ticked
		test.ExpectSuccess(t, r.Tick())
		test.ExpectEquality(t, fired, 1, d)
	}
}

// the sync watchdog scenario: armed with a deadline of five and never
// satisfied. the resync action is invoked exactly once
func TestSyncScenario(t *testing.T) {
	r, board, clk := newRegistry()
	synced := board.Publish("slot1.synced")

	var resyncs []watchdog.Trip
	resync := func(trip watchdog.Trip) error {
		resyncs = append(resyncs, trip)
		synced.Set(true)
		return nil
	}

	test.DemandSuccess(t, r.Register(watchdog.Spec{Name: "sync", Source: "slot1.synced", Deadline: 100, Action: resync}))
	test.DemandSuccess(t, r.Arm("sync", 5))

	for i := 1; i <= 4; i++ {
		clk.Advance()
		test.ExpectSuccess(t, r.Tick())
		st, _ := r.State("sync")
		test.ExpectEquality(t, st, watchdog.Armed)
		test.ExpectEquality(t, len(resyncs), 0)
	}

	clk.Advance()
	test.ExpectSuccess(t, r.Tick())
	st, _ := r.State("sync")
	test.ExpectEquality(t, st, watchdog.Tripped)
	test.DemandEquality(t, len(resyncs), 1)
	test.ExpectEquality(t, resyncs[0].Name, "sync")
	test.ExpectEquality(t, resyncs[0].Deadline, 5)
	test.ExpectEquality(t, resyncs[0].At, int64(5))

	// the watchdog stays tripped until acknowledged even though the
	// resync has satisfied the condition
	test.ExpectSuccess(t, r.Tick())
	st, _ = r.State("sync")
	test.ExpectEquality(t, st, watchdog.Tripped)
	test.ExpectEquality(t, len(resyncs), 1)
	test.ExpectEquality(t, r.Tripped()[0], "sync")

	test.ExpectSuccess(t, r.Acknowledge("sync"))
	st, _ = r.State("sync")
	test.ExpectEquality(t, st, watchdog.Armed)
	inf, _ := r.Info("sync")
	test.ExpectEquality(t, inf.Remaining, 5)
	test.ExpectEquality(t, inf.Trips, 1)
}

// a satisfied condition resets the countdown
func TestConditionResetsCountdown(t *testing.T) {
	r, board, _ := newRegistry()
	flag := board.Publish("port0.idle")

	test.DemandSuccess(t, r.Register(watchdog.Spec{Name: "transfer", Source: "port0.idle", Deadline: 3}))
	test.DemandSuccess(t, r.Arm("transfer", 0))

	test.ExpectSuccess(t, r.Tick())
	test.ExpectSuccess(t, r.Tick())
	inf, _ := r.Info("transfer")
	test.ExpectEquality(t, inf.Remaining, 1)

	flag.Set(true)
	test.ExpectSuccess(t, r.Tick())
	inf, _ = r.Info("transfer")
	test.ExpectEquality(t, inf.Remaining, 3)

	flag.Set(false)
	for range 3 {
		test.ExpectSuccess(t, r.Tick())
	}
	st, _ := r.State("transfer")
	test.ExpectEquality(t, st, watchdog.Tripped)
}

func TestAcknowledgeIsNoOp(t *testing.T) {
	r, _, _ := newRegistry()
	test.DemandSuccess(t, r.Register(watchdog.Spec{Name: "sync", Source: "s", Deadline: 4}))

	// disarmed
	test.ExpectSuccess(t, r.Acknowledge("sync"))
	st, _ := r.State("sync")
	test.ExpectEquality(t, st, watchdog.Disarmed)

	// armed. the countdown is not reset by acknowledge
	test.DemandSuccess(t, r.Arm("sync", 0))
	test.ExpectSuccess(t, r.Tick())
	test.ExpectSuccess(t, r.Acknowledge("sync"))
	inf, _ := r.Info("sync")
	test.ExpectEquality(t, inf.State, watchdog.Armed)
	test.ExpectEquality(t, inf.Remaining, 3)

	test.ExpectSuccess(t, errors.Is(r.Acknowledge("missing"), watchdog.ErrUnknown))
}

func TestArm(t *testing.T) {
	r, _, _ := newRegistry()
	test.DemandSuccess(t, r.Register(watchdog.Spec{Name: "a", Source: "a", Deadline: 2}))

	test.ExpectSuccess(t, errors.Is(r.Arm("missing", 0), watchdog.ErrUnknown))
	test.ExpectSuccess(t, errors.Is(r.Arm("a", -1), watchdog.ErrDeadline))

	// arming is idempotent
	test.ExpectSuccess(t, r.Arm("a", 0))
	test.ExpectSuccess(t, r.Arm("a", 0))
	test.ExpectSuccess(t, r.Tick())
	test.ExpectSuccess(t, r.Arm("a", 0))
	inf, _ := r.Info("a")
	test.ExpectEquality(t, inf.Remaining, 2)

	test.ExpectSuccess(t, r.Tick())
	test.ExpectSuccess(t, r.Tick())
	test.ExpectSuccess(t, errors.Is(r.Arm("a", 0), watchdog.ErrTripped))

	// ArmAll() does not re-arm a tripped watchdog
	r.ArmAll()
	st, _ := r.State("a")
	test.ExpectEquality(t, st, watchdog.Tripped)

	// but disarming then arming does
	r.DisarmAll()
	r.ArmAll()
	st, _ = r.State("a")
	test.ExpectEquality(t, st, watchdog.Armed)

	test.ExpectSuccess(t, r.Disarm("a"))
	for range 5 {
		test.ExpectSuccess(t, r.Tick())
	}
	st, _ = r.State("a")
	test.ExpectEquality(t, st, watchdog.Disarmed)
}

// watchdogs do not share countdown state
func TestIndependentWatchdogs(t *testing.T) {
	r, board, _ := newRegistry()
	test.DemandSuccess(t, r.Register(watchdog.Spec{Name: "commit", Source: "slot1.committed", Deadline: 2}))
	test.DemandSuccess(t, r.Register(watchdog.Spec{Name: "sync", Source: "slot1.synced", Deadline: 2}))
	r.ArmAll()

	board.Publish("slot1.committed").Set(true)
	test.ExpectSuccess(t, r.Tick())
	test.ExpectSuccess(t, r.Tick())

	commit, _ := r.State("commit")
	sync, _ := r.State("sync")
	test.ExpectEquality(t, commit, watchdog.Armed)
	test.ExpectEquality(t, sync, watchdog.Tripped)

	test.DemandEquality(t, len(r.All()), 2)
	test.ExpectEquality(t, r.Names()[0], "commit")
}

func TestEscalation(t *testing.T) {
	r, _, _ := newRegistry()

	var observed []watchdog.Trip
	r.AddObserver(func(trip watchdog.Trip) {
		observed = append(observed, trip)
	})

	test.DemandSuccess(t, r.RegisterCondition(watchdog.Spec{
		Name:     "fatal",
		Deadline: 1,
		Action:   watchdog.Chain(watchdog.LogAction(nil), watchdog.Escalate()),
	}, watchdog.ConditionFunc(func() bool { return false })))
	test.DemandSuccess(t, r.RegisterCondition(watchdog.Spec{
		Name:     "logged",
		Deadline: 1,
	}, watchdog.ConditionFunc(func() bool { return false })))
	r.ArmAll()

	err := r.Tick()
	test.ExpectSuccess(t, errors.Is(err, watchdog.ErrTrip))
	test.ExpectSuccess(t, errors.Is(err, watchdog.ErrFatal))

	test.DemandEquality(t, len(observed), 2)
	test.ExpectEquality(t, observed[0].Name, "fatal")
	test.ExpectSuccess(t, errors.Is(observed[0].Err, watchdog.ErrFatal))
	test.ExpectEquality(t, observed[1].Name, "logged")
	test.ExpectSuccess(t, observed[1].Err)
}

// the fault action can acknowledge its own watchdog
func TestActionAcknowledges(t *testing.T) {
	r, _, _ := newRegistry()

	test.DemandSuccess(t, r.RegisterCondition(watchdog.Spec{
		Name:     "self",
		Deadline: 1,
		Action: func(trip watchdog.Trip) error {
			return r.Acknowledge(trip.Name)
		},
	}, watchdog.ConditionFunc(func() bool { return false })))
	r.ArmAll()

	test.ExpectSuccess(t, r.Tick())
	inf, _ := r.Info("self")
	test.ExpectEquality(t, inf.State, watchdog.Armed)
	test.ExpectEquality(t, inf.Trips, 1)
}

func TestRemainingAndTrips(t *testing.T) {
	r, _, _ := newRegistry()
	test.DemandSuccess(t, r.Register(watchdog.Spec{Name: "dog", Source: "never", Deadline: 3}))
	test.DemandSuccess(t, r.Arm("dog", 0))

	n, err := r.Remaining("dog")
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, n, 3)

	test.ExpectSuccess(t, r.Tick())
	n, _ = r.Remaining("dog")
	test.ExpectEquality(t, n, 2)

	test.ExpectSuccess(t, r.Tick())
	test.ExpectSuccess(t, r.Tick())
	n, _ = r.Trips("dog")
	test.ExpectEquality(t, n, 1)

	test.ExpectSuccess(t, r.Acknowledge("dog"))
	for range 3 {
		test.ExpectSuccess(t, r.Tick())
	}
	n, _ = r.Trips("dog")
	test.ExpectEquality(t, n, 2)

	_, err = r.Trips("cat")
	test.ExpectFailure(t, err)
}

// disarming clears the trip count
func TestDisarmClearsTrips(t *testing.T) {
	r, _, _ := newRegistry()
	test.DemandSuccess(t, r.Register(watchdog.Spec{Name: "dog", Source: "dog.fed", Deadline: 1}))
	test.DemandSuccess(t, r.Register(watchdog.Spec{Name: "cat", Source: "cat.fed", Deadline: 1}))
	r.ArmAll()

	test.ExpectSuccess(t, r.Tick())
	n, _ := r.Trips("dog")
	test.ExpectEquality(t, n, 1)

	test.ExpectSuccess(t, r.Disarm("dog"))
	n, _ = r.Trips("dog")
	test.ExpectEquality(t, n, 0)
	st, _ := r.State("dog")
	test.ExpectEquality(t, st, watchdog.Disarmed)

	n, _ = r.Trips("cat")
	test.ExpectEquality(t, n, 1)
	r.DisarmAll()
	n, _ = r.Trips("cat")
	test.ExpectEquality(t, n, 0)
	inf, _ := r.Info("cat")
	test.ExpectEquality(t, inf.Trips, 0)
	test.ExpectEquality(t, inf.State, watchdog.Disarmed)
}
