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

package environment_test

import (
	"testing"

	"github.com/curioustorvald/tsvm/environment"
	"github.com/curioustorvald/tsvm/notifications"
	"github.com/curioustorvald/tsvm/test"
)

type notices struct {
	received []notifications.Notice
}

func (n *notices) Notify(notice notifications.Notice) error {
	n.received = append(n.received, notice)
	return nil
}

func TestEnvironment(t *testing.T) {
	env, err := environment.NewEnvironment(environment.MainEmulation, nil)
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, env.IsMainEmulation())
	test.ExpectSuccess(t, env.AllowLogging())
	test.ExpectEquality(t, env.Tag("host"), "host")

	// logging permission follows the preferences
	test.ExpectSuccess(t, env.Prefs.Logging.Set(false))
	test.ExpectFailure(t, env.AllowLogging())
	env.Normalise()
	test.ExpectSuccess(t, env.AllowLogging())

	// notifying without a target is not an error
	test.ExpectSuccess(t, env.Notify(notifications.NotifyHostReset))
}

func TestCoprocessorEnvironment(t *testing.T) {
	main, err := environment.NewEnvironment(environment.MainEmulation, nil)
	test.DemandSuccess(t, err)

	aux, err := environment.NewEnvironment("aux", main.Prefs)
	test.DemandSuccess(t, err)
	test.ExpectFailure(t, aux.IsMainEmulation())
	test.ExpectSuccess(t, aux.IsEmulation("aux"))
	test.ExpectEquality(t, aux.Tag("host"), "aux/host")

	// preferences are shared
	test.ExpectSuccess(t, main.Prefs.Logging.Set(false))
	test.ExpectFailure(t, aux.AllowLogging())

	n := &notices{}
	aux.Notifications = n
	test.ExpectSuccess(t, aux.Notify(notifications.NotifyWatchdogTrip))
	test.DemandEquality(t, len(n.received), 1)
	test.ExpectEquality(t, n.received[0], notifications.NotifyWatchdogTrip)
}
