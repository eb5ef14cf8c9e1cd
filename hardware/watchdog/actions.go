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

package watchdog

import (
	"fmt"

	"github.com/curioustorvald/tsvm/environment"
	"github.com/curioustorvald/tsvm/logger"
)

// LogAction returns a fault action that logs the trip and does nothing else.
func LogAction(env *environment.Environment) FaultAction {
	return func(t Trip) error {
		logger.Log(env, env.Tag("watchdog"), t)
		return nil
	}
}

// Escalate returns a fault action that escalates every trip to the driving
// loop.
func Escalate() FaultAction {
	return func(t Trip) error {
		return fmt.Errorf("%w: %s", ErrFatal, t.Name)
	}
}

// Chain returns a fault action that runs each action in turn. The first
// action to return an error stops the chain.
func Chain(actions ...FaultAction) FaultAction {
	return func(t Trip) error {
		for _, a := range actions {
			if a == nil {
				continue
			}
			if err := a(t); err != nil {
				return err
			}
		}
		return nil
	}
}
