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

package environment

import (
	"github.com/curioustorvald/tsvm/hardware/preferences"
	"github.com/curioustorvald/tsvm/notifications"
)

// Label is used to name the environment
type Label string

// MainEmulation is the label used for the primary machine host
const MainEmulation = Label("")

// Environment is used to provide context for a machine host. Particularly
// useful when more than one host is running, as in the coprocessor pattern
type Environment struct {
	Label Label

	// the machine preferences
	Prefs *preferences.Preferences

	// the notification target for events raised by the host. can be nil
	Notifications notifications.Notify
}

// NewEnvironment is the preferred method of initialisation for the Environment type.
//
// The prefs argument can be nil, in which case a new Preferences instance with
// default values is created. Providing a non-nil value allows the preferences
// of more than one host to be synchronised.
func NewEnvironment(label Label, prefs *preferences.Preferences) (*Environment, error) {
	env := &Environment{
		Label: label,
	}

	var err error

	if prefs == nil {
		prefs, err = preferences.NewPreferences("")
		if err != nil {
			return nil, err
		}
	}

	env.Prefs = prefs

	return env, nil
}

// Normalise ensures the environment is in an known default state. Useful for
// testing where the initial state must be the same for every run of the test.
func (env *Environment) Normalise() {
	env.Prefs.SetDefaults()
}

// AllowLogging implements the logger.Permission interface
func (env *Environment) AllowLogging() bool {
	if env == nil || env.Prefs == nil {
		return true
	}
	return env.Prefs.Logging.Get().(bool)
}

// Notify sends the notice to the environment's notification target, if
// there is one
func (env *Environment) Notify(notice notifications.Notice) error {
	if env == nil || env.Notifications == nil {
		return nil
	}
	return env.Notifications.Notify(notice)
}

// Tag returns the string to use as the tag for log entries made by the
// environment. The tag of the main emulation is the tag argument unchanged
func (env *Environment) Tag(tag string) string {
	if env == nil || env.IsMainEmulation() {
		return tag
	}
	return string(env.Label) + "/" + tag
}

// IsMainEmulation returns true if the environment is intended for the main
// emulation in the system
func (env *Environment) IsMainEmulation() bool {
	return env.Label == MainEmulation
}

// IsEmulation checks the emulation label and returns true if it matches
func (env *Environment) IsEmulation(label Label) bool {
	return env.Label == label
}
