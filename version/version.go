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
package version

import (
	"runtime/debug"
)

// ApplicationName is the name to use when referring to the application.
const ApplicationName = "TSVM"

// number is set by the linker for release builds:
//
//	go build -ldflags "-X github.com/curioustorvald/tsvm/version.number=v0.1.0"
var number string

var (
	version  string
	revision string
)

// Version returns the version string, the revision string and whether this is
// a numbered release.
//
// The version string is "unreleased" for builds from a checked out repository
// without a release number. It is "local" when there is no vcs information at
// all, as with "go run".
//
// The revision is suffixed with "+dirty" if the build contained uncommitted
// changes.
func Version() (string, string, bool) {
	return version, revision, number != "" && version == number
}

func init() {
	version, revision = fromBuildInfo(number)
}

func fromBuildInfo(number string) (string, string) {
	settings := make(map[string]string)
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			settings[s.Key] = s.Value
		}
	}

	rev, ok := settings["vcs.revision"]
	switch {
	case !ok || rev == "":
		rev = "no revision information"
	case settings["vcs.modified"] == "true":
		rev += "+dirty"
	}

	if number != "" {
		return number, rev
	}
	if _, ok := settings["vcs"]; ok {
		return "unreleased", rev
	}
	return "local", rev
}
