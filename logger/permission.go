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
package logger

// Permission is implemented by anything that can make a log request. A log
// entry is only added if AllowLogging() returns true. The environment of a
// machine host is the usual implementation.
type Permission interface {
	AllowLogging() bool
}

type always struct{}

func (always) AllowLogging() bool {
	return true
}

// Allow is the permission to use when a log entry should always be made.
var Allow Permission = always{}
