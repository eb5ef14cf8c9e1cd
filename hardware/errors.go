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
package hardware

import "errors"

// Sentinel errors returned by the Host.
var (
	ErrBoot           = errors.New("boot error")
	ErrNotBooted      = errors.New("host has not been booted")
	ErrDestroyed      = errors.New("host has been destroyed")
	ErrBooting        = errors.New("host is booting")
	ErrWindowConflict = errors.New("memory window conflict")
	ErrOutOfRange     = errors.New("address out of range")
	ErrNotMapped      = errors.New("device is not memory mapped")
)
