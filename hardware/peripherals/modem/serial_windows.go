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

//go:build windows

package modem

import (
	"context"
	"errors"
	"io"
)

// DefaultBaud is the speed of a serial line if none is given.
const DefaultBaud = 9600

// SerialDialer is not supported on this platform.
type SerialDialer struct {
	Baud int
}

// Dial implements the Dialer interface.
func (d *SerialDialer) Dial(_ context.Context, _ string) (io.ReadWriteCloser, error) {
	return nil, errors.New("serial lines are not supported on windows")
}
