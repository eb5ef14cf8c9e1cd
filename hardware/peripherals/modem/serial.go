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

//go:build !windows

package modem

import (
	"context"
	"io"

	"github.com/pkg/term"
)

// DefaultBaud is the speed of a serial line if none is given.
const DefaultBaud = 9600

// SerialDialer opens serial devices. The address is the path of the device.
type SerialDialer struct {
	Baud int
}

// Dial implements the Dialer interface.
func (d *SerialDialer) Dial(ctx context.Context, addr string) (io.ReadWriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	baud := d.Baud
	if baud == 0 {
		baud = DefaultBaud
	}

	t, err := term.Open(addr, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, err
	}

	return t, nil
}
