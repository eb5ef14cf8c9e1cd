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

package modem

import (
	"context"
	"io"
	"net"
)

// Dialer opens a connection to an address.
type Dialer interface {
	Dial(ctx context.Context, addr string) (io.ReadWriteCloser, error)
}

// TCPDialer dials addresses over TCP.
type TCPDialer struct {
	net.Dialer
}

// Dial implements the Dialer interface.
func (d *TCPDialer) Dial(ctx context.Context, addr string) (io.ReadWriteCloser, error) {
	return d.DialContext(ctx, "tcp", addr)
}
