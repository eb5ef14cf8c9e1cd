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
package test

import (
	"fmt"
)

// RingWriter is an io.Writer that keeps only the most recent bytes written to
// it. Useful for capturing the tail of long running output.
type RingWriter struct {
	buffer []byte
	size   int
}

// NewRingWriter is the preferred method of initialisation for the RingWriter
// type. The size is the number of bytes kept.
func NewRingWriter(size int) (*RingWriter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("test: invalid size for RingWriter (%d)", size)
	}
	return &RingWriter{
		buffer: make([]byte, 0, size),
		size:   size,
	}, nil
}

func (r *RingWriter) String() string {
	return string(r.buffer)
}

// Reset empties the ring.
func (r *RingWriter) Reset() {
	r.buffer = r.buffer[:0]
}

// Write implements the io.Writer interface.
func (r *RingWriter) Write(p []byte) (int, error) {
	r.buffer = append(r.buffer, p...)
	if over := len(r.buffer) - r.size; over > 0 {
		r.buffer = append(r.buffer[:0], r.buffer[over:]...)
	}
	return len(p), nil
}
