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
	"strings"
)

// CompareWriter is an io.Writer that captures output for comparison with an
// expected string.
type CompareWriter struct {
	buffer strings.Builder
}

// Write implements the io.Writer interface.
func (cw *CompareWriter) Write(p []byte) (int, error) {
	return cw.buffer.Write(p)
}

// Clear empties the captured output.
func (cw *CompareWriter) Clear() {
	cw.buffer.Reset()
}

// Compare the captured output with s.
func (cw *CompareWriter) Compare(s string) bool {
	return cw.buffer.String() == s
}

// Contains returns true if s is in the captured output.
func (cw *CompareWriter) Contains(s string) bool {
	return strings.Contains(cw.buffer.String(), s)
}

func (cw *CompareWriter) String() string {
	return cw.buffer.String()
}
