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

import (
	"io"
	"strings"
)

// CSI sequences used by the Colorizer
const (
	tagPen    = "\033[2;36m"
	normalPen = "\033[0m"
)

// Colorizer applies basic coloring rules to logging output. The tag of each
// entry is drawn in a dim colour.
type Colorizer struct {
	out io.Writer
}

// NewColorizer is the preferred method if initialisation for the Colorizer type.
func NewColorizer(out io.Writer) Colorizer {
	return Colorizer{out: out}
}

// Write implements the io.Writer interface.
func (c Colorizer) Write(p []byte) (int, error) {
	var n int

	for _, l := range strings.SplitAfter(string(p), "\n") {
		if l == "" {
			continue
		}

		var s string
		if tag, detail, ok := strings.Cut(l, ": "); ok {
			s = tagPen + tag + ":" + normalPen + " " + detail
		} else {
			s = l
		}

		if _, err := io.WriteString(c.out, s); err != nil {
			return n, err
		}
		n += len(l)
	}

	return n, nil
}
