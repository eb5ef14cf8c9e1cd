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
package prefs

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// the separators used in a command line prefs string
const (
	clPairSep = ";"
	clKeySep  = "::"
)

// a group of key/value pairs from a single command line prefs string
type group map[string]Value

var commandLine struct {
	crit  sync.Mutex
	stack []group
}

// SizeCommandLineStack returns the number of groups that have been added with
// PushCommandLineStack().
func SizeCommandLineStack() int {
	commandLine.crit.Lock()
	defer commandLine.crit.Unlock()
	return len(commandLine.stack)
}

// PushCommandLineStack parses a prefs string and adds it to the stack as a new
// group. The string is a list of key/value pairs of the form:
//
//	hardware.memsize::65536; hardware.slots::4
//
// Malformed pairs are ignored.
func PushCommandLineStack(prefs string) {
	g := make(group)
	for _, p := range strings.Split(prefs, clPairSep) {
		k, v, ok := strings.Cut(p, clKeySep)
		if !ok || strings.Contains(v, clKeySep) {
			continue
		}
		g[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	commandLine.crit.Lock()
	defer commandLine.crit.Unlock()
	commandLine.stack = append(commandLine.stack, g)
}

// PopCommandLineStack removes the most recent group from the stack. The
// values in the group that were never used are returned as a prefs string,
// with the keys sorted.
func PopCommandLineStack() string {
	commandLine.crit.Lock()
	defer commandLine.crit.Unlock()

	if len(commandLine.stack) == 0 {
		return ""
	}

	g := commandLine.stack[len(commandLine.stack)-1]
	commandLine.stack = commandLine.stack[:len(commandLine.stack)-1]

	unused := make([]string, 0, len(g))
	for _, k := range slices.Sorted(maps.Keys(g)) {
		unused = append(unused, fmt.Sprintf("%s%s%v", k, clKeySep, g[k]))
	}

	return strings.Join(unused, clPairSep+" ")
}

// GetCommandLinePref returns the value for key from the most recent group.
// A value can only be used once.
func GetCommandLinePref(key string) (bool, Value) {
	commandLine.crit.Lock()
	defer commandLine.crit.Unlock()

	if len(commandLine.stack) == 0 {
		return false, nil
	}

	g := commandLine.stack[len(commandLine.stack)-1]
	v, ok := g[key]
	if ok {
		delete(g, key)
	}
	return ok, v
}
