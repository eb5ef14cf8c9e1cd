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

package peripherals

import (
	"fmt"
	"sort"
	"strings"
)

// MMIOBase is the start of the memory mapped windows. It sits above the
// largest possible user memory.
const MMIOBase = 0x10000000

// MMIOWindowSize is the default size of the window given to each slot.
const MMIOWindowSize = 0x200000

// DefaultWindow returns the default window base for a slot.
func DefaultWindow(slot int) int {
	return MMIOBase + slot*MMIOWindowSize
}

// Entry binds a device identity to a bus slot. It is the configuration
// descriptor from which a session constructs and attaches a device.
type Entry struct {
	Slot int
	ID   ID

	// the memory window of the device. a zero size means the default
	// window for the slot, if the device is memory mapped
	Base int
	Size int

	// the host that the entry's device is attached to. this is the ID of the
	// host and is filled in by the session
	Owner string

	// dimensions of the viewport for display devices
	Width  int
	Height int

	// device specific arguments
	Args map[string]string
}

func (e Entry) String() string {
	s := strings.Builder{}
	s.WriteString(fmt.Sprintf("slot %d: %s", e.Slot, e.ID))
	if len(e.Args) > 0 {
		keys := make([]string, 0, len(e.Args))
		for k := range e.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s.WriteString(fmt.Sprintf(" %s=%s", k, e.Args[k]))
		}
	}
	return s.String()
}

// ParseEntry parses an entry from a string of the form:
//
//	slot:id[:key=value,key=value...]
//
// For example, "1:disk:image=boot.img,readonly=true"
func ParseEntry(s string) (Entry, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 {
		return Entry{}, fmt.Errorf("peripherals: entry %q: expected slot:id", s)
	}

	var e Entry
	if _, err := fmt.Sscanf(parts[0], "%d", &e.Slot); err != nil {
		return Entry{}, fmt.Errorf("peripherals: entry %q: %w", s, err)
	}

	e.ID = ID(strings.TrimSpace(parts[1]))
	if e.ID == "" {
		return Entry{}, fmt.Errorf("peripherals: entry %q: missing identity", s)
	}

	if len(parts) == 3 && parts[2] != "" {
		e.Args = make(map[string]string)
		for _, kv := range strings.Split(parts[2], ",") {
			k, v, _ := strings.Cut(kv, "=")
			e.Args[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}

	return e, nil
}

// Arg returns the named argument or the default value if the argument is not
// present.
func (e Entry) Arg(key string, def string) string {
	if v, ok := e.Args[key]; ok {
		return v
	}
	return def
}
