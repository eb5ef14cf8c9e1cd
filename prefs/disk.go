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
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
)

// DefaultPrefsFile is the default filename of the global preferences file.
const DefaultPrefsFile = "preferences"

// WarningBoilerPlate is inserted at the beginning of a preferences file.
const WarningBoilerPlate = "*** do not edit this file by hand ***"

// separator between key and value in the preferences file
const keySep = " :: "

// Disk represents preference values as stored on disk.
type Disk struct {
	path    string
	entries map[string]pref
}

func (dsk *Disk) String() string {
	keys := make([]string, 0, len(dsk.entries))
	for k := range dsk.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s := strings.Builder{}
	for _, k := range keys {
		s.WriteString(fmt.Sprintf("%s%s%s\n", k, keySep, dsk.entries[k]))
	}
	return s.String()
}

// NewDisk is the preferred method of initialisation for the Disk type.
func NewDisk(path string) (*Disk, error) {
	return &Disk{
		path:    path,
		entries: make(map[string]pref),
	}, nil
}

// Add preference value to list of values to store/load from Disk. The key
// value is used to identify the preference in the file.
func (dsk *Disk) Add(key string, p pref) error {
	if strings.Contains(key, keySep) || strings.ContainsAny(key, "\n") {
		return fmt.Errorf("prefs: illegal key %q", key)
	}
	if _, ok := dsk.entries[key]; ok {
		return fmt.Errorf("prefs: key %q already added", key)
	}
	dsk.entries[key] = p
	return nil
}

// Save current preference values to disk. Values in the file that are not
// part of this Disk instance are preserved.
func (dsk *Disk) Save() error {
	existing, err := dsk.read()
	if err != nil {
		return err
	}

	for k, p := range dsk.entries {
		existing[k] = p.String()
	}

	keys := make([]string, 0, len(existing))
	for k := range existing {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f, err := os.Create(dsk.path)
	if err != nil {
		return fmt.Errorf("prefs: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, WarningBoilerPlate)
	for _, k := range keys {
		fmt.Fprintf(w, "%s%s%s\n", k, keySep, existing[k])
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("prefs: %w", err)
	}

	return nil
}

// Load preference values from disk. A missing file is not an error. Values
// on the top of the command line stack take priority over values in the file.
func (dsk *Disk) Load() error {
	existing, err := dsk.read()
	if err != nil {
		return err
	}

	for k, p := range dsk.entries {
		if v, ok := existing[k]; ok {
			if err := p.Set(v); err != nil {
				return fmt.Errorf("prefs: %s: %w", k, err)
			}
		}
		if ok, v := GetCommandLinePref(k); ok {
			if err := p.Set(v); err != nil {
				return fmt.Errorf("prefs: %s: %w", k, err)
			}
		}
	}

	return nil
}

// read the key/value pairs of the preferences file.
func (dsk *Disk) read() (map[string]string, error) {
	values := make(map[string]string)

	f, err := os.Open(dsk.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("prefs: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)

	// the first line is the warning boiler plate
	if scanner.Scan() && scanner.Text() != WarningBoilerPlate {
		return nil, fmt.Errorf("prefs: %s is not a preferences file", dsk.path)
	}

	for scanner.Scan() {
		k, v, ok := strings.Cut(scanner.Text(), keySep)
		if !ok {
			continue
		}
		values[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("prefs: %w", err)
	}

	return values, nil
}
