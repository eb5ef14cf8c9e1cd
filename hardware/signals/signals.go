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

// Package signals implements the named condition sources published by the
// peripheral bus and by peripherals. Watchdogs observe these flags.
//
// A flag is identified by a name. By convention the name is prefixed by the
// owner of the flag: "port0.idle" is published by the bus for port zero and
// "slot1.committed" is published by the peripheral attached to slot one.
package signals

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Flag is a single boolean condition. The zero value is a false flag.
type Flag struct {
	name  string
	value atomic.Bool
}

// Name returns the name of the flag.
func (f *Flag) Name() string {
	return f.name
}

// Set the value of the flag.
func (f *Flag) Set(v bool) {
	f.value.Store(v)
}

// Get the value of the flag.
func (f *Flag) Get() bool {
	return f.value.Load()
}

// Satisfied implements the watchdog.Condition interface.
func (f *Flag) Satisfied() bool {
	return f.value.Load()
}

// Board is the collection of flags belonging to a single machine host.
type Board struct {
	crit  sync.RWMutex
	flags map[string]*Flag
}

// NewBoard is the preferred method of initialisation for the Board type.
func NewBoard() *Board {
	return &Board{
		flags: make(map[string]*Flag),
	}
}

// Publish returns the flag with the name, creating it if necessary. A newly
// created flag is false.
//
// The flag returned for a name is always the same instance, so a watchdog
// bound to a flag before the publisher exists will see the publisher's
// changes.
func (b *Board) Publish(name string) *Flag {
	b.crit.Lock()
	defer b.crit.Unlock()

	if f, ok := b.flags[name]; ok {
		return f
	}

	f := &Flag{name: name}
	b.flags[name] = f
	return f
}

// Lookup returns the flag with the name. Returns false if no flag with that
// name has been published.
func (b *Board) Lookup(name string) (*Flag, bool) {
	b.crit.RLock()
	defer b.crit.RUnlock()
	f, ok := b.flags[name]
	return f, ok
}

// Snapshot returns the current value of every flag.
func (b *Board) Snapshot() map[string]bool {
	b.crit.RLock()
	defer b.crit.RUnlock()

	s := make(map[string]bool, len(b.flags))
	for n, f := range b.flags {
		s[n] = f.Get()
	}
	return s
}

// Names returns the sorted list of published flag names.
func (b *Board) Names() []string {
	b.crit.RLock()
	defer b.crit.RUnlock()

	n := make([]string, 0, len(b.flags))
	for k := range b.flags {
		n = append(n, k)
	}
	sort.Strings(n)
	return n
}
