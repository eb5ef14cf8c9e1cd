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
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/curioustorvald/tsvm/environment"
	"github.com/curioustorvald/tsvm/hardware/preferences"
	"github.com/curioustorvald/tsvm/hardware/signals"
)

// Sentinel errors returned by the registry.
var (
	ErrUnknownDevice = errors.New("unknown device")
	ErrRegistered    = errors.New("device already registered")
)

// Context is the information given to a Factory when constructing a device.
type Context struct {
	Env *environment.Environment

	// the slot the device will be attached to
	Slot int

	// the directory used by file-backed devices
	StorageRoot string

	// viewport dimensions for display devices
	Width  int
	Height int

	// device specific arguments from the peripheral entry
	Args map[string]string

	// the host's signal board. devices publish their condition flags here
	Signals *signals.Board
}

// Prefs returns the preferences of the host environment. Default preferences
// are returned if the context has no environment.
func (ctx Context) Prefs() *preferences.Preferences {
	if ctx.Env != nil && ctx.Env.Prefs != nil {
		return ctx.Env.Prefs
	}
	p, _ := preferences.NewPreferences("")
	return p
}

// Arg returns the named argument or the default value if the argument is not
// present.
func (ctx Context) Arg(key string, def string) string {
	if v, ok := ctx.Args[key]; ok {
		return v
	}
	return def
}

// IntArg returns the named argument as an integer or the default value if the
// argument is not present.
func (ctx Context) IntArg(key string, def int) (int, error) {
	v, ok := ctx.Args[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("argument %s: %w", key, err)
	}
	return int(n), nil
}

// BoolArg returns the named argument as a boolean or the default value if the
// argument is not present.
func (ctx Context) BoolArg(key string, def bool) bool {
	v, ok := ctx.Args[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Flag publishes a signal named for the slot. For example, a flag named
// "synced" for slot 1 is published as "slot1.synced". Returns nil if there is
// no signal board.
func (ctx Context) Flag(name string) *signals.Flag {
	if ctx.Signals == nil {
		return nil
	}
	return ctx.Signals.Publish(FlagName(ctx.Slot, name))
}

// FlagName returns the name of the signal published for a slot.
func FlagName(slot int, name string) string {
	return fmt.Sprintf("slot%d.%s", slot, name)
}

// Factory constructs a device.
type Factory func(ctx Context) (Device, error)

// Registry maps device identities to factories.
type Registry struct {
	crit      sync.RWMutex
	factories map[ID]Factory
}

// NewRegistry is the preferred method of initialisation for the Registry type.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[ID]Factory),
	}
}

// Register a factory for the device identity.
func (r *Registry) Register(id ID, f Factory) error {
	r.crit.Lock()
	defer r.crit.Unlock()

	if _, ok := r.factories[id]; ok {
		return fmt.Errorf("peripherals: %s: %w", id, ErrRegistered)
	}
	r.factories[id] = f

	return nil
}

// Lookup returns the factory for the device identity.
func (r *Registry) Lookup(id ID) (Factory, error) {
	r.crit.RLock()
	defer r.crit.RUnlock()

	f, ok := r.factories[id]
	if !ok {
		return nil, fmt.Errorf("peripherals: %s: %w", id, ErrUnknownDevice)
	}

	return f, nil
}

// IDs returns the sorted list of registered device identities.
func (r *Registry) IDs() []ID {
	r.crit.RLock()
	defer r.crit.RUnlock()

	ids := make([]ID, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})

	return ids
}
