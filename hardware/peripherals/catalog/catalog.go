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

// Package catalog lists the built-in peripherals.
package catalog

import (
	"github.com/curioustorvald/tsvm/hardware/peripherals"
	"github.com/curioustorvald/tsvm/hardware/peripherals/audio"
	"github.com/curioustorvald/tsvm/hardware/peripherals/disk"
	"github.com/curioustorvald/tsvm/hardware/peripherals/display"
	"github.com/curioustorvald/tsvm/hardware/peripherals/media"
	"github.com/curioustorvald/tsvm/hardware/peripherals/modem"
	"github.com/curioustorvald/tsvm/hardware/peripherals/rambank"
)

// Builtin is the list of built-in peripherals.
var Builtin = map[peripherals.ID]peripherals.Factory{
	disk.ID:    disk.Factory,
	modem.ID:   modem.Factory,
	audio.ID:   audio.Factory,
	media.ID:   media.Factory,
	display.ID: display.Factory,
	rambank.ID: rambank.Factory,
}

// NewRegistry returns a registry with every built-in peripheral registered.
func NewRegistry() *peripherals.Registry {
	r := peripherals.NewRegistry()
	for id, f := range Builtin {
		// the registry is new so there can be no duplicates
		_ = r.Register(id, f)
	}
	return r
}

// DefaultEntries is the peripheral wiring of the default machine profile.
func DefaultEntries() []peripherals.Entry {
	return []peripherals.Entry{
		{Slot: 1, ID: disk.ID},
		{Slot: 2, ID: modem.ID},
		{Slot: 4, ID: rambank.ID},
	}
}
