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

package preferences

import (
	"strings"
	"sync"

	"github.com/curioustorvald/tsvm/prefs"
)

// Default values for the machine preferences. The memory size and slot count
// match the default machine profile.
const (
	DefaultMemorySize       = 8388608
	DefaultSlots            = 8
	DefaultTransferDeadline = 600
	DefaultDisplayDeadline  = 120
	DefaultSyncDeadline     = 1200
	DefaultRoms             = "bios"
)

// separator of identifiers in the roms preference
const romSep = ","

// Preferences defines and collates all the preference values used by a
// machine host.
type Preferences struct {
	dsk *prefs.Disk

	// size of user memory in bytes
	MemorySize prefs.Int

	// number of peripheral slots on the bus
	Slots prefs.Int

	// number of steps a block transfer may stay pending before the transfer
	// watchdog aborts it
	TransferDeadline prefs.Int

	// number of steps a display may take to commit or sync a frame
	DisplayDeadline prefs.Int

	// number of steps a disk may hold unsynced data
	SyncDeadline prefs.Int

	// whether the host is allowed to add entries to the log
	Logging prefs.Bool

	// the ROM identifiers loaded at boot, in window order
	Roms *prefs.Generic

	// directory of the file backed peripherals. empty means the default
	// storage root
	StorageRoot prefs.String

	romsCrit sync.Mutex
	roms     []string
}

func (p *Preferences) String() string {
	if p.dsk == nil {
		return ""
	}
	return p.dsk.String()
}

// NewPreferences is the preferred method of initialisation for the Preferences
// type. If path is empty then the preferences are not backed by a file and
// the default values are used.
func NewPreferences(path string) (*Preferences, error) {
	p := &Preferences{}
	p.Roms = prefs.NewGeneric(p.setRoms, p.getRoms)
	p.SetDefaults()

	if path == "" {
		return p, nil
	}

	var err error
	p.dsk, err = prefs.NewDisk(path)
	if err != nil {
		return nil, err
	}

	err = p.dsk.Add("hardware.memsize", &p.MemorySize)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("hardware.slots", &p.Slots)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("hardware.watchdog.transfer", &p.TransferDeadline)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("hardware.watchdog.display", &p.DisplayDeadline)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("hardware.watchdog.sync", &p.SyncDeadline)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("hardware.logging", &p.Logging)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("hardware.roms", p.Roms)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Add("hardware.storage", &p.StorageRoot)
	if err != nil {
		return nil, err
	}
	err = p.dsk.Load()
	if err != nil {
		return nil, err
	}

	return p, nil
}

// SetDefaults reverts all settings to default values.
func (p *Preferences) SetDefaults() {
	_ = p.MemorySize.Set(DefaultMemorySize)
	_ = p.Slots.Set(DefaultSlots)
	_ = p.TransferDeadline.Set(DefaultTransferDeadline)
	_ = p.DisplayDeadline.Set(DefaultDisplayDeadline)
	_ = p.SyncDeadline.Set(DefaultSyncDeadline)
	_ = p.Logging.Set(true)
	_ = p.Roms.Set(DefaultRoms)
	_ = p.StorageRoot.Set("")
}

func (p *Preferences) setRoms(s string) error {
	var roms []string
	for _, id := range strings.Split(s, romSep) {
		if id = strings.TrimSpace(id); id != "" {
			roms = append(roms, id)
		}
	}

	p.romsCrit.Lock()
	defer p.romsCrit.Unlock()
	p.roms = roms
	return nil
}

func (p *Preferences) getRoms() string {
	p.romsCrit.Lock()
	defer p.romsCrit.Unlock()
	return strings.Join(p.roms, romSep)
}

// RomList returns the ROM identifiers of the roms preference.
func (p *Preferences) RomList() []string {
	p.romsCrit.Lock()
	defer p.romsCrit.Unlock()
	return append([]string(nil), p.roms...)
}

// Load current hardware preferences from disk.
func (p *Preferences) Load() error {
	if p.dsk == nil {
		return nil
	}
	return p.dsk.Load()
}

// Save current hardware preferences to disk.
func (p *Preferences) Save() error {
	if p.dsk == nil {
		return nil
	}
	return p.dsk.Save()
}
