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

package display

import (
	"errors"
	"fmt"
	"sync"

	"github.com/curioustorvald/tsvm/environment"
	"github.com/curioustorvald/tsvm/hardware/peripherals"
	"github.com/curioustorvald/tsvm/hardware/signals"
	"github.com/curioustorvald/tsvm/hardware/watchdog"
	"github.com/curioustorvald/tsvm/logger"
)

// ID is the identity tag of the display adapter.
const ID = peripherals.ID("display")

// Default framebuffer dimensions.
const (
	DefaultWidth  = 560
	DefaultHeight = 448
)

// BlockSize is the granularity of block offsets.
const BlockSize = 4096

// Names of the watchdogs supervising the display.
const (
	CommitWatchdog = "display-commit"
	SyncWatchdog   = "display-sync"
)

// Values written to the control register.
const (
	ControlBegin  = 1
	ControlCommit = 2
)

// Bits of the status register.
const (
	StatusCommitted = 0x01
	StatusSynced    = 0x02
)

// the registers occupy this many bytes after the framebuffer
const registerSpace = 16

// ErrAddress is returned for addresses outside of the memory window.
var ErrAddress = errors.New("address outside of display window")

// Adapter is the display adapter.
type Adapter struct {
	env *environment.Environment

	crit sync.Mutex

	width  int
	height int

	// the program draws into the back buffer. a commit copies it to the
	// front buffer
	back  []uint8
	front []uint8

	committed *signals.Flag
	synced    *signals.Flag
	deadline  int

	commits int
	syncs   int
	forced  int
}

// NewAdapter is the preferred method of initialisation for the Adapter type.
func NewAdapter(ctx peripherals.Context) (*Adapter, error) {
	w := ctx.Width
	if w == 0 {
		w = DefaultWidth
	}
	h := ctx.Height
	if h == 0 {
		h = DefaultHeight
	}
	if w < 0 || h < 0 || w*h+registerSpace > peripherals.MMIOWindowSize {
		return nil, fmt.Errorf("display: unsupported dimensions %dx%d", w, h)
	}

	d := &Adapter{
		env:       ctx.Env,
		width:     w,
		height:    h,
		back:      make([]uint8, w*h),
		front:     make([]uint8, w*h),
		committed: ctx.Flag("committed"),
		synced:    ctx.Flag("synced"),
		deadline:  ctx.Prefs().DisplayDeadline.Get().(int),
	}

	if d.committed == nil {
		d.committed = &signals.Flag{}
	}
	if d.synced == nil {
		d.synced = &signals.Flag{}
	}

	d.committed.Set(true)
	d.synced.Set(true)

	return d, nil
}

// Factory creates a display adapter for a peripheral entry.
func Factory(ctx peripherals.Context) (peripherals.Device, error) {
	return NewAdapter(ctx)
}

func (d *Adapter) String() string {
	return fmt.Sprintf("display: %dx%d", d.width, d.height)
}

// Dimensions returns the width and height of the framebuffer.
func (d *Adapter) Dimensions() (int, int) {
	return d.width, d.height
}

// ControlRegister returns the address of the control register, relative to
// the start of the memory window.
func (d *Adapter) ControlRegister() int {
	return d.width * d.height
}

// StatusRegister returns the address of the status register, relative to the
// start of the memory window.
func (d *Adapter) StatusRegister() int {
	return d.width*d.height + 1
}

// ID implements the peripherals.Device interface.
func (d *Adapter) ID() peripherals.ID {
	return ID
}

// AttachNotify implements the peripherals.Device interface.
func (d *Adapter) AttachNotify(_ int) {
}

// DetachNotify implements the peripherals.Device interface.
func (d *Adapter) DetachNotify() {
}

// Status implements the peripherals.Device interface.
func (d *Adapter) Status() peripherals.Status {
	return peripherals.Idle
}

// WindowSize implements the peripherals.MemoryMapped interface.
func (d *Adapter) WindowSize() int {
	return d.width*d.height + registerSpace
}

// Peek implements the peripherals.MemoryMapped interface.
func (d *Adapter) Peek(addr int) (uint8, error) {
	d.crit.Lock()
	defer d.crit.Unlock()

	switch {
	case addr >= 0 && addr < len(d.back):
		return d.back[addr], nil
	case addr == d.ControlRegister():
		return 0, nil
	case addr == d.StatusRegister():
		var v uint8
		if d.committed.Get() {
			v |= StatusCommitted
		}
		if d.synced.Get() {
			v |= StatusSynced
		}
		return v, nil
	case addr > d.StatusRegister() && addr < d.WindowSize():
		return 0, nil
	}

	return 0, fmt.Errorf("display: %w: %d", ErrAddress, addr)
}

// Poke implements the peripherals.MemoryMapped interface.
func (d *Adapter) Poke(addr int, v uint8) error {
	d.crit.Lock()
	defer d.crit.Unlock()

	switch {
	case addr >= 0 && addr < len(d.back):
		d.back[addr] = v
		return nil
	case addr == d.ControlRegister():
		switch v {
		case ControlBegin:
			d.committed.Set(false)
		case ControlCommit:
			d.commit()
		}
		return nil
	case addr > d.ControlRegister() && addr < d.WindowSize():
		return nil
	}

	return fmt.Errorf("display: %w: %d", ErrAddress, addr)
}

// must be called with the critical section held
func (d *Adapter) commit() {
	copy(d.front, d.back)
	d.commits++
	d.committed.Set(true)
	d.synced.Set(false)
}

// Begin an update. The committed flag is cleared until Commit() is called.
func (d *Adapter) Begin() {
	d.crit.Lock()
	defer d.crit.Unlock()
	d.committed.Set(false)
}

// Commit the back buffer.
func (d *Adapter) Commit() {
	d.crit.Lock()
	defer d.crit.Unlock()
	d.commit()
}

// Sync is called by the presentation layer to collect the most recently
// committed frame.
func (d *Adapter) Sync() []uint8 {
	d.crit.Lock()
	defer d.crit.Unlock()

	frame := make([]uint8, len(d.front))
	copy(frame, d.front)
	d.syncs++
	d.synced.Set(true)

	return frame
}

// ForceResync is the fault action of the display watchdogs. The back buffer
// is committed and the frame is marked as collected.
func (d *Adapter) ForceResync(trip watchdog.Trip) error {
	d.crit.Lock()
	defer d.crit.Unlock()

	d.commit()
	d.synced.Set(true)
	d.forced++

	logger.Logf(d.env, d.env.Tag("display"), "%s: forced resync", trip.Name)

	return nil
}

// Counts returns the number of commits, syncs and forced resyncs.
func (d *Adapter) Counts() (commits int, syncs int, forced int) {
	d.crit.Lock()
	defer d.crit.Unlock()
	return d.commits, d.syncs, d.forced
}

// Watchdogs implements the peripherals.Supervised interface.
func (d *Adapter) Watchdogs() []watchdog.Spec {
	return []watchdog.Spec{
		{
			Name:     CommitWatchdog,
			Source:   d.committed.Name(),
			Deadline: d.deadline,
			Action:   d.ForceResync,
		},
		{
			Name:     SyncWatchdog,
			Source:   d.synced.Name(),
			Deadline: d.deadline,
			Action:   d.ForceResync,
		},
	}
}

// ReadBlock implements the peripherals.Device interface. Blocks are read from
// the committed frame.
func (d *Adapter) ReadBlock(offset int64, length int) ([]byte, error) {
	d.crit.Lock()
	defer d.crit.Unlock()

	start, ok := peripherals.BlockStart(offset, length, BlockSize, len(d.front))
	if !ok {
		return nil, fmt.Errorf("display: %w: block %d length %d", ErrAddress, offset, length)
	}

	data := make([]byte, length)
	copy(data, d.front[start:])

	return data, nil
}

// WriteBlock implements the peripherals.Device interface. The block is
// copied into the back buffer. The block "COMMIT" commits the back buffer.
func (d *Adapter) WriteBlock(offset int64, data []byte) error {
	d.crit.Lock()
	defer d.crit.Unlock()

	if string(data) == "COMMIT" {
		d.commit()
		return nil
	}

	start, ok := peripherals.BlockStart(offset, len(data), BlockSize, len(d.back))
	if !ok {
		return fmt.Errorf("display: %w: block %d length %d", ErrAddress, offset, len(data))
	}

	copy(d.back[start:], data)

	return nil
}
