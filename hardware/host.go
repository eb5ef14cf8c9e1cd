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
package hardware

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/curioustorvald/tsvm/environment"
	"github.com/curioustorvald/tsvm/hardware/bus"
	"github.com/curioustorvald/tsvm/hardware/clocks"
	"github.com/curioustorvald/tsvm/hardware/memory"
	"github.com/curioustorvald/tsvm/hardware/memory/rom"
	"github.com/curioustorvald/tsvm/hardware/peripherals"
	"github.com/curioustorvald/tsvm/hardware/signals"
	"github.com/curioustorvald/tsvm/hardware/watchdog"
	"github.com/curioustorvald/tsvm/logger"
	"github.com/curioustorvald/tsvm/notifications"
	"github.com/rs/xid"
)

// lifecycle of the host
type lifecycle int

const (
	created lifecycle = iota
	booting
	booted
	destroyed
)

func (l lifecycle) String() string {
	switch l {
	case created:
		return "created"
	case booting:
		return "booting"
	case booted:
		return "booted"
	case destroyed:
		return "destroyed"
	}
	return "unknown"
}

// MappedWindow is a memory window of a memory mapped peripheral.
type MappedWindow struct {
	Slot   int
	Device peripherals.ID
	Base   int
	Size   int
}

// End returns the first address after the window.
func (w MappedWindow) End() int {
	return w.Base + w.Size
}

func (w MappedWindow) String() string {
	return fmt.Sprintf("slot %d %s [%#08x, %#08x)", w.Slot, w.Device, w.Base, w.End())
}

type mapping struct {
	MappedWindow
	dev peripherals.MemoryMapped
}

// Host is the machine host. It owns the memory, the ROM set, the peripheral
// bus, the watchdog registry and the signal board.
type Host struct {
	env *environment.Environment
	id  string

	mem       *memory.AddressSpace
	roms      rom.Set
	bus       *bus.Bus
	watchdogs *watchdog.Registry
	signals   *signals.Board

	// the clock is advanced by the host if it is the host's own counter
	clock   clocks.Source
	counter *clocks.Counter

	// tick value of the clock at the end of the most recent boot
	bootTick int64

	interp Interpreter

	// the lifecycle can be queried from outside the driving goroutine
	crit  sync.Mutex
	state lifecycle

	// whether the default transfer watchdogs have been registered
	transferDogs bool

	// memory windows of peripherals, sorted by base address
	windows []mapping
}

// NewHost is the preferred method of initialisation for the Host type.
//
// The memory size and number of slots are taken from the preferences of the
// environment. If clock is nil then the host uses its own tick counter, which
// is advanced once every Step().
func NewHost(env *environment.Environment, roms rom.Set, clock clocks.Source) (*Host, error) {
	if env == nil {
		var err error
		env, err = environment.NewEnvironment(environment.MainEmulation, nil)
		if err != nil {
			return nil, fmt.Errorf("hardware: %w", err)
		}
	}

	h := &Host{
		env:     env,
		id:      xid.New().String(),
		roms:    roms,
		signals: signals.NewBoard(),
	}

	if clock == nil {
		h.counter = &clocks.Counter{}
		h.clock = h.counter
	} else {
		h.clock = clock
		if c, ok := clock.(*clocks.Counter); ok {
			h.counter = c
		}
	}

	var err error

	h.mem, err = memory.NewAddressSpace(env.Prefs.MemorySize.Get().(int))
	if err != nil {
		return nil, fmt.Errorf("hardware: %w", err)
	}

	h.bus, err = bus.NewBus(env, env.Prefs.Slots.Get().(int), h.signals)
	if err != nil {
		return nil, fmt.Errorf("hardware: %w", err)
	}

	h.watchdogs = watchdog.NewRegistry(env, h.signals, h.clock)

	logger.Logf(env, env.Tag("host"), "created host %s (%d bytes, %d slots)", h.id, h.mem.Size(), h.bus.Slots())

	return h, nil
}

func (h *Host) String() string {
	return fmt.Sprintf("%s [%s]", h.id, h.lifecycle())
}

func (h *Host) lifecycle() lifecycle {
	h.crit.Lock()
	defer h.crit.Unlock()
	return h.state
}

func (h *Host) setLifecycle(l lifecycle) {
	h.crit.Lock()
	defer h.crit.Unlock()
	h.state = l
}

// ID returns the unique identifier of the host.
func (h *Host) ID() string {
	return h.id
}

// Env returns the environment of the host.
func (h *Host) Env() *environment.Environment {
	return h.env
}

// Bus returns the peripheral bus of the host.
func (h *Host) Bus() *bus.Bus {
	return h.bus
}

// Watchdogs returns the watchdog registry of the host.
func (h *Host) Watchdogs() *watchdog.Registry {
	return h.watchdogs
}

// Signals returns the signal board of the host.
func (h *Host) Signals() *signals.Board {
	return h.signals
}

// Memory returns the address space of the host.
func (h *Host) Memory() *memory.AddressSpace {
	return h.mem
}

// Clock returns the clock source of the host.
func (h *Host) Clock() clocks.Source {
	return h.clock
}

// Roms implements the Machine interface.
func (h *Host) Roms() rom.Set {
	return h.roms
}

// SetRoms changes the ROM set. The new set is mapped on the next boot.
func (h *Host) SetRoms(roms rom.Set) {
	h.roms = roms
}

// SetInterpreter changes the interpreter of the host. The interpreter is
// reset on the next boot.
func (h *Host) SetInterpreter(interp Interpreter) {
	h.interp = interp
}

// IsBooted returns true if the host has been booted and not destroyed.
func (h *Host) IsBooted() bool {
	return h.lifecycle() == booted
}

// IsDestroyed returns true if the host has been destroyed.
func (h *Host) IsDestroyed() bool {
	return h.lifecycle() == destroyed
}

// Boot the host. Memory is cleared and the ROM set is mapped. Attached
// devices stay attached but every port is returned to the idle state and
// every watchdog is rearmed.
//
// If the ROM set cannot be mapped then the host is left unbooted and the
// returned error wraps ErrBoot.
func (h *Host) Boot() error {
	h.crit.Lock()
	switch h.state {
	case destroyed:
		h.crit.Unlock()
		return fmt.Errorf("hardware: %w", ErrDestroyed)
	case booting:
		h.crit.Unlock()
		return fmt.Errorf("hardware: %w", ErrBooting)
	}
	h.state = booting
	h.crit.Unlock()

	err := h.boot()
	if err != nil {
		h.setLifecycle(created)
		logger.Log(h.env, h.env.Tag("host"), err)
		return err
	}

	h.setLifecycle(booted)
	logger.Logf(h.env, h.env.Tag("host"), "booted %s", h.roms)

	return nil
}

func (h *Host) boot() error {
	h.mem.Unseal()

	if err := h.mem.Clear(); err != nil {
		return fmt.Errorf("hardware: %w: %w", ErrBoot, err)
	}

	if err := h.mem.MapRoms(h.roms); err != nil {
		return fmt.Errorf("hardware: %w: %w", ErrBoot, err)
	}

	h.bus.Reset()

	if !h.transferDogs {
		if err := h.registerTransferWatchdogs(); err != nil {
			return fmt.Errorf("hardware: %w: %w", ErrBoot, err)
		}
		h.transferDogs = true
	}

	h.watchdogs.DisarmAll()
	h.watchdogs.ArmAll()

	h.bootTick = h.clock.NowTicks()

	if h.interp != nil {
		if err := h.interp.Reset(h); err != nil {
			return fmt.Errorf("hardware: %w: %w", ErrBoot, err)
		}
	}

	h.mem.Seal()

	return nil
}

// TransferWatchdog returns the name of the default transfer watchdog for the
// port.
func TransferWatchdog(port int) string {
	return fmt.Sprintf("port%d/transfer", port)
}

// every port is supervised by a watchdog that aborts a transfer that has
// been pending for longer than the transfer deadline
func (h *Host) registerTransferWatchdogs() error {
	deadline := h.env.Prefs.TransferDeadline.Get().(int)
	for i := range h.bus.Slots() {
		err := h.watchdogs.Register(watchdog.Spec{
			Name:     TransferWatchdog(i),
			Source:   bus.IdleFlag(i),
			Deadline: deadline,
			Action:   h.bus.AbortAction(i),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Reset the host. This is the same as Boot() except that the environment is
// notified with NotifyHostReset.
func (h *Host) Reset() error {
	if err := h.Boot(); err != nil {
		return err
	}
	if err := h.env.Notify(notifications.NotifyHostReset); err != nil {
		logger.Log(h.env, h.env.Tag("host"), err)
	}
	return nil
}

func (h *Host) available() error {
	switch h.lifecycle() {
	case destroyed:
		return fmt.Errorf("hardware: %w", ErrDestroyed)
	case booting:
		return fmt.Errorf("hardware: %w", ErrBooting)
	}
	return nil
}

// Attach device to port.
func (h *Host) Attach(port int, dev peripherals.Device) error {
	if err := h.available(); err != nil {
		return err
	}
	return h.bus.Attach(port, dev)
}

// Detach the device attached to port. Any memory window belonging to the
// slot is unmapped.
func (h *Host) Detach(port int) (peripherals.Device, error) {
	if err := h.available(); err != nil {
		return nil, err
	}
	dev, err := h.bus.Detach(port)
	if err != nil {
		return nil, err
	}
	h.unmap(port)
	return dev, nil
}

// MapPeripheral maps the memory window of the device attached to the entry's
// slot. The device must implement the peripherals.MemoryMapped interface.
//
// A zero Base in the entry means the default window for the slot. A zero Size
// means the window size required by the device. The window must not overlap
// user memory or the window of another slot.
func (h *Host) MapPeripheral(entry peripherals.Entry) (MappedWindow, error) {
	if err := h.available(); err != nil {
		return MappedWindow{}, err
	}

	dev, err := h.bus.Device(entry.Slot)
	if err != nil {
		return MappedWindow{}, fmt.Errorf("hardware: %w", err)
	}

	mm, ok := dev.(peripherals.MemoryMapped)
	if !ok {
		return MappedWindow{}, fmt.Errorf("hardware: slot %d: %w: %s", entry.Slot, ErrNotMapped, dev.ID())
	}

	w := MappedWindow{
		Slot:   entry.Slot,
		Device: dev.ID(),
		Base:   entry.Base,
		Size:   entry.Size,
	}
	if w.Base == 0 {
		w.Base = peripherals.DefaultWindow(entry.Slot)
	}
	if w.Size == 0 {
		w.Size = mm.WindowSize()
	}

	if w.Base < h.mem.Size() {
		return MappedWindow{}, fmt.Errorf("hardware: %w: %s overlaps user memory", ErrWindowConflict, w)
	}

	h.crit.Lock()
	defer h.crit.Unlock()

	for _, m := range h.windows {
		if m.Slot == w.Slot {
			return MappedWindow{}, fmt.Errorf("hardware: %w: slot %d is already mapped", ErrWindowConflict, w.Slot)
		}
		if w.Base < m.End() && m.Base < w.End() {
			return MappedWindow{}, fmt.Errorf("hardware: %w: %s overlaps %s", ErrWindowConflict, w, m.MappedWindow)
		}
	}

	h.windows = append(h.windows, mapping{MappedWindow: w, dev: mm})
	sort.Slice(h.windows, func(i, j int) bool {
		return h.windows[i].Base < h.windows[j].Base
	})

	logger.Logf(h.env, h.env.Tag("host"), "mapped %s", w)

	return w, nil
}

// UnmapPeripheral removes the memory window of the slot. Unmapping a slot
// that has no window does nothing.
func (h *Host) UnmapPeripheral(slot int) {
	h.unmap(slot)
}

func (h *Host) unmap(slot int) {
	h.crit.Lock()
	defer h.crit.Unlock()

	for i, m := range h.windows {
		if m.Slot == slot {
			h.windows = append(h.windows[:i], h.windows[i+1:]...)
			logger.Logf(h.env, h.env.Tag("host"), "unmapped %s", m.MappedWindow)
			return
		}
	}
}

// Mapped returns the list of memory windows in address order.
func (h *Host) Mapped() []MappedWindow {
	h.crit.Lock()
	defer h.crit.Unlock()

	w := make([]MappedWindow, 0, len(h.windows))
	for _, m := range h.windows {
		w = append(w, m.MappedWindow)
	}
	return w
}

func (h *Host) window(addr int) (mapping, bool) {
	h.crit.Lock()
	defer h.crit.Unlock()

	for _, m := range h.windows {
		if addr >= m.Base && addr < m.End() {
			return m, true
		}
	}
	return mapping{}, false
}

// Peek implements the Machine interface.
func (h *Host) Peek(addr int) (uint8, error) {
	if addr >= 0 && addr < h.mem.Size() {
		return h.mem.Peek(addr)
	}
	if m, ok := h.window(addr); ok {
		return m.dev.Peek(addr - m.Base)
	}
	return 0, fmt.Errorf("hardware: %w: %#x", ErrOutOfRange, addr)
}

// Poke implements the Machine interface. Writes to ROM are dropped.
func (h *Host) Poke(addr int, v uint8) error {
	if addr >= 0 && addr < h.mem.Size() {
		return h.mem.Poke(addr, v)
	}
	if m, ok := h.window(addr); ok {
		return m.dev.Poke(addr-m.Base, v)
	}
	return fmt.Errorf("hardware: %w: %#x", ErrOutOfRange, addr)
}

// MemorySize implements the Machine interface.
func (h *Host) MemorySize() int {
	return h.mem.Size()
}

// Slots implements the Machine interface.
func (h *Host) Slots() int {
	return h.bus.Slots()
}

// BeginRead implements the Machine interface.
func (h *Host) BeginRead(port int, offset int64, length int) ([]byte, error) {
	return h.bus.BeginRead(port, offset, length)
}

// BeginWrite implements the Machine interface.
func (h *Host) BeginWrite(port int, offset int64, data []byte) error {
	return h.bus.BeginWrite(port, offset, data)
}

// Poll implements the Machine interface.
func (h *Host) Poll(port int) (bus.TransferState, error) {
	return h.bus.Poll(port)
}

// Received implements the Machine interface.
func (h *Host) Received(port int) ([]byte, error) {
	return h.bus.Received(port)
}

// DeviceID implements the Machine interface.
func (h *Host) DeviceID(port int) (peripherals.ID, bool) {
	dev, err := h.bus.Device(port)
	if err != nil {
		return "", false
	}
	return dev.ID(), true
}

// Signal implements the Machine interface.
func (h *Host) Signal(name string) (bool, bool) {
	f, ok := h.signals.Lookup(name)
	if !ok {
		return false, false
	}
	return f.Get(), true
}

// Uptime implements the Machine interface.
func (h *Host) Uptime() int64 {
	if h.lifecycle() != booted {
		return 0
	}
	return h.clock.NowTicks() - h.bootTick
}

// Destroy the host. Every device is detached, its pending transfer aborted,
// and closed if it implements io.Closer. Every watchdog is disarmed.
//
// Destroying a destroyed host does nothing.
func (h *Host) Destroy() error {
	h.crit.Lock()
	if h.state == destroyed {
		h.crit.Unlock()
		return nil
	}
	h.state = destroyed
	h.windows = nil
	h.crit.Unlock()

	var errs []error
	for _, dev := range h.bus.DetachAll() {
		if c, ok := dev.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("hardware: %s: %w", dev.ID(), err))
			}
		}
	}

	h.watchdogs.DisarmAll()
	h.mem.Unseal()

	logger.Logf(h.env, h.env.Tag("host"), "destroyed host %s", h.id)

	return errors.Join(errs...)
}
