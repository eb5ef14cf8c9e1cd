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

package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/curioustorvald/tsvm/hardware/memory/rom"
)

// Limits of the address space size.
const (
	MinSize = 4096
	MaxSize = 8388608
)

// Window describes a ROM window in the address space.
type Window struct {
	Name string
	Base int
	Size int
}

// End returns the first address after the window.
func (w Window) End() int {
	return w.Base + w.Size
}

func (w Window) String() string {
	return fmt.Sprintf("%s [%#06x, %#06x)", w.Name, w.Base, w.End())
}

type window struct {
	Window
	data []byte
}

// AddressSpace is the memory of a machine host.
type AddressSpace struct {
	data []byte

	// windows are sorted by base address and never overlap. the critical
	// section protects the list of windows, which can be queried from outside
	// the goroutine driving the host
	crit    sync.RWMutex
	windows []window

	sealed bool
}

// NewAddressSpace is the preferred method of initialisation for the
// AddressSpace type.
func NewAddressSpace(size int) (*AddressSpace, error) {
	if size < MinSize || size > MaxSize {
		return nil, fmt.Errorf("memory: %w: %d", ErrSize, size)
	}
	return &AddressSpace{
		data: make([]byte, size),
	}, nil
}

// Size of the address space in bytes.
func (as *AddressSpace) Size() int {
	return len(as.data)
}

func (as *AddressSpace) checkRange(addr int, n int) error {
	if addr < 0 || n < 0 || addr > len(as.data) || n > len(as.data)-addr {
		return fmt.Errorf("memory: %w: %#x length %d", ErrOutOfRange, addr, n)
	}
	return nil
}

// Read n bytes from address. ROM windows are overlaid on the buffer.
func (as *AddressSpace) Read(addr int, n int) ([]byte, error) {
	if err := as.checkRange(addr, n); err != nil {
		return nil, err
	}

	b := make([]byte, n)
	copy(b, as.data[addr:addr+n])

	as.crit.RLock()
	defer as.crit.RUnlock()

	end := addr + n
	for _, w := range as.windows {
		if w.Base >= end {
			break
		}
		if w.End() <= addr {
			continue
		}
		lo := max(addr, w.Base)
		hi := min(end, w.End())
		copy(b[lo-addr:hi-addr], w.data[lo-w.Base:hi-w.Base])
	}

	return b, nil
}

// Write bytes to address. Bytes that fall inside a ROM window are dropped.
func (as *AddressSpace) Write(addr int, b []byte) error {
	if err := as.checkRange(addr, len(b)); err != nil {
		return err
	}

	as.crit.RLock()
	defer as.crit.RUnlock()

	end := addr + len(b)
	a := addr
	for _, w := range as.windows {
		if w.End() <= a {
			continue
		}
		if w.Base >= end {
			break
		}

		// the mutable run before the window
		if w.Base > a {
			copy(as.data[a:w.Base], b[a-addr:w.Base-addr])
		}

		// skip the window
		a = w.End()
		if a >= end {
			return nil
		}
	}

	copy(as.data[a:end], b[a-addr:])

	return nil
}

// Peek returns the byte at address.
func (as *AddressSpace) Peek(addr int) (uint8, error) {
	b, err := as.Read(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Poke writes a byte to address. Writing to a ROM window is not an error.
func (as *AddressSpace) Poke(addr int, v uint8) error {
	return as.Write(addr, []byte{v})
}

// InRom returns true if the address is inside a ROM window.
func (as *AddressSpace) InRom(addr int) bool {
	as.crit.RLock()
	defer as.crit.RUnlock()
	for _, w := range as.windows {
		if addr >= w.Base && addr < w.End() {
			return true
		}
	}
	return false
}

// MapRoms composes the images of the set into ROM windows, replacing any
// existing windows. If the composition fails then no windows are mapped.
func (as *AddressSpace) MapRoms(set rom.Set) error {
	if as.sealed {
		return fmt.Errorf("memory: %w", ErrSealed)
	}

	placements, err := set.Placements()
	if err != nil {
		return fmt.Errorf("memory: %w: %w", ErrRomConflict, err)
	}

	windows := make([]window, 0, len(placements))
	for _, p := range placements {
		if p.End() > len(as.data) {
			return as.failMapping(fmt.Errorf("memory: %w: %s exceeds address space size (%#x)",
				ErrRomConflict, p.Image, len(as.data)))
		}
		w := window{
			Window: Window{
				Name: p.Image.Name(),
				Base: p.Base,
				Size: p.Image.Len(),
			},
			data: p.Image.Bytes(),
		}
		windows = append(windows, w)
	}

	sort.SliceStable(windows, func(i, j int) bool {
		return windows[i].Base < windows[j].Base
	})

	for i := 1; i < len(windows); i++ {
		if windows[i].Base < windows[i-1].End() {
			return as.failMapping(fmt.Errorf("memory: %w: %s overlaps %s",
				ErrRomConflict, windows[i].Window, windows[i-1].Window))
		}
	}

	as.crit.Lock()
	as.windows = windows
	as.crit.Unlock()

	return nil
}

func (as *AddressSpace) failMapping(err error) error {
	as.crit.Lock()
	as.windows = nil
	as.crit.Unlock()
	return err
}

// Windows returns the list of ROM windows in address order.
func (as *AddressSpace) Windows() []Window {
	as.crit.RLock()
	defer as.crit.RUnlock()

	w := make([]Window, 0, len(as.windows))
	for _, m := range as.windows {
		w = append(w, m.Window)
	}
	return w
}

// Clear zeroes the buffer and removes all ROM windows.
func (as *AddressSpace) Clear() error {
	if as.sealed {
		return fmt.Errorf("memory: %w", ErrSealed)
	}

	clear(as.data)

	as.crit.Lock()
	as.windows = nil
	as.crit.Unlock()

	return nil
}

// Seal the address space. The ROM composition cannot be changed while the
// address space is sealed.
func (as *AddressSpace) Seal() {
	as.sealed = true
}

// Unseal the address space.
func (as *AddressSpace) Unseal() {
	as.sealed = false
}

// Sealed returns true if the address space is sealed.
func (as *AddressSpace) Sealed() bool {
	return as.sealed
}
