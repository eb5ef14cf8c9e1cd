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

// Package rambank implements banked extension memory.
//
// The memory window of the device has two registers followed by two pages.
// Each register selects the bank that is visible through the corresponding
// page:
//
//	0x00        map0: the bank seen through page 0
//	0x01        map1: the bank seen through page 1
//	0x10        page 0
//	0x10+size   page 1
//
// Block transfers address the entire banked store, regardless of the banks
// currently mapped.
package rambank

import (
	"errors"
	"fmt"
	"sync"

	"github.com/curioustorvald/tsvm/hardware/peripherals"
)

// ID is the identity tag of the RAM bank.
const ID = peripherals.ID("rambank")

// DefaultBankSize is the size of a bank in bytes if none is given.
const DefaultBankSize = 524288

// Limits on the number of banks.
const (
	MinBanks     = 2
	MaxBanks     = 256
	DefaultBanks = 2
)

// PageBase is the offset of the first page in the memory window.
const PageBase = 0x10

// BlockSize is the granularity of block offsets.
const BlockSize = 4096

// ErrAddress is returned for addresses outside of the memory window or the
// banked store.
var ErrAddress = errors.New("address outside of ram bank")

// Bank is the banked memory device.
type Bank struct {
	crit sync.Mutex

	bankSize int
	banks    int
	mem      []uint8

	map0 int
	map1 int
}

// NewBank is the preferred method of initialisation for the Bank type.
//
// The number of banks is clamped to the range MinBanks to MaxBanks and is
// rounded up to an even number.
func NewBank(ctx peripherals.Context) (*Bank, error) {
	size, err := ctx.IntArg("banksize", DefaultBankSize)
	if err != nil {
		return nil, fmt.Errorf("rambank: %w", err)
	}
	if size <= 0 || PageBase+2*size > peripherals.MMIOWindowSize {
		return nil, fmt.Errorf("rambank: unsupported bank size: %d", size)
	}

	banks, err := ctx.IntArg("banks", DefaultBanks)
	if err != nil {
		return nil, fmt.Errorf("rambank: %w", err)
	}
	banks = min(max(banks, MinBanks), MaxBanks)
	if banks%2 == 1 {
		banks++
	}

	return &Bank{
		bankSize: size,
		banks:    banks,
		mem:      make([]uint8, size*banks),
		map0:     0,
		map1:     1,
	}, nil
}

// Factory creates a RAM bank for a peripheral entry.
func Factory(ctx peripherals.Context) (peripherals.Device, error) {
	return NewBank(ctx)
}

func (b *Bank) String() string {
	return fmt.Sprintf("rambank: %d x %d bytes", b.banks, b.bankSize)
}

// Banks returns the number of banks.
func (b *Bank) Banks() int {
	return b.banks
}

// BankSize returns the size of each bank.
func (b *Bank) BankSize() int {
	return b.bankSize
}

// Mapped returns the banks currently visible through the two pages.
func (b *Bank) Mapped() (int, int) {
	b.crit.Lock()
	defer b.crit.Unlock()
	return b.map0, b.map1
}

// ID implements the peripherals.Device interface.
func (b *Bank) ID() peripherals.ID {
	return ID
}

// AttachNotify implements the peripherals.Device interface.
func (b *Bank) AttachNotify(_ int) {
}

// DetachNotify implements the peripherals.Device interface.
func (b *Bank) DetachNotify() {
}

// Status implements the peripherals.Device interface.
func (b *Bank) Status() peripherals.Status {
	return peripherals.Idle
}

// WindowSize implements the peripherals.MemoryMapped interface.
func (b *Bank) WindowSize() int {
	return PageBase + 2*b.bankSize
}

// must be called with the critical section held
func (b *Bank) resolve(addr int) (int, error) {
	switch {
	case addr >= PageBase && addr < PageBase+b.bankSize:
		return b.map0*b.bankSize + addr - PageBase, nil
	case addr >= PageBase+b.bankSize && addr < PageBase+2*b.bankSize:
		return b.map1*b.bankSize + addr - PageBase - b.bankSize, nil
	}
	return 0, fmt.Errorf("rambank: %w: %d", ErrAddress, addr)
}

// Peek implements the peripherals.MemoryMapped interface.
func (b *Bank) Peek(addr int) (uint8, error) {
	b.crit.Lock()
	defer b.crit.Unlock()

	switch addr {
	case 0:
		return uint8(b.map0), nil
	case 1:
		return uint8(b.map1), nil
	}
	if addr > 1 && addr < PageBase {
		return 0, nil
	}

	idx, err := b.resolve(addr)
	if err != nil {
		return 0, err
	}
	return b.mem[idx], nil
}

// Poke implements the peripherals.MemoryMapped interface. Selecting a bank
// that does not exist wraps around to a bank that does.
func (b *Bank) Poke(addr int, v uint8) error {
	b.crit.Lock()
	defer b.crit.Unlock()

	switch addr {
	case 0:
		b.map0 = int(v) % b.banks
		return nil
	case 1:
		b.map1 = int(v) % b.banks
		return nil
	}
	if addr > 1 && addr < PageBase {
		return nil
	}

	idx, err := b.resolve(addr)
	if err != nil {
		return err
	}
	b.mem[idx] = v
	return nil
}

// ReadBlock implements the peripherals.Device interface.
func (b *Bank) ReadBlock(offset int64, length int) ([]byte, error) {
	b.crit.Lock()
	defer b.crit.Unlock()

	start, ok := peripherals.BlockStart(offset, length, BlockSize, len(b.mem))
	if !ok {
		return nil, fmt.Errorf("rambank: %w: block %d length %d", ErrAddress, offset, length)
	}

	data := make([]byte, length)
	copy(data, b.mem[start:])
	return data, nil
}

// WriteBlock implements the peripherals.Device interface.
func (b *Bank) WriteBlock(offset int64, data []byte) error {
	b.crit.Lock()
	defer b.crit.Unlock()

	start, ok := peripherals.BlockStart(offset, len(data), BlockSize, len(b.mem))
	if !ok {
		return fmt.Errorf("rambank: %w: block %d length %d", ErrAddress, offset, len(data))
	}

	copy(b.mem[start:], data)
	return nil
}
