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

package bus

import (
	"fmt"
	"sync"

	"github.com/curioustorvald/tsvm/hardware/peripherals"
	"github.com/curioustorvald/tsvm/hardware/signals"
)

// TransferState is the state of a block port.
type TransferState int

// List of valid TransferState values.
const (
	Idle TransferState = iota
	ReadPending
	WritePending
	Error
)

func (s TransferState) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case ReadPending:
		return "READ_PENDING"
	case WritePending:
		return "WRITE_PENDING"
	case Error:
		return "ERROR"
	}
	return "unknown"
}

// Pending returns true if the state is one of the pending states.
func (s TransferState) Pending() bool {
	return s == ReadPending || s == WritePending
}

type transfer struct {
	kind   Kind
	offset int64
	length int
}

// BlockPort is a single port on the peripheral bus.
type BlockPort struct {
	crit sync.Mutex

	index int
	dev   peripherals.Device
	state TransferState

	// the transfer that is pending
	pending transfer

	// the generation is increased whenever a pending transfer is abandoned.
	// a device call that returns after its transfer has been abandoned is
	// ignored
	gen int

	// data from the most recent completed read
	rx []byte

	// the error that put the port into the error state
	lastErr error

	idle *signals.Flag
}

func newBlockPort(index int, board *signals.Board) *BlockPort {
	p := &BlockPort{
		index: index,
		idle:  board.Publish(IdleFlag(index)),
	}
	p.idle.Set(true)
	return p
}

// IdleFlag returns the name of the flag published for the port.
func IdleFlag(port int) string {
	return fmt.Sprintf("port%d.idle", port)
}

// must be called with the critical section held
func (p *BlockPort) ready() error {
	if p.dev == nil {
		return fmt.Errorf("bus: port %d: %w", p.index, ErrNoDevice)
	}
	if p.state.Pending() {
		return fmt.Errorf("bus: port %d: %w", p.index, ErrTransferInFlight)
	}
	if p.state == Error {
		return fmt.Errorf("bus: port %d: %w: %w", p.index, ErrPortFaulted, p.lastErr)
	}
	return nil
}

// must be called with the critical section held
func (p *BlockPort) begin(t transfer) (peripherals.Device, int) {
	if t.kind == Read {
		p.state = ReadPending
	} else {
		p.state = WritePending
	}
	p.pending = t
	p.idle.Set(false)
	return p.dev, p.gen
}

// must be called with the critical section held
func (p *BlockPort) settle(state TransferState, err error) {
	p.state = state
	p.lastErr = err
	p.pending = transfer{}
	p.idle.Set(true)
}

// must be called with the critical section held
func (p *BlockPort) abandon(state TransferState, err error) {
	p.gen++
	p.settle(state, err)
}

// PortInfo is a snapshot of the state of a port.
type PortInfo struct {
	Index  int
	State  TransferState
	Device peripherals.ID
	Status peripherals.Status
	Err    string
}

func (p *BlockPort) info() PortInfo {
	p.crit.Lock()
	dev := p.dev
	inf := PortInfo{
		Index: p.index,
		State: p.state,
	}
	if p.lastErr != nil {
		inf.Err = p.lastErr.Error()
	}
	p.crit.Unlock()

	if dev != nil {
		inf.Device = dev.ID()
		inf.Status = dev.Status()
	}

	return inf
}
