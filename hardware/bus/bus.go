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
	"errors"
	"fmt"

	"github.com/curioustorvald/tsvm/environment"
	"github.com/curioustorvald/tsvm/hardware/peripherals"
	"github.com/curioustorvald/tsvm/hardware/signals"
	"github.com/curioustorvald/tsvm/hardware/watchdog"
	"github.com/curioustorvald/tsvm/logger"
)

// MaxSlots is the maximum number of ports on the bus.
const MaxSlots = 8

// Bus is the peripheral bus of a machine host.
type Bus struct {
	env   *environment.Environment
	ports []*BlockPort

	observers observers
}

// NewBus is the preferred method of initialisation for the Bus type. If board
// is nil then the bus creates a signal board of its own.
func NewBus(env *environment.Environment, slots int, board *signals.Board) (*Bus, error) {
	if slots < 1 || slots > MaxSlots {
		return nil, fmt.Errorf("bus: %w: %d", ErrSlots, slots)
	}

	if board == nil {
		board = signals.NewBoard()
	}

	b := &Bus{
		env:   env,
		ports: make([]*BlockPort, slots),
	}
	for i := range b.ports {
		b.ports[i] = newBlockPort(i, board)
	}

	return b, nil
}

// Slots returns the number of ports on the bus.
func (b *Bus) Slots() int {
	return len(b.ports)
}

func (b *Bus) port(port int) (*BlockPort, error) {
	if port < 0 || port >= len(b.ports) {
		return nil, fmt.Errorf("bus: %w: %d", ErrNoSuchPort, port)
	}
	return b.ports[port], nil
}

// Attach device to port. The port must be idle and have no device attached.
func (b *Bus) Attach(port int, dev peripherals.Device) error {
	p, err := b.port(port)
	if err != nil {
		return err
	}

	p.crit.Lock()
	if p.dev != nil {
		p.crit.Unlock()
		return fmt.Errorf("bus: port %d: %w: %s attached", port, ErrPortBusy, p.dev.ID())
	}
	if p.state != Idle {
		p.crit.Unlock()
		return fmt.Errorf("bus: port %d: %w: %s", port, ErrPortBusy, p.state)
	}
	p.dev = dev
	p.rx = nil
	p.crit.Unlock()

	dev.AttachNotify(port)
	logger.Logf(b.env, b.env.Tag("bus"), "port %d: attached %s", port, dev.ID())

	return nil
}

// Detach the device from port. A port with a pending transfer cannot be
// detached. Detaching a port in the error state clears the error.
//
// Returns the detached device.
func (b *Bus) Detach(port int) (peripherals.Device, error) {
	p, err := b.port(port)
	if err != nil {
		return nil, err
	}

	p.crit.Lock()
	if p.dev == nil {
		p.crit.Unlock()
		return nil, fmt.Errorf("bus: port %d: %w", port, ErrNoDevice)
	}
	if p.state.Pending() {
		p.crit.Unlock()
		return nil, fmt.Errorf("bus: port %d: %w", port, ErrTransferInFlight)
	}
	dev := p.dev
	p.dev = nil
	p.rx = nil
	p.settle(Idle, nil)
	p.crit.Unlock()

	dev.DetachNotify()
	logger.Logf(b.env, b.env.Tag("bus"), "port %d: detached %s", port, dev.ID())

	return dev, nil
}

// BeginRead reads length bytes from the block offset of the device attached
// to port.
//
// If the device completes the read immediately then the data is returned and
// the port is idle. If the device is busy then ErrPending is returned and the
// data is available from Received() once Poll() reports the port as idle.
func (b *Bus) BeginRead(port int, offset int64, length int) ([]byte, error) {
	p, err := b.port(port)
	if err != nil {
		return nil, err
	}

	t := transfer{kind: Read, offset: offset, length: length}

	p.crit.Lock()
	if err := p.ready(); err != nil {
		p.crit.Unlock()
		return nil, err
	}
	dev, gen := p.begin(t)
	p.crit.Unlock()

	// the device is called outside of the critical section. the port is
	// pending for the duration of the call
	data, err := dev.ReadBlock(offset, length)

	return b.complete(p, dev, gen, t, data, err)
}

// BeginWrite writes data to the block offset of the device attached to port.
//
// If the device is busy then ErrPending is returned and the write is
// complete once Poll() reports the port as idle.
func (b *Bus) BeginWrite(port int, offset int64, data []byte) error {
	p, err := b.port(port)
	if err != nil {
		return err
	}

	t := transfer{kind: Write, offset: offset, length: len(data)}

	p.crit.Lock()
	if err := p.ready(); err != nil {
		p.crit.Unlock()
		return err
	}
	dev, gen := p.begin(t)
	p.crit.Unlock()

	err = dev.WriteBlock(offset, data)

	_, err = b.complete(p, dev, gen, t, nil, err)
	return err
}

// complete the transfer according to the result of the device call.
func (b *Bus) complete(p *BlockPort, dev peripherals.Device, gen int, t transfer, data []byte, err error) ([]byte, error) {
	ev := TransferEvent{
		Port:   p.index,
		Device: dev.ID(),
		Kind:   t.kind,
		Offset: t.offset,
		Length: t.length,
	}

	p.crit.Lock()

	if gen != p.gen {
		p.crit.Unlock()
		ev.Outcome = Aborted
		ev.Err = ErrAborted
		b.observers.notify(ev)
		return nil, fmt.Errorf("bus: port %d: %w", p.index, ErrAborted)
	}

	var ret []byte

	switch {
	case errors.Is(err, peripherals.ErrBusy):
		ev.Outcome = Pending
		err = fmt.Errorf("bus: port %d: %w", p.index, ErrPending)

	case err != nil:
		err = fmt.Errorf("bus: port %d: %w: %w", p.index, ErrDeviceFault, err)
		p.settle(Error, err)
		ev.Outcome = Faulted
		ev.Err = err

	default:
		if t.kind == Read {
			p.rx = make([]byte, len(data))
			copy(p.rx, data)
			ret = make([]byte, len(data))
			copy(ret, data)
			ev.Length = len(data)
		}
		p.settle(Idle, nil)
		ev.Outcome = Completed
	}

	p.crit.Unlock()

	if ev.Outcome == Faulted {
		logger.Log(b.env, b.env.Tag("bus"), err)
	}
	b.observers.notify(ev)

	return ret, err
}

// Poll advances a pending transfer on port. Poll never blocks.
//
// The returned state is the state of the port after polling. If the
// transfer is still pending then ErrPending is returned. If the device has
// faulted then ErrDeviceFault is returned. If the port is in the error state
// the error that caused it is returned.
func (b *Bus) Poll(port int) (TransferState, error) {
	p, err := b.port(port)
	if err != nil {
		return Idle, err
	}

	p.crit.Lock()
	if !p.state.Pending() {
		state := p.state
		err := p.lastErr
		p.crit.Unlock()
		return state, err
	}
	dev := p.dev
	gen := p.gen
	t := p.pending
	p.crit.Unlock()

	switch dev.Status() {
	case peripherals.Busy:
		return p.State(), fmt.Errorf("bus: port %d: %w", port, ErrPending)

	case peripherals.Fault:
		_, err = b.complete(p, dev, gen, t, nil, fmt.Errorf("%s reports fault", dev.ID()))

	default:
		if t.kind == Read {
			var data []byte
			data, err = dev.ReadBlock(t.offset, t.length)
			_, err = b.complete(p, dev, gen, t, data, err)
		} else {
			_, err = b.complete(p, dev, gen, t, nil, nil)
		}
	}

	return p.State(), err
}

// Service polls every port with a pending transfer. It returns the number
// of transfers that were completed.
//
// Faults are not returned by Service(). The fault leaves the port in the
// error state to be discovered by the next operation on that port.
func (b *Bus) Service() int {
	var n int
	for i, p := range b.ports {
		if !p.State().Pending() {
			continue
		}
		state, _ := b.Poll(i)
		if state == Idle {
			n++
		}
	}
	return n
}

// Received returns a copy of the data from the most recent completed read on
// port.
func (b *Bus) Received(port int) ([]byte, error) {
	p, err := b.port(port)
	if err != nil {
		return nil, err
	}

	p.crit.Lock()
	defer p.crit.Unlock()

	rx := make([]byte, len(p.rx))
	copy(rx, p.rx)

	return rx, nil
}

// Abort a pending transfer on port. The port is put into the error state. A
// port without a pending transfer is unaffected.
func (b *Bus) Abort(port int) error {
	p, err := b.port(port)
	if err != nil {
		return err
	}

	p.crit.Lock()
	if !p.state.Pending() {
		p.crit.Unlock()
		return nil
	}
	dev := p.dev
	t := p.pending
	err = fmt.Errorf("bus: port %d: %w", port, ErrAborted)
	p.abandon(Error, err)
	p.crit.Unlock()

	if a, ok := dev.(peripherals.Aborter); ok {
		a.Abort()
	}

	logger.Log(b.env, b.env.Tag("bus"), err)
	b.observers.notify(TransferEvent{
		Port:    port,
		Device:  dev.ID(),
		Kind:    t.kind,
		Offset:  t.offset,
		Length:  t.length,
		Outcome: Aborted,
		Err:     err,
	})

	return nil
}

// AbortAction returns a watchdog fault action that aborts the pending
// transfer on port.
func (b *Bus) AbortAction(port int) watchdog.FaultAction {
	return func(trip watchdog.Trip) error {
		logger.Logf(b.env, b.env.Tag("bus"), "port %d: %s: aborting transfer", port, trip.Name)
		return b.Abort(port)
	}
}

// ClearError returns a port in the error state to the idle state. Clearing a
// port that is already idle does nothing.
func (b *Bus) ClearError(port int) error {
	p, err := b.port(port)
	if err != nil {
		return err
	}

	p.crit.Lock()
	defer p.crit.Unlock()

	if p.state.Pending() {
		return fmt.Errorf("bus: port %d: %w", port, ErrTransferInFlight)
	}
	p.settle(Idle, nil)

	return nil
}

// Reset every port to the idle state. Pending transfers are forgotten.
// Attached devices stay attached.
func (b *Bus) Reset() {
	for _, p := range b.ports {
		p.crit.Lock()
		p.rx = nil
		p.abandon(Idle, nil)
		p.crit.Unlock()
	}
}

// DetachAll aborts any pending transfer and detaches every device. Returns
// the detached devices in port order.
func (b *Bus) DetachAll() []peripherals.Device {
	var devs []peripherals.Device
	for i := range b.ports {
		if err := b.Abort(i); err != nil {
			logger.Log(b.env, b.env.Tag("bus"), err)
		}
		dev, err := b.Detach(i)
		if err != nil {
			if !errors.Is(err, ErrNoDevice) {
				logger.Log(b.env, b.env.Tag("bus"), err)
			}
			continue
		}
		devs = append(devs, dev)
	}
	return devs
}

// State returns the transfer state of port. Invalid ports are reported as
// idle.
func (b *Bus) State(port int) TransferState {
	p, err := b.port(port)
	if err != nil {
		return Idle
	}
	return p.State()
}

// State returns the transfer state of the port.
func (p *BlockPort) State() TransferState {
	p.crit.Lock()
	defer p.crit.Unlock()
	return p.state
}

// Device returns the device attached to port. Returns ErrNoDevice if there is
// no device attached.
func (b *Bus) Device(port int) (peripherals.Device, error) {
	p, err := b.port(port)
	if err != nil {
		return nil, err
	}

	p.crit.Lock()
	defer p.crit.Unlock()

	if p.dev == nil {
		return nil, fmt.Errorf("bus: port %d: %w", port, ErrNoDevice)
	}
	return p.dev, nil
}

// LastError returns the error that put the port into the error state.
func (b *Bus) LastError(port int) error {
	p, err := b.port(port)
	if err != nil {
		return err
	}

	p.crit.Lock()
	defer p.crit.Unlock()
	return p.lastErr
}

// Ports returns a snapshot of every port.
func (b *Bus) Ports() []PortInfo {
	inf := make([]PortInfo, 0, len(b.ports))
	for _, p := range b.ports {
		inf = append(inf, p.info())
	}
	return inf
}
