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

package bus_test

import (
	"sync/atomic"

	"github.com/curioustorvald/tsvm/hardware/peripherals"
)

// gateDevice blocks inside ReadBlock() and WriteBlock() until the gate is
// opened
type gateDevice struct {
	entered chan struct{}
	gate    chan struct{}
}

func newGateDevice() *gateDevice {
	return &gateDevice{
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
}

func (d *gateDevice) ID() peripherals.ID { return "gate" }
func (d *gateDevice) AttachNotify(_ int) {}
func (d *gateDevice) DetachNotify()      {}

func (d *gateDevice) Status() peripherals.Status { return peripherals.Idle }

func (d *gateDevice) ReadBlock(_ int64, length int) ([]byte, error) {
	d.entered <- struct{}{}
	<-d.gate
	return make([]byte, length), nil
}

func (d *gateDevice) WriteBlock(_ int64, _ []byte) error {
	d.entered <- struct{}{}
	<-d.gate
	return nil
}

// slowDevice accepts every operation and stays busy until finish() is called
type slowDevice struct {
	status  atomic.Int32
	ready   atomic.Bool
	aborted atomic.Bool
}

func (d *slowDevice) ID() peripherals.ID { return "slow" }
func (d *slowDevice) AttachNotify(_ int) {}
func (d *slowDevice) DetachNotify()      {}

func (d *slowDevice) Status() peripherals.Status {
	return peripherals.Status(d.status.Load())
}

func (d *slowDevice) ReadBlock(_ int64, length int) ([]byte, error) {
	if d.ready.CompareAndSwap(true, false) {
		data := make([]byte, length)
		for i := range data {
			data[i] = byte(i)
		}
		return data, nil
	}
	d.status.Store(int32(peripherals.Busy))
	return nil, peripherals.ErrBusy
}

func (d *slowDevice) WriteBlock(_ int64, _ []byte) error {
	d.status.Store(int32(peripherals.Busy))
	return peripherals.ErrBusy
}

func (d *slowDevice) Abort() {
	d.aborted.Store(true)
	d.status.Store(int32(peripherals.Idle))
}

func (d *slowDevice) finish() {
	d.ready.Store(true)
	d.status.Store(int32(peripherals.Idle))
}
