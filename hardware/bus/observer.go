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
)

// Kind of transfer.
type Kind int

// List of valid transfer kinds.
const (
	Read Kind = iota
	Write
)

func (k Kind) String() string {
	switch k {
	case Read:
		return "read"
	case Write:
		return "write"
	}
	return "unknown"
}

// Outcome of a transfer step.
type Outcome int

// List of valid Outcome values.
const (
	Completed Outcome = iota
	Pending
	Faulted
	Aborted
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Pending:
		return "pending"
	case Faulted:
		return "faulted"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// TransferEvent describes a step in the life of a transfer.
type TransferEvent struct {
	Port    int
	Device  peripherals.ID
	Kind    Kind
	Offset  int64
	Length  int
	Outcome Outcome
	Err     error
}

func (ev TransferEvent) String() string {
	s := fmt.Sprintf("port %d: %s %s offset=%d length=%d: %s", ev.Port, ev.Device, ev.Kind, ev.Offset, ev.Length, ev.Outcome)
	if ev.Err != nil {
		s = fmt.Sprintf("%s (%v)", s, ev.Err)
	}
	return s
}

// Observer is notified of every transfer event on the bus.
type Observer interface {
	Transfer(ev TransferEvent)
}

// ObserverFunc allows a function to be used as an Observer.
type ObserverFunc func(ev TransferEvent)

// Transfer implements the Observer interface.
func (f ObserverFunc) Transfer(ev TransferEvent) {
	f(ev)
}

type observers struct {
	crit sync.RWMutex
	list []Observer
}

func (o *observers) notify(ev TransferEvent) {
	o.crit.RLock()
	defer o.crit.RUnlock()
	for _, ob := range o.list {
		ob.Transfer(ev)
	}
}

// AddObserver adds an observer to the bus.
func (b *Bus) AddObserver(o Observer) {
	b.observers.crit.Lock()
	defer b.observers.crit.Unlock()
	b.observers.list = append(b.observers.list, o)
}
