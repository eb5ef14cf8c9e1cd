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
package session

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/curioustorvald/tsvm/environment"
	"github.com/curioustorvald/tsvm/govern"
	"github.com/curioustorvald/tsvm/hardware"
	"github.com/curioustorvald/tsvm/hardware/peripherals"
	"github.com/curioustorvald/tsvm/hardware/watchdog"
	"github.com/curioustorvald/tsvm/logger"
	"github.com/curioustorvald/tsvm/notifications"
	"github.com/rs/xid"
)

// Params are the parameters of a new session.
type Params struct {
	// identity of the display adapter. if empty then the session has no
	// display
	Display     peripherals.ID
	DisplaySlot int

	// the directory used by file-backed devices
	StorageRoot string

	// dimensions of the display viewport. zero values mean the default for
	// the display adapter
	Width  int
	Height int

	// entries attached after the display, in order
	Extra []peripherals.Entry

	// acknowledge the session's tripped watchdogs after every step
	AutoAcknowledge bool

	// reset the host when a watchdog trip is escalated, rather than returning
	// the error
	ResetOnFatal bool

	// notification target for session events. can be nil
	Notify notifications.Notify
}

// entries returns the list of entries described by the parameters.
func (p Params) entries() []peripherals.Entry {
	var ents []peripherals.Entry
	if p.Display != "" {
		ents = append(ents, peripherals.Entry{
			Slot:   p.DisplaySlot,
			ID:     p.Display,
			Width:  p.Width,
			Height: p.Height,
		})
	}
	return append(ents, p.Extra...)
}

// the device attached for an entry and the resources registered for it
type attachment struct {
	entry     peripherals.Entry
	dev       peripherals.Device
	watchdogs []string
	mapped    bool
}

// Session is a set of peripherals attached to a host.
type Session struct {
	id     string
	host   *hardware.Host
	params Params

	// attachments in the order they were made
	attached []*attachment

	tornDown bool
}

// Create a new session. Every entry is resolved against the registry before
// any device is constructed. The entries are then constructed and attached
// in order.
//
// If any entry fails then every entry attached by this call is rolled back,
// in reverse order, and an AttachError is returned.
func Create(host *hardware.Host, params Params, registry *peripherals.Registry) (*Session, error) {
	s := &Session{
		id:     xid.New().String(),
		host:   host,
		params: params,
	}

	ents := params.entries()

	factories := make([]peripherals.Factory, len(ents))
	for i, e := range ents {
		f, err := registry.Lookup(e.ID)
		if err != nil {
			return nil, &AttachError{Entry: e, Err: err}
		}
		factories[i] = f
	}

	for i, e := range ents {
		e.Owner = host.ID()
		if err := s.attach(e, factories[i]); err != nil {
			s.rollback()
			return nil, &AttachError{Entry: e, Err: err}
		}
	}

	logger.Logf(s.env(), s.tag(), "started with %d entries on host %s", len(s.attached), host.ID())
	s.notify(notifications.NotifySessionStarted)

	return s, nil
}

func (s *Session) env() *environment.Environment {
	return s.host.Env()
}

func (s *Session) tag() string {
	return s.host.Env().Tag("session")
}

func (s *Session) notify(notice notifications.Notice) {
	if s.params.Notify == nil {
		return
	}
	if err := s.params.Notify.Notify(notice); err != nil {
		logger.Log(s.env(), s.tag(), err)
	}
}

func (s *Session) attach(e peripherals.Entry, f peripherals.Factory) error {
	ctx := peripherals.Context{
		Env:         s.host.Env(),
		Slot:        e.Slot,
		StorageRoot: s.params.StorageRoot,
		Width:       e.Width,
		Height:      e.Height,
		Args:        e.Args,
		Signals:     s.host.Signals(),
	}

	dev, err := f(ctx)
	if err != nil {
		return err
	}

	if err := s.host.Attach(e.Slot, dev); err != nil {
		closeDevice(dev)
		return err
	}

	a := &attachment{entry: e, dev: dev}
	s.attached = append(s.attached, a)

	if _, ok := dev.(peripherals.MemoryMapped); ok {
		if _, err := s.host.MapPeripheral(e); err != nil {
			return err
		}
		a.mapped = true
	}

	if sup, ok := dev.(peripherals.Supervised); ok {
		for _, spec := range sup.Watchdogs() {
			spec.Name = WatchdogName(e.Slot, spec.Name)
			if err := s.host.Watchdogs().Register(spec); err != nil {
				return err
			}
			a.watchdogs = append(a.watchdogs, spec.Name)
			if err := s.host.Watchdogs().Arm(spec.Name, 0); err != nil {
				return err
			}
		}
	}

	return nil
}

// WatchdogName returns the name used to register a device's watchdog with
// the host.
func WatchdogName(slot int, name string) string {
	return fmt.Sprintf("slot%d/%s", slot, name)
}

func (s *Session) rollback() {
	for _, a := range slices.Backward(s.attached) {
		s.release(a)
	}
	s.attached = nil
}

// release the resources of the attachment and close the device
func (s *Session) release(a *attachment) {
	for _, name := range a.watchdogs {
		if err := s.host.Watchdogs().Unregister(name); err != nil {
			logger.Log(s.env(), s.tag(), err)
		}
	}

	if a.mapped {
		s.host.UnmapPeripheral(a.entry.Slot)
	}

	// only detach the device if it is still attached to the slot
	cur, err := s.host.Bus().Device(a.entry.Slot)
	switch {
	case err != nil:
		logger.Logf(s.env(), s.tag(), "slot %d: %s was detached externally", a.entry.Slot, a.dev.ID())
	case cur != a.dev:
		logger.Logf(s.env(), s.tag(), "slot %d: %s was replaced by %s", a.entry.Slot, a.dev.ID(), cur.ID())
	default:
		if s.host.Bus().State(a.entry.Slot).Pending() {
			if err := s.host.Bus().Abort(a.entry.Slot); err != nil {
				logger.Log(s.env(), s.tag(), err)
			}
		}
		if _, err := s.host.Detach(a.entry.Slot); err != nil {
			logger.Log(s.env(), s.tag(), err)
		}
	}

	closeDevice(a.dev)
}

func closeDevice(dev peripherals.Device) {
	if c, ok := dev.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Logf(logger.Allow, "session", "%s: %v", dev.ID(), err)
		}
	}
}

// Teardown detaches the session's devices in the reverse order of
// attachment. Devices that are no longer attached to their slot are left
// alone. Every device is closed.
//
// Tearing down a session that has already been torn down does nothing.
func (s *Session) Teardown() {
	if s.tornDown {
		return
	}
	s.tornDown = true

	s.rollback()

	logger.Logf(s.env(), s.tag(), "ended session %s", s.id)
	s.notify(notifications.NotifySessionEnded)
}

// ID returns the unique identifier of the session.
func (s *Session) ID() string {
	return s.id
}

// Host returns the host the session is attached to.
func (s *Session) Host() *hardware.Host {
	return s.host
}

// Entries returns the entries attached by the session, in the order they
// were attached. The Owner field of each entry is the ID of the host.
func (s *Session) Entries() []peripherals.Entry {
	ents := make([]peripherals.Entry, 0, len(s.attached))
	for _, a := range s.attached {
		ents = append(ents, a.entry)
	}
	return ents
}

// Device returns the device attached by the session to slot.
func (s *Session) Device(slot int) (peripherals.Device, bool) {
	for _, a := range s.attached {
		if a.entry.Slot == slot {
			return a.dev, true
		}
	}
	return nil, false
}

// Step the host once. See Run() for how escalated watchdog trips are
// handled.
func (s *Session) Step() error {
	if s.tornDown {
		return fmt.Errorf("session: %w", ErrTornDown)
	}

	err := s.host.Step()

	if s.params.AutoAcknowledge {
		s.acknowledge()
	}

	if err != nil && errors.Is(err, watchdog.ErrTrip) {
		return s.escalate(err)
	}

	return err
}

// Run the host for as long as continueCheck returns the Running state. The
// continueCheck function works in the same way as for the hardware.Host
// Run() function.
//
// A watchdog trip escalated by its fault action notifies NotifyWatchdogTrip.
// If the session was created with ResetOnFatal then the host is reset and
// the run continues. Otherwise the error is returned.
func (s *Session) Run(continueCheck func() (govern.State, error)) error {
	if s.tornDown {
		return fmt.Errorf("session: %w", ErrTornDown)
	}

	for {
		err := s.host.Run(func() (govern.State, error) {
			if s.params.AutoAcknowledge {
				s.acknowledge()
			}
			if continueCheck == nil {
				return govern.Running, nil
			}
			return continueCheck()
		})

		if err == nil || !errors.Is(err, watchdog.ErrTrip) {
			return err
		}

		if s.params.AutoAcknowledge {
			s.acknowledge()
		}

		if err := s.escalate(err); err != nil {
			return err
		}
	}
}

func (s *Session) escalate(err error) error {
	logger.Log(s.env(), s.tag(), err)
	s.notify(notifications.NotifyWatchdogTrip)

	if !s.params.ResetOnFatal {
		return err
	}

	return s.host.Reset()
}

// acknowledge the tripped watchdogs belonging to the session. these are the
// watchdogs of the session's devices and the transfer watchdogs of the
// session's slots
func (s *Session) acknowledge() {
	var names []string
	for _, a := range s.attached {
		names = append(names, a.watchdogs...)
		names = append(names, hardware.TransferWatchdog(a.entry.Slot))
	}

	for _, name := range names {
		state, err := s.host.Watchdogs().State(name)
		if err != nil || state != watchdog.Tripped {
			continue
		}
		if err := s.host.Watchdogs().Acknowledge(name); err != nil {
			logger.Log(s.env(), s.tag(), err)
		}
	}
}
