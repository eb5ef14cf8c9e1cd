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

// Package audio implements a PCM audio adapter with four playheads.
//
// Block writes queue unsigned 8-bit PCM samples on the playhead selected by
// the block offset. The queued samples of each playhead are written to a WAV
// file when the adapter is closed.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/curioustorvald/tsvm/environment"
	"github.com/curioustorvald/tsvm/hardware/peripherals"
	"github.com/curioustorvald/tsvm/logger"
	"github.com/curioustorvald/tsvm/wavwriter"
)

// ID is the identity tag of the audio adapter.
const ID = peripherals.ID("audio")

// Playheads is the number of independent playheads.
const Playheads = 4

// SampleRate of the PCM data.
const SampleRate = 30000

// ErrClosed is returned when the adapter is used after it has been closed.
var ErrClosed = errors.New("audio adapter is closed")

// Adapter is the PCM audio adapter.
type Adapter struct {
	env *environment.Environment

	crit sync.Mutex

	storage string
	slot    int
	heads   [Playheads]*wavwriter.WavWriter
	closed  bool
}

// NewAdapter is the preferred method of initialisation for the Adapter type.
func NewAdapter(ctx peripherals.Context) (*Adapter, error) {
	a := &Adapter{
		env:     ctx.Env,
		storage: ctx.StorageRoot,
		slot:    ctx.Slot,
	}

	for i := range a.heads {
		var err error
		a.heads[i], err = wavwriter.New(a.Filename(i), SampleRate)
		if err != nil {
			return nil, fmt.Errorf("audio: %w", err)
		}
	}

	return a, nil
}

// Factory creates an audio adapter for a peripheral entry.
func Factory(ctx peripherals.Context) (peripherals.Device, error) {
	return NewAdapter(ctx)
}

// Filename returns the name of the WAV file written for the playhead.
func (a *Adapter) Filename(head int) string {
	return filepath.Join(a.storage, fmt.Sprintf("audio%d-%d.wav", a.slot, head))
}

// ID implements the peripherals.Device interface.
func (a *Adapter) ID() peripherals.ID {
	return ID
}

// AttachNotify implements the peripherals.Device interface.
func (a *Adapter) AttachNotify(_ int) {
}

// DetachNotify implements the peripherals.Device interface.
func (a *Adapter) DetachNotify() {
}

// Status implements the peripherals.Device interface.
func (a *Adapter) Status() peripherals.Status {
	return peripherals.Idle
}

// ReadBlock implements the peripherals.Device interface. The offset is
// ignored. The queue length of each playhead is returned as a 32-bit little
// endian value.
func (a *Adapter) ReadBlock(_ int64, length int) ([]byte, error) {
	a.crit.Lock()
	defer a.crit.Unlock()

	if a.closed {
		return nil, ErrClosed
	}

	data := make([]byte, Playheads*4)
	for i, h := range a.heads {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(h.Len()))
	}

	if length >= 0 && length < len(data) {
		data = data[:length]
	}

	return data, nil
}

// WriteBlock implements the peripherals.Device interface. The samples are
// queued on playhead offset modulo the number of playheads.
func (a *Adapter) WriteBlock(offset int64, data []byte) error {
	a.crit.Lock()
	defer a.crit.Unlock()

	if a.closed {
		return ErrClosed
	}
	if offset < 0 {
		return fmt.Errorf("audio: negative playhead: %d", offset)
	}

	_, err := a.heads[offset%Playheads].Write(data)
	return err
}

// Queued returns the number of samples queued on the playhead.
func (a *Adapter) Queued(head int) int {
	a.crit.Lock()
	defer a.crit.Unlock()
	if head < 0 || head >= Playheads {
		return 0
	}
	return a.heads[head].Len()
}

// Close implements the io.Closer interface. The WAV file of every playhead
// with queued samples is written.
func (a *Adapter) Close() error {
	a.crit.Lock()
	defer a.crit.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	for _, h := range a.heads {
		if h.Len() == 0 {
			continue
		}
		if err := h.Close(); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Logf(a.env, a.env.Tag("audio"), "%d samples written to %s", h.Len(), h.Filename())
	}

	return errors.Join(errs...)
}
