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

package disk

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/curioustorvald/tsvm/environment"
	"github.com/curioustorvald/tsvm/hardware/peripherals"
	"github.com/curioustorvald/tsvm/hardware/signals"
	"github.com/curioustorvald/tsvm/hardware/watchdog"
	"github.com/curioustorvald/tsvm/logger"
)

// ID is the identity tag of the disk drive.
const ID = peripherals.ID("disk")

// BlockSize is the size of a single block in bytes.
const BlockSize = 4096

// DefaultCapacity is the capacity of a drive if none is given.
const DefaultCapacity = 1048576

// SyncWatchdog is the name of the watchdog supervising the drive.
const SyncWatchdog = "disk-sync"

// Sentinel errors returned by the drive.
var (
	ErrReadOnly = errors.New("disk is read only")
	ErrCapacity = errors.New("access beyond disk capacity")
	ErrClosed   = errors.New("disk is closed")
)

// Drive is a block addressed disk drive backed by an image file.
type Drive struct {
	env *environment.Environment

	crit sync.Mutex

	path     string
	readonly bool

	// amend Data only through WriteBlock()
	Data []uint8

	// the data as it is on disk
	DiskData []uint8

	code   StatusCode
	port   int
	closed bool

	synced       *signals.Flag
	syncDeadline int
}

// NewDrive is the preferred method of initialisation for the Drive type.
//
// The image file is named by the "image" argument, relative to the storage
// root. If there is no image argument the file is disk<slot>.img. A missing
// image file is not an error; the drive starts empty and the file is created
// on the first sync.
func NewDrive(ctx peripherals.Context) (*Drive, error) {
	capacity, err := ctx.IntArg("capacity", DefaultCapacity)
	if err != nil {
		return nil, fmt.Errorf("disk: %w", err)
	}
	if capacity < BlockSize {
		return nil, fmt.Errorf("disk: capacity must be at least %d bytes", BlockSize)
	}

	name := ctx.Arg("image", fmt.Sprintf("disk%d.img", ctx.Slot))

	d := &Drive{
		env:          ctx.Env,
		path:         filepath.Join(ctx.StorageRoot, name),
		readonly:     ctx.BoolArg("readonly", false),
		port:         -1,
		synced:       ctx.Flag("synced"),
		syncDeadline: ctx.Prefs().SyncDeadline.Get().(int),
	}

	if d.synced == nil {
		d.synced = &signals.Flag{}
	}

	data, err := os.ReadFile(d.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("disk: %w", err)
		}
		if d.readonly {
			return nil, fmt.Errorf("disk: %s: %w", name, err)
		}
		logger.Logf(d.env, d.env.Tag("disk"), "%s does not exist. starting with empty disk", d.path)
	}

	// the image file can be larger than the requested capacity
	capacity = max(capacity, len(data))

	d.Data = make([]uint8, capacity)
	d.DiskData = make([]uint8, capacity)
	copy(d.Data, data)
	copy(d.DiskData, data)

	d.synced.Set(true)

	return d, nil
}

// Factory creates a disk drive for a peripheral entry.
func Factory(ctx peripherals.Context) (peripherals.Device, error) {
	return NewDrive(ctx)
}

func (d *Drive) String() string {
	return fmt.Sprintf("disk: %s (%d bytes)", d.path, len(d.Data))
}

// Path returns the path of the image file.
func (d *Drive) Path() string {
	return d.path
}

// ID implements the peripherals.Device interface.
func (d *Drive) ID() peripherals.ID {
	return ID
}

// AttachNotify implements the peripherals.Device interface.
func (d *Drive) AttachNotify(port int) {
	d.crit.Lock()
	defer d.crit.Unlock()
	d.port = port
	d.code = Standby
}

// DetachNotify implements the peripherals.Device interface.
func (d *Drive) DetachNotify() {
	d.crit.Lock()
	defer d.crit.Unlock()
	d.port = -1
}

// must be called with the critical section held
func (d *Drive) bounds(offset int64, length int) (int, error) {
	if d.closed {
		d.code = OperationFailed
		return 0, ErrClosed
	}
	start, ok := peripherals.BlockStart(offset, length, BlockSize, len(d.Data))
	if !ok {
		d.code = OperationFailed
		return 0, fmt.Errorf("%w: block %d length %d", ErrCapacity, offset, length)
	}
	return start, nil
}

// ReadBlock implements the peripherals.Device interface. Areas of the disk
// that have never been written read as zero.
func (d *Drive) ReadBlock(offset int64, length int) ([]byte, error) {
	d.crit.Lock()
	defer d.crit.Unlock()

	start, err := d.bounds(offset, length)
	if err != nil {
		return nil, err
	}

	data := make([]byte, length)
	copy(data, d.Data[start:])
	d.code = Standby

	return data, nil
}

// WriteBlock implements the peripherals.Device interface.
func (d *Drive) WriteBlock(offset int64, data []byte) error {
	d.crit.Lock()
	defer d.crit.Unlock()

	if d.readonly {
		d.code = ReadOnly
		return ErrReadOnly
	}

	start, err := d.bounds(offset, len(data))
	if err != nil {
		return err
	}

	copy(d.Data[start:], data)
	d.code = Standby
	d.synced.Set(false)

	return nil
}

// Status implements the peripherals.Device interface.
func (d *Drive) Status() peripherals.Status {
	d.crit.Lock()
	defer d.crit.Unlock()
	if d.code == SystemIOError {
		return peripherals.Fault
	}
	return peripherals.Idle
}

// Code returns the status code of the most recent operation.
func (d *Drive) Code() StatusCode {
	d.crit.Lock()
	defer d.crit.Unlock()
	return d.code
}

// Dirty returns true if the data in memory differs from the data on disk.
func (d *Drive) Dirty() bool {
	d.crit.Lock()
	defer d.crit.Unlock()
	return !bytes.Equal(d.Data, d.DiskData)
}

// Sync writes the disk image to the image file.
func (d *Drive) Sync() error {
	d.crit.Lock()
	defer d.crit.Unlock()
	return d.sync()
}

// must be called with the critical section held
func (d *Drive) sync() error {
	if d.readonly {
		d.synced.Set(true)
		return nil
	}

	if bytes.Equal(d.Data, d.DiskData) {
		d.synced.Set(true)
		return nil
	}

	err := os.MkdirAll(filepath.Dir(d.path), 0o755)
	if err == nil {
		err = os.WriteFile(d.path, d.Data, 0o644)
	}
	if err != nil {
		d.code = SystemIOError
		return fmt.Errorf("disk: %w", err)
	}

	copy(d.DiskData, d.Data)
	d.synced.Set(true)

	logger.Logf(d.env, d.env.Tag("disk"), "image saved to %s", d.path)

	return nil
}

// Watchdogs implements the peripherals.Supervised interface.
func (d *Drive) Watchdogs() []watchdog.Spec {
	return []watchdog.Spec{
		{
			Name:     SyncWatchdog,
			Source:   d.synced.Name(),
			Deadline: d.syncDeadline,
			Action:   d.ForceSync,
		},
	}
}

// ForceSync is the fault action of the disk-sync watchdog.
func (d *Drive) ForceSync(trip watchdog.Trip) error {
	logger.Logf(d.env, d.env.Tag("disk"), "%s: forcing sync", trip.Name)
	return d.Sync()
}

// Close syncs the drive. The drive can not be used after it has been closed.
func (d *Drive) Close() error {
	d.crit.Lock()
	defer d.crit.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	return d.sync()
}
