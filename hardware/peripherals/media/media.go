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

package media

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/curioustorvald/tsvm/environment"
	"github.com/curioustorvald/tsvm/hardware/peripherals"
	"github.com/curioustorvald/tsvm/hardware/peripherals/disk"
	"github.com/curioustorvald/tsvm/logger"
)

// ID is the identity tag of the media library.
const ID = peripherals.ID("media")

// PageSize is the number of samples in a page. ReadBlock offsets are in
// pages.
const PageSize = disk.BlockSize

// Sentinel errors returned by the media library.
var (
	ErrNoFileOpened   = errors.New("no file opened")
	ErrNotPermitted   = errors.New("name is outside of the media library")
	ErrIllegalCommand = errors.New("illegal command")
)

// Library is the media library device.
type Library struct {
	env *environment.Environment

	crit sync.Mutex

	root string
	code disk.StatusCode

	name string
	pcm  PCM
}

// NewLibrary is the preferred method of initialisation for the Library type.
// The library is rooted in the "path" argument, relative to the storage root.
func NewLibrary(ctx peripherals.Context) (*Library, error) {
	return &Library{
		env:  ctx.Env,
		root: filepath.Join(ctx.StorageRoot, ctx.Arg("path", "")),
	}, nil
}

// Factory creates a media library for a peripheral entry.
func Factory(ctx peripherals.Context) (peripherals.Device, error) {
	return NewLibrary(ctx)
}

// ID implements the peripherals.Device interface.
func (l *Library) ID() peripherals.ID {
	return ID
}

// AttachNotify implements the peripherals.Device interface.
func (l *Library) AttachNotify(_ int) {
}

// DetachNotify implements the peripherals.Device interface.
func (l *Library) DetachNotify() {
}

// Status implements the peripherals.Device interface.
func (l *Library) Status() peripherals.Status {
	return peripherals.Idle
}

// Code returns the status code of the most recent operation.
func (l *Library) Code() disk.StatusCode {
	l.crit.Lock()
	defer l.crit.Unlock()
	return l.code
}

// Opened returns the name of the open file and its decoded PCM data.
func (l *Library) Opened() (string, PCM) {
	l.crit.Lock()
	defer l.crit.Unlock()
	return l.name, l.pcm
}

// WriteBlock implements the peripherals.Device interface. The offset is
// ignored. The data is one of the commands "OPEN <name>" or "CLOSE".
func (l *Library) WriteBlock(_ int64, data []byte) error {
	l.crit.Lock()
	defer l.crit.Unlock()

	cmd := strings.TrimRight(string(data), "\x00\x17\r\n")

	switch {
	case strings.HasPrefix(cmd, "OPEN "):
		return l.open(strings.TrimSpace(cmd[5:]))
	case cmd == "CLOSE" || cmd == "DEVRST":
		l.name = ""
		l.pcm = PCM{}
		l.code = disk.Standby
		return nil
	}

	l.code = disk.IllegalCommand
	return fmt.Errorf("media: %w: %q", ErrIllegalCommand, cmd)
}

// must be called with the critical section held
func (l *Library) open(name string) error {
	if !filepath.IsLocal(name) {
		l.code = disk.OperationNotPermitted
		return fmt.Errorf("media: %w: %s", ErrNotPermitted, name)
	}

	pcm, err := Decode(filepath.Join(l.root, name))
	if err != nil {
		switch {
		case errors.Is(err, ErrFormat):
			l.code = disk.NotAFile
		default:
			l.code = disk.NoSuchFile
		}
		return fmt.Errorf("media: %w", err)
	}

	l.name = name
	l.pcm = pcm
	l.code = disk.Standby

	logger.Logf(l.env, l.env.Tag("media"), "opened %s: %d samples at %dHz", name, len(pcm.Data), pcm.SampleRate)

	return nil
}

// ReadBlock implements the peripherals.Device interface. The offset is the
// page of the decoded PCM data. Reading beyond the end returns an empty block.
func (l *Library) ReadBlock(offset int64, length int) ([]byte, error) {
	l.crit.Lock()
	defer l.crit.Unlock()

	if l.name == "" {
		l.code = disk.NoFileOpened
		return nil, fmt.Errorf("media: %w", ErrNoFileOpened)
	}
	if offset < 0 || length < 0 {
		l.code = disk.OperationFailed
		return nil, fmt.Errorf("media: bad page: %d", offset)
	}

	// reading beyond the end of the file is not an error
	if offset >= int64(len(l.pcm.Data)/PageSize)+1 {
		return []byte{}, nil
	}
	start := offset * PageSize
	if start >= int64(len(l.pcm.Data)) {
		return []byte{}, nil
	}

	end := start + min(int64(length), int64(len(l.pcm.Data))-start)
	data := make([]byte, end-start)
	copy(data, l.pcm.Data[start:end])

	return data, nil
}
