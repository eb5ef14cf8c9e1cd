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

package romloader

import (
	"bytes"
	"crypto/sha1"
	"embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/curioustorvald/tsvm/hardware/memory/rom"
	"github.com/curioustorvald/tsvm/logger"
)

// ErrBoot is returned when an identifier cannot be resolved to an image.
var ErrBoot = errors.New("boot error")

//go:embed builtin/*.lua
var builtin embed.FS

// the first bytes of a gzip stream
var gzipMagic = []byte{0x1f, 0x8b}

// Loader resolves ROM identifiers to ROM images.
type Loader struct {
	// directories searched for relative identifiers, in order. the current
	// working directory is always searched first
	Paths []string

	// the permission used when logging
	Perm logger.Permission

	// sha1 hashes of the most recently loaded images, keyed by identifier
	Hashes map[string]string
}

// NewLoader is the preferred method of initialisation for the Loader type.
func NewLoader(perm logger.Permission, paths ...string) *Loader {
	if perm == nil {
		perm = logger.Allow
	}
	return &Loader{
		Paths:  paths,
		Perm:   perm,
		Hashes: make(map[string]string),
	}
}

// Builtin returns the names of the built-in images.
func Builtin() []string {
	var n []string
	ents, _ := builtin.ReadDir("builtin")
	for _, e := range ents {
		n = append(n, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	return n
}

// Load resolves the identifier to a ROM image.
func (l *Loader) Load(identifier string) (rom.Image, error) {
	id, base, fixed, err := splitIdentifier(identifier)
	if err != nil {
		return rom.Image{}, err
	}

	name, data, err := l.resolve(id)
	if err != nil {
		return rom.Image{}, err
	}

	if bytes.HasPrefix(data, gzipMagic) {
		data, err = decompress(data)
		if err != nil {
			return rom.Image{}, fmt.Errorf("romloader: %w: %s: %w", ErrBoot, identifier, err)
		}
	}

	if len(data) > rom.WindowSize {
		logger.Logf(l.Perm, "romloader", "%s truncated from %d to %d bytes", name, len(data), rom.WindowSize)
		data = data[:rom.WindowSize]
	}

	l.Hashes[identifier] = fmt.Sprintf("%x", sha1.Sum(data))

	var img rom.Image
	if fixed {
		img, err = rom.NewImageAt(name, data, base)
	} else {
		img, err = rom.NewImage(name, data)
	}
	if err != nil {
		return rom.Image{}, fmt.Errorf("romloader: %w: %w", ErrBoot, err)
	}

	return img, nil
}

// LoadSet resolves every identifier and returns the images as a ROM set, in
// the order of the identifiers.
func (l *Loader) LoadSet(identifiers ...string) (rom.Set, error) {
	images := make([]rom.Image, 0, len(identifiers))
	for _, id := range identifiers {
		img, err := l.Load(id)
		if err != nil {
			return rom.Set{}, err
		}
		images = append(images, img)
	}

	s, err := rom.NewSet(images...)
	if err != nil {
		return rom.Set{}, fmt.Errorf("romloader: %w: %w", ErrBoot, err)
	}

	return s, nil
}

func splitIdentifier(identifier string) (string, int, bool, error) {
	id, at, ok := strings.Cut(identifier, "@")
	if !ok {
		return identifier, 0, false, nil
	}

	base, err := strconv.ParseInt(at, 0, 32)
	if err != nil || base < 0 {
		return "", 0, false, fmt.Errorf("romloader: %w: %s: invalid base address", ErrBoot, identifier)
	}

	return id, int(base), true, nil
}

func (l *Loader) resolve(id string) (string, []byte, error) {
	if data, err := builtin.ReadFile("builtin/" + id + ".lua"); err == nil {
		return id, data, nil
	}

	if strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://") {
		data, err := fetch(id)
		if err != nil {
			return "", nil, fmt.Errorf("romloader: %w: %s: %w", ErrBoot, id, err)
		}
		return filepath.Base(id), data, nil
	}

	candidates := []string{id, id + ".rom", id + ".bin"}
	dirs := append([]string{""}, l.Paths...)

	for _, d := range dirs {
		if d != "" && filepath.IsAbs(id) {
			break
		}
		for _, c := range candidates {
			p := filepath.Join(d, c)
			info, err := os.Stat(p)
			if err != nil || info.IsDir() {
				continue
			}
			data, err := os.ReadFile(p)
			if err != nil {
				return "", nil, fmt.Errorf("romloader: %w: %s: %w", ErrBoot, id, err)
			}
			name := strings.TrimSuffix(filepath.Base(c), filepath.Ext(c))
			return name, data, nil
		}
	}

	return "", nil, fmt.Errorf("romloader: %w: cannot resolve %q", ErrBoot, id)
}

func fetch(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s", resp.Status)
	}

	// the body may be compressed so the limit is larger than the window size
	return io.ReadAll(io.LimitReader(resp.Body, rom.WindowSize*16))
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	// compressed images are capped in the same way as uncompressed images.
	// reading one byte more than the window size is enough to know if the
	// image needs truncating
	return io.ReadAll(io.LimitReader(r, rom.WindowSize+1))
}
