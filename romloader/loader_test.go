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

package romloader_test

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/curioustorvald/tsvm/hardware/memory/rom"
	"github.com/curioustorvald/tsvm/romloader"
	"github.com/curioustorvald/tsvm/test"
)

func TestBuiltin(t *testing.T) {
	test.ExpectEquality(t, len(romloader.Builtin()), 1)

	l := romloader.NewLoader(nil)
	img, err := l.Load("bios")
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, img.Name(), "bios")
	test.ExpectSuccess(t, img.Len() > 0)
	test.ExpectEquality(t, len(l.Hashes["bios"]), 40)
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	data := []byte{1, 2, 3, 4}
	test.DemandSuccess(t, os.WriteFile(filepath.Join(dir, "basic.rom"), data, 0o600))

	l := romloader.NewLoader(nil, dir)

	// extension is added by the loader
	img, err := l.Load("basic")
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, img.Name(), "basic")
	test.ExpectSuccess(t, bytes.Equal(img.Bytes(), data))

	// full path
	img, err = l.Load(filepath.Join(dir, "basic.rom"))
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, img.Len(), 4)

	// explicit base
	img, err = l.Load("basic@0x20000")
	test.DemandSuccess(t, err)
	base, ok := img.Base()
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, base, 0x20000)

	_, err = l.Load("basic@nonsense")
	test.ExpectSuccess(t, errors.Is(err, romloader.ErrBoot))
}

func TestUnresolved(t *testing.T) {
	l := romloader.NewLoader(nil, t.TempDir())
	_, err := l.Load("missing")
	test.ExpectSuccess(t, errors.Is(err, romloader.ErrBoot))

	_, err = l.LoadSet("bios", "missing")
	test.ExpectSuccess(t, errors.Is(err, romloader.ErrBoot))

	_, err = l.LoadSet()
	test.ExpectSuccess(t, errors.Is(err, romloader.ErrBoot))
	test.ExpectSuccess(t, errors.Is(err, rom.ErrEmptySet))
}

func TestCompressed(t *testing.T) {
	dir := t.TempDir()
	data := bytes.Repeat([]byte{0x55}, 1000)

	var b bytes.Buffer
	w := gzip.NewWriter(&b)
	_, err := w.Write(data)
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, w.Close())

	// the file extension does not matter
	test.DemandSuccess(t, os.WriteFile(filepath.Join(dir, "packed.bin"), b.Bytes(), 0o600))

	l := romloader.NewLoader(nil, dir)
	img, err := l.Load("packed")
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, bytes.Equal(img.Bytes(), data))
}

func TestTruncation(t *testing.T) {
	dir := t.TempDir()
	test.DemandSuccess(t, os.WriteFile(filepath.Join(dir, "large.rom"), make([]byte, rom.WindowSize+100), 0o600))

	l := romloader.NewLoader(nil, dir)
	img, err := l.Load("large")
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, img.Len(), rom.WindowSize)
}

func TestHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/roms/net.rom" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte{9, 8, 7})
	}))
	defer srv.Close()

	l := romloader.NewLoader(nil)
	img, err := l.Load(srv.URL + "/roms/net.rom")
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, img.Name(), "net.rom")
	test.ExpectSuccess(t, bytes.Equal(img.Bytes(), []byte{9, 8, 7}))

	_, err = l.Load(srv.URL + "/roms/missing.rom")
	test.ExpectSuccess(t, errors.Is(err, romloader.ErrBoot))
}
