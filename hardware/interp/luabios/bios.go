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
package luabios

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/curioustorvald/tsvm/hardware"
	"github.com/curioustorvald/tsvm/logger"
	lua "github.com/yuin/gopher-lua"
)

// Sentinel errors.
var (
	ErrProgram = errors.New("bios program error")
	ErrNoRom   = errors.New("no bios image")
)

// DefaultTimeout is the longest a single Step() may run before the program
// is stopped.
const DefaultTimeout = time.Second

// BIOS is the Lua interpreter.
type BIOS struct {
	L  *lua.LState
	co *lua.LState
	fn *lua.LFunction

	// the machine being driven. valid between Reset() and the next Reset()
	m hardware.Machine

	// the program has returned or raised an error
	halted bool

	// number of times the program has yielded since reset
	yields int

	// maximum duration of a single step. zero means no limit
	Timeout time.Duration
}

// NewBIOS is the preferred method of initialisation for the BIOS type.
func NewBIOS() *BIOS {
	return &BIOS{
		Timeout: DefaultTimeout,
	}
}

// Halted returns true if the program has ended, normally or otherwise.
func (b *BIOS) Halted() bool {
	return b.halted
}

// Yields returns the number of times the program has yielded since the last
// reset.
func (b *BIOS) Yields() int {
	return b.yields
}

// Close the Lua state.
func (b *BIOS) Close() {
	if b.L != nil {
		b.L.Close()
		b.L = nil
		b.co = nil
		b.fn = nil
	}
}

// Reset implements the hardware.Interpreter interface. The program is
// compiled from the first image of the machine's ROM set.
func (b *BIOS) Reset(m hardware.Machine) error {
	b.Close()
	b.m = m
	b.halted = false
	b.yields = 0

	img, ok := m.Roms().Image(0)
	if !ok {
		return fmt.Errorf("luabios: %w", ErrNoRom)
	}

	b.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	if err := b.openLibs(); err != nil {
		b.Close()
		return fmt.Errorf("luabios: %w", err)
	}
	b.register()

	// images are padded with zero bytes
	src := strings.TrimRight(string(img.Bytes()), "\x00")

	fn, err := b.L.LoadString(src)
	if err != nil {
		b.Close()
		return fmt.Errorf("luabios: %w: %s: %w", ErrProgram, img.Name(), err)
	}
	b.fn = fn
	b.co, _ = b.L.NewThread()

	logger.Logf(m.Env(), m.Env().Tag("luabios"), "loaded %s (%d bytes)", img.Name(), len(src))

	return nil
}

func (b *BIOS) openLibs() error {
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
		{lua.CoroutineLibName, lua.OpenCoroutine},
	} {
		err := b.L.CallByParam(lua.P{
			Fn:      b.L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name))
		if err != nil {
			return err
		}
	}
	return nil
}

// Step implements the hardware.Interpreter interface. A halted program does
// nothing.
func (b *BIOS) Step(m hardware.Machine) error {
	if b.halted || b.co == nil {
		return nil
	}
	b.m = m

	if b.Timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), b.Timeout)
		defer cancel()
		b.co.SetContext(ctx)
	}

	st, err, _ := b.L.Resume(b.co, b.fn)
	switch st {
	case lua.ResumeYield:
		b.yields++
	case lua.ResumeOK:
		b.halted = true
		logger.Log(m.Env(), m.Env().Tag("luabios"), "program ended")
	case lua.ResumeError:
		b.halted = true
		return fmt.Errorf("luabios: %w: %w", ErrProgram, err)
	}

	return nil
}
