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
	"errors"

	"github.com/curioustorvald/tsvm/hardware/bus"
	"github.com/curioustorvald/tsvm/logger"
	lua "github.com/yuin/gopher-lua"
)

func (b *BIOS) register() {
	for name, f := range map[string]lua.LGFunction{
		"peek":     b.peek,
		"poke":     b.poke,
		"read":     b.read,
		"write":    b.write,
		"poll":     b.poll,
		"received": b.received,
		"signal":   b.signal,
		"uptime":   b.uptime,
		"log":      b.log,
		"memsize":  b.memsize,
		"slots":    b.slots,
		"device":   b.device,
		"hostid":   b.hostid,
	} {
		b.L.SetGlobal(name, b.L.NewFunction(f))
	}
}

// pushes nil and the error message. returns the number of values pushed
func fail(L *lua.LState, err error) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(err.Error()))
	return 2
}

func (b *BIOS) peek(L *lua.LState) int {
	v, err := b.m.Peek(L.CheckInt(1))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(lua.LNumber(v))
	return 1
}

func (b *BIOS) poke(L *lua.LState) int {
	err := b.m.Poke(L.CheckInt(1), uint8(L.CheckInt(2)))
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (b *BIOS) read(L *lua.LState) int {
	data, err := b.m.BeginRead(L.CheckInt(1), L.CheckInt64(2), L.CheckInt(3))
	if err != nil {
		if errors.Is(err, bus.ErrPending) {
			L.Push(lua.LNil)
			L.Push(lua.LString("pending"))
			return 2
		}
		return fail(L, err)
	}
	L.Push(lua.LString(data))
	return 1
}

func (b *BIOS) write(L *lua.LState) int {
	port := L.CheckInt(1)
	err := b.m.BeginWrite(port, L.CheckInt64(2), []byte(L.CheckString(3)))
	if err != nil && !errors.Is(err, bus.ErrPending) {
		return fail(L, err)
	}
	state, _ := b.m.Poll(port)
	L.Push(lua.LString(state.String()))
	return 1
}

func (b *BIOS) poll(L *lua.LState) int {
	state, err := b.m.Poll(L.CheckInt(1))
	if err != nil && !errors.Is(err, bus.ErrPending) {
		L.Push(lua.LString(state.String()))
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(state.String()))
	return 1
}

func (b *BIOS) received(L *lua.LState) int {
	data, err := b.m.Received(L.CheckInt(1))
	if err != nil {
		return fail(L, err)
	}
	L.Push(lua.LString(data))
	return 1
}

func (b *BIOS) signal(L *lua.LState) int {
	v, ok := b.m.Signal(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LBool(v))
	return 1
}

func (b *BIOS) uptime(L *lua.LState) int {
	L.Push(lua.LNumber(b.m.Uptime()))
	return 1
}

func (b *BIOS) log(L *lua.LState) int {
	env := b.m.Env()
	logger.Log(env, env.Tag("bios"), L.CheckString(1))
	return 0
}

func (b *BIOS) memsize(L *lua.LState) int {
	L.Push(lua.LNumber(b.m.MemorySize()))
	return 1
}

func (b *BIOS) slots(L *lua.LState) int {
	L.Push(lua.LNumber(b.m.Slots()))
	return 1
}

func (b *BIOS) device(L *lua.LState) int {
	id, ok := b.m.DeviceID(L.CheckInt(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(id))
	return 1
}

func (b *BIOS) hostid(L *lua.LState) int {
	L.Push(lua.LString(b.m.ID()))
	return 1
}
