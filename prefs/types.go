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

package prefs

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Value represents the actual Go preference value.
type Value any

// types support by the prefs system must implement the pref interface.
type pref interface {
	fmt.Stringer
	Set(value Value) error
	Get() Value
	Reset() error
}

// hooks and atomic storage shared by the concrete pref types.
type typed[T any] struct {
	value    atomic.Value // T
	hookPre  func(value Value) error
	hookPost func(value Value) error
}

func (p *typed[T]) store(nv T) error {
	if p.hookPre != nil {
		if err := p.hookPre(nv); err != nil {
			return err
		}
	}

	p.value.Store(nv)

	if p.hookPost != nil {
		if err := p.hookPost(nv); err != nil {
			return err
		}
	}

	return nil
}

func (p *typed[T]) load() T {
	var zero T
	ov := p.value.Load()
	if ov == nil {
		return zero
	}
	return ov.(T)
}

// SetHookPre sets the callback function to be called just before the prefs
// value is updated. Note that even if the value hasn't changed, the callback
// will be executed.
func (p *typed[T]) SetHookPre(f func(value Value) error) {
	p.hookPre = f
}

// SetHookPost sets the callback function to be called just after the prefs
// value is updated. Note that even if the value hasn't changed, the callback
// will be executed.
func (p *typed[T]) SetHookPost(f func(value Value) error) {
	p.hookPost = f
}

// Bool implements a boolean type in the prefs system.
type Bool struct {
	typed[bool]
}

func (p *Bool) String() string {
	return fmt.Sprintf("%v", p.load())
}

// Set new value to Bool type. New value must be of type bool or string. A
// string value of anything other than "true" (case insensitive) will set the
// value to false.
func (p *Bool) Set(v Value) error {
	switch v := v.(type) {
	case bool:
		return p.store(v)
	case string:
		return p.store(strings.ToLower(strings.TrimSpace(v)) == "true")
	}
	return fmt.Errorf("prefs: cannot convert %T to prefs.Bool", v)
}

// Get returns the raw pref value.
func (p *Bool) Get() Value {
	return p.load()
}

// Reset sets the boolean value to false.
func (p *Bool) Reset() error {
	return p.Set(false)
}

// String implements a string type in the prefs system.
type String struct {
	typed[string]
}

func (p *String) String() string {
	return p.load()
}

// Set new value to String type. Values of any other type are formatted with
// the %v verb.
func (p *String) Set(v Value) error {
	return p.store(fmt.Sprintf("%v", v))
}

// Get returns the raw pref value.
func (p *String) Get() Value {
	return p.load()
}

// Reset sets the string value to the empty string.
func (p *String) Reset() error {
	return p.Set("")
}

// Int implements an integer type in the prefs system.
type Int struct {
	typed[int]
}

func (p *Int) String() string {
	return strconv.Itoa(p.load())
}

// Set new value to Int type. New value can be an int or string.
func (p *Int) Set(v Value) error {
	switch v := v.(type) {
	case int:
		return p.store(v)
	case int32:
		return p.store(int(v))
	case int64:
		return p.store(int(v))
	case string:
		nv, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("prefs: cannot convert %T to prefs.Int: %w", v, err)
		}
		return p.store(nv)
	}
	return fmt.Errorf("prefs: cannot convert %T to prefs.Int", v)
}

// Get returns the raw pref value.
func (p *Int) Get() Value {
	return p.load()
}

// Reset sets the int value to zero.
func (p *Int) Reset() error {
	return p.Set(0)
}

// Generic is a general purpose preferences type, useful for values that
// cannot be represented by a single live value. You must use the NewGeneric()
// function to initialise a new instance of Generic.
//
// The Generic type does not have a way of registering a callback function.
type Generic struct {
	crit sync.Mutex
	set  func(string) error
	get  func() string
}

// NewGeneric is the preferred method of initialisation for the Generic type.
func NewGeneric(set func(string) error, get func() string) *Generic {
	return &Generic{
		set: set,
		get: get,
	}
}

func (p *Generic) String() string {
	p.crit.Lock()
	defer p.crit.Unlock()
	return p.get()
}

// Set triggers the set value procedure for the generic type.
func (p *Generic) Set(v Value) error {
	p.crit.Lock()
	defer p.crit.Unlock()
	return p.set(fmt.Sprintf("%v", v))
}

// Get triggers the get value procedure for the generic type.
func (p *Generic) Get() Value {
	return p.String()
}

// Reset sets the generic value to the empty string.
func (p *Generic) Reset() error {
	return p.Set("")
}
