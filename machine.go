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
package main

import (
	"errors"
	"fmt"

	"github.com/curioustorvald/tsvm/environment"
	"github.com/curioustorvald/tsvm/hardware"
	"github.com/curioustorvald/tsvm/hardware/interp/luabios"
	"github.com/curioustorvald/tsvm/hardware/peripherals"
	"github.com/curioustorvald/tsvm/hardware/peripherals/catalog"
	"github.com/curioustorvald/tsvm/hardware/preferences"
	"github.com/curioustorvald/tsvm/logger"
	"github.com/curioustorvald/tsvm/prefs"
	"github.com/curioustorvald/tsvm/resources"
	"github.com/curioustorvald/tsvm/romloader"
	"github.com/curioustorvald/tsvm/session"
)

// machine is a booted host with the BIOS interpreter and a session of
// peripherals.
type machine struct {
	host    *hardware.Host
	bios    *luabios.BIOS
	session *session.Session
}

// peripheralEntries returns the entries named on the command line or the
// default entries if there are none.
func (opts *options) peripheralEntries() ([]peripherals.Entry, error) {
	if len(opts.entries) == 0 {
		return catalog.DefaultEntries(), nil
	}

	ents := make([]peripherals.Entry, 0, len(opts.entries))
	for _, s := range opts.entries {
		e, err := peripherals.ParseEntry(s)
		if err != nil {
			return nil, err
		}
		ents = append(ents, e)
	}
	return ents, nil
}

func (opts *options) environment() (*environment.Environment, error) {
	pth, err := resources.JoinPath(prefs.DefaultPrefsFile)
	if err != nil {
		return nil, err
	}

	p, err := preferences.NewPreferences(pth)
	if err != nil {
		return nil, err
	}

	return environment.NewEnvironment(environment.MainEmulation, p)
}

// newMachine creates and boots a host and attaches the session. The params
// argument is completed with the storage root and the peripheral entries.
func (opts *options) newMachine(params session.Params) (*machine, error) {
	env, err := opts.environment()
	if err != nil {
		return nil, err
	}

	ents, err := opts.peripheralEntries()
	if err != nil {
		return nil, err
	}
	params.Extra = append(params.Extra, ents...)

	params.StorageRoot = opts.storage
	if params.StorageRoot == "" {
		params.StorageRoot = env.Prefs.StorageRoot.Get().(string)
	}
	if params.StorageRoot == "" {
		params.StorageRoot, err = resources.StorageRoot()
		if err != nil {
			return nil, err
		}
	}

	ids := opts.roms
	if len(ids) == 0 {
		ids = env.Prefs.RomList()
	}

	roms, err := romloader.NewLoader(env).LoadSet(ids...)
	if err != nil {
		return nil, err
	}

	host, err := hardware.NewHost(env, roms, nil)
	if err != nil {
		return nil, err
	}

	m := &machine{
		host: host,
		bios: luabios.NewBIOS(),
	}
	host.SetInterpreter(m.bios)

	if err := host.Boot(); err != nil {
		m.close()
		return nil, err
	}

	m.session, err = session.Create(host, params, catalog.NewRegistry())
	if err != nil {
		m.close()
		return nil, err
	}

	logger.Logf(env, env.Tag("tsvm"), "host %s booted with %d roms", host.ID(), roms.Len())

	return m, nil
}

// close the session and destroy the host. errors are logged.
func (m *machine) close() {
	if m.session != nil {
		m.session.Teardown()
	}
	if err := m.host.Destroy(); err != nil && !errors.Is(err, hardware.ErrDestroyed) {
		logger.Log(logger.Allow, "tsvm", fmt.Errorf("destroy: %w", err))
	}
	m.bios.Close()
}
