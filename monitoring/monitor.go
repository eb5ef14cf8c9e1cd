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
package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/curioustorvald/tsvm/govern"
	"github.com/curioustorvald/tsvm/hardware"
	"github.com/curioustorvald/tsvm/logger"
	"github.com/gorilla/mux"
)

// DefaultProfileDuration is the length of the CPU profile taken by the
// profile request.
const DefaultProfileDuration = time.Second

// Monitor serves the state of one or more hosts.
type Monitor struct {
	crit  sync.Mutex
	hosts []*hardware.Host

	paused atomic.Bool

	server   *http.Server
	listener net.Listener

	ProfileDuration time.Duration
}

// NewMonitor is the preferred method of initialisation for the Monitor type.
func NewMonitor() *Monitor {
	return &Monitor{
		ProfileDuration: DefaultProfileDuration,
	}
}

// Register a host with the monitor.
func (m *Monitor) Register(h *hardware.Host) {
	m.crit.Lock()
	defer m.crit.Unlock()
	m.hosts = append(m.hosts, h)
}

func (m *Monitor) host(id string) (*hardware.Host, bool) {
	m.crit.Lock()
	defer m.crit.Unlock()
	for _, h := range m.hosts {
		if h.ID() == id {
			return h, true
		}
	}
	return nil, false
}

// State returns Paused if a pause has been requested and Running otherwise.
func (m *Monitor) State() govern.State {
	if m.paused.Load() {
		return govern.Paused
	}
	return govern.Running
}

// Router returns the handler for the monitor's API.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/hosts", m.listHosts).Methods(http.MethodGet)
	r.HandleFunc("/api/host/{id}", m.hostSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/api/host/{id}/watchdogs", m.hostWatchdogs).Methods(http.MethodGet)
	r.HandleFunc("/api/host/{id}/acknowledge/{name:.+}", m.acknowledge).Methods(http.MethodPost)
	r.HandleFunc("/api/pause", m.pause).Methods(http.MethodPost)
	r.HandleFunc("/api/continue", m.resume).Methods(http.MethodPost)
	r.HandleFunc("/api/log", m.log).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.resource).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.profile).Methods(http.MethodGet)
	return r
}

// Start serving on the address. An empty address or a zero port chooses a
// free port. Returns the URL of the server.
func (m *Monitor) Start(addr string) (string, error) {
	if m.server != nil {
		return "", fmt.Errorf("monitoring: already started")
	}

	if addr == "" {
		addr = "localhost:0"
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("monitoring: %w", err)
	}

	m.listener = l
	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := m.server.Serve(l)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log(logger.Allow, "monitoring", err)
		}
	}()

	url := fmt.Sprintf("http://%s", l.Addr())
	logger.Logf(logger.Allow, "monitoring", "serving on %s", url)

	return url, nil
}

// Stop the server.
func (m *Monitor) Stop(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	err := m.server.Shutdown(ctx)
	m.server = nil
	m.listener = nil
	if err != nil {
		return fmt.Errorf("monitoring: %w", err)
	}
	return nil
}
