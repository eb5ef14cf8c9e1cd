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
package monitoring_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/curioustorvald/tsvm/environment"
	"github.com/curioustorvald/tsvm/govern"
	"github.com/curioustorvald/tsvm/hardware"
	"github.com/curioustorvald/tsvm/hardware/memory/rom"
	"github.com/curioustorvald/tsvm/hardware/watchdog"
	"github.com/curioustorvald/tsvm/logger"
	"github.com/curioustorvald/tsvm/monitoring"
	"github.com/curioustorvald/tsvm/test"
)

func newHost(t *testing.T) *hardware.Host {
	t.Helper()

	env, err := environment.NewEnvironment("monitored", nil)
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, env.Prefs.MemorySize.Set(4096))
	test.DemandSuccess(t, env.Prefs.Logging.Set(false))

	img, _ := rom.NewImage("bios", []byte{0})
	set, _ := rom.NewSet(img)

	h, err := hardware.NewHost(env, set, nil)
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, h.Boot())

	return h
}

func get(t *testing.T, url string, v any) int {
	t.Helper()
	rsp, err := http.Get(url)
	test.DemandSuccess(t, err)
	defer rsp.Body.Close()
	if v != nil && rsp.StatusCode == http.StatusOK {
		test.ExpectSuccess(t, json.NewDecoder(rsp.Body).Decode(v))
	}
	return rsp.StatusCode
}

func post(t *testing.T, url string) int {
	t.Helper()
	rsp, err := http.Post(url, "text/plain", nil)
	test.DemandSuccess(t, err)
	rsp.Body.Close()
	return rsp.StatusCode
}

func TestHosts(t *testing.T) {
	m := monitoring.NewMonitor()
	srv := httptest.NewServer(m.Router())
	defer srv.Close()

	h := newHost(t)
	m.Register(h)

	var hosts []struct {
		ID    string `json:"id"`
		Label string `json:"label"`
		State string `json:"state"`
	}
	test.ExpectEquality(t, get(t, srv.URL+"/api/hosts", &hosts), http.StatusOK)
	test.DemandEquality(t, len(hosts), 1)
	test.ExpectEquality(t, hosts[0].ID, h.ID())
	test.ExpectEquality(t, hosts[0].Label, "monitored")
	test.ExpectEquality(t, hosts[0].State, "booted")

	test.ExpectSuccess(t, h.RunForSteps(7))

	var snapshot struct {
		MemorySize int   `json:"memsize"`
		Uptime     int64 `json:"uptime"`
		Ports      []struct {
			State string `json:"state"`
		} `json:"ports"`
	}
	test.ExpectEquality(t, get(t, srv.URL+"/api/host/"+h.ID(), &snapshot), http.StatusOK)
	test.ExpectEquality(t, snapshot.MemorySize, 4096)
	test.ExpectEquality(t, snapshot.Uptime, int64(7))
	test.DemandEquality(t, len(snapshot.Ports), h.Slots())
	test.ExpectEquality(t, snapshot.Ports[0].State, "IDLE")

	test.ExpectEquality(t, get(t, srv.URL+"/api/host/nosuchhost", nil), http.StatusNotFound)
}

func TestAcknowledge(t *testing.T) {
	m := monitoring.NewMonitor()
	srv := httptest.NewServer(m.Router())
	defer srv.Close()

	h := newHost(t)
	m.Register(h)

	unsatisfied := watchdog.ConditionFunc(func() bool { return false })
	test.DemandSuccess(t, h.Watchdogs().RegisterCondition(watchdog.Spec{Name: "slot1/stall", Deadline: 1}, unsatisfied))
	test.DemandSuccess(t, h.Watchdogs().Arm("slot1/stall", 0))
	test.ExpectSuccess(t, h.Step())

	var dogs []struct {
		Name  string `json:"name"`
		State string `json:"state"`
		Trips int    `json:"trips"`
	}
	test.ExpectEquality(t, get(t, srv.URL+"/api/host/"+h.ID()+"/watchdogs", &dogs), http.StatusOK)

	var found bool
	for _, d := range dogs {
		if d.Name == "slot1/stall" {
			found = true
			test.ExpectEquality(t, d.State, watchdog.Tripped.String())
			test.ExpectEquality(t, d.Trips, 1)
		}
	}
	test.ExpectEquality(t, found, true)

	// watchdog names can contain slashes
	test.ExpectEquality(t, post(t, srv.URL+"/api/host/"+h.ID()+"/acknowledge/slot1/stall"), http.StatusNoContent)
	state, _ := h.Watchdogs().State("slot1/stall")
	test.ExpectEquality(t, state, watchdog.Armed)

	test.ExpectEquality(t, post(t, srv.URL+"/api/host/"+h.ID()+"/acknowledge/nosuchdog"), http.StatusNotFound)
}

func TestPause(t *testing.T) {
	m := monitoring.NewMonitor()
	srv := httptest.NewServer(m.Router())
	defer srv.Close()

	test.ExpectEquality(t, m.State(), govern.Running)
	test.ExpectEquality(t, post(t, srv.URL+"/api/pause"), http.StatusNoContent)
	test.ExpectEquality(t, m.State(), govern.Paused)
	test.ExpectEquality(t, post(t, srv.URL+"/api/continue"), http.StatusNoContent)
	test.ExpectEquality(t, m.State(), govern.Running)

	// the pause request must be a POST
	test.ExpectEquality(t, get(t, srv.URL+"/api/pause", nil), http.StatusMethodNotAllowed)
}

func TestResource(t *testing.T) {
	m := monitoring.NewMonitor()
	m.ProfileDuration = 10 * time.Millisecond
	srv := httptest.NewServer(m.Router())
	defer srv.Close()

	var res struct {
		MemorySize uint64 `json:"memory_size"`
	}
	test.ExpectEquality(t, get(t, srv.URL+"/api/resource", &res), http.StatusOK)
	test.ExpectInequality(t, res.MemorySize, 0)

	var prof struct {
		Samples int64 `json:"samples"`
	}
	test.ExpectEquality(t, get(t, srv.URL+"/api/profile", &prof), http.StatusOK)
}

func TestStartStop(t *testing.T) {
	m := monitoring.NewMonitor()
	url, err := m.Start("")
	test.DemandSuccess(t, err)

	_, err = m.Start("")
	test.ExpectFailure(t, err)

	test.ExpectEquality(t, get(t, url+"/api/hosts", nil), http.StatusOK)
	test.ExpectSuccess(t, m.Stop(t.Context()))
}

func TestLog(t *testing.T) {
	m := monitoring.NewMonitor()
	srv := httptest.NewServer(m.Router())
	defer srv.Close()

	logger.Log(logger.Allow, "monitor", "first")
	logger.Log(logger.Allow, "monitor", "second")
	logger.Log(logger.Allow, "monitor", "second")

	var ents []struct {
		Tag     string `json:"tag"`
		Detail  string `json:"detail"`
		Repeats int    `json:"repeats"`
	}
	test.ExpectEquality(t, get(t, srv.URL+"/api/log?n=1&format=json", &ents), http.StatusOK)
	test.DemandEquality(t, len(ents), 1)
	test.ExpectEquality(t, ents[0].Tag, "monitor")
	test.ExpectEquality(t, ents[0].Detail, "second")
	test.ExpectEquality(t, ents[0].Repeats, 2)

	rsp, err := http.Get(srv.URL + "/api/log?n=2")
	test.DemandSuccess(t, err)
	defer rsp.Body.Close()
	body, err := io.ReadAll(rsp.Body)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, string(body), "monitor: first\nmonitor: second (repeat x2)\n")

	test.ExpectEquality(t, get(t, srv.URL+"/api/log?n=-1", nil), http.StatusBadRequest)
}
