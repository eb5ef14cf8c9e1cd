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
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/curioustorvald/tsvm/hardware"
	"github.com/curioustorvald/tsvm/logger"
	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
)

type hostSummary struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	State string `json:"state"`
}

type portView struct {
	Index  int    `json:"index"`
	State  string `json:"state"`
	Device string `json:"device,omitempty"`
	Status string `json:"status,omitempty"`
	Err    string `json:"error,omitempty"`
}

type watchdogView struct {
	Name      string `json:"name"`
	Source    string `json:"source"`
	State     string `json:"state"`
	Deadline  int    `json:"deadline"`
	Remaining int    `json:"remaining"`
	Trips     int    `json:"trips"`
}

type windowView struct {
	Name string `json:"name"`
	Base int    `json:"base"`
	Size int    `json:"size"`
}

type hostView struct {
	hostSummary
	MemorySize int             `json:"memsize"`
	Clock      int64           `json:"clock"`
	Uptime     int64           `json:"uptime"`
	Roms       []windowView    `json:"roms"`
	Windows    []windowView    `json:"windows"`
	Ports      []portView      `json:"ports"`
	Watchdogs  []watchdogView  `json:"watchdogs"`
	Signals    map[string]bool `json:"signals"`
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

type profileEntry struct {
	Function string `json:"function"`
	Samples  int64  `json:"samples"`
}

type profileRsp struct {
	Duration time.Duration  `json:"duration"`
	Samples  int64          `json:"samples"`
	Top      []profileEntry `json:"top"`
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

func summarise(h *hardware.Host) hostSummary {
	s := h.Snapshot()
	return hostSummary{ID: s.ID, Label: s.Label, State: s.State}
}

func watchdogViews(h *hardware.Host) []watchdogView {
	var v []watchdogView
	for _, i := range h.Watchdogs().All() {
		v = append(v, watchdogView{
			Name:      i.Name,
			Source:    i.Source,
			State:     i.State.String(),
			Deadline:  i.Deadline,
			Remaining: i.Remaining,
			Trips:     i.Trips,
		})
	}
	return v
}

func (m *Monitor) listHosts(w http.ResponseWriter, _ *http.Request) {
	m.crit.Lock()
	hosts := append([]*hardware.Host(nil), m.hosts...)
	m.crit.Unlock()

	rsp := make([]hostSummary, 0, len(hosts))
	for _, h := range hosts {
		rsp = append(rsp, summarise(h))
	}
	writeJSON(w, rsp)
}

func (m *Monitor) findHostOr404(w http.ResponseWriter, r *http.Request) *hardware.Host {
	id := mux.Vars(r)["id"]
	h, ok := m.host(id)
	if !ok {
		http.Error(w, "no host "+id, http.StatusNotFound)
		return nil
	}
	return h
}

func (m *Monitor) hostSnapshot(w http.ResponseWriter, r *http.Request) {
	h := m.findHostOr404(w, r)
	if h == nil {
		return
	}

	s := h.Snapshot()
	v := hostView{
		hostSummary: hostSummary{ID: s.ID, Label: s.Label, State: s.State},
		MemorySize:  s.MemorySize,
		Clock:       s.Clock,
		Uptime:      s.Uptime,
		Watchdogs:   watchdogViews(h),
		Signals:     s.Signals,
	}
	for _, rw := range s.Roms {
		v.Roms = append(v.Roms, windowView{Name: rw.Name, Base: rw.Base, Size: rw.Size})
	}
	for _, mw := range s.Windows {
		v.Windows = append(v.Windows, windowView{Name: string(mw.Device), Base: mw.Base, Size: mw.Size})
	}
	for _, p := range s.Ports {
		pv := portView{
			Index:  p.Index,
			State:  p.State.String(),
			Device: string(p.Device),
			Err:    p.Err,
		}
		if p.Device != "" {
			pv.Status = p.Status.String()
		}
		v.Ports = append(v.Ports, pv)
	}

	writeJSON(w, v)
}

func (m *Monitor) hostWatchdogs(w http.ResponseWriter, r *http.Request) {
	h := m.findHostOr404(w, r)
	if h == nil {
		return
	}
	writeJSON(w, watchdogViews(h))
}

func (m *Monitor) acknowledge(w http.ResponseWriter, r *http.Request) {
	h := m.findHostOr404(w, r)
	if h == nil {
		return
	}

	name := mux.Vars(r)["name"]
	if err := h.Watchdogs().Acknowledge(name); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) pause(w http.ResponseWriter, _ *http.Request) {
	m.paused.Store(true)
	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) resume(w http.ResponseWriter, _ *http.Request) {
	m.paused.Store(false)
	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) log(w http.ResponseWriter, r *http.Request) {
	n := 20
	if s := r.URL.Query().Get("n"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			http.Error(w, "bad value for n", http.StatusBadRequest)
			return
		}
		n = v
	}

	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, logEntries(n))
		return
	}

	b := &strings.Builder{}
	logger.Tail(b, n)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}

type logEntry struct {
	Time    time.Time `json:"time"`
	Tag     string    `json:"tag"`
	Detail  string    `json:"detail"`
	Repeats int       `json:"repeats"`
}

// the last n entries of the central log
func logEntries(n int) []logEntry {
	var ents []logEntry
	logger.BorrowLog(func(entries []logger.Entry) {
		ents = make([]logEntry, 0, min(n, len(entries)))
		for _, e := range entries[max(0, len(entries)-n):] {
			ents = append(ents, logEntry{
				Time:    e.Timestamp,
				Tag:     e.Tag,
				Detail:  e.Detail,
				Repeats: e.Repeats(),
			})
		}
	})
	return ents
}

func (m *Monitor) resource(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpu, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	mem, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpu,
		MemorySize: mem.RSS,
	})
}

// the number of functions listed in the profile summary
const profileTop = 20

func (m *Monitor) profile(w http.ResponseWriter, _ *http.Request) {
	buf := &bytes.Buffer{}

	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	time.Sleep(m.ProfileDuration)
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, summariseProfile(prof, m.ProfileDuration))
}

// the flat sample count of every function, most samples first
func summariseProfile(prof *profile.Profile, d time.Duration) profileRsp {
	rsp := profileRsp{Duration: d}

	flat := make(map[string]int64)
	for _, s := range prof.Sample {
		if len(s.Value) == 0 {
			continue
		}
		rsp.Samples += s.Value[0]
		if len(s.Location) == 0 || len(s.Location[0].Line) == 0 || s.Location[0].Line[0].Function == nil {
			continue
		}
		flat[s.Location[0].Line[0].Function.Name] += s.Value[0]
	}

	for f, n := range flat {
		rsp.Top = append(rsp.Top, profileEntry{Function: f, Samples: n})
	}
	sort.Slice(rsp.Top, func(i, j int) bool {
		if rsp.Top[i].Samples == rsp.Top[j].Samples {
			return rsp.Top[i].Function < rsp.Top[j].Function
		}
		return rsp.Top[i].Samples > rsp.Top[j].Samples
	})
	if len(rsp.Top) > profileTop {
		rsp.Top = rsp.Top[:profileTop]
	}

	return rsp
}
