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

// Package clocks defines the ClockSource used by machine hosts and by their
// watchdogs.
//
// A Source is only ever queried. Implementations are safe for concurrent
// reads, which allows a single clock to be shared by a primary host and its
// coprocessor hosts.
package clocks

import (
	"sync/atomic"
	"time"
)

// Source is a monotonic, non-blocking tick provider.
type Source interface {
	NowTicks() int64
}

// Counter is a Source that advances only when told to. A machine host
// advances its Counter once for every step.
type Counter struct {
	ticks atomic.Int64
}

// NowTicks implements the Source interface.
func (c *Counter) NowTicks() int64 {
	return c.ticks.Load()
}

// Advance the counter by one tick. Returns the new tick value.
func (c *Counter) Advance() int64 {
	return c.ticks.Add(1)
}

// Wall is a Source measuring real-world time in units of Resolution since the
// Wall was created. The monotonic component of time.Time is used so changes to
// the system clock do not affect the tick count.
type Wall struct {
	start      time.Time
	Resolution time.Duration
}

// NewWall is the preferred method of initialisation for the Wall type. A
// resolution of zero or less defaults to one millisecond.
func NewWall(resolution time.Duration) *Wall {
	if resolution <= 0 {
		resolution = time.Millisecond
	}
	return &Wall{
		start:      time.Now(),
		Resolution: resolution,
	}
}

// NowTicks implements the Source interface.
func (w *Wall) NowTicks() int64 {
	return int64(time.Since(w.start) / w.Resolution)
}
