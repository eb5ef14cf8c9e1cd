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
// Package tracing records the bus transfers and watchdog trips of one or more
// machine hosts to an SQLite database. Records are buffered and written in
// batches. The buffer is flushed when the batch is full, when Flush() or
// Close() is called, and when the program exits through atexit.
//
// The database has two tables:
//
//	transfers (id, host, tick, port, device, kind, block, length, outcome, error)
//	trips     (id, host, tick, name, source, deadline, error)
package tracing
