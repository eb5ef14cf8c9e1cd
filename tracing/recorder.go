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
package tracing

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	// sqlite driver for database/sql
	_ "github.com/mattn/go-sqlite3"

	"github.com/curioustorvald/tsvm/hardware"
	"github.com/curioustorvald/tsvm/hardware/bus"
	"github.com/curioustorvald/tsvm/hardware/watchdog"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DefaultBatchSize is the number of records buffered before they are written
// to the database.
const DefaultBatchSize = 1000

// ErrExists is returned by NewRecorder() if the database file already exists.
var ErrExists = errors.New("trace database already exists")

type transferRecord struct {
	id   string
	host string
	tick int64
	ev   bus.TransferEvent
}

type tripRecord struct {
	id   string
	host string
	trip watchdog.Trip
}

// Recorder writes trace records to an SQLite database.
type Recorder struct {
	db   *sql.DB
	path string

	transferStmt *sql.Stmt
	tripStmt     *sql.Stmt

	// the buffers can be added to from device goroutines through the bus
	// observer so they are protected by a critical section
	crit      sync.Mutex
	transfers []transferRecord
	trips     []tripRecord
	closed    bool

	BatchSize int
}

// NewRecorder creates a new database at path. If path is empty then a unique
// name in the current directory is used.
func NewRecorder(path string) (*Recorder, error) {
	if path == "" {
		path = fmt.Sprintf("tsvm_trace_%s.sqlite3", xid.New().String())
	}

	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("tracing: %w: %s", ErrExists, path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	r := &Recorder{
		db:        db,
		path:      path,
		BatchSize: DefaultBatchSize,
	}

	if err := r.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := r.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	atexit.Register(func() { _ = r.Close() })

	return r, nil
}

func (r *Recorder) createTables() error {
	for _, q := range []string{
		`CREATE TABLE transfers (
			id TEXT PRIMARY KEY,
			host TEXT,
			tick INTEGER,
			port INTEGER,
			device TEXT,
			kind TEXT,
			block INTEGER,
			length INTEGER,
			outcome TEXT,
			error TEXT
		)`,
		`CREATE TABLE trips (
			id TEXT PRIMARY KEY,
			host TEXT,
			tick INTEGER,
			name TEXT,
			source TEXT,
			deadline INTEGER,
			error TEXT
		)`,
		`CREATE INDEX transfers_host ON transfers (host, tick)`,
		`CREATE INDEX trips_host ON trips (host, tick)`,
	} {
		if _, err := r.db.Exec(q); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}
	return nil
}

func (r *Recorder) prepareStatements() error {
	var err error

	r.transferStmt, err = r.db.Prepare(`INSERT INTO transfers VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	r.tripStmt, err = r.db.Prepare(`INSERT INTO trips VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	return nil
}

// Path returns the filename of the database.
func (r *Recorder) Path() string {
	return r.path
}

// Attach the recorder to the host. Every transfer on the host's bus and
// every trip of the host's watchdogs is recorded.
func (r *Recorder) Attach(h *hardware.Host) {
	id := h.ID()
	clk := h.Clock()

	h.Bus().AddObserver(bus.ObserverFunc(func(ev bus.TransferEvent) {
		r.add(func() bool {
			r.transfers = append(r.transfers, transferRecord{
				id:   xid.New().String(),
				host: id,
				tick: clk.NowTicks(),
				ev:   ev,
			})
			return len(r.transfers) >= r.BatchSize
		})
	}))

	h.Watchdogs().AddObserver(func(trip watchdog.Trip) {
		r.add(func() bool {
			r.trips = append(r.trips, tripRecord{
				id:   xid.New().String(),
				host: id,
				trip: trip,
			})
			return len(r.trips) >= r.BatchSize
		})
	})
}

// add a record with the critical section held. the record function returns
// true if the buffers should be flushed
func (r *Recorder) add(record func() bool) {
	r.crit.Lock()
	defer r.crit.Unlock()

	if r.closed {
		return
	}

	if record() {
		// errors are reported by the next call to Flush() or Close()
		_ = r.flush()
	}
}

// Flush writes the buffered records to the database.
func (r *Recorder) Flush() error {
	r.crit.Lock()
	defer r.crit.Unlock()

	if r.closed {
		return nil
	}

	return r.flush()
}

// must be called with the critical section held
func (r *Recorder) flush() error {
	if len(r.transfers) == 0 && len(r.trips) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	for _, t := range r.transfers {
		_, err = tx.Stmt(r.transferStmt).Exec(
			t.id, t.host, t.tick,
			t.ev.Port, string(t.ev.Device), t.ev.Kind.String(),
			t.ev.Offset, t.ev.Length, t.ev.Outcome.String(),
			errorString(t.ev.Err),
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("tracing: %w", err)
		}
	}

	for _, t := range r.trips {
		_, err = tx.Stmt(r.tripStmt).Exec(
			t.id, t.host, t.trip.At,
			t.trip.Name, t.trip.Source, t.trip.Deadline,
			errorString(t.trip.Err),
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("tracing: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	r.transfers = r.transfers[:0]
	r.trips = r.trips[:0]

	return nil
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Close flushes the buffered records and closes the database. Closing a
// closed recorder does nothing.
func (r *Recorder) Close() error {
	r.crit.Lock()
	defer r.crit.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	err := r.flush()
	return errors.Join(err, r.db.Close())
}

// Count returns the number of records in the named table. Buffered records
// are not counted.
func (r *Recorder) Count(table string) (int, error) {
	switch table {
	case "transfers", "trips":
	default:
		return 0, fmt.Errorf("tracing: no table %q", table)
	}

	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		return 0, fmt.Errorf("tracing: %w", err)
	}
	return n, nil
}
