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

package modem_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/curioustorvald/tsvm/environment"
	"github.com/curioustorvald/tsvm/hardware/bus"
	"github.com/curioustorvald/tsvm/hardware/peripherals"
	"github.com/curioustorvald/tsvm/hardware/peripherals/disk"
	"github.com/curioustorvald/tsvm/hardware/peripherals/modem"
	"github.com/curioustorvald/tsvm/test"
)

func newModem(t *testing.T) *modem.Modem {
	t.Helper()
	env, err := environment.NewEnvironment(environment.MainEmulation, nil)
	test.DemandSuccess(t, err)
	m, err := modem.NewModem(peripherals.Context{Env: env, Slot: 2})
	test.DemandSuccess(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

// wait for the modem to stop being busy
func waitIdle(t *testing.T, m *modem.Modem) peripherals.Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s := m.Status(); s != peripherals.Busy {
			return s
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("modem is still busy")
	return peripherals.Busy
}

func TestQueries(t *testing.T) {
	m := newModem(t)

	test.ExpectSuccess(t, m.WriteBlock(0, []byte("DEVTYP\x17")))
	data, err := m.ReadBlock(0, 100)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, string(data), "HTTP\x17")

	test.ExpectSuccess(t, m.WriteBlock(0, []byte("DEVSTU")))
	data, _ = m.ReadBlock(0, 100)
	test.ExpectEquality(t, string(data), "\x00\x1fREADY\x17")

	err = m.WriteBlock(0, []byte("FROB"))
	test.ExpectEquality(t, errors.Is(err, modem.ErrIllegalCommand), true)
	test.ExpectEquality(t, m.Code(), disk.IllegalCommand)

	test.ExpectSuccess(t, m.WriteBlock(0, []byte("DEVRST")))
	test.ExpectEquality(t, m.Code(), disk.Standby)
}

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "hello from the network")
	}))
	defer srv.Close()

	m := newModem(t)

	err := m.WriteBlock(0, []byte("GET "+srv.URL))
	test.ExpectEquality(t, errors.Is(err, peripherals.ErrBusy), true)

	test.ExpectEquality(t, waitIdle(t, m), peripherals.Idle)

	data, err := m.ReadBlock(0, 5)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, string(data), "hello")
	data, err = m.ReadBlock(0, 1000)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, string(data), " from the network")
}

func TestGetThroughBus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "payload")
	}))
	defer srv.Close()

	m := newModem(t)
	b, err := bus.NewBus(nil, 3, nil)
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, b.Attach(2, m))

	err = b.BeginWrite(2, 0, []byte("GET "+srv.URL))
	test.ExpectEquality(t, errors.Is(err, bus.ErrPending), true)
	test.ExpectEquality(t, b.State(2), bus.WritePending)

	deadline := time.Now().Add(5 * time.Second)
	for b.State(2) != bus.Idle && time.Now().Before(deadline) {
		_, _ = b.Poll(2)
		time.Sleep(time.Millisecond)
	}
	test.DemandEquality(t, b.State(2), bus.Idle)

	data, err := b.BeginRead(2, 0, 4096)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, string(data), "payload")
}

func TestGetFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	m := newModem(t)

	err := m.WriteBlock(0, []byte("GET not a url"))
	test.ExpectEquality(t, errors.Is(err, modem.ErrMalformedURL), true)
	test.ExpectEquality(t, m.Code(), disk.NoSuchFile)

	err = m.WriteBlock(0, []byte("GET "+srv.URL+"/missing"))
	test.ExpectEquality(t, errors.Is(err, peripherals.ErrBusy), true)
	test.ExpectEquality(t, waitIdle(t, m), peripherals.Fault)
	test.ExpectEquality(t, m.Code(), disk.SystemIOError)

	// reset clears the fault
	test.ExpectSuccess(t, m.WriteBlock(0, []byte("DEVRST")))
	test.ExpectEquality(t, m.Status(), peripherals.Idle)
}

func TestAbort(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	m := newModem(t)

	err := m.WriteBlock(0, []byte("GET "+srv.URL))
	test.ExpectEquality(t, errors.Is(err, peripherals.ErrBusy), true)
	test.ExpectEquality(t, m.Status(), peripherals.Busy)

	// a second fetch is refused while the first is in flight
	err = m.WriteBlock(0, []byte("GET "+srv.URL))
	test.ExpectEquality(t, errors.Is(err, modem.ErrInFlight), true)
	test.ExpectEquality(t, m.Code(), disk.FileAlreadyOpened)

	m.Abort()
	test.ExpectEquality(t, m.Status(), peripherals.Idle)
	test.ExpectEquality(t, m.Code(), disk.OperationFailed)

	// the late result of the cancelled fetch does not fault the modem
	time.Sleep(10 * time.Millisecond)
	test.ExpectEquality(t, m.Status(), peripherals.Idle)
}

func TestDial(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	test.DemandSuccess(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = io.Copy(conn, conn)
	}()

	m := newModem(t)

	err = m.WriteBlock(0, []byte("DIAL "+ln.Addr().String()))
	test.ExpectEquality(t, errors.Is(err, peripherals.ErrBusy), true)
	test.DemandEquality(t, waitIdle(t, m), peripherals.Idle)

	test.ExpectSuccess(t, m.WriteBlock(0, []byte("ping")))

	var echo []byte
	deadline := time.Now().Add(5 * time.Second)
	for len(echo) < 4 && time.Now().Before(deadline) {
		data, err := m.ReadBlock(0, 4)
		if errors.Is(err, peripherals.ErrBusy) {
			waitIdle(t, m)
			continue
		}
		test.DemandSuccess(t, err)
		echo = append(echo, data...)
	}
	test.ExpectEquality(t, string(echo), "ping")

	test.ExpectSuccess(t, m.WriteBlock(0, []byte("HANGUP")))

	err = m.WriteBlock(0, []byte("HANGUP"))
	test.ExpectEquality(t, errors.Is(err, modem.ErrNotConnected), true)
}

func TestDialer(t *testing.T) {
	env, _ := environment.NewEnvironment(environment.MainEmulation, nil)
	_, err := modem.NewModem(peripherals.Context{Env: env, Args: map[string]string{"dialer": "pigeon"}})
	test.ExpectFailure(t, err)
	_, err = modem.NewModem(peripherals.Context{Env: env, Args: map[string]string{"dialer": "serial", "baud": "19200"}})
	test.ExpectSuccess(t, err)
}

// a connection that records being closed
type lateConn struct {
	closed chan struct{}
}

func (c *lateConn) Read(_ []byte) (int, error)  { return 0, io.EOF }
func (c *lateConn) Write(b []byte) (int, error) { return len(b), nil }
func (c *lateConn) Close() error {
	close(c.closed)
	return nil
}

// a dialer that ignores cancellation and connects when released
type lateDialer struct {
	release chan struct{}
	conn    *lateConn
}

func (d *lateDialer) Dial(_ context.Context, _ string) (io.ReadWriteCloser, error) {
	<-d.release
	return d.conn, nil
}

// a connection made after the modem has been closed is not leaked
func TestCloseDuringDial(t *testing.T) {
	d := &lateDialer{
		release: make(chan struct{}),
		conn:    &lateConn{closed: make(chan struct{})},
	}

	m := newModem(t)
	m.SetDialer(d)

	err := m.WriteBlock(0, []byte("DIAL example.com:23"))
	test.ExpectEquality(t, errors.Is(err, peripherals.ErrBusy), true)

	test.ExpectSuccess(t, m.Close())
	close(d.release)

	select {
	case <-d.conn.closed:
	case <-time.After(5 * time.Second):
		t.Fatalf("late connection was not closed")
	}
	test.ExpectEquality(t, m.Status(), peripherals.Idle)
}
