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

package modem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/curioustorvald/tsvm/environment"
	"github.com/curioustorvald/tsvm/hardware/peripherals"
	"github.com/curioustorvald/tsvm/hardware/peripherals/disk"
	"github.com/curioustorvald/tsvm/logger"
)

// ID is the identity tag of the modem.
const ID = peripherals.ID("modem")

// MaxResponse is the maximum number of bytes accepted from a single fetch.
const MaxResponse = 1048576

// Sentinel errors returned by the modem.
var (
	ErrIllegalCommand = errors.New("illegal command")
	ErrMalformedURL   = errors.New("malformed url")
	ErrInFlight       = errors.New("operation already in flight")
	ErrNotConnected   = errors.New("not connected")
)

// the modem is doing one of these things
type activity int

const (
	standby activity = iota
	fetching
	dialing
	connected
)

// the result of a fetch or a dial
type result struct {
	gen  int
	data []byte
	conn io.ReadWriteCloser
	err  error
}

// an open connection and the goroutine reading from it
type link struct {
	conn io.ReadWriteCloser
	data chan []byte
	done chan struct{}
}

// Modem is an asynchronous modem.
type Modem struct {
	env *environment.Environment

	crit sync.Mutex

	client *http.Client
	dialer Dialer

	activity activity
	code     disk.StatusCode
	fault    bool

	// the in-flight operation can be cancelled. the generation is increased
	// whenever an in-flight operation is abandoned so that a late result can
	// be recognised
	cancel  context.CancelFunc
	gen     int
	results chan result

	link *link

	// a read is waiting for data from the connection
	waiting bool

	// data received from the network
	recv bytes.Buffer
}

// NewModem is the preferred method of initialisation for the Modem type.
//
// The "dialer" argument selects how DIAL connects. Valid values are "tcp",
// the default, and "serial". The speed of a serial line is set by the "baud"
// argument.
func NewModem(ctx peripherals.Context) (*Modem, error) {
	m := &Modem{
		env:     ctx.Env,
		client:  http.DefaultClient,
		results: make(chan result, 4),
	}

	switch ctx.Arg("dialer", "tcp") {
	case "tcp":
		m.dialer = &TCPDialer{}
	case "serial":
		baud, err := ctx.IntArg("baud", DefaultBaud)
		if err != nil {
			return nil, fmt.Errorf("modem: %w", err)
		}
		m.dialer = &SerialDialer{Baud: baud}
	default:
		return nil, fmt.Errorf("modem: unknown dialer: %s", ctx.Arg("dialer", ""))
	}

	return m, nil
}

// Factory creates a modem for a peripheral entry.
func Factory(ctx peripherals.Context) (peripherals.Device, error) {
	return NewModem(ctx)
}

// SetDialer changes how the modem connects to addresses.
func (m *Modem) SetDialer(d Dialer) {
	m.crit.Lock()
	defer m.crit.Unlock()
	m.dialer = d
}

// ID implements the peripherals.Device interface.
func (m *Modem) ID() peripherals.ID {
	return ID
}

// AttachNotify implements the peripherals.Device interface.
func (m *Modem) AttachNotify(_ int) {
}

// DetachNotify implements the peripherals.Device interface. The modem hangs
// up when it is detached.
func (m *Modem) DetachNotify() {
	m.crit.Lock()
	defer m.crit.Unlock()
	m.abandon()
	m.hangup()
}

// Code returns the status code of the modem.
func (m *Modem) Code() disk.StatusCode {
	m.crit.Lock()
	defer m.crit.Unlock()
	return m.code
}

// Status implements the peripherals.Device interface.
func (m *Modem) Status() peripherals.Status {
	m.crit.Lock()
	defer m.crit.Unlock()

	m.collect()

	switch {
	case m.fault:
		return peripherals.Fault
	case m.activity == fetching || m.activity == dialing:
		return peripherals.Busy
	case m.waiting && m.recv.Len() == 0:
		return peripherals.Busy
	}
	return peripherals.Idle
}

// ReadBlock implements the peripherals.Device interface. The offset is
// ignored. Up to length bytes of received data are returned.
func (m *Modem) ReadBlock(_ int64, length int) ([]byte, error) {
	m.crit.Lock()
	defer m.crit.Unlock()

	m.collect()

	if m.activity == fetching || m.activity == dialing {
		return nil, peripherals.ErrBusy
	}

	if m.recv.Len() == 0 && m.activity == connected {
		m.waiting = true
		return nil, peripherals.ErrBusy
	}
	m.waiting = false

	if length < 0 || length > m.recv.Len() {
		length = m.recv.Len()
	}

	data := make([]byte, length)
	copy(data, m.recv.Next(length))

	return data, nil
}

// WriteBlock implements the peripherals.Device interface. The offset is
// ignored.
func (m *Modem) WriteBlock(_ int64, data []byte) error {
	m.crit.Lock()
	defer m.crit.Unlock()

	m.collect()

	cmd := strings.TrimRight(string(data), "\x00\x17\r\n")

	// when connected everything other than HANGUP and DEVRST is sent to the
	// remote end
	if m.activity == connected {
		switch cmd {
		case "HANGUP":
			m.hangup()
			return nil
		case "DEVRST":
			m.reset()
			return nil
		}
		if _, err := m.link.conn.Write(data); err != nil {
			m.code = disk.SystemIOError
			return fmt.Errorf("modem: %w", err)
		}
		return nil
	}

	switch {
	case cmd == "DEVRST":
		m.reset()
	case cmd == "DEVSTU":
		m.recv.Reset()
		m.recv.Write(disk.ComposeAnswer(string([]byte{byte(m.code)}), m.code.String()))
	case cmd == "DEVTYP":
		m.recv.Reset()
		m.recv.Write(disk.ComposeAnswer("HTTP"))
	case cmd == "DEVNAM":
		m.recv.Reset()
		m.recv.Write(disk.ComposeAnswer("TSVM HTTP Modem"))
	case cmd == "HANGUP":
		m.code = disk.NoFileOpened
		return fmt.Errorf("modem: %w", ErrNotConnected)
	case strings.HasPrefix(cmd, "GET "):
		return m.get(strings.TrimSpace(cmd[4:]))
	case strings.HasPrefix(cmd, "DIAL "):
		return m.dial(strings.TrimSpace(cmd[5:]))
	default:
		m.code = disk.IllegalCommand
		return fmt.Errorf("modem: %w: %q", ErrIllegalCommand, cmd)
	}

	return nil
}

// must be called with the critical section held
func (m *Modem) begin(a activity) (context.Context, int, error) {
	if m.activity == fetching || m.activity == dialing {
		m.code = disk.FileAlreadyOpened
		return nil, 0, fmt.Errorf("modem: %w", ErrInFlight)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.activity = a
	m.fault = false
	m.recv.Reset()

	return ctx, m.gen, nil
}

// must be called with the critical section held
func (m *Modem) get(addr string) error {
	u, err := url.Parse(addr)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		m.code = disk.NoSuchFile
		return fmt.Errorf("modem: %w: %s", ErrMalformedURL, addr)
	}

	ctx, gen, err := m.begin(fetching)
	if err != nil {
		return err
	}

	logger.Logf(m.env, m.env.Tag("modem"), "fetching %s", u)

	go func(client *http.Client) {
		r := result{gen: gen}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			r.err = err
			m.deliver(r)
			return
		}

		resp, err := client.Do(req)
		if err != nil {
			r.err = err
			m.deliver(r)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			r.err = fmt.Errorf("%s: %s", u, resp.Status)
			m.deliver(r)
			return
		}

		r.data, r.err = io.ReadAll(io.LimitReader(resp.Body, MaxResponse))
		m.deliver(r)
	}(m.client)

	return peripherals.ErrBusy
}

// must be called with the critical section held
func (m *Modem) dial(addr string) error {
	if addr == "" {
		m.code = disk.IllegalCommand
		return fmt.Errorf("modem: %w: DIAL with no address", ErrIllegalCommand)
	}

	ctx, gen, err := m.begin(dialing)
	if err != nil {
		return err
	}

	logger.Logf(m.env, m.env.Tag("modem"), "dialing %s", addr)

	go func(dialer Dialer) {
		conn, err := dialer.Dial(ctx, addr)
		m.deliver(result{gen: gen, conn: conn, err: err})
	}(m.dialer)

	return peripherals.ErrBusy
}

// deliver the result of an operation goroutine. the result of an abandoned
// operation is dropped and any connection it made is closed.
func (m *Modem) deliver(r result) {
	m.crit.Lock()
	defer m.crit.Unlock()

	if r.gen != m.gen {
		if r.conn != nil {
			r.conn.Close()
		}
		return
	}
	m.results <- r
}

// conclude every queued result. never blocks.
//
// must be called with the critical section held
func (m *Modem) drain() {
	for {
		select {
		case r := <-m.results:
			m.conclude(r)
			continue
		default:
		}
		return
	}
}

// collect the result of the in-flight operation and any data from the
// connection. collect never blocks.
//
// must be called with the critical section held
func (m *Modem) collect() {
	m.drain()

	if m.link == nil {
		return
	}

	for {
		select {
		case b := <-m.link.data:
			if b == nil {
				logger.Log(m.env, m.env.Tag("modem"), "connection closed by remote")
				m.hangup()
				return
			}
			m.recv.Write(b)
			continue
		default:
		}
		return
	}
}

// must be called with the critical section held
func (m *Modem) conclude(r result) {
	if r.gen != m.gen {
		// the operation was abandoned
		if r.conn != nil {
			r.conn.Close()
		}
		return
	}

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	if r.err != nil {
		logger.Log(m.env, m.env.Tag("modem"), r.err)
		m.code = disk.SystemIOError
		m.fault = true
		m.activity = standby
		return
	}

	m.code = disk.Standby

	switch m.activity {
	case fetching:
		m.recv.Write(r.data)
		m.activity = standby
		logger.Logf(m.env, m.env.Tag("modem"), "received %d bytes", len(r.data))
	case dialing:
		m.connect(r.conn)
	}
}

// must be called with the critical section held
func (m *Modem) connect(conn io.ReadWriteCloser) {
	l := &link{
		conn: conn,
		data: make(chan []byte, 16),
		done: make(chan struct{}),
	}

	go func() {
		buf := make([]byte, disk.BlockSize)
		for {
			n, err := l.conn.Read(buf)
			if n > 0 {
				b := make([]byte, n)
				copy(b, buf[:n])
				select {
				case l.data <- b:
				case <-l.done:
					return
				}
			}
			if err != nil {
				select {
				case l.data <- nil:
				case <-l.done:
				}
				return
			}
		}
	}()

	m.link = l
	m.activity = connected
}

// must be called with the critical section held
func (m *Modem) hangup() {
	if m.link == nil {
		return
	}
	close(m.link.done)
	if err := m.link.conn.Close(); err != nil {
		logger.Log(m.env, m.env.Tag("modem"), err)
	}
	m.link = nil
	m.waiting = false
	if m.activity == connected {
		m.activity = standby
	}
}

// must be called with the critical section held
func (m *Modem) abandon() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.gen++
	m.waiting = false
	if m.activity == fetching || m.activity == dialing {
		m.activity = standby
	}

	// results queued before the generation changed are stale
	m.drain()
}

// must be called with the critical section held
func (m *Modem) reset() {
	m.abandon()
	m.hangup()
	m.recv.Reset()
	m.fault = false
	m.code = disk.Standby
}

// Abort implements the peripherals.Aborter interface. An in-flight fetch or
// dial is cancelled. A read waiting for data from a connection gives up.
func (m *Modem) Abort() {
	m.crit.Lock()
	defer m.crit.Unlock()
	m.abandon()
	m.code = disk.OperationFailed
	logger.Log(m.env, m.env.Tag("modem"), "aborted")
}

// Close implements the io.Closer interface.
func (m *Modem) Close() error {
	m.crit.Lock()
	defer m.crit.Unlock()
	m.abandon()
	m.hangup()
	return nil
}
