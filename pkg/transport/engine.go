package transport

import (
	"crypto/tls"
	"net"
	"sync/atomic"
)

// Wait identifies the socket readiness a pending TLS operation is
// blocked on.
type Wait uint8

const (
	// WaitReadable means progress requires the socket to become readable.
	WaitReadable Wait = iota

	// WaitWritable means progress requires the socket to become writable.
	WaitWritable
)

// String returns the wait direction name.
func (w Wait) String() string {
	switch w {
	case WaitReadable:
		return "READABLE"
	case WaitWritable:
		return "WRITABLE"
	default:
		return "UNKNOWN"
	}
}

// WouldBlockError reports that a TLS operation cannot progress until the
// socket is ready in the indicated direction.
type WouldBlockError struct {
	Wait Wait
}

// Error implements the error interface.
func (e *WouldBlockError) Error() string {
	if e.Wait == WaitWritable {
		return "operation would block until the socket is writable"
	}
	return "operation would block until the socket is readable"
}

// Engine performs the TLS operations of a single session. The production
// engine wraps crypto/tls; tests substitute scripted engines to exercise
// the session state machine deterministically.
type Engine interface {
	// Handshake advances the handshake without blocking. It returns nil
	// once the handshake completed, a WouldBlockError while it is in
	// progress, or the terminal handshake error.
	Handshake() error

	// Read decrypts application data into p.
	Read(p []byte) (int, error)

	// Write encrypts and transmits application data from p.
	Write(p []byte) (int, error)

	// ClearError discards stale error state before an I/O primitive.
	ClearError()

	// State returns the TLS connection state and whether the handshake
	// has completed successfully.
	State() (tls.ConnectionState, bool)

	// Close sends the TLS close notification. The underlying socket is
	// not closed; its lifetime belongs to the connection owner.
	Close() error
}

// connEngine drives a crypto/tls client connection. crypto/tls offers no
// resumable half-handshake, so the handshake runs in a goroutine and
// Handshake polls its completion. The goroutine blocks inside the raw
// socket whenever the peer is slow; trackedConn records the direction of
// that block so the caller knows what readiness to wait for.
type connEngine struct {
	tracked *trackedConn
	conn    *tls.Conn

	started bool
	done    chan struct{}
	result  chan error
	hsDone  bool
	hsErr   error
}

func newConnEngine(raw net.Conn, cfg *tls.Config) *connEngine {
	tracked := newTrackedConn(raw)
	return &connEngine{
		tracked: tracked,
		conn:    tls.Client(tracked, cfg),
		done:    make(chan struct{}),
		result:  make(chan error, 1),
	}
}

func (e *connEngine) Handshake() error {
	if e.hsDone {
		return e.hsErr
	}
	if !e.started {
		e.started = true
		go func() {
			e.result <- e.conn.Handshake()
			close(e.done)
		}()
	}
	select {
	case err := <-e.result:
		e.hsDone = true
		e.hsErr = err
		return err
	default:
		return &WouldBlockError{Wait: e.tracked.blockedOn()}
	}
}

// ready is closed once the background handshake has produced a result.
func (e *connEngine) ready() <-chan struct{} {
	return e.done
}

func (e *connEngine) Read(p []byte) (int, error) {
	return e.conn.Read(p)
}

func (e *connEngine) Write(p []byte) (int, error) {
	return e.conn.Write(p)
}

// ClearError is a no-op: crypto/tls keeps no per-thread error queue.
func (e *connEngine) ClearError() {}

func (e *connEngine) State() (tls.ConnectionState, bool) {
	if !e.hsDone || e.hsErr != nil {
		return tls.ConnectionState{}, false
	}
	return e.conn.ConnectionState(), true
}

func (e *connEngine) Close() error {
	return e.conn.Close()
}

// trackedConn wraps the raw socket handed to crypto/tls. It records the
// direction of the most recent socket operation, which is the direction
// a blocked handshake goroutine is stuck on. Close detaches from the raw
// socket without closing it.
type trackedConn struct {
	net.Conn
	op     atomic.Int32
	closed atomic.Bool
}

func newTrackedConn(raw net.Conn) *trackedConn {
	t := &trackedConn{Conn: raw}
	// The first client handshake flight is a write.
	t.op.Store(int32(WaitWritable))
	return t
}

func (t *trackedConn) Read(p []byte) (int, error) {
	if t.closed.Load() {
		return 0, net.ErrClosed
	}
	t.op.Store(int32(WaitReadable))
	return t.Conn.Read(p)
}

func (t *trackedConn) Write(p []byte) (int, error) {
	if t.closed.Load() {
		return 0, net.ErrClosed
	}
	t.op.Store(int32(WaitWritable))
	return t.Conn.Write(p)
}

func (t *trackedConn) Close() error {
	t.closed.Store(true)
	return nil
}

func (t *trackedConn) blockedOn() Wait {
	return Wait(t.op.Load())
}
