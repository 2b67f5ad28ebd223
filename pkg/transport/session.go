package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"time"

	"github.com/corvo-protocol/corvo-go/pkg/log"
)

// SessionState tracks a TLS session through its lifecycle.
type SessionState uint8

const (
	// SessionInit is the zero state before the socket is attached.
	SessionInit SessionState = iota

	// SessionConnecting means the socket is attached but the handshake
	// has not been driven yet.
	SessionConnecting

	// SessionHandshaking means the handshake is in flight, blocked on
	// socket readiness.
	SessionHandshaking

	// SessionEstablished means the handshake completed and the peer was
	// verified.
	SessionEstablished

	// SessionFailed is terminal; Err holds the reason.
	SessionFailed
)

// String returns the session state name.
func (s SessionState) String() string {
	switch s {
	case SessionInit:
		return "INIT"
	case SessionConnecting:
		return "CONNECTING"
	case SessionHandshaking:
		return "HANDSHAKING"
	case SessionEstablished:
		return "ESTABLISHED"
	case SessionFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// ErrNotEstablished is returned by Send and Receive outside the
// ESTABLISHED state.
var ErrNotEstablished = errors.New("session not established")

// Session is a single TLS session with one broker. Sessions are not safe
// for concurrent use; the owning connection serializes access.
type Session struct {
	engine Engine

	state  SessionState
	wait   Wait
	err    error
	closed bool

	connID     string
	broker     string
	nodeID     int32
	host       string
	serverName string
	remoteAddr string

	logger log.Logger
}

// State returns the current session state.
func (s *Session) State() SessionState {
	return s.state
}

// WaitOn reports the socket readiness a HANDSHAKING session is blocked
// on, or that a partial Send or Receive is waiting for.
func (s *Session) WaitOn() Wait {
	return s.wait
}

// Err returns the terminal failure reason, nil unless FAILED.
func (s *Session) Err() error {
	return s.err
}

// ConnID returns the unique connection identifier used in log events.
func (s *Session) ConnID() string {
	return s.connID
}

// ServerName returns the SNI hostname sent to the broker, empty when the
// endpoint is an address literal.
func (s *Session) ServerName() string {
	return s.serverName
}

// TLSState returns the negotiated TLS state once established.
func (s *Session) TLSState() (tls.ConnectionState, bool) {
	return s.engine.State()
}

// DriveHandshake advances the handshake a single step without blocking.
// While the engine needs socket readiness the session stays in
// HANDSHAKING and WaitOn reports the direction to poll for.
func (s *Session) DriveHandshake() SessionState {
	switch s.state {
	case SessionEstablished, SessionFailed:
		return s.state
	}
	err := s.engine.Handshake()
	if err == nil {
		s.established()
		return s.state
	}
	verdict, reason := classifyIOError(err)
	switch verdict {
	case ioAgainReadable:
		s.wait = WaitReadable
		s.transition(SessionHandshaking, "")
	case ioAgainWritable:
		s.wait = WaitWritable
		s.transition(SessionHandshaking, "")
	default:
		var vErr *VerificationError
		if errors.As(err, &vErr) {
			s.fail(vErr.Error())
		} else {
			s.fail("TLS handshake failed: " + reason)
		}
	}
	return s.state
}

// Await drives the handshake to completion, blocking until the session
// is ESTABLISHED, FAILED, or ctx expires. Only meaningful with the
// production engine.
func (s *Session) Await(ctx context.Context) error {
	for {
		switch s.DriveHandshake() {
		case SessionEstablished:
			return nil
		case SessionFailed:
			return s.err
		}
		waiter, ok := s.engine.(interface{ ready() <-chan struct{} })
		if !ok {
			continue
		}
		select {
		case <-ctx.Done():
			s.fail("TLS handshake failed: " + describeError(ctx.Err()))
			return s.err
		case <-waiter.ready():
		}
	}
}

// Send writes the readable bytes of src to the broker. On a short write
// it returns the bytes consumed so far with a nil error; the caller
// retries once WaitOn reports readiness. A returned error means the
// session moved to FAILED.
func (s *Session) Send(src ByteSource) (int, error) {
	if s.state != SessionEstablished {
		return 0, ErrNotEstablished
	}
	total := 0
	for {
		chunk := src.Peek()
		if len(chunk) == 0 {
			return total, nil
		}
		s.engine.ClearError()
		n, err := s.engine.Write(chunk)
		if n > 0 {
			src.Advance(n)
			total += n
		}
		if err != nil {
			verdict, reason := classifyIOError(err)
			switch verdict {
			case ioAgainReadable:
				s.wait = WaitReadable
				return total, nil
			case ioAgainWritable:
				s.wait = WaitWritable
				return total, nil
			default:
				s.fail(reason)
				return total, s.err
			}
		}
		if n < len(chunk) {
			// Transmit buffer is full: hand control back instead of
			// spinning on the remainder.
			return total, nil
		}
	}
}

// Receive fills dst with decrypted bytes from the broker. A partial fill
// returns the bytes read so far with a nil error. A returned error means
// the session moved to FAILED; a clean peer close reads "Disconnected".
func (s *Session) Receive(dst ByteSink) (int, error) {
	if s.state != SessionEstablished {
		return 0, ErrNotEstablished
	}
	total := 0
	for {
		region := dst.Writable()
		if len(region) == 0 {
			return total, nil
		}
		s.engine.ClearError()
		n, err := s.engine.Read(region)
		if n > 0 {
			dst.Commit(n)
			total += n
		}
		if err != nil {
			verdict, reason := classifyIOError(err)
			switch verdict {
			case ioAgainReadable:
				s.wait = WaitReadable
				return total, nil
			case ioAgainWritable:
				s.wait = WaitWritable
				return total, nil
			default:
				s.fail(reason)
				return total, s.err
			}
		}
		if n < len(region) {
			return total, nil
		}
	}
}

// Close sends the TLS close notification and retires the session. The
// raw socket stays open and is closed by its owner. Safe on a nil
// session and safe to call repeatedly.
func (s *Session) Close() error {
	if s == nil || s.engine == nil || s.closed {
		return nil
	}
	s.closed = true
	return s.engine.Close()
}

// Stream adapts an established session to io.ReadWriter for the framing
// layer. Only meaningful with the production engine, whose primitives
// block instead of returning would-block results.
func (s *Session) Stream() io.ReadWriter {
	return &sessionStream{s: s}
}

type sessionStream struct {
	s *Session
}

func (st *sessionStream) Read(p []byte) (int, error) {
	return st.s.Receive(WrapBuffer(p))
}

func (st *sessionStream) Write(p []byte) (int, error) {
	src := NewSlice(p)
	total := 0
	for total < len(p) {
		n, err := st.s.Send(src)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, ErrNotEstablished
		}
	}
	return total, nil
}

func (s *Session) established() {
	s.transition(SessionEstablished, "")
	if s.logger == nil {
		return
	}
	ev := log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.connID,
		Layer:        log.LayerSecurity,
		Category:     log.CategorySecurity,
		RemoteAddr:   s.remoteAddr,
		Broker:       s.broker,
		NodeID:       s.nodeID,
		Handshake: &log.HandshakeEvent{
			State:      SessionEstablished.String(),
			ServerName: s.serverName,
		},
	}
	if state, ok := s.engine.State(); ok {
		ev.Handshake.Version = tls.VersionName(state.Version)
		ev.Handshake.CipherSuite = tls.CipherSuiteName(state.CipherSuite)
		if len(state.PeerCertificates) > 0 {
			ev.Handshake.PeerSubject = state.PeerCertificates[0].Subject.String()
		}
	}
	s.logger.Log(ev)
}

func (s *Session) fail(reason string) {
	s.err = errors.New(reason)
	s.transition(SessionFailed, reason)
	if s.logger != nil {
		s.logger.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: s.connID,
			Layer:        log.LayerSecurity,
			Category:     log.CategoryError,
			RemoteAddr:   s.remoteAddr,
			Broker:       s.broker,
			NodeID:       s.nodeID,
			Error: &log.ErrorEventData{
				Message: reason,
				Fatal:   true,
			},
		})
	}
}

func (s *Session) transition(next SessionState, reason string) {
	if s.state == next {
		return
	}
	prev := s.state
	s.state = next
	s.logState(prev, next, reason)
}

func (s *Session) logState(from, to SessionState, reason string) {
	if s.logger == nil {
		return
	}
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.connID,
		Layer:        log.LayerSecurity,
		Category:     log.CategoryState,
		RemoteAddr:   s.remoteAddr,
		Broker:       s.broker,
		NodeID:       s.nodeID,
		StateChange: &log.StateChangeEvent{
			From:   from.String(),
			To:     to.String(),
			Reason: reason,
		},
	})
}
