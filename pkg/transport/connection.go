package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corvo-protocol/corvo-go/pkg/wire"
)

// ConnectionState tracks a managed broker connection.
type ConnectionState int

const (
	// StateDisconnected indicates no connection.
	StateDisconnected ConnectionState = iota

	// StateConnecting indicates dial and handshake in progress.
	StateConnecting

	// StateConnected indicates an active connection.
	StateConnected

	// StateClosing indicates graceful close in progress.
	StateClosing
)

// String returns the connection state name.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateClosing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// Connection errors.
var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrConnectionClosed = errors.New("connection closed")
	ErrCloseTimeout     = errors.New("close timeout")
)

// ConnectionConfig configures a managed broker connection.
type ConnectionConfig struct {
	// MaxMessageSize is the maximum message size (default: 64KB).
	MaxMessageSize uint32

	// KeepAlive configuration.
	KeepAlive KeepAliveConfig

	// CloseTimeout bounds the graceful close exchange (default: 5s).
	CloseTimeout time.Duration
}

// DefaultConnectionConfig returns the default connection configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxMessageSize: DefaultMaxMessageSize,
		KeepAlive:      DefaultKeepAliveConfig(),
		CloseTimeout:   5 * time.Second,
	}
}

// ConnectionHandler receives connection events.
type ConnectionHandler interface {
	// OnMessage is called for every received application message.
	OnMessage(msg []byte)

	// OnStateChange is called when the connection state changes.
	OnStateChange(oldState, newState ConnectionState)

	// OnError is called when an error occurs.
	OnError(err error)
}

// Connection is a managed connection to one broker: it owns the socket,
// drives the TLS session, dispatches incoming frames, answers pings, and
// performs the graceful close exchange. The TLS context is borrowed and
// shared with other connections.
type Connection struct {
	config  ConnectionConfig
	handler ConnectionHandler
	tlsCtx  *Context

	raw     net.Conn
	session *Session
	framer  *Framer

	keepAlive *KeepAlive

	state      atomic.Int32
	closeOnce  sync.Once
	closeCh    chan struct{}
	closeDone  chan struct{}
	messageSeq atomic.Uint32
}

// NewConnection creates an unconnected managed connection.
func NewConnection(tlsCtx *Context, config ConnectionConfig, handler ConnectionHandler) *Connection {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.CloseTimeout == 0 {
		config.CloseTimeout = 5 * time.Second
	}
	return &Connection{
		config:    config,
		handler:   handler,
		tlsCtx:    tlsCtx,
		closeCh:   make(chan struct{}),
		closeDone: make(chan struct{}),
	}
}

// State returns the current connection state.
func (c *Connection) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// Connect dials the broker, completes the TLS handshake and starts the
// read loop and keep-alive.
func (c *Connection) Connect(ctx context.Context, nodename string, nodeID int32) error {
	if c.State() != StateDisconnected {
		return ErrAlreadyConnected
	}
	c.setState(StateConnecting)

	dialer := &net.Dialer{}
	raw, err := dialer.DialContext(ctx, "tcp", brokerAddress(nodename))
	if err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("dial failed: %w", err)
	}

	session := c.tlsCtx.OpenSession(raw, nodename, nodeID)
	if err := session.Await(ctx); err != nil {
		raw.Close()
		c.setState(StateDisconnected)
		return err
	}

	state, _ := session.TLSState()
	if err := VerifyConnection(state); err != nil {
		session.Close()
		raw.Close()
		c.setState(StateDisconnected)
		return fmt.Errorf("connection verification failed: %w", err)
	}

	c.raw = raw
	c.session = session
	c.framer = NewFramerWithMaxSize(session.Stream(), c.config.MaxMessageSize)
	if c.tlsCtx.logger != nil {
		c.framer.SetLogger(c.tlsCtx.logger, session.ConnID())
	}

	c.setState(StateConnected)
	go c.readLoop()
	c.startKeepAlive()
	return nil
}

// Send sends one framed application message.
func (c *Connection) Send(data []byte) error {
	if c.State() != StateConnected {
		return ErrNotConnected
	}
	return c.framer.WriteFrame(data)
}

// SendControlMessage sends a control message of the given type.
func (c *Connection) SendControlMessage(msgType wire.ControlMessageType, seq uint32) error {
	if c.State() != StateConnected {
		return ErrNotConnected
	}
	payload, err := wire.EncodeControlMessage(&wire.ControlMessage{Type: msgType, Sequence: seq})
	if err != nil {
		return err
	}
	return c.framer.WriteFrame(payload)
}

// Close performs a graceful close with the default timeout.
func (c *Connection) Close() error {
	return c.CloseWithTimeout(c.config.CloseTimeout)
}

// CloseWithTimeout sends a close control message and waits for the read
// loop to observe the peer's close, falling back to a forced close when
// the timeout expires.
func (c *Connection) CloseWithTimeout(timeout time.Duration) error {
	if c.State() != StateConnected {
		c.ForceClose()
		return nil
	}
	c.setState(StateClosing)

	if payload, err := EncodeClose(); err == nil {
		c.framer.WriteFrame(payload)
	}

	select {
	case <-c.closeDone:
		c.ForceClose()
		return nil
	case <-time.After(timeout):
		c.ForceClose()
		return ErrCloseTimeout
	}
}

// ForceClose tears the connection down immediately.
func (c *Connection) ForceClose() {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		if c.keepAlive != nil {
			c.keepAlive.Stop()
		}
		if c.session != nil {
			c.session.Close()
		}
		if c.raw != nil {
			c.raw.Close()
		}
		c.setState(StateDisconnected)
	})
}

// LocalAddr returns the local network address, nil when disconnected.
func (c *Connection) LocalAddr() net.Addr {
	if c.raw == nil {
		return nil
	}
	return c.raw.LocalAddr()
}

// RemoteAddr returns the broker network address, nil when disconnected.
func (c *Connection) RemoteAddr() net.Addr {
	if c.raw == nil {
		return nil
	}
	return c.raw.RemoteAddr()
}

// TLSConnectionState returns the negotiated TLS state.
func (c *Connection) TLSConnectionState() (tls.ConnectionState, bool) {
	if c.session == nil {
		return tls.ConnectionState{}, false
	}
	return c.session.TLSState()
}

func (c *Connection) startKeepAlive() {
	if !c.config.KeepAlive.Enabled {
		return
	}
	c.keepAlive = NewKeepAlive(c.config.KeepAlive,
		func(seq uint32) error {
			return c.SendControlMessage(wire.ControlPing, seq)
		},
		func() {
			c.notifyError(errors.New("keep-alive timeout"))
			c.ForceClose()
		})
	c.keepAlive.Start(context.Background())
}

func (c *Connection) readLoop() {
	defer close(c.closeDone)

	for {
		select {
		case <-c.closeCh:
			return
		default:
		}

		data, err := c.framer.ReadFrame()
		if err != nil {
			select {
			case <-c.closeCh:
				// Teardown already in progress.
			default:
				if c.State() == StateClosing {
					return
				}
				c.notifyError(err)
				c.ForceClose()
			}
			return
		}

		if msg, err := wire.DecodeControlMessage(data); err == nil {
			c.handleControlMessage(msg)
			continue
		}

		if c.handler != nil {
			c.handler.OnMessage(data)
		}
	}
}

func (c *Connection) handleControlMessage(msg *wire.ControlMessage) {
	switch msg.Type {
	case wire.ControlPing:
		c.SendControlMessage(wire.ControlPong, msg.Sequence)
	case wire.ControlPong:
		if c.keepAlive != nil {
			c.keepAlive.PongReceived(msg.Sequence)
		}
	case wire.ControlClose:
		if c.State() == StateClosing {
			// Peer acknowledged our close.
			return
		}
		if payload, err := EncodeClose(); err == nil {
			c.framer.WriteFrame(payload)
		}
		c.ForceClose()
	}
}

// NextSeq returns the next message sequence number.
func (c *Connection) NextSeq() uint32 {
	return c.messageSeq.Add(1)
}

func (c *Connection) setState(next ConnectionState) {
	prev := ConnectionState(c.state.Swap(int32(next)))
	if prev != next && c.handler != nil {
		c.handler.OnStateChange(prev, next)
	}
}

func (c *Connection) notifyError(err error) {
	if c.handler != nil {
		c.handler.OnError(err)
	}
}
