package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/corvo-protocol/corvo-go/pkg/log"
)

// ClientConfig configures a Corvo client.
type ClientConfig struct {
	// TLS contains the TLS settings shared by all broker connections.
	TLS *TLSConfig

	// MaxMessageSize is the maximum message size (default: 64KB).
	MaxMessageSize uint32

	// ConnectTimeout bounds dial plus handshake (default: 30s).
	ConnectTimeout time.Duration

	// KeepAlive configuration for connections opened by this client.
	KeepAlive KeepAliveConfig

	// Logger for protocol logging (optional).
	Logger log.Logger
}

// Client connects to Corvo brokers. One client holds one TLS context;
// open as many broker connections through it as needed and Close the
// client after the last one.
type Client struct {
	config ClientConfig
	tlsCtx *Context
}

// NewClient builds the TLS context and returns a ready client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.TLS == nil {
		return nil, fmt.Errorf("TLS configuration is required")
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 30 * time.Second
	}
	if config.TLS.Logger == nil {
		config.TLS.Logger = config.Logger
	}

	tlsCtx, err := NewContext(config.TLS)
	if err != nil {
		return nil, fmt.Errorf("failed to create TLS context: %w", err)
	}

	return &Client{
		config: config,
		tlsCtx: tlsCtx,
	}, nil
}

// TLSContext exposes the client's TLS context.
func (c *Client) TLSContext() *Context {
	return c.tlsCtx
}

// Close releases the client's TLS context. Connections already
// established keep working.
func (c *Client) Close() {
	c.tlsCtx.Close()
}

// Connect dials the broker at nodename ("host" or "host:port"), runs the
// TLS handshake and verification, and returns an established connection.
// nodeID identifies the broker in log events and the verify callback;
// pass -1 when not yet known.
func (c *Client) Connect(ctx context.Context, nodename string, nodeID int32) (*ClientConn, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	raw, err := dialer.DialContext(ctx, "tcp", brokerAddress(nodename))
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	session := c.tlsCtx.OpenSession(raw, nodename, nodeID)
	if err := session.Await(ctx); err != nil {
		raw.Close()
		return nil, err
	}

	state, _ := session.TLSState()
	if err := VerifyConnection(state); err != nil {
		session.Close()
		raw.Close()
		return nil, fmt.Errorf("connection verification failed: %w", err)
	}

	framer := NewFramerWithMaxSize(session.Stream(), c.config.MaxMessageSize)
	if c.config.Logger != nil {
		framer.SetLogger(c.config.Logger, session.ConnID())
	}

	return &ClientConn{
		raw:     raw,
		session: session,
		framer:  framer,
		closeCh: make(chan struct{}),
	}, nil
}

// ClientConn is an established connection to a broker.
type ClientConn struct {
	raw     net.Conn
	session *Session
	framer  *Framer
	closeCh chan struct{}

	closeOnce sync.Once
	writeMu   sync.Mutex
	readMu    sync.Mutex
}

// Session returns the underlying TLS session.
func (c *ClientConn) Session() *Session {
	return c.session
}

// TLSState returns the negotiated TLS connection state.
func (c *ClientConn) TLSState() tls.ConnectionState {
	state, _ := c.session.TLSState()
	return state
}

// LocalAddr returns the local network address.
func (c *ClientConn) LocalAddr() net.Addr {
	return c.raw.LocalAddr()
}

// RemoteAddr returns the broker network address.
func (c *ClientConn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}

// ConnID returns the unique connection identifier.
func (c *ClientConn) ConnID() string {
	return c.session.ConnID()
}

// Send sends one framed message to the broker.
func (c *ClientConn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	return c.framer.WriteFrame(data)
}

// Receive reads one framed message. A positive timeout bounds the read;
// zero blocks indefinitely.
func (c *ClientConn) Receive(timeout time.Duration) ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	select {
	case <-c.closeCh:
		return nil, ErrConnectionClosed
	default:
	}

	if timeout > 0 {
		c.raw.SetReadDeadline(time.Now().Add(timeout))
		defer c.raw.SetReadDeadline(time.Time{})
	}
	return c.framer.ReadFrame()
}

// SendPing sends a ping control message.
func (c *ClientConn) SendPing(seq uint32) error {
	msg, err := EncodePing(seq)
	if err != nil {
		return err
	}
	return c.Send(msg)
}

// SendClose sends a close control message.
func (c *ClientConn) SendClose() error {
	msg, err := EncodeClose()
	if err != nil {
		return err
	}
	return c.Send(msg)
}

// Close retires the TLS session and closes the socket.
func (c *ClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		c.session.Close()
		err = c.raw.Close()
	})
	return err
}
