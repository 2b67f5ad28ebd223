package transport

import (
	"context"
	"crypto/tls"
	"net"
	"time"
)

// BrokerConnection is a client-side connection to a broker. Implemented
// by ClientConn.
type BrokerConnection interface {
	// TLSState returns the negotiated TLS connection state.
	TLSState() tls.ConnectionState

	// LocalAddr returns the local network address.
	LocalAddr() net.Addr

	// RemoteAddr returns the broker network address.
	RemoteAddr() net.Addr

	// Send sends a framed message to the broker.
	Send(data []byte) error

	// Receive reads one framed message with the given timeout.
	Receive(timeout time.Duration) ([]byte, error)

	// SendPing sends a ping control message.
	SendPing(seq uint32) error

	// SendClose sends a close control message.
	SendClose() error

	// Close retires the session and closes the socket.
	Close() error
}

// BrokerEndpoint is an in-process broker. Implemented by Server.
type BrokerEndpoint interface {
	// Start begins accepting connections.
	Start(ctx context.Context) error

	// Stop gracefully stops the endpoint.
	Stop() error

	// Addr returns the listen address.
	Addr() net.Addr

	// ConnectionCount returns the number of active connections.
	ConnectionCount() int
}

// FrameReadWriter provides length-prefixed frame I/O. Implemented by
// Framer.
type FrameReadWriter interface {
	// ReadFrame reads one length-prefixed frame.
	ReadFrame() ([]byte, error)

	// WriteFrame writes one length-prefixed frame.
	WriteFrame(data []byte) error
}

// Compile-time interface satisfaction checks.
var (
	_ BrokerConnection = (*ClientConn)(nil)
	_ BrokerEndpoint   = (*Server)(nil)
	_ FrameReadWriter  = (*Framer)(nil)
	_ Engine           = (*connEngine)(nil)
)
