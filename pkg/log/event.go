package log

import (
	"time"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the broker connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the broker address (IP:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Broker is the broker nodename as configured (host:port).
	Broker string `cbor:"7,keyasint,omitempty"`

	// NodeID is the numeric broker node id (-1 when not yet known).
	NodeID int32 `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"` // Session/connection state
	ControlMsg  *ControlMsgEvent  `cbor:"12,keyasint,omitempty"` // Ping/pong/close
	Handshake   *HandshakeEvent   `cbor:"13,keyasint,omitempty"` // TLS handshake progress
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerSecurity is the TLS layer (handshake, verification).
	LayerSecurity Layer = 1
	// LayerConnection is the connection management layer.
	LayerConnection Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerSecurity:
		return "SECURITY"
	case LayerConnection:
		return "CONNECTION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a framed protocol message.
	CategoryMessage Category = 0
	// CategoryControl indicates a control message (ping/pong/close).
	CategoryControl Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
	// CategorySecurity indicates a TLS handshake or verification event.
	CategorySecurity Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	case CategorySecurity:
		return "SECURITY"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures session and connection lifecycle events.
type StateChangeEvent struct {
	// From is the previous state name.
	From string `cbor:"1,keyasint"`

	// To is the new state name.
	To string `cbor:"2,keyasint"`

	// Reason is an optional human-readable reason (set on failures).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ControlMsgEvent captures a control message (ping/pong/close).
type ControlMsgEvent struct {
	// Type is the control message type.
	Type ControlMsgType `cbor:"1,keyasint"`

	// Sequence is the ping/pong sequence number.
	Sequence uint32 `cbor:"2,keyasint,omitempty"`
}

// ControlMsgType identifies a control message in log events.
type ControlMsgType uint8

const (
	// ControlMsgPing is a liveness probe.
	ControlMsgPing ControlMsgType = 1
	// ControlMsgPong is the response to a ping.
	ControlMsgPong ControlMsgType = 2
	// ControlMsgClose is a graceful close notification.
	ControlMsgClose ControlMsgType = 3
)

// String returns the control message type name.
func (t ControlMsgType) String() string {
	switch t {
	case ControlMsgPing:
		return "PING"
	case ControlMsgPong:
		return "PONG"
	case ControlMsgClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

// HandshakeEvent captures TLS handshake progress and outcome.
type HandshakeEvent struct {
	// State is the session handshake state after this step.
	State string `cbor:"1,keyasint"`

	// ServerName is the SNI hostname sent, empty when suppressed.
	ServerName string `cbor:"2,keyasint,omitempty"`

	// Version is the negotiated TLS version string (established only).
	Version string `cbor:"3,keyasint,omitempty"`

	// CipherSuite is the negotiated cipher suite name (established only).
	CipherSuite string `cbor:"4,keyasint,omitempty"`

	// PeerSubject is the peer leaf certificate subject (established only).
	PeerSubject string `cbor:"5,keyasint,omitempty"`
}

// ErrorEventData captures an error at any layer.
type ErrorEventData struct {
	// Message is the bounded human-readable error description.
	Message string `cbor:"1,keyasint"`

	// Fatal indicates the error terminated the connection.
	Fatal bool `cbor:"2,keyasint,omitempty"`
}
