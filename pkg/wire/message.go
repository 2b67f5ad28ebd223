package wire

import "errors"

// Control message validation errors.
var (
	// ErrUnknownControlType indicates an unrecognized control message type.
	ErrUnknownControlType = errors.New("unknown control message type")
)

// ControlMessage is a transport-level control message (ping/pong/close).
type ControlMessage struct {
	Type     ControlMessageType `cbor:"1,keyasint"`
	Sequence uint32             `cbor:"2,keyasint,omitempty"`
}

// ControlMessageType identifies the kind of control message.
type ControlMessageType uint8

const (
	// ControlPing is sent to check connection liveness.
	ControlPing ControlMessageType = 1

	// ControlPong is the response to a ping.
	ControlPong ControlMessageType = 2

	// ControlClose initiates graceful connection close.
	ControlClose ControlMessageType = 3
)

// String returns the control message type name.
func (t ControlMessageType) String() string {
	switch t {
	case ControlPing:
		return "ping"
	case ControlPong:
		return "pong"
	case ControlClose:
		return "close"
	default:
		return "unknown"
	}
}

// Validate checks that the control message is well-formed.
func (m *ControlMessage) Validate() error {
	switch m.Type {
	case ControlPing, ControlPong, ControlClose:
		return nil
	default:
		return ErrUnknownControlType
	}
}
