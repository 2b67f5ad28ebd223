package transport

import "github.com/corvo-protocol/corvo-go/pkg/wire"

// Control message types, re-exported for convenience.
const (
	ControlPing  = wire.ControlPing
	ControlPong  = wire.ControlPong
	ControlClose = wire.ControlClose
)

// EncodePing encodes a ping control message.
func EncodePing(seq uint32) ([]byte, error) {
	return wire.EncodeControlMessage(&wire.ControlMessage{
		Type:     wire.ControlPing,
		Sequence: seq,
	})
}

// EncodePong encodes a pong control message.
func EncodePong(seq uint32) ([]byte, error) {
	return wire.EncodeControlMessage(&wire.ControlMessage{
		Type:     wire.ControlPong,
		Sequence: seq,
	})
}

// EncodeClose encodes a close control message.
func EncodeClose() ([]byte, error) {
	return wire.EncodeControlMessage(&wire.ControlMessage{
		Type: wire.ControlClose,
	})
}

// DecodeControlMessage decodes a control message payload and returns its
// type and sequence number.
func DecodeControlMessage(data []byte) (wire.ControlMessageType, uint32, error) {
	msg, err := wire.DecodeControlMessage(data)
	if err != nil {
		return 0, 0, err
	}
	return msg.Type, msg.Sequence, nil
}
