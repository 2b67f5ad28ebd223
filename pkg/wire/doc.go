// Package wire implements the Corvo control-message codec.
//
// Control messages (ping, pong, close) ride on the framed transport next to
// application payloads. They are encoded as CBOR maps with integer keys for
// compactness and deterministic output.
package wire
