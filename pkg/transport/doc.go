// Package transport implements the TLS transport layer for Corvo broker
// connections.
//
// The central type is Context: an immutable bundle of verified TLS
// material (trusted roots, client credentials, cipher policy) built once
// from a TLSConfig and shared by every broker connection. Each
// established TCP connection is wrapped in a Session, a small state
// machine that drives the TLS handshake without blocking the caller:
//
//	INIT -> CONNECTING -> HANDSHAKING -> ESTABLISHED
//	                 \_______________ -> FAILED
//
// While handshaking, a session reports which socket readiness it is
// blocked on (readable or writable) so a poll-style owner can wait for
// exactly that. Established sessions move application bytes through
// Send and Receive, which stop early on partial transfers instead of
// spinning.
//
// On top of sessions the package provides length-prefixed framing, a
// blocking Client and a managed Connection for callers that prefer not
// to drive the handshake themselves, keep-alive probing, and an
// in-process Server used as a broker endpoint in tests and tooling.
package transport
