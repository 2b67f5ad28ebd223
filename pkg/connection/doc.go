// Package connection provides broker connection lifecycle management.
//
// This package handles:
//   - Exponential backoff for reconnection attempts
//   - Jitter to prevent thundering herd
//   - Connection state tracking
//   - Automatic reconnection on connection loss
//
// # Reconnection Strategy
//
// When a broker connection is lost, the client uses exponential backoff:
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s, 32s
//  3. Maximum delay: 60 seconds
//  4. Continue at 60s until successful
//  5. Reset to 1s on successful reconnection
//
// # Jitter
//
// To prevent thundering herd when many clients reconnect to the same
// broker after an outage:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
//
// # Success Criteria
//
// A reconnection attempt is successful when:
//   - TCP connection established
//   - TLS handshake completed
//   - Broker certificate verified
//
// Protocol-layer rejection after TLS success does NOT reset backoff.
package connection
