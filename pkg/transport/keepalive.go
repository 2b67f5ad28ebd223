package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Keep-alive defaults.
const (
	// DefaultPingInterval is the default interval between pings.
	DefaultPingInterval = 30 * time.Second

	// DefaultPongTimeout is the default wait for a pong response.
	DefaultPongTimeout = 5 * time.Second

	// DefaultMaxMissedPongs is the number of missed pongs before the
	// broker is considered unreachable.
	DefaultMaxMissedPongs = 3
)

// KeepAliveConfig configures liveness probing of a broker connection.
type KeepAliveConfig struct {
	// Enabled turns keep-alive probing on.
	Enabled bool

	// PingInterval is the interval between pings.
	PingInterval time.Duration

	// PongTimeout is the wait for a pong response.
	PongTimeout time.Duration

	// MaxMissedPongs is the number of missed pongs before disconnect.
	MaxMissedPongs int
}

// DefaultKeepAliveConfig returns the default keep-alive configuration
// with probing enabled.
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		Enabled:        true,
		PingInterval:   DefaultPingInterval,
		PongTimeout:    DefaultPongTimeout,
		MaxMissedPongs: DefaultMaxMissedPongs,
	}
}

// DetectionDelay returns the worst-case time to detect a dead broker
// with this configuration.
func (c KeepAliveConfig) DetectionDelay() time.Duration {
	return c.PingInterval*time.Duration(c.MaxMissedPongs) + c.PongTimeout
}

// KeepAlive probes broker liveness with ping control messages and
// reports when too many pongs are missed.
type KeepAlive struct {
	config KeepAliveConfig

	sendPing       func(seq uint32) error
	onTimeout      func()
	onPongReceived func(seq uint32, latency time.Duration)

	sequence     atomic.Uint32
	missedPongs  int
	lastPingTime time.Time
	lastPongTime time.Time
	pendingPing  uint32
	hasPending   bool

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	pongCh  chan uint32
}

// NewKeepAlive creates a keep-alive prober. sendPing transmits a ping
// with the given sequence number; onTimeout fires once the broker is
// considered dead.
func NewKeepAlive(config KeepAliveConfig, sendPing func(seq uint32) error, onTimeout func()) *KeepAlive {
	if config.PingInterval == 0 {
		config.PingInterval = DefaultPingInterval
	}
	if config.PongTimeout == 0 {
		config.PongTimeout = DefaultPongTimeout
	}
	if config.MaxMissedPongs == 0 {
		config.MaxMissedPongs = DefaultMaxMissedPongs
	}
	return &KeepAlive{
		config:    config,
		sendPing:  sendPing,
		onTimeout: onTimeout,
		stopCh:    make(chan struct{}),
		pongCh:    make(chan uint32, 1),
	}
}

// SetPongReceivedCallback registers a callback invoked with the measured
// round-trip latency of each matched pong.
func (ka *KeepAlive) SetPongReceivedCallback(cb func(seq uint32, latency time.Duration)) {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	ka.onPongReceived = cb
}

// Start launches the probing loop.
func (ka *KeepAlive) Start(ctx context.Context) {
	ka.mu.Lock()
	if ka.running {
		ka.mu.Unlock()
		return
	}
	ka.running = true
	ka.stopCh = make(chan struct{})
	ka.mu.Unlock()

	go ka.loop(ctx)
}

// Stop halts the probing loop.
func (ka *KeepAlive) Stop() {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	if !ka.running {
		return
	}
	ka.running = false
	close(ka.stopCh)
}

// PongReceived feeds a received pong into the prober.
func (ka *KeepAlive) PongReceived(seq uint32) {
	select {
	case ka.pongCh <- seq:
	default:
		// A pong is already queued; dropping this one loses nothing.
	}
}

// IsRunning reports whether the probing loop is active.
func (ka *KeepAlive) IsRunning() bool {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.running
}

// KeepAliveStats is a snapshot of prober state.
type KeepAliveStats struct {
	LastPingTime time.Time
	LastPongTime time.Time
	MissedPongs  int
	CurrentSeq   uint32
}

// Stats returns a snapshot of the prober state.
func (ka *KeepAlive) Stats() KeepAliveStats {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return KeepAliveStats{
		LastPingTime: ka.lastPingTime,
		LastPongTime: ka.lastPongTime,
		MissedPongs:  ka.missedPongs,
		CurrentSeq:   ka.sequence.Load(),
	}
}

func (ka *KeepAlive) loop(ctx context.Context) {
	ticker := time.NewTicker(ka.config.PingInterval)
	defer ticker.Stop()

	ka.ping()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ka.stopCh:
			return
		case <-ticker.C:
			if !ka.tick() {
				return
			}
		case seq := <-ka.pongCh:
			ka.handlePong(seq)
		}
	}
}

func (ka *KeepAlive) ping() {
	seq := ka.sequence.Add(1)

	ka.mu.Lock()
	ka.lastPingTime = time.Now()
	ka.pendingPing = seq
	ka.hasPending = true
	ka.mu.Unlock()

	if err := ka.sendPing(seq); err != nil {
		// Send failed; the pong timeout will catch a dead connection.
		ka.mu.Lock()
		ka.hasPending = false
		ka.mu.Unlock()
	}
}

// tick accounts a possibly missed pong and sends the next ping. It
// returns false once the broker is considered dead.
func (ka *KeepAlive) tick() bool {
	ka.mu.Lock()
	if ka.hasPending && time.Since(ka.lastPingTime) >= ka.config.PongTimeout {
		ka.missedPongs++
		ka.hasPending = false
		if ka.missedPongs >= ka.config.MaxMissedPongs {
			ka.mu.Unlock()
			if ka.onTimeout != nil {
				ka.onTimeout()
			}
			return false
		}
	}
	ka.mu.Unlock()

	ka.ping()
	return true
}

func (ka *KeepAlive) handlePong(seq uint32) {
	ka.mu.Lock()
	defer ka.mu.Unlock()

	now := time.Now()
	ka.lastPongTime = now

	// A pong with a stale sequence number is a delayed answer to an
	// earlier ping and is ignored.
	if ka.hasPending && seq == ka.pendingPing {
		latency := now.Sub(ka.lastPingTime)
		ka.hasPending = false
		ka.missedPongs = 0
		if ka.onPongReceived != nil {
			go ka.onPongReceived(seq, latency)
		}
	}
}
