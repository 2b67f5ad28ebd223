package connection

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Connection errors.
var (
	ErrConnectionClosed  = errors.New("connection closed")
	ErrReconnectDisabled = errors.New("reconnection disabled")
	ErrConnectTimeout    = errors.New("connection timeout")
	ErrAlreadyConnected  = errors.New("already connected")
	ErrNotConnected      = errors.New("not connected")
)

// DefaultConnectTimeout bounds a single reconnection attempt.
const DefaultConnectTimeout = 30 * time.Second

// State represents the managed connection state.
type State uint8

const (
	// StateDisconnected indicates no active connection.
	StateDisconnected State = iota

	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting

	// StateConnected indicates an active broker connection.
	StateConnected

	// StateReconnecting indicates automatic reconnection is in progress.
	StateReconnecting

	// StateClosed indicates the manager has been shut down.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ConnectFunc is called to establish a broker connection.
// It should return nil on success or an error on failure.
type ConnectFunc func(ctx context.Context) error

// Manager manages connection lifecycle with automatic reconnection.
type Manager struct {
	mu sync.RWMutex

	state   State
	backoff *Backoff

	connectFn ConnectFunc

	autoReconnect  bool
	connectTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Signals that a reconnection cycle should start
	reconnectCh chan struct{}

	onStateChange  func(oldState, newState State)
	onConnected    func()
	onDisconnected func()
	onReconnecting func(attempt int, delay time.Duration)
}

// NewManager creates a connection manager around connectFn.
func NewManager(connectFn ConnectFunc) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		state:          StateDisconnected,
		backoff:        NewBackoff(),
		connectFn:      connectFn,
		autoReconnect:  true,
		connectTimeout: DefaultConnectTimeout,
		ctx:            ctx,
		cancel:         cancel,
		reconnectCh:    make(chan struct{}, 1),
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected returns true if currently connected.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateConnected
}

// SetAutoReconnect enables or disables automatic reconnection.
func (m *Manager) SetAutoReconnect(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoReconnect = enabled
}

// SetConnectTimeout bounds each reconnection attempt. Zero or negative
// restores the default.
func (m *Manager) SetConnectTimeout(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	m.connectTimeout = timeout
}

// SetBackoff replaces the backoff calculator. Only call before Connect.
func (m *Manager) SetBackoff(b *Backoff) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b != nil {
		m.backoff = b
	}
}

// Connect initiates a connection.
// Returns ErrAlreadyConnected if a connection is already up.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnected {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	if m.state == StateClosed {
		m.mu.Unlock()
		return ErrConnectionClosed
	}

	oldState := m.state
	m.state = StateConnecting
	m.mu.Unlock()

	m.notifyStateChange(oldState, StateConnecting)

	err := m.connectFn(ctx)

	m.mu.Lock()
	if err != nil {
		m.state = StateDisconnected
		m.mu.Unlock()
		m.notifyStateChange(StateConnecting, StateDisconnected)
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrConnectTimeout
		}
		return err
	}

	m.state = StateConnected
	m.backoff.Reset()
	m.mu.Unlock()

	m.notifyStateChange(StateConnecting, StateConnected)
	if m.onConnected != nil {
		m.onConnected()
	}

	return nil
}

// Disconnect closes the connection.
// If auto-reconnect is enabled, reconnection will be attempted.
func (m *Manager) Disconnect() {
	m.connectionDown()
}

// NotifyConnectionLost should be called when a connection loss is detected.
// This triggers automatic reconnection if enabled.
func (m *Manager) NotifyConnectionLost() {
	m.connectionDown()
}

func (m *Manager) connectionDown() {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return
	}

	oldState := m.state
	autoReconnect := m.autoReconnect

	if autoReconnect {
		m.state = StateReconnecting
	} else {
		m.state = StateDisconnected
	}
	newState := m.state
	m.mu.Unlock()

	m.notifyStateChange(oldState, newState)
	if m.onDisconnected != nil {
		m.onDisconnected()
	}

	if autoReconnect {
		m.triggerReconnect()
	}
}

// TriggerReconnect requests a reconnection cycle regardless of how the
// connection went down. Returns ErrReconnectDisabled when auto-reconnect
// is off and ErrConnectionClosed after Close.
func (m *Manager) TriggerReconnect() error {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return ErrConnectionClosed
	}
	if !m.autoReconnect {
		m.mu.Unlock()
		return ErrReconnectDisabled
	}
	if m.state == StateConnected {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	oldState := m.state
	m.state = StateReconnecting
	m.mu.Unlock()

	if oldState != StateReconnecting {
		m.notifyStateChange(oldState, StateReconnecting)
	}
	m.triggerReconnect()
	return nil
}

// StartReconnectLoop starts the background reconnection loop.
// Must be called once before reconnection will work.
func (m *Manager) StartReconnectLoop() {
	m.wg.Add(1)
	go m.reconnectLoop()
}

// Close shuts down the connection manager.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}

	oldState := m.state
	m.state = StateClosed
	m.mu.Unlock()

	m.notifyStateChange(oldState, StateClosed)

	m.cancel()
	m.wg.Wait()
}

func (m *Manager) triggerReconnect() {
	select {
	case m.reconnectCh <- struct{}{}:
	default:
		// Already pending
	}
}

func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.reconnectCh:
			m.attemptReconnect()
		}
	}
}

// attemptReconnect performs reconnection with backoff until the
// connection is back up or the manager closes.
func (m *Manager) attemptReconnect() {
	for {
		m.mu.RLock()
		state := m.state
		timeout := m.connectTimeout
		m.mu.RUnlock()

		if state == StateClosed || state == StateConnected {
			return
		}

		delay := m.backoff.Next()
		attempts := m.backoff.Attempts()

		if m.onReconnecting != nil {
			m.onReconnecting(attempts, delay)
		}

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(delay):
		}

		m.mu.Lock()
		if m.state == StateClosed || m.state == StateConnected {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(m.ctx, timeout)
		err := m.connectFn(ctx)
		cancel()

		if err == nil {
			m.mu.Lock()
			oldState := m.state
			m.state = StateConnected
			m.backoff.Reset()
			m.mu.Unlock()

			m.notifyStateChange(oldState, StateConnected)
			if m.onConnected != nil {
				m.onConnected()
			}
			return
		}

		// Failed, keep looping with the next backoff value
	}
}

func (m *Manager) notifyStateChange(oldState, newState State) {
	if m.onStateChange != nil && oldState != newState {
		m.onStateChange(oldState, newState)
	}
}

// OnStateChange sets a callback for state changes.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// OnConnected sets a callback for successful connection.
func (m *Manager) OnConnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnected = fn
}

// OnDisconnected sets a callback for disconnection.
func (m *Manager) OnDisconnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDisconnected = fn
}

// OnReconnecting sets a callback for reconnection attempts.
func (m *Manager) OnReconnecting(fn func(attempt int, delay time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnecting = fn
}

// BackoffAttempts returns the current number of reconnection attempts.
func (m *Manager) BackoffAttempts() int {
	return m.backoff.Attempts()
}
