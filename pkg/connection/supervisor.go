package connection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/corvo-protocol/corvo-go/pkg/log"
	"github.com/corvo-protocol/corvo-go/pkg/transport"
)

// SupervisorConfig configures a supervised broker connection.
type SupervisorConfig struct {
	// Nodename is the broker address (host or host:port).
	Nodename string

	// NodeID is the numeric broker node id, -1 when unknown.
	NodeID int32

	// Connection holds the per-connection transport settings.
	Connection transport.ConnectionConfig

	// Backoff customizes the reconnect backoff. Zero values use defaults.
	Backoff BackoffConfig

	// ConnectTimeout bounds each reconnection attempt.
	ConnectTimeout time.Duration

	// DisableReconnect turns the supervisor into a connect-once wrapper.
	DisableReconnect bool

	// Logger receives connection lifecycle events. Nil disables logging.
	Logger log.Logger
}

// MessageFunc receives application messages from the broker.
type MessageFunc func(msg []byte)

// Supervisor ties a Manager to a broker connection so the link heals
// itself after connection loss. Each reconnection attempt builds a
// fresh transport.Connection; the previous one is discarded.
type Supervisor struct {
	tlsCtx  *transport.Context
	config  SupervisorConfig
	manager *Manager
	logger  log.Logger

	onMessage MessageFunc

	mu   sync.RWMutex
	conn *transport.Connection
}

// NewSupervisor creates a supervisor over the given TLS context.
// The context stays owned by the caller and is reused across reconnects.
func NewSupervisor(tlsCtx *transport.Context, config SupervisorConfig, onMessage MessageFunc) *Supervisor {
	logger := config.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}

	s := &Supervisor{
		tlsCtx:    tlsCtx,
		config:    config,
		logger:    logger,
		onMessage: onMessage,
	}

	s.manager = NewManager(s.dial)
	s.manager.SetBackoff(NewBackoffWithConfig(config.Backoff))
	s.manager.SetConnectTimeout(config.ConnectTimeout)
	s.manager.SetAutoReconnect(!config.DisableReconnect)
	s.manager.OnReconnecting(func(attempt int, delay time.Duration) {
		s.logEvent(log.Event{
			Layer:    log.LayerConnection,
			Category: log.CategoryState,
			StateChange: &log.StateChangeEvent{
				From:   StateReconnecting.String(),
				To:     StateConnecting.String(),
				Reason: fmt.Sprintf("reconnect attempt %d after %s", attempt, delay),
			},
		})
	})
	s.manager.OnStateChange(func(oldState, newState State) {
		s.logEvent(log.Event{
			Layer:    log.LayerConnection,
			Category: log.CategoryState,
			StateChange: &log.StateChangeEvent{
				From: oldState.String(),
				To:   newState.String(),
			},
		})
	})

	return s
}

// Start connects to the broker and starts the reconnect loop.
func (s *Supervisor) Start(ctx context.Context) error {
	if !s.config.DisableReconnect {
		s.manager.StartReconnectLoop()
	}
	return s.manager.Connect(ctx)
}

// State returns the managed connection state.
func (s *Supervisor) State() State {
	return s.manager.State()
}

// Conn returns the current transport connection, nil when disconnected.
func (s *Supervisor) Conn() *transport.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}

// Send delivers an application message over the current connection.
func (s *Supervisor) Send(data []byte) error {
	conn := s.Conn()
	if conn == nil || !s.manager.IsConnected() {
		return ErrNotConnected
	}
	return conn.Send(data)
}

// Attempts returns the reconnect attempts since the last successful
// connection.
func (s *Supervisor) Attempts() int {
	return s.manager.BackoffAttempts()
}

// Close shuts down the supervisor and the underlying connection.
func (s *Supervisor) Close() error {
	s.manager.Close()

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// dial is the ConnectFunc driven by the manager.
func (s *Supervisor) dial(ctx context.Context) error {
	conn := transport.NewConnection(s.tlsCtx, s.config.Connection, &supervisedHandler{s: s})
	if err := conn.Connect(ctx, s.config.Nodename, s.config.NodeID); err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	return nil
}

func (s *Supervisor) logEvent(event log.Event) {
	event.Timestamp = time.Now()
	event.Broker = s.config.Nodename
	event.NodeID = s.config.NodeID
	s.logger.Log(event)
}

// supervisedHandler bridges transport callbacks into the manager.
type supervisedHandler struct {
	s *Supervisor
}

func (h *supervisedHandler) OnMessage(msg []byte) {
	if h.s.onMessage != nil {
		h.s.onMessage(msg)
	}
}

func (h *supervisedHandler) OnStateChange(oldState, newState transport.ConnectionState) {
	if newState == transport.StateDisconnected && oldState != transport.StateClosing {
		// Unexpected drop. Graceful closes pass through StateClosing
		// and must not restart the backoff cycle.
		h.s.manager.NotifyConnectionLost()
	}
}

func (h *supervisedHandler) OnError(err error) {
	h.s.logEvent(log.Event{
		Layer:    log.LayerConnection,
		Category: log.CategoryError,
		Error:    &log.ErrorEventData{Message: err.Error()},
	})
}
