package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/corvo-protocol/corvo-go/pkg/log"
	"github.com/corvo-protocol/corvo-go/pkg/wire"
)

// ServerConfig configures an in-process broker endpoint.
type ServerConfig struct {
	// Certificate is the broker's TLS certificate.
	Certificate tls.Certificate

	// ClientCAs verifies client certificates when RequireClientCert is
	// set.
	ClientCAs *x509.CertPool

	// RequireClientCert demands a valid client certificate.
	RequireClientCert bool

	// Address to listen on (e.g. "127.0.0.1:0"). Defaults to the Corvo
	// port on all interfaces.
	Address string

	// MaxMessageSize is the maximum message size (default: 64KB).
	MaxMessageSize uint32

	// Logger for protocol logging (optional).
	Logger log.Logger

	// OnConnect is called when a client connection is established.
	OnConnect func(conn *ServerConn)

	// OnDisconnect is called when a client connection closes.
	OnDisconnect func(conn *ServerConn)

	// OnMessage is called for every received application message.
	OnMessage func(conn *ServerConn, msg []byte)

	// OnError is called when an error occurs.
	OnError func(conn *ServerConn, err error)
}

// Server is an in-process Corvo broker endpoint. It answers pings,
// participates in the close exchange, and hands application messages to
// the configured callbacks. Tests and tooling use it as the remote end
// of client connections.
type Server struct {
	config   ServerConfig
	tlsConf  *tls.Config
	listener net.Listener

	conns   map[*ServerConn]struct{}
	connsMu sync.RWMutex

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a broker endpoint.
func NewServer(config ServerConfig) (*Server, error) {
	if len(config.Certificate.Certificate) == 0 {
		return nil, fmt.Errorf("broker certificate is required")
	}
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}

	tlsConf := &tls.Config{
		MinVersion:             tls.VersionTLS12,
		Certificates:           []tls.Certificate{config.Certificate},
		NextProtos:             []string{ALPNProtocol},
		SessionTicketsDisabled: true,
	}
	if config.RequireClientCert {
		tlsConf.ClientAuth = tls.RequireAndVerifyClientCert
		tlsConf.ClientCAs = config.ClientCAs
	}

	return &Server{
		config:  config,
		tlsConf: tlsConf,
		conns:   make(map[*ServerConn]struct{}),
	}, nil
}

// Start begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop stops the server and closes all connections.
func (s *Server) Stop() error {
	if !s.running.Load() {
		return nil
	}
	s.running.Store(false)
	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return nil
}

// Addr returns the server's listen address.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.running.Load() && s.config.OnError != nil {
				s.config.OnError(nil, fmt.Errorf("accept error: %w", err))
			}
			continue
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	tlsConn := tls.Server(conn, s.tlsConf)
	if err := tlsConn.HandshakeContext(s.ctx); err != nil {
		conn.Close()
		if s.config.OnError != nil {
			s.config.OnError(nil, fmt.Errorf("TLS handshake failed: %w", err))
		}
		return
	}

	state := tlsConn.ConnectionState()
	if err := VerifyConnection(state); err != nil {
		tlsConn.Close()
		if s.config.OnError != nil {
			s.config.OnError(nil, err)
		}
		return
	}
	if s.config.RequireClientCert && len(state.PeerCertificates) == 0 {
		tlsConn.Close()
		if s.config.OnError != nil {
			s.config.OnError(nil, fmt.Errorf("client certificate required but not provided"))
		}
		return
	}

	connID := uuid.New().String()
	framer := NewFramerWithMaxSize(tlsConn, s.config.MaxMessageSize)
	if s.config.Logger != nil {
		framer.SetLogger(s.config.Logger, connID)
	}

	sconn := &ServerConn{
		conn:       tlsConn,
		framer:     framer,
		tlsState:   state,
		server:     s,
		closeCh:    make(chan struct{}),
		remoteAddr: conn.RemoteAddr(),
		connID:     connID,
	}

	s.logConnState(sconn, StateDisconnected, StateConnected)

	s.connsMu.Lock()
	s.conns[sconn] = struct{}{}
	s.connsMu.Unlock()

	if s.config.OnConnect != nil {
		s.config.OnConnect(sconn)
	}

	sconn.readLoop()

	s.connsMu.Lock()
	delete(s.conns, sconn)
	s.connsMu.Unlock()

	s.logConnState(sconn, StateConnected, StateDisconnected)

	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(sconn)
	}
}

func (s *Server) logConnState(c *ServerConn, from, to ConnectionState) {
	if s.config.Logger == nil {
		return
	}
	s.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Layer:        log.LayerConnection,
		Category:     log.CategoryState,
		RemoteAddr:   c.remoteAddr.String(),
		StateChange: &log.StateChangeEvent{
			From: from.String(),
			To:   to.String(),
		},
	})
}

// ServerConn is one client connection seen from the broker side.
type ServerConn struct {
	conn       *tls.Conn
	framer     *Framer
	tlsState   tls.ConnectionState
	server     *Server
	closeCh    chan struct{}
	closeOnce  sync.Once
	remoteAddr net.Addr
	connID     string
}

// RemoteAddr returns the client's network address.
func (c *ServerConn) RemoteAddr() net.Addr {
	return c.remoteAddr
}

// ConnID returns the unique connection identifier.
func (c *ServerConn) ConnID() string {
	return c.connID
}

// TLSState returns the TLS connection state.
func (c *ServerConn) TLSState() tls.ConnectionState {
	return c.tlsState
}

// Send sends a framed message to the client.
func (c *ServerConn) Send(data []byte) error {
	return c.framer.WriteFrame(data)
}

// Close closes the connection.
func (c *ServerConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

func (c *ServerConn) readLoop() {
	for {
		select {
		case <-c.closeCh:
			return
		case <-c.server.ctx.Done():
			return
		default:
		}

		data, err := c.framer.ReadFrame()
		if err != nil {
			if c.server.config.OnError != nil && c.server.running.Load() {
				select {
				case <-c.closeCh:
					// Already closing.
				default:
					c.server.config.OnError(c, err)
				}
			}
			return
		}

		if msg, err := wire.DecodeControlMessage(data); err == nil {
			c.handleControlMessage(msg)
			continue
		}

		if c.server.config.OnMessage != nil {
			c.server.config.OnMessage(c, data)
		}
	}
}

func (c *ServerConn) handleControlMessage(msg *wire.ControlMessage) {
	c.logControlMessage(msg.Type, log.DirectionIn)

	switch msg.Type {
	case wire.ControlPing:
		if pong, err := EncodePong(msg.Sequence); err == nil {
			c.Send(pong)
			c.logControlMessage(wire.ControlPong, log.DirectionOut)
		}
	case wire.ControlPong:
		// Client-initiated keep-alive; nothing to do broker side.
	case wire.ControlClose:
		if ack, err := EncodeClose(); err == nil {
			c.Send(ack)
			c.logControlMessage(wire.ControlClose, log.DirectionOut)
		}
		c.Close()
	}
}

func (c *ServerConn) logControlMessage(msgType wire.ControlMessageType, direction log.Direction) {
	if c.server.config.Logger == nil {
		return
	}

	var logType log.ControlMsgType
	switch msgType {
	case wire.ControlPing:
		logType = log.ControlMsgPing
	case wire.ControlPong:
		logType = log.ControlMsgPong
	case wire.ControlClose:
		logType = log.ControlMsgClose
	default:
		return
	}

	c.server.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryControl,
		RemoteAddr:   c.remoteAddr.String(),
		ControlMsg: &log.ControlMsgEvent{
			Type:     logType,
			Sequence: 0,
		},
	})
}
