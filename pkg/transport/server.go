package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jonnelaakso/emberplus-go/pkg/log"
	"github.com/jonnelaakso/emberplus-go/pkg/wire"
)

// DefaultPort is the default provider port.
const DefaultPort = 9000

// ServerConfig configures a provider-side server.
type ServerConfig struct {
	// Address to listen on (e.g. ":9000" or "127.0.0.1:0").
	Address string

	// MaxMessageSize is the maximum frame payload (default 256 KB).
	MaxMessageSize uint32

	// Logger captures frames, control messages and state (optional).
	Logger log.Logger

	// OnConnect is called when a new connection is accepted.
	OnConnect func(conn *ServerConn)

	// OnDisconnect is called after a connection's read loop ends.
	OnDisconnect func(conn *ServerConn)

	// OnMessage is called for every non-control frame.
	OnMessage func(conn *ServerConn, msg []byte)

	// OnError is called for accept and read errors.
	OnError func(conn *ServerConn, err error)
}

// Server accepts consumer connections.
type Server struct {
	config   ServerConfig
	listener net.Listener

	conns   map[*ServerConn]struct{}
	connsMu sync.RWMutex

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a server. It does not listen until Start.
func NewServer(config ServerConfig) *Server {
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Server{
		config: config,
		conns:  make(map[*ServerConn]struct{}),
	}
}

// Start listens and begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and every connection, then waits for the
// connection goroutines to finish.
func (s *Server) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}
	s.cancel()
	s.listener.Close()

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return nil
}

// Addr returns the listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// Port returns the TCP port the server listens on, or 0 before Start.
func (s *Server) Port() int {
	if tcp, ok := s.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// ConnectionCount returns the number of open connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

// Broadcast sends data to every open connection for which include
// returns true. Send errors are reported through OnError.
func (s *Server) Broadcast(data []byte, include func(*ServerConn) bool) {
	s.connsMu.RLock()
	targets := make([]*ServerConn, 0, len(s.conns))
	for c := range s.conns {
		if include == nil || include(c) {
			targets = append(targets, c)
		}
	}
	s.connsMu.RUnlock()

	for _, c := range targets {
		if err := c.Send(data); err != nil && s.config.OnError != nil {
			s.config.OnError(c, err)
		}
	}
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

	connID := uuid.New().String()
	framer := NewFramer(conn, s.config.MaxMessageSize)
	if s.config.Logger != nil {
		framer.SetLogger(s.config.Logger, connID, log.RoleProvider)
	}

	sconn := &ServerConn{
		conn:       conn,
		framer:     framer,
		server:     s,
		closeCh:    make(chan struct{}),
		remoteAddr: conn.RemoteAddr(),
		connID:     connID,
	}
	remote := conn.RemoteAddr().String()
	logConnState(s.config.Logger, connID, remote, log.RoleProvider, "", "CONNECTED", "")

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
	sconn.Close()

	logConnState(s.config.Logger, connID, remote, log.RoleProvider, "CONNECTED", "DISCONNECTED", "")

	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(sconn)
	}
}

// ServerConn is the provider side of one consumer connection.
type ServerConn struct {
	conn       net.Conn
	framer     *Framer
	server     *Server
	closeCh    chan struct{}
	closeOnce  sync.Once
	remoteAddr net.Addr
	connID     string
}

// RemoteAddr returns the consumer's address.
func (c *ServerConn) RemoteAddr() net.Addr {
	return c.remoteAddr
}

// ConnID returns the unique connection identifier.
func (c *ServerConn) ConnID() string {
	return c.connID
}

// Send writes one message frame.
func (c *ServerConn) Send(data []byte) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	return c.framer.WriteFrame(data)
}

// Close closes the connection. It is safe to call more than once.
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
				default:
					c.server.config.OnError(c, err)
				}
			}
			return
		}

		if msg, ok := AsControl(data); ok {
			c.handleControlMessage(msg)
			continue
		}

		if c.server.config.OnMessage != nil {
			c.server.config.OnMessage(c, data)
		}
	}
}

func (c *ServerConn) handleControlMessage(msg *wire.ControlMessage) {
	logger := c.server.config.Logger
	remote := c.remoteAddr.String()
	logControl(logger, c.connID, remote, log.RoleProvider, msg, log.DirectionIn)

	switch msg.Control {
	case wire.ControlPing:
		if pong, err := EncodePong(msg.Sequence); err == nil {
			_ = c.Send(pong)
			logControl(logger, c.connID, remote, log.RoleProvider,
				&wire.ControlMessage{Control: wire.ControlPong, Sequence: msg.Sequence}, log.DirectionOut)
		}

	case wire.ControlPong:
		// Keep-alive is driven by consumers.

	case wire.ControlClose:
		if ack, err := EncodeClose(); err == nil {
			_ = c.Send(ack)
		}
		c.Close()
	}
}
