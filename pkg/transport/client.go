package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonnelaakso/emberplus-go/pkg/log"
	"github.com/jonnelaakso/emberplus-go/pkg/wire"
)

// Connection errors.
var (
	ErrConnectionClosed = errors.New("connection closed")
)

// DefaultDialTimeout applies when neither the context nor the config
// carries a deadline.
const DefaultDialTimeout = 5 * time.Second

// ClientConfig configures Dial.
type ClientConfig struct {
	// MaxMessageSize is the maximum frame payload (default 256 KB).
	MaxMessageSize uint32

	// DialTimeout bounds TCP connection setup when ctx has no deadline.
	DialTimeout time.Duration

	// Logger captures frames and control messages (optional).
	Logger log.Logger
}

// Dial opens a TCP connection to a provider.
func Dial(ctx context.Context, address string, config ClientConfig) (*ClientConn, error) {
	if config.DialTimeout == 0 {
		config.DialTimeout = DefaultDialTimeout
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.DialTimeout)
		defer cancel()
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}

	c := &ClientConn{
		conn:    conn,
		framer:  NewFramer(conn, config.MaxMessageSize),
		connID:  uuid.New().String(),
		logger:  config.Logger,
		closeCh: make(chan struct{}),
	}
	if config.Logger != nil {
		c.framer.SetLogger(config.Logger, c.connID, log.RoleConsumer)
	}
	logConnState(c.logger, c.connID, address, log.RoleConsumer, "", "CONNECTED", "")
	return c, nil
}

// ClientConn is the consumer side of a provider connection.
type ClientConn struct {
	conn    net.Conn
	framer  *Framer
	connID  string
	logger  log.Logger
	closeCh chan struct{}

	closeOnce sync.Once
}

// ConnID returns the connection's unique identifier.
func (c *ClientConn) ConnID() string {
	return c.connID
}

// LocalAddr returns the local network address.
func (c *ClientConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *ClientConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Send writes one message frame.
func (c *ClientConn) Send(data []byte) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	return c.framer.WriteFrame(data)
}

// ReadFrame blocks until the next frame arrives. It must only be called
// from one goroutine. After Close it returns ErrConnectionClosed.
func (c *ClientConn) ReadFrame() ([]byte, error) {
	data, err := c.framer.ReadFrame()
	if err != nil {
		select {
		case <-c.closeCh:
			return nil, ErrConnectionClosed
		default:
		}
		return nil, err
	}
	return data, nil
}

// SendPing sends a ping control message.
func (c *ClientConn) SendPing(seq uint32) error {
	data, err := EncodePing(seq)
	if err != nil {
		return err
	}
	if err := c.Send(data); err != nil {
		return err
	}
	c.LogControl(&wire.ControlMessage{Control: wire.ControlPing, Sequence: seq}, log.DirectionOut)
	return nil
}

// LogControl captures a control message exchanged on this connection.
func (c *ClientConn) LogControl(msg *wire.ControlMessage, dir log.Direction) {
	logControl(c.logger, c.connID, c.conn.RemoteAddr().String(), log.RoleConsumer, msg, dir)
}

// SendClose sends a close control message. Errors are ignored by callers
// that are tearing down anyway.
func (c *ClientConn) SendClose() error {
	data, err := EncodeClose()
	if err != nil {
		return err
	}
	return c.Send(data)
}

// Close closes the connection. It is safe to call more than once.
func (c *ClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
		logConnState(c.logger, c.connID, c.conn.RemoteAddr().String(), log.RoleConsumer, "CONNECTED", "DISCONNECTED", "closed locally")
	})
	return err
}

// Done is closed once Close has been called.
func (c *ClientConn) Done() <-chan struct{} {
	return c.closeCh
}
