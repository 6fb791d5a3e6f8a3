package consumer

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/jonnelaakso/emberplus-go/pkg/connection"
	"github.com/jonnelaakso/emberplus-go/pkg/log"
	"github.com/jonnelaakso/emberplus-go/pkg/session"
	"github.com/jonnelaakso/emberplus-go/pkg/subscription"
)

// Default timeouts.
const (
	DefaultConnectTimeout   = connection.DefaultConnectTimeout
	DefaultOperationTimeout = 10 * time.Second
	DefaultDirectoryTimeout = 3 * time.Second
)

// Config configures a Client.
type Config struct {
	// Host and Port identify the provider in error context and logs.
	Host string
	Port int

	// ConnectTimeout bounds Connect.
	ConnectTimeout time.Duration

	// OperationTimeout bounds each browse/get/set/subscribe call.
	OperationTimeout time.Duration

	// DirectoryTimeout bounds the wait for a pending directory in Browse.
	// On expiry Browse returns the children known so far.
	DirectoryTimeout time.Duration

	// OnlyOnChange drops subscription updates equal to the last one.
	OnlyOnChange bool

	Logger         *slog.Logger
	ProtocolLogger log.Logger

	// ConnID tags protocol log events. Defaults to "host:port".
	ConnID string
}

// Client is the consumer-side view of one provider connection. It gates
// operations on the connection lifecycle, bounds them in time, and owns
// the subscription registry.
//
// Lifecycle-mutating calls (Connect, Disconnect, Close) must not be made
// concurrently on one Client.
type Client struct {
	sess      session.Session
	lifecycle *connection.Lifecycle
	registry  *subscription.Registry
	binds     *bindings
	config    Config
	logger    *slog.Logger

	mu     sync.Mutex
	onLost []func(cause error)
}

// New creates a client around sess.
func New(sess session.Session, config Config) *Client {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.OperationTimeout <= 0 {
		config.OperationTimeout = DefaultOperationTimeout
	}
	if config.DirectoryTimeout <= 0 {
		config.DirectoryTimeout = DefaultDirectoryTimeout
	}
	if config.ConnID == "" && config.Host != "" {
		config.ConnID = net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	}
	logger := log.OrDiscard(config.Logger)
	if config.Host != "" {
		logger = logger.With(slog.String("host", config.Host), slog.Int("port", config.Port))
	}

	c := &Client{
		sess:   sess,
		binds:  newBindings(),
		config: config,
		logger: logger,
	}
	c.lifecycle = connection.NewLifecycle(sess, connection.LifecycleConfig{
		ConnectTimeout: config.ConnectTimeout,
		Logger:         logger,
		ProtocolLogger: config.ProtocolLogger,
		ConnID:         config.ConnID,
	})
	c.registry = subscription.NewRegistry(subscription.Config{
		OnlyOnChange:   config.OnlyOnChange,
		Logger:         logger,
		ProtocolLogger: config.ProtocolLogger,
		ConnID:         config.ConnID,
	})
	c.lifecycle.OnLost(c.handleLost)
	return c
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// Registry exposes the subscription registry.
func (c *Client) Registry() *subscription.Registry {
	return c.registry
}

// State returns the lifecycle state.
func (c *Client) State() connection.State {
	return c.lifecycle.State()
}

// IsConnected reports whether data operations may be issued.
func (c *Client) IsConnected() bool {
	return c.lifecycle.IsConnected()
}

// OnLost registers a callback for unexpected connection loss. Callbacks
// run after the registry has been unbound.
func (c *Client) OnLost(fn func(cause error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLost = append(c.onLost, fn)
}

// OnStateChange forwards lifecycle transitions to fn.
func (c *Client) OnStateChange(fn func(oldState, newState connection.State)) {
	c.lifecycle.OnStateChange(fn)
}

// Connect opens the connection. Connecting an open client succeeds
// without contacting the provider.
func (c *Client) Connect(ctx context.Context) error {
	err := c.lifecycle.Connect(ctx)
	if err == nil {
		c.logger.Info("Connected to provider")
		return nil
	}

	e := &Error{Op: "connect", Host: c.config.Host, Port: c.config.Port, Err: err}
	switch {
	case errors.Is(err, connection.ErrConnectTimeout):
		e.Kind = KindConnectionTimeout
	case errors.Is(err, connection.ErrConnectInProgress):
		e.Kind = KindOperationFailed
	default:
		e.Kind = KindConnectionFailed
	}
	c.logger.Warn("Connect failed", slog.Any("error", err))
	return e
}

// Disconnect closes the connection and clears all subscriptions. The
// client is Disconnected afterwards even when an error is returned.
func (c *Client) Disconnect(ctx context.Context) error {
	err := c.lifecycle.Disconnect(ctx)
	c.registry.Clear()
	c.binds.clear()
	if err != nil {
		c.logger.Warn("Disconnect failed", slog.Any("error", err))
		return &Error{
			Kind: KindDisconnectionFailed,
			Op:   "disconnect",
			Host: c.config.Host,
			Port: c.config.Port,
			Err:  err,
		}
	}
	return nil
}

// Close tears the client down. It is Disconnect for a client without a
// supervisor; Watcher.Close stops reconnection before calling it.
func (c *Client) Close(ctx context.Context) error {
	return c.Disconnect(ctx)
}

func (c *Client) handleLost(cause error) {
	n := c.registry.Unbind()
	c.logger.Warn("Provider connection lost",
		slog.Any("error", cause),
		slog.Int("pendingSubscriptions", n))

	c.mu.Lock()
	callbacks := append([]func(error){}, c.onLost...)
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn(cause)
	}
}
