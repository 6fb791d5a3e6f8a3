package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonnelaakso/emberplus-go/pkg/log"
	"github.com/jonnelaakso/emberplus-go/pkg/transport"
	"github.com/jonnelaakso/emberplus-go/pkg/value"
	"github.com/jonnelaakso/emberplus-go/pkg/wire"
)

// DefaultRequestTimeout bounds how long Remote waits for any single
// response. Callers usually apply a shorter deadline of their own.
const DefaultRequestTimeout = 30 * time.Second

// notifyQueueSize is the per-connection backlog of undelivered updates.
const notifyQueueSize = 64

// RemoteConfig configures a Remote session.
type RemoteConfig struct {
	Host string
	Port int

	// DialTimeout bounds TCP setup when Connect's ctx has no deadline.
	DialTimeout time.Duration

	// RequestTimeout bounds each request (default 30s).
	RequestTimeout time.Duration

	// KeepAlive configures liveness pings. Zero fields take defaults.
	KeepAlive transport.KeepAliveConfig

	// DisableKeepAlive turns liveness pings off.
	DisableKeepAlive bool

	// Logger receives operational logs (optional).
	Logger *slog.Logger

	// ProtocolLogger captures frames and decoded messages (optional).
	ProtocolLogger log.Logger
}

// Remote is a Session speaking the tree protocol over TCP.
type Remote struct {
	config RemoteConfig
	logger *slog.Logger

	mu        sync.Mutex
	conn      *transport.ClientConn
	keepAlive *transport.KeepAlive
	handlers  map[string]func(any)
	children  map[string][]*Node

	pending   map[uint32]chan *wire.Response
	pendingMu sync.Mutex
	nextMsgID atomic.Uint32

	eventMu  sync.RWMutex
	onEvents []func(Event)
}

// NewRemote creates a Remote session. It does not connect.
func NewRemote(config RemoteConfig) *Remote {
	if config.Port == 0 {
		config.Port = transport.DefaultPort
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	return &Remote{
		config:   config,
		logger:   log.OrDiscard(config.Logger).With("component", "session", "host", config.Host, "port", config.Port),
		handlers: make(map[string]func(any)),
		children: make(map[string][]*Node),
		pending:  make(map[uint32]chan *wire.Response),
	}
}

// Address returns host:port.
func (r *Remote) Address() string {
	return net.JoinHostPort(r.config.Host, strconv.Itoa(r.config.Port))
}

// Connect dials the provider and starts the read loop and keep-alive.
// Connecting an already connected Remote is a no-op.
func (r *Remote) Connect(ctx context.Context) error {
	r.mu.Lock()
	if r.conn != nil {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	conn, err := transport.Dial(ctx, r.Address(), transport.ClientConfig{
		DialTimeout: r.config.DialTimeout,
		Logger:      r.config.ProtocolLogger,
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.conn != nil {
		// Lost a race with a concurrent Connect.
		r.mu.Unlock()
		conn.Close()
		return nil
	}
	r.conn = conn
	r.children = make(map[string][]*Node)
	if !r.config.DisableKeepAlive {
		r.keepAlive = transport.NewKeepAlive(r.config.KeepAlive, conn.SendPing, func() {
			r.connectionLost(conn, ErrKeepAliveTimeout)
		})
		r.keepAlive.Start(context.Background())
	}
	r.mu.Unlock()

	notifyCh := make(chan Update, notifyQueueSize)
	go r.readLoop(conn, notifyCh)
	go r.deliverLoop(notifyCh)

	r.logger.Info("connected", "conn_id", conn.ConnID())
	r.emit(Event{Type: EventConnected})
	return nil
}

// Disconnect closes the connection without emitting EventDisconnected.
func (r *Remote) Disconnect(ctx context.Context) error {
	conn := r.detach()
	if conn == nil {
		return nil
	}
	_ = conn.SendClose()
	r.logger.Info("disconnected", "conn_id", conn.ConnID())
	return conn.Close()
}

// IsConnected reports whether a connection is open.
func (r *Remote) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil
}

// OnEvent registers a handler for connection events.
func (r *Remote) OnEvent(handler func(Event)) {
	r.eventMu.Lock()
	defer r.eventMu.Unlock()
	r.onEvents = append(r.onEvents, handler)
}

func (r *Remote) emit(ev Event) {
	r.eventMu.RLock()
	handlers := slices.Clone(r.onEvents)
	r.eventMu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// detach clears connection state and fails every pending request.
// It returns the connection that was open, if any.
func (r *Remote) detach() *transport.ClientConn {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	if r.keepAlive != nil {
		r.keepAlive.Stop()
		r.keepAlive = nil
	}
	clear(r.handlers)
	r.mu.Unlock()

	r.pendingMu.Lock()
	for id, ch := range r.pending {
		close(ch)
		delete(r.pending, id)
	}
	r.pendingMu.Unlock()

	return conn
}

// connectionLost handles a connection that died underneath us. It is a
// no-op if conn is no longer the current connection.
func (r *Remote) connectionLost(conn *transport.ClientConn, cause error) {
	r.mu.Lock()
	current := r.conn == conn
	r.mu.Unlock()
	if !current {
		return
	}

	r.detach()
	conn.Close()

	r.logger.Warn("connection lost", "conn_id", conn.ConnID(), "error", cause)
	r.emit(Event{Type: EventDisconnected, Err: fmt.Errorf("%w: %w", ErrConnectionLost, cause)})
}

func (r *Remote) readLoop(conn *transport.ClientConn, notifyCh chan<- Update) {
	defer close(notifyCh)

	for {
		data, err := conn.ReadFrame()
		if err != nil {
			r.connectionLost(conn, err)
			return
		}

		typ, err := wire.PeekMessageType(data)
		if err != nil {
			r.logger.Debug("dropping undecodable frame", "error", err)
			r.emit(Event{Type: EventError, Err: err})
			continue
		}

		switch typ {
		case wire.MessageTypeControl:
			msg, err := wire.DecodeControlMessage(data)
			if err != nil {
				continue
			}
			conn.LogControl(msg, log.DirectionIn)
			switch msg.Control {
			case wire.ControlPong:
				r.mu.Lock()
				ka := r.keepAlive
				r.mu.Unlock()
				if ka != nil {
					ka.PongReceived(msg.Sequence)
				}
			case wire.ControlClose:
				r.connectionLost(conn, errors.New("closed by provider"))
				return
			}

		case wire.MessageTypeResponse:
			resp, err := wire.DecodeResponse(data)
			if err != nil {
				r.emit(Event{Type: EventError, Err: err})
				continue
			}
			r.logMessage(conn, log.DirectionIn, log.ResponseEvent(resp))
			r.handleResponse(resp)

		case wire.MessageTypeNotification:
			n, err := wire.DecodeNotification(data)
			if err != nil {
				r.emit(Event{Type: EventError, Err: err})
				continue
			}
			r.logMessage(conn, log.DirectionIn, log.NotificationEvent(n))
			ts := time.Now()
			if n.Timestamp != 0 {
				ts = time.UnixMilli(n.Timestamp)
			}
			notifyCh <- Update{Path: n.Path, Value: toValue(n.Value), Timestamp: ts}

		default:
			r.logger.Debug("ignoring message", "type", typ)
		}
	}
}

// deliverLoop runs update handlers outside the read loop so a handler may
// itself issue requests.
func (r *Remote) deliverLoop(notifyCh <-chan Update) {
	for u := range notifyCh {
		r.mu.Lock()
		h := r.handlers[u.Path]
		r.mu.Unlock()
		if h != nil {
			h(u)
		}
	}
}

func (r *Remote) handleResponse(resp *wire.Response) {
	r.pendingMu.Lock()
	ch, ok := r.pending[resp.MessageID]
	if ok {
		delete(r.pending, resp.MessageID)
	}
	r.pendingMu.Unlock()

	if !ok {
		r.logger.Debug("response without pending request", "msg_id", resp.MessageID)
		return
	}
	ch <- resp
}

// send registers a pending request and writes it. The returned channel
// receives the response or is closed if the connection goes away.
func (r *Remote) send(op wire.Operation, path string, payload any) (uint32, <-chan *wire.Response, error) {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return 0, nil, ErrNotConnected
	}

	id := r.nextMsgID.Add(1)
	req, err := wire.NewRequest(id, op, path, payload)
	if err != nil {
		return 0, nil, err
	}
	data, err := wire.EncodeRequest(req)
	if err != nil {
		return 0, nil, err
	}

	ch := make(chan *wire.Response, 1)
	r.pendingMu.Lock()
	r.pending[id] = ch
	r.pendingMu.Unlock()

	if err := conn.Send(data); err != nil {
		r.forget(id)
		return 0, nil, fmt.Errorf("send %s: %w", op, err)
	}
	r.logMessage(conn, log.DirectionOut, log.RequestEvent(req))
	return id, ch, nil
}

func (r *Remote) forget(id uint32) {
	r.pendingMu.Lock()
	delete(r.pending, id)
	r.pendingMu.Unlock()
}

// request sends and waits for the response.
func (r *Remote) request(ctx context.Context, op wire.Operation, path string, payload any) (*wire.Response, error) {
	id, ch, err := r.send(op, path, payload)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(r.config.RequestTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		r.forget(id)
		return nil, ctx.Err()
	case <-timer.C:
		r.forget(id)
		return nil, fmt.Errorf("%w: %s %q", ErrRequestTimeout, op, path)
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrConnectionLost
		}
		return resp, nil
	}
}

func (r *Remote) logMessage(conn *transport.ClientConn, dir log.Direction, msg *log.MessageEvent) {
	if r.config.ProtocolLogger == nil {
		return
	}
	r.config.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: conn.ConnID(),
		Direction:    dir,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		LocalRole:    log.RoleConsumer,
		RemoteAddr:   r.Address(),
		Message:      msg,
	})
}

// ResolvePath looks up one node. A missing path yields nil, nil.
func (r *Remote) ResolvePath(ctx context.Context, path string) (*Node, error) {
	resp, err := r.request(ctx, wire.OpResolve, path, nil)
	if err != nil {
		return nil, err
	}
	if resp.Status == wire.StatusPathNotFound {
		return nil, nil
	}
	if err := statusErr(resp); err != nil {
		return nil, err
	}

	var info wire.NodeInfo
	if err := resp.DecodePayload(&info); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedReply, err)
	}
	return NodeFromInfo(info), nil
}

// FetchChildren requests the directory of node in the background. The
// returned channel is closed when the directory response has been
// processed, successfully or not.
func (r *Remote) FetchChildren(ctx context.Context, node *Node) (<-chan struct{}, error) {
	path := ""
	if node != nil {
		path = node.Path
	}

	id, ch, err := r.send(wire.OpGetDirectory, path, nil)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		timer := time.NewTimer(r.config.RequestTimeout)
		defer timer.Stop()

		var resp *wire.Response
		select {
		case resp = <-ch:
		case <-timer.C:
			r.forget(id)
		}
		if resp == nil {
			return
		}
		if err := statusErr(resp); err != nil {
			r.logger.Warn("directory request failed", "path", path, "error", err)
			return
		}

		var dir wire.Directory
		if err := resp.DecodePayload(&dir); err != nil {
			r.logger.Warn("bad directory payload", "path", path, "error", err)
			return
		}
		nodes := make([]*Node, 0, len(dir.Children))
		for _, info := range dir.Children {
			nodes = append(nodes, NodeFromInfo(info))
		}

		r.mu.Lock()
		r.children[path] = nodes
		r.mu.Unlock()
	}()
	return done, nil
}

// Children returns the children of node received so far.
func (r *Remote) Children(node *Node) []*Node {
	path := ""
	if node != nil {
		path = node.Path
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Node(nil), r.children[path]...)
}

// WriteValue writes v to the parameter at node.
func (r *Remote) WriteValue(ctx context.Context, node *Node, v value.Value) error {
	resp, err := r.request(ctx, wire.OpSetValue, node.Path, &wire.SetValuePayload{Value: v.Any()})
	if err != nil {
		return err
	}
	return statusErr(resp)
}

// SubscribeNode registers onUpdate for node and asks the provider to push
// its value changes.
func (r *Remote) SubscribeNode(ctx context.Context, node *Node, onUpdate func(update any)) error {
	r.mu.Lock()
	if r.conn == nil {
		r.mu.Unlock()
		return ErrNotConnected
	}
	prev, had := r.handlers[node.Path]
	r.handlers[node.Path] = onUpdate
	r.mu.Unlock()

	resp, err := r.request(ctx, wire.OpSubscribe, node.Path, nil)
	if err == nil {
		err = statusErr(resp)
	}
	if err != nil {
		r.mu.Lock()
		if had {
			r.handlers[node.Path] = prev
		} else {
			delete(r.handlers, node.Path)
		}
		r.mu.Unlock()
		return err
	}
	return nil
}

// UnsubscribeNode drops the handler for node and cancels the subscription
// on the provider.
func (r *Remote) UnsubscribeNode(ctx context.Context, node *Node) error {
	r.mu.Lock()
	delete(r.handlers, node.Path)
	r.mu.Unlock()

	resp, err := r.request(ctx, wire.OpUnsubscribe, node.Path, nil)
	if err != nil {
		return err
	}
	return statusErr(resp)
}

// statusErr maps a failure response onto the session sentinels.
func statusErr(resp *wire.Response) error {
	err := resp.Err()
	if err == nil {
		return nil
	}
	var sentinel error
	switch resp.Status {
	case wire.StatusPathNotFound:
		sentinel = ErrPathNotFound
	case wire.StatusNotParameter:
		sentinel = ErrNotParameter
	case wire.StatusReadOnly:
		sentinel = ErrReadOnly
	case wire.StatusInvalidValue:
		sentinel = ErrInvalidValue
	case wire.StatusNotAuthorized:
		sentinel = ErrNotAuthorized
	case wire.StatusUnsupported, wire.StatusInvalidRequest:
		sentinel = ErrUnsupported
	default:
		sentinel = ErrDeviceError
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

var (
	_ Session      = (*Remote)(nil)
	_ Unsubscriber = (*Remote)(nil)
)
