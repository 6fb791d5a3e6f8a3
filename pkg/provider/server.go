package provider

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/jonnelaakso/emberplus-go/pkg/log"
	"github.com/jonnelaakso/emberplus-go/pkg/transport"
	"github.com/jonnelaakso/emberplus-go/pkg/value"
	"github.com/jonnelaakso/emberplus-go/pkg/wire"
)

// ServerConfig configures a provider server.
type ServerConfig struct {
	// Address to listen on (default ":9000").
	Address string

	// Tree is the served hierarchy. Nil serves an empty tree.
	Tree *Tree

	Logger *slog.Logger

	// ProtocolLogger captures frames and decoded messages (optional).
	ProtocolLogger log.Logger
}

// Server answers tree protocol requests for one Tree and pushes value
// changes to subscribed consumers.
type Server struct {
	config    ServerConfig
	tree      *Tree
	transport *transport.Server
	logger    *slog.Logger

	mu   sync.RWMutex
	subs map[*transport.ServerConn]map[string]struct{}
}

// NewServer creates a server. It does not listen until Start.
func NewServer(config ServerConfig) *Server {
	if config.Tree == nil {
		config.Tree = NewTree()
	}
	s := &Server{
		config: config,
		tree:   config.Tree,
		logger: log.OrDiscard(config.Logger).With("component", "provider"),
		subs:   make(map[*transport.ServerConn]map[string]struct{}),
	}
	s.transport = transport.NewServer(transport.ServerConfig{
		Address:      config.Address,
		Logger:       config.ProtocolLogger,
		OnConnect:    s.handleConnect,
		OnDisconnect: s.handleDisconnect,
		OnMessage:    s.handleMessage,
		OnError: func(conn *transport.ServerConn, err error) {
			s.logger.Debug("Transport error", slog.Any("error", err))
		},
	})
	s.tree.OnChange(s.notify)
	return s
}

// Start begins accepting consumers.
func (s *Server) Start(ctx context.Context) error {
	if err := s.transport.Start(ctx); err != nil {
		return err
	}
	s.logger.Info("Provider listening", slog.String("addr", s.transport.Addr().String()))
	return nil
}

// Stop closes every connection and the listener.
func (s *Server) Stop() error {
	return s.transport.Stop()
}

// Addr returns the listen address.
func (s *Server) Addr() net.Addr {
	return s.transport.Addr()
}

// Port returns the listening TCP port.
func (s *Server) Port() int {
	return s.transport.Port()
}

// ConnectionCount returns the number of connected consumers.
func (s *Server) ConnectionCount() int {
	return s.transport.ConnectionCount()
}

// DisconnectAll drops every consumer connection while continuing to
// listen. Used to exercise consumer reconnection.
func (s *Server) DisconnectAll() {
	s.mu.RLock()
	conns := make([]*transport.ServerConn, 0, len(s.subs))
	for c := range s.subs {
		conns = append(conns, c)
	}
	s.mu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
}

func (s *Server) handleConnect(conn *transport.ServerConn) {
	s.mu.Lock()
	s.subs[conn] = make(map[string]struct{})
	s.mu.Unlock()
	s.logger.Info("Consumer connected",
		slog.String("conn_id", conn.ConnID()),
		slog.String("remote", conn.RemoteAddr().String()))
}

func (s *Server) handleDisconnect(conn *transport.ServerConn) {
	s.mu.Lock()
	delete(s.subs, conn)
	s.mu.Unlock()
	s.logger.Info("Consumer disconnected", slog.String("conn_id", conn.ConnID()))
}

func (s *Server) handleMessage(conn *transport.ServerConn, data []byte) {
	req, err := wire.DecodeRequest(data)
	if err != nil {
		s.logger.Debug("Dropping undecodable request", slog.Any("error", err))
		return
	}
	s.logMessage(conn, log.DirectionIn, log.RequestEvent(req))

	resp := s.HandleRequest(conn, req)

	out, err := wire.EncodeResponse(resp)
	if err != nil {
		s.logger.Error("Encode response failed", slog.Any("error", err))
		return
	}
	if err := conn.Send(out); err != nil {
		s.logger.Debug("Send response failed", slog.Any("error", err))
		return
	}
	s.logMessage(conn, log.DirectionOut, log.ResponseEvent(resp))
}

// HandleRequest answers one request. conn identifies the subscriber for
// Subscribe and Unsubscribe.
func (s *Server) HandleRequest(conn *transport.ServerConn, req *wire.Request) *wire.Response {
	switch req.Operation {
	case wire.OpResolve:
		info, err := s.tree.Info(req.Path)
		if err != nil {
			return errorResponse(req.MessageID, err)
		}
		return response(req.MessageID, &info)

	case wire.OpGetDirectory:
		dir, err := s.tree.Directory(req.Path)
		if err != nil {
			return errorResponse(req.MessageID, err)
		}
		return response(req.MessageID, dir)

	case wire.OpSetValue:
		var p wire.SetValuePayload
		if err := req.DecodePayload(&p); err != nil {
			return wire.NewErrorResponse(req.MessageID, wire.StatusInvalidRequest, "%v", err)
		}
		v, err := value.FromAny(p.Value)
		if err != nil {
			return wire.NewErrorResponse(req.MessageID, wire.StatusInvalidValue, "%v", err)
		}
		if err := s.tree.SetValue(req.Path, v); err != nil {
			return errorResponse(req.MessageID, err)
		}
		s.logger.Debug("Value set", slog.String("path", req.Path), slog.String("value", v.String()))
		return response(req.MessageID, nil)

	case wire.OpSubscribe, wire.OpUnsubscribe:
		e, err := s.tree.Lookup(req.Path)
		if err != nil {
			return errorResponse(req.MessageID, err)
		}
		if e.Kind() != wire.NodeKindParameter {
			return wire.NewErrorResponse(req.MessageID, wire.StatusNotParameter, "%s is a %s", req.Path, e.Kind())
		}
		s.mu.Lock()
		if set, ok := s.subs[conn]; ok {
			if req.Operation == wire.OpSubscribe {
				set[e.Path()] = struct{}{}
			} else {
				delete(set, e.Path())
			}
		}
		s.mu.Unlock()
		return response(req.MessageID, nil)

	default:
		return wire.NewErrorResponse(req.MessageID, wire.StatusUnsupported, "unsupported operation %s", req.Operation)
	}
}

// Subscribed reports whether any consumer is subscribed to path.
func (s *Server) Subscribed(path string) bool {
	e, err := s.tree.Lookup(path)
	if err != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, set := range s.subs {
		if _, ok := set[e.Path()]; ok {
			return true
		}
	}
	return false
}

func (s *Server) notify(e *Element, v value.Value) {
	n := &wire.Notification{
		Path:      e.Path(),
		Value:     v.Any(),
		Timestamp: time.Now().UnixMilli(),
	}
	data, err := wire.EncodeNotification(n)
	if err != nil {
		s.logger.Error("Encode notification failed", slog.Any("error", err))
		return
	}

	s.transport.Broadcast(data, func(conn *transport.ServerConn) bool {
		s.mu.RLock()
		defer s.mu.RUnlock()
		_, ok := s.subs[conn][e.Path()]
		if ok {
			s.logMessage(conn, log.DirectionOut, log.NotificationEvent(n))
		}
		return ok
	})
}

func (s *Server) logMessage(conn *transport.ServerConn, dir log.Direction, msg *log.MessageEvent) {
	if s.config.ProtocolLogger == nil {
		return
	}
	s.config.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: conn.ConnID(),
		Direction:    dir,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		LocalRole:    log.RoleProvider,
		RemoteAddr:   conn.RemoteAddr().String(),
		Message:      msg,
	})
}

func response(id uint32, payload any) *wire.Response {
	resp, err := wire.NewResponse(id, wire.StatusSuccess, payload)
	if err != nil {
		return wire.NewErrorResponse(id, wire.StatusDeviceError, "%v", err)
	}
	return resp
}

func errorResponse(id uint32, err error) *wire.Response {
	status := wire.StatusDeviceError
	switch {
	case errors.Is(err, ErrPathNotFound):
		status = wire.StatusPathNotFound
	case errors.Is(err, ErrNotParameter):
		status = wire.StatusNotParameter
	case errors.Is(err, ErrReadOnly):
		status = wire.StatusReadOnly
	case errors.Is(err, ErrTypeMismatch):
		status = wire.StatusInvalidValue
	}
	return wire.NewErrorResponse(id, status, "%v", err)
}
