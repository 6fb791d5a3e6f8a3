// Package session defines the device session contract used by the
// consumer layer and provides Remote, a TCP implementation of it.
//
// A session is the local proxy of one live provider connection. It
// resolves paths to nodes, lists children, writes values and delivers
// value-change updates. It knows nothing about lifecycle policy,
// timeouts or subscription bookkeeping; those live in the connection,
// consumer and subscription packages.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonnelaakso/emberplus-go/pkg/value"
	"github.com/jonnelaakso/emberplus-go/pkg/wire"
)

// Session errors. Failure responses from the provider wrap one of these.
var (
	ErrNotConnected     = errors.New("session not connected")
	ErrConnectionLost   = errors.New("connection lost")
	ErrRequestTimeout   = errors.New("request timed out")
	ErrKeepAliveTimeout = errors.New("keep-alive timeout")
	ErrPathNotFound     = errors.New("path not found")
	ErrNotParameter     = errors.New("node is not a parameter")
	ErrReadOnly         = errors.New("parameter is read-only")
	ErrInvalidValue     = errors.New("invalid value")
	ErrNotAuthorized    = errors.New("not authorized")
	ErrDeviceError      = errors.New("device error")
	ErrUnsupported      = errors.New("operation not supported")
	ErrUnexpectedReply  = errors.New("unexpected reply")
)

// Session is the device session collaborator.
type Session interface {
	// Connect opens the connection. It may block until the provider
	// answers or ctx ends.
	Connect(ctx context.Context) error

	// Disconnect closes the connection. A locally requested disconnect
	// does not produce an EventDisconnected.
	Disconnect(ctx context.Context) error

	// ResolvePath returns the node at path, or nil and no error if the
	// path does not exist.
	ResolvePath(ctx context.Context, path string) (*Node, error)

	// FetchChildren requests the children of node (nil means the root).
	// The returned channel, if not nil, is closed once the directory has
	// arrived; a nil channel means the children are already known.
	FetchChildren(ctx context.Context, node *Node) (<-chan struct{}, error)

	// Children returns the children of node known so far.
	Children(node *Node) []*Node

	// WriteValue writes v to a parameter and waits for acknowledgement.
	WriteValue(ctx context.Context, node *Node, v value.Value) error

	// SubscribeNode asks the provider to push value changes of node to
	// onUpdate. Each call replaces the previous handler for the node.
	SubscribeNode(ctx context.Context, node *Node, onUpdate func(update any)) error

	// OnEvent registers a handler for connection events.
	OnEvent(handler func(Event))
}

// Unsubscriber is implemented by sessions that can cancel a subscription
// on the provider.
type Unsubscriber interface {
	UnsubscribeNode(ctx context.Context, node *Node) error
}

// EventType identifies a session event.
type EventType uint8

const (
	EventConnected EventType = iota + 1
	EventDisconnected
	EventError
)

// String returns the event name.
func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is delivered to OnEvent handlers.
type Event struct {
	Type EventType
	Err  error
}

// Node is a resolved tree element. Nodes are snapshots; resolving the
// same path again yields a fresh Node.
type Node struct {
	// Path is the numeric path ("0.1.2").
	Path string

	// IdentifierPath is the path by identifiers ("Device.Audio.Gain").
	IdentifierPath string

	Number      uint32
	Identifier  string
	Description string
	Kind        wire.NodeKind
	Access      wire.Access

	// Value is set for parameters only.
	Value value.Value

	ChildCount int
}

// IsParameter reports whether the node has a value slot.
func (n *Node) IsParameter() bool {
	return n != nil && n.Kind == wire.NodeKindParameter
}

// NodeFromInfo converts a wire descriptor into a Node. Values that are
// not scalars are kept as their string form.
func NodeFromInfo(info wire.NodeInfo) *Node {
	n := &Node{
		Path:           info.Path,
		IdentifierPath: info.IdentifierPath,
		Number:         info.Number,
		Identifier:     info.Identifier,
		Description:    info.Description,
		Kind:           info.Kind,
		Access:         info.Access,
		ChildCount:     int(info.ChildCount),
	}
	if info.Kind == wire.NodeKindParameter {
		n.Value = toValue(info.Value)
	}
	return n
}

// Update is the envelope passed to SubscribeNode handlers.
type Update struct {
	// Path is the numeric path of the parameter that changed.
	Path      string
	Value     value.Value
	Timestamp time.Time
}

// UpdateValue exposes the value field of the envelope.
func (u Update) UpdateValue() any {
	return u.Value
}

func toValue(x any) value.Value {
	v, err := value.FromAny(x)
	if err != nil {
		return value.String(fmt.Sprint(x))
	}
	return v
}
