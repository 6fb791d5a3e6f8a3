package log

import (
	"time"

	"github.com/jonnelaakso/emberplus-go/pkg/wire"
)

// Event is one captured protocol event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	Timestamp    time.Time `cbor:"1,keyasint"`
	ConnectionID string    `cbor:"2,keyasint"`
	Direction    Direction `cbor:"3,keyasint"`
	Layer        Layer     `cbor:"4,keyasint"`
	Category     Category  `cbor:"5,keyasint"`
	LocalRole    Role      `cbor:"6,keyasint,omitempty"`
	RemoteAddr   string    `cbor:"7,keyasint,omitempty"`

	// Exactly one of these is set.
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	ControlMsg  *ControlMsgEvent  `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates message flow.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the decoded message layer.
	LayerWire Layer = 1
	// LayerSession covers connection lifecycle, subscriptions and reconnects.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryControl Category = 1
	CategoryState   Category = 2
	CategoryError   Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Role tells whether the capturing side is the consumer or the provider.
type Role uint8

const (
	RoleConsumer Role = 0
	RoleProvider Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleConsumer:
		return "CONSUMER"
	case RoleProvider:
		return "PROVIDER"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size includes the length prefix.
	Size int `cbor:"1,keyasint"`

	// Data may be truncated for large frames.
	Data      []byte `cbor:"2,keyasint,omitempty"`
	Truncated bool   `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded protocol message.
type MessageEvent struct {
	Type      wire.MessageType `cbor:"1,keyasint"`
	MessageID uint32           `cbor:"2,keyasint,omitempty"`
	Operation *wire.Operation  `cbor:"3,keyasint,omitempty"`
	Path      string           `cbor:"4,keyasint,omitempty"`
	Status    *wire.Status     `cbor:"5,keyasint,omitempty"`
	Value     any              `cbor:"6,keyasint,omitempty"`

	// ProcessingTime is set on responses, measured from request receipt.
	ProcessingTime *time.Duration `cbor:"7,keyasint,omitempty"`
}

// RequestEvent builds a MessageEvent describing req.
func RequestEvent(req *wire.Request) *MessageEvent {
	op := req.Operation
	return &MessageEvent{
		Type:      wire.MessageTypeRequest,
		MessageID: req.MessageID,
		Operation: &op,
		Path:      req.Path,
	}
}

// ResponseEvent builds a MessageEvent describing resp.
func ResponseEvent(resp *wire.Response) *MessageEvent {
	status := resp.Status
	return &MessageEvent{
		Type:      wire.MessageTypeResponse,
		MessageID: resp.MessageID,
		Status:    &status,
	}
}

// NotificationEvent builds a MessageEvent describing n.
func NotificationEvent(n *wire.Notification) *MessageEvent {
	return &MessageEvent{
		Type:  wire.MessageTypeNotification,
		Path:  n.Path,
		Value: n.Value,
	}
}

// StateChangeEvent captures lifecycle transitions.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	StateEntityConnection   StateEntity = 0
	StateEntitySubscription StateEntity = 1
	StateEntityReconnect    StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntitySubscription:
		return "SUBSCRIPTION"
	case StateEntityReconnect:
		return "RECONNECT"
	default:
		return "UNKNOWN"
	}
}

// ControlMsgEvent captures ping, pong and close messages.
type ControlMsgEvent struct {
	Type     wire.ControlMessageType `cbor:"1,keyasint"`
	Sequence uint32                  `cbor:"2,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Context names the operation that failed.
	Context string `cbor:"3,keyasint,omitempty"`
}
