package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBOR map keys shared by all messages.
const (
	KeyType       = 0
	KeyMessageID  = 1
	KeyOpOrStatus = 2 // Operation (request) or Status (response)
	KeyPath       = 3
	KeyPayload    = 4
)

// MessageType is carried under key 0 of every message.
type MessageType uint8

const (
	MessageTypeUnknown      MessageType = 0
	MessageTypeRequest      MessageType = 1
	MessageTypeResponse     MessageType = 2
	MessageTypeNotification MessageType = 3
	MessageTypeControl      MessageType = 4
)

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case MessageTypeRequest:
		return "Request"
	case MessageTypeResponse:
		return "Response"
	case MessageTypeNotification:
		return "Notification"
	case MessageTypeControl:
		return "Control"
	default:
		return "Unknown"
	}
}

// Request represents a request from consumer to provider.
//
// CBOR encoding:
//
//	{
//	  0: 1,            // type = request
//	  1: messageId,    // uint32, never 0
//	  2: operation,    // uint8
//	  3: path,         // string, "" = root
//	  4: payload       // operation-specific data
//	}
type Request struct {
	Type      MessageType     `cbor:"0,keyasint"`
	MessageID uint32          `cbor:"1,keyasint"`
	Operation Operation       `cbor:"2,keyasint"`
	Path      string          `cbor:"3,keyasint"`
	Payload   cbor.RawMessage `cbor:"4,keyasint,omitempty"`
}

// NewRequest builds a request and encodes payload into it.
func NewRequest(id uint32, op Operation, path string, payload any) (*Request, error) {
	req := &Request{
		Type:      MessageTypeRequest,
		MessageID: id,
		Operation: op,
		Path:      path,
	}
	if payload != nil {
		raw, err := Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", op, err)
		}
		req.Payload = raw
	}
	return req, nil
}

// Validate checks if the request is well formed.
func (r *Request) Validate() error {
	if r.MessageID == 0 {
		return fmt.Errorf("messageId 0 is reserved")
	}
	if !r.Operation.IsValid() {
		return fmt.Errorf("invalid operation: %d", r.Operation)
	}
	return nil
}

// DecodePayload decodes the request payload into v.
func (r *Request) DecodePayload(v any) error {
	if len(r.Payload) == 0 {
		return fmt.Errorf("%s request has no payload", r.Operation)
	}
	return Unmarshal(r.Payload, v)
}

// Response represents a provider's answer to a request.
//
// CBOR encoding:
//
//	{
//	  0: 2,            // type = response
//	  1: messageId,    // uint32, matches the request
//	  2: status,       // uint8
//	  4: payload       // NodeInfo, Directory or ErrorPayload
//	}
type Response struct {
	Type      MessageType     `cbor:"0,keyasint"`
	MessageID uint32          `cbor:"1,keyasint"`
	Status    Status          `cbor:"2,keyasint"`
	Payload   cbor.RawMessage `cbor:"4,keyasint,omitempty"`
}

// NewResponse builds a response and encodes payload into it.
func NewResponse(id uint32, status Status, payload any) (*Response, error) {
	resp := &Response{
		Type:      MessageTypeResponse,
		MessageID: id,
		Status:    status,
	}
	if payload != nil {
		raw, err := Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode response payload: %w", err)
		}
		resp.Payload = raw
	}
	return resp, nil
}

// NewErrorResponse builds a failure response carrying a message.
func NewErrorResponse(id uint32, status Status, format string, args ...any) *Response {
	resp, err := NewResponse(id, status, &ErrorPayload{Message: fmt.Sprintf(format, args...)})
	if err != nil {
		return &Response{Type: MessageTypeResponse, MessageID: id, Status: status}
	}
	return resp
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// Err returns a *StatusError for failure responses and nil otherwise.
func (r *Response) Err() error {
	if r.Status.IsSuccess() {
		return nil
	}
	var ep ErrorPayload
	if len(r.Payload) > 0 {
		_ = Unmarshal(r.Payload, &ep)
	}
	return &StatusError{Status: r.Status, Message: ep.Message}
}

// DecodePayload decodes the response payload into v.
func (r *Response) DecodePayload(v any) error {
	if len(r.Payload) == 0 {
		return fmt.Errorf("response %d has no payload", r.MessageID)
	}
	return Unmarshal(r.Payload, v)
}

// Notification reports a value change on a subscribed parameter.
//
// CBOR encoding:
//
//	{
//	  0: 3,            // type = notification
//	  3: path,         // numeric path of the parameter
//	  4: value,        // new value, null allowed
//	  5: timestamp     // unix milliseconds
//	}
type Notification struct {
	Type      MessageType `cbor:"0,keyasint"`
	Path      string      `cbor:"3,keyasint"`
	Value     any         `cbor:"4,keyasint"`
	Timestamp int64       `cbor:"5,keyasint,omitempty"`
}

// SetValuePayload is the payload of a SetValue request.
type SetValuePayload struct {
	Value any `cbor:"1,keyasint"`
}

// Directory is the payload of a GetDirectory response.
type Directory struct {
	Path     string     `cbor:"1,keyasint"`
	Children []NodeInfo `cbor:"2,keyasint"`
}

// ErrorPayload carries a human-readable message in a failure response.
type ErrorPayload struct {
	Message string `cbor:"1,keyasint,omitempty"`
}

// ControlMessage represents a transport-level control message.
type ControlMessage struct {
	Type     MessageType        `cbor:"0,keyasint"`
	Control  ControlMessageType `cbor:"1,keyasint"`
	Sequence uint32             `cbor:"2,keyasint,omitempty"`
}

// ControlMessageType represents the type of control message.
type ControlMessageType uint8

const (
	// ControlPing is sent to check connection liveness.
	ControlPing ControlMessageType = 1

	// ControlPong is the response to a ping.
	ControlPong ControlMessageType = 2

	// ControlClose initiates graceful connection close.
	ControlClose ControlMessageType = 3
)

// String returns the control message type name.
func (t ControlMessageType) String() string {
	switch t {
	case ControlPing:
		return "Ping"
	case ControlPong:
		return "Pong"
	case ControlClose:
		return "Close"
	default:
		return "Unknown"
	}
}
