package transport

import (
	"time"

	"github.com/jonnelaakso/emberplus-go/pkg/log"
	"github.com/jonnelaakso/emberplus-go/pkg/wire"
)

// EncodePing encodes a ping control message.
func EncodePing(seq uint32) ([]byte, error) {
	return wire.EncodeControlMessage(&wire.ControlMessage{Control: wire.ControlPing, Sequence: seq})
}

// EncodePong encodes a pong control message.
func EncodePong(seq uint32) ([]byte, error) {
	return wire.EncodeControlMessage(&wire.ControlMessage{Control: wire.ControlPong, Sequence: seq})
}

// EncodeClose encodes a close control message.
func EncodeClose() ([]byte, error) {
	return wire.EncodeControlMessage(&wire.ControlMessage{Control: wire.ControlClose})
}

// AsControl decodes data if it is a control message.
func AsControl(data []byte) (*wire.ControlMessage, bool) {
	typ, err := wire.PeekMessageType(data)
	if err != nil || typ != wire.MessageTypeControl {
		return nil, false
	}
	msg, err := wire.DecodeControlMessage(data)
	if err != nil {
		return nil, false
	}
	return msg, true
}

func logControl(logger log.Logger, connID, remote string, role log.Role, msg *wire.ControlMessage, dir log.Direction) {
	if logger == nil {
		return
	}
	logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    dir,
		Layer:        log.LayerTransport,
		Category:     log.CategoryControl,
		LocalRole:    role,
		RemoteAddr:   remote,
		ControlMsg:   &log.ControlMsgEvent{Type: msg.Control, Sequence: msg.Sequence},
	})
}

func logConnState(logger log.Logger, connID, remote string, role log.Role, oldState, newState, reason string) {
	if logger == nil {
		return
	}
	logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		LocalRole:    role,
		RemoteAddr:   remote,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}
