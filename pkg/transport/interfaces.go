package transport

import (
	"context"
	"net"
)

// ServerConnection represents a provider-side connection to a consumer.
type ServerConnection interface {
	RemoteAddr() net.Addr
	ConnID() string
	Send(data []byte) error
	Close() error
}

// ClientConnection represents a consumer-side connection to a provider.
type ClientConnection interface {
	ConnID() string
	RemoteAddr() net.Addr
	Send(data []byte) error
	ReadFrame() ([]byte, error)
	SendPing(seq uint32) error
	SendClose() error
	Close() error
}

// TransportServer represents a listening provider endpoint.
type TransportServer interface {
	Start(ctx context.Context) error
	Stop() error
	Addr() net.Addr
	ConnectionCount() int
}

// FrameReadWriter provides length-prefixed frame I/O.
type FrameReadWriter interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
}

var (
	_ ServerConnection = (*ServerConn)(nil)
	_ ClientConnection = (*ClientConn)(nil)
	_ TransportServer  = (*Server)(nil)
	_ FrameReadWriter  = (*Framer)(nil)
)
