// Package transport carries tree protocol messages over TCP.
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      CBOR Messages (wire)      │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│             TCP                │
//	└────────────────────────────────┘
//
// Every frame is a 4-byte big-endian payload length followed by the
// payload. Control messages (ping, pong, close) travel in the same frame
// stream and are answered by the transport itself; everything else is
// handed to the caller.
//
// # Keep-Alive
//
// Consumers run a KeepAlive per connection. With the defaults a ping goes
// out every 15 seconds and three unanswered pings mark the connection
// dead, so loss is detected within 50 seconds.
package transport
