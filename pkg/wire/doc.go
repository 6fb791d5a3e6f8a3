// Package wire defines the CBOR wire format of the tree protocol spoken
// between a consumer and a provider.
//
// Every message is a CBOR map with integer keys. Key 0 carries the message
// type so a receiver can route a frame without decoding it fully.
//
// # Message Types
//
//   - Request: consumer to provider (Resolve, GetDirectory, SetValue,
//     Subscribe, Unsubscribe)
//   - Response: provider to consumer, correlated by message ID
//   - Notification: provider to consumer, a value change on a subscribed path
//   - Control: either direction (ping, pong, close)
//
// # Paths
//
// Requests address nodes with a dot-separated path. Numeric segments are
// child numbers and other segments are identifiers; both may be mixed.
// Node descriptors returned by the provider always carry the numeric path
// and the identifier path of the node.
package wire
