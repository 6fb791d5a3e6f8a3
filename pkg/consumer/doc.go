// Package consumer is the operation layer a host uses to talk to one
// provider.
//
// A Client wraps a session.Session. Every data operation (Browse, Get,
// Set, Subscribe) is refused with NotConnected unless the connection
// lifecycle is Connected, validated against the path grammar, and bounded
// by the operation timeout. A timed-out call is not cancelled; its late
// result is dropped.
//
// Failures are returned as *Error values carrying a Kind, the operation,
// the path or host, and a remediation hint:
//
//	res, err := client.Get(ctx, "0.1.2")
//	if errors.Is(err, consumer.ErrPathNotFound) {
//		fmt.Println(err.(*consumer.Error).Hint())
//	}
//
// A Watcher layers durable subscriptions on a Client. When the provider
// connection drops, its supervisor reconnects on a fixed schedule and
// replays every watched path. Records carry the new value and, depending
// on WatchOptions, the previous value and node metadata.
package consumer
