// Package connection governs when a device session may be used.
//
// It provides two pieces:
//   - Lifecycle, the Disconnected/Connecting/Connected state machine that
//     gates every remote operation and bounds the connect call in time
//   - Supervisor, the reconnection loop that reacts to unexpected
//     connection loss with a fixed number of fixed-delay attempts
//
// # Lifecycle
//
// Connect moves Disconnected to Connecting and races the session's
// connect call against the configured timeout:
//
//	Disconnected --Connect--> Connecting --ok------> Connected
//	                               |--timeout/err--> Disconnected
//
// Connect on a Connected lifecycle succeeds without touching the session.
// Connect while another Connect is in flight fails with
// ErrConnectInProgress. A disconnected event from the session forces
// Disconnected from any state. Disconnect always ends in Disconnected,
// even when the session reports a failure.
//
// A connect call that completes after its timeout has fired is torn down
// again so the late connection does not linger.
//
// # Reconnection
//
// The supervisor does not use exponential backoff. After a loss it waits
// RetryPolicy.Delay, runs the reconnect function, and repeats until the
// function succeeds or RetryPolicy.MaxAttempts attempts have failed. A
// success resets the attempt counter. Exhaustion is permanent until the
// caller rearms the supervisor.
package connection
