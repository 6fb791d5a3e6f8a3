package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonnelaakso/emberplus-go/pkg/log"
	"github.com/jonnelaakso/emberplus-go/pkg/session"
)

// DefaultConnectTimeout bounds Lifecycle.Connect when no timeout is set.
const DefaultConnectTimeout = 5 * time.Second

// Lifecycle errors.
var (
	ErrConnectTimeout    = errors.New("connection timeout")
	ErrConnectFailed     = errors.New("connection failed")
	ErrConnectInProgress = errors.New("connection already in progress")
	ErrDisconnectFailed  = errors.New("disconnection failed")
	ErrConnectionLost    = errors.New("connection lost")
)

// State is the lifecycle state.
type State uint8

const (
	// StateDisconnected is the initial state.
	StateDisconnected State = iota

	// StateConnecting means a Connect call is racing its timeout.
	StateConnecting

	// StateConnected means remote operations may be issued.
	StateConnected
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	default:
		return "UNKNOWN"
	}
}

// LifecycleConfig configures a Lifecycle.
type LifecycleConfig struct {
	// ConnectTimeout bounds Connect. Zero means DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// Logger receives operational logs. Nil discards.
	Logger *slog.Logger

	// ProtocolLogger receives state change events. Optional.
	ProtocolLogger log.Logger

	// ConnID tags protocol log events.
	ConnID string
}

// Lifecycle is the connection state machine for one session.
type Lifecycle struct {
	mu sync.Mutex

	sess    session.Session
	timeout time.Duration
	logger  *slog.Logger
	plog    log.Logger
	connID  string

	state State

	// gen is bumped on every forced transition to Disconnected so an
	// in-flight Connect can tell its result is stale.
	gen uint64

	// draining is non-nil while an abandoned connect call is still
	// outstanding. It is closed once any late connection is torn down.
	draining chan struct{}

	onStateChange func(oldState, newState State)
	onLost        func(cause error)
}

// NewLifecycle creates a lifecycle around sess and registers for its events.
func NewLifecycle(sess session.Session, config LifecycleConfig) *Lifecycle {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	l := &Lifecycle{
		sess:    sess,
		timeout: config.ConnectTimeout,
		logger:  log.OrDiscard(config.Logger),
		plog:    config.ProtocolLogger,
		connID:  config.ConnID,
		state:   StateDisconnected,
	}
	sess.OnEvent(l.handleEvent)
	return l
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// IsConnected reports whether the state is Connected.
func (l *Lifecycle) IsConnected() bool {
	return l.State() == StateConnected
}

// ConnectTimeout returns the configured connect bound.
func (l *Lifecycle) ConnectTimeout() time.Duration {
	return l.timeout
}

// OnStateChange sets a callback for state transitions.
func (l *Lifecycle) OnStateChange(fn func(oldState, newState State)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onStateChange = fn
}

// OnLost sets a callback for connection loss reported by the session.
// It is not called for a locally requested Disconnect.
func (l *Lifecycle) OnLost(fn func(cause error)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onLost = fn
}

// Connect establishes the session connection.
//
// The session's connect call is not cancelled when the timeout fires; its
// result is discarded and a late success is disconnected again. A later
// Connect waits for that teardown before dialing.
func (l *Lifecycle) Connect(ctx context.Context) error {
	l.mu.Lock()
	for {
		switch l.state {
		case StateConnected:
			l.mu.Unlock()
			return nil
		case StateConnecting:
			l.mu.Unlock()
			return ErrConnectInProgress
		}
		if l.draining == nil {
			break
		}
		drained := l.draining
		l.mu.Unlock()
		if err := l.awaitDrain(ctx, drained); err != nil {
			return err
		}
		l.mu.Lock()
	}
	gen := l.gen
	l.state = StateConnecting
	l.mu.Unlock()

	l.notify(StateDisconnected, StateConnecting, "connect")

	done := make(chan error, 1)
	go func() {
		done <- l.sess.Connect(context.WithoutCancel(ctx))
	}()

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			l.settle(gen, StateDisconnected, err.Error())
			return fmt.Errorf("%w: %w", ErrConnectFailed, err)
		}
		if !l.settle(gen, StateConnected, "connected") {
			// A disconnected event arrived while connecting.
			return fmt.Errorf("%w: %w", ErrConnectFailed, ErrConnectionLost)
		}
		l.logger.Debug("Connected")
		return nil

	case <-timer.C:
		l.abandon(done)
		l.settle(gen, StateDisconnected, "timeout")
		return fmt.Errorf("%w after %s", ErrConnectTimeout, l.timeout)

	case <-ctx.Done():
		l.abandon(done)
		l.settle(gen, StateDisconnected, "cancelled")
		return fmt.Errorf("%w: %w", ErrConnectFailed, ctx.Err())
	}
}

// settle ends a Connect attempt. It reports false when the attempt was
// overtaken by a forced disconnect, in which case state is left alone.
func (l *Lifecycle) settle(gen uint64, to State, reason string) bool {
	l.mu.Lock()
	if l.gen != gen || l.state != StateConnecting {
		l.mu.Unlock()
		return false
	}
	l.state = to
	if to == StateDisconnected {
		l.gen++
	}
	l.mu.Unlock()

	l.notify(StateConnecting, to, reason)
	return true
}

// awaitDrain blocks until drained is closed, bounded by ctx and the
// connect timeout.
func (l *Lifecycle) awaitDrain(ctx context.Context, drained <-chan struct{}) error {
	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case <-drained:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w after %s: previous connection still closing", ErrConnectTimeout, l.timeout)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrConnectFailed, ctx.Err())
	}
}

// abandon marks the lifecycle as draining before the pending Connect gives
// up, so no new Connect can start until done has been handled.
func (l *Lifecycle) abandon(done <-chan error) {
	drained := make(chan struct{})
	l.mu.Lock()
	l.draining = drained
	l.mu.Unlock()
	go l.discardLate(done, drained)
}

// discardLate waits for an abandoned connect call and tears down a
// connection that arrived after its caller stopped waiting. No Connect
// runs while draining, so a late success is always stale.
func (l *Lifecycle) discardLate(done <-chan error, drained chan struct{}) {
	defer func() {
		l.mu.Lock()
		l.draining = nil
		l.mu.Unlock()
		close(drained)
	}()

	if err := <-done; err != nil {
		return
	}

	l.logger.Debug("Closing late connection")
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	if err := l.sess.Disconnect(ctx); err != nil {
		l.logger.Warn("Failed to close late connection", slog.Any("error", err))
	}
}

// Disconnect closes the session connection. It is a no-op when already
// Disconnected. The state is Disconnected afterwards even on failure.
func (l *Lifecycle) Disconnect(ctx context.Context) error {
	l.mu.Lock()
	if l.state == StateDisconnected {
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	err := l.sess.Disconnect(ctx)

	l.forceDisconnected("disconnect")

	if err != nil {
		return fmt.Errorf("%w: %w", ErrDisconnectFailed, err)
	}
	return nil
}

// HandleDisconnected forces Disconnected from any state. A loss of an
// established connection is reported to the OnLost callback; a loss while
// Connecting fails the pending Connect instead.
func (l *Lifecycle) HandleDisconnected(cause error) {
	if cause == nil {
		cause = ErrConnectionLost
	}
	old := l.forceDisconnected(cause.Error())
	if old != StateConnected {
		return
	}

	l.logger.Warn("Connection lost", slog.Any("error", cause))

	l.mu.Lock()
	onLost := l.onLost
	l.mu.Unlock()
	if onLost != nil {
		onLost(cause)
	}
}

// forceDisconnected sets Disconnected and returns the previous state.
func (l *Lifecycle) forceDisconnected(reason string) State {
	l.mu.Lock()
	old := l.state
	l.gen++
	l.state = StateDisconnected
	l.mu.Unlock()

	if old != StateDisconnected {
		l.notify(old, StateDisconnected, reason)
	}
	return old
}

func (l *Lifecycle) handleEvent(ev session.Event) {
	switch ev.Type {
	case session.EventDisconnected:
		l.HandleDisconnected(ev.Err)
	case session.EventError:
		l.logger.Warn("Session error", slog.Any("error", ev.Err))
	case session.EventConnected:
		l.logger.Debug("Session connected")
	}
}

func (l *Lifecycle) notify(from, to State, reason string) {
	l.mu.Lock()
	fn := l.onStateChange
	l.mu.Unlock()

	l.logger.Debug("Lifecycle state change",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.String("reason", reason))

	if l.plog != nil {
		l.plog.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: l.connID,
			Layer:        log.LayerSession,
			Category:     log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityConnection,
				OldState: from.String(),
				NewState: to.String(),
				Reason:   reason,
			},
		})
	}

	if fn != nil {
		fn(from, to)
	}
}
