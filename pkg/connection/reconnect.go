package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonnelaakso/emberplus-go/pkg/log"
)

// ErrExhausted is passed to OnExhausted when every attempt has failed.
var ErrExhausted = errors.New("reconnection attempts exhausted")

// ReconnectFunc re-establishes the connection and whatever state rides on
// it. It returns nil on full success.
type ReconnectFunc func(ctx context.Context) error

// SupervisorConfig configures a Supervisor.
type SupervisorConfig struct {
	// Policy is the retry schedule. Zero fields take defaults.
	Policy RetryPolicy

	// Reconnect is run for each attempt. Required.
	Reconnect ReconnectFunc

	// Connected, if set, is consulted before a triggered run starts; a run
	// is skipped when it already reports true.
	Connected func() bool

	Logger         *slog.Logger
	ProtocolLogger log.Logger
	ConnID         string
}

// Supervisor retries a lost connection on a fixed schedule.
type Supervisor struct {
	mu sync.Mutex

	config SupervisorConfig
	policy RetryPolicy
	logger *slog.Logger

	attempts  int
	exhausted bool
	closed    bool
	started   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// triggerCh holds at most one pending run.
	triggerCh chan struct{}

	onAttempt   func(attempt int, delay time.Duration)
	onRestored  func()
	onExhausted func(err error)
}

// NewSupervisor creates a supervisor. Call Start before Trigger has any
// effect.
func NewSupervisor(config SupervisorConfig) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		config:    config,
		policy:    config.Policy.withDefaults(),
		logger:    log.OrDiscard(config.Logger),
		ctx:       ctx,
		cancel:    cancel,
		triggerCh: make(chan struct{}, 1),
	}
}

// Policy returns the effective retry policy.
func (s *Supervisor) Policy() RetryPolicy {
	return s.policy
}

// Start launches the supervision goroutine. Calling it again is a no-op.
func (s *Supervisor) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true
	s.wg.Add(1)
	go s.loop()
}

// Trigger reports a connection loss. It never blocks. Triggers after
// exhaustion or Close are ignored.
func (s *Supervisor) Trigger() {
	s.mu.Lock()
	ignore := s.closed || s.exhausted
	s.mu.Unlock()
	if ignore {
		return
	}

	select {
	case s.triggerCh <- struct{}{}:
	default:
		// Already pending
	}
}

// Rearm clears the attempt counter and the exhausted flag so the next
// Trigger starts a fresh schedule.
func (s *Supervisor) Rearm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = 0
	s.exhausted = false
}

// Attempts returns the number of attempts made since the last success.
func (s *Supervisor) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Exhausted reports whether the supervisor has given up.
func (s *Supervisor) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exhausted
}

// Close cancels any pending wait or attempt and stops the goroutine.
func (s *Supervisor) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// OnAttempt sets a callback invoked before each attempt's delay.
func (s *Supervisor) OnAttempt(fn func(attempt int, delay time.Duration)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAttempt = fn
}

// OnRestored sets a callback for a successful reconnection.
func (s *Supervisor) OnRestored(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRestored = fn
}

// OnExhausted sets a callback for the final failure.
func (s *Supervisor) OnExhausted(fn func(err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExhausted = fn
}

func (s *Supervisor) loop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.triggerCh:
			s.run()
		}
	}
}

// run performs attempts until success, exhaustion or Close.
func (s *Supervisor) run() {
	if s.config.Connected != nil && s.config.Connected() {
		return
	}

	var lastErr error
	for {
		s.mu.Lock()
		if s.closed || s.exhausted {
			s.mu.Unlock()
			return
		}
		if s.attempts >= s.policy.MaxAttempts {
			s.exhausted = true
			onExhausted := s.onExhausted
			attempts := s.attempts
			s.mu.Unlock()

			err := ErrExhausted
			if lastErr != nil {
				err = errors.Join(ErrExhausted, lastErr)
			}
			s.logger.Error("Giving up reconnection",
				slog.Int("attempts", attempts),
				slog.Any("error", lastErr))
			s.logState("reconnecting", "exhausted", err.Error())
			if onExhausted != nil {
				onExhausted(err)
			}
			return
		}
		s.attempts++
		attempt := s.attempts
		onAttempt := s.onAttempt
		s.mu.Unlock()

		delay := s.policy.Delay
		s.logger.Info("Reconnecting",
			slog.Int("attempt", attempt),
			slog.Int("maxAttempts", s.policy.MaxAttempts),
			slog.Duration("delay", delay))
		if onAttempt != nil {
			onAttempt(attempt, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		err := s.config.Reconnect(s.ctx)
		if err == nil {
			s.mu.Lock()
			s.attempts = 0
			onRestored := s.onRestored
			s.mu.Unlock()

			s.logger.Info("Reconnected", slog.Int("attempt", attempt))
			s.logState("reconnecting", "restored", "")
			if onRestored != nil {
				onRestored()
			}
			return
		}

		lastErr = err
		s.logger.Warn("Reconnection attempt failed",
			slog.Int("attempt", attempt),
			slog.Any("error", err))
	}
}

func (s *Supervisor) logState(from, to, reason string) {
	if s.config.ProtocolLogger == nil {
		return
	}
	s.config.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.config.ConnID,
		Layer:        log.LayerSession,
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityReconnect,
			OldState: from,
			NewState: to,
			Reason:   reason,
		},
	})
}
