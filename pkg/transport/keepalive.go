package transport

import (
	"context"
	"sync"
	"time"
)

// Keep-alive defaults.
const (
	DefaultPingInterval   = 15 * time.Second
	DefaultPongTimeout    = 5 * time.Second
	DefaultMaxMissedPongs = 3
)

// KeepAliveConfig configures liveness monitoring.
type KeepAliveConfig struct {
	PingInterval   time.Duration
	PongTimeout    time.Duration
	MaxMissedPongs int
}

// DefaultKeepAliveConfig returns the default keep-alive configuration.
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		PingInterval:   DefaultPingInterval,
		PongTimeout:    DefaultPongTimeout,
		MaxMissedPongs: DefaultMaxMissedPongs,
	}
}

// DetectionDelay is the longest a dead connection can go unnoticed.
func (c KeepAliveConfig) DetectionDelay() time.Duration {
	return c.PingInterval*time.Duration(c.MaxMissedPongs) + c.PongTimeout
}

// KeepAlive pings a peer periodically and reports the connection dead
// after MaxMissedPongs pings go unanswered.
type KeepAlive struct {
	config    KeepAliveConfig
	sendPing  func(seq uint32) error
	onTimeout func()

	mu          sync.Mutex
	seq         uint32
	pending     bool
	lastPing    time.Time
	missedPongs int
	running     bool
	stopCh      chan struct{}
	pongCh      chan uint32
}

// NewKeepAlive creates a keep-alive monitor. onTimeout is called at most
// once per Start, from the monitor goroutine.
func NewKeepAlive(config KeepAliveConfig, sendPing func(seq uint32) error, onTimeout func()) *KeepAlive {
	def := DefaultKeepAliveConfig()
	if config.PingInterval == 0 {
		config.PingInterval = def.PingInterval
	}
	if config.PongTimeout == 0 {
		config.PongTimeout = def.PongTimeout
	}
	if config.MaxMissedPongs == 0 {
		config.MaxMissedPongs = def.MaxMissedPongs
	}
	return &KeepAlive{
		config:    config,
		sendPing:  sendPing,
		onTimeout: onTimeout,
		pongCh:    make(chan uint32, 1),
	}
}

// Start launches the monitor. It is a no-op if already running.
func (ka *KeepAlive) Start(ctx context.Context) {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	if ka.running {
		return
	}
	ka.running = true
	ka.missedPongs = 0
	ka.pending = false
	ka.stopCh = make(chan struct{})
	go ka.loop(ctx, ka.stopCh)
}

// Stop halts the monitor.
func (ka *KeepAlive) Stop() {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	if !ka.running {
		return
	}
	ka.running = false
	close(ka.stopCh)
}

// PongReceived records a pong from the peer.
func (ka *KeepAlive) PongReceived(seq uint32) {
	select {
	case ka.pongCh <- seq:
	default:
	}
}

// MissedPongs returns the current count of unanswered pings.
func (ka *KeepAlive) MissedPongs() int {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.missedPongs
}

func (ka *KeepAlive) loop(ctx context.Context, stopCh chan struct{}) {
	ticker := time.NewTicker(ka.config.PingInterval)
	defer ticker.Stop()

	ka.ping()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case seq := <-ka.pongCh:
			ka.pong(seq)
		case <-ticker.C:
			if ka.expired() {
				ka.mu.Lock()
				ka.running = false
				ka.mu.Unlock()
				if ka.onTimeout != nil {
					ka.onTimeout()
				}
				return
			}
			ka.ping()
		}
	}
}

func (ka *KeepAlive) ping() {
	ka.mu.Lock()
	ka.seq++
	seq := ka.seq
	ka.pending = true
	ka.lastPing = time.Now()
	ka.mu.Unlock()

	// A failed send is left for the pong timeout to detect.
	_ = ka.sendPing(seq)
}

func (ka *KeepAlive) pong(seq uint32) {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	if ka.pending && seq == ka.seq {
		ka.pending = false
		ka.missedPongs = 0
	}
}

// expired counts an overdue ping and reports whether the limit is reached.
func (ka *KeepAlive) expired() bool {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	if ka.pending && time.Since(ka.lastPing) >= ka.config.PongTimeout {
		ka.pending = false
		ka.missedPongs++
	}
	return ka.missedPongs >= ka.config.MaxMissedPongs
}
