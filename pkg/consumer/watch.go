package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonnelaakso/emberplus-go/pkg/connection"
	"github.com/jonnelaakso/emberplus-go/pkg/subscription"
	"github.com/jonnelaakso/emberplus-go/pkg/treepath"
	"github.com/jonnelaakso/emberplus-go/pkg/value"
)

// Record is one emission of a watch.
type Record struct {
	Path          string       `json:"path"`
	Value         value.Value  `json:"value"`
	Timestamp     time.Time    `json:"timestamp"`
	PreviousValue *value.Value `json:"previousValue,omitempty"`
	Identifier    string       `json:"identifier,omitempty"`
	Description   string       `json:"description,omitempty"`
}

// WatchOptions shape the records a Watcher emits and its retry schedule.
type WatchOptions struct {
	IncludePreviousValue bool
	IncludeMetadata      bool

	// Retry is the reconnection schedule. Zero fields take defaults.
	Retry connection.RetryPolicy
}

// Watcher keeps a set of desired subscriptions alive across connection
// loss and turns their updates into records.
type Watcher struct {
	client *Client
	opts   WatchOptions
	sup    *connection.Supervisor
	emit   func(Record)
	logger *slog.Logger

	mu      sync.Mutex
	desired map[string]*watch
	closed  bool
}

// watch is the state kept for one desired path.
type watch struct {
	path        string
	identifier  string
	description string
	last        value.Value
	hasLast     bool
}

// NewWatcher attaches a watcher to client. emit is called for every record
// and must not block for long; it runs on the update delivery path.
func NewWatcher(client *Client, opts WatchOptions, emit func(Record)) *Watcher {
	w := &Watcher{
		client:  client,
		opts:    opts,
		emit:    emit,
		logger:  client.logger,
		desired: make(map[string]*watch),
	}
	w.sup = connection.NewSupervisor(connection.SupervisorConfig{
		Policy:         opts.Retry,
		Reconnect:      w.reconnect,
		Connected:      client.IsConnected,
		Logger:         client.logger,
		ProtocolLogger: client.config.ProtocolLogger,
		ConnID:         client.config.ConnID,
	})
	w.sup.OnExhausted(w.handleExhausted)
	client.OnLost(func(error) { w.sup.Trigger() })
	w.sup.Start()
	return w
}

// Supervisor exposes the reconnection supervisor, e.g. to observe
// attempts.
func (w *Watcher) Supervisor() *connection.Supervisor {
	return w.sup
}

// Watch subscribes to path and keeps the subscription across reconnects.
// Watching a path twice replaces the first watch.
func (w *Watcher) Watch(ctx context.Context, path string) (*SubscribeResult, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, newError(KindOperationFailed, "watch", path, "watcher closed")
	}
	w.mu.Unlock()

	res, err := w.client.Subscribe(ctx, path, w.handle)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.desired[res.Path] = &watch{
		path:        res.Path,
		identifier:  res.Node.Identifier,
		description: res.Node.Description,
		last:        res.CurrentValue,
		hasLast:     true,
	}
	w.mu.Unlock()

	w.logger.Info("Watching", slog.String("path", res.Path))
	return res, nil
}

// Unwatch drops path from the desired set and unsubscribes it. It
// reports whether path was watched.
func (w *Watcher) Unwatch(path string) bool {
	key := treepath.Normalize(path)

	w.mu.Lock()
	_, ok := w.desired[key]
	delete(w.desired, key)
	w.mu.Unlock()

	w.client.Unsubscribe(key)
	return ok
}

// Desired returns the watched paths, shallow first.
func (w *Watcher) Desired() []string {
	w.mu.Lock()
	paths := make([]string, 0, len(w.desired))
	for p := range w.desired {
		paths = append(paths, p)
	}
	w.mu.Unlock()

	treepath.Sort(paths)
	return paths
}

// Probe emits the current value of a watched path immediately. It does
// nothing while the connection is down.
func (w *Watcher) Probe(ctx context.Context, path string) error {
	if !w.client.IsConnected() {
		return nil
	}
	key := treepath.Normalize(path)

	w.mu.Lock()
	_, ok := w.desired[key]
	w.mu.Unlock()
	if !ok {
		return newError(KindOperationFailed, "probe", key, "path is not watched")
	}

	res, err := w.client.Get(ctx, key)
	if err != nil {
		return err
	}

	w.record(key, res.Value, true)
	return nil
}

// Restart clears an exhausted supervisor and reconnects immediately.
func (w *Watcher) Restart(ctx context.Context) error {
	w.sup.Rearm()
	return w.reconnect(ctx)
}

// Close stops reconnection, disconnects and clears every subscription.
func (w *Watcher) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.desired = make(map[string]*watch)
	w.mu.Unlock()

	w.sup.Close()
	return w.client.Close(ctx)
}

// handle is the subscription handler for every watched path.
func (w *Watcher) handle(c subscription.Change) {
	v, err := value.FromAny(c.Value)
	if err != nil {
		v = value.String(fmt.Sprint(c.Value))
	}
	w.record(c.Path, v, false)
}

// record updates the last value of path and emits a record.
func (w *Watcher) record(path string, v value.Value, probe bool) {
	w.mu.Lock()
	wt, ok := w.desired[path]
	if !ok {
		w.mu.Unlock()
		return
	}
	rec := Record{
		Path:      path,
		Value:     v,
		Timestamp: time.Now(),
	}
	if w.opts.IncludePreviousValue && wt.hasLast {
		prev := wt.last
		rec.PreviousValue = &prev
	}
	if w.opts.IncludeMetadata {
		rec.Identifier = wt.identifier
		rec.Description = wt.description
	}
	wt.last = v
	wt.hasLast = true
	w.mu.Unlock()

	if probe {
		w.logger.Debug("Probe", slog.String("path", path))
	}
	if w.emit != nil {
		w.emit(rec)
	}
}

// reconnect connects and replays every desired subscription. Values that
// changed while disconnected are emitted once.
func (w *Watcher) reconnect(ctx context.Context) error {
	if err := w.client.Connect(ctx); err != nil {
		return err
	}

	for _, path := range w.Desired() {
		res, err := w.client.Subscribe(ctx, path, w.handle, WithSeed())
		if err != nil {
			return fmt.Errorf("resubscribe %s: %w", path, err)
		}

		w.mu.Lock()
		wt, ok := w.desired[path]
		changed := false
		if ok {
			wt.identifier = res.Node.Identifier
			wt.description = res.Node.Description
			changed = wt.hasLast && !wt.last.Equal(res.CurrentValue)
		}
		w.mu.Unlock()

		if changed {
			w.record(path, res.CurrentValue, false)
		}
	}

	w.logger.Info("Watch restored", slog.Int("paths", len(w.Desired())))
	return nil
}

func (w *Watcher) handleExhausted(err error) {
	w.logger.Error("Watch stopped, provider unreachable",
		slog.Any("error", err),
		slog.Int("paths", len(w.Desired())))
	w.client.Registry().Clear()
}

// OnExhausted sets a callback for when reconnection gives up.
func (w *Watcher) OnExhausted(fn func(err error)) {
	w.sup.OnExhausted(func(err error) {
		w.handleExhausted(err)
		fn(err)
	})
}

// OnRestored sets a callback for a successful reconnection.
func (w *Watcher) OnRestored(fn func()) {
	w.sup.OnRestored(fn)
}
