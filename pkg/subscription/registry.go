package subscription

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonnelaakso/emberplus-go/pkg/log"
	"github.com/jonnelaakso/emberplus-go/pkg/treepath"
	"github.com/jonnelaakso/emberplus-go/pkg/value"
)

// Config configures a Registry.
type Config struct {
	// OnlyOnChange drops updates equal to the last dispatched value.
	OnlyOnChange bool

	// Logger receives handler panics and dispatch traces. Nil discards.
	Logger *slog.Logger

	// ProtocolLogger receives subscription state events. Optional.
	ProtocolLogger log.Logger
	ConnID         string
}

// Registry maps canonical paths to subscription entries.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	nextID  atomic.Uint64

	onlyOnChange bool
	logger       *slog.Logger
	plog         log.Logger
	connID       string
}

// NewRegistry creates an empty registry.
func NewRegistry(config Config) *Registry {
	return &Registry{
		entries:      make(map[string]*entry),
		onlyOnChange: config.OnlyOnChange,
		logger:       log.OrDiscard(config.Logger),
		plog:         config.ProtocolLogger,
		connID:       config.ConnID,
	}
}

// OnlyOnChange reports the change filtering policy.
func (r *Registry) OnlyOnChange() bool {
	return r.onlyOnChange
}

// Add registers handler under the canonical form of path. It returns the
// new entry's ID and whether an existing entry was replaced.
func (r *Registry) Add(path string, handler Handler) (id uint64, replaced bool) {
	key := treepath.Normalize(path)
	id = r.nextID.Add(1)

	r.mu.Lock()
	_, replaced = r.entries[key]
	r.entries[key] = newEntry(id, key, handler)
	r.mu.Unlock()

	reason := "added"
	if replaced {
		reason = "replaced"
	}
	r.logState(key, "", "active", reason)
	return id, replaced
}

// Remove deletes the entry for path. It reports whether one existed.
func (r *Registry) Remove(path string) bool {
	key := treepath.Normalize(path)

	r.mu.Lock()
	_, ok := r.entries[key]
	delete(r.entries, key)
	r.mu.Unlock()

	if ok {
		r.logState(key, "active", "removed", "")
	}
	return ok
}

// RemoveIf deletes the entry for path only if it is still the entry with
// the given ID. A concurrent replacement is left in place.
func (r *Registry) RemoveIf(path string, id uint64) bool {
	key := treepath.Normalize(path)

	r.mu.Lock()
	e, ok := r.entries[key]
	if ok && e.id != id {
		ok = false
	}
	if ok {
		delete(r.entries, key)
	}
	r.mu.Unlock()

	if ok {
		r.logState(key, "active", "removed", "rollback")
	}
	return ok
}

// Has reports whether path has an entry, bound or pending.
func (r *Registry) Has(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[treepath.Normalize(path)]
	return ok
}

// Get returns a snapshot of the entry for path.
func (r *Registry) Get(path string) (Entry, bool) {
	r.mu.RLock()
	e, ok := r.entries[treepath.Normalize(path)]
	r.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	return e.snapshot(), true
}

// Count returns the number of entries.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Paths returns all registered paths, shallow first.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	paths := make([]string, 0, len(r.entries))
	for p := range r.entries {
		paths = append(paths, p)
	}
	r.mu.RUnlock()

	treepath.Sort(paths)
	return paths
}

// Pending returns the paths whose binding was dropped by Unbind.
func (r *Registry) Pending() []string {
	var paths []string
	for _, e := range r.list() {
		e.mu.Lock()
		if !e.bound {
			paths = append(paths, e.path)
		}
		e.mu.Unlock()
	}

	treepath.Sort(paths)
	return paths
}

// Unbind marks every entry pending after a connection loss and returns
// how many entries were affected.
func (r *Registry) Unbind() int {
	n := 0
	for _, e := range r.list() {
		e.mu.Lock()
		if e.bound {
			e.bound = false
			n++
		}
		e.mu.Unlock()
	}

	if n > 0 {
		r.logger.Debug("Subscriptions unbound", slog.Int("count", n))
	}
	return n
}

// list returns the current entries. Entry locks are taken only after
// r.mu is released; a handler holding its entry may call Add or Remove.
func (r *Registry) list() []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}

// Clear removes every entry and returns how many were removed.
func (r *Registry) Clear() int {
	r.mu.Lock()
	n := len(r.entries)
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	if n > 0 {
		r.logger.Debug("Subscriptions cleared", slog.Int("count", n))
	}
	return n
}

// Seed sets the last known value of path without dispatching, so the next
// update is compared against it. It reports whether path has an entry.
func (r *Registry) Seed(path string, v any) bool {
	r.mu.RLock()
	e, ok := r.entries[treepath.Normalize(path)]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	e.last = v
	e.first = false
	e.mu.Unlock()
	return true
}

// Dispatch delivers one raw update for path. It reports whether the
// handler was invoked.
func (r *Registry) Dispatch(path string, update any) bool {
	key := treepath.Normalize(path)
	v := value.Extract(update)

	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.bound {
		return false
	}
	if r.onlyOnChange && !e.first && value.DeepEqual(e.last, v) {
		return false
	}

	change := Change{
		Path:      key,
		Value:     v,
		First:     e.first,
		Update:    update,
		Timestamp: time.Now(),
	}
	if !e.first {
		change.Previous = e.last
	}

	r.invoke(e, change)

	e.last = v
	e.first = false
	e.dispatched++
	return true
}

// DispatchFunc returns a session-facing callback bound to path.
func (r *Registry) DispatchFunc(path string) func(update any) {
	key := treepath.Normalize(path)
	return func(update any) {
		r.Dispatch(key, update)
	}
}

func (r *Registry) invoke(e *entry, change Change) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Subscription handler panicked",
				slog.String("path", e.path),
				slog.String("panic", fmt.Sprint(p)))
		}
	}()
	if e.handler != nil {
		e.handler(change)
	}
}

func (r *Registry) logState(path, from, to, reason string) {
	r.logger.Debug("Subscription state change",
		slog.String("path", path),
		slog.String("state", to),
		slog.String("reason", reason))

	if r.plog == nil {
		return
	}
	r.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: r.connID,
		Layer:        log.LayerSession,
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySubscription,
			OldState: from,
			NewState: to,
			Reason:   path + " " + reason,
		},
	})
}
