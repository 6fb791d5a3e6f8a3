package subscription

import (
	"sync"
	"time"
)

// Change is passed to a Handler for each dispatched update.
type Change struct {
	// Path is the canonical path the entry was registered under.
	Path string

	// Value is the extracted value.
	Value any

	// Previous is the last dispatched value. Nil on the first update.
	Previous any

	// First is set for the first update after the entry was added.
	First bool

	// Update is the raw envelope as delivered by the session.
	Update any

	Timestamp time.Time
}

// Handler receives dispatched changes. Handlers run with their entry
// locked and must not call Get, Seed, Pending or Unbind from inside.
// Add, Remove and Dispatch of other paths are allowed.
type Handler func(Change)

// Entry is a snapshot of a registry entry.
type Entry struct {
	ID         uint64
	Path       string
	Last       any
	HasLast    bool
	Bound      bool
	Dispatched int
	Added      time.Time
}

// entry is one registered path.
type entry struct {
	id      uint64
	path    string
	handler Handler
	added   time.Time

	// mu serializes dispatch for this path and guards the fields below.
	mu         sync.Mutex
	last       any
	first      bool
	bound      bool
	dispatched int
}

func newEntry(id uint64, path string, handler Handler) *entry {
	return &entry{
		id:      id,
		path:    path,
		handler: handler,
		added:   time.Now(),
		first:   true,
		bound:   true,
	}
}

func (e *entry) snapshot() Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Entry{
		ID:         e.id,
		Path:       e.path,
		Last:       e.last,
		HasLast:    !e.first,
		Bound:      e.bound,
		Dispatched: e.dispatched,
		Added:      e.added,
	}
}
