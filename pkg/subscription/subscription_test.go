package subscription

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonnelaakso/emberplus-go/pkg/value"
)

type recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recorder) handle(c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

type envelope struct{ v any }

func (e envelope) UpdateValue() any { return e.v }

func TestRegistryAddRemove(t *testing.T) {
	r := NewRegistry(Config{})

	_, replaced := r.Add(" 0.1.2 ", func(Change) {})
	assert.False(t, replaced)
	assert.True(t, r.Has("0.1.2"))
	assert.Equal(t, 1, r.Count())

	_, replaced = r.Add("0.1.2", func(Change) {})
	assert.True(t, replaced, "re-adding replaces the entry")
	assert.Equal(t, 1, r.Count())

	assert.True(t, r.Remove("0.1.2"))
	assert.False(t, r.Remove("0.1.2"))
	assert.False(t, r.Has("0.1.2"))
	assert.Equal(t, 0, r.Count())
}

func TestRegistryReplaceSwapsHandler(t *testing.T) {
	r := NewRegistry(Config{})
	var first, second recorder

	r.Add("a.b", first.handle)
	r.Add("a.b", second.handle)

	require.True(t, r.Dispatch("a.b", 1.0))
	assert.Equal(t, 0, first.count())
	assert.Equal(t, 1, second.count())
}

func TestRegistryRemoveIf(t *testing.T) {
	r := NewRegistry(Config{})

	oldID, _ := r.Add("a", func(Change) {})
	newID, _ := r.Add("a", func(Change) {})

	assert.False(t, r.RemoveIf("a", oldID), "stale id must not remove the replacement")
	assert.True(t, r.Has("a"))
	assert.True(t, r.RemoveIf("a", newID))
	assert.False(t, r.Has("a"))
}

func TestRegistryPathsSorted(t *testing.T) {
	r := NewRegistry(Config{})
	for _, p := range []string{"1.2.3", "0", "0.10", "0.2", "b"} {
		r.Add(p, nil)
	}

	assert.Equal(t, []string{"0", "b", "0.10", "0.2", "1.2.3"}, r.Paths())
}

func TestDispatchOnlyOnChange(t *testing.T) {
	tests := []struct {
		name         string
		onlyOnChange bool
		updates      []any
		want         int
	}{
		{"FilterEqual", true, []any{1.0, 1.0}, 1},
		{"NoFilter", false, []any{1.0, 1.0}, 2},
		{"FilterDistinct", true, []any{1.0, 2.0, 2.0, 1.0}, 3},
		{"FilterValues", true, []any{value.Number(-12.5), value.Number(-12.5)}, 1},
		{"FilterMaps", true, []any{map[string]any{"x": 1}, map[string]any{"x": 1}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(Config{OnlyOnChange: tt.onlyOnChange})
			var rec recorder
			r.Add("0.1", rec.handle)

			for _, u := range tt.updates {
				r.Dispatch("0.1", u)
			}
			assert.Equal(t, tt.want, rec.count())
		})
	}
}

func TestDispatchChangeFields(t *testing.T) {
	r := NewRegistry(Config{OnlyOnChange: true})
	var rec recorder
	r.Add("0.1.2", rec.handle)

	r.Dispatch("0.1.2", envelope{v: 1.0})
	r.Dispatch("0.1.2", map[string]any{"value": 2.0, "ts": 1})

	require.Equal(t, 2, rec.count())
	first, second := rec.changes[0], rec.changes[1]

	assert.True(t, first.First)
	assert.Nil(t, first.Previous)
	assert.Equal(t, 1.0, first.Value)
	assert.Equal(t, "0.1.2", first.Path)

	assert.False(t, second.First)
	assert.Equal(t, 1.0, second.Previous)
	assert.Equal(t, 2.0, second.Value)

	e, ok := r.Get("0.1.2")
	require.True(t, ok)
	assert.Equal(t, 2.0, e.Last)
	assert.Equal(t, 2, e.Dispatched)
	assert.True(t, e.HasLast)
}

func TestDispatchUnknownPathDropped(t *testing.T) {
	r := NewRegistry(Config{})
	assert.False(t, r.Dispatch("9.9", 1.0))
}

func TestDispatchRecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	r := NewRegistry(Config{Logger: logger})

	var other recorder
	r.Add("bad", func(Change) { panic("boom") })
	r.Add("good", other.handle)

	assert.NotPanics(t, func() { r.Dispatch("bad", 1.0) })
	assert.True(t, r.Dispatch("good", 1.0))
	assert.Equal(t, 1, other.count())
	assert.Contains(t, buf.String(), "boom")

	// The failed value still counts as last seen.
	e, _ := r.Get("bad")
	assert.Equal(t, 1.0, e.Last)
}

func TestUnbindAndClear(t *testing.T) {
	r := NewRegistry(Config{})
	var rec recorder
	r.Add("0.1", rec.handle)
	r.Add("0.2", rec.handle)

	assert.Equal(t, 2, r.Unbind())
	assert.Equal(t, 0, r.Unbind())
	assert.Equal(t, []string{"0.1", "0.2"}, r.Pending())
	assert.Equal(t, 2, r.Count(), "pending entries stay listed")

	assert.False(t, r.Dispatch("0.1", 1.0), "pending entries receive nothing")
	assert.Equal(t, 0, rec.count())

	// Re-adding binds again.
	r.Add("0.1", rec.handle)
	assert.Equal(t, []string{"0.2"}, r.Pending())
	assert.True(t, r.Dispatch("0.1", 1.0))

	assert.Equal(t, 2, r.Clear())
	assert.Equal(t, 0, r.Count())
	assert.Empty(t, r.Paths())
}

func TestSeed(t *testing.T) {
	r := NewRegistry(Config{OnlyOnChange: true})
	var rec recorder
	r.Add("0.1", rec.handle)

	assert.True(t, r.Seed("0.1", 5.0))
	assert.False(t, r.Seed("0.9", 5.0))

	r.Dispatch("0.1", 5.0)
	assert.Equal(t, 0, rec.count(), "seeded value suppresses an equal update")

	r.Dispatch("0.1", 6.0)
	require.Equal(t, 1, rec.count())
	assert.Equal(t, 5.0, rec.changes[0].Previous)
}

func TestDispatchFunc(t *testing.T) {
	r := NewRegistry(Config{})
	var rec recorder
	r.Add("0.3", rec.handle)

	fn := r.DispatchFunc(" 0.3 ")
	fn(value.Bool(true))

	require.Equal(t, 1, rec.count())
	assert.Equal(t, value.Bool(true), rec.changes[0].Value)
}

func TestConcurrentDispatch(t *testing.T) {
	r := NewRegistry(Config{})
	var rec recorder
	r.Add("p", rec.handle)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Dispatch("p", float64(i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, rec.count())
}

func TestHandlerMayAddWhileUnbinding(t *testing.T) {
	r := NewRegistry(Config{})

	entered := make(chan struct{})
	release := make(chan struct{})
	r.Add("a", func(Change) {
		close(entered)
		<-release
		r.Add("b", nil)
	})

	dispatched := make(chan struct{})
	go func() {
		r.Dispatch("a", 1.0)
		close(dispatched)
	}()
	<-entered

	unbound := make(chan int, 1)
	go func() { unbound <- r.Unbind() }()

	// Give Unbind time to reach the entry held by the handler.
	time.Sleep(50 * time.Millisecond)
	close(release)

	select {
	case <-dispatched:
	case <-time.After(2 * time.Second):
		t.Fatal("handler calling Add blocked behind Unbind")
	}
	select {
	case n := <-unbound:
		assert.GreaterOrEqual(t, n, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("Unbind did not return")
	}
	assert.Contains(t, r.Pending(), "a")
	assert.True(t, r.Has("b"))
}
