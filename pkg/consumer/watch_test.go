package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jonnelaakso/emberplus-go/pkg/connection"
	"github.com/jonnelaakso/emberplus-go/pkg/session"
	"github.com/jonnelaakso/emberplus-go/pkg/value"
)

type recordSink struct {
	mu      sync.Mutex
	records []Record
}

func (s *recordSink) emit(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
}

func (s *recordSink) all() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

func TestWatcherEmitsRecords(t *testing.T) {
	c, sess, _ := connectedClient(t, Config{OnlyOnChange: true})
	node := param("0.1.2", value.Number(-12.5))
	node.Description = "Input gain"

	var push func(any)
	sess.EXPECT().ResolvePath(mock.Anything, "0.1.2").Return(node, nil).Once()
	sess.EXPECT().SubscribeNode(mock.Anything, node, mock.Anything).
		Run(func(_ context.Context, _ *session.Node, onUpdate func(any)) { push = onUpdate }).
		Return(nil).Once()
	sess.EXPECT().Disconnect(mock.Anything).Return(nil).Once()

	var sink recordSink
	w := NewWatcher(c, WatchOptions{IncludePreviousValue: true, IncludeMetadata: true}, sink.emit)
	defer w.Close(context.Background())

	res, err := w.Watch(context.Background(), "0.1.2")
	require.NoError(t, err)
	assert.Equal(t, value.Number(-12.5), res.CurrentValue)
	assert.Equal(t, []string{"0.1.2"}, w.Desired())

	push(session.Update{Path: "0.1.2", Value: value.Number(-6)})
	push(session.Update{Path: "0.1.2", Value: value.Number(-6)})

	recs := sink.all()
	require.Len(t, recs, 1)
	assert.Equal(t, "0.1.2", recs[0].Path)
	assert.Equal(t, value.Number(-6), recs[0].Value)
	require.NotNil(t, recs[0].PreviousValue)
	assert.Equal(t, value.Number(-12.5), *recs[0].PreviousValue)
	assert.Equal(t, "gain", recs[0].Identifier)
	assert.Equal(t, "Input gain", recs[0].Description)
	assert.False(t, recs[0].Timestamp.IsZero())
}

func TestWatcherOmitsOptionalFields(t *testing.T) {
	c, sess, _ := connectedClient(t, Config{})
	node := param("0.1", value.Bool(false))

	var push func(any)
	sess.EXPECT().ResolvePath(mock.Anything, "0.1").Return(node, nil).Once()
	sess.EXPECT().SubscribeNode(mock.Anything, node, mock.Anything).
		Run(func(_ context.Context, _ *session.Node, onUpdate func(any)) { push = onUpdate }).
		Return(nil).Once()
	sess.EXPECT().Disconnect(mock.Anything).Return(nil).Once()

	var sink recordSink
	w := NewWatcher(c, WatchOptions{}, sink.emit)
	defer w.Close(context.Background())

	_, err := w.Watch(context.Background(), "0.1")
	require.NoError(t, err)
	push(map[string]any{"value": true})

	recs := sink.all()
	require.Len(t, recs, 1)
	assert.Equal(t, value.Bool(true), recs[0].Value)
	assert.Nil(t, recs[0].PreviousValue)
	assert.Empty(t, recs[0].Identifier)
}

func TestWatcherReconnectCap(t *testing.T) {
	c, sess, handler := connectedClient(t, Config{})

	const delay = 30 * time.Millisecond
	var mu sync.Mutex
	var attempts, dials []time.Time
	sess.EXPECT().Connect(mock.Anything).RunAndReturn(func(context.Context) error {
		mu.Lock()
		dials = append(dials, time.Now())
		mu.Unlock()
		return errors.New("still down")
	}).Times(3)

	var sink recordSink
	w := NewWatcher(c, WatchOptions{
		Retry: connection.RetryPolicy{MaxAttempts: 3, Delay: delay},
	}, sink.emit)
	defer w.Close(context.Background())

	w.Supervisor().OnAttempt(func(_ int, d time.Duration) {
		assert.Equal(t, delay, d, "fixed delay")
		mu.Lock()
		attempts = append(attempts, time.Now())
		mu.Unlock()
	})

	exhausted := make(chan error, 1)
	w.OnExhausted(func(err error) { exhausted <- err })

	c.Registry().Add("0.1", nil)
	handler(session.Event{Type: session.EventDisconnected})

	select {
	case err := <-exhausted:
		assert.ErrorIs(t, err, connection.ErrExhausted)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not give up")
	}

	assert.Equal(t, 3, w.Supervisor().Attempts())
	assert.Equal(t, connection.StateDisconnected, c.State())
	assert.Equal(t, 0, c.Registry().Count(), "exhaustion drops subscriptions")

	// No further attempts: Times(3) would fail on a fourth Connect.
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, attempts, 3)
	require.Len(t, dials, 3)
	for i := range attempts {
		assert.GreaterOrEqual(t, dials[i].Sub(attempts[i]), delay, "attempt %d dialed before its delay", i+1)
		if i > 0 {
			assert.GreaterOrEqual(t, attempts[i].Sub(attempts[i-1]), delay, "attempt %d spacing", i+1)
		}
	}
}

func TestWatcherReplaysSubscriptions(t *testing.T) {
	c, sess, handler := connectedClient(t, Config{OnlyOnChange: true})

	before := param("0.1.2", value.Number(1))
	after := param("0.1.2", value.Number(4))

	var mu sync.Mutex
	var push func(any)
	capture := func(_ context.Context, _ *session.Node, onUpdate func(any)) {
		mu.Lock()
		push = onUpdate
		mu.Unlock()
	}

	sess.EXPECT().ResolvePath(mock.Anything, "0.1.2").Return(before, nil).Once()
	sess.EXPECT().SubscribeNode(mock.Anything, before, mock.Anything).Run(capture).Return(nil).Once()

	var sink recordSink
	w := NewWatcher(c, WatchOptions{
		IncludePreviousValue: true,
		Retry:                connection.RetryPolicy{MaxAttempts: 3, Delay: 10 * time.Millisecond},
	}, sink.emit)

	restored := make(chan struct{}, 1)
	w.OnRestored(func() { restored <- struct{}{} })

	_, err := w.Watch(context.Background(), "0.1.2")
	require.NoError(t, err)

	// Second connection: the value moved to 4 while the link was down.
	sess.EXPECT().Connect(mock.Anything).Return(nil).Once()
	sess.EXPECT().ResolvePath(mock.Anything, "0.1.2").Return(after, nil).Once()
	sess.EXPECT().SubscribeNode(mock.Anything, after, mock.Anything).Run(capture).Return(nil).Once()

	handler(session.Event{Type: session.EventDisconnected})

	select {
	case <-restored:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not reconnect")
	}

	assert.True(t, c.IsConnected())
	assert.Empty(t, c.Registry().Pending())

	recs := sink.all()
	require.Len(t, recs, 1, "the change made while disconnected is emitted once")
	assert.Equal(t, value.Number(4), recs[0].Value)
	require.NotNil(t, recs[0].PreviousValue)
	assert.Equal(t, value.Number(1), *recs[0].PreviousValue)

	// The entry was seeded, so an update repeating the current value is dropped.
	mu.Lock()
	fn := push
	mu.Unlock()
	fn(session.Update{Path: "0.1.2", Value: value.Number(4)})
	assert.Len(t, sink.all(), 1)

	sess.EXPECT().Disconnect(mock.Anything).Return(nil).Once()
	require.NoError(t, w.Close(context.Background()))
}

func TestWatcherProbe(t *testing.T) {
	c, sess, handler := connectedClient(t, Config{})
	node := param("0.2", value.String("on air"))

	sess.EXPECT().ResolvePath(mock.Anything, "0.2").Return(node, nil).Times(2)
	sess.EXPECT().SubscribeNode(mock.Anything, node, mock.Anything).Return(nil).Once()

	var sink recordSink
	w := NewWatcher(c, WatchOptions{
		Retry: connection.RetryPolicy{MaxAttempts: 1, Delay: time.Hour},
	}, sink.emit)
	defer w.Close(context.Background())

	_, err := w.Watch(context.Background(), "0.2")
	require.NoError(t, err)

	require.NoError(t, w.Probe(context.Background(), "0.2"))
	recs := sink.all()
	require.Len(t, recs, 1)
	assert.Equal(t, value.String("on air"), recs[0].Value)

	err = w.Probe(context.Background(), "0.9")
	assert.ErrorIs(t, err, ErrOperationFailed)

	// While down, probe is a no-op.
	handler(session.Event{Type: session.EventDisconnected})
	assert.NoError(t, w.Probe(context.Background(), "0.2"))
	assert.Len(t, sink.all(), 1)
}

func TestWatcherUnwatchAndClose(t *testing.T) {
	c, sess, _ := connectedClient(t, Config{})
	node := param("0.1", value.Number(0))

	sess.EXPECT().ResolvePath(mock.Anything, "0.1").Return(node, nil).Once()
	sess.EXPECT().SubscribeNode(mock.Anything, node, mock.Anything).Return(nil).Once()
	sess.EXPECT().Disconnect(mock.Anything).Return(nil).Once()

	w := NewWatcher(c, WatchOptions{}, nil)

	_, err := w.Watch(context.Background(), "0.1")
	require.NoError(t, err)

	assert.True(t, w.Unwatch("0.1"))
	assert.False(t, w.Unwatch("0.1"))
	assert.Empty(t, w.Desired())
	assert.False(t, c.Registry().Has("0.1"))

	require.NoError(t, w.Close(context.Background()))
	require.NoError(t, w.Close(context.Background()))
	assert.False(t, c.IsConnected())

	_, err = w.Watch(context.Background(), "0.1")
	assert.ErrorIs(t, err, ErrOperationFailed)
}
