package consumer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jonnelaakso/emberplus-go/pkg/connection"
	"github.com/jonnelaakso/emberplus-go/pkg/session"
	"github.com/jonnelaakso/emberplus-go/pkg/session/mocks"
	"github.com/jonnelaakso/emberplus-go/pkg/subscription"
	"github.com/jonnelaakso/emberplus-go/pkg/value"
	"github.com/jonnelaakso/emberplus-go/pkg/wire"
)

func newTestClient(t *testing.T, config Config) (*Client, *mocks.MockSession, func(session.Event)) {
	t.Helper()

	sess := mocks.NewMockSession(t)
	var handler func(session.Event)
	sess.EXPECT().OnEvent(mock.Anything).Run(func(h func(session.Event)) {
		handler = h
	}).Return().Once()

	if config.Host == "" {
		config.Host = "127.0.0.1"
		config.Port = 9000
	}
	c := New(sess, config)
	return c, sess, handler
}

func connectedClient(t *testing.T, config Config) (*Client, *mocks.MockSession, func(session.Event)) {
	t.Helper()
	c, sess, handler := newTestClient(t, config)
	sess.EXPECT().Connect(mock.Anything).Return(nil).Once()
	require.NoError(t, c.Connect(context.Background()))
	return c, sess, handler
}

func param(path string, v value.Value) *session.Node {
	return &session.Node{
		Path:       path,
		Identifier: "gain",
		Kind:       wire.NodeKindParameter,
		Access:     wire.AccessReadWrite,
		Value:      v,
	}
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func TestDataOperationsRequireConnection(t *testing.T) {
	c, _, _ := newTestClient(t, Config{})
	ctx := context.Background()

	_, err := c.Browse(ctx, "")
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = c.Get(ctx, "0.1.2")
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = c.Set(ctx, "0.1.2", value.Number(1))
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = c.Subscribe(ctx, "0.1.2", func(subscription.Change) {})
	assert.ErrorIs(t, err, ErrNotConnected)

	assert.Equal(t, 0, c.Registry().Count())
}

func TestConnectIdempotent(t *testing.T) {
	c, sess, _ := newTestClient(t, Config{})
	sess.EXPECT().Connect(mock.Anything).Return(nil).Once()

	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.IsConnected())
}

func TestConnectErrors(t *testing.T) {
	t.Run("Failed", func(t *testing.T) {
		c, sess, _ := newTestClient(t, Config{})
		sess.EXPECT().Connect(mock.Anything).Return(errors.New("refused")).Once()

		err := c.Connect(context.Background())
		require.ErrorIs(t, err, ErrConnectionFailed)

		var ce *Error
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "127.0.0.1", ce.Host)
		assert.Equal(t, 9000, ce.Port)
		assert.True(t, ce.Kind.IsConnectionLevel())
		assert.NotEmpty(t, ce.Hint())
	})

	t.Run("Timeout", func(t *testing.T) {
		c, sess, _ := newTestClient(t, Config{ConnectTimeout: 30 * time.Millisecond})

		release := make(chan struct{})
		sess.EXPECT().Connect(mock.Anything).RunAndReturn(func(context.Context) error {
			<-release
			return errors.New("gave up")
		}).Once()
		defer close(release)

		start := time.Now()
		err := c.Connect(context.Background())
		assert.ErrorIs(t, err, ErrConnectionTimeout)
		assert.Less(t, time.Since(start), time.Second)
		assert.Equal(t, connection.StateDisconnected, c.State())
	})
}

func TestDisconnect(t *testing.T) {
	t.Run("NeverConnected", func(t *testing.T) {
		c, _, _ := newTestClient(t, Config{})
		require.NoError(t, c.Disconnect(context.Background()))
	})

	t.Run("ClearsRegistry", func(t *testing.T) {
		c, sess, _ := connectedClient(t, Config{})
		sess.EXPECT().Disconnect(mock.Anything).Return(nil).Once()

		c.Registry().Add("0.1", nil)
		require.NoError(t, c.Disconnect(context.Background()))
		assert.Equal(t, 0, c.Registry().Count())
		assert.False(t, c.IsConnected())
	})

	t.Run("FailureStillResets", func(t *testing.T) {
		c, sess, _ := connectedClient(t, Config{})
		sess.EXPECT().Disconnect(mock.Anything).Return(errors.New("stuck")).Once()

		err := c.Disconnect(context.Background())
		assert.ErrorIs(t, err, ErrDisconnectionFailed)
		assert.Equal(t, connection.StateDisconnected, c.State())
	})
}

func TestBrowseRoot(t *testing.T) {
	c, sess, _ := connectedClient(t, Config{})

	root := &session.Node{Path: "0", Identifier: "Root", Kind: wire.NodeKindContainer, ChildCount: 2}
	sess.EXPECT().FetchChildren(mock.Anything, (*session.Node)(nil)).Return(closedChan(), nil).Once()
	sess.EXPECT().Children((*session.Node)(nil)).Return([]*session.Node{root}).Once()

	res, err := c.Browse(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "", res.Path)
	require.Len(t, res.Nodes, 1)
	assert.Equal(t, "0", res.Nodes[0].Path)
	assert.Equal(t, "Root", res.Nodes[0].Identifier)
	assert.Equal(t, "container", res.Nodes[0].Kind)
	assert.Nil(t, res.Nodes[0].Value)
}

func TestBrowsePath(t *testing.T) {
	c, sess, _ := connectedClient(t, Config{})

	node := &session.Node{Path: "0.1", Kind: wire.NodeKindContainer}
	child := param("0.1.2", value.Number(-12.5))
	sess.EXPECT().ResolvePath(mock.Anything, "0.1").Return(node, nil).Once()
	sess.EXPECT().FetchChildren(mock.Anything, node).Return(nil, nil).Once()
	sess.EXPECT().Children(node).Return([]*session.Node{child}).Once()

	res, err := c.Browse(context.Background(), " 0.1 ")
	require.NoError(t, err)
	assert.Equal(t, "0.1", res.Path)
	require.Len(t, res.Nodes, 1)
	require.NotNil(t, res.Nodes[0].Value)
	assert.Equal(t, value.Number(-12.5), *res.Nodes[0].Value)
	assert.Equal(t, "readWrite", res.Nodes[0].Access)
}

func TestBrowsePathNotFound(t *testing.T) {
	c, sess, _ := connectedClient(t, Config{})
	sess.EXPECT().ResolvePath(mock.Anything, "9.9").Return(nil, nil).Once()

	_, err := c.Browse(context.Background(), "9.9")
	require.ErrorIs(t, err, ErrPathNotFound)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "browse", ce.Op)
	assert.Equal(t, "9.9", ce.Path)
	assert.Equal(t, "use browse to discover valid paths", ce.Hint())
}

func TestBrowseDirectoryTimeout(t *testing.T) {
	c, sess, _ := connectedClient(t, Config{DirectoryTimeout: 20 * time.Millisecond})

	never := make(chan struct{})
	partial := &session.Node{Path: "0"}
	sess.EXPECT().FetchChildren(mock.Anything, (*session.Node)(nil)).Return(never, nil).Once()
	sess.EXPECT().Children((*session.Node)(nil)).Return([]*session.Node{partial}).Once()

	start := time.Now()
	res, err := c.Browse(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, res.Nodes, 1)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGet(t *testing.T) {
	t.Run("Parameter", func(t *testing.T) {
		c, sess, _ := connectedClient(t, Config{})
		sess.EXPECT().ResolvePath(mock.Anything, "0.1.2").Return(param("0.1.2", value.Number(-12.5)), nil).Once()

		res, err := c.Get(context.Background(), "0.1.2")
		require.NoError(t, err)
		assert.Equal(t, "0.1.2", res.Path)
		assert.Equal(t, value.Number(-12.5), res.Value)
		assert.Nil(t, res.Node)
	})

	t.Run("Container", func(t *testing.T) {
		c, sess, _ := connectedClient(t, Config{})
		node := &session.Node{Path: "0", Identifier: "Root", Kind: wire.NodeKindContainer}
		sess.EXPECT().ResolvePath(mock.Anything, "Root").Return(node, nil).Once()

		res, err := c.Get(context.Background(), "Root")
		require.NoError(t, err)
		assert.True(t, res.Value.IsNull())
		require.NotNil(t, res.Node)
		assert.Equal(t, "Root", res.Node.Identifier)
	})

	t.Run("RootRejected", func(t *testing.T) {
		c, _, _ := connectedClient(t, Config{})
		_, err := c.Get(context.Background(), "  ")
		assert.ErrorIs(t, err, ErrInvalidPath)
	})

	t.Run("InvalidPath", func(t *testing.T) {
		c, _, _ := connectedClient(t, Config{})
		_, err := c.Get(context.Background(), "a..b")
		require.ErrorIs(t, err, ErrInvalidPath)
		assert.Contains(t, err.(*Error).Hint(), "identifier-based")
	})

	t.Run("SessionError", func(t *testing.T) {
		c, sess, _ := connectedClient(t, Config{})
		sess.EXPECT().ResolvePath(mock.Anything, "0.1").
			Return(nil, fmt.Errorf("%w: boom", session.ErrDeviceError)).Once()

		_, err := c.Get(context.Background(), "0.1")
		assert.ErrorIs(t, err, ErrDeviceError)
		assert.ErrorIs(t, err, session.ErrDeviceError)
	})
}

func TestOperationTimeout(t *testing.T) {
	c, sess, _ := connectedClient(t, Config{OperationTimeout: 30 * time.Millisecond})

	release := make(chan struct{})
	defer close(release)
	sess.EXPECT().ResolvePath(mock.Anything, "0.1.2").RunAndReturn(func(context.Context, string) (*session.Node, error) {
		<-release
		return nil, nil
	}).Once()

	start := time.Now()
	_, err := c.Get(context.Background(), "0.1.2")
	require.ErrorIs(t, err, ErrConnectionTimeout)
	assert.Less(t, time.Since(start), time.Second)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "get", ce.Op)
	assert.Equal(t, "0.1.2", ce.Path)
}

func TestSet(t *testing.T) {
	t.Run("NumberFromString", func(t *testing.T) {
		c, sess, _ := connectedClient(t, Config{})
		node := param("0.1.2", value.Number(-12.5))
		sess.EXPECT().ResolvePath(mock.Anything, "0.1.2").Return(node, nil).Once()
		sess.EXPECT().WriteValue(mock.Anything, node, value.Number(6)).Return(nil).Once()

		res, err := c.SetRaw(context.Background(), "0.1.2", "6", value.KindNumber)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, value.Number(6), res.Value)
	})

	t.Run("BooleanYes", func(t *testing.T) {
		c, sess, _ := connectedClient(t, Config{})
		node := param("0.3", value.Bool(false))
		sess.EXPECT().ResolvePath(mock.Anything, "0.3").Return(node, nil).Once()
		sess.EXPECT().WriteValue(mock.Anything, node, value.Bool(true)).Return(nil).Once()

		res, err := c.SetRaw(context.Background(), "0.3", "yes", value.KindBoolean)
		require.NoError(t, err)
		assert.Equal(t, value.Bool(true), res.Value)
	})

	t.Run("InvalidValueNotSent", func(t *testing.T) {
		c, _, _ := connectedClient(t, Config{})

		_, err := c.SetRaw(context.Background(), "0.1.2", "loud", value.KindNumber)
		assert.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("NonFiniteNotSent", func(t *testing.T) {
		c, _, _ := connectedClient(t, Config{})

		for _, raw := range []string{"NaN", "Inf", "-infinity"} {
			_, err := c.SetRaw(context.Background(), "0.1.2", raw, value.KindNumber)
			assert.ErrorIs(t, err, ErrInvalidValue, raw)
		}
		_, err := c.Set(context.Background(), "0.1.2", value.Number(math.NaN()))
		assert.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("NotParameter", func(t *testing.T) {
		c, sess, _ := connectedClient(t, Config{})
		node := &session.Node{Path: "0", Kind: wire.NodeKindContainer}
		sess.EXPECT().ResolvePath(mock.Anything, "0").Return(node, nil).Once()

		_, err := c.Set(context.Background(), "0", value.Number(1))
		assert.ErrorIs(t, err, ErrInvalidPath)
	})

	t.Run("ReadOnly", func(t *testing.T) {
		c, sess, _ := connectedClient(t, Config{})
		node := param("0.2", value.String("v1"))
		sess.EXPECT().ResolvePath(mock.Anything, "0.2").Return(node, nil).Once()
		sess.EXPECT().WriteValue(mock.Anything, node, value.String("v2")).
			Return(fmt.Errorf("%w: locked", session.ErrReadOnly)).Once()

		_, err := c.Set(context.Background(), "0.2", value.String("v2"))
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("PathNotFound", func(t *testing.T) {
		c, sess, _ := connectedClient(t, Config{})
		sess.EXPECT().ResolvePath(mock.Anything, "0.7").Return(nil, nil).Once()

		_, err := c.Set(context.Background(), "0.7", value.Number(1))
		assert.ErrorIs(t, err, ErrPathNotFound)
	})
}

func TestSubscribe(t *testing.T) {
	t.Run("DispatchesUpdates", func(t *testing.T) {
		c, sess, _ := connectedClient(t, Config{OnlyOnChange: true})
		node := param("0.1.2", value.Number(1))

		var push func(any)
		sess.EXPECT().ResolvePath(mock.Anything, "0.1.2").Return(node, nil).Once()
		sess.EXPECT().SubscribeNode(mock.Anything, node, mock.Anything).
			Run(func(_ context.Context, _ *session.Node, onUpdate func(any)) {
				push = onUpdate
			}).Return(nil).Once()

		var got []subscription.Change
		res, err := c.Subscribe(context.Background(), "0.1.2", func(ch subscription.Change) {
			got = append(got, ch)
		})
		require.NoError(t, err)
		assert.True(t, res.Subscribed)
		assert.Equal(t, value.Number(1), res.CurrentValue)
		assert.True(t, c.Registry().Has("0.1.2"))
		require.NotNil(t, push)

		push(session.Update{Path: "0.1.2", Value: value.Number(2)})
		push(session.Update{Path: "0.1.2", Value: value.Number(2)})
		push(session.Update{Path: "0.1.2", Value: value.Number(3)})

		require.Len(t, got, 2)
		assert.Equal(t, value.Number(2), got[0].Value)
		assert.Equal(t, value.Number(3), got[1].Value)
		assert.Equal(t, value.Number(2), got[1].Previous)
	})

	t.Run("RollbackOnSessionFailure", func(t *testing.T) {
		c, sess, _ := connectedClient(t, Config{})
		node := param("0.1.2", value.Number(1))
		sess.EXPECT().ResolvePath(mock.Anything, "0.1.2").Return(node, nil).Once()
		sess.EXPECT().SubscribeNode(mock.Anything, node, mock.Anything).
			Return(errors.New("refused")).Once()

		_, err := c.Subscribe(context.Background(), "0.1.2", func(subscription.Change) {})
		assert.ErrorIs(t, err, ErrSubscriptionFailed)
		assert.False(t, c.Registry().Has("0.1.2"))
	})

	t.Run("PathNotFound", func(t *testing.T) {
		c, sess, _ := connectedClient(t, Config{})
		sess.EXPECT().ResolvePath(mock.Anything, "0.8").Return(nil, nil).Once()

		_, err := c.Subscribe(context.Background(), "0.8", func(subscription.Change) {})
		assert.ErrorIs(t, err, ErrPathNotFound)
		assert.Equal(t, 0, c.Registry().Count())
	})

	t.Run("RollbackOnTimeout", func(t *testing.T) {
		c, sess, _ := connectedClient(t, Config{OperationTimeout: 30 * time.Millisecond})
		node := param("0.1.2", value.Number(1))

		release := make(chan struct{})
		finished := make(chan struct{})
		sess.EXPECT().ResolvePath(mock.Anything, "0.1.2").Return(node, nil).Once()
		sess.EXPECT().SubscribeNode(mock.Anything, node, mock.Anything).
			RunAndReturn(func(context.Context, *session.Node, func(any)) error {
				defer close(finished)
				<-release
				return nil
			}).Once()

		_, err := c.Subscribe(context.Background(), "0.1.2", func(subscription.Change) {})
		assert.ErrorIs(t, err, ErrConnectionTimeout)

		close(release)
		<-finished
		assert.Eventually(t, func() bool { return !c.Registry().Has("0.1.2") },
			time.Second, 5*time.Millisecond)
	})
}

func TestUnsubscribe(t *testing.T) {
	c, _, _ := newTestClient(t, Config{})

	c.Registry().Add("0.1.2", nil)
	assert.True(t, c.Unsubscribe(" 0.1.2"))
	assert.False(t, c.Unsubscribe("0.1.2"))
	assert.False(t, c.Unsubscribe("never"))
}

func TestConnectionLostUnbinds(t *testing.T) {
	c, _, handler := connectedClient(t, Config{})

	var lost []error
	c.OnLost(func(err error) { lost = append(lost, err) })

	c.Registry().Add("0.1", nil)
	handler(session.Event{Type: session.EventDisconnected, Err: session.ErrConnectionLost})

	assert.False(t, c.IsConnected())
	assert.Equal(t, []string{"0.1"}, c.Registry().Pending())
	require.Len(t, lost, 1)
	assert.ErrorIs(t, lost[0], session.ErrConnectionLost)
}
