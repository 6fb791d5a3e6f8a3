package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonnelaakso/emberplus-go/pkg/provider"
	"github.com/jonnelaakso/emberplus-go/pkg/value"
	"github.com/jonnelaakso/emberplus-go/pkg/wire"
)

func startProvider(t *testing.T) (*provider.Server, *provider.Tree) {
	t.Helper()
	tree := provider.DemoTree()
	srv := provider.NewServer(provider.ServerConfig{Address: "127.0.0.1:0", Tree: tree})
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { srv.Stop() })
	return srv, tree
}

func connectRemote(t *testing.T, srv *provider.Server) (*Remote, <-chan Event) {
	t.Helper()
	r := NewRemote(RemoteConfig{
		Host:             "127.0.0.1",
		Port:             srv.Port(),
		RequestTimeout:   2 * time.Second,
		DisableKeepAlive: true,
	})
	events := make(chan Event, 8)
	r.OnEvent(func(ev Event) { events <- ev })

	require.NoError(t, r.Connect(context.Background()))
	t.Cleanup(func() { r.Disconnect(context.Background()) })
	return r, events
}

func waitEvent(t *testing.T, events <-chan Event, want EventType) Event {
	t.Helper()
	select {
	case ev := <-events:
		require.Equal(t, want, ev.Type)
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("no %s event", want)
		return Event{}
	}
}

func TestRemoteConnect(t *testing.T) {
	srv, _ := startProvider(t)
	r, events := connectRemote(t, srv)

	waitEvent(t, events, EventConnected)
	assert.True(t, r.IsConnected())
	assert.NoError(t, r.Connect(context.Background()), "second connect is a no-op")
}

func TestRemoteConnectRefused(t *testing.T) {
	srv, _ := startProvider(t)
	port := srv.Port()
	require.NoError(t, srv.Stop())

	r := NewRemote(RemoteConfig{Host: "127.0.0.1", Port: port, DialTimeout: time.Second})
	assert.Error(t, r.Connect(context.Background()))
	assert.False(t, r.IsConnected())
}

func TestRemoteResolvePath(t *testing.T) {
	srv, _ := startProvider(t)
	r, _ := connectRemote(t, srv)
	ctx := context.Background()

	node, err := r.ResolvePath(ctx, "Device.Audio.Gain")
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, "0.1.2", node.Path)
	assert.Equal(t, "Device.Audio.Gain", node.IdentifierPath)
	assert.True(t, node.IsParameter())
	assert.Equal(t, value.Number(-12.5), node.Value)
	assert.Equal(t, wire.AccessReadWrite, node.Access)

	missing, err := r.ResolvePath(ctx, "0.9")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRemoteFetchChildren(t *testing.T) {
	srv, _ := startProvider(t)
	r, _ := connectRemote(t, srv)

	done, err := r.FetchChildren(context.Background(), nil)
	require.NoError(t, err)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("directory not received")
	}

	children := r.Children(nil)
	require.Len(t, children, 1)
	assert.Equal(t, "0", children[0].Path)
	assert.Equal(t, "Device", children[0].Identifier)
	assert.Equal(t, wire.NodeKindContainer, children[0].Kind)
}

func TestRemoteWriteValue(t *testing.T) {
	srv, tree := startProvider(t)
	r, _ := connectRemote(t, srv)
	ctx := context.Background()

	gain, err := r.ResolvePath(ctx, "0.1.2")
	require.NoError(t, err)
	require.NoError(t, r.WriteValue(ctx, gain, value.Number(6)))

	v, err := tree.Value("0.1.2")
	require.NoError(t, err)
	assert.Equal(t, value.Number(6), v)

	assert.ErrorIs(t, r.WriteValue(ctx, gain, value.String("loud")), ErrInvalidValue)

	meter, err := r.ResolvePath(ctx, provider.DemoMeterPath)
	require.NoError(t, err)
	assert.ErrorIs(t, r.WriteValue(ctx, meter, value.Number(0)), ErrReadOnly)

	audio := &Node{Path: "0.1"}
	assert.ErrorIs(t, r.WriteValue(ctx, audio, value.Number(0)), ErrNotParameter)
}

func TestRemoteSubscribe(t *testing.T) {
	srv, tree := startProvider(t)
	r, _ := connectRemote(t, srv)
	ctx := context.Background()

	meter, err := r.ResolvePath(ctx, provider.DemoMeterPath)
	require.NoError(t, err)

	updates := make(chan Update, 4)
	require.NoError(t, r.SubscribeNode(ctx, meter, func(u any) {
		updates <- u.(Update)
	}))
	assert.True(t, srv.Subscribed(provider.DemoMeterPath))

	require.NoError(t, tree.Update(provider.DemoMeterPath, value.Number(-6)))

	select {
	case u := <-updates:
		assert.Equal(t, provider.DemoMeterPath, u.Path)
		assert.Equal(t, value.Number(-6), u.Value)
		assert.Equal(t, value.Number(-6), u.UpdateValue())
		assert.False(t, u.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no update")
	}

	require.NoError(t, r.UnsubscribeNode(ctx, meter))
	assert.False(t, srv.Subscribed(provider.DemoMeterPath))
}

func TestRemoteSubscribeNotParameter(t *testing.T) {
	srv, _ := startProvider(t)
	r, _ := connectRemote(t, srv)

	err := r.SubscribeNode(context.Background(), &Node{Path: "0.1"}, func(any) {})
	assert.ErrorIs(t, err, ErrNotParameter)
}

func TestRemoteConnectionLost(t *testing.T) {
	srv, _ := startProvider(t)
	r, events := connectRemote(t, srv)
	waitEvent(t, events, EventConnected)

	srv.DisconnectAll()

	ev := waitEvent(t, events, EventDisconnected)
	assert.ErrorIs(t, ev.Err, ErrConnectionLost)
	assert.False(t, r.IsConnected())

	_, err := r.ResolvePath(context.Background(), "0")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestRemoteLocalDisconnectIsSilent(t *testing.T) {
	srv, _ := startProvider(t)
	r, events := connectRemote(t, srv)
	waitEvent(t, events, EventConnected)

	require.NoError(t, r.Disconnect(context.Background()))
	assert.False(t, r.IsConnected())

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %s", ev.Type)
	case <-time.After(100 * time.Millisecond):
	}
	assert.NoError(t, r.Disconnect(context.Background()))
}
