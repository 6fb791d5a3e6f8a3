package inspect

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonnelaakso/emberplus-go/pkg/consumer"
	"github.com/jonnelaakso/emberplus-go/pkg/provider"
	"github.com/jonnelaakso/emberplus-go/pkg/session"
	"github.com/jonnelaakso/emberplus-go/pkg/value"
)

type fakeBrowser struct {
	dirs  map[string][]consumer.NodeDescriptor
	calls []string
}

func (b *fakeBrowser) Browse(_ context.Context, path string) (*consumer.BrowseResult, error) {
	b.calls = append(b.calls, path)
	nodes, ok := b.dirs[path]
	if !ok {
		return nil, errors.New("no such node")
	}
	return &consumer.BrowseResult{Path: path, Nodes: nodes}, nil
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{dirs: map[string][]consumer.NodeDescriptor{
		"": {{Path: "0", Identifier: "A", ChildCount: 2}},
		"0": {
			{Path: "0.0", Identifier: "B", ChildCount: 1},
			{Path: "0.1", Identifier: "p", Value: ptr(value.Number(1))},
		},
		"0.0": {{Path: "0.0.0", Identifier: "q", Value: ptr(value.Bool(true))}},
	}}
}

func TestInspectTree(t *testing.T) {
	b := newFakeBrowser()
	nodes, err := NewInspector(b).InspectTree(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"", "0", "0.0"}, b.calls)
	require.Len(t, nodes, 1)
	require.Len(t, nodes[0].Children, 2)
	assert.Equal(t, "q", nodes[0].Children[0].Children[0].Identifier)

	params := Parameters(nodes)
	require.Len(t, params, 2)
	assert.Equal(t, "0.0.0", params[0].Path)
	assert.Equal(t, "0.1", params[1].Path)
}

func TestInspectTreeLimits(t *testing.T) {
	b := newFakeBrowser()
	i := NewInspector(b)
	i.MaxDepth = 1
	nodes, err := i.InspectTree(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, nodes[0].Children)
	assert.Equal(t, []string{""}, b.calls)

	i = NewInspector(newFakeBrowser())
	i.MaxNodes = 2
	_, err = i.InspectTree(context.Background(), "")
	assert.ErrorIs(t, err, ErrTooManyNodes)
}

func TestInspectTreeBrowseError(t *testing.T) {
	b := newFakeBrowser()
	delete(b.dirs, "0.0")
	_, err := NewInspector(b).InspectTree(context.Background(), "")
	assert.Error(t, err)
}

func TestInspectDemoProvider(t *testing.T) {
	srv := provider.NewServer(provider.ServerConfig{Address: "127.0.0.1:0", Tree: provider.DemoTree()})
	require.NoError(t, srv.Start(context.Background()))
	defer srv.Stop()

	sess := session.NewRemote(session.RemoteConfig{Host: "127.0.0.1", Port: srv.Port(), DisableKeepAlive: true})
	c := consumer.New(sess, consumer.Config{Host: "127.0.0.1", Port: srv.Port(), OperationTimeout: 2 * time.Second})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close(context.Background())

	nodes, err := NewInspector(c).InspectTree(context.Background(), "")
	require.NoError(t, err)

	var paths []string
	for _, p := range Parameters(nodes) {
		paths = append(paths, p.Path)
	}
	assert.Equal(t, []string{"0.0.0", "0.0.1", "0.1.0", "0.1.1", "0.1.2", "0.1.3"}, paths)
}
