package consumer

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/jonnelaakso/emberplus-go/pkg/session"
	"github.com/jonnelaakso/emberplus-go/pkg/subscription"
	"github.com/jonnelaakso/emberplus-go/pkg/treepath"
	"github.com/jonnelaakso/emberplus-go/pkg/value"
)

// NodeDescriptor describes a resolved node. Descriptors are snapshots and
// are never cached.
type NodeDescriptor struct {
	Path           string       `json:"path"`
	IdentifierPath string       `json:"identifierPath,omitempty"`
	Number         uint32       `json:"number"`
	Identifier     string       `json:"identifier,omitempty"`
	Description    string       `json:"description,omitempty"`
	Kind           string       `json:"kind"`
	Access         string       `json:"access,omitempty"`
	Value          *value.Value `json:"value,omitempty"`
	ChildCount     int          `json:"childCount,omitempty"`
}

// Describe converts a session node into a descriptor.
func Describe(n *session.Node) NodeDescriptor {
	d := NodeDescriptor{
		Path:           n.Path,
		IdentifierPath: n.IdentifierPath,
		Number:         n.Number,
		Identifier:     n.Identifier,
		Description:    n.Description,
		Kind:           n.Kind.String(),
		ChildCount:     n.ChildCount,
	}
	if n.IsParameter() {
		v := n.Value
		d.Value = &v
		d.Access = n.Access.String()
	}
	return d
}

// BrowseResult lists the immediate children of a node.
type BrowseResult struct {
	Path  string           `json:"path"`
	Nodes []NodeDescriptor `json:"nodes"`
}

// GetResult carries a parameter value, or a descriptor for nodes without
// a value.
type GetResult struct {
	Path  string          `json:"path"`
	Value value.Value     `json:"value"`
	Node  *NodeDescriptor `json:"node,omitempty"`
}

// SetResult acknowledges a write.
type SetResult struct {
	Path    string      `json:"path"`
	Value   value.Value `json:"value"`
	Success bool        `json:"success"`
}

// SubscribeResult reports a new subscription and the value at the time
// it was made.
type SubscribeResult struct {
	Path         string         `json:"path"`
	CurrentValue value.Value    `json:"currentValue"`
	Subscribed   bool           `json:"subscribed"`
	Node         NodeDescriptor `json:"-"`
}

// Browse lists the children of path. An empty path is the root.
func (c *Client) Browse(ctx context.Context, path string) (*BrowseResult, error) {
	const op = "browse"

	if !c.IsConnected() {
		return nil, newError(KindNotConnected, op, path, "not connected to %s", c.target())
	}
	key, err := checkPath(op, path, true)
	if err != nil {
		return nil, err
	}

	return execute(ctx, c, op, key, func(ctx context.Context) (*BrowseResult, error) {
		var node *session.Node
		if key != "" {
			n, err := c.resolve(ctx, op, key)
			if err != nil {
				return nil, err
			}
			node = n
		}

		done, err := c.sess.FetchChildren(ctx, node)
		if err != nil {
			return nil, err
		}
		c.awaitDirectory(key, done)

		children := c.sess.Children(node)
		res := &BrowseResult{Path: key, Nodes: make([]NodeDescriptor, 0, len(children))}
		for _, child := range children {
			res.Nodes = append(res.Nodes, Describe(child))
		}
		return res, nil
	})
}

// awaitDirectory waits for a pending directory signal for at most the
// directory timeout.
func (c *Client) awaitDirectory(path string, done <-chan struct{}) {
	if done == nil {
		return
	}
	timer := time.NewTimer(c.config.DirectoryTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		c.logger.Warn("Directory not complete, returning known children",
			slog.String("path", path),
			slog.Duration("waited", c.config.DirectoryTimeout))
	}
}

// Get reads the value of the parameter at path. For other node kinds the
// result carries a descriptor and a null value.
func (c *Client) Get(ctx context.Context, path string) (*GetResult, error) {
	const op = "get"

	if !c.IsConnected() {
		return nil, newError(KindNotConnected, op, path, "not connected to %s", c.target())
	}
	key, err := checkPath(op, path, false)
	if err != nil {
		return nil, err
	}

	return execute(ctx, c, op, key, func(ctx context.Context) (*GetResult, error) {
		node, err := c.resolve(ctx, op, key)
		if err != nil {
			return nil, err
		}
		if node.IsParameter() {
			return &GetResult{Path: key, Value: node.Value}, nil
		}
		d := Describe(node)
		return &GetResult{Path: key, Value: value.Null, Node: &d}, nil
	})
}

// Set writes v to the parameter at path and waits for acknowledgement.
func (c *Client) Set(ctx context.Context, path string, v value.Value) (*SetResult, error) {
	const op = "set"

	if !c.IsConnected() {
		return nil, newError(KindNotConnected, op, path, "not connected to %s", c.target())
	}
	key, err := checkPath(op, path, false)
	if err != nil {
		return nil, err
	}
	if n, ok := v.AsNumber(); ok && (math.IsNaN(n) || math.IsInf(n, 0)) {
		return nil, newError(KindInvalidValue, op, key, "%v is not a finite number", n)
	}

	return execute(ctx, c, op, key, func(ctx context.Context) (*SetResult, error) {
		node, err := c.resolve(ctx, op, key)
		if err != nil {
			return nil, err
		}
		if !node.IsParameter() {
			return nil, newError(KindInvalidPath, op, key, "%s node has no settable value", node.Kind)
		}
		if err := c.sess.WriteValue(ctx, node, v); err != nil {
			return nil, err
		}
		c.logger.Debug("Value written", slog.String("path", key), slog.String("value", v.String()))
		return &SetResult{Path: key, Value: v, Success: true}, nil
	})
}

// SetRaw converts raw according to kind and writes it. A conversion
// failure is InvalidValue and nothing is sent.
func (c *Client) SetRaw(ctx context.Context, path, raw string, kind value.Kind) (*SetResult, error) {
	v, err := value.Parse(raw, kind)
	if err != nil {
		return nil, &Error{Kind: KindInvalidValue, Op: "set", Path: path, Err: err}
	}
	return c.Set(ctx, path, v)
}

// SubscribeOption adjusts Subscribe.
type SubscribeOption func(*subscribeOptions)

type subscribeOptions struct {
	seed bool
}

// WithSeed primes change filtering with the current value, so an update
// equal to it is not dispatched.
func WithSeed() SubscribeOption {
	return func(o *subscribeOptions) { o.seed = true }
}

// Subscribe registers handler for value changes of path. A failed
// subscribe leaves no registry entry behind.
func (c *Client) Subscribe(ctx context.Context, path string, handler subscription.Handler, opts ...SubscribeOption) (*SubscribeResult, error) {
	const op = "subscribe"

	var o subscribeOptions
	for _, opt := range opts {
		opt(&o)
	}

	if !c.IsConnected() {
		return nil, newError(KindNotConnected, op, path, "not connected to %s", c.target())
	}
	key, err := checkPath(op, path, false)
	if err != nil {
		return nil, err
	}

	// entryID and abandoned let a subscribe that completes after its
	// timeout roll itself back.
	var entryID atomic.Uint64
	var abandoned atomic.Bool

	res, err := execute(ctx, c, op, key, func(ctx context.Context) (*SubscribeResult, error) {
		node, err := c.resolve(ctx, op, key)
		if err != nil {
			return nil, err
		}

		id, _ := c.registry.Add(key, handler)
		entryID.Store(id)
		if o.seed && node.IsParameter() {
			c.registry.Seed(key, node.Value)
		}

		c.binds.bind(key, node.Path)

		if err := c.sess.SubscribeNode(ctx, node, c.dispatchNode(node.Path)); err != nil {
			c.rollback(key, id)
			return nil, &Error{Kind: subscribeKind(err), Op: op, Path: key, Err: err}
		}
		if abandoned.Load() {
			c.rollback(key, id)
			return nil, newError(KindConnectionTimeout, op, key, "abandoned")
		}

		return &SubscribeResult{
			Path:         key,
			CurrentValue: node.Value,
			Subscribed:   true,
			Node:         Describe(node),
		}, nil
	})
	if err != nil {
		abandoned.Store(true)
		if id := entryID.Load(); id != 0 {
			c.rollback(key, id)
		}
		return nil, err
	}

	c.logger.Debug("Subscribed", slog.String("path", key))
	return res, nil
}

// rollback undoes a failed subscribe unless the entry was replaced in the
// meantime.
func (c *Client) rollback(key string, id uint64) {
	if c.registry.RemoveIf(key, id) || !c.registry.Has(key) {
		c.binds.unbind(key)
	}
}

// dispatchNode is the session callback for node. It delivers each update
// to every registry key bound to the node.
func (c *Client) dispatchNode(node string) func(update any) {
	return func(update any) {
		for _, key := range c.binds.keys(node) {
			c.registry.Dispatch(key, update)
		}
	}
}

func subscribeKind(err error) Kind {
	switch k := KindOf(err); k {
	case KindOperationFailed, KindUnknown:
		return KindSubscriptionFailed
	default:
		return k
	}
}

// Unsubscribe removes the subscription for path and reports whether one
// existed. It never fails. When the session supports it, the provider is
// told in the background.
func (c *Client) Unsubscribe(path string) bool {
	key := treepath.Normalize(path)
	if !c.registry.Remove(key) {
		return false
	}

	// Another notation of the same node keeps the provider subscription.
	target, last := c.binds.unbind(key)
	if !last {
		return true
	}
	if target == "" {
		target = key
	}

	u, ok := c.sess.(session.Unsubscriber)
	if !ok || !c.IsConnected() || target == "" {
		return true
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.config.OperationTimeout)
		defer cancel()

		node, err := c.sess.ResolvePath(ctx, target)
		if err != nil || node == nil {
			return
		}
		if err := u.UnsubscribeNode(ctx, node); err != nil {
			c.logger.Debug("Provider unsubscribe failed",
				slog.String("path", target),
				slog.Any("error", err))
		}
	}()
	return true
}

// resolve looks up path and turns a missing node into PathNotFound.
func (c *Client) resolve(ctx context.Context, op, path string) (*session.Node, error) {
	node, err := c.sess.ResolvePath(ctx, path)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, newError(KindPathNotFound, op, path, "no node at %q", path)
	}
	return node, nil
}
