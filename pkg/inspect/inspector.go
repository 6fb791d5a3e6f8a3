package inspect

import (
	"context"
	"errors"

	"github.com/jonnelaakso/emberplus-go/pkg/consumer"
)

// ErrTooManyNodes is returned when a walk exceeds Inspector.MaxNodes.
var ErrTooManyNodes = errors.New("too many nodes")

// Browser lists the children of a node. *consumer.Client implements it.
type Browser interface {
	Browse(ctx context.Context, path string) (*consumer.BrowseResult, error)
}

// TreeNode is a node together with the children fetched below it.
type TreeNode struct {
	consumer.NodeDescriptor
	Children []*TreeNode
}

// Inspector walks a provider tree through repeated browse operations.
type Inspector struct {
	browser Browser

	// MaxDepth limits how many levels below the start are fetched.
	// Zero means unlimited.
	MaxDepth int

	// MaxNodes aborts the walk once this many nodes were collected.
	// Zero means unlimited.
	MaxNodes int
}

// NewInspector creates an Inspector over b.
func NewInspector(b Browser) *Inspector {
	return &Inspector{browser: b}
}

// InspectTree fetches the subtree below path. The start node itself is
// not included.
func (i *Inspector) InspectTree(ctx context.Context, path string) ([]*TreeNode, error) {
	count := 0
	return i.walk(ctx, path, 1, &count)
}

func (i *Inspector) walk(ctx context.Context, path string, depth int, count *int) ([]*TreeNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := i.browser.Browse(ctx, path)
	if err != nil {
		return nil, err
	}

	nodes := make([]*TreeNode, 0, len(res.Nodes))
	for _, d := range res.Nodes {
		*count++
		if i.MaxNodes > 0 && *count > i.MaxNodes {
			return nil, ErrTooManyNodes
		}
		n := &TreeNode{NodeDescriptor: d}
		if d.ChildCount > 0 && (i.MaxDepth == 0 || depth < i.MaxDepth) {
			n.Children, err = i.walk(ctx, d.Path, depth+1, count)
			if err != nil {
				return nil, err
			}
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// Parameters returns every parameter in nodes, depth first.
func Parameters(nodes []*TreeNode) []consumer.NodeDescriptor {
	var out []consumer.NodeDescriptor
	var visit func([]*TreeNode)
	visit = func(ns []*TreeNode) {
		for _, n := range ns {
			if n.Value != nil {
				out = append(out, n.NodeDescriptor)
			}
			visit(n.Children)
		}
	}
	visit(nodes)
	return out
}
