package consumer

import (
	"sync"

	"github.com/jonnelaakso/emberplus-go/pkg/treepath"
)

// bindings maps registry keys to the node path they resolved to. One node
// may be subscribed under several notations ("Device.Audio.Meter" and
// "0.1.3"); the session holds a single callback per node, which fans out
// to every key bound to it.
type bindings struct {
	mu     sync.Mutex
	byNode map[string]map[string]struct{}
	byKey  map[string]string
}

func newBindings() *bindings {
	return &bindings{
		byNode: make(map[string]map[string]struct{}),
		byKey:  make(map[string]string),
	}
}

// bind attaches key to node, moving it off any node it was bound to before.
func (b *bindings) bind(key, node string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, ok := b.byKey[key]; ok && old != node {
		b.detach(key, old)
	}
	keys := b.byNode[node]
	if keys == nil {
		keys = make(map[string]struct{})
		b.byNode[node] = keys
	}
	keys[key] = struct{}{}
	b.byKey[key] = node
}

// unbind detaches key. It returns the node key was bound to, or "" if it
// was not bound, and whether no other key still uses that node.
func (b *bindings) unbind(key string) (node string, last bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	node, ok := b.byKey[key]
	if !ok {
		return "", true
	}
	b.detach(key, node)
	return node, len(b.byNode[node]) == 0
}

func (b *bindings) detach(key, node string) {
	delete(b.byKey, key)
	if keys := b.byNode[node]; keys != nil {
		delete(keys, key)
		if len(keys) == 0 {
			delete(b.byNode, node)
		}
	}
}

// keys returns the registry keys bound to node, shallow first.
func (b *bindings) keys(node string) []string {
	b.mu.Lock()
	out := make([]string, 0, len(b.byNode[node]))
	for k := range b.byNode[node] {
		out = append(out, k)
	}
	b.mu.Unlock()

	treepath.Sort(out)
	return out
}

func (b *bindings) clear() {
	b.mu.Lock()
	b.byNode = make(map[string]map[string]struct{})
	b.byKey = make(map[string]string)
	b.mu.Unlock()
}
