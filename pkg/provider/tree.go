package provider

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"sync"

	"github.com/jonnelaakso/emberplus-go/pkg/treepath"
	"github.com/jonnelaakso/emberplus-go/pkg/value"
	"github.com/jonnelaakso/emberplus-go/pkg/wire"
)

// Tree errors.
var (
	ErrPathNotFound    = errors.New("path not found")
	ErrNotParameter    = errors.New("not a parameter")
	ErrReadOnly        = errors.New("parameter is read-only")
	ErrTypeMismatch    = errors.New("value type mismatch")
	ErrDuplicateNumber = errors.New("duplicate child number")
)

// Element is one node of a provider tree. Build elements with the
// constructors below and attach them with Add before handing the root
// elements to NewTree.
type Element struct {
	number      uint32
	identifier  string
	description string
	kind        wire.NodeKind
	access      wire.Access
	value       value.Value

	// path and idPath are assigned when the element joins a tree.
	path   string
	idPath string

	children []*Element
}

// NewContainer creates a container element.
func NewContainer(number uint32, identifier string) *Element {
	return &Element{number: number, identifier: identifier, kind: wire.NodeKindContainer}
}

// NewParameter creates a parameter holding v.
func NewParameter(number uint32, identifier string, v value.Value, access wire.Access) *Element {
	return &Element{
		number:     number,
		identifier: identifier,
		kind:       wire.NodeKindParameter,
		access:     access,
		value:      v,
	}
}

// NewFunction creates a function element. Functions are listed but not
// invocable.
func NewFunction(number uint32, identifier string) *Element {
	return &Element{number: number, identifier: identifier, kind: wire.NodeKindFunction}
}

// NewMatrix creates a matrix element.
func NewMatrix(number uint32, identifier string) *Element {
	return &Element{number: number, identifier: identifier, kind: wire.NodeKindMatrix}
}

// Describe sets the description and returns e.
func (e *Element) Describe(description string) *Element {
	e.description = description
	return e
}

// Add appends children and returns e. Children are kept in number order.
// Adding a number twice panics; trees are built once at startup.
func (e *Element) Add(children ...*Element) *Element {
	for _, c := range children {
		for _, existing := range e.children {
			if existing.number == c.number {
				panic(fmt.Sprintf("%v: %d under %q", ErrDuplicateNumber, c.number, e.identifier))
			}
		}
		e.children = append(e.children, c)
	}
	sort.Slice(e.children, func(i, j int) bool {
		return e.children[i].number < e.children[j].number
	})
	return e
}

// Path returns the numeric path. It is empty until the element is part
// of a tree.
func (e *Element) Path() string { return e.path }

// IdentifierPath returns the path by identifiers.
func (e *Element) IdentifierPath() string { return e.idPath }

// Number returns the element number within its parent.
func (e *Element) Number() uint32 { return e.number }

// Identifier returns the element name.
func (e *Element) Identifier() string { return e.identifier }

// Kind returns the node kind.
func (e *Element) Kind() wire.NodeKind { return e.kind }

func (e *Element) child(seg treepath.Segment) *Element {
	if n, ok := seg.Int(); ok {
		for _, c := range e.children {
			if int(c.number) == n {
				return c
			}
		}
		return nil
	}
	for _, c := range e.children {
		if c.identifier == seg.Name {
			return c
		}
	}
	return nil
}

// Tree is a provider's node hierarchy. It is safe for concurrent use.
type Tree struct {
	mu   sync.RWMutex
	root *Element

	changeMu sync.RWMutex
	onChange []func(e *Element, v value.Value)
}

// NewTree creates a tree whose root has the given top-level elements.
func NewTree(top ...*Element) *Tree {
	root := &Element{kind: wire.NodeKindContainer}
	root.Add(top...)
	assignPaths(root, "", "")
	return &Tree{root: root}
}

func assignPaths(e *Element, path, idPath string) {
	for _, c := range e.children {
		num := strconv.FormatUint(uint64(c.number), 10)
		if path == "" {
			c.path = num
			c.idPath = c.identifier
		} else {
			c.path = path + treepath.Separator + num
			c.idPath = idPath + treepath.Separator + c.identifier
		}
		assignPaths(c, c.path, c.idPath)
	}
}

// OnChange registers fn for every parameter value change.
func (t *Tree) OnChange(fn func(e *Element, v value.Value)) {
	t.changeMu.Lock()
	defer t.changeMu.Unlock()
	t.onChange = append(t.onChange, fn)
}

// Lookup resolves a numeric, identifier or mixed path. Each numeric
// segment selects a child by number, any other segment by identifier.
// The empty path is the root.
func (t *Tree) Lookup(path string) (*Element, error) {
	p := treepath.Parse(treepath.Normalize(path))

	t.mu.RLock()
	defer t.mu.RUnlock()

	e := t.root
	for _, seg := range p.Segments() {
		e = e.child(seg)
		if e == nil {
			return nil, fmt.Errorf("%w: %q", ErrPathNotFound, path)
		}
	}
	return e, nil
}

// Info describes the element at path.
func (t *Tree) Info(path string) (wire.NodeInfo, error) {
	e, err := t.Lookup(path)
	if err != nil {
		return wire.NodeInfo{}, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return e.info(), nil
}

// Directory lists the children of the element at path.
func (t *Tree) Directory(path string) (*wire.Directory, error) {
	e, err := t.Lookup(path)
	if err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	dir := &wire.Directory{
		Path:     e.path,
		Children: make([]wire.NodeInfo, 0, len(e.children)),
	}
	for _, c := range e.children {
		dir.Children = append(dir.Children, c.info())
	}
	return dir, nil
}

// info must be called with t.mu held.
func (e *Element) info() wire.NodeInfo {
	info := wire.NodeInfo{
		Number:         e.number,
		Path:           e.path,
		IdentifierPath: e.idPath,
		Identifier:     e.identifier,
		Description:    e.description,
		Kind:           e.kind,
		ChildCount:     uint32(len(e.children)),
	}
	if e.kind == wire.NodeKindParameter {
		info.Value = e.value.Any()
		info.Access = e.access
	}
	return info
}

// Value returns the current value of the parameter at path.
func (t *Tree) Value(path string) (value.Value, error) {
	e, err := t.Lookup(path)
	if err != nil {
		return value.Null, err
	}
	if e.kind != wire.NodeKindParameter {
		return value.Null, fmt.Errorf("%w: %q", ErrNotParameter, path)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return e.value, nil
}

// SetValue writes v on behalf of a consumer. Access and type are
// enforced: a value must match the parameter's current kind, and null
// parameters accept any kind.
func (t *Tree) SetValue(path string, v value.Value) error {
	return t.set(path, v, true)
}

// Update changes a value from the provider side, ignoring access. Used
// for meters and other values the device itself drives.
func (t *Tree) Update(path string, v value.Value) error {
	return t.set(path, v, false)
}

func (t *Tree) set(path string, v value.Value, remote bool) error {
	e, err := t.Lookup(path)
	if err != nil {
		return err
	}
	if e.kind != wire.NodeKindParameter {
		return fmt.Errorf("%w: %q is a %s", ErrNotParameter, path, e.kind)
	}

	t.mu.Lock()
	if remote && !e.access.CanWrite() {
		t.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrReadOnly, path)
	}
	if !e.value.IsNull() && !v.IsNull() && e.value.Kind() != v.Kind() {
		t.mu.Unlock()
		return fmt.Errorf("%w: %q holds a %s, got %s", ErrTypeMismatch, path, e.value.Kind(), v.Kind())
	}
	changed := !e.value.Equal(v)
	e.value = v
	t.mu.Unlock()

	if changed {
		t.changeMu.RLock()
		handlers := slices.Clone(t.onChange)
		t.changeMu.RUnlock()
		for _, fn := range handlers {
			fn(e, v)
		}
	}
	return nil
}

// Walk calls fn for every element in depth-first order, parents first.
func (t *Tree) Walk(fn func(e *Element)) {
	var all []*Element
	var collect func(*Element)
	collect = func(e *Element) {
		for _, c := range e.children {
			all = append(all, c)
			collect(c)
		}
	}

	t.mu.RLock()
	collect(t.root)
	t.mu.RUnlock()

	for _, e := range all {
		fn(e)
	}
}
