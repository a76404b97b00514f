package labeler

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// NodeKind distinguishes the three levels of the annotation tree.
type NodeKind uint8

const (
	KindRoot       NodeKind = iota // owns Image children, has no Record
	KindImage                      // image metadata plus Annotation children
	KindAnnotation                 // a single labeled region
)

func (k NodeKind) String() string {
	switch k {
	case KindRoot:
		return "Root"
	case KindImage:
		return "Image"
	case KindAnnotation:
		return "Annotation"
	default:
		return fmt.Sprintf("NodeKind(%d)", uint8(k))
	}
}

// Path is the list of ordinals leading from the Root to a Node. The empty
// path names the Root.
type Path []int

func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, i := range p {
		b.WriteByte('/')
		b.WriteString(strconv.Itoa(i))
	}
	return b.String()
}

// Equal reports whether p and o name the same position.
func (p Path) Equal(o Path) bool { return slices.Equal(p, o) }

// Parent returns the path of p's parent. The Root's parent is the Root.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return Path{}
	}
	return slices.Clone(p[:len(p)-1])
}

// Child returns the path of the i-th child of p.
func (p Path) Child(i int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, i)
}

// Node is one element of the annotation tree. Nodes are owned by their Tree
// and mutated only through it; everything else holds them for identity and
// lookup.
type Node struct {
	id     uint64
	kind   NodeKind
	tree   *Tree
	parent *Node
	index  int

	record   Record
	children []*Node

	// Image state that is not part of the Record.
	loaded bool
	seen   bool
}

// ID returns an identifier unique within the owning tree's lifetime.
func (n *Node) ID() uint64 { return n.id }

// Kind returns the node's level in the tree.
func (n *Node) Kind() NodeKind { return n.kind }

// Tree returns the owning tree.
func (n *Node) Tree() *Tree { return n.tree }

// Parent returns the parent node, or nil for the Root and for removed nodes.
func (n *Node) Parent() *Node { return n.parent }

// Index returns the ordinal of n among its siblings.
func (n *Node) Index() int { return n.index }

// Attached reports whether n is still reachable from its tree's Root.
func (n *Node) Attached() bool {
	p := n
	for p.parent != nil {
		p = p.parent
	}
	return n.tree != nil && p == n.tree.root
}

// Path returns the ordinals from the Root to n. For a removed node the path
// is relative to the detached subtree and should not be resolved.
func (n *Node) Path() Path {
	depth := 0
	for p := n; p.parent != nil; p = p.parent {
		depth++
	}
	path := make(Path, depth)
	for p := n; p.parent != nil; p = p.parent {
		depth--
		path[depth] = p.index
	}
	return path
}

// Record returns a copy of the node's attributes.
func (n *Node) Record() Record { return n.record.Clone() }

// Get returns a single attribute.
func (n *Node) Get(key string) (Value, bool) { return n.record.Get(key) }

// Class returns the "class" attribute, or "" when absent.
func (n *Node) Class() string { return n.record.StringOr("class", "") }

// Children returns a copy of the child list.
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

// NumChildren returns the number of children.
func (n *Node) NumChildren() int { return len(n.children) }

// ChildAt returns the child at index i, or nil when out of range.
func (n *Node) ChildAt(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// Annotations returns the Annotation children of an Image node.
func (n *Node) Annotations() []*Node {
	if n.kind != KindImage {
		return nil
	}
	return n.Children()
}

// Image returns the Image node n belongs to: n itself for an Image, its
// parent for an Annotation, nil for the Root.
func (n *Node) Image() *Node {
	switch n.kind {
	case KindImage:
		return n
	case KindAnnotation:
		return n.parent
	}
	return nil
}

// Loaded reports whether the image's pixel data is available.
func (n *Node) Loaded() bool { return n.loaded }

// SetLoaded records the pixel-data state of an Image node. It is not a
// Record mutation and does not set the tree dirty.
func (n *Node) SetLoaded(loaded bool) { n.loaded = loaded }

// Seen reports whether the image has been shown at least once.
func (n *Node) Seen() bool { return n.seen }

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.kind, n.Path())
}

// within reports whether n is anc or one of its descendants.
func (n *Node) within(anc *Node) bool {
	for p := n; p != nil; p = p.parent {
		if p == anc {
			return true
		}
	}
	return false
}

func (n *Node) reindex(from int) {
	for i := from; i < len(n.children); i++ {
		n.children[i].index = i
	}
}

func (n *Node) removeChildAt(i int) *Node {
	child := n.children[i]
	copy(n.children[i:], n.children[i+1:])
	n.children[len(n.children)-1] = nil
	n.children = n.children[:len(n.children)-1]
	n.reindex(i)
	child.parent = nil
	return child
}

func (n *Node) insertChildAt(i int, child *Node) {
	n.children = slices.Insert(n.children, i, child)
	child.parent = n
	n.reindex(i)
}

func (n *Node) depth() int {
	d := 0
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}
