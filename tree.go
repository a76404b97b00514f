package labeler

import (
	"encoding/json"
	"fmt"
	"iter"
	"slices"
)

// ChangeKind identifies what a ChangeEvent reports.
type ChangeKind uint8

const (
	ChangeInserted ChangeKind = iota // children [First, Last] were added under Parent
	ChangeRemoved                    // children [First, Last] were removed from Parent
	ChangeData                       // Node's Record changed
	ChangeReset                      // the whole tree was replaced
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInserted:
		return "Inserted"
	case ChangeRemoved:
		return "Removed"
	case ChangeData:
		return "Changed"
	case ChangeReset:
		return "Reset"
	default:
		return fmt.Sprintf("ChangeKind(%d)", uint8(k))
	}
}

// ChangeEvent describes one mutation of a Tree.
//
// For Inserted and Removed, Parent and Path identify the parent, First and
// Last bound the affected ordinals, and Nodes holds the inserted or removed
// subtree roots. Removed nodes are already detached when the event arrives.
// For Changed, Node and Path identify the updated node.
type ChangeEvent struct {
	Kind   ChangeKind
	Parent *Node
	Path   Path
	First  int
	Last   int
	Node   *Node
	Nodes  []*Node
}

// Listener receives tree change events.
type Listener interface {
	TreeChanged(ev ChangeEvent)
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(ev ChangeEvent)

// TreeChanged calls f(ev).
func (f ListenerFunc) TreeChanged(ev ChangeEvent) { f(ev) }

// Subscription is returned by Subscribe and OnDirtyChanged.
type Subscription struct {
	id   uint32
	tree *Tree
}

// Remove stops delivery to the subscribed listener. Safe to call more than
// once and from inside a listener.
func (s Subscription) Remove() {
	if s.tree == nil {
		return
	}
	t := s.tree
	t.subs = slices.DeleteFunc(t.subs, func(e subscriber) bool { return e.id == s.id })
	t.dirtyHandlers = slices.DeleteFunc(t.dirtyHandlers, func(h dirtyHandler) bool { return h.id == s.id })
}

type subscriber struct {
	id    uint32
	l     Listener
	image *Node // nil for unfiltered subscriptions
}

type dirtyHandler struct {
	id uint32
	fn func(bool)
}

// Tree owns the Root and every Node below it. All mutations go through the
// Tree, which sets the dirty flag and notifies listeners synchronously. It is
// not safe for concurrent use.
type Tree struct {
	root   *Node
	dirty  bool
	nextID uint64

	subs          []subscriber
	dirtyHandlers []dirtyHandler
	nextSub       uint32

	dispatching bool
	pending     []ChangeEvent
}

// ImageRecord is the external form of one Image: its own attributes plus the
// Records of its annotations, in order.
type ImageRecord struct {
	Record      Record
	Annotations []Record
}

// annotationsKey holds the nested annotation list in the JSON form of an
// ImageRecord and is therefore reserved in image Records. Annotation Records
// may use it freely.
const annotationsKey = "annotations"

// MarshalJSON flattens the image attributes and adds an "annotations" array.
func (r ImageRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Record)+1)
	for k, v := range r.Record {
		out[k] = v
	}
	anns := r.Annotations
	if anns == nil {
		anns = []Record{}
	}
	out[annotationsKey] = anns
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *ImageRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("labeler: image record is null: %w", ErrMalformedInput)
	}
	rec := make(Record, len(raw))
	var anns []Record
	for k, msg := range raw {
		if k == annotationsKey {
			if err := json.Unmarshal(msg, &anns); err != nil {
				return fmt.Errorf("labeler: annotations: %w", err)
			}
			continue
		}
		var v Value
		if err := json.Unmarshal(msg, &v); err != nil {
			return fmt.Errorf("labeler: key %q: %w", k, err)
		}
		rec[k] = v
	}
	r.Record = rec
	r.Annotations = anns
	return nil
}

// NewTree returns an empty tree holding only a Root.
func NewTree() *Tree {
	t := &Tree{}
	t.root = t.newNode(KindRoot, nil)
	return t
}

func (t *Tree) newNode(kind NodeKind, rec Record) *Node {
	t.nextID++
	n := &Node{id: t.nextID, kind: kind, tree: t}
	if kind != KindRoot {
		n.record = rec.Clone()
	}
	return n
}

// Root returns the Root node.
func (t *Tree) Root() *Node { return t.root }

// NumImages returns the number of Image nodes.
func (t *Tree) NumImages() int { return len(t.root.children) }

// Load replaces the whole tree with records. The new tree is built and
// validated before it replaces the current one, so a failing Load leaves the
// tree untouched. A successful Load clears the dirty flag and emits Reset.
func (t *Tree) Load(records []ImageRecord) error {
	root := t.newNode(KindRoot, nil)
	for i, ir := range records {
		if ir.Record == nil {
			return &MalformedInputError{Image: i, Annotation: -1, Reason: "image has no attributes"}
		}
		if ir.Record.Has(annotationsKey) {
			return &MalformedInputError{Image: i, Annotation: -1, Reason: fmt.Sprintf("reserved key %q in image attributes", annotationsKey)}
		}
		img := t.newNode(KindImage, ir.Record)
		img.index = i
		img.parent = root
		for j, ar := range ir.Annotations {
			if ar == nil {
				return &MalformedInputError{Image: i, Annotation: j, Reason: "annotation has no attributes"}
			}
			ann := t.newNode(KindAnnotation, ar)
			ann.index = j
			ann.parent = img
			img.children = append(img.children, ann)
		}
		root.children = append(root.children, img)
	}
	t.root = root
	t.setDirty(false)
	t.emit(ChangeEvent{Kind: ChangeReset, Path: Path{}})
	return nil
}

// LoadJSON decodes a JSON array of image records and loads it. Decode
// failures are reported as MalformedInputError.
func (t *Tree) LoadJSON(data []byte) error {
	var records []ImageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return &MalformedInputError{Image: -1, Annotation: -1, Reason: err.Error()}
	}
	return t.Load(records)
}

// ToRecords returns deep copies of every Image and Annotation Record in tree
// order. Load(ToRecords()) reproduces a structurally equal tree.
func (t *Tree) ToRecords() []ImageRecord {
	out := make([]ImageRecord, len(t.root.children))
	for i, img := range t.root.children {
		anns := make([]Record, len(img.children))
		for j, ann := range img.children {
			anns[j] = ann.record.Clone()
		}
		out[i] = ImageRecord{Record: img.record.Clone(), Annotations: anns}
	}
	return out
}

// MarshalJSON encodes the tree as its ToRecords form.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.ToRecords())
}

// Reset discards every Image, clears the dirty flag and emits Reset.
func (t *Tree) Reset() {
	t.root = t.newNode(KindRoot, nil)
	t.setDirty(false)
	t.emit(ChangeEvent{Kind: ChangeReset, Path: Path{}})
}

// IterateImages yields the Image nodes in tree order. Each call starts a new
// traversal of the current tree.
func (t *Tree) IterateImages() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		root := t.root
		for i := 0; i < len(root.children); i++ {
			if !yield(root.children[i]) {
				return
			}
		}
	}
}

// NodeAt resolves path. Misses return an error wrapping ErrNotFound.
func (t *Tree) NodeAt(path Path) (*Node, error) {
	n := t.root
	for depth, i := range path {
		if i < 0 || i >= len(n.children) {
			return nil, fmt.Errorf("labeler: node %s (depth %d): %w", path, depth, ErrNotFound)
		}
		n = n.children[i]
	}
	return n, nil
}

// Insert adds a node holding a copy of rec as child pos of the node at
// parent. Children of the Root are Images and children of an Image are
// Annotations. A pos of -1 appends.
func (t *Tree) Insert(parent Path, pos int, rec Record) (*Node, error) {
	p, err := t.NodeAt(parent)
	if err != nil {
		return nil, err
	}
	var kind NodeKind
	switch p.kind {
	case KindRoot:
		kind = KindImage
	case KindImage:
		kind = KindAnnotation
	default:
		return nil, fmt.Errorf("labeler: insert under %s: annotations cannot have children: %w", p, ErrMalformedInput)
	}
	if pos == -1 {
		pos = len(p.children)
	}
	if pos < 0 || pos > len(p.children) {
		return nil, fmt.Errorf("labeler: insert at %d under %s: %w", pos, p, ErrNotFound)
	}
	if kind == KindImage && rec.Has(annotationsKey) {
		return nil, fmt.Errorf("labeler: insert image: reserved key %q: %w", annotationsKey, ErrMalformedInput)
	}

	n := t.newNode(kind, rec)
	p.insertChildAt(pos, n)
	t.setDirty(true)
	t.emit(ChangeEvent{
		Kind: ChangeInserted, Parent: p, Path: p.Path(),
		First: pos, Last: pos, Nodes: []*Node{n},
	})
	return n, nil
}

// InsertImage appends an Image node.
func (t *Tree) InsertImage(rec Record) (*Node, error) {
	return t.Insert(Path{}, -1, rec)
}

// AddAnnotation appends an Annotation to image.
func (t *Tree) AddAnnotation(image *Node, rec Record) (*Node, error) {
	if image == nil || image.tree != t || image.kind != KindImage || !image.Attached() {
		return nil, fmt.Errorf("labeler: add annotation to %v: %w", image, ErrNotFound)
	}
	return t.Insert(image.Path(), -1, rec)
}

// Remove detaches the node at path together with its whole subtree.
func (t *Tree) Remove(path Path) error {
	if len(path) == 0 {
		return fmt.Errorf("labeler: remove root: %w", ErrBadValue)
	}
	n, err := t.NodeAt(path)
	if err != nil {
		return err
	}
	t.removeNode(n)
	return nil
}

func (t *Tree) removeNode(n *Node) {
	p := n.parent
	idx := n.index
	p.removeChildAt(idx)
	t.setDirty(true)
	t.emit(ChangeEvent{
		Kind: ChangeRemoved, Parent: p, Path: p.Path(),
		First: idx, Last: idx, Nodes: []*Node{n},
	})
}

// RemoveNodes removes every attached node in nodes. Nodes below another
// node of the set go with their ancestor. Removal runs deepest and
// last-ordinal first so earlier ordinals stay valid, one event per node.
func (t *Tree) RemoveNodes(nodes []*Node) {
	var todo []*Node
	for _, n := range nodes {
		if n == nil || n.tree != t || n.kind == KindRoot || !n.Attached() {
			continue
		}
		covered := false
		for _, o := range nodes {
			if o != n && o != nil && n.parent != nil && n.parent.within(o) {
				covered = true
				break
			}
		}
		if !covered && !slices.Contains(todo, n) {
			todo = append(todo, n)
		}
	}
	slices.SortFunc(todo, func(a, b *Node) int {
		if da, db := a.depth(), b.depth(); da != db {
			return db - da
		}
		return slices.Compare(b.Path(), a.Path())
	})
	for _, n := range todo {
		t.removeNode(n)
	}
}

// Update merges partial into the Record at path. Nothing happens, and no
// event is emitted, when the merge leaves the Record unchanged. Image
// Records cannot take the reserved "annotations" key.
func (t *Tree) Update(path Path, partial Record) error {
	n, err := t.NodeAt(path)
	if err != nil {
		return err
	}
	if n.kind == KindRoot {
		return fmt.Errorf("labeler: update root: %w", ErrBadValue)
	}
	if n.kind == KindImage && partial.Has(annotationsKey) {
		return fmt.Errorf("labeler: update image: reserved key %q: %w", annotationsKey, ErrMalformedInput)
	}
	merged := n.record.Clone()
	merged.Merge(partial)
	if merged.Equal(n.record) {
		return nil
	}
	n.record = merged
	t.setDirty(true)
	t.emit(ChangeEvent{Kind: ChangeData, Parent: n.parent, Path: n.Path(), First: n.index, Last: n.index, Node: n})
	return nil
}

// SiblingAt returns the Image offset positions away from image in traversal
// order, or nil past either end.
func (t *Tree) SiblingAt(image *Node, offset int) *Node {
	if image == nil || image.kind != KindImage || image.tree != t || !image.Attached() {
		return nil
	}
	return t.SiblingAtIndex(image.index + offset)
}

// SiblingAtIndex returns the n-th Image, or nil when out of range.
func (t *Tree) SiblingAtIndex(n int) *Node {
	return t.root.ChildAt(n)
}

// Dirty reports whether the tree changed since the last SetDirty(false).
func (t *Tree) Dirty() bool { return t.dirty }

// SetDirty sets the unsaved-changes flag.
func (t *Tree) SetDirty(dirty bool) { t.setDirty(dirty) }

func (t *Tree) setDirty(dirty bool) {
	if t.dirty == dirty {
		return
	}
	t.dirty = dirty
	for _, h := range slices.Clone(t.dirtyHandlers) {
		h.fn(dirty)
	}
}

// OnDirtyChanged registers fn to run whenever the dirty flag flips.
func (t *Tree) OnDirtyChanged(fn func(dirty bool)) Subscription {
	t.nextSub++
	t.dirtyHandlers = append(t.dirtyHandlers, dirtyHandler{id: t.nextSub, fn: fn})
	return Subscription{id: t.nextSub, tree: t}
}

// MarkSeen flags image as shown. It is not a Record mutation.
func (t *Tree) MarkSeen(image *Node) {
	if image != nil && image.kind == KindImage && image.tree == t {
		image.seen = true
	}
}

// Subscribe registers l for every change event.
func (t *Tree) Subscribe(l Listener) Subscription {
	return t.subscribe(l, nil)
}

// SubscribeImage registers l for events touching image or its annotations,
// including the removal of image itself, and for every Reset.
func (t *Tree) SubscribeImage(image *Node, l Listener) Subscription {
	return t.subscribe(l, image)
}

func (t *Tree) subscribe(l Listener, image *Node) Subscription {
	t.nextSub++
	t.subs = append(t.subs, subscriber{id: t.nextSub, l: l, image: image})
	return Subscription{id: t.nextSub, tree: t}
}

// emit delivers ev to every listener. Events emitted by a listener are
// queued and delivered once the current event has reached every listener.
func (t *Tree) emit(ev ChangeEvent) {
	t.pending = append(t.pending, ev)
	if t.dispatching {
		return
	}
	t.dispatching = true
	defer func() { t.dispatching = false }()
	for len(t.pending) > 0 {
		ev := t.pending[0]
		t.pending = t.pending[1:]
		for _, s := range slices.Clone(t.subs) {
			if !t.subscribed(s.id) || !s.accepts(ev) {
				continue
			}
			s.l.TreeChanged(ev)
		}
	}
}

func (t *Tree) subscribed(id uint32) bool {
	return slices.ContainsFunc(t.subs, func(s subscriber) bool { return s.id == id })
}

func (s subscriber) accepts(ev ChangeEvent) bool {
	if s.image == nil || ev.Kind == ChangeReset {
		return true
	}
	if ev.Node != nil && ev.Node.within(s.image) {
		return true
	}
	if ev.Parent != nil && ev.Parent.within(s.image) {
		return true
	}
	return slices.Contains(ev.Nodes, s.image)
}
