package labeler

import (
	"fmt"
	"image"
	"log/slog"
	"slices"
)

// ImageProvider supplies decoded pixels for Image nodes. It reports false
// while an image is still loading.
type ImageProvider interface {
	Image(n *Node) (image.Image, bool)
}

// SceneSync keeps the canvas consistent with one displayed Image of a Tree.
// Tree mutations become item additions, removals and refreshes; item edits
// and canvas selection flow back as Record updates and node selections.
type SceneSync struct {
	canvas *Canvas
	tree   *Tree
	items  *ItemFactory
	images ImageProvider
	cfg    Config
	logger *slog.Logger

	current   *Node
	displayed bool
	sub       Subscription

	nodesSelected callbacks[func([]*Node)]
	selHandle     CallbackHandle
	quiet         bool
}

// NewSceneSync binds canvas to tree. Items for annotation nodes are built by
// items, keyed on the node's "class" attribute.
func NewSceneSync(canvas *Canvas, tree *Tree, items *ItemFactory, images ImageProvider, cfg Config) *SceneSync {
	cfg.normalize()
	s := &SceneSync{
		canvas: canvas,
		tree:   tree,
		items:  items,
		images: images,
		cfg:    cfg,
		logger: cfg.logger(),
	}
	s.selHandle = canvas.OnSelectionChanged(s.selectionChanged)
	return s
}

// Tree returns the synchronized tree.
func (s *SceneSync) Tree() *Tree { return s.tree }

// SetTree switches to another tree, clearing the display.
func (s *SceneSync) SetTree(t *Tree) {
	s.ShowImage(nil)
	s.tree = t
}

// SetImageProvider replaces the pixel source.
func (s *SceneSync) SetImageProvider(p ImageProvider) { s.images = p }

// CurrentImage returns the Image being displayed or awaiting its pixels.
func (s *SceneSync) CurrentImage() *Node { return s.current }

// Displayed reports whether the current image's items are laid out.
func (s *SceneSync) Displayed() bool { return s.displayed }

// Close detaches from the tree and the canvas.
func (s *SceneSync) Close() {
	s.ShowImage(nil)
	s.selHandle.Remove()
}

// ShowImage displays image, replacing whatever was shown. Items are laid out
// once the pixels are available: immediately when the provider has them,
// otherwise on the matching ImageLoaded call. A nil image clears the canvas.
func (s *SceneSync) ShowImage(img *Node) {
	if img != nil && img == s.current {
		return
	}
	s.forget()
	if img == nil {
		return
	}
	if img.Kind() != KindImage || img.Tree() != s.tree || !img.Attached() {
		s.logger.Warn("labeler: show image: not an image of this tree", "node", img.String())
		return
	}
	s.current = img
	s.sub = s.tree.SubscribeImage(img, s)
	if s.images != nil {
		if px, ok := s.images.Image(img); ok {
			s.layout(img, px)
			return
		}
	}
	s.logger.Debug("labeler: image pending", "image", img.String())
}

// ImageLoaded delivers the pixels of img. Completions for anything but the
// image awaiting display are discarded. A nil px is fetched from the
// provider.
func (s *SceneSync) ImageLoaded(img *Node, px image.Image) {
	if img == nil {
		return
	}
	img.SetLoaded(true)
	if img != s.current || s.displayed {
		s.logger.Debug("labeler: stale image load discarded", "image", img.String())
		return
	}
	if px == nil && s.images != nil {
		px, _ = s.images.Image(img)
	}
	if px == nil {
		s.logger.Warn("labeler: image loaded without pixels", "image", img.String())
		return
	}
	s.layout(img, px)
}

// layout puts the background first, then one item per annotation.
func (s *SceneSync) layout(img *Node, px image.Image) {
	img.SetLoaded(true)
	s.canvas.SetBackground(NewImageItem(img, px))
	for _, n := range img.Annotations() {
		s.addItem(n)
	}
	s.displayed = true
	s.tree.MarkSeen(img)
	if s.cfg.AutoFit {
		s.canvas.FitToImage()
	}
	s.logger.Debug("labeler: image shown", "image", img.String(), "items", len(s.canvas.items))
}

func (s *SceneSync) forget() {
	s.sub.Remove()
	s.sub = Subscription{}
	s.current = nil
	s.displayed = false
	s.canvas.Clear()
}

func (s *SceneSync) addItem(n *Node) {
	class := n.Class()
	if class == "" {
		s.logger.Warn("labeler: annotation has no class, skipped", "node", n.String())
		return
	}
	it, ok := s.items.Create(class, n)
	if !ok || it == nil {
		s.logger.Warn("labeler: no item for class, skipped", "node", n.String(), "class", class)
		return
	}
	s.canvas.AddItem(it)
}

// TreeChanged implements Listener.
func (s *SceneSync) TreeChanged(ev ChangeEvent) {
	switch ev.Kind {
	case ChangeReset:
		s.forget()
	case ChangeInserted:
		if !s.displayed {
			return
		}
		for _, n := range ev.Nodes {
			if n.Kind() == KindAnnotation && n.Parent() == s.current {
				s.addItem(n)
			}
		}
	case ChangeRemoved:
		if slices.Contains(ev.Nodes, s.current) {
			s.forget()
			return
		}
		if s.displayed {
			s.removeItems(ev.Nodes)
		}
	case ChangeData:
		if !s.displayed || ev.Node == s.current {
			return
		}
		if it := s.ItemFor(ev.Node); it != nil {
			it.Refresh()
		}
	}
}

// removeItems drops the items bound to removed nodes. An item whose parent
// item goes in the same batch is removed along with that parent.
func (s *SceneSync) removeItems(removed []*Node) {
	gone := func(n *Node) bool {
		for _, r := range removed {
			if n != nil && n.within(r) {
				return true
			}
		}
		return false
	}
	var batch []Item
	for _, it := range s.canvas.Items() {
		if gone(it.Node()) {
			batch = append(batch, it)
		}
	}
	for _, it := range batch {
		if p, ok := it.(parented); ok && p.ParentItem() != nil && slices.Contains(batch, p.ParentItem()) {
			continue
		}
		s.canvas.RemoveItem(it)
	}
}

// ItemFor returns the displayed item bound to n, or nil.
func (s *SceneSync) ItemFor(n *Node) Item {
	if n == nil {
		return nil
	}
	for _, it := range s.canvas.items {
		if it.Node() == n {
			return it
		}
	}
	return nil
}

// CommitGeometry writes poly into the Record of the node bound to it.
func (s *SceneSync) CommitGeometry(it Item, poly Polygon) error {
	n := it.Node()
	if n == nil || !n.Attached() {
		return fmt.Errorf("labeler: commit geometry: item has no node: %w", ErrNotFound)
	}
	rec := Record{}
	rec.SetPoints(s.cfg.Prefix, poly)
	return s.tree.Update(n.Path(), rec)
}

// OnNodesSelected registers fn to run with the selected nodes whenever the
// canvas selection changes.
func (s *SceneSync) OnNodesSelected(fn func(nodes []*Node)) CallbackHandle {
	return s.nodesSelected.add(fn)
}

func (s *SceneSync) selectionChanged(items []Item) {
	if s.quiet {
		return
	}
	nodes := nodesOf(items)
	for _, fn := range s.nodesSelected.snapshot() {
		fn(nodes)
	}
}

// SelectNodes makes the items of nodes the canvas selection. It does not
// report back through OnNodesSelected.
func (s *SceneSync) SelectNodes(nodes []*Node) {
	var items []Item
	for _, n := range nodes {
		if it := s.ItemFor(n); it != nil {
			items = append(items, it)
		}
	}
	s.quiet = true
	defer func() { s.quiet = false }()
	s.canvas.SelectOnly(items...)
}

// SelectedNodes returns the nodes of the selected items.
func (s *SceneSync) SelectedNodes() []*Node {
	return nodesOf(s.canvas.SelectedItems())
}

// DeleteSelected removes the nodes of the selected items from the tree and
// returns how many were selected.
func (s *SceneSync) DeleteSelected() int {
	nodes := s.SelectedNodes()
	if len(nodes) == 0 {
		return 0
	}
	s.tree.RemoveNodes(nodes)
	return len(nodes)
}

func nodesOf(items []Item) []*Node {
	var out []*Node
	for _, it := range items {
		if n := it.Node(); n != nil {
			out = append(out, n)
		}
	}
	return out
}
