package labeler

import (
	"image"
	"log/slog"
	"math"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
)

// Item is a graphical element on the Canvas. Items bound to a tree Node hold
// it for lookup only; the Tree owns Nodes and the Canvas owns items.
type Item interface {
	// Node returns the bound node, or nil for items that represent none.
	Node() *Node
	// Valid reports whether the item could derive its geometry. Invalid
	// items are neither drawn nor hit.
	Valid() bool
	// Refresh re-derives geometry and text from the node's Record.
	Refresh()
	// Bounds returns the item's extent in image-pixel coordinates.
	Bounds() Rect
	// Contains reports whether the image-pixel point (x, y) hits the item.
	Contains(x, y float64) bool
	// Draw renders the item; view maps image pixels to screen pixels.
	Draw(dst *ebiten.Image, view Affine)
	Selected() bool
	SetSelected(selected bool)
}

// Subtracter is implemented by items whose geometry an eraser can cut.
type Subtracter interface {
	// Subtract removes eraser from the item's geometry, writing the result
	// back to the tree. It reports whether anything changed.
	Subtract(eraser Polygon) bool
}

// parented is implemented by items that belong to another item. Removing the
// parent removes them as well.
type parented interface {
	ParentItem() Item
}

// ItemOptions configures items built for annotation nodes.
type ItemOptions struct {
	// Prefix is prepended to the "xn"/"yn" coordinate keys.
	Prefix string
	// Color is the fill and outline color. Opacity scales the fill.
	Color   Color
	Opacity float64
	// AutoTextKeys lists Record keys rendered as "key: value" lines.
	AutoTextKeys []string
	Font         *Font
	Logger       *slog.Logger
}

func (o ItemOptions) withDefaults() ItemOptions {
	if o.Color == (Color{}) {
		o.Color = ColorWhite
	}
	if o.Opacity <= 0 {
		o.Opacity = defaultOpacity
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Font == nil {
		o.Font = DefaultFont()
	}
	return o
}

// BaseItem carries the state shared by node-bound items.
type BaseItem struct {
	node     *Node
	parent   Item
	valid    bool
	selected bool
	text     string
	opts     ItemOptions
}

func newBaseItem(n *Node, opts ItemOptions) BaseItem {
	return BaseItem{node: n, opts: opts.withDefaults()}
}

// Node returns the bound node.
func (b *BaseItem) Node() *Node { return b.node }

// Valid reports whether the item derived its geometry.
func (b *BaseItem) Valid() bool { return b.valid }

// Selected reports the selection flag.
func (b *BaseItem) Selected() bool { return b.selected }

// SetSelected sets the selection flag.
func (b *BaseItem) SetSelected(s bool) { b.selected = s }

// ParentItem returns the owning item, if any.
func (b *BaseItem) ParentItem() Item { return b.parent }

// SetParentItem makes p the owner of this item.
func (b *BaseItem) SetParentItem(p Item) { b.parent = p }

// Text returns the auto-text label.
func (b *BaseItem) Text() string { return b.text }

// Color returns the item color.
func (b *BaseItem) Color() Color { return b.opts.Color }

func (b *BaseItem) refreshText() {
	if b.node == nil {
		b.text = ""
		return
	}
	var lines []string
	for _, k := range b.opts.AutoTextKeys {
		if v, ok := b.node.record.Get(k); ok {
			lines = append(lines, k+": "+v.AsString())
		}
	}
	b.text = strings.Join(lines, "\n")
}

func (b *BaseItem) fillColor() Color {
	a := b.opts.Opacity
	if b.selected {
		a = math.Min(1, a+selectedOpacityBoost)
	}
	return b.opts.Color.WithAlpha(a * b.opts.Color.A)
}

const selectedOpacityBoost = 0.3

// PolygonItem draws an annotation whose Record holds a coordinate list.
type PolygonItem struct {
	BaseItem
	poly   Polygon
	bounds Rect
}

// NewPolygonItem builds a PolygonItem bound to n and derives its geometry.
func NewPolygonItem(n *Node, opts ItemOptions) *PolygonItem {
	it := &PolygonItem{BaseItem: newBaseItem(n, opts)}
	it.Refresh()
	return it
}

// Refresh re-reads the coordinate keys. Missing or malformed keys make the
// item invalid and are logged.
func (p *PolygonItem) Refresh() {
	p.refreshText()
	pts, err := p.node.record.Points(p.opts.Prefix)
	if err != nil {
		p.valid = false
		p.poly = nil
		p.bounds = Rect{}
		p.opts.Logger.Warn("labeler: polygon item invalid", "node", p.node.String(), "err", err)
		return
	}
	p.valid = true
	p.poly = pts
	p.bounds = pts.BoundingBox()
}

// Polygon returns a copy of the derived geometry.
func (p *PolygonItem) Polygon() Polygon { return p.poly.Clone() }

// Bounds returns the polygon's bounding box.
func (p *PolygonItem) Bounds() Rect { return p.bounds }

// Contains reports whether (x, y) lies inside the polygon.
func (p *PolygonItem) Contains(x, y float64) bool {
	return p.valid && p.bounds.Contains(x, y) && p.poly.ContainsPoint(x, y)
}

// Draw fills and outlines the polygon and renders its label above it.
func (p *PolygonItem) Draw(dst *ebiten.Image, view Affine) {
	if !p.valid || len(p.poly) == 0 {
		return
	}
	screen := make([]Vec2, len(p.poly))
	for i, v := range p.poly {
		screen[i] = view.ApplyVec(v)
	}
	fillPolygon(dst, screen, p.fillColor())
	width := float32(1)
	if p.selected {
		width = 2
	}
	strokePolyline(dst, screen, true, width, p.opts.Color)
	if p.text != "" {
		x, y := view.Apply(p.bounds.X, p.bounds.Y)
		_, h := p.opts.Font.Measure(p.text)
		p.opts.Font.Draw(dst, p.text, x, y-h-2, p.opts.Color)
	}
}

// Subtract cuts eraser out of the polygon. The largest remaining piece keeps
// the node; every other piece becomes a new sibling annotation inserted right
// after it with a copy of the node's attributes. Nothing remaining removes
// the node. Geometry the eraser does not touch leaves the tree untouched.
func (p *PolygonItem) Subtract(eraser Polygon) bool {
	n := p.node
	if !p.valid || n == nil || !n.Attached() {
		return false
	}
	pieces := Subtract(p.poly, eraser)
	if len(pieces) == 1 && SameArea(pieces[0].Area(), p.poly.Area()) {
		return false
	}
	t := n.tree
	if len(pieces) == 0 {
		if err := t.Remove(n.Path()); err != nil {
			p.opts.Logger.Warn("labeler: erase", "node", n.String(), "err", err)
			return false
		}
		return true
	}

	attrs := n.Record()
	geom := Record{}
	geom.SetPoints(p.opts.Prefix, pieces[0])
	if err := t.Update(n.Path(), geom); err != nil {
		p.opts.Logger.Warn("labeler: erase", "node", n.String(), "err", err)
		return false
	}
	parent := n.parent.Path()
	for k, piece := range pieces[1:] {
		rec := attrs.Clone()
		rec.SetPoints(p.opts.Prefix, piece)
		if _, err := t.Insert(parent, n.index+1+k, rec); err != nil {
			p.opts.Logger.Warn("labeler: erase split", "node", n.String(), "err", err)
		}
	}
	return true
}

// ImageItem is the background pixmap of the displayed Image. The pixels are
// uploaded to the GPU on first draw.
type ImageItem struct {
	node *Node
	src  image.Image
	img  *ebiten.Image
}

// NewImageItem wraps decoded pixels for the image node n.
func NewImageItem(n *Node, src image.Image) *ImageItem {
	return &ImageItem{node: n, src: src}
}

func (it *ImageItem) Node() *Node      { return it.node }
func (it *ImageItem) Valid() bool      { return it.src != nil }
func (it *ImageItem) Refresh()         {}
func (it *ImageItem) Selected() bool   { return false }
func (it *ImageItem) SetSelected(bool) {}

// Source returns the decoded pixels.
func (it *ImageItem) Source() image.Image { return it.src }

// Bounds returns the pixel rectangle of the image, anchored at the origin.
func (it *ImageItem) Bounds() Rect {
	if it.src == nil {
		return Rect{}
	}
	b := it.src.Bounds()
	return Rect{Width: float64(b.Dx()), Height: float64(b.Dy())}
}

// Contains is always false: the background is never picked.
func (it *ImageItem) Contains(x, y float64) bool { return false }

// Draw renders the pixmap through view.
func (it *ImageItem) Draw(dst *ebiten.Image, view Affine) {
	if it.src == nil {
		return
	}
	if it.img == nil {
		it.img = ebiten.NewImageFromImage(it.src)
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM = view.GeoM()
	op.Filter = ebiten.FilterLinear
	dst.DrawImage(it.img, op)
}

// Dispose releases the GPU copy of the pixmap.
func (it *ImageItem) Dispose() {
	if it.img != nil {
		it.img.Deallocate()
		it.img = nil
	}
}
