package labeler

import (
	"log/slog"

	"github.com/hajimehoshi/ebiten/v2"
)

// ImageTarget reports the Image that inserters commit annotations to.
type ImageTarget interface {
	CurrentImage() *Node
}

// InserterContext is everything an inserter needs at construction.
type InserterContext struct {
	Canvas *Canvas
	Images ImageTarget
	// Defaults are merged into every produced Record after the coordinates.
	Defaults Record
	// Prefix is prepended to the "xn"/"yn" coordinate keys.
	Prefix string
	// Commit inserts produced Records into the tree. When false the inserter
	// only previews and reports the Record.
	Commit bool
	Config Config
	Color  Color
	Logger *slog.Logger
}

// Inserter is the interaction state machine of one drawing tool. While
// active it receives all canvas input. It finishes exactly once, either by
// completing its gesture or by being aborted, and is then discarded.
type Inserter interface {
	InputHandler
	// ImageChanged discards in-progress geometry when the displayed image
	// changes.
	ImageChanged()
	// Abort discards in-progress geometry without touching the tree and
	// finishes the inserter.
	Abort()
	Finished() bool
	OnFinished(fn func()) CallbackHandle
	OnAnnotationFinished(fn func(rec Record)) CallbackHandle
	// AllowOutOfScene reports whether pointer events outside the image
	// should still be delivered.
	AllowOutOfScene() bool
}

type baseInserter struct {
	ctx      InserterContext
	logger   *slog.Logger
	finished bool

	onFinished   callbacks[func()]
	onAnnotation callbacks[func(Record)]
}

func newBaseInserter(ctx InserterContext) baseInserter {
	logger := ctx.Logger
	if logger == nil {
		logger = ctx.Config.logger()
	}
	if ctx.Color == (Color{}) {
		ctx.Color = Color{1, 0, 0, 1}
	}
	ctx.Config.normalize()
	return baseInserter{ctx: ctx, logger: logger}
}

func (b *baseInserter) Finished() bool { return b.finished }

func (b *baseInserter) OnFinished(fn func()) CallbackHandle {
	return b.onFinished.add(fn)
}

func (b *baseInserter) OnAnnotationFinished(fn func(rec Record)) CallbackHandle {
	return b.onAnnotation.add(fn)
}

func (b *baseInserter) AllowOutOfScene() bool { return false }

func (b *baseInserter) PointerUp(PointerEvent)          {}
func (b *baseInserter) PointerMove(PointerEvent)        {}
func (b *baseInserter) PointerDoubleClick(PointerEvent) {}
func (b *baseInserter) KeyPress(KeyEvent)               {}

// finish marks the inserter done and notifies listeners once.
func (b *baseInserter) finish() {
	if b.finished {
		return
	}
	b.finished = true
	if c := b.ctx.Canvas; c != nil {
		c.ClearMessage()
	}
	for _, fn := range b.onFinished.snapshot() {
		fn()
	}
}

// produce serializes pts, merges the defaults, commits when configured and
// reports the Record.
func (b *baseInserter) produce(pts Polygon) Record {
	rec := Record{}
	rec.SetPoints(b.ctx.Prefix, pts)
	rec.Merge(b.ctx.Defaults)
	if b.ctx.Commit {
		var img *Node
		if b.ctx.Images != nil {
			img = b.ctx.Images.CurrentImage()
		}
		if img == nil {
			b.logger.Warn("labeler: no current image, annotation not committed")
		} else if _, err := img.Tree().AddAnnotation(img, rec); err != nil {
			b.logger.Warn("labeler: commit annotation", "image", img.String(), "err", err)
		}
	}
	for _, fn := range b.onAnnotation.snapshot() {
		fn(rec.Clone())
	}
	return rec
}

func (b *baseInserter) addPreview(it Item) {
	if b.ctx.Canvas != nil {
		b.ctx.Canvas.AddOverlay(it)
	}
}

func (b *baseInserter) removePreview(it Item) {
	if b.ctx.Canvas != nil && it != nil {
		b.ctx.Canvas.RemoveItem(it)
	}
}

func (b *baseInserter) setMessage(msg string) {
	if b.ctx.Canvas != nil {
		b.ctx.Canvas.SetMessage(msg)
	}
}

func isEnter(k ebiten.Key) bool {
	return k == ebiten.KeyEnter || k == ebiten.KeyNumpadEnter
}

// PolylineShape is the preview of a polyline under construction.
type PolylineShape struct {
	pts   Polygon
	color Color
}

// NewPolylineShape starts a preview with the given points.
func NewPolylineShape(pts Polygon, c Color) *PolylineShape {
	return &PolylineShape{pts: pts.Clone(), color: c}
}

// Points returns a copy of the preview vertices.
func (s *PolylineShape) Points() Polygon { return s.pts.Clone() }

// Len returns the number of vertices.
func (s *PolylineShape) Len() int { return len(s.pts) }

func (s *PolylineShape) appendPoint(p Vec2)  { s.pts = append(s.pts, p) }
func (s *PolylineShape) prependPoint(p Vec2) { s.pts = append(Polygon{p}, s.pts...) }

func (s *PolylineShape) setLast(p Vec2) {
	if len(s.pts) > 0 {
		s.pts[len(s.pts)-1] = p
	}
}

func (s *PolylineShape) Node() *Node      { return nil }
func (s *PolylineShape) Valid() bool      { return len(s.pts) > 0 }
func (s *PolylineShape) Refresh()         {}
func (s *PolylineShape) Bounds() Rect     { return s.pts.BoundingBox() }
func (s *PolylineShape) Selected() bool   { return false }
func (s *PolylineShape) SetSelected(bool) {}

// Contains is always false: previews are not pickable.
func (s *PolylineShape) Contains(x, y float64) bool { return false }

func (s *PolylineShape) Draw(dst *ebiten.Image, view Affine) {
	screen := make([]Vec2, len(s.pts))
	for i, p := range s.pts {
		screen[i] = view.ApplyVec(p)
	}
	strokePolyline(dst, screen, false, 1, s.color)
}

// FreePolylineShape is a polyline preview with a handle at each end. Each
// handle is drawn with radius Radius and hit within twice that.
type FreePolylineShape struct {
	PolylineShape
	Radius       float64
	initSelected bool
	endSelected  bool
}

// NewFreePolylineShape starts a freehand preview.
func NewFreePolylineShape(pts Polygon, c Color, radius float64) *FreePolylineShape {
	return &FreePolylineShape{PolylineShape: PolylineShape{pts: pts.Clone(), color: c}, Radius: radius}
}

// InitRegion is the hit region of the first vertex.
func (s *FreePolylineShape) InitRegion() HitCircle {
	if len(s.pts) == 0 {
		return HitCircle{}
	}
	p := s.pts[0]
	return HitCircle{CenterX: p.X, CenterY: p.Y, Radius: 2 * s.Radius}
}

// EndRegion is the hit region of the last vertex.
func (s *FreePolylineShape) EndRegion() HitCircle {
	if len(s.pts) == 0 {
		return HitCircle{}
	}
	p := s.pts[len(s.pts)-1]
	return HitCircle{CenterX: p.X, CenterY: p.Y, Radius: 2 * s.Radius}
}

func (s *FreePolylineShape) InitSelected() bool { return s.initSelected }
func (s *FreePolylineShape) EndSelected() bool  { return s.endSelected }

func (s *FreePolylineShape) selectInit() { s.initSelected, s.endSelected = true, false }
func (s *FreePolylineShape) selectEnd()  { s.initSelected, s.endSelected = false, true }
func (s *FreePolylineShape) deselect()   { s.initSelected, s.endSelected = false, false }

var (
	handleIdle     = Color{1, 1, 0, 1}
	handleSelected = Color{0, 1, 0, 1}
)

func (s *FreePolylineShape) Draw(dst *ebiten.Image, view Affine) {
	s.PolylineShape.Draw(dst, view)
	if len(s.pts) == 0 {
		return
	}
	r := s.Radius * view.ScaleFactor()
	drawHandle := func(p Vec2, selected bool) {
		c := handleIdle
		if selected {
			c = handleSelected
		}
		strokeCircle(dst, view.ApplyVec(p), r, 1, c)
	}
	drawHandle(s.pts[0], s.initSelected)
	drawHandle(s.pts[len(s.pts)-1], s.endSelected)
}
