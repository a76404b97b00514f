package labeler

// FreehandInserter draws a polygon by dragging. The shape has a handle at
// each end; the selected handle is where dragging adds vertices, so a frozen
// shape can be reopened and extended from either end.
//
//   - The first press creates a one-vertex shape with the final handle
//     selected.
//   - While a handle is selected and the button is held, every move of at
//     least MoveThreshold (manhattan) appends (final) or prepends (initial)
//     a vertex.
//   - A press inside the selected handle's own region finishes. A press in
//     the other handle's region selects that handle instead. Any other press
//     adds a vertex at the selected end.
//   - With no handle selected, a press inside a handle's region selects it.
//   - Release deselects both handles, unless it lands where the press that
//     selected a handle landed.
//   - Double click and Enter finish.
//
// Only the left button draws.
type FreehandInserter struct {
	baseInserter
	shape *FreePolylineShape

	pressed   bool
	lastPos   Vec2
	selectPos Vec2
	selecting bool

	complete func(pts Polygon)
}

// NewFreehandInserter returns an idle freehand inserter.
func NewFreehandInserter(ctx InserterContext) *FreehandInserter {
	f := &FreehandInserter{baseInserter: newBaseInserter(ctx)}
	f.complete = func(pts Polygon) { f.produce(pts) }
	return f
}

// Shape returns the preview, or nil before the first press.
func (f *FreehandInserter) Shape() *FreePolylineShape { return f.shape }

func (f *FreehandInserter) PointerDown(ev PointerEvent) {
	if f.finished || ev.Button != MouseButtonLeft {
		return
	}
	pos := ev.Pos()
	f.pressed = true
	f.lastPos = pos

	s := f.shape
	if s == nil {
		f.shape = NewFreePolylineShape(Polygon{pos}, f.ctx.Color, f.ctx.Config.HandleRadius)
		f.shape.selectEnd()
		f.addPreview(f.shape)
		f.setMessage("Press inside the selected handle to finish.")
		return
	}

	initHit := s.InitRegion().Contains(pos.X, pos.Y)
	endHit := s.EndRegion().Contains(pos.X, pos.Y)
	switch {
	case s.endSelected:
		switch {
		case endHit:
			f.finishShape()
		case initHit:
			s.selectInit()
			f.markSelect(pos)
		default:
			s.appendPoint(pos)
		}
	case s.initSelected:
		switch {
		case initHit:
			f.finishShape()
		case endHit:
			s.selectEnd()
			f.markSelect(pos)
		default:
			s.prependPoint(pos)
		}
	default:
		switch {
		case initHit:
			s.selectInit()
			f.markSelect(pos)
		case endHit:
			s.selectEnd()
			f.markSelect(pos)
		}
	}
}

func (f *FreehandInserter) markSelect(pos Vec2) {
	f.selectPos = pos
	f.selecting = true
}

func (f *FreehandInserter) PointerMove(ev PointerEvent) {
	if f.finished || f.shape == nil || !f.pressed {
		return
	}
	pos := ev.Pos()
	if pos.Manhattan(f.lastPos) < f.ctx.Config.MoveThreshold {
		return
	}
	f.lastPos = pos
	switch {
	case f.shape.endSelected:
		f.shape.appendPoint(pos)
	case f.shape.initSelected:
		f.shape.prependPoint(pos)
	}
}

func (f *FreehandInserter) PointerUp(ev PointerEvent) {
	if f.finished || f.shape == nil {
		return
	}
	f.pressed = false
	keep := ev.Button == MouseButtonLeft && f.selecting && ev.Pos() == f.selectPos &&
		(f.shape.initSelected || f.shape.endSelected)
	f.selecting = false
	if !keep {
		f.shape.deselect()
	}
}

func (f *FreehandInserter) PointerDoubleClick(PointerEvent) {
	f.finishShape()
}

func (f *FreehandInserter) KeyPress(ev KeyEvent) {
	if isEnter(ev.Key) {
		f.finishShape()
	}
}

// finishShape hands the vertices to the completion step and finishes. An
// empty shape is rejected.
func (f *FreehandInserter) finishShape() {
	if f.finished {
		return
	}
	if f.shape == nil || f.shape.Len() == 0 {
		f.logger.Warn("labeler: freehand finish rejected: no vertices")
		return
	}
	pts := f.shape.Points()
	f.removePreview(f.shape)
	f.shape = nil
	f.pressed = false
	f.complete(pts)
	f.finish()
}

func (f *FreehandInserter) ImageChanged() {
	f.discard()
}

func (f *FreehandInserter) Abort() {
	f.discard()
	f.finish()
}

func (f *FreehandInserter) discard() {
	if f.shape != nil {
		f.removePreview(f.shape)
		f.shape = nil
		if f.ctx.Canvas != nil {
			f.ctx.Canvas.ClearMessage()
		}
	}
	f.pressed = false
	f.selecting = false
}

// FreehandEraser is drawn like a FreehandInserter, but on finish its shape
// is subtracted from every erasable item on the canvas instead of being
// committed.
type FreehandEraser struct {
	*FreehandInserter
}

// NewFreehandEraser returns an idle eraser.
func NewFreehandEraser(ctx InserterContext) *FreehandEraser {
	e := &FreehandEraser{FreehandInserter: NewFreehandInserter(ctx)}
	e.complete = e.erase
	return e
}

// erase subtracts pts from every Subtracter present on the canvas when the
// stroke finished. Items added by the subtraction itself are not visited.
func (e *FreehandEraser) erase(pts Polygon) {
	c := e.ctx.Canvas
	if c == nil || len(pts) < 3 {
		return
	}
	changed := 0
	for _, it := range c.Items() {
		s, ok := it.(Subtracter)
		if !ok || !c.HasItem(it) {
			continue
		}
		if s.Subtract(pts) {
			changed++
		}
	}
	e.logger.Debug("labeler: erase", "changed", changed)
}
