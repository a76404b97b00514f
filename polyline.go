package labeler

// PolylineInserter draws a straight-edged polygon. Every press adds a vertex
// and the last vertex follows the pointer. A double click or Enter finishes,
// dropping the trailing vertex that was only following the pointer.
type PolylineInserter struct {
	baseInserter
	shape *PolylineShape
}

// NewPolylineInserter returns an idle polyline inserter.
func NewPolylineInserter(ctx InserterContext) *PolylineInserter {
	return &PolylineInserter{baseInserter: newBaseInserter(ctx)}
}

// Shape returns the preview, or nil before the first press.
func (p *PolylineInserter) Shape() *PolylineShape { return p.shape }

// AllowOutOfScene is true: vertices may be placed outside the image.
func (p *PolylineInserter) AllowOutOfScene() bool { return true }

func (p *PolylineInserter) PointerDown(ev PointerEvent) {
	if p.finished {
		return
	}
	pos := ev.Pos()
	if p.shape == nil {
		p.shape = NewPolylineShape(Polygon{pos}, p.ctx.Color)
		p.addPreview(p.shape)
		p.setMessage("Press Enter to finish the polygon.")
	}
	p.shape.appendPoint(pos)
}

func (p *PolylineInserter) PointerMove(ev PointerEvent) {
	if p.finished || p.shape == nil {
		return
	}
	p.shape.setLast(ev.Pos())
}

func (p *PolylineInserter) PointerDoubleClick(PointerEvent) {
	p.complete()
}

func (p *PolylineInserter) KeyPress(ev KeyEvent) {
	if isEnter(ev.Key) {
		p.complete()
	}
}

// complete drops the trailing vertex and produces the Record. With nothing
// left to commit the request is rejected and the inserter keeps running.
func (p *PolylineInserter) complete() {
	if p.finished {
		return
	}
	if p.shape == nil || p.shape.Len() < 2 {
		p.logger.Warn("labeler: polyline finish rejected: no vertices")
		return
	}
	pts := p.shape.pts[:len(p.shape.pts)-1].Clone()
	p.removePreview(p.shape)
	p.shape = nil
	p.produce(pts)
	p.finish()
}

func (p *PolylineInserter) ImageChanged() {
	p.discard()
}

func (p *PolylineInserter) Abort() {
	p.discard()
	p.finish()
}

func (p *PolylineInserter) discard() {
	if p.shape != nil {
		p.removePreview(p.shape)
		p.shape = nil
		if p.ctx.Canvas != nil {
			p.ctx.Canvas.ClearMessage()
		}
	}
}
