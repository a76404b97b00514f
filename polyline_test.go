package labeler

import (
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

type fixedImage struct{ n *Node }

func (f fixedImage) CurrentImage() *Node { return f.n }

func press(x, y float64) PointerEvent {
	return PointerEvent{X: x, Y: y, Button: MouseButtonLeft, Pressed: true}
}

func release(x, y float64) PointerEvent {
	return PointerEvent{X: x, Y: y, Button: MouseButtonLeft}
}

func testInserterContext(c *Canvas, img *Node, class string) InserterContext {
	cfg := quietConfig()
	return InserterContext{
		Canvas:   c,
		Images:   fixedImage{img},
		Defaults: Record{"class": StringValue(class)},
		Commit:   true,
		Config:   cfg,
		Logger:   cfg.Logger,
	}
}

func emptyImageTree(t *testing.T) (*Tree, *Node) {
	t.Helper()
	tr := NewTree()
	img, err := tr.InsertImage(Record{"filename": StringValue("a.png")})
	if err != nil {
		t.Fatal(err)
	}
	tr.SetDirty(false)
	return tr, img
}

func assertPolygon(t *testing.T, name string, got, want Polygon) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestPolylineInserterCommit(t *testing.T) {
	c := newTestCanvas()
	tr, img := emptyImageTree(t)
	p := NewPolylineInserter(testInserterContext(c, img, "TZ"))
	finished, produced := 0, 0
	p.OnFinished(func() { finished++ })
	p.OnAnnotationFinished(func(rec Record) {
		produced++
		if rec.StringOr("class", "") != "TZ" {
			t.Errorf("produced class = %q", rec.StringOr("class", ""))
		}
	})

	p.PointerDown(press(0, 0))
	if p.Shape() == nil || len(c.Overlays()) != 1 || c.Message() == "" {
		t.Fatal("first press should start a preview")
	}
	assertPolygon(t, "after first press", p.Shape().Points(), Polygon{{0, 0}, {0, 0}})
	p.PointerMove(release(10, 0))
	p.PointerDown(press(10, 0))
	p.PointerMove(release(10, 10))
	p.PointerDown(press(10, 10))
	p.PointerMove(release(0, 10))
	assertPolygon(t, "preview", p.Shape().Points(), Polygon{{0, 0}, {10, 0}, {10, 10}, {0, 10}})

	p.KeyPress(KeyEvent{Key: ebiten.KeyEnter})

	if !p.Finished() || finished != 1 || produced != 1 {
		t.Fatalf("finished=%v (%d calls), produced=%d", p.Finished(), finished, produced)
	}
	if img.NumChildren() != 1 {
		t.Fatalf("annotations = %d, want 1", img.NumChildren())
	}
	assertPolygon(t, "committed", nodePolygon(t, img.ChildAt(0)), Polygon{{0, 0}, {10, 0}, {10, 10}})
	if img.ChildAt(0).Class() != "TZ" || !tr.Dirty() {
		t.Error("commit should carry the defaults and dirty the tree")
	}
	if len(c.Overlays()) != 0 || c.Message() != "" {
		t.Error("preview and message should be gone")
	}

	p.PointerDown(press(50, 50))
	p.KeyPress(KeyEvent{Key: ebiten.KeyEnter})
	if finished != 1 || img.NumChildren() != 1 {
		t.Error("a finished inserter must ignore input")
	}
}

func TestPolylineInserterRejectsEmpty(t *testing.T) {
	_, img := emptyImageTree(t)
	p := NewPolylineInserter(testInserterContext(nil, img, "TZ"))
	p.PointerDoubleClick(press(0, 0))
	p.KeyPress(KeyEvent{Key: ebiten.KeyNumpadEnter})
	if p.Finished() || img.NumChildren() != 0 {
		t.Error("finishing without vertices should be rejected")
	}
	if !p.AllowOutOfScene() {
		t.Error("polyline vertices may lie outside the image")
	}
}

func TestPolylineInserterAbort(t *testing.T) {
	c := newTestCanvas()
	tr, img := emptyImageTree(t)
	p := NewPolylineInserter(testInserterContext(c, img, "TZ"))
	finished := 0
	p.OnFinished(func() { finished++ })
	p.PointerDown(press(1, 1))
	p.PointerDown(press(5, 1))
	p.Abort()
	p.Abort()
	if !p.Finished() || finished != 1 {
		t.Errorf("finished=%v calls=%d", p.Finished(), finished)
	}
	if img.NumChildren() != 0 || tr.Dirty() || len(c.Overlays()) != 0 {
		t.Error("abort must not touch the tree and must drop the preview")
	}
}

func TestPolylineInserterImageChanged(t *testing.T) {
	c := newTestCanvas()
	_, img := emptyImageTree(t)
	p := NewPolylineInserter(testInserterContext(c, img, "TZ"))
	p.PointerDown(press(1, 1))
	p.ImageChanged()
	if p.Finished() || p.Shape() != nil || len(c.Overlays()) != 0 {
		t.Error("image change should discard the shape and keep running")
	}
	p.PointerDown(press(7, 7))
	assertPolygon(t, "restarted", p.Shape().Points(), Polygon{{7, 7}, {7, 7}})
}

func TestPolylineInserterPreviewOnly(t *testing.T) {
	_, img := emptyImageTree(t)
	ctx := testInserterContext(nil, img, "TZ")
	ctx.Commit = false
	p := NewPolylineInserter(ctx)
	var got Record
	p.OnAnnotationFinished(func(rec Record) { got = rec })
	p.PointerDown(press(0, 0))
	p.PointerDown(press(4, 0))
	p.PointerDown(press(4, 4))
	p.PointerDoubleClick(press(4, 4))
	if img.NumChildren() != 0 {
		t.Error("Commit=false should not insert")
	}
	pts, err := got.Points("")
	if err != nil {
		t.Fatal(err)
	}
	assertPolygon(t, "reported", pts, Polygon{{0, 0}, {0, 0}, {4, 0}})
}

func TestPolylineInserterNoImage(t *testing.T) {
	p := NewPolylineInserter(testInserterContext(nil, nil, "TZ"))
	produced := false
	p.OnAnnotationFinished(func(Record) { produced = true })
	p.PointerDown(press(0, 0))
	p.PointerDown(press(4, 0))
	p.KeyPress(KeyEvent{Key: ebiten.KeyEnter})
	if !p.Finished() || !produced {
		t.Error("without an image the Record is still reported")
	}
}

func TestPolylineInserterThroughCanvas(t *testing.T) {
	c := newTestCanvas()
	_, img := emptyImageTree(t)
	p := NewPolylineInserter(testInserterContext(c, img, "TZ"))
	c.SetHandler(p)

	c.InjectClick(100, 100)
	c.InjectHover(200, 100)
	c.InjectClick(200, 100)
	c.InjectHover(200, 200)
	c.InjectDoubleClick(200, 200)
	pump(c)

	if !p.Finished() || img.NumChildren() != 1 {
		t.Fatalf("finished=%v annotations=%d", p.Finished(), img.NumChildren())
	}
	assertPolygon(t, "committed", nodePolygon(t, img.ChildAt(0)), Polygon{{100, 100}, {200, 100}, {200, 200}})
}
