package labeler

import (
	"errors"
	"image"
	"testing"
)

type pixelMap map[*Node]image.Image

func (m pixelMap) Image(n *Node) (image.Image, bool) {
	px, ok := m[n]
	return px, ok
}

func solidImage(w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

type syncFixture struct {
	canvas *Canvas
	tree   *Tree
	sync   *SceneSync
	pixels pixelMap
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	cfg := quietConfig()
	items := NewFactory[*Node, Item]()
	if err := DefaultLabelTable().Populate(items, NewFactory[InserterContext, Inserter](), cfg); err != nil {
		t.Fatal(err)
	}
	f := &syncFixture{canvas: newTestCanvas(), tree: loadSample(t), pixels: pixelMap{}}
	f.sync = NewSceneSync(f.canvas, f.tree, items, f.pixels, cfg)
	return f
}

func (f *syncFixture) image(t *testing.T, i int) *Node {
	t.Helper()
	return mustNode(t, f.tree, i)
}

func (f *syncFixture) show(t *testing.T, i int) *Node {
	t.Helper()
	img := f.image(t, i)
	f.pixels[img] = solidImage(100, 80)
	f.sync.ShowImage(img)
	if !f.sync.Displayed() {
		t.Fatalf("image %d not displayed", i)
	}
	return img
}

func TestSceneSyncShowImage(t *testing.T) {
	f := newSyncFixture(t)
	img := f.show(t, 0)
	if f.sync.CurrentImage() != img {
		t.Error("CurrentImage mismatch")
	}
	if bg := f.canvas.Background(); bg == nil || bg.Node() != img {
		t.Fatal("background should be the image")
	}
	items := f.canvas.Items()
	if len(items) != 2 || items[0].Node() != mustNode(t, f.tree, 0, 0) || items[1].Node() != mustNode(t, f.tree, 0, 1) {
		t.Errorf("items = %v", items)
	}
	if !img.Seen() || !img.Loaded() || f.tree.Dirty() {
		t.Error("showing marks seen and loaded without dirtying")
	}

	f.show(t, 2)
	if len(f.canvas.Items()) != 1 || f.canvas.Items()[0].Node().Class() != "AE" {
		t.Errorf("items after switching = %v", f.canvas.Items())
	}
}

func TestSceneSyncDeferredDisplay(t *testing.T) {
	f := newSyncFixture(t)
	img := f.image(t, 0)
	f.sync.ShowImage(img)
	if f.sync.Displayed() || f.canvas.Background() != nil || len(f.canvas.Items()) != 0 {
		t.Fatal("nothing should be laid out before the pixels arrive")
	}
	if f.sync.CurrentImage() != img {
		t.Error("pending image should be current")
	}
	f.sync.ImageLoaded(img, solidImage(10, 10))
	if !f.sync.Displayed() || len(f.canvas.Items()) != 2 {
		t.Error("load completion should lay out the image")
	}
}

func TestSceneSyncDeferredFromProvider(t *testing.T) {
	f := newSyncFixture(t)
	img := f.image(t, 0)
	f.sync.ShowImage(img)
	f.pixels[img] = solidImage(10, 10)
	f.sync.ImageLoaded(img, nil)
	if !f.sync.Displayed() {
		t.Error("nil pixels should be fetched from the provider")
	}
}

func TestSceneSyncStaleLoad(t *testing.T) {
	f := newSyncFixture(t)
	a, b := f.image(t, 0), f.image(t, 1)
	f.sync.ShowImage(a)
	f.sync.ShowImage(b)
	f.sync.ImageLoaded(a, solidImage(10, 10))
	if f.sync.Displayed() || f.canvas.Background() != nil {
		t.Fatal("stale completion should be discarded")
	}
	if !a.Loaded() {
		t.Error("stale completion should still mark the image loaded")
	}
	f.sync.ImageLoaded(b, solidImage(10, 10))
	if !f.sync.Displayed() || f.canvas.Background().Node() != b {
		t.Error("matching completion should display")
	}
	f.sync.ImageLoaded(b, solidImage(20, 20))
	if f.canvas.Background().Bounds().Width != 10 {
		t.Error("a second completion for a displayed image should be ignored")
	}
}

func TestSceneSyncRejectsForeignNodes(t *testing.T) {
	f := newSyncFixture(t)
	f.sync.ShowImage(mustNode(t, f.tree, 0, 0))
	if f.sync.CurrentImage() != nil {
		t.Error("annotation nodes cannot be shown")
	}
	other := loadSample(t)
	f.sync.ShowImage(mustNode(t, other, 0))
	if f.sync.CurrentImage() != nil {
		t.Error("images of another tree cannot be shown")
	}
}

func TestSceneSyncInsert(t *testing.T) {
	f := newSyncFixture(t)
	img := f.show(t, 0)

	n, _ := f.tree.AddAnnotation(img, Record{"class": StringValue("MOS"), "xn": StringValue("1;2;2"), "yn": StringValue("1;1;2")})
	if f.sync.ItemFor(n) == nil || len(f.canvas.Items()) != 3 {
		t.Error("inserted annotation should get an item")
	}
	_, _ = f.tree.AddAnnotation(f.image(t, 1), Record{"class": StringValue("TZ")})
	_, _ = f.tree.AddAnnotation(img, Record{"class": StringValue("unknown")})
	_, _ = f.tree.AddAnnotation(img, Record{"note": StringValue("no class")})
	if len(f.canvas.Items()) != 3 {
		t.Errorf("items = %d, want 3", len(f.canvas.Items()))
	}
}

func TestSceneSyncInsertBeforeDisplay(t *testing.T) {
	f := newSyncFixture(t)
	img := f.image(t, 0)
	f.sync.ShowImage(img)
	_, _ = f.tree.AddAnnotation(img, Record{"class": StringValue("TZ"), "xn": StringValue(""), "yn": StringValue("")})
	if len(f.canvas.Items()) != 0 {
		t.Fatal("no items before layout")
	}
	f.sync.ImageLoaded(img, solidImage(5, 5))
	if len(f.canvas.Items()) != 3 {
		t.Errorf("items after layout = %d, want 3: two loaded annotations plus the one added while pending", len(f.canvas.Items()))
	}
}

func TestSceneSyncRemove(t *testing.T) {
	f := newSyncFixture(t)
	img := f.show(t, 0)
	first := mustNode(t, f.tree, 0, 0)
	if err := f.tree.Remove(first.Path()); err != nil {
		t.Fatal(err)
	}
	if f.sync.ItemFor(first) != nil || len(f.canvas.Items()) != 1 {
		t.Error("removed annotation should lose its item")
	}

	if err := f.tree.Remove(img.Path()); err != nil {
		t.Fatal(err)
	}
	if f.sync.CurrentImage() != nil || f.sync.Displayed() || f.canvas.Background() != nil || len(f.canvas.Items()) != 0 {
		t.Error("removing the shown image should clear the scene")
	}
}

func TestSceneSyncRefresh(t *testing.T) {
	f := newSyncFixture(t)
	f.show(t, 0)
	n := mustNode(t, f.tree, 0, 0)
	rec := Record{}
	rec.SetPoints("", square(5, 5, 50))
	if err := f.tree.Update(n.Path(), rec); err != nil {
		t.Fatal(err)
	}
	if got := f.sync.ItemFor(n).Bounds(); got != (Rect{X: 5, Y: 5, Width: 50, Height: 50}) {
		t.Errorf("Bounds after update = %v", got)
	}
}

func TestSceneSyncReset(t *testing.T) {
	f := newSyncFixture(t)
	f.show(t, 0)
	f.tree.Reset()
	if f.sync.CurrentImage() != nil || len(f.canvas.Items()) != 0 {
		t.Error("Reset should clear the scene")
	}
}

func TestSceneSyncCommitGeometry(t *testing.T) {
	f := newSyncFixture(t)
	f.show(t, 0)
	n := mustNode(t, f.tree, 0, 1)
	it := f.sync.ItemFor(n)
	if err := f.sync.CommitGeometry(it, square(0, 0, 3)); err != nil {
		t.Fatal(err)
	}
	assertPolygon(t, "committed", nodePolygon(t, n), square(0, 0, 3))
	if it.Bounds().Width != 3 {
		t.Error("item should refresh after the commit")
	}
	if err := f.sync.CommitGeometry(NewFPSItem(), square(0, 0, 3)); !errors.Is(err, ErrNotFound) {
		t.Errorf("CommitGeometry without node err = %v, want ErrNotFound", err)
	}
}

func TestSceneSyncSelection(t *testing.T) {
	f := newSyncFixture(t)
	f.show(t, 0)
	a, b := mustNode(t, f.tree, 0, 0), mustNode(t, f.tree, 0, 1)
	var reported [][]*Node
	f.sync.OnNodesSelected(func(nodes []*Node) { reported = append(reported, nodes) })

	f.canvas.Select(f.sync.ItemFor(a))
	if len(reported) != 1 || len(reported[0]) != 1 || reported[0][0] != a {
		t.Fatalf("reported = %v", reported)
	}

	f.sync.SelectNodes([]*Node{a, b})
	if len(reported) != 1 {
		t.Error("SelectNodes should not report back")
	}
	if got := f.sync.SelectedNodes(); len(got) != 2 {
		t.Errorf("SelectedNodes = %v", got)
	}

	if n := f.sync.DeleteSelected(); n != 2 {
		t.Errorf("DeleteSelected = %d, want 2", n)
	}
	if f.image(t, 0).NumChildren() != 0 || len(f.canvas.Items()) != 0 {
		t.Error("deleted nodes and items should be gone")
	}
	if f.sync.DeleteSelected() != 0 {
		t.Error("nothing left to delete")
	}
}

func TestSceneSyncSetTreeAndClose(t *testing.T) {
	f := newSyncFixture(t)
	f.show(t, 0)
	other := loadSample(t)
	f.sync.SetTree(other)
	if f.sync.Tree() != other || f.sync.CurrentImage() != nil {
		t.Error("SetTree should clear the display")
	}
	_, _ = f.tree.AddAnnotation(mustNode(t, f.tree, 0), Record{"class": StringValue("TZ")})
	if len(f.canvas.Items()) != 0 {
		t.Error("old tree events should not reach the canvas")
	}

	img := mustNode(t, other, 0)
	f.pixels[img] = solidImage(4, 4)
	f.sync.ShowImage(img)
	f.sync.Close()
	called := false
	f.sync.OnNodesSelected(func([]*Node) { called = true })
	f.canvas.Select(f.canvas.Items()...)
	if called || f.sync.CurrentImage() != nil {
		t.Error("closed sync should be detached")
	}
}

func TestSceneSyncAutoFit(t *testing.T) {
	cfg := quietConfig()
	cfg.AutoFit = true
	items := NewFactory[*Node, Item]()
	tr := loadSample(t)
	img := mustNode(t, tr, 0)
	c := NewCanvas(cfg)
	s := NewSceneSync(c, tr, items, pixelMap{img: solidImage(2048, 768)}, cfg)
	s.ShowImage(img)
	assertNear(t, "zoom", c.Camera().Zoom, 0.5)
	assertNear(t, "X", c.Camera().X, 1024)
}
