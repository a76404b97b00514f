package labeler

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/hajimehoshi/ebiten/v2"
)

// PixelSource is an ImageProvider whose completions are delivered on the
// editor's thread. Drain hands every completion since the last call to fn
// and returns how many there were.
type PixelSource interface {
	ImageProvider
	Drain(fn func(n *Node, px image.Image, err error)) int
}

// Editor is the tool controller. It owns the tree, the canvas and their
// synchronization, and switches between selection mode and insertion mode.
// In selection mode clicks pick items; in insertion mode all input goes to
// the active Inserter until it finishes.
type Editor struct {
	cfg    Config
	logger *slog.Logger

	tree      *Tree
	canvas    *Canvas
	sync      *SceneSync
	items     *ItemFactory
	inserters *InserterFactory
	labels    *LabelTable
	hotkeys   map[ebiten.Key]string
	images    ImageProvider

	inserter       Inserter
	insertClass    string
	inserterHandle [2]CallbackHandle

	imageChanged       callbacks[func(*Node)]
	insertionEnded     callbacks[func(class string)]
	annotationFinished callbacks[func(Record)]

	script *GestureScript
}

// NewEditor builds an editor for labels. A nil table uses DefaultLabelTable.
// images may be nil until SetImageSource is called.
func NewEditor(cfg Config, labels *LabelTable, images ImageProvider) (*Editor, error) {
	cfg.normalize()
	if labels == nil {
		labels = DefaultLabelTable()
	}
	e := &Editor{
		cfg:       cfg,
		logger:    cfg.logger(),
		tree:      NewTree(),
		canvas:    NewCanvas(cfg),
		items:     NewFactory[*Node, Item](),
		inserters: NewFactory[InserterContext, Inserter](),
		labels:    labels,
		images:    images,
	}
	if err := labels.Populate(e.items, e.inserters, cfg); err != nil {
		return nil, err
	}
	hk, err := labels.Hotkeys()
	if err != nil {
		return nil, err
	}
	e.hotkeys = hk
	e.sync = NewSceneSync(e.canvas, e.tree, e.items, images, cfg)
	e.canvas.SetHandler(e)
	return e, nil
}

func (e *Editor) Config() Config              { return e.cfg }
func (e *Editor) Tree() *Tree                 { return e.tree }
func (e *Editor) Canvas() *Canvas             { return e.canvas }
func (e *Editor) SceneSync() *SceneSync       { return e.sync }
func (e *Editor) Items() *ItemFactory         { return e.items }
func (e *Editor) Inserters() *InserterFactory { return e.inserters }
func (e *Editor) Labels() *LabelTable         { return e.labels }

// SetImageSource replaces the pixel provider. A PixelSource is drained every
// Update.
func (e *Editor) SetImageSource(p ImageProvider) {
	e.images = p
	e.sync.SetImageProvider(p)
}

// SetLogger replaces the logger of the editor and its canvas.
func (e *Editor) SetLogger(l *slog.Logger) {
	e.cfg.Logger = l
	e.logger = l
	e.canvas.logger = l
	e.sync.logger = l
}

// --- Annotations ---

// LoadRecords replaces all annotations with records and shows the first
// image. On failure the editor is left empty and the error returned.
func (e *Editor) LoadRecords(records []ImageRecord) error {
	e.EndInsertion()
	if err := e.tree.Load(records); err != nil {
		e.tree.Reset()
		e.fireImageChanged()
		return err
	}
	if !e.GotoIndex(0) {
		e.fireImageChanged()
	}
	return nil
}

// LoadJSON is LoadRecords for the JSON form.
func (e *Editor) LoadJSON(data []byte) error {
	e.EndInsertion()
	if err := e.tree.LoadJSON(data); err != nil {
		e.tree.Reset()
		e.fireImageChanged()
		return err
	}
	if !e.GotoIndex(0) {
		e.fireImageChanged()
	}
	return nil
}

// ClearAnnotations discards every image and annotation.
func (e *Editor) ClearAnnotations() {
	e.EndInsertion()
	e.tree.Reset()
	e.fireImageChanged()
}

// Annotations returns the external form of the tree.
func (e *Editor) Annotations() []ImageRecord { return e.tree.ToRecords() }

// Dirty reports unsaved changes.
func (e *Editor) Dirty() bool { return e.tree.Dirty() }

// MarkSaved clears the dirty flag after the caller persisted Annotations.
func (e *Editor) MarkSaved() { e.tree.SetDirty(false) }

// --- Navigation ---

// CurrentImage returns the displayed Image, or nil.
func (e *Editor) CurrentImage() *Node { return e.sync.CurrentImage() }

// SetCurrentImage displays the Image n belongs to. The active inserter, if
// any, discards its in-progress geometry.
func (e *Editor) SetCurrentImage(n *Node) {
	var img *Node
	if n != nil {
		img = n.Image()
	}
	if img == e.CurrentImage() {
		return
	}
	if e.inserter != nil {
		e.inserter.ImageChanged()
	}
	e.sync.ShowImage(img)
	e.fireImageChanged()
}

// GotoNext shows the next image and reports whether there was one.
func (e *Editor) GotoNext() bool { return e.step(1) }

// GotoPrevious shows the previous image and reports whether there was one.
func (e *Editor) GotoPrevious() bool { return e.step(-1) }

func (e *Editor) step(offset int) bool {
	cur := e.CurrentImage()
	if cur == nil {
		return e.GotoIndex(0)
	}
	next := e.tree.SiblingAt(cur, offset)
	if next == nil {
		return false
	}
	e.SetCurrentImage(next)
	return true
}

// GotoIndex shows the n-th image and reports whether it exists.
func (e *Editor) GotoIndex(n int) bool {
	img := e.tree.SiblingAtIndex(n)
	if img == nil {
		return false
	}
	e.SetCurrentImage(img)
	return true
}

// OnCurrentImageChanged registers fn to run with the new image, or nil,
// whenever the displayed image changes.
func (e *Editor) OnCurrentImageChanged(fn func(img *Node)) CallbackHandle {
	return e.imageChanged.add(fn)
}

func (e *Editor) fireImageChanged() {
	cur := e.CurrentImage()
	for _, fn := range e.imageChanged.snapshot() {
		fn(cur)
	}
}

// ImageLoaded forwards a load completion to the scene.
func (e *Editor) ImageLoaded(n *Node, px image.Image) {
	e.sync.ImageLoaded(n, px)
}

// --- Insertion mode ---

// StartInsertion enters insertion mode for class, aborting any running
// inserter first.
func (e *Editor) StartInsertion(class string) error {
	e.EndInsertion()
	defaults, err := e.labels.Defaults(class)
	if err != nil {
		return err
	}
	ctx := InserterContext{
		Canvas:   e.canvas,
		Images:   e,
		Defaults: defaults,
		Prefix:   e.cfg.Prefix,
		Commit:   true,
		Config:   e.cfg,
		Color:    e.labels.Color(class),
		Logger:   e.logger,
	}
	ins, ok := e.inserters.Create(class, ctx)
	if !ok || ins == nil {
		return fmt.Errorf("labeler: no inserter for class %q: %w", class, ErrNotFound)
	}
	e.canvas.ClearSelection()
	e.inserter = ins
	e.insertClass = class
	e.inserterHandle[0] = ins.OnFinished(func() { e.inserterFinished(ins) })
	e.inserterHandle[1] = ins.OnAnnotationFinished(func(rec Record) {
		for _, fn := range e.annotationFinished.snapshot() {
			fn(rec)
		}
	})
	e.logger.Debug("labeler: insertion started", "class", class)
	return nil
}

// EndInsertion aborts the active inserter, if any.
func (e *Editor) EndInsertion() {
	if e.inserter != nil {
		e.inserter.Abort()
	}
}

// InsertionActive reports whether an inserter is running.
func (e *Editor) InsertionActive() bool { return e.inserter != nil }

// InsertionClass returns the class being inserted, or "".
func (e *Editor) InsertionClass() string { return e.insertClass }

// Inserter returns the active inserter, or nil.
func (e *Editor) Inserter() Inserter { return e.inserter }

// OnInsertionEnded registers fn to run with the class whenever insertion
// mode ends, by completion or abort.
func (e *Editor) OnInsertionEnded(fn func(class string)) CallbackHandle {
	return e.insertionEnded.add(fn)
}

// OnAnnotationFinished registers fn to run with every Record an inserter
// produces.
func (e *Editor) OnAnnotationFinished(fn func(rec Record)) CallbackHandle {
	return e.annotationFinished.add(fn)
}

func (e *Editor) inserterFinished(ins Inserter) {
	if e.inserter != ins {
		return
	}
	class := e.insertClass
	e.inserterHandle[0].Remove()
	e.inserterHandle[1].Remove()
	e.inserter = nil
	e.insertClass = ""
	e.logger.Debug("labeler: insertion ended", "class", class)
	for _, fn := range e.insertionEnded.snapshot() {
		fn(class)
	}
}

// --- Input ---

// inScene reports whether ev lies on the displayed image.
func (e *Editor) inScene(ev PointerEvent) bool {
	bg := e.canvas.Background()
	return bg != nil && bg.Bounds().Contains(ev.X, ev.Y)
}

func (e *Editor) PointerDown(ev PointerEvent) {
	if ins := e.inserter; ins != nil {
		if ins.AllowOutOfScene() || e.inScene(ev) {
			ins.PointerDown(ev)
		}
		return
	}
	if ev.Button != MouseButtonLeft {
		return
	}
	var hit Item
	if items := e.canvas.ItemsAt(ev.X, ev.Y); len(items) > 0 {
		hit = items[0]
	}
	switch {
	case ev.Modifiers&ModShift != 0:
		if hit == nil {
			return
		}
		if hit.Selected() {
			e.canvas.Deselect(hit)
		} else {
			e.canvas.Select(hit)
		}
	case hit == nil:
		e.canvas.ClearSelection()
	default:
		e.canvas.SelectOnly(hit)
	}
}

func (e *Editor) PointerUp(ev PointerEvent) {
	if e.inserter != nil {
		e.inserter.PointerUp(ev)
	}
}

func (e *Editor) PointerMove(ev PointerEvent) {
	if e.inserter != nil {
		e.inserter.PointerMove(ev)
	}
}

func (e *Editor) PointerDoubleClick(ev PointerEvent) {
	if ins := e.inserter; ins != nil {
		if ins.AllowOutOfScene() || e.inScene(ev) {
			ins.PointerDoubleClick(ev)
		}
		return
	}
	// Without an inserter a double click is just another press.
	e.PointerDown(ev)
}

func (e *Editor) KeyPress(ev KeyEvent) {
	if e.inserter != nil {
		if ev.Key == ebiten.KeyEscape {
			e.EndInsertion()
			return
		}
		e.inserter.KeyPress(ev)
		return
	}
	switch ev.Key {
	case ebiten.KeyDelete, ebiten.KeyBackspace:
		if n := e.sync.DeleteSelected(); n > 0 {
			e.logger.Debug("labeler: deleted", "count", n)
		}
	case ebiten.KeyEscape:
		e.canvas.ClearSelection()
	case ebiten.KeyArrowRight, ebiten.KeyPageDown:
		e.GotoNext()
	case ebiten.KeyArrowLeft, ebiten.KeyPageUp:
		e.GotoPrevious()
	case ebiten.KeyTab:
		if ev.Modifiers&ModShift != 0 {
			e.GotoPrevious()
		} else {
			e.GotoNext()
		}
	case ebiten.KeyA:
		if ev.Modifiers&ModCtrl != 0 {
			e.canvas.SelectOnly(e.canvas.Items()...)
			return
		}
		e.hotkey(ev.Key)
	case ebiten.KeyF:
		e.canvas.FitToImage()
	case ebiten.KeyEqual, ebiten.KeyNumpadAdd:
		e.canvas.ZoomBy(e.cfg.WheelBase)
	case ebiten.KeyMinus, ebiten.KeyNumpadSubtract:
		e.canvas.ZoomBy(1 / e.cfg.WheelBase)
	default:
		e.hotkey(ev.Key)
	}
}

func (e *Editor) hotkey(k ebiten.Key) {
	class, ok := e.hotkeys[k]
	if !ok {
		return
	}
	if err := e.StartInsertion(class); err != nil {
		e.logger.Warn("labeler: hotkey", "key", k.String(), "class", class, "err", err)
	}
}

// --- Frame ---

// Update runs one frame: the gesture script step, pending image loads, then
// canvas input.
func (e *Editor) Update() error {
	if e.script != nil {
		e.script.step(e)
	}
	if src, ok := e.images.(PixelSource); ok {
		src.Drain(func(n *Node, px image.Image, err error) {
			if err != nil {
				e.logger.Warn("labeler: image load failed", "image", n.String(), "err", err)
				return
			}
			e.ImageLoaded(n, px)
		})
	}
	e.canvas.Update()
	return nil
}

// Draw renders the canvas.
func (e *Editor) Draw(screen *ebiten.Image) {
	e.canvas.Draw(screen)
}
