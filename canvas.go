package labeler

import (
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// PointerEvent carries one pointer transition in image-pixel (X, Y) and
// screen (ScreenX, ScreenY) coordinates.
type PointerEvent struct {
	X, Y             float64
	ScreenX, ScreenY float64
	Button           MouseButton
	// Pressed reports whether a button is held during a move.
	Pressed   bool
	Modifiers KeyModifiers
}

// Pos returns the image-pixel position of the event.
func (e PointerEvent) Pos() Vec2 { return Vec2{e.X, e.Y} }

// KeyEvent carries one key press.
type KeyEvent struct {
	Key       ebiten.Key
	Modifiers KeyModifiers
}

// InputHandler consumes canvas input. The second press of a double click is
// reported as PointerDoubleClick instead of PointerDown.
type InputHandler interface {
	PointerDown(ev PointerEvent)
	PointerUp(ev PointerEvent)
	PointerMove(ev PointerEvent)
	PointerDoubleClick(ev PointerEvent)
	KeyPress(ev KeyEvent)
}

type pointerState struct {
	down     bool
	button   MouseButton
	lastX    float64 // screen
	lastY    float64
	panning  bool
	lastTick int64 // tick of the last press reported as PointerDown
	lastPos  Vec2  // screen position of that press
	lastBtn  MouseButton
	armed    bool // a following press may become a double click
}

// Canvas holds the graphical items of the displayed image and turns raw
// input into pointer and key events for a single InputHandler.
//
// Stacking order, lowest first: background, annotation items in insertion
// order, overlays, furniture.
type Canvas struct {
	cfg    Config
	logger *slog.Logger
	camera *Camera

	background *ImageItem
	items      []Item
	overlays   []Item
	furniture  []Item

	selectionChanged callbacks[func([]Item)]

	handler     InputHandler
	pointer     pointerState
	tick        int64
	injectQueue []syntheticEvent
	keyBuf      []ebiten.Key

	message       string
	snapshotQueue []string
	snapshotSeq   int
}

// NewCanvas creates an empty canvas.
func NewCanvas(cfg Config) *Canvas {
	cfg.normalize()
	vp := Rect{Width: float64(cfg.ViewportWidth), Height: float64(cfg.ViewportHeight)}
	return &Canvas{
		cfg:    cfg,
		logger: cfg.logger(),
		camera: newCamera(vp, cfg.MinZoom, cfg.MaxZoom),
	}
}

// Camera returns the canvas camera.
func (c *Canvas) Camera() *Camera { return c.camera }

// SetHandler routes all input to h. A nil handler discards input.
func (c *Canvas) SetHandler(h InputHandler) { c.handler = h }

// SetBackground pins it as the lowest item, replacing any previous one.
func (c *Canvas) SetBackground(it *ImageItem) {
	if c.background != nil && c.background != it {
		c.background.Dispose()
	}
	c.background = it
}

// Background returns the background item, or nil.
func (c *Canvas) Background() *ImageItem { return c.background }

// AddItem adds an annotation item on top of the existing ones.
func (c *Canvas) AddItem(it Item) {
	if it == nil {
		panic("labeler: AddItem with nil item")
	}
	c.items = append(c.items, it)
}

// AddOverlay adds an item drawn above every annotation item.
func (c *Canvas) AddOverlay(it Item) {
	if it == nil {
		panic("labeler: AddOverlay with nil item")
	}
	c.overlays = append(c.overlays, it)
}

// AddFurniture adds a persistent item that survives Clear.
func (c *Canvas) AddFurniture(it Item) {
	if it == nil {
		panic("labeler: AddFurniture with nil item")
	}
	c.furniture = append(c.furniture, it)
}

// RemoveItem removes it from whichever layer holds it, together with the
// items whose parent item it is. Removing a selected item updates the
// selection.
func (c *Canvas) RemoveItem(it Item) {
	if it == nil {
		return
	}
	if bg, ok := it.(*ImageItem); ok && bg == c.background {
		c.SetBackground(nil)
		return
	}
	wasSelected := it.Selected()
	owned := func(x Item) bool {
		if x == it {
			return true
		}
		p, ok := x.(parented)
		return ok && p.ParentItem() == it
	}
	for _, x := range c.items {
		if owned(x) && x.Selected() {
			wasSelected = true
			x.SetSelected(false)
		}
	}
	c.items = slices.DeleteFunc(c.items, owned)
	c.overlays = slices.DeleteFunc(c.overlays, owned)
	c.furniture = slices.DeleteFunc(c.furniture, owned)
	if wasSelected {
		it.SetSelected(false)
		c.fireSelectionChanged()
	}
}

// Items returns the annotation items in stacking order.
func (c *Canvas) Items() []Item { return slices.Clone(c.items) }

// Overlays returns the overlay items in stacking order.
func (c *Canvas) Overlays() []Item { return slices.Clone(c.overlays) }

// HasItem reports whether it is one of the annotation items.
func (c *Canvas) HasItem(it Item) bool { return slices.Contains(c.items, it) }

// ItemsAt returns the valid annotation items containing (x, y), topmost
// first.
func (c *Canvas) ItemsAt(x, y float64) []Item {
	var out []Item
	for i := len(c.items) - 1; i >= 0; i-- {
		it := c.items[i]
		if it.Valid() && it.Contains(x, y) {
			out = append(out, it)
		}
	}
	return out
}

// Clear removes the background, annotation items and overlays. Furniture
// stays.
func (c *Canvas) Clear() {
	hadSelection := len(c.SelectedItems()) > 0
	for _, it := range c.items {
		it.SetSelected(false)
	}
	c.SetBackground(nil)
	c.items = nil
	c.overlays = nil
	if hadSelection {
		c.fireSelectionChanged()
	}
}

// --- Selection ---

// Select adds items to the selection.
func (c *Canvas) Select(items ...Item) {
	changed := false
	for _, it := range items {
		if it != nil && !it.Selected() && c.HasItem(it) {
			it.SetSelected(true)
			changed = true
		}
	}
	if changed {
		c.fireSelectionChanged()
	}
}

// Deselect removes items from the selection.
func (c *Canvas) Deselect(items ...Item) {
	changed := false
	for _, it := range items {
		if it != nil && it.Selected() {
			it.SetSelected(false)
			changed = true
		}
	}
	if changed {
		c.fireSelectionChanged()
	}
}

// SelectOnly replaces the selection with items.
func (c *Canvas) SelectOnly(items ...Item) {
	changed := false
	for _, it := range c.items {
		want := slices.Contains(items, it)
		if it.Selected() != want {
			it.SetSelected(want)
			changed = true
		}
	}
	if changed {
		c.fireSelectionChanged()
	}
}

// ClearSelection deselects every item.
func (c *Canvas) ClearSelection() { c.SelectOnly() }

// SelectedItems returns the selected items in stacking order.
func (c *Canvas) SelectedItems() []Item {
	var out []Item
	for _, it := range c.items {
		if it.Selected() {
			out = append(out, it)
		}
	}
	return out
}

// OnSelectionChanged registers fn to run with the new selection whenever
// it changes.
func (c *Canvas) OnSelectionChanged(fn func(selected []Item)) CallbackHandle {
	return c.selectionChanged.add(fn)
}

func (c *Canvas) fireSelectionChanged() {
	sel := c.SelectedItems()
	for _, fn := range c.selectionChanged.snapshot() {
		fn(sel)
	}
}

// --- Camera helpers ---

// FitToImage fits the camera to the background, if any.
func (c *Canvas) FitToImage() {
	if c.background != nil {
		c.camera.FitTo(c.background.Bounds())
	}
}

// ZoomBy multiplies the camera zoom by factor, animated over the configured
// duration.
func (c *Canvas) ZoomBy(factor float64) {
	c.camera.ZoomTo(c.camera.Zoom*factor, float32(c.cfg.ZoomDuration))
}

// --- Status line ---

// SetMessage shows msg on the status line until cleared.
func (c *Canvas) SetMessage(msg string) { c.message = msg }

// ClearMessage hides the status line.
func (c *Canvas) ClearMessage() { c.message = "" }

// Message returns the status line text.
func (c *Canvas) Message() string { return c.message }

// --- Update ---

// Update advances the camera and processes one frame of input. Injected
// events take precedence: while any are queued, one is consumed per frame
// and real input is ignored.
func (c *Canvas) Update() {
	c.tick++
	c.camera.update(float32(1.0 / float64(ebiten.TPS())))
	if c.processInjectedInput() {
		return
	}
	mods := readModifiers()
	c.processMouse(mods)
	c.processWheel()
	c.processKeys(mods)
}

// readModifiers reads the current keyboard modifier state.
func readModifiers() KeyModifiers {
	var mods KeyModifiers
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		mods |= ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) {
		mods |= ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) {
		mods |= ModAlt
	}
	if ebiten.IsKeyPressed(ebiten.KeyMeta) {
		mods |= ModMeta
	}
	return mods
}

func (c *Canvas) processMouse(mods KeyModifiers) {
	mx, my := ebiten.CursorPosition()
	var pressed bool
	button := c.pointer.button
	left := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	right := ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)
	middle := ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle)
	if left || right || middle {
		pressed = true
		if !c.pointer.down {
			switch {
			case left:
				button = MouseButtonLeft
			case right:
				button = MouseButtonRight
			default:
				button = MouseButtonMiddle
			}
		}
	}
	c.processPointer(float64(mx), float64(my), pressed, button, mods)
}

func (c *Canvas) processWheel() {
	_, dy := ebiten.Wheel()
	if dy == 0 {
		return
	}
	mx, my := ebiten.CursorPosition()
	c.wheel(float64(mx), float64(my), dy)
}

// wheel zooms by WheelBase^(dy/2) around the cursor.
func (c *Canvas) wheel(sx, sy, dy float64) {
	c.camera.ZoomAt(math.Pow(c.cfg.WheelBase, dy/2), sx, sy)
}

func (c *Canvas) processKeys(mods KeyModifiers) {
	c.keyBuf = inpututil.AppendJustPressedKeys(c.keyBuf[:0])
	for _, k := range c.keyBuf {
		if isModifierKey(k) {
			continue
		}
		c.dispatchKey(KeyEvent{Key: k, Modifiers: mods})
	}
}

func isModifierKey(k ebiten.Key) bool {
	switch k {
	case ebiten.KeyShiftLeft, ebiten.KeyShiftRight,
		ebiten.KeyControlLeft, ebiten.KeyControlRight,
		ebiten.KeyAltLeft, ebiten.KeyAltRight,
		ebiten.KeyMetaLeft, ebiten.KeyMetaRight:
		return true
	}
	return false
}

// processPointer runs the pointer state machine. The middle button pans the
// camera and is never reported to the handler.
func (c *Canvas) processPointer(sx, sy float64, pressed bool, button MouseButton, mods KeyModifiers) {
	ps := &c.pointer
	wx, wy := c.camera.ScreenToWorld(sx, sy)
	ev := PointerEvent{X: wx, Y: wy, ScreenX: sx, ScreenY: sy, Button: button, Pressed: pressed, Modifiers: mods}
	moved := sx != ps.lastX || sy != ps.lastY

	switch {
	case pressed && !ps.down:
		ps.down = true
		ps.button = button
		ps.lastX, ps.lastY = sx, sy
		if button == MouseButtonMiddle {
			ps.panning = true
			return
		}
		screen := Vec2{sx, sy}
		if ps.armed && ps.lastBtn == button &&
			c.tick-ps.lastTick <= int64(c.cfg.DoubleClickTicks) &&
			math.Hypot(screen.X-ps.lastPos.X, screen.Y-ps.lastPos.Y) <= c.cfg.DragDeadZone {
			ps.armed = false
			c.dispatch(func(h InputHandler) { h.PointerDoubleClick(ev) })
			return
		}
		ps.armed = true
		ps.lastTick = c.tick
		ps.lastPos = screen
		ps.lastBtn = button
		c.dispatch(func(h InputHandler) { h.PointerDown(ev) })

	case !pressed && ps.down:
		ps.down = false
		ev.Button = ps.button
		if ps.panning {
			ps.panning = false
			ps.lastX, ps.lastY = sx, sy
			return
		}
		ps.lastX, ps.lastY = sx, sy
		c.dispatch(func(h InputHandler) { h.PointerUp(ev) })

	case pressed && ps.down:
		if !moved {
			return
		}
		ev.Button = ps.button
		if ps.panning {
			c.camera.Pan(sx-ps.lastX, sy-ps.lastY)
			ps.lastX, ps.lastY = sx, sy
			return
		}
		ps.lastX, ps.lastY = sx, sy
		c.dispatch(func(h InputHandler) { h.PointerMove(ev) })

	default:
		if !moved {
			return
		}
		ps.lastX, ps.lastY = sx, sy
		c.dispatch(func(h InputHandler) { h.PointerMove(ev) })
	}
}

func (c *Canvas) dispatch(fn func(InputHandler)) {
	if c.handler != nil {
		fn(c.handler)
	}
}

func (c *Canvas) dispatchKey(ev KeyEvent) {
	c.dispatch(func(h InputHandler) { h.KeyPress(ev) })
}

// --- Draw ---

// Draw renders every layer to screen through the camera, then the status
// line, then flushes queued snapshots.
func (c *Canvas) Draw(screen *ebiten.Image) {
	var t0 time.Time
	if c.cfg.Debug {
		t0 = time.Now()
	}
	view := c.camera.View()
	if c.background != nil {
		c.background.Draw(screen, view)
	}
	var stats debugStats
	for i, layer := range [][]Item{c.items, c.overlays, c.furniture} {
		for _, it := range layer {
			if !it.Valid() {
				stats.invalid++
				continue
			}
			it.Draw(screen, view)
			switch i {
			case 0:
				stats.items++
			case 1:
				stats.overlays++
			}
		}
	}
	if c.message != "" {
		h := screen.Bounds().Dy()
		ebitenutil.DebugPrintAt(screen, c.message, 4, h-16)
	}
	c.flushSnapshots(screen)
	if c.cfg.Debug {
		stats.elapsed = time.Since(t0)
		c.debugLog(stats)
	}
}
