package labeler

import "github.com/hajimehoshi/ebiten/v2"

type syntheticKind uint8

const (
	syntheticPointer syntheticKind = iota
	syntheticKey
	syntheticWheel
)

// syntheticEvent is one queued input event. Pointer and wheel events carry
// screen coordinates and go through the same camera conversion as real
// input.
type syntheticEvent struct {
	kind             syntheticKind
	screenX, screenY float64
	pressed          bool
	button           MouseButton
	key              ebiten.Key
	dy               float64
	mods             KeyModifiers
}

// InjectPress queues a left-button press at screen (x, y). Each queued event
// is consumed by one Update.
func (c *Canvas) InjectPress(x, y float64) {
	c.InjectButton(x, y, true, MouseButtonLeft, 0)
}

// InjectMove queues a move to screen (x, y) with the left button held.
func (c *Canvas) InjectMove(x, y float64) {
	c.InjectButton(x, y, true, MouseButtonLeft, 0)
}

// InjectHover queues a move to screen (x, y) with no button held.
func (c *Canvas) InjectHover(x, y float64) {
	c.InjectButton(x, y, false, c.pointer.button, 0)
}

// InjectRelease queues a release at screen (x, y).
func (c *Canvas) InjectRelease(x, y float64) {
	c.InjectButton(x, y, false, MouseButtonLeft, 0)
}

// InjectButton queues a raw pointer sample: position, button state, button
// and modifiers.
func (c *Canvas) InjectButton(x, y float64, pressed bool, button MouseButton, mods KeyModifiers) {
	c.injectQueue = append(c.injectQueue, syntheticEvent{
		kind:    syntheticPointer,
		screenX: x, screenY: y,
		pressed: pressed,
		button:  button,
		mods:    mods,
	})
}

// InjectClick queues a press and a release at the same point.
func (c *Canvas) InjectClick(x, y float64) {
	c.InjectPress(x, y)
	c.InjectRelease(x, y)
}

// InjectDoubleClick queues two clicks at the same point. The second press is
// reported as a double click.
func (c *Canvas) InjectDoubleClick(x, y float64) {
	c.InjectClick(x, y)
	c.InjectClick(x, y)
}

// InjectDrag queues a press at (fromX, fromY), frames-2 evenly spaced moves
// and a release at (toX, toY). frames is at least 2.
func (c *Canvas) InjectDrag(fromX, fromY, toX, toY float64, frames int) {
	if frames < 2 {
		frames = 2
	}
	c.InjectPress(fromX, fromY)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		c.InjectMove(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	c.InjectRelease(toX, toY)
}

// InjectKey queues a key press.
func (c *Canvas) InjectKey(k ebiten.Key, mods KeyModifiers) {
	c.injectQueue = append(c.injectQueue, syntheticEvent{kind: syntheticKey, key: k, mods: mods})
}

// InjectWheel queues a wheel step of dy at screen (x, y).
func (c *Canvas) InjectWheel(x, y, dy float64) {
	c.injectQueue = append(c.injectQueue, syntheticEvent{kind: syntheticWheel, screenX: x, screenY: y, dy: dy})
}

// Pending returns the number of queued synthetic events.
func (c *Canvas) Pending() int { return len(c.injectQueue) }

// processInjectedInput consumes one queued event. It reports whether one was
// consumed, in which case real input is skipped for the frame.
func (c *Canvas) processInjectedInput() bool {
	if len(c.injectQueue) == 0 {
		return false
	}
	ev := c.injectQueue[0]
	copy(c.injectQueue, c.injectQueue[1:])
	c.injectQueue = c.injectQueue[:len(c.injectQueue)-1]

	switch ev.kind {
	case syntheticKey:
		c.dispatchKey(KeyEvent{Key: ev.key, Modifiers: ev.mods})
	case syntheticWheel:
		c.wheel(ev.screenX, ev.screenY, ev.dy)
	default:
		c.processPointer(ev.screenX, ev.screenY, ev.pressed, ev.button, ev.mods)
	}
	return true
}
