package labeler

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Camera maps image pixels to screen pixels: it centers on (X, Y) and scales
// by Zoom into Viewport.
type Camera struct {
	// X and Y are the image-space point shown at the viewport center.
	X, Y float64
	// Zoom is the scale factor, clamped to [MinZoom, MaxZoom].
	Zoom float64
	// Viewport is the screen-space rectangle the canvas renders into.
	Viewport Rect

	MinZoom, MaxZoom float64

	zoomTween  *gween.Tween
	zoomAnchor Vec2 // screen point kept fixed while the tween runs

	view, inv Affine
	dirty     bool
}

func newCamera(viewport Rect, minZoom, maxZoom float64) *Camera {
	return &Camera{
		Zoom:     1,
		Viewport: viewport,
		MinZoom:  minZoom,
		MaxZoom:  maxZoom,
		dirty:    true,
	}
}

func (c *Camera) clampZoom(z float64) float64 {
	return math.Max(c.MinZoom, math.Min(c.MaxZoom, z))
}

// View returns the image-to-screen transform:
// Translate(viewport center) * Scale(Zoom) * Translate(-X, -Y).
func (c *Camera) View() Affine {
	if c.dirty {
		cx := c.Viewport.X + c.Viewport.Width/2
		cy := c.Viewport.Y + c.Viewport.Height/2
		c.view = Translate(cx, cy).Mul(Scale(c.Zoom)).Mul(Translate(-c.X, -c.Y))
		c.inv = c.view.Invert()
		c.dirty = false
	}
	return c.view
}

// WorldToScreen converts image coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float64) (sx, sy float64) {
	return c.View().Apply(wx, wy)
}

// ScreenToWorld converts screen coordinates to image coordinates.
func (c *Camera) ScreenToWorld(sx, sy float64) (wx, wy float64) {
	c.View()
	return c.inv.Apply(sx, sy)
}

// SetViewport changes the screen rectangle the camera renders into.
func (c *Camera) SetViewport(r Rect) {
	if c.Viewport != r {
		c.Viewport = r
		c.dirty = true
	}
}

// CenterOn moves the camera so (x, y) is at the viewport center.
func (c *Camera) CenterOn(x, y float64) {
	c.X, c.Y = x, y
	c.dirty = true
}

// SetZoom sets the zoom immediately, clamped, and stops any animation.
func (c *Camera) SetZoom(z float64) {
	c.zoomTween = nil
	c.Zoom = c.clampZoom(z)
	c.dirty = true
}

// ZoomAt multiplies the zoom by factor while keeping the image point under
// the screen point (sx, sy) fixed.
func (c *Camera) ZoomAt(factor, sx, sy float64) {
	c.zoomTween = nil
	c.zoomAround(c.clampZoom(c.Zoom*factor), sx, sy)
}

// ZoomBy multiplies the zoom by factor around the viewport center.
func (c *Camera) ZoomBy(factor float64) {
	center := c.Viewport.Center()
	c.ZoomAt(factor, center.X, center.Y)
}

// ZoomTo animates the zoom to z over duration seconds around the viewport
// center. A non-positive duration zooms immediately.
func (c *Camera) ZoomTo(z float64, duration float32) {
	z = c.clampZoom(z)
	if duration <= 0 {
		c.SetZoom(z)
		return
	}
	c.zoomAnchor = c.Viewport.Center()
	c.zoomTween = gween.New(float32(c.Zoom), float32(z), duration, ease.OutQuad)
}

// Animating reports whether a zoom tween is running.
func (c *Camera) Animating() bool { return c.zoomTween != nil }

func (c *Camera) zoomAround(z, sx, sy float64) {
	wx, wy := c.ScreenToWorld(sx, sy)
	c.Zoom = z
	c.dirty = true
	nx, ny := c.ScreenToWorld(sx, sy)
	c.X += wx - nx
	c.Y += wy - ny
	c.dirty = true
}

// Pan moves the view by a screen-space delta.
func (c *Camera) Pan(dx, dy float64) {
	c.X -= dx / c.Zoom
	c.Y -= dy / c.Zoom
	c.dirty = true
}

// FitTo centers r and picks the largest zoom that shows all of it while
// preserving aspect ratio.
func (c *Camera) FitTo(r Rect) {
	if r.Empty() || c.Viewport.Empty() {
		return
	}
	c.zoomTween = nil
	z := math.Min(c.Viewport.Width/r.Width, c.Viewport.Height/r.Height)
	c.Zoom = c.clampZoom(z)
	center := r.Center()
	c.X, c.Y = center.X, center.Y
	c.dirty = true
}

// update advances the zoom tween. Called from Canvas.Update.
func (c *Camera) update(dt float32) {
	if c.zoomTween == nil {
		return
	}
	val, done := c.zoomTween.Update(dt)
	c.zoomAround(c.clampZoom(float64(val)), c.zoomAnchor.X, c.zoomAnchor.Y)
	if done {
		c.zoomTween = nil
	}
}
