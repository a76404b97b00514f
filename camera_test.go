package labeler

import "testing"

func testCamera() *Camera {
	return newCamera(Rect{Width: 800, Height: 600}, 0.1, 20)
}

func TestCameraDefaultView(t *testing.T) {
	c := testCamera()
	sx, sy := c.WorldToScreen(0, 0)
	assertNear(t, "sx", sx, 400)
	assertNear(t, "sy", sy, 300)
}

func TestCameraRoundTrip(t *testing.T) {
	c := testCamera()
	c.CenterOn(120, -40)
	c.SetZoom(3.5)
	sx, sy := c.WorldToScreen(17, 23)
	wx, wy := c.ScreenToWorld(sx, sy)
	assertNear(t, "wx", wx, 17)
	assertNear(t, "wy", wy, 23)
}

func TestCameraZoomClamp(t *testing.T) {
	c := testCamera()
	c.SetZoom(100)
	assertNear(t, "max", c.Zoom, 20)
	c.SetZoom(0.001)
	assertNear(t, "min", c.Zoom, 0.1)
}

func TestCameraZoomAtKeepsAnchor(t *testing.T) {
	c := testCamera()
	wx, wy := c.ScreenToWorld(100, 50)
	c.ZoomAt(2, 100, 50)
	gx, gy := c.ScreenToWorld(100, 50)
	assertNear(t, "zoom", c.Zoom, 2)
	assertNear(t, "x", gx, wx)
	assertNear(t, "y", gy, wy)
}

func TestCameraPan(t *testing.T) {
	c := testCamera()
	c.SetZoom(2)
	c.Pan(40, -20)
	assertNear(t, "X", c.X, -20)
	assertNear(t, "Y", c.Y, 10)
}

func TestCameraFitTo(t *testing.T) {
	c := testCamera()
	c.FitTo(Rect{X: 0, Y: 0, Width: 1600, Height: 600})
	assertNear(t, "zoom", c.Zoom, 0.5)
	assertNear(t, "X", c.X, 800)
	assertNear(t, "Y", c.Y, 300)

	c.FitTo(Rect{})
	assertNear(t, "zoom after empty", c.Zoom, 0.5)
}

func TestCameraZoomTween(t *testing.T) {
	c := testCamera()
	c.ZoomTo(4, 0.5)
	if !c.Animating() {
		t.Fatal("ZoomTo with a duration should animate")
	}
	for i := 0; i < 10 && c.Animating(); i++ {
		c.update(0.1)
	}
	if c.Animating() {
		t.Fatal("tween did not finish")
	}
	assertNear(t, "zoom", c.Zoom, 4)

	c.ZoomTo(1, 0)
	if c.Animating() {
		t.Error("zero duration should zoom immediately")
	}
	assertNear(t, "immediate zoom", c.Zoom, 1)
}

func TestCameraSetViewport(t *testing.T) {
	c := testCamera()
	c.SetViewport(Rect{Width: 200, Height: 100})
	sx, sy := c.WorldToScreen(0, 0)
	assertNear(t, "sx", sx, 100)
	assertNear(t, "sy", sy, 50)
}
