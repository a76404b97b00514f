package labeler

// HitShape is a hit-testing region in image-pixel coordinates.
type HitShape interface {
	Contains(x, y float64) bool
}

// HitRect is an axis-aligned rectangular hit area.
type HitRect struct {
	X, Y, Width, Height float64
}

// Contains reports whether (x, y) lies inside the rectangle.
func (r HitRect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// HitCircle is a circular hit area.
type HitCircle struct {
	CenterX, CenterY, Radius float64
}

// Contains reports whether (x, y) lies inside or on the circle.
func (c HitCircle) Contains(x, y float64) bool {
	dx := x - c.CenterX
	dy := y - c.CenterY
	return dx*dx+dy*dy <= c.Radius*c.Radius
}

// Center returns the circle's center point.
func (c HitCircle) Center() Vec2 {
	return Vec2{c.CenterX, c.CenterY}
}

// HitPolygon is a polygonal hit area of any shape, tested with the even-odd
// rule. Annotation outlines are rarely convex.
type HitPolygon struct {
	Points Polygon
}

// Contains reports whether (x, y) lies inside the polygon.
func (p HitPolygon) Contains(x, y float64) bool {
	return p.Points.ContainsPoint(x, y)
}
