package labeler

import (
	"math"
	"slices"

	polyclip "github.com/ctessum/polyclip-go"
)

// Polygon is a closed ring of vertices in image-pixel coordinates. The
// closing edge from the last vertex back to the first is implicit.
type Polygon []Vec2

// Clone returns a copy of p.
func (p Polygon) Clone() Polygon {
	return slices.Clone(p)
}

// Equal reports whether p and o have identical vertices in the same order.
func (p Polygon) Equal(o Polygon) bool {
	return slices.Equal(p, o)
}

// SignedArea returns the shoelace area of p. The sign depends on winding.
func (p Polygon) SignedArea() float64 {
	n := len(p)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return sum / 2
}

// Area returns the enclosed area of p.
func (p Polygon) Area() float64 {
	return math.Abs(p.SignedArea())
}

// BoundingBox returns the axis-aligned bounds of p. An empty polygon yields
// the zero Rect.
func (p Polygon) BoundingBox() Rect {
	if len(p) == 0 {
		return Rect{}
	}
	minX, minY := p[0].X, p[0].Y
	maxX, maxY := minX, minY
	for _, v := range p[1:] {
		minX = math.Min(minX, v.X)
		minY = math.Min(minY, v.Y)
		maxX = math.Max(maxX, v.X)
		maxY = math.Max(maxY, v.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// ContainsPoint reports whether (x, y) lies inside p using the even-odd rule.
func (p Polygon) ContainsPoint(x, y float64) bool {
	n := len(p)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := p[i], p[j]
		if (pi.Y > y) != (pj.Y > y) &&
			x < (pj.X-pi.X)*(y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
	}
	return inside
}

// Subtract returns a with the area of b removed. Every returned piece is a
// single ring; holes are joined to their enclosing ring by a zero-width
// bridge so the enclosed area of a piece equals its outer area minus its
// holes. Pieces are ordered by decreasing area. When b cannot overlap a the
// result is a copy of a. An empty result means b covered a entirely.
func Subtract(a, b Polygon) []Polygon {
	if len(a) < 3 || len(b) < 3 {
		return []Polygon{a.Clone()}
	}
	if !a.BoundingBox().Intersects(b.BoundingBox()) {
		return []Polygon{a.Clone()}
	}

	diff := toClip(a).Construct(polyclip.DIFFERENCE, toClip(b))

	var contours []Polygon
	for _, c := range diff {
		ring := fromContour(c)
		if len(ring) >= 3 && ring.Area() > areaEpsilon {
			contours = append(contours, ring)
		}
	}
	pieces := assembleRings(contours)
	slices.SortStableFunc(pieces, func(x, y Polygon) int {
		ax, ay := x.Area(), y.Area()
		switch {
		case ax > ay:
			return -1
		case ax < ay:
			return 1
		}
		return 0
	})
	return pieces
}

const areaEpsilon = 1e-9

// SameArea reports whether two areas are equal within a relative tolerance.
func SameArea(a, b float64) bool {
	return math.Abs(a-b) <= areaEpsilon*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// toClip converts p to clipper input. A ring carrying bridged holes is split
// back into its outer contour and one contour per hole.
func toClip(p Polygon) polyclip.Polygon {
	var out polyclip.Polygon
	for _, ring := range unbridge(p) {
		c := make(polyclip.Contour, len(ring))
		for i, v := range ring {
			c[i] = polyclip.Point{X: v.X, Y: v.Y}
		}
		out = append(out, c)
	}
	return out
}

// unbridge undoes bridge: wherever an edge a→b is later walked back as b→a,
// the ring is cut into the part outside the bridge and the part between its
// two crossings. Pieces are split again until no bridge is left. Pieces with
// fewer than 3 vertices are dropped.
func unbridge(p Polygon) []Polygon {
	n := len(p)
	if n < 6 {
		return []Polygon{p}
	}
	for i := 0; i < n-1; i++ {
		for j := i + 2; j < n; j++ {
			if p[i] != p[(j+1)%n] || p[i+1] != p[j] {
				continue
			}
			inner := p[i+1 : j].Clone()
			outer := make(Polygon, 0, n-len(inner)-2)
			outer = append(outer, p[j+1:]...)
			outer = append(outer, p[:i]...)
			var out []Polygon
			for _, piece := range [2]Polygon{outer, inner} {
				if len(piece) >= 3 {
					out = append(out, unbridge(piece)...)
				}
			}
			return out
		}
	}
	return []Polygon{p}
}

func fromContour(c polyclip.Contour) Polygon {
	out := make(Polygon, 0, len(c))
	for _, pt := range c {
		v := Vec2{pt.X, pt.Y}
		if len(out) > 0 && out[len(out)-1] == v {
			continue
		}
		out = append(out, v)
	}
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

// assembleRings classifies contours as outer rings or holes by containment
// depth parity and folds each hole into the smallest outer ring enclosing it.
func assembleRings(contours []Polygon) []Polygon {
	depth := make([]int, len(contours))
	for i, c := range contours {
		first := c[0]
		for j, o := range contours {
			if i != j && o.ContainsPoint(first.X, first.Y) {
				depth[i]++
			}
		}
	}

	var outers []int
	for i := range contours {
		if depth[i]%2 == 0 {
			outers = append(outers, i)
		}
	}
	holes := make(map[int][]Polygon, len(outers))
	for i, c := range contours {
		if depth[i]%2 == 0 {
			continue
		}
		owner := -1
		for _, o := range outers {
			if !contours[o].ContainsPoint(c[0].X, c[0].Y) {
				continue
			}
			if owner < 0 || contours[o].Area() < contours[owner].Area() {
				owner = o
			}
		}
		if owner >= 0 {
			holes[owner] = append(holes[owner], c)
		}
	}

	pieces := make([]Polygon, 0, len(outers))
	for _, o := range outers {
		ring := oriented(contours[o], true)
		for _, h := range holes[o] {
			ring = bridge(ring, oriented(h, false))
		}
		pieces = append(pieces, ring)
	}
	return pieces
}

// oriented returns p wound with positive signed area when positive is true,
// negative otherwise.
func oriented(p Polygon, positive bool) Polygon {
	out := p.Clone()
	if (out.SignedArea() > 0) != positive {
		slices.Reverse(out)
	}
	return out
}

// bridge splices hole into ring through the closest vertex pair. Ring and
// hole must have opposite winding.
func bridge(ring, hole Polygon) Polygon {
	bi, bj := 0, 0
	best := math.Inf(1)
	for i, r := range ring {
		for j, h := range hole {
			dx, dy := r.X-h.X, r.Y-h.Y
			if d := dx*dx + dy*dy; d < best {
				best, bi, bj = d, i, j
			}
		}
	}
	out := make(Polygon, 0, len(ring)+len(hole)+2)
	out = append(out, ring[:bi+1]...)
	out = append(out, hole[bj:]...)
	out = append(out, hole[:bj+1]...)
	out = append(out, ring[bi:]...)
	return out
}
