package labeler

import (
	"bytes"
	"fmt"
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	whiteOnce sync.Once
	whiteSub  *ebiten.Image
)

// solidSource returns the interior pixel of a 3x3 white image so triangle
// sampling never bleeds past the edge.
func solidSource() *ebiten.Image {
	whiteOnce.Do(func() {
		img := ebiten.NewImage(3, 3)
		img.Fill(ColorWhite.RGBA())
		whiteSub = img.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
	})
	return whiteSub
}

func pathFrom(pts []Vec2, closed bool) *vector.Path {
	var p vector.Path
	for i, v := range pts {
		if i == 0 {
			p.MoveTo(float32(v.X), float32(v.Y))
		} else {
			p.LineTo(float32(v.X), float32(v.Y))
		}
	}
	if closed {
		p.Close()
	}
	return &p
}

func drawVertices(dst *ebiten.Image, vs []ebiten.Vertex, is []uint16, c Color, rule ebiten.FillRule) {
	for i := range vs {
		vs[i].SrcX = 1
		vs[i].SrcY = 1
		vs[i].ColorR = float32(c.R * c.A)
		vs[i].ColorG = float32(c.G * c.A)
		vs[i].ColorB = float32(c.B * c.A)
		vs[i].ColorA = float32(c.A)
	}
	op := &ebiten.DrawTrianglesOptions{FillRule: rule, AntiAlias: true}
	dst.DrawTriangles(vs, is, solidSource(), op)
}

// fillPolygon fills a screen-space ring with the even-odd rule, which keeps
// bridged holes empty.
func fillPolygon(dst *ebiten.Image, pts []Vec2, c Color) {
	if len(pts) < 3 || c.A <= 0 {
		return
	}
	vs, is := pathFrom(pts, true).AppendVerticesAndIndicesForFilling(nil, nil)
	drawVertices(dst, vs, is, c, ebiten.FillRuleEvenOdd)
}

// strokePolyline outlines screen-space points, closing the ring when closed.
func strokePolyline(dst *ebiten.Image, pts []Vec2, closed bool, width float32, c Color) {
	if len(pts) < 2 || c.A <= 0 {
		return
	}
	op := &vector.StrokeOptions{Width: width, LineJoin: vector.LineJoinRound}
	vs, is := pathFrom(pts, closed).AppendVerticesAndIndicesForStroke(nil, nil, op)
	drawVertices(dst, vs, is, c, ebiten.FillRuleFillAll)
}

func strokeCircle(dst *ebiten.Image, center Vec2, r float64, width float32, c Color) {
	vector.StrokeCircle(dst, float32(center.X), float32(center.Y), float32(r), width, c.RGBA(), true)
}

// Font wraps an Ebitengine text/v2 face for item labels.
type Font struct {
	face *text.GoTextFace
	lh   float64
}

// LoadFont parses TrueType data at the given pixel size.
func LoadFont(ttf []byte, size float64) (*Font, error) {
	src, err := text.NewGoTextFaceSource(bytes.NewReader(ttf))
	if err != nil {
		return nil, fmt.Errorf("labeler: parse font: %w", err)
	}
	face := &text.GoTextFace{Source: src, Size: size}
	m := face.Metrics()
	return &Font{face: face, lh: m.HAscent + m.HDescent + m.HLineGap}, nil
}

var (
	defaultFontOnce sync.Once
	defaultFont     *Font
)

// DefaultFont returns Go Regular at 12px.
func DefaultFont() *Font {
	defaultFontOnce.Do(func() {
		f, err := LoadFont(goregular.TTF, 12)
		if err != nil {
			panic("labeler: embedded font: " + err.Error())
		}
		defaultFont = f
	})
	return defaultFont
}

// Measure returns the size of s rendered with f.
func (f *Font) Measure(s string) (w, h float64) {
	return text.Measure(s, f.face, f.lh)
}

// Draw renders s with its top-left corner at (x, y).
func (f *Font) Draw(dst *ebiten.Image, s string, x, y float64, c Color) {
	if s == "" {
		return
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.Scale(float32(c.R*c.A), float32(c.G*c.A), float32(c.B*c.A), float32(c.A))
	op.LineSpacing = f.lh
	text.Draw(dst, s, f.face, op)
}
