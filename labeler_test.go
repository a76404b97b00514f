package labeler

import (
	"image/color"
	"testing"
)

func TestRectContainsAndIntersects(t *testing.T) {
	r := Rect{X: 10, Y: 10, Width: 20, Height: 10}
	if !r.Contains(10, 10) || !r.Contains(30, 20) || r.Contains(31, 15) {
		t.Error("Contains should include edges only")
	}
	if !r.Intersects(Rect{X: 30, Y: 20, Width: 5, Height: 5}) {
		t.Error("touching rectangles intersect")
	}
	if r.Intersects(Rect{X: 31, Y: 0, Width: 5, Height: 5}) {
		t.Error("separate rectangles should not intersect")
	}
}

func TestRectUnion(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 5, Y: -5, Width: 20, Height: 5}
	want := Rect{X: 0, Y: -5, Width: 25, Height: 15}
	if got := a.Union(b); got != want {
		t.Errorf("Union = %v, want %v", got, want)
	}
	if got := a.Union(Rect{}); got != a {
		t.Errorf("Union with empty = %v, want %v", got, a)
	}
	if got := (Rect{}).Union(b); got != b {
		t.Errorf("empty Union = %v, want %v", got, b)
	}
	if c := a.Center(); c != (Vec2{5, 5}) {
		t.Errorf("Center = %v", c)
	}
}

func TestVec2(t *testing.T) {
	v := Vec2{3, -4}
	if got := v.Sub(Vec2{1, 1}); got != (Vec2{2, -5}) {
		t.Errorf("Sub = %v", got)
	}
	assertNear(t, "Manhattan", v.Manhattan(Vec2{0, 0}), 7)
}

func TestColorRGBA(t *testing.T) {
	tests := []struct {
		c    Color
		want color.RGBA
	}{
		{ColorWhite, color.RGBA{255, 255, 255, 255}},
		{Color{1, 0, 0, 0.5}, color.RGBA{128, 0, 0, 128}},
		{Color{2, -1, 0, 1}, color.RGBA{255, 0, 0, 255}},
		{RGB(0, 128, 255), color.RGBA{0, 128, 255, 255}},
	}
	for _, tt := range tests {
		if got := tt.c.RGBA(); got != tt.want {
			t.Errorf("%v.RGBA() = %v, want %v", tt.c, got, tt.want)
		}
	}
	if got := ColorWhite.WithAlpha(0.25); got.A != 0.25 || got.R != 1 {
		t.Errorf("WithAlpha = %v", got)
	}
}

func TestEnumStrings(t *testing.T) {
	if KindAnnotation.String() != "Annotation" || NodeKind(9).String() != "NodeKind(9)" {
		t.Error("NodeKind.String")
	}
	if ChangeReset.String() != "Reset" || ChangeKind(9).String() != "ChangeKind(9)" {
		t.Error("ChangeKind.String")
	}
}
