package labeler

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func assertNear(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > epsilon {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func assertMatrix(t *testing.T, name string, got, want Affine) {
	t.Helper()
	for i := range got {
		if math.Abs(got[i]-want[i]) > epsilon {
			t.Errorf("%s[%d] = %v, want %v (full: %v vs %v)", name, i, got[i], want[i], got, want)
		}
	}
}

func TestAffineMulOrder(t *testing.T) {
	// Scale first, then translate.
	m := Translate(10, 20).Mul(Scale(2))
	x, y := m.Apply(3, 4)
	assertNear(t, "x", x, 16)
	assertNear(t, "y", y, 28)
}

func TestAffineInvertRoundTrip(t *testing.T) {
	m := Translate(-5, 7).Mul(Scale(3))
	assertMatrix(t, "m*inv", m.Mul(m.Invert()), Identity)

	x, y := m.Invert().Apply(m.Apply(12.5, -3))
	assertNear(t, "x", x, 12.5)
	assertNear(t, "y", y, -3)
}

func TestAffineInvertSingular(t *testing.T) {
	assertMatrix(t, "singular", Scale(0).Invert(), Identity)
}

func TestAffineScaleFactor(t *testing.T) {
	assertNear(t, "scale", Translate(100, 100).Mul(Scale(2.5)).ScaleFactor(), 2.5)
}

func TestAffineGeoM(t *testing.T) {
	m := Translate(4, 5).Mul(Scale(2))
	g := m.GeoM()
	x, y := g.Apply(1, 1)
	assertNear(t, "x", x, 6)
	assertNear(t, "y", y, 7)
}
