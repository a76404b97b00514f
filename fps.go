package labeler

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// FPSItem is canvas furniture showing the current FPS and TPS in the top
// left corner of the screen. The text is refreshed every RefreshFrames
// draws.
type FPSItem struct {
	RefreshFrames int

	img    *ebiten.Image
	frames int
}

// NewFPSItem returns an FPS readout refreshed about twice a second.
func NewFPSItem() *FPSItem {
	return &FPSItem{RefreshFrames: 30}
}

func (f *FPSItem) Node() *Node                { return nil }
func (f *FPSItem) Valid() bool                { return true }
func (f *FPSItem) Refresh()                   { f.frames = 0 }
func (f *FPSItem) Bounds() Rect               { return Rect{Width: 100, Height: 32} }
func (f *FPSItem) Contains(x, y float64) bool { return false }
func (f *FPSItem) Selected() bool             { return false }
func (f *FPSItem) SetSelected(bool)           {}

// Draw renders in screen space; view is ignored.
func (f *FPSItem) Draw(dst *ebiten.Image, _ Affine) {
	if f.img == nil {
		// 100x32 fits "FPS: 60.0\nTPS: 60.0".
		f.img = ebiten.NewImage(100, 32)
	}
	if f.frames%max(f.RefreshFrames, 1) == 0 {
		f.img.Clear()
		f.img.Fill(color.RGBA{0, 0, 0, 128})
		ebitenutil.DebugPrint(f.img, fmt.Sprintf("FPS: %.1f\nTPS: %.1f", ebiten.ActualFPS(), ebiten.ActualTPS()))
	}
	f.frames++
	dst.DrawImage(f.img, nil)
}
