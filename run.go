package labeler

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
)

// RunConfig configures the window opened by Run.
type RunConfig struct {
	Title string
	// Width and Height of the window. Zero uses the editor's viewport size.
	Width, Height int
	Resizable     bool
	ShowFPS       bool
}

type game struct {
	editor *Editor
}

func (g *game) Update() error             { return g.editor.Update() }
func (g *game) Draw(screen *ebiten.Image) { g.editor.Draw(screen) }

func (g *game) Layout(w, h int) (int, int) {
	g.editor.canvas.camera.SetViewport(Rect{Width: float64(w), Height: float64(h)})
	return w, h
}

// Run opens a window and drives e until the window is closed. For custom
// game loops call Editor.Update and Editor.Draw from your own ebiten.Game.
func Run(e *Editor, cfg RunConfig) error {
	w, h := cfg.Width, cfg.Height
	if w <= 0 {
		w = e.cfg.ViewportWidth
	}
	if h <= 0 {
		h = e.cfg.ViewportHeight
	}
	if cfg.Title == "" {
		cfg.Title = "labeler"
	}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(w, h)
	if cfg.Resizable {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	}
	if cfg.ShowFPS {
		e.canvas.AddFurniture(NewFPSItem())
	}
	if err := ebiten.RunGame(&game{editor: e}); err != nil {
		return fmt.Errorf("labeler: run: %w", err)
	}
	return nil
}
