package labeler

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/hajimehoshi/ebiten/v2"
)

// Snapshot queues a capture of the next rendered frame. It is written to
// Config.SnapshotDir as a timestamped PNG named after label.
func (c *Canvas) Snapshot(label string) {
	c.snapshotQueue = append(c.snapshotQueue, label)
}

// PendingSnapshots returns the number of queued captures.
func (c *Canvas) PendingSnapshots() int { return len(c.snapshotQueue) }

func (c *Canvas) flushSnapshots(screen *ebiten.Image) {
	if len(c.snapshotQueue) == 0 {
		return
	}
	defer func() { c.snapshotQueue = c.snapshotQueue[:0] }()

	dir := c.cfg.SnapshotDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.logger.Error("labeler: snapshot", "dir", dir, "err", err)
		return
	}
	img := readFrame(screen)
	stamp := time.Now().Format("20060102_150405")
	for _, label := range c.snapshotQueue {
		path := filepath.Join(dir, c.snapshotName(stamp, label))
		if err := imaging.Save(img, path); err != nil {
			c.logger.Error("labeler: snapshot", "path", path, "err", err)
			continue
		}
		c.logger.Info("labeler: snapshot written", "path", path)
	}
}

// snapshotName numbers captures so that several taken within the same
// second never share a file.
func (c *Canvas) snapshotName(stamp, label string) string {
	c.snapshotSeq++
	return fmt.Sprintf("%s_%04d_%s.png", stamp, c.snapshotSeq, sanitizeLabel(label))
}

// readFrame copies screen into a straight-alpha image.
func readFrame(screen *ebiten.Image) *image.NRGBA {
	b := screen.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]byte, 4*w*h)
	screen.ReadPixels(pix)
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	unpremultiply(img.Pix, pix)
	return img
}

func unpremultiply(dst, src []byte) {
	for i := 0; i+3 < len(src); i += 4 {
		r, g, b, a := src[i], src[i+1], src[i+2], src[i+3]
		if a > 0 && a < 255 {
			r = uint8(min(int(r)*255/int(a), 255))
			g = uint8(min(int(g)*255/int(a), 255))
			b = uint8(min(int(b)*255/int(a), 255))
		}
		dst[i], dst[i+1], dst[i+2], dst[i+3] = r, g, b, a
	}
}

// sanitizeLabel keeps letters, digits, '-' and '.', replacing everything
// else with '_'.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, label)
}
