package labeler

import "time"

// debugStats holds per-frame draw metrics. Only collected when Config.Debug
// is set.
type debugStats struct {
	items    int
	overlays int
	invalid  int
	elapsed  time.Duration
}

func (c *Canvas) debugLog(stats debugStats) {
	if !c.cfg.Debug {
		return
	}
	c.logger.Debug("labeler: draw",
		"items", stats.items, "overlays", stats.overlays,
		"invalid", stats.invalid, "elapsed", stats.elapsed)
	if stats.items > debugMaxItems {
		c.logger.Warn("labeler: many items on canvas", "items", stats.items, "threshold", debugMaxItems)
	}
}

// debugMaxItems is the item count above which a frame logs a warning.
const debugMaxItems = 1000
