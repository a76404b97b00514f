package labeler

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultHandleRadius     = 4.0
	defaultMoveThreshold    = 3.0
	defaultDoubleClickTicks = 18
	defaultDragDeadZone     = 4.0
	defaultMinZoom          = 0.1
	defaultMaxZoom          = 20.0
	defaultZoomDuration     = 0.15
	defaultWheelBase        = 1.41
	defaultOpacity          = 0.6
	defaultViewportWidth    = 1024
	defaultViewportHeight   = 768
	defaultSnapshotDir      = "snapshots"
)

// Config holds editor behavior and presentation settings. It may be loaded
// from a YAML file; unset or out-of-range fields are normalized by Validate.
type Config struct {
	// HandleRadius is the drawn radius of freehand endpoint handles in image
	// pixels. Their hit region is twice as large.
	HandleRadius float64 `yaml:"handle_radius"`
	// MoveThreshold is the manhattan distance a freehand stroke must travel
	// before the next vertex is recorded.
	MoveThreshold float64 `yaml:"move_threshold"`
	// DoubleClickTicks is the longest gap, in updates, between two presses
	// that still counts as a double click.
	DoubleClickTicks int `yaml:"double_click_ticks"`
	// DragDeadZone is the farthest, in screen pixels, the second press of a
	// double click may land from the first.
	DragDeadZone float64 `yaml:"drag_dead_zone"`

	MinZoom      float64 `yaml:"min_zoom"`
	MaxZoom      float64 `yaml:"max_zoom"`
	ZoomDuration float64 `yaml:"zoom_duration"`
	// WheelBase is raised to half the wheel delta to get the zoom factor.
	WheelBase float64 `yaml:"wheel_base"`

	// Opacity of polygon fills in [0, 1].
	Opacity      float64  `yaml:"opacity"`
	AutoTextKeys []string `yaml:"auto_text_keys"`
	// Prefix is prepended to the "xn"/"yn" coordinate keys.
	Prefix string `yaml:"prefix"`
	// AutoFit fits the camera to each image when it is shown.
	AutoFit bool `yaml:"auto_fit"`

	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`
	LabelsPath     string `yaml:"labels"`
	SnapshotDir    string `yaml:"snapshot_dir"`
	Debug          bool   `yaml:"debug"`

	// Logger receives warnings and debug output. Nil means slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() Config {
	return Config{
		HandleRadius:     defaultHandleRadius,
		MoveThreshold:    defaultMoveThreshold,
		DoubleClickTicks: defaultDoubleClickTicks,
		DragDeadZone:     defaultDragDeadZone,
		MinZoom:          defaultMinZoom,
		MaxZoom:          defaultMaxZoom,
		ZoomDuration:     defaultZoomDuration,
		WheelBase:        defaultWheelBase,
		Opacity:          defaultOpacity,
		AutoTextKeys:     []string{"class"},
		AutoFit:          true,
		ViewportWidth:    defaultViewportWidth,
		ViewportHeight:   defaultViewportHeight,
		SnapshotDir:      defaultSnapshotDir,
	}
}

// Validate replaces unset fields with their defaults and out-of-range
// fields with safe values. Zero means unset. The returned error lists every
// out-of-range field and wraps ErrBadValue; c is usable either way.
func (c *Config) Validate() error {
	var errs []error
	bad := func(field string, v any) {
		errs = append(errs, fmt.Errorf("labeler: config %s = %v: %w", field, v, ErrBadValue))
	}
	if c.HandleRadius < 0 {
		bad("handle_radius", c.HandleRadius)
	}
	if c.HandleRadius <= 0 {
		c.HandleRadius = defaultHandleRadius
	}
	if c.MoveThreshold < 0 {
		bad("move_threshold", c.MoveThreshold)
		c.MoveThreshold = defaultMoveThreshold
	}
	if c.DoubleClickTicks < 0 {
		bad("double_click_ticks", c.DoubleClickTicks)
	}
	if c.DoubleClickTicks <= 0 {
		c.DoubleClickTicks = defaultDoubleClickTicks
	}
	if c.DragDeadZone < 0 {
		bad("drag_dead_zone", c.DragDeadZone)
		c.DragDeadZone = defaultDragDeadZone
	}
	if c.MinZoom < 0 {
		bad("min_zoom", c.MinZoom)
	}
	if c.MinZoom <= 0 {
		c.MinZoom = defaultMinZoom
	}
	if c.MaxZoom < 0 || (c.MaxZoom > 0 && c.MaxZoom < c.MinZoom) {
		bad("max_zoom", c.MaxZoom)
	}
	if c.MaxZoom <= 0 || c.MaxZoom < c.MinZoom {
		c.MaxZoom = max(defaultMaxZoom, c.MinZoom)
	}
	if c.ZoomDuration < 0 {
		bad("zoom_duration", c.ZoomDuration)
		c.ZoomDuration = 0
	}
	if c.WheelBase != 0 && c.WheelBase <= 1 {
		bad("wheel_base", c.WheelBase)
	}
	if c.WheelBase <= 1 {
		c.WheelBase = defaultWheelBase
	}
	if c.Opacity < 0 || c.Opacity > 1 {
		bad("opacity", c.Opacity)
	}
	if c.Opacity <= 0 || c.Opacity > 1 {
		c.Opacity = defaultOpacity
	}
	if c.ViewportWidth < 0 || c.ViewportHeight < 0 {
		bad("viewport", fmt.Sprintf("%dx%d", c.ViewportWidth, c.ViewportHeight))
	}
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = defaultViewportWidth
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = defaultViewportHeight
	}
	if c.SnapshotDir == "" {
		c.SnapshotDir = defaultSnapshotDir
	}
	return errors.Join(errs...)
}

// normalize is Validate for constructors: adjustments are logged, not
// returned.
func (c *Config) normalize() {
	if err := c.Validate(); err != nil {
		c.logger().Warn("labeler: config adjusted", "err", err)
	}
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// ParseConfig decodes YAML over the defaults and validates the result. On a
// validation error the returned Config is still the normalized one.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("labeler: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML config file. A missing file yields DefaultConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return DefaultConfig(), fmt.Errorf("labeler: read config: %w", err)
	}
	return ParseConfig(data)
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("labeler: encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("labeler: write config: %w", err)
	}
	return nil
}
