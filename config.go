package mullion

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config tunes the compositor runtime. Zero values are replaced by the
// corresponding DefaultConfig values during Validate, so a partially
// populated Config (e.g. from a TOML file) is safe to use.
type Config struct {
	// RefreshHz is the timer-fallback broadcast cadence used when the host
	// supplies no hardware tick source (default: 60).
	RefreshHz int `toml:"refresh_hz"`

	// MinRatio is the smallest ratio a bind-container slot may be dragged
	// to (default: 0.1).
	MinRatio float64 `toml:"min_ratio"`

	// DividerBandPx is the half-width-inclusive grab band around each
	// divider, wider than its visual thickness for forgiving grabs
	// (default: 8).
	DividerBandPx float64 `toml:"divider_band_px"`

	// DetachThresholdPx is how far a tab must be dragged before it
	// detaches into a floating chip (default: 24).
	DetachThresholdPx float64 `toml:"detach_threshold_px"`

	// TitleBandPx is the height of the drop-target band below a window's
	// top edge used by tab merging (default: 28).
	TitleBandPx float64 `toml:"title_band_px"`

	// ResizeDebounce is how long drawable reallocation is deferred while
	// interactive resizing is in flight (default: 120ms).
	ResizeDebounce time.Duration `toml:"resize_debounce"`

	// CacheBudgetBytes caps each window's compiled-draw-list and scratch
	// target cache (default: 64 MB).
	CacheBudgetBytes int64 `toml:"cache_budget_bytes"`

	// StopTimeout bounds the join when tearing down a render thread
	// (default: 2s).
	StopTimeout time.Duration `toml:"stop_timeout"`

	// Watchdog configures the memory watchdog.
	Watchdog WatchdogConfig `toml:"watchdog"`

	// Log configures the runtime logger built by NewLogger.
	Log LogConfig `toml:"log"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		RefreshHz:         60,
		MinRatio:          0.1,
		DividerBandPx:     8,
		DetachThresholdPx: 24,
		TitleBandPx:       28,
		ResizeDebounce:    120 * time.Millisecond,
		CacheBudgetBytes:  64 << 20,
		StopTimeout:       2 * time.Second,
		Watchdog:          DefaultWatchdogConfig(),
		Log:               LogConfig{Level: "info", Format: "console"},
	}
}

// LoadConfig reads a TOML file and overlays it on DefaultConfig. Fields the
// file omits keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate replaces zero values with defaults and rejects out-of-range
// settings.
func (c *Config) Validate() error {
	def := DefaultConfig()

	if c.RefreshHz <= 0 {
		c.RefreshHz = def.RefreshHz
	}
	if c.RefreshHz > 1000 {
		return fmt.Errorf("refresh_hz %d out of range (1..1000)", c.RefreshHz)
	}
	if c.MinRatio <= 0 {
		c.MinRatio = def.MinRatio
	}
	if c.MinRatio >= 0.5 {
		return fmt.Errorf("min_ratio %v out of range (0..0.5): two slots must fit", c.MinRatio)
	}
	if c.DividerBandPx <= 0 {
		c.DividerBandPx = def.DividerBandPx
	}
	if c.DetachThresholdPx <= 0 {
		c.DetachThresholdPx = def.DetachThresholdPx
	}
	if c.TitleBandPx <= 0 {
		c.TitleBandPx = def.TitleBandPx
	}
	if c.ResizeDebounce <= 0 {
		c.ResizeDebounce = def.ResizeDebounce
	}
	if c.CacheBudgetBytes <= 0 {
		c.CacheBudgetBytes = def.CacheBudgetBytes
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = def.StopTimeout
	}
	return c.Watchdog.validate()
}
