package mullion

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LogConfig controls how the runtime's logger is built.
type LogConfig struct {
	// Level is a zerolog level name: "trace", "debug", "info", "warn",
	// "error", or "disabled". Unknown names fall back to "info".
	Level string `toml:"level"`
	// Format selects the output encoding: "console" for human-readable
	// output, anything else for JSON.
	Format string `toml:"format"`
}

// NewLogger builds a logger from cfg, writing to w. A nil w writes to
// stderr. The result is passed into NewCompositor; components derive their
// own sub-loggers from it, so there is no package-level logger.
func NewLogger(cfg LogConfig, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// componentLogger tags a sub-logger with the owning component's name.
func componentLogger(parent zerolog.Logger, name string) zerolog.Logger {
	return parent.With().Str("component", name).Logger()
}
