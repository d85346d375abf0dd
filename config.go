package termimage

import (
	"os"
	"strconv"
	"time"
)

// Environment variables read by ConfigFromEnv
const (
	EnvStyle        = "TERMIMAGE_STYLE"
	EnvQueryTimeout = "TERMIMAGE_QUERY_TIMEOUT"
	EnvFontRatio    = "TERMIMAGE_FONT_RATIO"
	EnvForceTmux    = "TERMIMAGE_TMUX"
)

// Defaults
const (
	DefaultQueryTimeout = 200 * time.Millisecond
	DefaultCacheLimit   = 64
	DefaultFontRatio    = 0.5
	DefaultCellWidth    = 8
	DefaultCellHeight   = 16
)

// Config holds process level knobs for a Terminal
type Config struct {
	// QueryTimeout bounds each capability probe
	QueryTimeout time.Duration
	// CacheLimit is the largest animation whose frames are cached across loops
	CacheLimit int
	// DefaultStyle is used by images left on Auto. Auto means detect.
	DefaultStyle Style
	// FontRatio overrides the detected cell width/height ratio when > 0
	FontRatio float64
	// ForceTmux wraps graphics sequences in tmux passthrough even outside $TMUX
	ForceTmux bool
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() Config {
	return Config{
		QueryTimeout: DefaultQueryTimeout,
		CacheLimit:   DefaultCacheLimit,
		DefaultStyle: Auto,
	}
}

// ConfigFromEnv returns DefaultConfig overridden by TERMIMAGE_* variables.
// Malformed values are ignored.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv(EnvStyle); v != "" {
		if s, err := ParseStyle(v); err == nil {
			cfg.DefaultStyle = s
		} else {
			logf().WithField("value", v).Debug("ignoring unknown " + EnvStyle)
		}
	}
	if v := os.Getenv(EnvQueryTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.QueryTimeout = d
		}
	}
	if v := os.Getenv(EnvFontRatio); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil && r > 0 {
			cfg.FontRatio = r
		}
	}
	if v := os.Getenv(EnvForceTmux); v != "" {
		cfg.ForceTmux, _ = strconv.ParseBool(v)
	}
	return cfg
}

func (c Config) withDefaults() Config {
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = DefaultQueryTimeout
	}
	if c.CacheLimit <= 0 {
		c.CacheLimit = DefaultCacheLimit
	}
	return c
}
