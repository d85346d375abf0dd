package termimage

import (
	"context"
	"sync"

	"github.com/blacktop/termimage/pkg/tty"
)

// Fallback window size when the terminal does not report one
const (
	FallbackCols = 80
	FallbackRows = 24
)

// Terminal binds the I/O gate and the capability detector for one terminal.
// All output and queries for that terminal must go through it.
type Terminal struct {
	gate     *tty.Gate
	detector *Detector
	cfg      Config
}

// NewTerminal wraps dev
func NewTerminal(dev tty.Device, cfg Config) *Terminal {
	cfg = cfg.withDefaults()
	gate := tty.New(dev)
	return &Terminal{
		gate:     gate,
		detector: NewDetector(gate, cfg),
		cfg:      cfg,
	}
}

// OpenTerminal opens the controlling terminal
func OpenTerminal(cfg Config) (*Terminal, error) {
	dev, err := tty.Open()
	if err != nil {
		return nil, WrapTerminalIO(err)
	}
	return NewTerminal(dev, cfg), nil
}

var (
	defaultTerminal     *Terminal
	defaultTerminalOnce sync.Once
)

// DefaultTerminal is the process-wide terminal configured from the
// environment, opened on first use
func DefaultTerminal() *Terminal {
	defaultTerminalOnce.Do(func() {
		cfg := ConfigFromEnv()
		t, err := OpenTerminal(cfg)
		if err != nil {
			logf().WithError(err).Warn("falling back to a detached terminal")
			t = &Terminal{detector: NewDetector(nil, cfg), cfg: cfg.withDefaults()}
		}
		defaultTerminal = t
	})
	return defaultTerminal
}

// Gate returns the terminal's I/O gate
func (t *Terminal) Gate() *tty.Gate { return t.gate }

// Detector returns the terminal's capability detector
func (t *Terminal) Detector() *Detector { return t.detector }

// Config returns the terminal's configuration
func (t *Terminal) Config() Config { return t.cfg }

// Capabilities detects (once) and returns the terminal's capabilities
func (t *Terminal) Capabilities(ctx context.Context) Capabilities {
	return t.detector.Detect(ctx)
}

// Style resolves Auto to a concrete style
func (t *Terminal) Style(ctx context.Context, s Style) Style {
	if s == Auto {
		s = t.cfg.DefaultStyle
	}
	if s == Auto {
		s = SelectStyle(t.Capabilities(ctx))
	}
	return s
}

// Bounds returns the window size in cells, or 80x24 when unknown
func (t *Terminal) Bounds() Bounds {
	if t.gate != nil {
		if ws, err := t.gate.Size(); err == nil && ws.Cols > 0 && ws.Rows > 0 {
			return Bounds{Cols: ws.Cols, Rows: ws.Rows}
		}
	}
	return Bounds{Cols: FallbackCols, Rows: FallbackRows}
}

// IsTerminal reports whether output goes to an interactive terminal
func (t *Terminal) IsTerminal() bool {
	return t.gate != nil && t.gate.IsTerminal()
}

// WriteString writes s atomically with respect to other writers
func (t *Terminal) WriteString(s string) error {
	if t.gate == nil {
		return WrapTerminalIO(tty.ErrTerminalIO)
	}
	_, err := t.gate.WriteString(s)
	return err
}

// Close releases the underlying device
func (t *Terminal) Close() error {
	if t.gate == nil {
		return nil
	}
	return t.gate.Close()
}
