package termimage

import (
	"context"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/blacktop/termimage/pkg/csi"
	"github.com/blacktop/termimage/pkg/tty"
)

// Capabilities is what the terminal told us (or what we guessed) about
// its graphics support and cell geometry
type Capabilities struct {
	// CellWidth and CellHeight are the pixel size of one cell, 0 when unknown
	CellWidth  int
	CellHeight int
	// FontRatio is CellWidth/CellHeight, 0.5 when unknown
	FontRatio float64

	Kitty  bool
	ITerm2 bool
	Sixel  bool

	Tmux        bool
	Interactive bool

	TermName    string
	TermProgram string
}

// Detector probes the terminal once and caches the result until Reset.
// Concurrent first callers wait for the single probe instead of repeating it.
type Detector struct {
	gate *tty.Gate
	cfg  Config
	// passthrough turns on tmux passthrough ahead of the probe
	passthrough func() bool

	mu   sync.Mutex
	caps *Capabilities
}

// NewDetector probes through gate. A nil gate limits detection to the
// environment.
func NewDetector(gate *tty.Gate, cfg Config) *Detector {
	return &Detector{gate: gate, cfg: cfg.withDefaults(), passthrough: EnableTmuxPassthrough}
}

// Detect returns the cached capabilities, probing the terminal on first use.
// Unanswered probes mean "unsupported"; detection never fails.
func (d *Detector) Detect(ctx context.Context) Capabilities {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.caps != nil {
		return *d.caps
	}
	caps := d.detect(ctx)
	if ctx.Err() == nil {
		d.caps = &caps
	}
	return caps
}

// Cached returns the capabilities if detection already ran
func (d *Detector) Cached() (Capabilities, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.caps == nil {
		return Capabilities{}, false
	}
	return *d.caps, true
}

// Reset drops the cached result so the next Detect probes again
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.caps = nil
}

func (d *Detector) detect(ctx context.Context) Capabilities {
	caps := envCapabilities()
	caps.Tmux = caps.Tmux || d.cfg.ForceTmux

	if d.gate != nil {
		caps.Interactive = d.gate.IsTerminal()
	}

	if caps.Interactive {
		// tmux drops wrapped probes until the pane allows passthrough
		if caps.Tmux && d.passthrough != nil && !d.passthrough() {
			logf().Debug("tmux passthrough not enabled, probe may go unanswered")
		}
		reply, err := d.gate.Query(ctx, csi.Probe(caps.Tmux), csi.HasDA1, d.cfg.QueryTimeout)
		if err != nil {
			logf().WithError(err).Debug("capability probe incomplete")
		}
		applyProbeReply(&caps, reply)
	} else {
		logf().Debug("not a terminal, skipping capability probe")
	}

	if (caps.CellWidth == 0 || caps.CellHeight == 0) && d.gate != nil {
		if ws, err := d.gate.Size(); err == nil {
			caps.CellWidth, caps.CellHeight = ws.CellSize()
		}
	}

	switch {
	case d.cfg.FontRatio > 0:
		caps.FontRatio = d.cfg.FontRatio
	case caps.CellWidth > 0 && caps.CellHeight > 0:
		caps.FontRatio = float64(caps.CellWidth) / float64(caps.CellHeight)
	default:
		caps.FontRatio = DefaultFontRatio
	}

	logf().WithFields(logFields(caps)).Debug("terminal capabilities")
	return caps
}

// applyProbeReply merges whatever part of the combined probe got answered
func applyProbeReply(caps *Capabilities, reply []byte) {
	if len(reply) == 0 {
		return
	}
	if csi.ParseKittyOK(reply) {
		caps.Kitty = true
	}
	if w, h, ok := csi.ParseITermCellSize(reply); ok {
		caps.ITerm2 = true
		caps.CellWidth, caps.CellHeight = int(math.Round(w)), int(math.Round(h))
	}
	// XTWINOPS reports device pixels and wins over iTerm2's scaled points
	if w, h, ok := csi.ParseCellSize(reply); ok {
		caps.CellWidth, caps.CellHeight = w, h
	}
	if csi.SixelInDA1(reply) {
		caps.Sixel = true
	}
}

// envCapabilities guesses protocol support from well known variables
func envCapabilities() Capabilities {
	termName := os.Getenv("TERM")
	termProgram := os.Getenv("TERM_PROGRAM")
	lcTerminal := strings.ToLower(os.Getenv("LC_TERMINAL"))
	lowerTerm := strings.ToLower(termName)

	caps := Capabilities{
		TermName:    termName,
		TermProgram: termProgram,
		Tmux:        inTmux(),
	}

	switch {
	case os.Getenv("KITTY_WINDOW_ID") != "",
		strings.Contains(lowerTerm, "kitty"),
		termProgram == "ghostty",
		termProgram == "WezTerm",
		termProgram == "rio":
		caps.Kitty = true
	}

	switch {
	case termProgram == "iTerm.app",
		termProgram == "WezTerm",
		termProgram == "mintty",
		termProgram == "WarpTerminal",
		termProgram == "rio",
		termProgram == "vscode" && os.Getenv("TERM_PROGRAM_VERSION") != "",
		strings.Contains(lcTerminal, "iterm"),
		termName == "mintty":
		caps.ITerm2 = true
	}

	for _, s := range []string{"sixel", "foot", "mlterm", "yaft"} {
		if strings.Contains(lowerTerm, s) {
			caps.Sixel = true
		}
	}
	return caps
}

func logFields(c Capabilities) log.Fields {
	return log.Fields{
		"kitty":       c.Kitty,
		"iterm2":      c.ITerm2,
		"sixel":       c.Sixel,
		"cell":        [2]int{c.CellWidth, c.CellHeight},
		"font_ratio":  c.FontRatio,
		"tmux":        c.Tmux,
		"interactive": c.Interactive,
	}
}
