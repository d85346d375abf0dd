package termimage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/blacktop/termimage/pkg/tty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	kittyOKReply = "\x1b_Gi=31;OK\x1b\\"
	da1Plain     = "\x1b[?62;22c"
	da1Sixel     = "\x1b[?62;4;22c"
)

func TestDetectSilentTerminal(t *testing.T) {
	clearTermEnv(t)
	dev := newFakeTerm(true)
	d := NewDetector(tty.New(dev), DefaultConfig())

	start := time.Now()
	caps := d.Detect(context.Background())
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
	assert.Less(t, elapsed, 400*time.Millisecond)
	assert.True(t, caps.Interactive)
	assert.False(t, caps.Kitty)
	assert.False(t, caps.ITerm2)
	assert.False(t, caps.Sixel)
	assert.Zero(t, caps.CellWidth)
	assert.InDelta(t, DefaultFontRatio, caps.FontRatio, 1e-9)
	assert.Equal(t, Block, SelectStyle(caps))
}

func TestDetectReplies(t *testing.T) {
	tests := []struct {
		name      string
		replies   []string
		kitty     bool
		iterm     bool
		sixel     bool
		cellW     int
		cellH     int
		fontRatio float64
		wantStyle Style
	}{
		{
			name:      "kitty with xtwinops and sixel",
			replies:   []string{kittyOKReply + "\x1b[6;20;10t" + da1Sixel},
			kitty:     true,
			sixel:     true,
			cellW:     10,
			cellH:     20,
			fontRatio: 0.5,
			wantStyle: Kitty,
		},
		{
			name:      "iterm2 scaled cell size",
			replies:   []string{"\x1b]1337;ReportCellSize=17.0;8.0;2.0\x07" + da1Plain},
			iterm:     true,
			cellW:     16,
			cellH:     34,
			fontRatio: 16.0 / 34.0,
			wantStyle: ITerm2,
		},
		{
			name:      "sixel only",
			replies:   []string{da1Sixel},
			sixel:     true,
			fontRatio: DefaultFontRatio,
			wantStyle: Sixel,
		},
		{
			name:      "reply split over reads",
			replies:   []string{"\x1b_Gi=31;", "OK\x1b\\\x1b[6;16;", "8t\x1b[?1;2c"},
			kitty:     true,
			cellW:     8,
			cellH:     16,
			fontRatio: 0.5,
			wantStyle: Kitty,
		},
		{
			name:      "nothing supported",
			replies:   []string{da1Plain},
			fontRatio: DefaultFontRatio,
			wantStyle: Block,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTermEnv(t)
			dev := newFakeTerm(true, tt.replies...)
			d := NewDetector(tty.New(dev), DefaultConfig())

			start := time.Now()
			caps := d.Detect(context.Background())

			// DA1 ends the probe early
			assert.Less(t, time.Since(start), 150*time.Millisecond)
			assert.Equal(t, tt.kitty, caps.Kitty)
			assert.Equal(t, tt.iterm, caps.ITerm2)
			assert.Equal(t, tt.sixel, caps.Sixel)
			assert.Equal(t, tt.cellW, caps.CellWidth)
			assert.Equal(t, tt.cellH, caps.CellHeight)
			assert.InDelta(t, tt.fontRatio, caps.FontRatio, 1e-9)
			assert.Equal(t, tt.wantStyle, SelectStyle(caps))
		})
	}
}

func TestDetectProbesOnce(t *testing.T) {
	clearTermEnv(t)
	dev := newFakeTerm(true, kittyOKReply+da1Plain)
	d := NewDetector(tty.New(dev), DefaultConfig())

	var wg sync.WaitGroup
	results := make([]Capabilities, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = d.Detect(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, dev.probes())
	for _, caps := range results {
		assert.Equal(t, results[0], caps)
		assert.True(t, caps.Kitty)
	}

	cached, ok := d.Cached()
	require.True(t, ok)
	assert.Equal(t, results[0], cached)
}

func TestDetectReset(t *testing.T) {
	clearTermEnv(t)
	dev := newFakeTerm(true, kittyOKReply+da1Plain, da1Sixel)
	d := NewDetector(tty.New(dev), DefaultConfig())

	first := d.Detect(context.Background())
	assert.True(t, first.Kitty)
	assert.Equal(t, first, d.Detect(context.Background()))
	assert.Equal(t, 1, dev.probes())

	d.Reset()
	_, ok := d.Cached()
	assert.False(t, ok)

	second := d.Detect(context.Background())
	assert.Equal(t, 2, dev.probes())
	assert.False(t, second.Kitty)
	assert.True(t, second.Sixel)
}

func TestDetectNotInteractive(t *testing.T) {
	clearTermEnv(t)
	dev := newFakeTerm(false, kittyOKReply+da1Plain)
	d := NewDetector(tty.New(dev), DefaultConfig())

	start := time.Now()
	caps := d.Detect(context.Background())
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Zero(t, dev.probes())
	assert.False(t, caps.Interactive)
	assert.False(t, caps.Kitty)
	assert.Empty(t, dev.written())
}

func TestDetectWithoutGate(t *testing.T) {
	clearTermEnv(t)
	t.Setenv("TERM", "xterm-kitty")
	caps := NewDetector(nil, DefaultConfig()).Detect(context.Background())
	assert.True(t, caps.Kitty)
	assert.False(t, caps.Interactive)
	assert.InDelta(t, DefaultFontRatio, caps.FontRatio, 1e-9)
}

func TestDetectCellSizeFromWinsize(t *testing.T) {
	clearTermEnv(t)
	dev := newFakeTerm(false)
	dev.winsize = tty.Winsize{Cols: 100, Rows: 50, PixelWidth: 900, PixelHeight: 900}

	caps := NewDetector(tty.New(dev), DefaultConfig()).Detect(context.Background())
	assert.Equal(t, 9, caps.CellWidth)
	assert.Equal(t, 18, caps.CellHeight)
	assert.InDelta(t, 0.5, caps.FontRatio, 1e-9)
}

func TestDetectFontRatioOverride(t *testing.T) {
	clearTermEnv(t)
	dev := newFakeTerm(true, "\x1b[6;20;10t"+da1Plain)
	cfg := DefaultConfig()
	cfg.FontRatio = 0.42

	caps := NewDetector(tty.New(dev), cfg).Detect(context.Background())
	assert.Equal(t, 10, caps.CellWidth)
	assert.InDelta(t, 0.42, caps.FontRatio, 1e-9)
}

func TestDetectCancelledIsNotCached(t *testing.T) {
	clearTermEnv(t)
	dev := newFakeTerm(true)
	d := NewDetector(tty.New(dev), DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	caps := d.Detect(ctx)
	assert.False(t, caps.Kitty)

	_, ok := d.Cached()
	assert.False(t, ok)
}

func TestDetectForceTmux(t *testing.T) {
	clearTermEnv(t)
	dev := newFakeTerm(true, da1Plain)
	cfg := DefaultConfig()
	cfg.ForceTmux = true

	d := NewDetector(tty.New(dev), cfg)
	d.passthrough = func() bool { return true }
	caps := d.Detect(context.Background())
	assert.True(t, caps.Tmux)
	assert.Contains(t, dev.written(), "\x1bPtmux;\x1b\x1b_Gi=31")
	assert.Contains(t, dev.written(), "\x1b[c")
}

func TestDetectTmuxPassthroughBeforeQuery(t *testing.T) {
	clearTermEnv(t)
	dev := newFakeTerm(true, da1Plain)
	cfg := DefaultConfig()
	cfg.ForceTmux = true

	d := NewDetector(tty.New(dev), cfg)
	var calls, queriesBefore int
	d.passthrough = func() bool {
		calls++
		queriesBefore = dev.probes()
		return true
	}
	d.Detect(context.Background())

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, queriesBefore, "passthrough must be enabled before the terminal is queried")
	assert.Equal(t, 1, dev.probes())
}

func TestDetectNoPassthroughOutsideTmux(t *testing.T) {
	clearTermEnv(t)
	dev := newFakeTerm(true, da1Plain)

	d := NewDetector(tty.New(dev), DefaultConfig())
	called := false
	d.passthrough = func() bool {
		called = true
		return true
	}
	caps := d.Detect(context.Background())

	assert.False(t, caps.Tmux)
	assert.False(t, called)
}

func TestEnvCapabilities(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		kitty bool
		iterm bool
		sixel bool
		tmux  bool
	}{
		{name: "kitty TERM", env: map[string]string{"TERM": "xterm-kitty"}, kitty: true},
		{name: "kitty window id", env: map[string]string{"KITTY_WINDOW_ID": "1"}, kitty: true},
		{name: "ghostty", env: map[string]string{"TERM_PROGRAM": "ghostty"}, kitty: true},
		{name: "wezterm", env: map[string]string{"TERM_PROGRAM": "WezTerm"}, kitty: true, iterm: true},
		{name: "iterm2", env: map[string]string{"TERM_PROGRAM": "iTerm.app"}, iterm: true},
		{name: "iterm2 over ssh", env: map[string]string{"LC_TERMINAL": "iTerm2"}, iterm: true},
		{name: "vscode", env: map[string]string{"TERM_PROGRAM": "vscode", "TERM_PROGRAM_VERSION": "1.90"}, iterm: true},
		{name: "foot", env: map[string]string{"TERM": "foot"}, sixel: true},
		{name: "mlterm", env: map[string]string{"TERM": "mlterm"}, sixel: true},
		{name: "tmux", env: map[string]string{"TMUX": "/tmp/tmux-1000/default,1,0"}, tmux: true},
		{name: "plain xterm", env: map[string]string{"TERM": "xterm-256color"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTermEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			caps := envCapabilities()
			assert.Equal(t, tt.kitty, caps.Kitty, "kitty")
			assert.Equal(t, tt.iterm, caps.ITerm2, "iterm2")
			assert.Equal(t, tt.sixel, caps.Sixel, "sixel")
			assert.Equal(t, tt.tmux, caps.Tmux, "tmux")
		})
	}
}

func TestSelectStyle(t *testing.T) {
	tests := []struct {
		name string
		caps Capabilities
		want Style
	}{
		{name: "none", caps: Capabilities{}, want: Block},
		{name: "all", caps: Capabilities{Kitty: true, ITerm2: true, Sixel: true}, want: Kitty},
		{name: "iterm and sixel", caps: Capabilities{ITerm2: true, Sixel: true}, want: ITerm2},
		{name: "sixel", caps: Capabilities{Sixel: true}, want: Sixel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectStyle(tt.caps))
		})
	}
}

func TestParseStyle(t *testing.T) {
	for in, want := range map[string]Style{
		"":       Auto,
		"auto":   Auto,
		"Block":  Block,
		"kitty":  Kitty,
		"iTerm2": ITerm2,
		"sixel":  Sixel,
	} {
		got, err := ParseStyle(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStyle("braille")
	assert.ErrorIs(t, err, ErrUnsupportedStyle)
}

func TestTerminalStyle(t *testing.T) {
	clearTermEnv(t)
	dev := newFakeTerm(true, kittyOKReply+da1Plain)
	term := NewTerminal(dev, DefaultConfig())

	assert.Equal(t, Kitty, term.Style(context.Background(), Auto))
	assert.Equal(t, Sixel, term.Style(context.Background(), Sixel))
	assert.Equal(t, Bounds{Cols: 80, Rows: 24}, term.Bounds())

	cfg := DefaultConfig()
	cfg.DefaultStyle = Block
	forced := NewTerminal(newFakeTerm(true), cfg)
	assert.Equal(t, Block, forced.Style(context.Background(), Auto))
	_, detected := forced.Detector().Cached()
	assert.False(t, detected)
}
