package termimage

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/blacktop/termimage/pkg/tty"
)

// fakeTerm is a scripted tty.Device. Every Query gets the next reply batch.
type fakeTerm struct {
	mu          sync.Mutex
	out         bytes.Buffer
	replies     [][]byte
	queries     int
	interactive bool
	winsize     tty.Winsize
	writeErr    error
}

func newFakeTerm(interactive bool, replies ...string) *fakeTerm {
	f := &fakeTerm{
		interactive: interactive,
		winsize:     tty.Winsize{Cols: 80, Rows: 24},
	}
	for _, r := range replies {
		f.replies = append(f.replies, []byte(r))
	}
	return f
}

func (f *fakeTerm) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return f.out.Write(p)
}

func (f *fakeTerm) ReadTimeout(p []byte, d time.Duration) (int, error) {
	f.mu.Lock()
	if len(f.replies) == 0 {
		f.mu.Unlock()
		time.Sleep(d)
		return 0, nil
	}
	next := f.replies[0]
	f.replies = f.replies[1:]
	f.mu.Unlock()
	return copy(p, next), nil
}

func (f *fakeTerm) MakeRaw() (func() error, error) {
	f.mu.Lock()
	f.queries++
	f.mu.Unlock()
	return func() error { return nil }, nil
}

func (f *fakeTerm) IsTerminal() bool { return f.interactive }

func (f *fakeTerm) Size() (tty.Winsize, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.winsize, nil
}

func (f *fakeTerm) written() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out.String()
}

func (f *fakeTerm) probes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

// clearTermEnv hides the host terminal from env based detection
func clearTermEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TERM", "TERM_PROGRAM", "TERM_PROGRAM_VERSION", "KITTY_WINDOW_ID",
		"LC_TERMINAL", "TMUX",
		EnvStyle, EnvQueryTimeout, EnvFontRatio, EnvForceTmux,
	} {
		t.Setenv(k, "")
	}
}

// blockTerminal is a non-interactive 80x24 terminal forced to Block
func blockTerminal(t *testing.T) (*Terminal, *fakeTerm) {
	t.Helper()
	clearTermEnv(t)
	dev := newFakeTerm(false)
	cfg := DefaultConfig()
	cfg.DefaultStyle = Block
	return NewTerminal(dev, cfg), dev
}

var testPalette = color.Palette{
	color.Transparent,
	color.RGBA{0xff, 0, 0, 0xff},
	color.RGBA{0, 0xff, 0, 0xff},
	color.RGBA{0, 0, 0xff, 0xff},
}

// palettedFrame covers r with palette index idx
func palettedFrame(r image.Rectangle, idx uint8) *image.Paletted {
	p := image.NewPaletted(r, testPalette)
	for i := range p.Pix {
		p.Pix[i] = idx
	}
	return p
}

// testGIF is an n frame 4x4 GIF cycling through red, green and blue
func testGIF(n, loop int, delay int) *gif.GIF {
	g := &gif.GIF{LoopCount: loop, Config: image.Config{Width: 4, Height: 4, ColorModel: testPalette}}
	for i := range n {
		g.Image = append(g.Image, palettedFrame(image.Rect(0, 0, 4, 4), uint8(1+i%3)))
		g.Delay = append(g.Delay, delay)
		g.Disposal = append(g.Disposal, gif.DisposalNone)
	}
	return g
}

// countFrames counts the block renders written, using the reset every
// rendered frame ends with
func countFrames(out string, rows int) int {
	return strings.Count(out, sgrReset) / rows
}
