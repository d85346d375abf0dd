package termimage

import (
	"fmt"
	"image"
	"image/gif"
	"io"
	"time"

	"golang.org/x/image/draw"
)

// DefaultFrameDelay is used for GIF frames that declare no delay
const DefaultFrameDelay = 100 * time.Millisecond

// GIF adapts a decoded GIF to Animation, compositing frames with their
// disposal methods
type GIF struct {
	g      *gif.GIF
	bounds image.Rectangle
}

// NewGIF wraps a decoded GIF
func NewGIF(g *gif.GIF) (*GIF, error) {
	if g == nil || len(g.Image) == 0 {
		return nil, fmt.Errorf("%w: gif has no frames", ErrDecode)
	}
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = image.Rectangle{}
		for _, fr := range g.Image {
			bounds = bounds.Union(fr.Bounds())
		}
	}
	return &GIF{g: g, bounds: bounds}, nil
}

// DecodeGIF reads every frame of a GIF
func DecodeGIF(r io.Reader) (*GIF, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, WrapDecode(err)
	}
	return NewGIF(g)
}

// Len returns the number of frames
func (a *GIF) Len() int { return len(a.g.Image) }

// Bounds returns the logical screen
func (a *GIF) Bounds() image.Rectangle { return a.bounds }

// Loops maps the GIF loop count (0 forever, -1 once, n repeats) onto passes
func (a *GIF) Loops() int {
	switch n := a.g.LoopCount; {
	case n == 0:
		return -1
	case n < 0:
		return 1
	default:
		return n + 1
	}
}

// Delay returns frame i's display duration
func (a *GIF) Delay(i int) time.Duration {
	if i < 0 || i >= len(a.g.Delay) || a.g.Delay[i] <= 0 {
		return DefaultFrameDelay
	}
	return time.Duration(a.g.Delay[i]) * 10 * time.Millisecond
}

// Open returns a reader with its own compositing canvas
func (a *GIF) Open() (FrameReader, error) {
	return &gifReader{anim: a}, nil
}

type gifReader struct {
	anim   *GIF
	canvas *image.NRGBA
	// next is the index of the next frame to composite onto canvas
	next   int
	closed bool
}

func (r *gifReader) Frame(i int) (image.Image, time.Duration, error) {
	if r.closed {
		return nil, 0, ErrIteratorClosed
	}
	if i < 0 || i >= r.anim.Len() {
		return nil, 0, WrapInvalidSize("frame %d of %d", i, r.anim.Len())
	}
	if r.canvas == nil || i < r.next {
		r.canvas = image.NewNRGBA(r.anim.bounds)
		r.next = 0
	}
	var out *image.NRGBA
	for r.next <= i {
		out = r.composite(r.next)
		r.next++
	}
	return out, r.anim.Delay(i), nil
}

// composite draws frame k over the canvas, snapshots it, then applies the
// frame's disposal for the next one
func (r *gifReader) composite(k int) *image.NRGBA {
	fr := r.anim.g.Image[k]
	disposal := byte(0)
	if k < len(r.anim.g.Disposal) {
		disposal = r.anim.g.Disposal[k]
	}

	var saved *image.NRGBA
	if disposal == gif.DisposalPrevious {
		saved = cloneNRGBA(r.canvas)
	}

	draw.Draw(r.canvas, fr.Bounds(), fr, fr.Bounds().Min, draw.Over)
	out := cloneNRGBA(r.canvas)

	switch disposal {
	case gif.DisposalBackground:
		draw.Draw(r.canvas, fr.Bounds(), image.Transparent, image.Point{}, draw.Src)
	case gif.DisposalPrevious:
		r.canvas = saved
	}
	return out
}

func (r *gifReader) Close() error {
	r.closed = true
	r.canvas = nil
	return nil
}
