package termimage

import (
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Options carry per-render settings a Renderer needs beyond the geometry
type Options struct {
	Transparency Transparency
	// ImageID names the kitty image; zero allocates a fresh one
	ImageID uint32
	// Compression is the kitty zlib level 0-9, or -1 for the default
	Compression int
	// JPEG makes iTerm2 payloads JPEG instead of PNG
	JPEG bool
	// Mosaic renders Block output with quarter blocks
	Mosaic bool
	// Lines sends kitty and iTerm2 images one cell row at a time
	Lines bool
	// Tmux wraps graphics sequences in tmux passthrough
	Tmux bool
	// Cache reuses scaled frames. Only set it for frames that never change.
	Cache *ResizeCache
}

// DefaultOptions returns Options with the default transparency and compression
func DefaultOptions() Options {
	return Options{Compression: -1}
}

// Output is an encoded frame.
//
// Text covers exactly Cols x Rows cells: Rows lines joined by "\n" with the
// cursor left at the end of the last line once written.
type Output struct {
	Text string
	// Redraw re-shows the already transmitted frame with the same footprint.
	// Empty when the style cannot reference transmitted images.
	Redraw string
	// Clear removes the image without moving the cursor. Empty when
	// overwriting the cells is enough.
	Clear   string
	Cols    int
	Rows    int
	ImageID uint32
}

// Renderer encodes frames for one style. Implementations are stateless.
type Renderer interface {
	Style() Style
	Encode(frame image.Image, g Geometry, caps Capabilities, opts Options) (Output, error)
}

// GetRenderer returns the renderer for a concrete style
func GetRenderer(style Style) (Renderer, error) {
	switch style {
	case Block:
		return BlockRenderer{}, nil
	case Kitty:
		return KittyRenderer{}, nil
	case ITerm2:
		return ITerm2Renderer{}, nil
	case Sixel:
		return SixelRenderer{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStyle, style)
	}
}

func checkGeometry(frame image.Image, g Geometry) error {
	if frame == nil {
		return WrapInvalidSize("nil frame")
	}
	if b := frame.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return WrapInvalidSize("frame is %dx%d", b.Dx(), b.Dy())
	}
	if g.Cols <= 0 || g.Rows <= 0 {
		return WrapInvalidSize("render size %dx%d", g.Cols, g.Rows)
	}
	return nil
}

// blankFootprint prefixes seq to rows lines of cols spaces
func blankFootprint(seq string, cols, rows int) string {
	line := strings.Repeat(" ", cols)
	var b strings.Builder
	b.Grow(len(seq) + rows*(cols+1))
	b.WriteString(seq)
	for i := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}

// cursorFootprint prefixes seq to rows lines that each move the cursor
// cols cells forward without touching the cells
func cursorFootprint(seq string, cols, rows int) string {
	fwd := ansi.CursorForward(cols)
	var b strings.Builder
	b.WriteString(seq)
	for i := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(fwd)
	}
	return b.String()
}
