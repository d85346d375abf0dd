package termimage

import (
	"bytes"
	"fmt"
	"image"

	"github.com/charmbracelet/x/ansi"
	"github.com/makeworld-the-better-one/dither/v2"
	"github.com/mattn/go-sixel"
	"github.com/soniakeys/quant/median"
)

// DefaultSixelColors is the palette size used for sixel output
const DefaultSixelColors = 256

// SixelRenderer encodes frames as DEC sixel graphics with a median cut
// palette and Floyd-Steinberg dithering
type SixelRenderer struct {
	// Colors is the palette size, 2-256; zero means DefaultSixelColors
	Colors int
}

// Style returns Sixel
func (SixelRenderer) Style() Style { return Sixel }

// Encode renders frame at the pixel size of g.Cols x g.Rows cells.
// The cursor is saved around the sixel data so the footprint is the same
// whatever the terminal's sixel scrolling mode.
func (r SixelRenderer) Encode(frame image.Image, g Geometry, caps Capabilities, opts Options) (Output, error) {
	if err := checkGeometry(frame, g); err != nil {
		return Output{}, err
	}

	colors := r.Colors
	if colors <= 0 {
		colors = DefaultSixelColors
	}
	colors = min(max(colors, 2), 256)

	px := g.PixelSize(caps.CellWidth, caps.CellHeight)
	img := prepareFrame(frame, px.X, px.Y, opts.Transparency, opts.Cache)

	palette := median.Quantizer(colors).Palette(img).ColorPalette()
	d := dither.NewDitherer(palette)
	d.Matrix = dither.FloydSteinberg
	paletted := d.DitherPaletted(img)

	var buf bytes.Buffer
	enc := sixel.NewEncoder(&buf)
	enc.Dither = false
	enc.Colors = colors
	if err := enc.Encode(paletted); err != nil {
		return Output{}, fmt.Errorf("sixel: encode: %w", err)
	}
	if buf.Len() == 0 {
		return Output{}, fmt.Errorf("sixel: encoding produced empty output")
	}

	seq := buf.String()
	if opts.Tmux {
		seq = wrapTmux(seq)
	}

	return Output{
		Text: cursorFootprint(ansi.SaveCursor+seq+ansi.RestoreCursor, g.Cols, g.Rows),
		Cols: g.Cols,
		Rows: g.Rows,
	}, nil
}
