package termimage

import (
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/mosaic"
)

const (
	upperHalf = "▀"
	lowerHalf = "▄"

	sgrReset     = "\x1b[0m"
	sgrDefaultBG = "\x1b[49m"
)

// BlockRenderer draws two vertically stacked pixels per cell with a half
// block glyph, the top pixel as foreground and the bottom as background
type BlockRenderer struct{}

// Style returns Block
func (BlockRenderer) Style() Style { return Block }

// Encode renders frame into g.Cols x g.Rows cells of 24-bit color text
func (r BlockRenderer) Encode(frame image.Image, g Geometry, _ Capabilities, opts Options) (Output, error) {
	if err := checkGeometry(frame, g); err != nil {
		return Output{}, err
	}
	if opts.Mosaic {
		return r.encodeMosaic(frame, g, opts)
	}

	img := prepareFrame(frame, g.Cols, g.Rows*2, opts.Transparency, opts.Cache)

	var b strings.Builder
	b.Grow(g.Rows * g.Cols * 24)
	for row := 0; row < g.Rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		var pen sgrState
		for col := 0; col < g.Cols; col++ {
			top := img.NRGBAAt(col, row*2)
			bottom := img.NRGBAAt(col, row*2+1)
			switch {
			case top.A == 0 && bottom.A == 0:
				pen.background(&b, nil)
				b.WriteByte(' ')
			case top.A == 0:
				pen.foreground(&b, bottom)
				pen.background(&b, nil)
				b.WriteString(lowerHalf)
			case bottom.A == 0:
				pen.foreground(&b, top)
				pen.background(&b, nil)
				b.WriteString(upperHalf)
			default:
				pen.foreground(&b, top)
				pen.background(&b, &bottom)
				b.WriteString(upperHalf)
			}
		}
		b.WriteString(sgrReset)
	}

	return Output{Text: b.String(), Cols: g.Cols, Rows: g.Rows}, nil
}

// encodeMosaic renders with quarter blocks, two pixels per cell each way
func (BlockRenderer) encodeMosaic(frame image.Image, g Geometry, opts Options) (Output, error) {
	img := prepareFrame(frame, g.Cols*2, g.Rows*2, opts.Transparency, opts.Cache)
	m := mosaic.New().Width(g.Cols).Height(g.Rows)
	text := m.Render(img)
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for len(lines) < g.Rows {
		lines = append(lines, strings.Repeat(" ", g.Cols))
	}
	return Output{Text: strings.Join(lines[:g.Rows], "\n"), Cols: g.Cols, Rows: g.Rows}, nil
}

// sgrState tracks the colors already set on the current line so escape
// codes are only emitted on change
type sgrState struct {
	fg, bg       color.NRGBA
	fgSet, bgSet bool
	bgDefault    bool
}

func (s *sgrState) foreground(b *strings.Builder, c color.NRGBA) {
	c.A = 0xff
	if s.fgSet && s.fg == c {
		return
	}
	s.fg, s.fgSet = c, true
	writeRGB(b, "\x1b[38;2;", c)
}

// background sets c, or the terminal default when c is nil
func (s *sgrState) background(b *strings.Builder, c *color.NRGBA) {
	if c == nil {
		if s.bgDefault {
			return
		}
		s.bgDefault, s.bgSet = true, false
		b.WriteString(sgrDefaultBG)
		return
	}
	v := *c
	v.A = 0xff
	if s.bgSet && s.bg == v {
		return
	}
	s.bg, s.bgSet, s.bgDefault = v, true, false
	writeRGB(b, "\x1b[48;2;", v)
}

func writeRGB(b *strings.Builder, prefix string, c color.NRGBA) {
	b.WriteString(prefix)
	b.WriteString(strconv.Itoa(int(c.R)))
	b.WriteByte(';')
	b.WriteString(strconv.Itoa(int(c.G)))
	b.WriteByte(';')
	b.WriteString(strconv.Itoa(int(c.B)))
	b.WriteByte('m')
}
