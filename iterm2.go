package termimage

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

const (
	itermStart = "\x1b]1337;File="
	itermEnd   = "\a"
)

// ITerm2Renderer sends each frame whole as an inline PNG (or JPEG) file and
// lets the terminal scale it into the cell box
type ITerm2Renderer struct{}

// Style returns ITerm2
func (ITerm2Renderer) Style() Style { return ITerm2 }

// Encode wraps frame in a single OSC 1337 File sequence sized g.Cols x
// g.Rows, or one sequence per cell row in lines mode
func (ITerm2Renderer) Encode(frame image.Image, g Geometry, caps Capabilities, opts Options) (Output, error) {
	if err := checkGeometry(frame, g); err != nil {
		return Output{}, err
	}

	px := g.PixelSize(caps.CellWidth, caps.CellHeight)
	img := prepareFrame(frame, px.X, px.Y, opts.Transparency, opts.Cache)

	if opts.Lines {
		fwd := ansi.CursorForward(g.Cols)
		lines := make([]string, g.Rows)
		for r := range g.Rows {
			seq, err := itermFile(rowBand(img, r, g.Rows), g.Cols, 1, opts)
			if err != nil {
				return Output{}, err
			}
			lines[r] = seq + fwd
		}
		return Output{Text: strings.Join(lines, "\n"), Cols: g.Cols, Rows: g.Rows}, nil
	}

	seq, err := itermFile(img, g.Cols, g.Rows, opts)
	if err != nil {
		return Output{}, err
	}
	return Output{
		Text: cursorFootprint(seq, g.Cols, g.Rows),
		Cols: g.Cols,
		Rows: g.Rows,
	}, nil
}

func itermFile(img image.Image, cols, rows int, opts Options) (string, error) {
	var buf bytes.Buffer
	if opts.JPEG {
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return "", fmt.Errorf("iterm2: jpeg encode: %w", err)
		}
	} else {
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		if err := enc.Encode(&buf, img); err != nil {
			return "", fmt.Errorf("iterm2: png encode: %w", err)
		}
	}

	seq := fmt.Sprintf("%sinline=1;size=%d;width=%d;height=%d;preserveAspectRatio=0;doNotMoveCursor=1:%s%s",
		itermStart, buf.Len(), cols, rows, Base64Encode(buf.Bytes()), itermEnd)
	if opts.Tmux {
		seq = wrapTmux(seq)
	}
	return seq, nil
}
