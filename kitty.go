package termimage

import (
	"bytes"
	"fmt"
	"image"
	"strings"
	"sync/atomic"

	"github.com/klauspost/compress/zlib"
)

const (
	kittyStart = "\x1b_G"
	kittyEnd   = "\x1b\\"

	// kittyPlacementID is fixed so re-placing an image replaces its placement
	kittyPlacementID = 1
)

var kittyImageID atomic.Uint32

// NextImageID returns a new process-unique kitty image id
func NextImageID() uint32 {
	return NextImageIDs(1)
}

// NextImageIDs reserves n consecutive kitty image ids and returns the first
func NextImageIDs(n int) uint32 {
	n = max(n, 1)
	for {
		last := kittyImageID.Add(uint32(n))
		first := last - uint32(n) + 1
		// ids are 32-bit and 0 means "unset"
		if first != 0 && first <= last {
			return first
		}
	}
}

// KittyRenderer transmits frames with the kitty graphics protocol as
// zlib-compressed raw pixels split over chunked escape sequences
type KittyRenderer struct{}

// Style returns Kitty
func (KittyRenderer) Style() Style { return Kitty }

// Encode transmits and places frame over g.Cols x g.Rows cells. In lines
// mode every cell row is its own image, with consecutive ids starting at
// opts.ImageID.
func (KittyRenderer) Encode(frame image.Image, g Geometry, caps Capabilities, opts Options) (Output, error) {
	if err := checkGeometry(frame, g); err != nil {
		return Output{}, err
	}

	px := g.PixelSize(caps.CellWidth, caps.CellHeight)
	img := prepareFrame(frame, px.X, px.Y, opts.Transparency, opts.Cache)

	// 24-bit only when the policy has already flattened the alpha channel
	format := 32
	if !opts.Transparency.keepsAlpha() {
		format = 24
	}

	id := opts.ImageID
	if id == 0 {
		if opts.Lines {
			id = NextImageIDs(g.Rows)
		} else {
			id = NextImageID()
		}
	}
	if opts.Lines {
		return kittyLines(img, format, id, g, opts)
	}

	seq, err := kittyTransmit(img, format, id, g.Cols, g.Rows, opts)
	if err != nil {
		return Output{}, err
	}
	place := kittyPlace(id, g.Cols, g.Rows, opts.Tmux)
	del := KittyDelete(id, false)
	if opts.Tmux {
		del = wrapTmux(del)
	}

	return Output{
		Text:    blankFootprint(seq, g.Cols, g.Rows),
		Redraw:  blankFootprint(place, g.Cols, g.Rows),
		Clear:   del,
		Cols:    g.Cols,
		Rows:    g.Rows,
		ImageID: id,
	}, nil
}

// kittyLines sends img as g.Rows single row images, each followed by the
// blank cells it covers
func kittyLines(img *image.NRGBA, format int, id uint32, g Geometry, opts Options) (Output, error) {
	blank := strings.Repeat(" ", g.Cols)
	text := make([]string, g.Rows)
	redraw := make([]string, g.Rows)
	for r := range g.Rows {
		lid := id + uint32(r)
		seq, err := kittyTransmit(rowBand(img, r, g.Rows), format, lid, g.Cols, 1, opts)
		if err != nil {
			return Output{}, err
		}
		text[r] = seq + blank
		redraw[r] = kittyPlace(lid, g.Cols, 1, opts.Tmux) + blank
	}
	del := KittyDeleteRange(id, id+uint32(g.Rows)-1, false)
	if opts.Tmux {
		del = wrapTmux(del)
	}
	return Output{
		Text:    strings.Join(text, "\n"),
		Redraw:  strings.Join(redraw, "\n"),
		Clear:   del,
		Cols:    g.Cols,
		Rows:    g.Rows,
		ImageID: id,
	}, nil
}

// rowBand returns cell row r of rows as its own tightly packed image
func rowBand(img *image.NRGBA, r, rows int) *image.NRGBA {
	b := img.Bounds()
	h := b.Dy() / rows
	band := image.NewNRGBA(image.Rect(0, 0, b.Dx(), h))
	for y := range h {
		off := img.PixOffset(b.Min.X, b.Min.Y+r*h+y)
		copy(band.Pix[y*band.Stride:(y+1)*band.Stride], img.Pix[off:off+b.Dx()*4])
	}
	return band
}

// kittyTransmit stores img under id and places it over cols x rows cells
func kittyTransmit(img *image.NRGBA, format int, id uint32, cols, rows int, opts Options) (string, error) {
	raw := img.Pix
	if format == 24 {
		raw = packRGB(img)
	}
	payload, err := kittyCompress(raw, opts.Compression)
	if err != nil {
		return "", err
	}

	b := img.Bounds()
	chunks := ParallelBase64Encode(payload, RawChunkSize)
	var seq strings.Builder
	for i, chunk := range chunks {
		more := 0
		if i < len(chunks)-1 {
			more = 1
		}
		var control string
		if i == 0 {
			control = fmt.Sprintf("a=T,t=d,i=%d,p=%d,q=2,f=%d,s=%d,v=%d,c=%d,r=%d,C=1,o=z,m=%d",
				id, kittyPlacementID, format, b.Dx(), b.Dy(), cols, rows, more)
		} else {
			control = fmt.Sprintf("m=%d", more)
		}
		piece := kittyStart + control + ";" + chunk + kittyEnd
		if opts.Tmux {
			piece = wrapTmux(piece)
		}
		seq.WriteString(piece)
	}
	return seq.String(), nil
}

func kittyPlace(id uint32, cols, rows int, tmux bool) string {
	place := fmt.Sprintf("%sa=p,i=%d,p=%d,c=%d,r=%d,C=1,q=2%s", kittyStart, id, kittyPlacementID, cols, rows, kittyEnd)
	if tmux {
		place = wrapTmux(place)
	}
	return place
}

// KittyDelete removes the placements of image id, and its stored data too
// when free is set
func KittyDelete(id uint32, free bool) string {
	d := "i"
	if free {
		d = "I"
	}
	return fmt.Sprintf("%sa=d,d=%s,i=%d,q=2%s", kittyStart, d, id, kittyEnd)
}

// KittyDeleteRange removes the placements of images first through last,
// and their stored data too when free is set
func KittyDeleteRange(first, last uint32, free bool) string {
	d := "r"
	if free {
		d = "R"
	}
	return fmt.Sprintf("%sa=d,d=%s,x=%d,y=%d,q=2%s", kittyStart, d, first, last, kittyEnd)
}

// KittyDeleteAll removes every image placed on screen and frees their data
func KittyDeleteAll() string {
	return kittyStart + "a=d,d=A,q=2" + kittyEnd
}

func kittyCompress(raw []byte, level int) ([]byte, error) {
	if level < 0 || level > 9 {
		level = zlib.DefaultCompression
	}
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("kitty: zlib writer: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("kitty: compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("kitty: compress: %w", err)
	}
	return buf.Bytes(), nil
}

func packRGB(img *image.NRGBA) []byte {
	out := make([]byte, 0, len(img.Pix)/4*3)
	for i := 0; i < len(img.Pix); i += 4 {
		out = append(out, img.Pix[i], img.Pix[i+1], img.Pix[i+2])
	}
	return out
}
