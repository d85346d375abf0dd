package termimage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/charmbracelet/x/ansi"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image binds a pixel source to a style and a render spec.
//
// Setters are not safe for concurrent use, but once configured an Image may
// be rendered from several goroutines.
type Image struct {
	anim Animation
	term *Terminal

	spec         RenderSpec
	style        Style
	transparency Transparency
	compression  int
	jpeg         bool
	mosaic       bool
	lines        bool
	repeat       int
	current      int
	id           uint32

	// lineID is the first of lineIDs ids reserved for kitty lines mode
	lineID  uint32
	lineIDs int

	// cache holds scaled frames decoded by this image's iterators
	cache *ResizeCache

	// err is the first invalid setter argument, reported by the next render
	err error

	mu    sync.Mutex
	iters []*Iterator
	drawn Geometry
	shown Style
	lined bool
}

// New creates an Image from a still image
func New(img image.Image) *Image {
	if img == nil {
		return nil
	}
	return NewAnimated(Still(img))
}

// NewAnimated creates an Image from a multi-frame source. It plays the
// source's own loop count unless Repeat says otherwise.
func NewAnimated(anim Animation) *Image {
	if anim == nil {
		return nil
	}
	repeat := anim.Loops()
	var cache *ResizeCache
	if n := anim.Len(); n > 1 {
		cache = NewResizeCache(min(n, DefaultCacheLimit))
	} else {
		repeat = 0
	}
	return &Image{
		anim:        anim,
		style:       Auto,
		compression: -1,
		repeat:      repeat,
		id:          NextImageID(),
		cache:       cache,
		spec:        RenderSpec{Fit: FitAuto, HAlign: AlignLeft, VAlign: AlignTop},
	}
}

// Open decodes an image file. GIFs keep all their frames.
func Open(path string) (*Image, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return decode(data)
}

// From decodes an image read from r
func From(r io.Reader) (*Image, error) {
	if r == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, WrapDecode(err)
	}
	return decode(data)
}

func decode(data []byte) (*Image, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, WrapDecode(err)
	}
	if format == "gif" {
		g, err := DecodeGIF(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return NewAnimated(g), nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, WrapDecode(err)
	}
	return New(img), nil
}

func (i *Image) fail(err error) *Image {
	if i.err == nil {
		i.err = err
	}
	return i
}

// Width sets the width in cells
func (i *Image) Width(w int) *Image {
	if w <= 0 {
		return i.fail(WrapInvalidSize("width must be positive, got %d", w))
	}
	i.spec.Width = w
	return i
}

// Height sets the height in cells
func (i *Image) Height(h int) *Image {
	if h <= 0 {
		return i.fail(WrapInvalidSize("height must be positive, got %d", h))
	}
	i.spec.Height = h
	return i
}

// Size sets both width and height in cells
func (i *Image) Size(w, h int) *Image {
	return i.Width(w).Height(h)
}

// Scale shrinks the resolved size by sx and sy, each in (0, 1]
func (i *Image) Scale(sx, sy float64) *Image {
	if !(sx > 0 && sx <= 1) || !(sy > 0 && sy <= 1) {
		return i.fail(WrapInvalidSize("scale must be in (0, 1], got %vx%v", sx, sy))
	}
	i.spec.ScaleX, i.spec.ScaleY = sx, sy
	return i
}

// Fit sets how an unset size is derived
func (i *Image) Fit(f Fit) *Image {
	i.spec.Fit = f
	return i
}

// Align places the image inside the padding box
func (i *Image) Align(h HAlign, v VAlign) *Image {
	i.spec.HAlign, i.spec.VAlign = h, v
	return i
}

// Padding sets the box, in cells, the image is aligned in. Zero disables
// padding in that direction.
func (i *Image) Padding(w, h int) *Image {
	if w < 0 || h < 0 {
		return i.fail(WrapInvalidSize("padding must not be negative, got %dx%d", w, h))
	}
	i.spec.PadWidth, i.spec.PadHeight = w, h
	return i
}

// Style sets the render style. Auto picks the best one the terminal supports.
func (i *Image) Style(s Style) *Image {
	i.style = s
	return i
}

// Transparency sets the policy for translucent pixels
func (i *Image) Transparency(t Transparency) *Image {
	i.transparency = t
	return i
}

// Compression sets the kitty zlib level, -1 for the default
func (i *Image) Compression(level int) *Image {
	if level < -1 || level > 9 {
		return i.fail(WrapInvalidSize("compression level must be in [-1, 9], got %d", level))
	}
	i.compression = level
	return i
}

// JPEG sends iTerm2 payloads as JPEG
func (i *Image) JPEG(on bool) *Image {
	i.jpeg = on
	return i
}

// Mosaic renders blocks with quarter block characters
func (i *Image) Mosaic(on bool) *Image {
	i.mosaic = on
	return i
}

// Lines sends kitty and iTerm2 images as one image per cell row
func (i *Image) Lines(on bool) *Image {
	i.lines = on
	return i
}

// Repeat sets the number of passes Draw makes: 0 shows one frame, a
// negative value loops until cancelled
func (i *Image) Repeat(n int) *Image {
	i.repeat = n
	return i
}

// Terminal sets the terminal to detect and draw on. The default is
// DefaultTerminal.
func (i *Image) Terminal(t *Terminal) *Image {
	i.term = t
	return i
}

// ImageID returns the kitty image id reused for every frame of this image
func (i *Image) ImageID() uint32 { return i.id }

// Len returns the number of frames
func (i *Image) Len() int { return i.anim.Len() }

// Seek selects the frame Render and Format encode, and where Draw starts
func (i *Image) Seek(n int) error {
	if n < 0 || n >= i.anim.Len() {
		return WrapInvalidSize("seek to frame %d of %d", n, i.anim.Len())
	}
	i.current = n
	return nil
}

// Frames returns an iterator starting at the current frame. Close releases
// it, as does closing the Image.
func (i *Image) Frames() *Iterator {
	it := NewIterator(i.anim, i.repeat, WithCacheLimit(i.terminal().Config().CacheLimit))
	if i.current > 0 {
		_ = it.Seek(i.current)
	}
	i.mu.Lock()
	live := i.iters[:0]
	for _, old := range i.iters {
		if s := old.State(); s != StateClosed && s != StateExhausted {
			live = append(live, old)
		}
	}
	clear(i.iters[len(live):])
	i.iters = append(live, it)
	i.mu.Unlock()
	return it
}

// Close releases every iterator handed out by Frames and the scaled frames
// kept for them
func (i *Image) Close() error {
	i.mu.Lock()
	iters := i.iters
	i.iters = nil
	i.mu.Unlock()

	if i.cache != nil {
		i.cache.Clear()
	}
	var errs []error
	for _, it := range iters {
		errs = append(errs, it.Close())
	}
	return errors.Join(errs...)
}

func (i *Image) terminal() *Terminal {
	if i.term != nil {
		return i.term
	}
	return DefaultTerminal()
}

// bounds is the terminal less the room kept for the prompt
func (i *Image) bounds() Bounds {
	b := i.terminal().Bounds()
	return Bounds{Cols: max(1, b.Cols-HAllowance), Rows: max(1, b.Rows-VAllowance)}
}

// renderPlan is a resolved render: backend, geometry and options
type renderPlan struct {
	renderer Renderer
	geometry Geometry
	caps     Capabilities
	opts     Options
}

func (i *Image) plan(ctx context.Context, spec RenderSpec, fs *FormatSpec) (renderPlan, error) {
	if i.err != nil {
		return renderPlan{}, i.err
	}
	t := i.terminal()
	caps := t.Capabilities(ctx)
	style := t.Style(ctx, i.style)
	r, err := GetRenderer(style)
	if err != nil {
		return renderPlan{}, err
	}

	bounds := i.bounds()
	src := i.anim.Bounds().Size()
	native := NativeSize(style, src, caps.CellWidth, caps.CellHeight, caps.FontRatio)
	g, err := Resolve(spec, src, bounds, caps.FontRatio, native)
	if err != nil {
		return renderPlan{}, err
	}

	opts := Options{
		Transparency: i.transparency,
		ImageID:      i.id,
		Compression:  i.compression,
		JPEG:         i.jpeg,
		Mosaic:       i.mosaic,
		Lines:        i.lines,
		Tmux:         caps.Tmux,
	}
	if fs != nil {
		if fs.Transparency != nil {
			opts.Transparency = *fs.Transparency
		}
		if fs.Style.Compression >= 0 {
			opts.Compression = fs.Style.Compression
		}
		opts.JPEG = opts.JPEG || fs.Style.JPEG
		opts.Mosaic = opts.Mosaic || fs.Style.Mosaic
		opts.Lines = opts.Lines || fs.Style.Lines
	}
	if opts.Lines && style == Kitty {
		opts.ImageID = i.reserveLines(g.Rows)
	}
	if opts.Tmux {
		EnableTmuxPassthrough()
	}

	logf().WithFields(log.Fields{
		"style": style,
		"cols":  g.Cols,
		"rows":  g.Rows,
	}).Debug("render plan")
	return renderPlan{renderer: r, geometry: g, caps: caps, opts: opts}, nil
}

// reserveLines returns the first of rows consecutive kitty ids, stable
// across renders as long as the image does not grow taller
func (i *Image) reserveLines(rows int) uint32 {
	i.mu.Lock()
	defer i.mu.Unlock()
	if rows > i.lineIDs {
		i.lineID = NextImageIDs(rows)
		i.lineIDs = rows
	}
	return i.lineID
}

// currentFrame decodes the selected frame through a one-shot iterator
func (i *Image) currentFrame() (image.Image, error) {
	it := NewIterator(i.anim, 0)
	defer it.Close()
	if err := it.Seek(i.current); err != nil {
		return nil, err
	}
	f, err := it.Next()
	if err != nil {
		return nil, err
	}
	return f.Image, nil
}

// Encode renders the current frame to an Output without padding
func (i *Image) Encode(ctx context.Context) (Output, Geometry, error) {
	p, err := i.plan(ctx, i.spec, nil)
	if err != nil {
		return Output{}, Geometry{}, err
	}
	frame, err := i.currentFrame()
	if err != nil {
		return Output{}, Geometry{}, err
	}
	out, err := p.renderer.Encode(frame, p.geometry, p.caps, p.opts)
	return out, p.geometry, err
}

// renderFrame encodes a frame from one of the image's iterators
func (i *Image) renderFrame(ctx context.Context, frame image.Image) (string, error) {
	p, err := i.plan(ctx, i.spec, nil)
	if err != nil {
		return "", err
	}
	p.opts.Cache = i.cache
	out, err := p.renderer.Encode(frame, p.geometry, p.caps, p.opts)
	if err != nil {
		return "", err
	}
	return PadText(out.Text, p.geometry), nil
}

// Render returns the current frame as text, padded per the render spec.
// It never writes to the terminal and never animates.
func (i *Image) Render() (string, error) {
	return i.RenderContext(context.Background())
}

// RenderContext is Render with a context bounding capability detection
func (i *Image) RenderContext(ctx context.Context) (string, error) {
	out, g, err := i.Encode(ctx)
	if err != nil {
		return "", err
	}
	return PadText(out.Text, g), nil
}

// Format renders the current frame laid out by a format string, e.g.
// "<40.^10#" or ">.-#101010+z9". The image keeps the size Render would
// give it and is padded out to the box; a box smaller than the image adds
// no padding.
func (i *Image) Format(format string) (string, error) {
	fs, err := ParseFormat(format)
	if err != nil {
		return "", err
	}
	if i.err != nil {
		return "", i.err
	}
	p, err := i.plan(context.Background(), fs.apply(i.spec, i.terminal().Bounds()), &fs)
	if err != nil {
		return "", err
	}
	frame, err := i.currentFrame()
	if err != nil {
		return "", err
	}
	out, err := p.renderer.Encode(frame, p.geometry, p.caps, p.opts)
	if err != nil {
		return "", err
	}
	return PadText(out.Text, p.geometry), nil
}

// Draw writes the image to the terminal, animating it for the configured
// number of passes. Cancelling ctx stops it between frames.
func (i *Image) Draw(ctx context.Context) (err error) {
	p, err := i.plan(ctx, i.spec, nil)
	if err != nil {
		return err
	}
	t := i.terminal()
	g := p.geometry
	// iterator frames are never modified once yielded
	p.opts.Cache = i.cache

	repeat := i.repeat
	if i.anim.Len() <= 1 {
		repeat = 0
	}
	it := NewIterator(i.anim, repeat, WithCacheLimit(t.Config().CacheLimit))
	defer it.Close()
	if i.current > 0 {
		if err := it.Seek(i.current); err != nil {
			return err
		}
	}

	interactive := t.IsTerminal()
	if interactive {
		if err := t.WriteString(ansi.HideCursor); err != nil {
			return err
		}
	}
	defer func() {
		tail := ansi.ResetStyle
		if interactive {
			tail += ansi.ShowCursor
		}
		if werr := t.WriteString(tail + "\n"); err == nil {
			err = werr
		}
	}()

	// back returns the cursor from the end of the last line to the top left
	back := "\r"
	if h := g.Height(); h > 1 {
		back += ansi.CursorUp(h - 1)
	}

	i.remember(g, p.renderer.Style(), p.opts.Lines)

	var (
		prev    *Output
		written bool
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := it.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		var payload string
		if f.Unchanged && prev != nil {
			payload = PadText(prev.Redraw, g)
			if prev.Redraw == "" {
				payload = ""
			}
		} else {
			out, err := p.renderer.Encode(f.Image, g, p.caps, p.opts)
			if err != nil {
				return err
			}
			if prev != nil {
				payload = prev.Clear
			}
			payload += PadText(out.Text, g)
			prev = &out
		}

		if payload != "" {
			if written {
				payload = back + payload
			}
			if err := t.WriteString(payload); err != nil {
				return err
			}
			written = true
		}

		if repeat == 0 {
			continue
		}
		d := f.Duration
		if d <= 0 {
			d = DefaultFrameDelay
		}
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (i *Image) remember(g Geometry, s Style, lined bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.drawn, i.shown, i.lined = g, s, lined
}

// Clear returns the sequence that removes the last drawn image. Kitty
// images are deleted by id; other styles are erased from the cursor line
// Draw leaves behind.
func (i *Image) Clear() (string, error) {
	i.mu.Lock()
	g, s, lined := i.drawn, i.shown, i.lined
	first, n := i.lineID, i.lineIDs
	i.mu.Unlock()

	if s == Kitty {
		seq := KittyDelete(i.id, true)
		if lined && n > 0 {
			seq = KittyDeleteRange(first, first+uint32(n)-1, true)
		}
		if caps, ok := i.terminal().Detector().Cached(); ok && caps.Tmux {
			seq = wrapTmux(seq)
		}
		return seq, nil
	}
	if h := g.Height(); h > 0 {
		return "\r" + ansi.CursorUp(h) + ansi.EraseScreenBelow, nil
	}
	return "", nil
}

// Render renders img with default settings
func Render(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("image cannot be nil")
	}
	return New(img).Render()
}

// RenderFile renders an image file with default settings
func RenderFile(path string) (string, error) {
	img, err := Open(path)
	if err != nil {
		return "", err
	}
	return img.Render()
}

// Print draws img on the default terminal
func Print(ctx context.Context, img image.Image) error {
	if img == nil {
		return fmt.Errorf("image cannot be nil")
	}
	return New(img).Draw(ctx)
}

// PrintFile draws an image file on the default terminal, animating GIFs
func PrintFile(ctx context.Context, path string) error {
	img, err := Open(path)
	if err != nil {
		return err
	}
	defer img.Close()
	return img.Draw(ctx)
}
