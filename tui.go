package termimage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
)

// Widget is a bubbletea model showing an Image. Animated images advance on
// their own frame delays.
type Widget struct {
	img  *Image
	it   *Iterator
	view string
	err  error
	done bool
}

// widgetFrameMsg carries a rendered frame back to the widget that asked for it
type widgetFrameMsg struct {
	id    uint32
	view  string
	delay time.Duration
	err   error
	done  bool
}

type widgetTickMsg struct{ id uint32 }

// NewWidget wraps img. The widget owns the frame iterator; call Close when
// the widget is discarded.
func NewWidget(img *Image) *Widget {
	return &Widget{img: img}
}

// NewWidgetFromFile opens path and wraps it
func NewWidgetFromFile(path string) (*Widget, error) {
	img, err := Open(path)
	if err != nil {
		return nil, err
	}
	return NewWidget(img), nil
}

// SetSize sets the widget size in cells and restarts its animation
func (w *Widget) SetSize(width, height int) *Widget {
	w.img.Size(width, height)
	w.restart()
	return w
}

// Image returns the wrapped image
func (w *Widget) Image() *Image { return w.img }

// Init starts rendering the first frame
func (w *Widget) Init() tea.Cmd {
	return w.nextFrame()
}

// Update handles the widget's own frame and tick messages
func (w *Widget) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case widgetFrameMsg:
		if msg.id != w.img.id {
			return w, nil
		}
		if msg.err != nil {
			w.err = msg.err
			return w, nil
		}
		if msg.done {
			w.done = true
			return w, nil
		}
		w.view = msg.view
		if msg.delay <= 0 {
			return w, nil
		}
		id := w.img.id
		return w, tea.Tick(msg.delay, func(time.Time) tea.Msg { return widgetTickMsg{id: id} })
	case widgetTickMsg:
		if msg.id != w.img.id || w.done {
			return w, nil
		}
		return w, w.nextFrame()
	}
	return w, nil
}

// View returns the last rendered frame
func (w *Widget) View() string {
	if w.err != nil {
		return fmt.Sprintf("image error: %v", w.err)
	}
	return w.view
}

// Close releases the frame iterator
func (w *Widget) Close() error {
	if w.it == nil {
		return nil
	}
	err := w.it.Close()
	w.it = nil
	return err
}

func (w *Widget) restart() {
	_ = w.Close()
	w.done = false
	w.err = nil
}

func (w *Widget) nextFrame() tea.Cmd {
	if w.it == nil {
		w.it = w.img.Frames()
	}
	it, img := w.it, w.img
	return func() tea.Msg {
		f, err := it.Next()
		if errors.Is(err, io.EOF) || errors.Is(err, ErrIteratorClosed) {
			return widgetFrameMsg{id: img.id, done: true}
		}
		if err != nil {
			return widgetFrameMsg{id: img.id, err: err}
		}
		view, err := img.renderFrame(context.Background(), f.Image)
		return widgetFrameMsg{id: img.id, view: view, delay: f.Duration, err: err}
	}
}

// Gallery lays images out in a grid, rendering them concurrently
type Gallery struct {
	images  []*Image
	columns int
	spacing int
	workers int
}

// NewGallery creates a gallery with the given number of columns
func NewGallery(columns int) *Gallery {
	return &Gallery{
		columns: max(1, columns),
		spacing: 2,
		workers: DefaultEncodingWorkers,
	}
}

// Add appends images to the gallery
func (g *Gallery) Add(images ...*Image) *Gallery {
	g.images = append(g.images, images...)
	return g
}

// AddFile opens path and appends it
func (g *Gallery) AddFile(path string) error {
	img, err := Open(path)
	if err != nil {
		return err
	}
	g.Add(img)
	return nil
}

// SetSpacing sets the gap between images in cells
func (g *Gallery) SetSpacing(spacing int) *Gallery {
	g.spacing = max(0, spacing)
	return g
}

// SetImageSize sets the size of every image in cells
func (g *Gallery) SetImageSize(width, height int) *Gallery {
	for _, img := range g.images {
		img.Size(width, height)
	}
	return g
}

// SetWorkers bounds the number of concurrent renders
func (g *Gallery) SetWorkers(n int) *Gallery {
	g.workers = n
	return g
}

// Len returns the number of images
func (g *Gallery) Len() int { return len(g.images) }

// Render renders the grid
func (g *Gallery) Render(ctx context.Context) (string, error) {
	if len(g.images) == 0 {
		return "", nil
	}
	outs, err := RenderAll(ctx, g.images, g.workers)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for start := 0; start < len(outs); start += g.columns {
		if start > 0 {
			b.WriteString(strings.Repeat("\n", g.spacing+1))
		}
		b.WriteString(joinHorizontal(outs[start:min(start+g.columns, len(outs))], g.spacing))
	}
	return b.String(), nil
}

// joinHorizontal places rendered blocks side by side, padding short lines
// and short blocks with spaces
func joinHorizontal(blocks []string, spacing int) string {
	lines := make([][]string, len(blocks))
	widths := make([]int, len(blocks))
	height := 0
	for i, block := range blocks {
		lines[i] = strings.Split(block, "\n")
		height = max(height, len(lines[i]))
		for _, l := range lines[i] {
			widths[i] = max(widths[i], ansi.StringWidth(l))
		}
	}

	gap := strings.Repeat(" ", spacing)
	var b strings.Builder
	for row := range height {
		if row > 0 {
			b.WriteByte('\n')
		}
		for i := range blocks {
			if i > 0 {
				b.WriteString(gap)
			}
			var l string
			if row < len(lines[i]) {
				l = lines[i][row]
			}
			b.WriteString(l)
			if i < len(blocks)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-ansi.StringWidth(l)))
			}
		}
	}
	return b.String()
}
