package termimage

import (
	"image"
	"math"
)

// Fit decides how unset dimensions are derived
type Fit int

const (
	// FitContain uses the largest aspect-preserving size inside the bounds
	FitContain Fit = iota
	// FitExact fills the bound width and derives the height
	FitExact
	// FitOriginal uses the backend's native size for the source
	FitOriginal
	// FitAuto uses the native size when it fits inside the bounds, else contains
	FitAuto
)

func (f Fit) String() string {
	switch f {
	case FitContain:
		return "contain"
	case FitExact:
		return "exact"
	case FitOriginal:
		return "original"
	case FitAuto:
		return "auto"
	default:
		return "unknown"
	}
}

// HAlign is the horizontal alignment inside a padded box
type HAlign int

const (
	AlignLeft HAlign = iota
	AlignCenter
	AlignRight
)

// VAlign is the vertical alignment inside a padded box
type VAlign int

const (
	AlignTop VAlign = iota
	AlignMiddle
	AlignBottom
)

// RenderSpec describes the requested size and placement of an image, in cells.
// Zero Width/Height mean unset; zero scales mean 1.
type RenderSpec struct {
	Width     int
	Height    int
	ScaleX    float64
	ScaleY    float64
	Fit       Fit
	HAlign    HAlign
	VAlign    VAlign
	PadWidth  int
	PadHeight int
}

// Validate rejects negative sizes and scales outside (0,1]
func (s RenderSpec) Validate() error {
	if s.Width < 0 || s.Height < 0 {
		return WrapInvalidSize("size must be positive, got %dx%d", s.Width, s.Height)
	}
	if s.PadWidth < 0 || s.PadHeight < 0 {
		return WrapInvalidSize("padding must be positive, got %dx%d", s.PadWidth, s.PadHeight)
	}
	for _, sc := range []float64{s.ScaleX, s.ScaleY} {
		if math.IsNaN(sc) || sc < 0 || sc > 1 {
			return WrapInvalidSize("scale must be in (0, 1], got %v", sc)
		}
	}
	return nil
}

// Bounds is the box, in cells, that contain-style fits must stay inside
type Bounds struct {
	Cols int
	Rows int
}

// Geometry is a resolved render size plus the padding around it
type Geometry struct {
	Cols      int
	Rows      int
	PadLeft   int
	PadRight  int
	PadTop    int
	PadBottom int
}

// Width is the padded width in cells
func (g Geometry) Width() int { return g.PadLeft + g.Cols + g.PadRight }

// Height is the padded height in cells
func (g Geometry) Height() int { return g.PadTop + g.Rows + g.PadBottom }

// PixelSize is the pixel area covered by the render cells
func (g Geometry) PixelSize(cellW, cellH int) image.Point {
	if cellW <= 0 {
		cellW = DefaultCellWidth
	}
	if cellH <= 0 {
		cellH = DefaultCellHeight
	}
	return image.Pt(g.Cols*cellW, g.Rows*cellH)
}

// NativeSize is the cell size at which a style shows the source unscaled.
// Block maps one pixel column to one cell and a pixel row pair to one cell at
// the default font ratio; graphics protocols cover the source's pixels with
// whole cells.
func NativeSize(style Style, src image.Point, cellW, cellH int, fontRatio float64) image.Point {
	if src.X <= 0 || src.Y <= 0 {
		return image.Point{}
	}
	if style == Block {
		if fontRatio <= 0 {
			fontRatio = DefaultFontRatio
		}
		return image.Pt(src.X, max(1, int(math.Ceil(float64(src.Y)*fontRatio))))
	}
	if cellW <= 0 {
		cellW = DefaultCellWidth
	}
	if cellH <= 0 {
		cellH = DefaultCellHeight
	}
	return image.Pt(ceilDiv(src.X, cellW), ceilDiv(src.Y, cellH))
}

// Resolve computes the cell size and padding of a render.
//
// An explicit width and height win. A single explicit dimension derives the
// other from the source aspect corrected by fontRatio (cell width / cell
// height): rows = cols * (h/w) * fontRatio, cols = rows * (w/h) / fontRatio.
// Otherwise spec.Fit decides using bounds and native. Scales are applied
// last and truncated, never below one cell.
func Resolve(spec RenderSpec, src image.Point, bounds Bounds, fontRatio float64, native image.Point) (Geometry, error) {
	if src.X <= 0 || src.Y <= 0 {
		return Geometry{}, WrapInvalidSize("source is %dx%d", src.X, src.Y)
	}
	if err := spec.Validate(); err != nil {
		return Geometry{}, err
	}
	if fontRatio <= 0 || math.IsNaN(fontRatio) || math.IsInf(fontRatio, 0) {
		fontRatio = DefaultFontRatio
	}

	aspect := float64(src.Y) / float64(src.X)
	rowsFor := func(cols int) int { return roundCells(float64(cols) * aspect * fontRatio) }
	colsFor := func(rows int) int { return roundCells(float64(rows) / aspect / fontRatio) }

	var cols, rows int
	switch {
	case spec.Width > 0 && spec.Height > 0:
		cols, rows = spec.Width, spec.Height
	case spec.Width > 0:
		cols, rows = spec.Width, rowsFor(spec.Width)
	case spec.Height > 0:
		cols, rows = colsFor(spec.Height), spec.Height
	default:
		switch spec.Fit {
		case FitOriginal:
			if native.X <= 0 || native.Y <= 0 {
				return Geometry{}, WrapInvalidSize("no native size for %dx%d source", src.X, src.Y)
			}
			cols, rows = native.X, native.Y
		case FitExact:
			if bounds.Cols <= 0 {
				return Geometry{}, WrapInvalidSize("no bounds to fit, got %dx%d", bounds.Cols, bounds.Rows)
			}
			cols, rows = bounds.Cols, rowsFor(bounds.Cols)
		case FitAuto:
			if native.X > 0 && native.Y > 0 && native.X <= bounds.Cols && native.Y <= bounds.Rows {
				cols, rows = native.X, native.Y
				break
			}
			fallthrough
		default:
			if bounds.Cols <= 0 || bounds.Rows <= 0 {
				return Geometry{}, WrapInvalidSize("no bounds to fit, got %dx%d", bounds.Cols, bounds.Rows)
			}
			cols, rows = bounds.Cols, rowsFor(bounds.Cols)
			if rows > bounds.Rows {
				rows = bounds.Rows
				cols = min(colsFor(rows), bounds.Cols)
			}
		}
	}

	cols = applyScale(cols, spec.ScaleX)
	rows = applyScale(rows, spec.ScaleY)

	g := Geometry{Cols: cols, Rows: rows}
	g.PadLeft, g.PadRight = PadH(spec.PadWidth, cols, spec.HAlign)
	g.PadTop, g.PadBottom = PadV(spec.PadHeight, rows, spec.VAlign)
	return g, nil
}

// PadH splits the horizontal room left over in a box of total cells
func PadH(total, content int, align HAlign) (left, right int) {
	extra := total - content
	if extra <= 0 {
		return 0, 0
	}
	switch align {
	case AlignLeft:
		return 0, extra
	case AlignRight:
		return extra, 0
	default:
		left = extra / 2
		return left, extra - left
	}
}

// PadV splits the vertical room left over in a box of total cells
func PadV(total, content int, align VAlign) (top, bottom int) {
	extra := total - content
	if extra <= 0 {
		return 0, 0
	}
	switch align {
	case AlignTop:
		return 0, extra
	case AlignBottom:
		return extra, 0
	default:
		top = extra / 2
		return top, extra - top
	}
}

func applyScale(n int, scale float64) int {
	if scale <= 0 || scale >= 1 {
		return n
	}
	return max(1, int(float64(n)*scale))
}

func roundCells(v float64) int {
	return max(1, int(math.Round(v)))
}

func ceilDiv(a, b int) int {
	return max(1, (a+b-1)/b)
}
