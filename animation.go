package termimage

import (
	"bytes"
	"image"
	"image/draw"
	"time"
)

// Animation is a multi-frame pixel source
type Animation interface {
	// Len is the number of frames, at least 1
	Len() int
	// Loops is the source's own repeat count: 0 plays a single frame,
	// negative loops forever, N plays N passes
	Loops() int
	Bounds() image.Rectangle
	// Open returns a reader that holds whatever decoder state the frames
	// need. The caller must Close it.
	Open() (FrameReader, error)
}

// FrameReader produces fully composited frames of an Animation. A returned
// frame must not be modified afterwards.
type FrameReader interface {
	Frame(i int) (image.Image, time.Duration, error)
	Close() error
}

// Frame is one yielded animation frame. It is never mutated once yielded.
type Frame struct {
	Image    image.Image
	Duration time.Duration
	Index    int
	// Unchanged is set when the pixels equal the previously yielded frame
	Unchanged bool
}

// Still wraps a single image as a one frame Animation
func Still(img image.Image) Animation {
	return still{img: img}
}

type still struct{ img image.Image }

func (s still) Len() int                   { return 1 }
func (s still) Loops() int                 { return 0 }
func (s still) Bounds() image.Rectangle    { return s.img.Bounds() }
func (s still) Open() (FrameReader, error) { return s, nil }
func (s still) Close() error               { return nil }

func (s still) Frame(i int) (image.Image, time.Duration, error) {
	if i != 0 {
		return nil, 0, WrapInvalidSize("frame %d of 1", i)
	}
	return s.img, 0, nil
}

// samePixels reports whether a and b hold identical pixels
func samePixels(a, b image.Image) bool {
	if a == nil || b == nil {
		return false
	}
	if a == b {
		return true
	}
	if a.Bounds() != b.Bounds() {
		return false
	}
	switch x := a.(type) {
	case *image.NRGBA:
		if y, ok := b.(*image.NRGBA); ok && x.Stride == y.Stride {
			return bytes.Equal(x.Pix, y.Pix)
		}
	case *image.RGBA:
		if y, ok := b.(*image.RGBA); ok && x.Stride == y.Stride {
			return bytes.Equal(x.Pix, y.Pix)
		}
	}
	r := a.Bounds()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			r1, g1, b1, a1 := a.At(x, y).RGBA()
			r2, g2, b2, a2 := b.At(x, y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				return false
			}
		}
	}
	return true
}

func cloneNRGBA(src *image.NRGBA) *image.NRGBA {
	dst := image.NewNRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	dst := image.NewNRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	return dst
}
