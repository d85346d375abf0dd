package termimage

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
)

// DefaultAlphaThreshold is the alpha at or below which a pixel is transparent
const DefaultAlphaThreshold = 40.0 / 255.0

type transparencyMode int

const (
	modeDefault transparencyMode = iota
	modeThreshold
	modeBackground
	modeOpaque
)

// Transparency is the policy for pixels with alpha below 1.
// The zero value is AlphaThreshold(DefaultAlphaThreshold).
type Transparency struct {
	mode       transparencyMode
	threshold  uint8
	background color.NRGBA
}

// AlphaThreshold treats pixels with alpha <= t (0..1) as transparent
func AlphaThreshold(t float64) Transparency {
	t = math.Min(math.Max(t, 0), 1)
	return Transparency{mode: modeThreshold, threshold: uint8(math.Round(t * 255))}
}

// Background composites transparent pixels over c
func Background(c color.Color) Transparency {
	bg := color.NRGBAModel.Convert(c).(color.NRGBA)
	bg.A = 0xff
	return Transparency{mode: modeBackground, background: bg}
}

// BackgroundHex is Background for a "#rrggbb" color
func BackgroundHex(hex string) (Transparency, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return Transparency{}, fmt.Errorf("bad background color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return Background(color.NRGBA{R: r, G: g, B: b, A: 0xff}), nil
}

// DefaultBackground lets fully transparent pixels show the terminal's own
// background and draws every other pixel opaque
func DefaultBackground() Transparency {
	return Transparency{mode: modeThreshold, threshold: 0}
}

// Opaque ignores the alpha channel entirely
func Opaque() Transparency {
	return Transparency{mode: modeOpaque}
}

func (t Transparency) String() string {
	switch t.mode {
	case modeThreshold:
		return fmt.Sprintf("threshold(%.3f)", float64(t.threshold)/255)
	case modeBackground:
		return fmt.Sprintf("background(#%02x%02x%02x)", t.background.R, t.background.G, t.background.B)
	case modeOpaque:
		return "opaque"
	default:
		return fmt.Sprintf("threshold(%.3f)", DefaultAlphaThreshold)
	}
}

// keepsAlpha reports whether frames prepared under t may carry transparency
func (t Transparency) keepsAlpha() bool {
	return t.mode == modeDefault || t.mode == modeThreshold
}

func (t Transparency) normalize() Transparency {
	if t.mode == modeDefault {
		return AlphaThreshold(DefaultAlphaThreshold)
	}
	return t
}

// prepareFrame scales src to w x h pixels, through cache when it is set, and
// applies the transparency policy. The result is never the caller's image.
func prepareFrame(src image.Image, w, h int, t Transparency, cache *ResizeCache) *image.NRGBA {
	scaled := resizeWith(cache, src, w, h)

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	t = t.normalize()
	if t.mode == modeBackground {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(t.background), image.Point{}, draw.Src)
		draw.Draw(dst, dst.Bounds(), scaled, scaled.Bounds().Min, draw.Over)
		return dst
	}
	draw.Draw(dst, dst.Bounds(), scaled, scaled.Bounds().Min, draw.Src)

	pix := dst.Pix
	for i := 3; i < len(pix); i += 4 {
		switch {
		case t.mode == modeOpaque:
			pix[i] = 0xff
		case pix[i] <= t.threshold:
			pix[i-3], pix[i-2], pix[i-1], pix[i] = 0, 0, 0, 0
		case t.threshold == 0:
			pix[i] = 0xff
		}
	}
	return dst
}
