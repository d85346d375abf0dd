package termimage

import (
	"errors"
	"image"
	"image/color"
	"image/gif"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingAnim records how often frames are decoded and readers released
type countingAnim struct {
	Animation
	opens  atomic.Int32
	reads  atomic.Int32
	closes atomic.Int32
	fail   int
}

func (c *countingAnim) Open() (FrameReader, error) {
	r, err := c.Animation.Open()
	if err != nil {
		return nil, err
	}
	c.opens.Add(1)
	return &countingReader{FrameReader: r, anim: c}, nil
}

type countingReader struct {
	FrameReader
	anim *countingAnim
}

func (r *countingReader) Frame(i int) (image.Image, time.Duration, error) {
	r.anim.reads.Add(1)
	if r.anim.fail > 0 && i == r.anim.fail {
		return nil, 0, errors.New("truncated frame")
	}
	return r.FrameReader.Frame(i)
}

func (r *countingReader) Close() error {
	r.anim.closes.Add(1)
	return r.FrameReader.Close()
}

func mustGIF(t *testing.T, g *gif.GIF) *GIF {
	t.Helper()
	a, err := NewGIF(g)
	require.NoError(t, err)
	return a
}

func drain(t *testing.T, it *Iterator) []int {
	t.Helper()
	var idx []int
	for {
		f, err := it.Next()
		if errors.Is(err, io.EOF) {
			return idx
		}
		require.NoError(t, err)
		idx = append(idx, f.Index)
	}
}

func TestIteratorRepeat(t *testing.T) {
	tests := []struct {
		name   string
		repeat int
		want   []int
	}{
		{name: "single frame", repeat: 0, want: []int{0}},
		{name: "one pass", repeat: 1, want: []int{0, 1, 2}},
		{name: "two passes", repeat: 2, want: []int{0, 1, 2, 0, 1, 2}},
		{name: "three passes", repeat: 3, want: []int{0, 1, 2, 0, 1, 2, 0, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			anim := &countingAnim{Animation: mustGIF(t, testGIF(3, 0, 5))}
			it := NewIterator(anim, tt.repeat)
			assert.Equal(t, StateCreated, it.State())

			assert.Equal(t, tt.want, drain(t, it))
			assert.Equal(t, StateExhausted, it.State())
			assert.Equal(t, anim.opens.Load(), anim.closes.Load(), "reader released at exhaustion")

			_, err := it.Next()
			assert.ErrorIs(t, err, io.EOF)
			require.NoError(t, it.Close())
			assert.Equal(t, StateClosed, it.State())
		})
	}
}

func TestIteratorInfinite(t *testing.T) {
	it := NewIterator(mustGIF(t, testGIF(3, 0, 5)), -1)
	for i := range 10 {
		f, err := it.Next()
		require.NoError(t, err)
		assert.Equal(t, i%3, f.Index)
		assert.Equal(t, 50*time.Millisecond, f.Duration)
		assert.Equal(t, StateIterating, it.State())
	}
	require.NoError(t, it.Close())
	require.NoError(t, it.Close(), "close is idempotent")
	assert.Equal(t, StateClosed, it.State())

	_, err := it.Next()
	assert.ErrorIs(t, err, ErrIteratorClosed)
}

func TestIteratorSeek(t *testing.T) {
	it := NewIterator(mustGIF(t, testGIF(4, 0, 0)), 1)
	require.NoError(t, it.Seek(2))

	f, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, f.Index)
	assert.False(t, f.Unchanged)

	assert.ErrorIs(t, it.Seek(4), ErrInvalidSize)
	assert.ErrorIs(t, it.Seek(-1), ErrInvalidSize)

	require.NoError(t, it.Seek(0))
	assert.Equal(t, []int{0, 1, 2, 3}, drain(t, it))

	require.NoError(t, it.Close())
	assert.ErrorIs(t, it.Seek(0), ErrIteratorClosed)
}

func TestIteratorSeekRenderOnly(t *testing.T) {
	it := NewIterator(mustGIF(t, testGIF(4, 0, 0)), 0)
	defer it.Close()

	require.NoError(t, it.Seek(3))
	assert.Equal(t, []int{3}, drain(t, it))
}

func TestIteratorUnchanged(t *testing.T) {
	g := testGIF(3, 0, 0)
	// frames 0 and 1 are both red
	g.Image[1] = palettedFrame(image.Rect(0, 0, 4, 4), 1)
	it := NewIterator(mustGIF(t, g), 2)
	defer it.Close()

	var unchanged []bool
	for f, err := range it.All() {
		require.NoError(t, err)
		unchanged = append(unchanged, f.Unchanged)
	}
	assert.Equal(t, []bool{false, true, false, false, true, false}, unchanged)
	assert.Equal(t, StateClosed, it.State())
}

func TestIteratorSeekClearsUnchanged(t *testing.T) {
	g := testGIF(2, 0, 0)
	g.Image[1] = palettedFrame(image.Rect(0, 0, 4, 4), 1)
	it := NewIterator(mustGIF(t, g), -1)
	defer it.Close()

	_, err := it.Next()
	require.NoError(t, err)
	require.NoError(t, it.Seek(1))
	f, err := it.Next()
	require.NoError(t, err)
	assert.False(t, f.Unchanged)

	f, err = it.Next()
	require.NoError(t, err)
	assert.True(t, f.Unchanged)
}

func TestIteratorCache(t *testing.T) {
	anim := &countingAnim{Animation: mustGIF(t, testGIF(4, 0, 0))}
	it := NewIterator(anim, 3)

	assert.Len(t, drain(t, it), 12)
	assert.EqualValues(t, 4, anim.reads.Load(), "later passes come from memory")
	assert.EqualValues(t, 1, anim.closes.Load())

	anim = &countingAnim{Animation: mustGIF(t, testGIF(4, 0, 0))}
	it = NewIterator(anim, 3, WithCacheLimit(2))
	assert.Len(t, drain(t, it), 12)
	assert.EqualValues(t, 12, anim.reads.Load(), "too long to cache")
	assert.EqualValues(t, 1, anim.closes.Load())
}

func TestIteratorCacheReleasesReaderEarly(t *testing.T) {
	anim := &countingAnim{Animation: mustGIF(t, testGIF(2, 0, 0))}
	it := NewIterator(anim, -1)
	defer it.Close()

	for range 2 {
		_, err := it.Next()
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, anim.closes.Load(), "released once every frame is cached")

	for range 5 {
		_, err := it.Next()
		require.NoError(t, err)
	}
	assert.EqualValues(t, 2, anim.reads.Load())
}

func TestIteratorDecodeError(t *testing.T) {
	anim := &countingAnim{Animation: mustGIF(t, testGIF(3, 0, 0)), fail: 2}
	it := NewIterator(anim, 1)

	_, err := it.Next()
	require.NoError(t, err)
	_, err = it.Next()
	require.NoError(t, err)
	_, err = it.Next()
	assert.ErrorIs(t, err, ErrDecode)
	assert.Equal(t, StateClosed, it.State())
	assert.EqualValues(t, 1, anim.closes.Load())
}

func TestIteratorAllBreak(t *testing.T) {
	anim := &countingAnim{Animation: mustGIF(t, testGIF(3, 0, 0))}
	it := NewIterator(anim, -1)

	n := 0
	for _, err := range it.All() {
		require.NoError(t, err)
		n++
		if n == 5 {
			break
		}
	}
	assert.Equal(t, 5, n)
	assert.Equal(t, StateClosed, it.State())
	assert.Equal(t, anim.opens.Load(), anim.closes.Load())
}

func TestStill(t *testing.T) {
	img := createTestImage(3, 2)
	it := NewIterator(Still(img), Still(img).Loops())

	f, err := it.Next()
	require.NoError(t, err)
	assert.Same(t, img, f.Image)
	_, err = it.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestGIFLoops(t *testing.T) {
	tests := []struct {
		loopCount int
		want      int
	}{
		{loopCount: 0, want: -1},
		{loopCount: -1, want: 1},
		{loopCount: 1, want: 2},
		{loopCount: 4, want: 5},
	}
	for _, tt := range tests {
		a := mustGIF(t, testGIF(2, tt.loopCount, 0))
		assert.Equal(t, tt.want, a.Loops(), "loop count %d", tt.loopCount)
	}
}

func TestGIFDelay(t *testing.T) {
	g := testGIF(2, 0, 0)
	g.Delay[1] = 7
	a := mustGIF(t, g)
	assert.Equal(t, DefaultFrameDelay, a.Delay(0))
	assert.Equal(t, 70*time.Millisecond, a.Delay(1))
}

func TestGIFEmpty(t *testing.T) {
	_, err := NewGIF(&gif.GIF{})
	assert.ErrorIs(t, err, ErrDecode)
}

func TestGIFDisposal(t *testing.T) {
	full := image.Rect(0, 0, 4, 4)
	g := &gif.GIF{
		Config: image.Config{Width: 4, Height: 4, ColorModel: testPalette},
		Image: []*image.Paletted{
			palettedFrame(full, 1),
			palettedFrame(image.Rect(0, 0, 2, 2), 2),
			palettedFrame(image.Rect(2, 2, 4, 4), 3),
			palettedFrame(image.Rect(3, 0, 4, 1), 0),
		},
		Delay:    []int{0, 0, 0, 0},
		Disposal: []byte{gif.DisposalNone, gif.DisposalBackground, gif.DisposalPrevious, gif.DisposalNone},
	}
	a := mustGIF(t, g)
	r, err := a.Open()
	require.NoError(t, err)
	defer r.Close()

	red := color.NRGBA{0xff, 0, 0, 0xff}
	green := color.NRGBA{0, 0xff, 0, 0xff}
	blue := color.NRGBA{0, 0, 0xff, 0xff}
	none := color.NRGBA{}

	at := func(i, x, y int) color.NRGBA {
		img, _, err := r.Frame(i)
		require.NoError(t, err)
		return img.(*image.NRGBA).NRGBAAt(x, y)
	}

	assert.Equal(t, red, at(0, 0, 0))
	assert.Equal(t, green, at(1, 0, 0))
	assert.Equal(t, red, at(1, 3, 3))
	// frame 1 cleared its area to background
	assert.Equal(t, none, at(2, 0, 0))
	assert.Equal(t, blue, at(2, 3, 3))
	// frame 2 restored the canvas it found
	assert.Equal(t, red, at(3, 3, 3))
	assert.Equal(t, none, at(3, 1, 1))
	assert.Equal(t, red, at(3, 3, 0), "transparent pixels keep the canvas")
	// going backwards recomposites from the start
	assert.Equal(t, green, at(1, 1, 1))
}

func TestGIFFramesAreIndependent(t *testing.T) {
	r, err := mustGIF(t, testGIF(2, 0, 0)).Open()
	require.NoError(t, err)
	defer r.Close()

	first, _, err := r.Frame(0)
	require.NoError(t, err)
	second, _, err := r.Frame(1)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.False(t, samePixels(first, second))
}
