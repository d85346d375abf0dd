package termimage

import (
	"errors"
	"image"
	"io"
	"iter"
	"sync"
	"time"
)

// IterState is the lifecycle state of an Iterator
type IterState int

const (
	StateCreated IterState = iota
	StateIterating
	StateExhausted
	StateClosed
)

func (s IterState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateIterating:
		return "iterating"
	case StateExhausted:
		return "exhausted"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type cachedFrame struct {
	img   image.Image
	delay time.Duration
}

// Iterator walks the frames of an Animation.
//
// repeat follows the loop convention: 0 yields exactly one frame (the first
// or the sought one), a negative value loops forever and N yields N full
// passes. When the animation repeats and is short enough, the first pass is
// kept in memory and the decoder is released.
type Iterator struct {
	anim       Animation
	repeat     int
	cacheLimit int

	mu      sync.Mutex
	state   IterState
	reader  FrameReader
	pos     int
	pass    int
	yielded int
	seeked  bool
	prev    image.Image
	cache   []*cachedFrame
	cached  int
}

// IteratorOption configures an Iterator
type IteratorOption func(*Iterator)

// WithCacheLimit caps the number of frames kept in memory between passes
func WithCacheLimit(n int) IteratorOption {
	return func(it *Iterator) { it.cacheLimit = n }
}

// NewIterator prepares a frame iterator. No decoding happens until Next.
func NewIterator(anim Animation, repeat int, opts ...IteratorOption) *Iterator {
	it := &Iterator{
		anim:       anim,
		repeat:     repeat,
		cacheLimit: DefaultCacheLimit,
	}
	for _, opt := range opts {
		opt(it)
	}
	if repeat != 0 && repeat != 1 && anim.Len() <= it.cacheLimit {
		it.cache = make([]*cachedFrame, anim.Len())
	}
	return it
}

// State returns the current lifecycle state
func (it *Iterator) State() IterState {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.state
}

// Next returns the next frame or io.EOF once the repeat count is used up.
// Reaching the end closes the underlying reader.
func (it *Iterator) Next() (*Frame, error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	switch it.state {
	case StateClosed:
		return nil, ErrIteratorClosed
	case StateExhausted:
		return nil, io.EOF
	case StateCreated:
		if err := it.open(); err != nil {
			it.shutdown(StateClosed)
			return nil, err
		}
		it.state = StateIterating
	}

	if it.repeat == 0 && it.yielded >= 1 {
		it.shutdown(StateExhausted)
		return nil, io.EOF
	}
	if it.pos >= it.anim.Len() {
		it.pass++
		if it.repeat > 0 && it.pass >= it.repeat {
			it.shutdown(StateExhausted)
			return nil, io.EOF
		}
		it.pos = 0
	}

	img, delay, err := it.frame(it.pos)
	if err != nil {
		it.shutdown(StateClosed)
		return nil, err
	}

	f := &Frame{
		Image:     img,
		Duration:  delay,
		Index:     it.pos,
		Unchanged: !it.seeked && samePixels(it.prev, img),
	}
	it.seeked = false
	it.prev = img
	it.pos++
	it.yielded++
	return f, nil
}

// Seek makes frame i the next one Next returns
func (it *Iterator) Seek(i int) error {
	it.mu.Lock()
	defer it.mu.Unlock()

	switch it.state {
	case StateClosed, StateExhausted:
		return ErrIteratorClosed
	}
	if i < 0 || i >= it.anim.Len() {
		return WrapInvalidSize("seek to frame %d of %d", i, it.anim.Len())
	}
	it.pos = i
	it.seeked = true
	if it.repeat == 0 {
		it.yielded = 0
	}
	return nil
}

// Close releases the decoder and any cached frames. It is idempotent.
func (it *Iterator) Close() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.state == StateClosed {
		return nil
	}
	return it.shutdown(StateClosed)
}

// All ranges over the remaining frames and closes the iterator when the
// loop ends, whether by exhaustion, break or error
func (it *Iterator) All() iter.Seq2[*Frame, error] {
	return func(yield func(*Frame, error) bool) {
		defer it.Close()
		for {
			f, err := it.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(f, err) || err != nil {
				return
			}
		}
	}
}

func (it *Iterator) open() error {
	r, err := it.anim.Open()
	if err != nil {
		return WrapDecode(err)
	}
	it.reader = r
	return nil
}

func (it *Iterator) frame(i int) (image.Image, time.Duration, error) {
	if it.cache != nil && it.cache[i] != nil {
		return it.cache[i].img, it.cache[i].delay, nil
	}
	if it.reader == nil {
		if err := it.open(); err != nil {
			return nil, 0, err
		}
	}
	img, delay, err := it.reader.Frame(i)
	if err != nil {
		return nil, 0, WrapDecode(err)
	}
	if it.cache != nil {
		it.cache[i] = &cachedFrame{img: img, delay: delay}
		it.cached++
		if it.cached == len(it.cache) {
			// every frame is in memory, the decoder is no longer needed
			err := it.reader.Close()
			it.reader = nil
			if err != nil {
				logf().WithError(err).Debug("closing frame reader")
			}
		}
	}
	return img, delay, nil
}

func (it *Iterator) shutdown(state IterState) error {
	it.state = state
	it.cache = nil
	it.prev = nil
	if it.reader == nil {
		return nil
	}
	err := it.reader.Close()
	it.reader = nil
	return err
}
