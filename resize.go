package termimage

import (
	"container/list"
	"image"
	"reflect"
	"sync"

	"github.com/nfnt/resize"
)

// DefaultResizeCacheSize is the number of scaled frames a cache keeps when
// no size is given
const DefaultResizeCacheSize = 100

type resizeKey struct {
	src  uintptr
	w, h int
}

// resizeEntry pins its source so the address in key cannot be reused
type resizeEntry struct {
	key resizeKey
	src image.Image
	img image.Image
}

// ResizeCache is an LRU of scaled images keyed by source identity and size.
// Only pointer-backed images are cached; their pixels must not change while
// cached. An animated Image owns one for the frames its iterators decode;
// caller supplied images are never cached.
type ResizeCache struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List
	entries map[resizeKey]*list.Element
	hits    int
	misses  int
}

// NewResizeCache returns an empty cache holding at most size images
func NewResizeCache(size int) *ResizeCache {
	if size <= 0 {
		size = DefaultResizeCacheSize
	}
	return &ResizeCache{
		maxSize: size,
		order:   list.New(),
		entries: make(map[resizeKey]*list.Element),
	}
}

// Resize scales img to exactly w x h pixels
func (rc *ResizeCache) Resize(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}

	v := reflect.ValueOf(img)
	if v.Kind() != reflect.Pointer {
		return scale(img, w, h)
	}
	key := resizeKey{src: v.Pointer(), w: w, h: h}

	rc.mu.Lock()
	if el, ok := rc.entries[key]; ok {
		rc.order.MoveToFront(el)
		rc.hits++
		rc.mu.Unlock()
		return el.Value.(*resizeEntry).img
	}
	rc.misses++
	rc.mu.Unlock()

	scaled := scale(img, w, h)

	rc.mu.Lock()
	defer rc.mu.Unlock()
	if el, ok := rc.entries[key]; ok {
		rc.order.MoveToFront(el)
		return el.Value.(*resizeEntry).img
	}
	rc.entries[key] = rc.order.PushFront(&resizeEntry{key: key, src: img, img: scaled})
	for rc.order.Len() > rc.maxSize {
		oldest := rc.order.Back()
		rc.order.Remove(oldest)
		delete(rc.entries, oldest.Value.(*resizeEntry).key)
	}
	return scaled
}

// Stats returns cache hits, misses and current size
func (rc *ResizeCache) Stats() (hits, misses, size int) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.hits, rc.misses, rc.order.Len()
}

// Clear empties the cache
func (rc *ResizeCache) Clear() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.order.Init()
	rc.entries = make(map[resizeKey]*list.Element)
	rc.hits, rc.misses = 0, 0
}

// resizeWith scales through rc, or directly when rc is nil
func resizeWith(rc *ResizeCache, img image.Image, w, h int) image.Image {
	if rc == nil {
		b := img.Bounds()
		if b.Dx() == w && b.Dy() == h {
			return img
		}
		return scale(img, w, h)
	}
	return rc.Resize(img, w, h)
}

func scale(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	// bilinear when shrinking a lot, nearest neighbour otherwise
	interp := resize.NearestNeighbor
	if b.Dx()*b.Dy() > w*h*4 {
		interp = resize.Bilinear
	}
	return resize.Resize(uint(w), uint(h), img, interp)
}
