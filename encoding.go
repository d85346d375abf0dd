package termimage

import (
	"encoding/base64"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	// ChunkSize is the largest base64 payload carried by one kitty escape sequence
	ChunkSize = 4096
	// RawChunkSize is the number of raw bytes that encode to exactly ChunkSize chars
	RawChunkSize = ChunkSize / 4 * 3
	// DefaultEncodingWorkers bounds parallel chunk encoding
	DefaultEncodingWorkers = 4
)

var base64BufPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, ChunkSize)
		return &buf
	},
}

// Base64Encode encodes src with the standard, padded alphabet
func Base64Encode(src []byte) string {
	bufPtr := base64BufPool.Get().(*[]byte)
	defer base64BufPool.Put(bufPtr)

	n := base64.StdEncoding.EncodedLen(len(src))
	if cap(*bufPtr) < n {
		*bufPtr = make([]byte, n)
	}
	*bufPtr = (*bufPtr)[:n]
	base64.StdEncoding.Encode(*bufPtr, src)
	return string(*bufPtr)
}

// ChunkedBase64Encode encodes data in rawChunk sized pieces. When rawChunk
// is a multiple of 3, concatenating the chunks equals encoding data whole.
func ChunkedBase64Encode(data []byte, rawChunk int) []string {
	if len(data) == 0 {
		return []string{""}
	}
	chunks := make([]string, 0, (len(data)+rawChunk-1)/rawChunk)
	for i := 0; i < len(data); i += rawChunk {
		chunks = append(chunks, Base64Encode(data[i:min(i+rawChunk, len(data))]))
	}
	return chunks
}

// ParallelBase64Encode is ChunkedBase64Encode spread over a few goroutines
// for large payloads
func ParallelBase64Encode(data []byte, rawChunk int) []string {
	if len(data) <= rawChunk*8 {
		return ChunkedBase64Encode(data, rawChunk)
	}

	chunks := make([]string, (len(data)+rawChunk-1)/rawChunk)
	var g errgroup.Group
	g.SetLimit(DefaultEncodingWorkers)
	for i := range chunks {
		g.Go(func() error {
			start := i * rawChunk
			chunks[i] = Base64Encode(data[start:min(start+rawChunk, len(data))])
			return nil
		})
	}
	_ = g.Wait()
	return chunks
}
