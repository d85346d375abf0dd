package termimage

import (
	"bytes"
	"encoding/base64"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkedBase64Encode(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, size := range []int{0, 1, 2, 3, RawChunkSize - 1, RawChunkSize, RawChunkSize + 1, 10 * RawChunkSize, 50*RawChunkSize + 7} {
		data := make([]byte, size)
		rng.Read(data)

		for name, encode := range map[string]func([]byte, int) []string{
			"serial":   ChunkedBase64Encode,
			"parallel": ParallelBase64Encode,
		} {
			chunks := encode(data, RawChunkSize)
			for _, c := range chunks[:len(chunks)-1] {
				assert.Len(t, c, ChunkSize, "%s/%d: inner chunks are full", name, size)
			}
			assert.LessOrEqual(t, len(chunks[len(chunks)-1]), ChunkSize)

			joined := strings.Join(chunks, "")
			assert.Equal(t, base64.StdEncoding.EncodeToString(data), joined, "%s/%d", name, size)

			decoded, err := base64.StdEncoding.DecodeString(joined)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(data, decoded))
		}
	}
}

func TestBase64Encode(t *testing.T) {
	assert.Equal(t, "AAAA", Base64Encode([]byte{0, 0, 0}))
	assert.Equal(t, "aGk=", Base64Encode([]byte("hi")))
	assert.Equal(t, "", Base64Encode(nil))
}
