package termimage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderAll(t *testing.T) {
	term, dev := blockTerminal(t)

	var images []*Image
	var want []string
	for i := range 12 {
		img := New(createTestImage(4+i, 4)).Terminal(term).Width(4 + i)
		s, err := img.Render()
		require.NoError(t, err)
		images = append(images, img)
		want = append(want, s)
	}

	got, err := RenderAll(context.Background(), images, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Empty(t, dev.written())
}

func TestRenderAllError(t *testing.T) {
	term, _ := blockTerminal(t)
	images := []*Image{
		New(createTestImage(4, 4)).Terminal(term),
		New(createTestImage(4, 4)).Terminal(term).Width(0),
		nil,
	}

	_, err := RenderAll(context.Background(), images, 1)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestRenderAllCancelled(t *testing.T) {
	term, _ := blockTerminal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RenderAll(ctx, []*Image{New(createTestImage(4, 4)).Terminal(term)}, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
