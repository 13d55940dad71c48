package pixbuf

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLayout(t *testing.T) {
	b := New(7, 5, RGB)
	require.NoError(t, b.Validate())
	assert.Len(t, b.Pix, 7*5*3)

	b.Pix = b.Pix[:10]
	assert.ErrorIs(t, b.Validate(), ErrBadLayout)
}

func TestCloneDoesNotAlias(t *testing.T) {
	b := NewFilled(4, 4, RGBA, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	c := b.Clone()
	c.Set(0, 0, color.NRGBA{R: 200, A: 255})

	assert.Equal(t, uint8(10), b.At(0, 0).R)
	assert.Equal(t, uint8(200), c.At(0, 0).R)
}

func TestFromImageDropsAlphaForRGB(t *testing.T) {
	src := image.NewNRGBA(image.Rect(2, 3, 6, 7))
	src.SetNRGBA(2, 3, color.NRGBA{R: 100, G: 50, B: 25, A: 0})

	b, err := FromImage(src, RGB)
	require.NoError(t, err)
	assert.Equal(t, 4, b.Width)
	assert.Equal(t, 4, b.Height)
	assert.Equal(t, color.NRGBA{R: 100, G: 50, B: 25, A: 255}, b.At(0, 0))
}

func TestImageRoundTripRGBA(t *testing.T) {
	b := New(3, 2, RGBA)
	b.Set(2, 1, color.NRGBA{R: 1, G: 2, B: 3, A: 128})

	back, err := FromImage(b.Image(), RGBA)
	require.NoError(t, err)
	assert.Equal(t, b.Pix, back.Pix)
}

func TestWithChannels(t *testing.T) {
	b := NewFilled(2, 2, RGB, color.NRGBA{R: 9, G: 8, B: 7})
	rgba, err := b.WithChannels(RGBA)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 9, G: 8, B: 7, A: 255}, rgba.At(1, 1))
}

func TestResize(t *testing.T) {
	b := NewFilled(10, 10, RGB, color.NRGBA{R: 255})
	r, err := b.Resize(5, 20)
	require.NoError(t, err)
	assert.Equal(t, 5, r.Width)
	assert.Equal(t, 20, r.Height)
	assert.Equal(t, uint8(255), r.At(4, 19).R)

	_, err = b.Resize(0, 1)
	assert.Error(t, err)
}

func TestOutOfRangeAccess(t *testing.T) {
	b := New(2, 2, RGB)
	b.Set(5, 5, color.NRGBA{R: 1})
	assert.Equal(t, color.NRGBA{}, b.At(-1, 0))
}
