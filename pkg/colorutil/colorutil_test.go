package colorutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLuminance(t *testing.T) {
	assert.InDelta(t, 0, Luminance(Black), 1e-9)
	assert.InDelta(t, 255, Luminance(White), 1e-9)
	assert.InDelta(t, 0.587*255, Luminance(color.RGBA{G: 255, A: 255}), 1e-6)
}

func TestContrast(t *testing.T) {
	assert.Equal(t, Black, Contrast(Yellow))
	assert.Equal(t, White, Contrast(color.RGBA{B: 255, A: 255}))
	assert.Equal(t, Black, Contrast(White))
}

func TestOpaque(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 1, G: 2, B: 3, A: 255}, Opaque(color.NRGBA{R: 1, G: 2, B: 3}))
}
