package mask

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defect-synth/internal/pixbuf"
	"defect-synth/pkg/geometry"
)

func pts(xy ...float64) []geometry.Point2D {
	out := make([]geometry.Point2D, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, geometry.NewPoint2D(xy[i], xy[i+1]))
	}
	return out
}

func TestExtractSquare(t *testing.T) {
	src := pixbuf.NewFilled(100, 100, pixbuf.RGB, color.NRGBA{R: 12, G: 34, B: 56})

	out, rect, err := Extract(src, pts(10, 10, 90, 10, 90, 90, 10, 90))
	require.NoError(t, err)
	assert.Equal(t, geometry.RectInt{X: 10, Y: 10, Width: 80, Height: 80}, rect)
	require.Equal(t, 80, out.Width)
	require.Equal(t, 80, out.Height)
	assert.Equal(t, pixbuf.RGBA, out.Channels)

	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			require.Equal(t, color.NRGBA{R: 12, G: 34, B: 56, A: 255}, out.At(x, y), "pixel %d,%d", x, y)
		}
	}
}

func TestBuildRejectsDegenerate(t *testing.T) {
	_, _, err := Build(pts(10, 10, 50, 50), 100, 100)
	assert.ErrorIs(t, err, ErrInvalidPolygon)

	_, _, err = Build(pts(0, 0, 10, 10, 20, 20), 100, 100)
	assert.ErrorIs(t, err, ErrInvalidPolygon, "collinear")

	_, _, err = Build(pts(200, 200, 300, 200, 300, 300), 100, 100)
	assert.ErrorIs(t, err, ErrInvalidPolygon, "outside the buffer")
}

func TestBuildTriangle(t *testing.T) {
	m, rect, err := Build(pts(0, 0, 60, 0, 0, 60), 100, 100)
	require.NoError(t, err)
	assert.Equal(t, geometry.RectInt{X: 0, Y: 0, Width: 60, Height: 60}, rect)

	assert.True(t, m.At(10, 10))
	assert.True(t, m.At(0, 0))
	assert.False(t, m.At(50, 50))
	assert.False(t, m.At(70, 5), "outside the bounding rectangle")

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.At(x, y) {
				require.True(t, rect.Contains(x, y), "pixel %d,%d set outside rect", x, y)
			}
		}
	}
}

func TestBuildConcave(t *testing.T) {
	m, _, err := Build(pts(0, 0, 40, 0, 40, 20, 20, 20, 20, 40, 0, 40), 50, 50)
	require.NoError(t, err)

	assert.True(t, m.At(5, 5))
	assert.True(t, m.At(30, 10))
	assert.True(t, m.At(10, 30))
	assert.False(t, m.At(30, 30), "notch of the L")
}

func TestBuildClipsToBuffer(t *testing.T) {
	m, rect, err := Build(pts(-20, -20, 50, -20, 50, 50, -20, 50), 30, 30)
	require.NoError(t, err)
	assert.Equal(t, geometry.RectInt{X: 0, Y: 0, Width: 30, Height: 30}, rect)
	assert.Equal(t, 30*30, m.Count())
}

type recordingRasterizer struct {
	poly []geometry.Point2D
	clip geometry.RectInt
}

func (r *recordingRasterizer) Rasterize(poly []geometry.Point2D, w, h int, clip geometry.RectInt) (*Mask, error) {
	r.poly = poly
	r.clip = clip
	return NewMask(w, h), nil
}

func TestBuildWithPassesFloatVertices(t *testing.T) {
	rec := &recordingRasterizer{}
	poly := pts(1.7, 2.2, 20.9, 2.5, 10.1, 30.99)
	_, rect, err := BuildWith(rec, poly, 64, 64)
	require.NoError(t, err)

	assert.Equal(t, poly, rec.poly)
	assert.Equal(t, rect, rec.clip)
	assert.Equal(t, geometry.RectInt{X: 1, Y: 2, Width: 20, Height: 29}, rect)
}

func TestBuildFractionalSquareKeepsInterior(t *testing.T) {
	poly := pts(10.6, 10.6, 60.9, 10.6, 60.9, 60.9, 10.6, 60.9)
	m, rect, err := Build(poly, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, geometry.RectInt{X: 10, Y: 10, Width: 51, Height: 51}, rect)

	for y := 11; y <= 60; y++ {
		for x := 11; x <= 60; x++ {
			c := geometry.NewPoint2D(float64(x)+0.5, float64(y)+0.5)
			if geometry.PointInPolygon(c, poly) {
				require.True(t, m.At(x, y), "pixel %d,%d has its centre inside", x, y)
			}
		}
	}
	assert.True(t, m.At(60, 30))
	assert.True(t, m.At(10, 30), "boundary pixel")
	assert.False(t, m.At(61, 30))
}

func TestBuildReachesLastRowAndColumn(t *testing.T) {
	m, rect, err := Build(pts(50, 50, 100, 50, 100, 100, 50, 100), 100, 100)
	require.NoError(t, err)
	assert.Equal(t, geometry.RectInt{X: 50, Y: 50, Width: 50, Height: 50}, rect)
	assert.True(t, m.At(99, 99))
}

func TestBuildTinyPolygon(t *testing.T) {
	m, rect, err := Build(pts(5.1, 5.1, 5.9, 5.2, 5.5, 5.8), 100, 100)
	require.NoError(t, err)
	assert.Equal(t, geometry.RectInt{X: 5, Y: 5, Width: 1, Height: 1}, rect)
	assert.Equal(t, 1, m.Count())
}

func TestCropTransparentOutsidePolygon(t *testing.T) {
	src := pixbuf.NewFilled(20, 20, pixbuf.RGBA, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	m, rect, err := Build(pts(0, 0, 19, 0, 0, 19), 20, 20)
	require.NoError(t, err)

	out, err := Crop(src, m, rect)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), out.At(1, 1).A)
	assert.Equal(t, uint8(0), out.At(17, 17).A)
}

func TestCropSizeMismatch(t *testing.T) {
	src := pixbuf.New(10, 10, pixbuf.RGB)
	_, err := Crop(src, NewMask(5, 5), geometry.RectInt{Width: 5, Height: 5})
	assert.ErrorIs(t, err, ErrSizeMismatch)
}
