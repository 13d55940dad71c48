package app

import (
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defect-synth/internal/codec"
	"defect-synth/internal/mask"
	"defect-synth/internal/pixbuf"
	"defect-synth/internal/region"
	"defect-synth/pkg/geometry"
)

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
)

func encodePNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	data, err := codec.Encode(pixbuf.NewFilled(w, h, pixbuf.RGB, c), codec.FormatPNG, codec.Options{})
	require.NoError(t, err)
	return data
}

func loaded(t *testing.T) *State {
	t.Helper()
	s := NewState()
	require.NoError(t, s.LoadSource(encodePNG(t, 100, 100, blue)))
	require.NoError(t, s.LoadTarget(encodePNG(t, 200, 200, white)))
	return s
}

func drawSquare(s *State) {
	for _, p := range []geometry.Point2D{{X: 10, Y: 10}, {X: 90, Y: 10}, {X: 90, Y: 90}, {X: 10, Y: 90}} {
		s.AddSourceVertex(p)
	}
}

func TestFinalizePlacesRegionAtTargetCentre(t *testing.T) {
	s := loaded(t)
	drawSquare(s)

	var added int
	s.On(EventRegionAdded, func(interface{}) { added++ })

	r, err := s.FinalizePolygon()
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Same(t, r, s.Active())
	assert.Equal(t, geometry.NewPoint2D(100, 100), r.Center())
	assert.Empty(t, s.Polygon())

	out, err := s.Render()
	require.NoError(t, err)
	assert.Equal(t, blue, out.At(60, 60))
	assert.Equal(t, blue, out.At(139, 139))
	assert.Equal(t, white, out.At(59, 59))
	assert.Equal(t, white, out.At(140, 140))
}

func TestFinalizeWithoutTargetKeepsPolygon(t *testing.T) {
	s := NewState()
	require.NoError(t, s.LoadSource(encodePNG(t, 100, 100, blue)))
	drawSquare(s)

	_, err := s.FinalizePolygon()
	assert.ErrorIs(t, err, ErrNoTargetLoaded)
	assert.Len(t, s.Polygon(), 4)
	assert.Empty(t, s.Regions())
}

func TestFinalizeTooFewVertices(t *testing.T) {
	s := loaded(t)
	s.AddSourceVertex(geometry.NewPoint2D(1, 1))
	s.AddSourceVertex(geometry.NewPoint2D(5, 5))

	_, err := s.FinalizePolygon()
	assert.ErrorIs(t, err, mask.ErrInvalidPolygon)
	assert.Len(t, s.Polygon(), 2)
}

func TestExportRequiresTargetAndRegion(t *testing.T) {
	s := NewState()
	_, err := s.Export(codec.FormatPNG)
	assert.ErrorIs(t, err, ErrEmptyComposite)

	s = loaded(t)
	_, err = s.Export(codec.FormatPNG)
	assert.ErrorIs(t, err, ErrEmptyComposite)
}

func TestExportFile(t *testing.T) {
	s := loaded(t)
	drawSquare(s)
	_, err := s.FinalizePolygon()
	require.NoError(t, err)

	var exported interface{}
	s.On(EventExported, func(d interface{}) { exported = d })

	path := filepath.Join(t.TempDir(), "result.png")
	require.NoError(t, s.ExportFile(path))
	assert.Equal(t, codec.FormatPNG, exported)
	assert.False(t, s.Modified())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out, format, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, codec.FormatPNG, format)
	assert.Equal(t, 200, out.Width)
	assert.Equal(t, blue, out.At(100, 100))

	assert.ErrorIs(t, s.ExportFile(filepath.Join(t.TempDir(), "x.webp")), codec.ErrUnsupportedFormat)
}

func TestRenderWithoutTarget(t *testing.T) {
	_, err := NewState().Render()
	assert.ErrorIs(t, err, ErrNoTargetLoaded)
}

func TestLoadTargetClearsRegions(t *testing.T) {
	s := loaded(t)
	drawSquare(s)
	_, err := s.FinalizePolygon()
	require.NoError(t, err)

	cleared := false
	s.On(EventRegionsCleared, func(interface{}) { cleared = true })
	require.NoError(t, s.LoadTarget(encodePNG(t, 50, 50, white)))
	assert.True(t, cleared)
	assert.Empty(t, s.Regions())
}

func TestLoadSourceRejectsGarbage(t *testing.T) {
	s := NewState()
	assert.ErrorIs(t, s.LoadSource([]byte("nope")), codec.ErrDecode)
	assert.Nil(t, s.SourceLayer())
}

func TestNudgeScaleUpDownRestores(t *testing.T) {
	s := loaded(t)
	drawSquare(s)
	r, err := s.FinalizePolygon()
	require.NoError(t, err)

	require.NoError(t, s.NudgeScale(true))
	assert.InDelta(t, 1.1, r.Scale(), 1e-12)
	require.NoError(t, s.NudgeScale(false))
	assert.InDelta(t, 1.0, r.Scale(), 1e-12)
}

func TestRegionCommandsNeedActive(t *testing.T) {
	s := loaded(t)
	assert.ErrorIs(t, s.NudgeRotation(5), ErrNoActiveRegion)
	assert.ErrorIs(t, s.DeleteActive(), ErrNoActiveRegion)
	assert.ErrorIs(t, s.MoveActive(geometry.Point2D{}), ErrNoActiveRegion)
}

func TestClearAll(t *testing.T) {
	s := loaded(t)
	drawSquare(s)
	_, err := s.FinalizePolygon()
	require.NoError(t, err)
	s.AddSourceVertex(geometry.NewPoint2D(3, 3))

	s.ClearAll()
	assert.Empty(t, s.Polygon())
	assert.Empty(t, s.Regions())
	assert.NotNil(t, s.TargetLayer())
	assert.NotNil(t, s.SourceLayer())
}

type countingRasterizer struct {
	calls int
}

func (c *countingRasterizer) Rasterize(poly []geometry.Point2D, w, h int, clip geometry.RectInt) (*mask.Mask, error) {
	c.calls++
	return mask.ScanlineRasterizer{}.Rasterize(poly, w, h, clip)
}

func TestOptions(t *testing.T) {
	rast := &countingRasterizer{}
	decoded := 0
	decode := func(data []byte) (*pixbuf.Buffer, codec.Format, error) {
		decoded++
		return codec.Decode(data)
	}

	encoded := 0
	encode := func(buf *pixbuf.Buffer, f codec.Format, o codec.Options) ([]byte, error) {
		encoded++
		assert.Equal(t, 95, o.JPEGQuality)
		return codec.Encode(buf, f, o)
	}

	s := NewState(WithRasterizer(rast), WithDecoder(decode), WithEncoder(encode))
	require.NoError(t, s.LoadSource(encodePNG(t, 100, 100, blue)))
	require.NoError(t, s.LoadTarget(encodePNG(t, 100, 100, white)))
	drawSquare(s)
	_, err := s.FinalizePolygon()
	require.NoError(t, err)

	assert.Equal(t, 2, decoded)
	assert.Equal(t, 1, rast.calls)

	_, err = s.Export(codec.FormatJPEG)
	require.NoError(t, err)
	assert.Equal(t, 1, encoded)
}

func TestRenderWhileEditing(t *testing.T) {
	s := loaded(t)
	drawSquare(s)
	_, err := s.FinalizePolygon()
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_, err := s.Render()
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			assert.NoError(t, s.NudgeRotation(5))
			assert.NoError(t, s.MoveActive(geometry.NewPoint2D(100+float64(i%3), 100)))
			_ = s.ActiveSnapshot().Footprint()
		}
	}()
	wg.Wait()
	assert.InDelta(t, 250, s.Active().Rotation(), 1e-9)
}

func TestRegionChangedCarriesSnapshot(t *testing.T) {
	s := loaded(t)
	drawSquare(s)
	r, err := s.FinalizePolygon()
	require.NoError(t, err)

	var got []float64
	s.On(EventRegionChanged, func(d interface{}) {
		snap := d.(*region.Region)
		got = append(got, snap.Rotation())
	})
	require.NoError(t, s.NudgeRotation(10))
	require.NoError(t, s.NudgeRotation(10))

	assert.Equal(t, []float64{10, 20}, got)
	assert.NotSame(t, r, s.ActiveSnapshot())
	assert.Equal(t, r.ID(), s.ActiveSnapshot().ID())
}

func TestLayerAccessors(t *testing.T) {
	s := NewState()
	assert.Nil(t, s.SourceLayer())
	assert.Nil(t, s.TargetLayer())
	assert.Nil(t, s.ActiveSnapshot())

	s = loaded(t)
	assert.Equal(t, 100, s.SourceLayer().Width())
	assert.Equal(t, 200, s.TargetLayer().Width())
	assert.False(t, s.Modified())

	drawSquare(s)
	_, err := s.FinalizePolygon()
	require.NoError(t, err)
	assert.True(t, s.Modified())
}
