package cvbridge

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defect-synth/internal/app"
	"defect-synth/internal/codec"
	"defect-synth/internal/pixbuf"
	"defect-synth/pkg/geometry"
)

func TestEncodeFormat(t *testing.T) {
	b := pixbuf.NewFilled(8, 8, pixbuf.RGB, color.NRGBA{R: 10, G: 200, B: 30, A: 255})
	for _, f := range codec.ExportFormats() {
		data, err := EncodeFormat(b, f, codec.Options{JPEGQuality: 90})
		require.NoError(t, err, f)
		assert.Equal(t, f, codec.Sniff(data), f)
	}

	_, err := EncodeFormat(b, codec.FormatGIF, codec.Options{})
	assert.ErrorIs(t, err, codec.ErrUnsupportedFormat)
}

func TestDecodeSniffed(t *testing.T) {
	_, _, err := DecodeSniffed([]byte("junk"))
	assert.ErrorIs(t, err, codec.ErrDecode)

	b := pixbuf.NewFilled(3, 3, pixbuf.RGB, color.NRGBA{B: 255, A: 255})
	data, err := codec.Encode(b, codec.FormatBMP, codec.Options{})
	require.NoError(t, err)
	got, f, err := DecodeSniffed(data)
	require.NoError(t, err)
	assert.Equal(t, codec.FormatBMP, f)
	assert.Equal(t, b.Pix, got.Pix)
}

func TestStateOptionsEndToEnd(t *testing.T) {
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	red := color.NRGBA{R: 255, A: 255}
	enc := func(w, h int, c color.NRGBA) []byte {
		data, err := codec.Encode(pixbuf.NewFilled(w, h, pixbuf.RGB, c), codec.FormatPNG, codec.Options{})
		require.NoError(t, err)
		return data
	}

	s := app.NewState(StateOptions()...)
	require.NoError(t, s.LoadSource(enc(100, 100, red)))
	require.NoError(t, s.LoadTarget(enc(200, 200, white)))
	for _, p := range []geometry.Point2D{{X: 10, Y: 10}, {X: 90, Y: 10}, {X: 90, Y: 90}, {X: 10, Y: 90}} {
		s.AddSourceVertex(p)
	}
	_, err := s.FinalizePolygon()
	require.NoError(t, err)

	data, err := s.Export(codec.FormatPNG)
	require.NoError(t, err)
	out, _, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, red, out.At(100, 100))
	assert.Equal(t, white, out.At(10, 10))
}
