package main

import (
	"flag"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defect-synth/internal/codec"
	"defect-synth/internal/pixbuf"
	"defect-synth/pkg/geometry"
)

func TestParsePolygon(t *testing.T) {
	pts, err := parsePolygon("10,10 90, 10;50,80")
	require.Error(t, err, "space inside a pair splits it")

	pts, err = parsePolygon("10,10 90,10;50.5,80")
	require.NoError(t, err)
	assert.Equal(t, []geometry.Point2D{{X: 10, Y: 10}, {X: 90, Y: 10}, {X: 50.5, Y: 80}}, pts)

	_, err = parsePolygon("1,1 2,2")
	assert.Error(t, err)
	_, err = parsePolygon("1,1 2,x 3,3")
	assert.Error(t, err)
}

func TestPointListFlag(t *testing.T) {
	var at pointList
	fs := flag.NewFlagSet("t", flag.ContinueOnError)
	fs.Var(&at, "at", "")
	require.NoError(t, fs.Parse([]string{"-at", "1,2", "-at", "3.5,4"}))
	assert.Equal(t, pointList{{X: 1, Y: 2}, {X: 3.5, Y: 4}}, at)
	assert.Equal(t, "1,2 3.5,4", at.String())

	assert.Error(t, at.Set("nope"))
}

func writePNG(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()
	data, err := codec.Encode(pixbuf.NewFilled(w, h, pixbuf.RGB, c), codec.FormatPNG, codec.Options{})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestRunPastesEveryCopy(t *testing.T) {
	dir := t.TempDir()
	red := color.NRGBA{R: 255, A: 255}
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	src := filepath.Join(dir, "ng.png")
	dst := filepath.Join(dir, "ok.png")
	out := filepath.Join(dir, "out.bmp")
	writePNG(t, src, 40, 40, red)
	writePNG(t, dst, 200, 100, white)

	at := pointList{{X: 30, Y: 50}, {X: 150, Y: 50}}
	err := run(filepath.Join(dir, "none.toml"), job{
		source: src, target: dst, poly: "0,0 20,0 20,20 0,20",
		at: at, scale: 1, output: out,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	img, format, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, codec.FormatBMP, format)
	assert.Equal(t, red, img.At(30, 50))
	assert.Equal(t, red, img.At(150, 50))
	assert.Equal(t, white, img.At(90, 50))
}

func TestRunRejectsVertexOutsideSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ng.png")
	writePNG(t, src, 10, 10, color.NRGBA{A: 255})

	err := run(filepath.Join(dir, "none.toml"), job{
		source: src, target: src, poly: "0,0 50,0 5,5",
		scale: 1, output: filepath.Join(dir, "o.png"),
	})
	assert.ErrorContains(t, err, "outside")
}

func TestRunResizesOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ng.png")
	dst := filepath.Join(dir, "ok.png")
	out := filepath.Join(dir, "out.png")
	writePNG(t, src, 20, 20, color.NRGBA{G: 255, A: 255})
	writePNG(t, dst, 100, 100, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	err := run(filepath.Join(dir, "none.toml"), job{
		source: src, target: dst, poly: "0,0 10,0 10,10 0,10",
		scale: 2, rotate: 90, output: out, sizeSpec: "50x25",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	img, _, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 50, img.Width)
	assert.Equal(t, 25, img.Height)
	assert.Equal(t, color.NRGBA{G: 255, A: 255}, img.At(25, 12))
}

func TestParseSize(t *testing.T) {
	w, h, err := parseSize("640X480")
	require.NoError(t, err)
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)

	w, h, err = parseSize("")
	require.NoError(t, err)
	assert.Zero(t, w+h)

	for _, bad := range []string{"640", "0x5", "ax5", "5x-1"} {
		_, _, err := parseSize(bad)
		assert.Error(t, err, bad)
	}
}
