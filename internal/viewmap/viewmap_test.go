package viewmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defect-synth/pkg/geometry"
)

func TestFitLetterboxes(t *testing.T) {
	m := New(200, 100)
	m.Fit(400, 400)

	assert.InDelta(t, 2.0, m.Zoom, 1e-12)
	assert.InDelta(t, 0.0, m.Offset.X, 1e-12)
	assert.InDelta(t, 100.0, m.Offset.Y, 1e-12)
	assert.Equal(t, geometry.Rect{X: 0, Y: 100, Width: 400, Height: 200}, m.DisplayRect())
}

func TestRoundTrip(t *testing.T) {
	m := New(640, 480)
	m.Fit(1000, 700)
	m.SetZoom(3.3, geometry.NewPoint2D(123, 456))

	for _, p := range []geometry.Point2D{{X: 0, Y: 0}, {X: 12.5, Y: 300}, {X: 639, Y: 479}, {X: 320.25, Y: 1}} {
		back, ok := m.ToSource(m.ToDisplay(p))
		require.True(t, ok, "%v", p)
		assert.InDelta(t, p.X, back.X, 1)
		assert.InDelta(t, p.Y, back.Y, 1)
	}
}

func TestOutsideImageIsRejected(t *testing.T) {
	m := New(100, 100)

	_, ok := m.ToSource(geometry.NewPoint2D(150, 150))
	assert.False(t, ok)

	_, ok = m.ToSource(geometry.NewPoint2D(-0.5, 10))
	assert.False(t, ok)

	p, ok := m.ToSource(geometry.NewPoint2D(99.9, 0))
	assert.True(t, ok)
	assert.InDelta(t, 99.9, p.X, 1e-9)
}

func TestLetterboxBandIsOutside(t *testing.T) {
	m := New(100, 50)
	m.Fit(100, 100)

	_, ok := m.ToSource(geometry.NewPoint2D(50, 10))
	assert.False(t, ok, "above the image")

	p, ok := m.ToSource(geometry.NewPoint2D(50, 50))
	require.True(t, ok)
	assert.InDelta(t, 25.0, p.Y, 1e-9)
}

func TestZoomKeepsAnchorAndClamps(t *testing.T) {
	m := New(100, 100)
	anchor := geometry.NewPoint2D(30, 40)
	before, _ := m.ToSource(anchor)

	m.ZoomIn(anchor)
	after, _ := m.ToSource(anchor)
	assert.InDelta(t, ZoomStep, m.Zoom, 1e-12)
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)

	m.SetZoom(100, anchor)
	assert.Equal(t, MaxZoom, m.Zoom)
	m.SetZoom(0.001, anchor)
	assert.Equal(t, MinZoom, m.Zoom)
}
