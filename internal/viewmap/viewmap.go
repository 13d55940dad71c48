// Package viewmap converts between display positions inside a zoomable,
// letterboxed view and pixel coordinates of the image it shows.
package viewmap

import (
	"math"

	"defect-synth/pkg/geometry"
)

// Zoom limits and step, shared with the canvas widget.
const (
	MinZoom  = 0.1
	MaxZoom  = 10.0
	ZoomStep = 1.25
)

// Mapper holds the view transform: display = source*Zoom + Offset.
// The zero value maps 1:1 with no image bound.
type Mapper struct {
	SourceW int
	SourceH int
	ViewW   float64
	ViewH   float64
	Zoom    float64
	Offset  geometry.Point2D
}

// New returns a mapper for a source of the given size at zoom 1.
func New(sourceW, sourceH int) *Mapper {
	return &Mapper{SourceW: sourceW, SourceH: sourceH, Zoom: 1}
}

// SetSource binds a new image size and refits to the current view.
func (m *Mapper) SetSource(w, h int) {
	m.SourceW, m.SourceH = w, h
	m.Fit(m.ViewW, m.ViewH)
}

// Fit scales the source to fill the view while keeping its aspect ratio and
// centres it. It must be called whenever the view or the image changes.
func (m *Mapper) Fit(viewW, viewH float64) {
	m.ViewW, m.ViewH = viewW, viewH
	if m.SourceW <= 0 || m.SourceH <= 0 || viewW <= 0 || viewH <= 0 {
		m.Zoom = 1
		m.Offset = geometry.Point2D{}
		return
	}
	m.Zoom = math.Min(viewW/float64(m.SourceW), viewH/float64(m.SourceH))
	m.center()
}

func (m *Mapper) center() {
	m.Offset = geometry.Point2D{
		X: (m.ViewW - float64(m.SourceW)*m.Zoom) / 2,
		Y: (m.ViewH - float64(m.SourceH)*m.Zoom) / 2,
	}
}

// SetZoom changes the zoom, clamped to [MinZoom, MaxZoom], keeping the
// source point under the display position anchor in place.
func (m *Mapper) SetZoom(zoom float64, anchor geometry.Point2D) {
	if zoom < MinZoom {
		zoom = MinZoom
	}
	if zoom > MaxZoom {
		zoom = MaxZoom
	}
	src := m.unclamped(anchor)
	m.Zoom = zoom
	m.Offset = geometry.Point2D{X: anchor.X - src.X*zoom, Y: anchor.Y - src.Y*zoom}
}

// ZoomIn zooms by one step around anchor.
func (m *Mapper) ZoomIn(anchor geometry.Point2D) {
	m.SetZoom(m.zoom()*ZoomStep, anchor)
}

// ZoomOut zooms out by one step around anchor.
func (m *Mapper) ZoomOut(anchor geometry.Point2D) {
	m.SetZoom(m.zoom()/ZoomStep, anchor)
}

func (m *Mapper) zoom() float64 {
	if m.Zoom <= 0 {
		return 1
	}
	return m.Zoom
}

func (m *Mapper) unclamped(p geometry.Point2D) geometry.Point2D {
	z := m.zoom()
	return geometry.Point2D{X: (p.X - m.Offset.X) / z, Y: (p.Y - m.Offset.Y) / z}
}

// ToSource maps a display position to source pixel coordinates. ok is false
// when the position falls outside the image; callers ignore such input
// rather than clamping it.
func (m *Mapper) ToSource(p geometry.Point2D) (geometry.Point2D, bool) {
	src := m.unclamped(p)
	if src.X < 0 || src.Y < 0 || src.X >= float64(m.SourceW) || src.Y >= float64(m.SourceH) {
		return src, false
	}
	return src, true
}

// ToDisplay maps source coordinates to a display position.
func (m *Mapper) ToDisplay(p geometry.Point2D) geometry.Point2D {
	z := m.zoom()
	return geometry.Point2D{X: p.X*z + m.Offset.X, Y: p.Y*z + m.Offset.Y}
}

// DisplayRect returns the area the image occupies in the view.
func (m *Mapper) DisplayRect() geometry.Rect {
	z := m.zoom()
	return geometry.Rect{
		X:      m.Offset.X,
		Y:      m.Offset.Y,
		Width:  float64(m.SourceW) * z,
		Height: float64(m.SourceH) * z,
	}
}
