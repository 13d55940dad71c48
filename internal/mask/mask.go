// Package mask builds binary polygon masks over a pixel buffer and uses them
// to cut irregular regions out as RGBA buffers.
package mask

import (
	"errors"
	"fmt"
	"math"

	"defect-synth/internal/pixbuf"
	"defect-synth/pkg/geometry"
)

const (
	// Outside is the mask value of a cleared pixel.
	Outside uint8 = 0
	// Inside is the mask value of a set pixel.
	Inside uint8 = 255
)

var (
	// ErrInvalidPolygon is returned for polygons with fewer than three
	// vertices or no area.
	ErrInvalidPolygon = errors.New("invalid polygon")

	// ErrSizeMismatch is returned when a mask does not match its source.
	ErrSizeMismatch = errors.New("mask and source size differ")
)

// Mask is a binary mask the size of the buffer the polygon was drawn over.
type Mask struct {
	Width  int
	Height int
	Bits   []uint8 // Inside or Outside, row-major
}

// NewMask allocates a cleared mask.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Bits: make([]uint8, width*height)}
}

// At reports whether (x, y) is inside the polygon.
func (m *Mask) At(x, y int) bool {
	return m.Value(x, y) == Inside
}

// Value returns the raw mask value at (x, y), Outside when out of range.
func (m *Mask) Value(x, y int) uint8 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return Outside
	}
	return m.Bits[y*m.Width+x]
}

// Set marks (x, y) as inside; out-of-range coordinates are ignored.
func (m *Mask) Set(x, y int) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Bits[y*m.Width+x] = Inside
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Bits {
		if v == Inside {
			n++
		}
	}
	return n
}

// Rasterizer fills a polygon into a mask. Only pixels inside clip may be set.
type Rasterizer interface {
	Rasterize(poly []geometry.Point2D, width, height int, clip geometry.RectInt) (*Mask, error)
}

// Build rasterizes poly over a width x height buffer with the default
// scanline rasterizer. See BuildWith.
func Build(poly []geometry.Point2D, width, height int) (*Mask, geometry.RectInt, error) {
	return BuildWith(ScanlineRasterizer{}, poly, width, height)
}

// BuildWith validates poly, computes its bounding rectangle clipped to the
// buffer and rasterizes it with r.
//
// The bounding rectangle is the half-open box
// [floor(minX),ceil(maxX)) x [floor(minY),ceil(maxY)), so a square drawn from
// (10,10) to (90,90) yields an 80x80 rectangle and a vertex at 60.9 still
// covers pixel column 60.
func BuildWith(r Rasterizer, poly []geometry.Point2D, width, height int) (*Mask, geometry.RectInt, error) {
	if len(poly) < 3 {
		return nil, geometry.RectInt{}, fmt.Errorf("%w: %d vertices", ErrInvalidPolygon, len(poly))
	}
	if width <= 0 || height <= 0 {
		return nil, geometry.RectInt{}, fmt.Errorf("%w: empty %dx%d buffer", ErrInvalidPolygon, width, height)
	}
	if math.Abs(geometry.PolygonArea(poly)) == 0 {
		return nil, geometry.RectInt{}, fmt.Errorf("%w: zero area", ErrInvalidPolygon)
	}

	rect := Bounds(poly).Clip(width, height)
	if rect.Empty() {
		return nil, geometry.RectInt{}, fmt.Errorf("%w: outside the %dx%d buffer", ErrInvalidPolygon, width, height)
	}

	pts := make([]geometry.Point2D, len(poly))
	copy(pts, poly)
	m, err := r.Rasterize(pts, width, height, rect)
	if err != nil {
		return nil, geometry.RectInt{}, err
	}
	return m, rect, nil
}

// Bounds returns the unclipped half-open pixel rectangle covering pts.
func Bounds(pts []geometry.Point2D) geometry.RectInt {
	if len(pts) == 0 {
		return geometry.RectInt{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	x0, y0 := int(math.Floor(minX)), int(math.Floor(minY))
	x1, y1 := int(math.Ceil(maxX)), int(math.Ceil(maxY))
	return geometry.RectInt{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Crop cuts rect out of src into a new RGBA buffer. Color channels come from
// src; alpha is the mask value, so pixels outside the polygon are fully
// transparent.
func Crop(src *pixbuf.Buffer, m *Mask, rect geometry.RectInt) (*pixbuf.Buffer, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if m == nil || m.Width != src.Width || m.Height != src.Height {
		return nil, ErrSizeMismatch
	}
	rect = rect.Clip(src.Width, src.Height)
	if rect.Empty() {
		return nil, fmt.Errorf("%w: empty crop rectangle", ErrInvalidPolygon)
	}

	out := pixbuf.New(rect.Width, rect.Height, pixbuf.RGBA)
	for y := 0; y < rect.Height; y++ {
		sy := rect.Y + y
		for x := 0; x < rect.Width; x++ {
			sx := rect.X + x
			si := src.Offset(sx, sy)
			di := out.Offset(x, y)
			out.Pix[di] = src.Pix[si]
			out.Pix[di+1] = src.Pix[si+1]
			out.Pix[di+2] = src.Pix[si+2]
			out.Pix[di+3] = m.Bits[sy*m.Width+sx]
		}
	}
	return out, nil
}

// Extract builds the mask for poly over src and crops it.
func Extract(src *pixbuf.Buffer, poly []geometry.Point2D) (*pixbuf.Buffer, geometry.RectInt, error) {
	return ExtractWith(ScanlineRasterizer{}, src, poly)
}

// ExtractWith is Extract with an explicit rasterizer.
func ExtractWith(r Rasterizer, src *pixbuf.Buffer, poly []geometry.Point2D) (*pixbuf.Buffer, geometry.RectInt, error) {
	if err := src.Validate(); err != nil {
		return nil, geometry.RectInt{}, err
	}
	m, rect, err := BuildWith(r, poly, src.Width, src.Height)
	if err != nil {
		return nil, geometry.RectInt{}, err
	}
	out, err := Crop(src, m, rect)
	if err != nil {
		return nil, geometry.RectInt{}, err
	}
	return out, rect, nil
}
