package mask

import (
	"math"
	"sort"

	"defect-synth/pkg/geometry"
)

// ScanlineRasterizer fills polygons in pure Go. Interior pixels are chosen by
// an even-odd test at pixel centres; every pixel an edge passes through is
// then set as well, so the outline is always part of the mask. Work is
// limited to the clip rectangle.
type ScanlineRasterizer struct{}

// Rasterize implements Rasterizer.
func (ScanlineRasterizer) Rasterize(poly []geometry.Point2D, width, height int, clip geometry.RectInt) (*Mask, error) {
	m := NewMask(width, height)
	clip = clip.Clip(width, height)
	if clip.Empty() || len(poly) < 3 {
		return m, nil
	}

	n := len(poly)
	xs := make([]float64, 0, n)
	for y := clip.Y; y < clip.Y+clip.Height; y++ {
		yc := float64(y) + 0.5
		xs = xs[:0]
		for i := 0; i < n; i++ {
			p1 := poly[i]
			p2 := poly[(i+1)%n]
			if (p1.Y <= yc && p2.Y > yc) || (p2.Y <= yc && p1.Y > yc) {
				t := (yc - p1.Y) / (p2.Y - p1.Y)
				xs = append(xs, p1.X+t*(p2.X-p1.X))
			}
		}
		sort.Float64s(xs)

		for i := 0; i+1 < len(xs); i += 2 {
			// pixel x is inside when x+0.5 lies in [xs[i], xs[i+1]]
			x1 := int(math.Ceil(xs[i] - 0.5))
			x2 := int(math.Floor(xs[i+1] - 0.5))
			x1 = max(x1, clip.X)
			x2 = min(x2, clip.X+clip.Width-1)
			row := y * width
			for x := x1; x <= x2; x++ {
				m.Bits[row+x] = Inside
			}
		}
	}

	for i := 0; i < n; i++ {
		traceEdge(m, poly[i], poly[(i+1)%n], clip)
	}
	return m, nil
}

// traceEdge sets every pixel the segment a-b passes through, within clip.
func traceEdge(m *Mask, a, b geometry.Point2D, clip geometry.RectInt) {
	steps := int(math.Ceil(2*math.Max(math.Abs(b.X-a.X), math.Abs(b.Y-a.Y)))) + 1
	for s := 0; s <= steps; s++ {
		t := float64(s) / float64(steps)
		x := int(math.Floor(a.X + t*(b.X-a.X)))
		y := int(math.Floor(a.Y + t*(b.Y-a.Y)))
		if clip.Contains(x, y) {
			m.Bits[y*m.Width+x] = Inside
		}
	}
}
