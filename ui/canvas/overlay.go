// Package canvas provides overlay types for the image panes.
package canvas

import (
	"image/color"

	"defect-synth/internal/app"
	"defect-synth/pkg/colorutil"
	"defect-synth/pkg/geometry"
)

// Overlay is everything drawn over a pane's image.
type Overlay struct {
	Polygons []OverlayPolygon
	Circles  []OverlayCircle
	Labels   []OverlayLabel
}

// OverlayPolygon is an outline in image coordinates.
type OverlayPolygon struct {
	Points    []geometry.Point2D
	Closed    bool // join the last point back to the first
	Dashed    bool
	Color     color.RGBA
	Thickness int // display pixels, 0 means 1
}

// OverlayCircle is a marker centred on an image point. Radius is in display
// pixels so markers keep their size at any zoom.
type OverlayCircle struct {
	Center geometry.Point2D
	Radius int
	Color  color.RGBA
	Filled bool
}

// OverlayLabel is text centred on an image point. A zero Color picks black
// or white against the pixels underneath.
type OverlayLabel struct {
	Text  string
	At    geometry.Point2D
	Color color.RGBA
	Scale int
}

const markerRadius = 3

// BuildOverlay describes the editing state of a pane: the polygon being
// drawn on the source pane, the active region's outline on the target pane.
func BuildOverlay(s *app.State, pane app.Pane) *Overlay {
	ov := &Overlay{}
	switch pane {
	case app.PaneSource:
		pts := s.Polygon()
		if len(pts) == 0 {
			return ov
		}
		ov.Polygons = append(ov.Polygons, OverlayPolygon{
			Points:    pts,
			Color:     colorutil.Yellow,
			Thickness: 2,
		})
		if len(pts) > 2 {
			ov.Polygons = append(ov.Polygons, OverlayPolygon{
				Points: []geometry.Point2D{pts[len(pts)-1], pts[0]},
				Dashed: true,
				Color:  colorutil.Yellow,
			})
		}
		for i, p := range pts {
			col := colorutil.Yellow
			if i == 0 {
				col = colorutil.Magenta
			}
			ov.Circles = append(ov.Circles, OverlayCircle{Center: p, Radius: markerRadius, Color: col, Filled: true})
		}
	case app.PaneTarget:
		r := s.ActiveSnapshot()
		if r == nil {
			return ov
		}
		fp := r.Footprint()
		ov.Polygons = append(ov.Polygons, OverlayPolygon{
			Points:    fp.Corners[:],
			Closed:    true,
			Dashed:    true,
			Color:     colorutil.Cyan,
			Thickness: 2,
		})
		ov.Labels = append(ov.Labels, OverlayLabel{Text: r.ID(), At: r.Center(), Scale: 2})
	}
	return ov
}
