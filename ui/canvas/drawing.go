// Package canvas provides drawing primitives for the image panes.
package canvas

import (
	"image"
	"image/color"

	"defect-synth/pkg/colorutil"
	"defect-synth/pkg/geometry"
)

// hexGlyphs are 3x5 pixel patterns for the hex digits region IDs are made
// of, one row of 3 bits per entry.
var hexGlyphs = [16][5]uint8{
	{0b111, 0b101, 0b101, 0b101, 0b111}, // 0
	{0b010, 0b110, 0b010, 0b010, 0b111}, // 1
	{0b111, 0b001, 0b111, 0b100, 0b111}, // 2
	{0b111, 0b001, 0b111, 0b001, 0b111}, // 3
	{0b101, 0b101, 0b111, 0b001, 0b001}, // 4
	{0b111, 0b100, 0b111, 0b001, 0b111}, // 5
	{0b111, 0b100, 0b111, 0b101, 0b111}, // 6
	{0b111, 0b001, 0b001, 0b001, 0b001}, // 7
	{0b111, 0b101, 0b111, 0b101, 0b111}, // 8
	{0b111, 0b101, 0b111, 0b001, 0b111}, // 9
	{0b010, 0b101, 0b111, 0b101, 0b101}, // a
	{0b110, 0b101, 0b110, 0b101, 0b110}, // b
	{0b011, 0b100, 0b100, 0b100, 0b011}, // c
	{0b110, 0b101, 0b101, 0b101, 0b110}, // d
	{0b111, 0b100, 0b110, 0b100, 0b111}, // e
	{0b111, 0b100, 0b110, 0b100, 0b100}, // f
}

// glyph returns the pattern for a hex digit in either case, blank otherwise.
func glyph(ch rune) [5]uint8 {
	switch {
	case ch >= '0' && ch <= '9':
		return hexGlyphs[ch-'0']
	case ch >= 'a' && ch <= 'f':
		return hexGlyphs[ch-'a'+10]
	case ch >= 'A' && ch <= 'F':
		return hexGlyphs[ch-'A'+10]
	}
	return [5]uint8{}
}

// Projector maps image coordinates to output pixels.
type Projector func(p geometry.Point2D) image.Point

// DrawOverlay draws ov onto output, placing shapes with project.
func DrawOverlay(output *image.RGBA, ov *Overlay, project Projector) {
	if ov == nil {
		return
	}
	for _, poly := range ov.Polygons {
		pts := make([]image.Point, len(poly.Points))
		for i, p := range poly.Points {
			pts[i] = project(p)
		}
		drawPolygon(output, pts, poly)
	}
	for _, c := range ov.Circles {
		drawCircle(output, project(c.Center), c.Radius, c.Color, c.Filled)
	}
	for _, l := range ov.Labels {
		at := project(l.At)
		col := l.Color
		if col.A == 0 {
			// Zero color means pick whatever reads on the pixels underneath.
			col = colorutil.Contrast(sample(output, at))
		}
		drawLabel(output, l.Text, at, col, l.Scale)
	}
}

func sample(output *image.RGBA, p image.Point) color.Color {
	if !p.In(output.Bounds()) {
		return colorutil.Black
	}
	return output.RGBAAt(p.X, p.Y)
}

// drawPolygon draws the outline of a polygon, or an open polyline when
// poly.Closed is false.
func drawPolygon(output *image.RGBA, pts []image.Point, poly OverlayPolygon) {
	if len(pts) < 2 {
		return
	}
	thickness := poly.Thickness
	if thickness <= 0 {
		thickness = 1
	}
	n := len(pts) - 1
	if poly.Closed {
		n = len(pts)
	}
	phase := 0
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%len(pts)]
		if poly.Dashed {
			phase = drawDashedLine(output, a, b, poly.Color, thickness, phase)
		} else {
			drawLine(output, a, b, poly.Color, thickness)
		}
	}
}

// bresenham calls plot for every pixel on the segment a-b, in order.
func bresenham(a, b image.Point, plot func(x, y int)) {
	x1, y1, x2, y2 := a.X, a.Y, b.X, b.Y

	dx := x2 - x1
	dy := y2 - y1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}

	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy

	for {
		plot(x1, y1)

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// plotThick sets a thickness x thickness square centred on (x, y).
func plotThick(output *image.RGBA, x, y int, col color.RGBA, thickness int) {
	bounds := output.Bounds()
	for t := -thickness / 2; t <= thickness/2; t++ {
		for s := -thickness / 2; s <= thickness/2; s++ {
			px, py := x+s, y+t
			if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
				output.SetRGBA(px, py, col)
			}
		}
	}
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(output *image.RGBA, a, b image.Point, col color.RGBA, thickness int) {
	bresenham(a, b, func(x, y int) {
		plotThick(output, x, y, col, thickness)
	})
}

const dashLength = 4

// drawDashedLine draws alternating runs of dashLength pixels. phase carries
// the dash position across connected segments; the updated phase is
// returned.
func drawDashedLine(output *image.RGBA, a, b image.Point, col color.RGBA, thickness, phase int) int {
	bresenham(a, b, func(x, y int) {
		if phase%(2*dashLength) < dashLength {
			plotThick(output, x, y, col, thickness)
		}
		phase++
	})
	return phase
}

// drawCircle draws a filled disc or a 2 pixel ring.
func drawCircle(output *image.RGBA, c image.Point, radius int, col color.RGBA, filled bool) {
	bounds := output.Bounds()
	r := float64(radius)
	r2 := r * r
	innerR2 := (r - 2) * (r - 2)

	for y := c.Y - radius - 1; y <= c.Y+radius+1; y++ {
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		for x := c.X - radius - 1; x <= c.X+radius+1; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X {
				continue
			}
			dx := float64(x - c.X)
			dy := float64(y - c.Y)
			dist2 := dx*dx + dy*dy
			if dist2 <= r2 && (filled || dist2 >= innerR2) {
				output.SetRGBA(x, y, col)
			}
		}
	}
}

// drawLabel draws a hex label in the 3x5 pixel font, centred at center.
// Other characters leave a blank cell.
func drawLabel(output *image.RGBA, label string, center image.Point, col color.RGBA, scale int) {
	if scale < 1 {
		scale = 1
	}
	if scale > 6 {
		scale = 6
	}
	runes := []rune(label)
	if len(runes) == 0 {
		return
	}

	charWidth := 3 * scale
	charHeight := 5 * scale
	spacing := scale
	labelWidth := len(runes)*charWidth + (len(runes)-1)*spacing

	startX := center.X - labelWidth/2
	startY := center.Y - charHeight/2
	bounds := output.Bounds()

	for i, ch := range runes {
		pattern := glyph(ch)
		charX := startX + i*(charWidth+spacing)
		for row := 0; row < 5; row++ {
			for c := 0; c < 3; c++ {
				if pattern[row]&(1<<(2-c)) == 0 {
					continue
				}
				for dy := 0; dy < scale; dy++ {
					for dx := 0; dx < scale; dx++ {
						px := charX + c*scale + dx
						py := startY + row*scale + dy
						if px >= bounds.Min.X && px < bounds.Max.X &&
							py >= bounds.Min.Y && py < bounds.Max.Y {
							output.SetRGBA(px, py, col)
						}
					}
				}
			}
		}
	}
}
