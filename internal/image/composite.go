package image

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"defect-synth/internal/pixbuf"
	"defect-synth/internal/region"
)

// ErrNoTarget is returned when there is no base image to render onto.
var ErrNoTarget = errors.New("no target image")

// BlendMode specifies how region pixels are combined with the base.
type BlendMode int

const (
	// BlendHard copies region pixels whose alpha is above the threshold.
	BlendHard BlendMode = iota
	// BlendOver mixes region pixels into the base by their alpha.
	BlendOver
)

func (m BlendMode) String() string {
	switch m {
	case BlendHard:
		return "hard"
	case BlendOver:
		return "over"
	default:
		return "unknown"
	}
}

// ParseBlendMode converts a config name to a BlendMode.
func ParseBlendMode(s string) (BlendMode, error) {
	switch s {
	case "", "hard":
		return BlendHard, nil
	case "over":
		return BlendOver, nil
	default:
		return BlendHard, fmt.Errorf("unknown blend mode %q", s)
	}
}

// Interpolation selects how region pixels are resampled.
type Interpolation int

const (
	InterpNearest Interpolation = iota
	InterpBilinear
)

func (i Interpolation) String() string {
	switch i {
	case InterpNearest:
		return "nearest"
	case InterpBilinear:
		return "bilinear"
	default:
		return "unknown"
	}
}

// ParseInterpolation converts a config name to an Interpolation.
func ParseInterpolation(s string) (Interpolation, error) {
	switch s {
	case "", "nearest":
		return InterpNearest, nil
	case "bilinear":
		return InterpBilinear, nil
	default:
		return InterpNearest, fmt.Errorf("unknown interpolation %q", s)
	}
}

// Warper resamples a region onto the canvas. The returned image is in canvas
// coordinates, lies within canvas and is transparent where the region does
// not reach.
type Warper interface {
	Warp(r *region.Region, canvas image.Rectangle, interp Interpolation) (*image.NRGBA, error)
}

// Compositor renders placed regions over a base image.
type Compositor struct {
	Mode      BlendMode
	Threshold uint8 // BlendHard copies pixels with alpha above this
	Interp    Interpolation
	Warper    Warper // nil uses DrawWarper
}

// NewCompositor returns a compositor with hard cut-out blending and
// nearest-neighbour resampling.
func NewCompositor() *Compositor {
	return &Compositor{Mode: BlendHard, Interp: InterpNearest}
}

// Render draws regions in order, bottom first, over a copy of base. base is
// never modified; the result has the same size and channel count.
func (c *Compositor) Render(base *pixbuf.Buffer, regions []*region.Region) (*pixbuf.Buffer, error) {
	if base == nil {
		return nil, ErrNoTarget
	}
	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	warper := c.Warper
	if warper == nil {
		warper = DrawWarper{}
	}

	result := base.Clone()
	canvas := result.Bounds()
	for _, r := range regions {
		if r == nil || r.Deleted() {
			continue
		}
		warped, err := warper.Warp(r, canvas, c.Interp)
		if err != nil {
			return nil, fmt.Errorf("render region %s: %w", r.ID(), err)
		}
		c.compositeRegion(result, warped)
	}
	return result, nil
}

// compositeRegion blends one warped region into dst.
func (c *Compositor) compositeRegion(dst *pixbuf.Buffer, src *image.NRGBA) {
	b := src.Bounds().Intersect(dst.Bounds())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si := src.PixOffset(x, y)
			sa := src.Pix[si+3]
			if sa == 0 {
				continue
			}
			di := dst.Offset(x, y)
			switch c.Mode {
			case BlendOver:
				blendOver(dst, di, src.Pix[si:si+4])
			default:
				if sa <= c.Threshold {
					continue
				}
				dst.Pix[di] = src.Pix[si]
				dst.Pix[di+1] = src.Pix[si+1]
				dst.Pix[di+2] = src.Pix[si+2]
				if dst.Channels == pixbuf.RGBA {
					dst.Pix[di+3] = 0xff
				}
			}
		}
	}
}

// blendOver performs straight-alpha source-over for one pixel.
func blendOver(dst *pixbuf.Buffer, di int, s []uint8) {
	alpha := float64(s[3]) / 255
	da := 1.0
	if dst.Channels == pixbuf.RGBA {
		da = float64(dst.Pix[di+3]) / 255
	}
	outA := alpha + da*(1-alpha)
	if outA == 0 {
		return
	}
	for i := 0; i < 3; i++ {
		sc := float64(s[i]) / 255
		dc := float64(dst.Pix[di+i]) / 255
		v := (sc*alpha + dc*da*(1-alpha)) / outA
		dst.Pix[di+i] = uint8(clamp(v, 0, 1)*255 + 0.5)
	}
	if dst.Channels == pixbuf.RGBA {
		dst.Pix[di+3] = uint8(clamp(outA, 0, 1)*255 + 0.5)
	}
}

// Flatten composites an RGBA buffer over an opaque background and returns
// an RGB buffer. RGB input is returned as a copy.
func Flatten(buf *pixbuf.Buffer, bg color.NRGBA) *pixbuf.Buffer {
	if buf.Channels == pixbuf.RGB {
		return buf.Clone()
	}
	out := pixbuf.NewFilled(buf.Width, buf.Height, pixbuf.RGB, color.NRGBA{R: bg.R, G: bg.G, B: bg.B, A: 0xff})
	for i, j := 0, 0; i < len(buf.Pix); i, j = i+4, j+3 {
		a := float64(buf.Pix[i+3]) / 255
		for k := 0; k < 3; k++ {
			v := float64(buf.Pix[i+k])*a + float64(out.Pix[j+k])*(1-a)
			out.Pix[j+k] = uint8(v + 0.5)
		}
	}
	return out
}

// DrawWarper resamples regions with golang.org/x/image/draw.
type DrawWarper struct{}

// Warp implements Warper. Only the region's footprint bounding box is
// visited.
func (DrawWarper) Warp(r *region.Region, canvas image.Rectangle, interp Interpolation) (*image.NRGBA, error) {
	bounds := r.Footprint().Bounds.Pixels().Intersect(canvas)
	dst := image.NewNRGBA(bounds)
	if bounds.Empty() {
		return dst, nil
	}

	seed := r.Seed()
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	src := seed.Image()

	var t draw.Transformer = draw.NearestNeighbor
	if interp == InterpBilinear {
		t = draw.BiLinear
	}
	t.Transform(dst, r.EffectiveTransform().Aff3(), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
