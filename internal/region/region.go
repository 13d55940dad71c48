// Package region holds cut-out seeds placed on the target image together
// with their position, scale and rotation.
package region

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"defect-synth/internal/pixbuf"
	"defect-synth/pkg/geometry"
)

const (
	// ZoomStep is the scale factor applied per scroll notch.
	ZoomStep = 1.1
	// RotateStep is the rotation applied per key press, in degrees.
	RotateStep = 5.0
	// MinScale is the smallest scale a region can shrink to.
	MinScale = 0.01
)

var (
	// ErrBadScale is returned for non-positive scale factors.
	ErrBadScale = errors.New("scale factor must be positive")

	// ErrBadSeed is returned when a seed is not a non-empty RGBA buffer.
	ErrBadSeed = errors.New("seed must be a non-empty RGBA buffer")
)

// Region is a seed placed on the target. Its pose is stored as center,
// uniform scale and clockwise rotation; the transform is derived from these
// on demand.
type Region struct {
	id       string
	seed     *pixbuf.Buffer
	center   geometry.Point2D
	scale    float64
	rotation float64
	deleted  bool
}

// New places a copy of seed centred on center at scale 1 and no rotation.
func New(seed *pixbuf.Buffer, center geometry.Point2D) (*Region, error) {
	if err := seed.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSeed, err)
	}
	if seed.Channels != pixbuf.RGBA || seed.Width == 0 || seed.Height == 0 {
		return nil, ErrBadSeed
	}
	return &Region{
		id:     uuid.New().String()[:8],
		seed:   seed.Clone(),
		center: center,
		scale:  1,
	}, nil
}

func (r *Region) alive() {
	if r.deleted {
		panic(fmt.Sprintf("region %s used after delete", r.id))
	}
}

// ID returns the region's short identifier.
func (r *Region) ID() string { return r.id }

// Seed returns the region's pixels. The buffer is owned by the region and
// must not be modified.
func (r *Region) Seed() *pixbuf.Buffer { return r.seed }

// Center returns the canvas position of the seed's centre.
func (r *Region) Center() geometry.Point2D { return r.center }

// Scale returns the current uniform scale.
func (r *Region) Scale() float64 { return r.scale }

// Rotation returns the clockwise rotation in degrees, in [0, 360).
func (r *Region) Rotation() float64 { return r.rotation }

// Size returns the unscaled seed size.
func (r *Region) Size() geometry.Size {
	return geometry.NewSize(float64(r.seed.Width), float64(r.seed.Height))
}

// Snapshot returns a copy of the region's current pose. The copy shares the
// read-only seed and is not affected by later changes to r.
func (r *Region) Snapshot() *Region {
	c := *r
	return &c
}

// Deleted reports whether Delete has been called.
func (r *Region) Deleted() bool { return r.deleted }

// NudgeScale multiplies the scale by f. The result never drops below
// MinScale.
func (r *Region) NudgeScale(f float64) error {
	r.alive()
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: %g", ErrBadScale, f)
	}
	r.scale = math.Max(r.scale*f, MinScale)
	return nil
}

// ScrollScale grows the region for a positive wheel delta and shrinks it
// for a negative one. A zero delta does nothing.
func (r *Region) ScrollScale(delta float64) {
	switch {
	case delta > 0:
		_ = r.NudgeScale(ZoomStep)
	case delta < 0:
		_ = r.NudgeScale(1 / ZoomStep)
	default:
		r.alive()
	}
}

// NudgeRotation adds deg degrees clockwise.
func (r *Region) NudgeRotation(deg float64) {
	r.alive()
	r.rotation = geometry.NormalizeDegrees(r.rotation + deg)
}

// RotateCW rotates one step clockwise.
func (r *Region) RotateCW() { r.NudgeRotation(RotateStep) }

// RotateCCW rotates one step counter-clockwise.
func (r *Region) RotateCCW() { r.NudgeRotation(-RotateStep) }

// SetCenter moves the region so its centre lies on p.
func (r *Region) SetCenter(p geometry.Point2D) {
	r.alive()
	r.center = p
}

// MoveBy translates the region.
func (r *Region) MoveBy(dx, dy float64) {
	r.alive()
	r.center = r.center.Add(geometry.NewPoint2D(dx, dy))
}

// Delete marks the region as removed. Any later mutation panics.
func (r *Region) Delete() {
	r.deleted = true
}

// EffectiveTransform maps seed pixel coordinates to canvas coordinates:
// translate to the seed centre, scale, rotate, then move to the placement
// centre. It is rebuilt from the stored pose on every call.
func (r *Region) EffectiveTransform() geometry.AffineTransform {
	w, h := float64(r.seed.Width), float64(r.seed.Height)
	rad := r.rotation * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)

	toOrigin := mat.NewDense(3, 3, []float64{
		1, 0, -w / 2,
		0, 1, -h / 2,
		0, 0, 1,
	})
	scale := mat.NewDense(3, 3, []float64{
		r.scale, 0, 0,
		0, r.scale, 0,
		0, 0, 1,
	})
	rotate := mat.NewDense(3, 3, []float64{
		cos, -sin, 0,
		sin, cos, 0,
		0, 0, 1,
	})
	place := mat.NewDense(3, 3, []float64{
		1, 0, r.center.X,
		0, 1, r.center.Y,
		0, 0, 1,
	})

	var m mat.Dense
	m.Product(place, rotate, scale, toOrigin)
	return geometry.AffineTransform{
		A: m.At(0, 0), B: m.At(0, 1), TX: m.At(0, 2),
		C: m.At(1, 0), D: m.At(1, 1), TY: m.At(1, 2),
	}
}

// Footprint is the transformed outline of a region on the canvas.
type Footprint struct {
	Corners [4]geometry.Point2D // top-left, top-right, bottom-right, bottom-left of the seed
	Bounds  geometry.Rect
}

// Contains reports whether p lies inside the transformed outline.
func (f Footprint) Contains(p geometry.Point2D) bool {
	return geometry.PointInPolygon(p, f.Corners[:])
}

// Footprint returns the canvas outline of the region.
func (r *Region) Footprint() Footprint {
	w, h := float64(r.seed.Width), float64(r.seed.Height)
	corners := geometry.TransformPoints(r.EffectiveTransform(), []geometry.Point2D{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}})
	var f Footprint
	copy(f.Corners[:], corners)
	f.Bounds = geometry.BoundingBox(corners)
	return f
}

// Opaque reports whether the canvas point p lands on a seed pixel with
// non-zero alpha. Points outside the seed, including the transparent parts
// of a polygon cut-out, are not opaque.
func (r *Region) Opaque(p geometry.Point2D) bool {
	inv, ok := r.EffectiveTransform().Inverse()
	if !ok {
		return false
	}
	q := inv.Apply(p).Truncate()
	if q.X < 0 || q.Y < 0 || q.X >= r.seed.Width || q.Y >= r.seed.Height {
		return false
	}
	return r.seed.Pix[r.seed.Offset(q.X, q.Y)+3] > 0
}
