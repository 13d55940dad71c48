// Package selection tracks an in-progress polygon drawn over a source image
// and turns it into a cut-out seed when the polygon is closed.
package selection

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"defect-synth/internal/mask"
	"defect-synth/internal/pixbuf"
	"defect-synth/pkg/geometry"
)

// ErrNoSource is returned when the session has no image to cut from.
var ErrNoSource = errors.New("no source image bound")

// State is the drawing state of a session.
type State int

const (
	Idle State = iota
	Drawing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Drawing:
		return "Drawing"
	default:
		return "Unknown"
	}
}

// FinalizeFunc receives a freshly cut seed and the rectangle it came from.
type FinalizeFunc func(seed *pixbuf.Buffer, rect geometry.RectInt)

// Session collects polygon vertices in source pixel coordinates.
type Session struct {
	mu         sync.Mutex
	source     *pixbuf.Buffer
	rasterizer mask.Rasterizer
	vertices   []geometry.Point2D
	onFinalize []FinalizeFunc
}

// New creates a session bound to src. src may be nil.
func New(src *pixbuf.Buffer) *Session {
	return &Session{source: src, rasterizer: mask.ScanlineRasterizer{}}
}

// SetRasterizer replaces the mask rasterizer.
func (s *Session) SetRasterizer(r mask.Rasterizer) {
	if r == nil {
		r = mask.ScanlineRasterizer{}
	}
	s.mu.Lock()
	s.rasterizer = r
	s.mu.Unlock()
}

// Bind switches to a new source image and discards any vertices.
func (s *Session) Bind(src *pixbuf.Buffer) {
	s.mu.Lock()
	s.source = src
	s.vertices = nil
	s.mu.Unlock()
}

// OnFinalize registers a callback run after each successful Finalize.
func (s *Session) OnFinalize(fn FinalizeFunc) {
	s.mu.Lock()
	s.onFinalize = append(s.onFinalize, fn)
	s.mu.Unlock()
}

// AddVertex appends p. Points outside the source image, or any point while
// no source is bound, are ignored and false is returned.
func (s *Session) AddVertex(p geometry.Point2D) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return false
	}
	if p.X < 0 || p.Y < 0 || p.X >= float64(s.source.Width) || p.Y >= float64(s.source.Height) {
		return false
	}
	s.vertices = append(s.vertices, p)
	return true
}

// Vertices returns a copy of the current vertices.
func (s *Session) Vertices() []geometry.Point2D {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]geometry.Point2D, len(s.vertices))
	copy(out, s.vertices)
	return out
}

// State reports Drawing once at least one vertex has been added.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.vertices) == 0 {
		return Idle
	}
	return Drawing
}

// Reset discards the current polygon.
func (s *Session) Reset() {
	s.mu.Lock()
	s.vertices = nil
	s.mu.Unlock()
}

// Finalize cuts the polygon out of the source. On success the session
// returns to Idle and the seed is a buffer owned by the caller. On failure
// the vertices are kept so drawing can continue.
func (s *Session) Finalize() (*pixbuf.Buffer, geometry.RectInt, error) {
	s.mu.Lock()
	if s.source == nil {
		s.mu.Unlock()
		return nil, geometry.RectInt{}, ErrNoSource
	}
	poly := make([]geometry.Point2D, len(s.vertices))
	copy(poly, s.vertices)
	seed, rect, err := mask.ExtractWith(s.rasterizer, s.source, poly)
	if err != nil {
		s.mu.Unlock()
		return nil, geometry.RectInt{}, fmt.Errorf("finalize %d-vertex polygon: %w", len(poly), err)
	}
	s.vertices = nil
	listeners := append([]FinalizeFunc(nil), s.onFinalize...)
	s.mu.Unlock()

	log.Printf("Cut %dx%d seed at (%d,%d) from %d vertices", rect.Width, rect.Height, rect.X, rect.Y, len(poly))
	for _, fn := range listeners {
		fn(seed.Clone(), rect)
	}
	return seed, rect, nil
}

// SecondaryClick closes the polygon when it has more than two vertices and
// discards it otherwise.
func (s *Session) SecondaryClick() (*pixbuf.Buffer, geometry.RectInt, error) {
	if len(s.Vertices()) > 2 {
		return s.Finalize()
	}
	s.Reset()
	return nil, geometry.RectInt{}, nil
}
