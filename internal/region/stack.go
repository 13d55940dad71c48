package region

import (
	"defect-synth/pkg/geometry"
)

// Stack is the ordered set of regions on a canvas, bottom first, with at
// most one active region. It is not safe for concurrent use; the document
// that owns it serializes access.
type Stack struct {
	regions []*Region
	active  *Region
}

// Add pushes r on top and makes it active.
func (s *Stack) Add(r *Region) {
	r.alive()
	s.regions = append(s.regions, r)
	s.active = r
}

// Remove deletes the region with the given id. It reports whether a region
// was found.
func (s *Stack) Remove(id string) bool {
	for i, r := range s.regions {
		if r.id != id {
			continue
		}
		s.regions = append(s.regions[:i], s.regions[i+1:]...)
		if s.active == r {
			s.active = nil
		}
		r.Delete()
		return true
	}
	return false
}

// Clear removes every region.
func (s *Stack) Clear() {
	for _, r := range s.regions {
		r.Delete()
	}
	s.regions = nil
	s.active = nil
}

// Len returns the number of regions.
func (s *Stack) Len() int { return len(s.regions) }

// Regions returns the regions bottom to top. The slice is a copy.
func (s *Stack) Regions() []*Region {
	out := make([]*Region, len(s.regions))
	copy(out, s.regions)
	return out
}

// Active returns the active region, or nil.
func (s *Stack) Active() *Region { return s.active }

// SetActive activates the region with the given id. An empty id clears the
// selection.
func (s *Stack) SetActive(id string) bool {
	if id == "" {
		s.active = nil
		return true
	}
	for _, r := range s.regions {
		if r.id == id {
			s.active = r
			return true
		}
	}
	return false
}

// HitTest returns the topmost region that has an opaque pixel under p, or
// nil. Clicks on the transparent corners of a cut-out fall through to the
// regions below.
func (s *Stack) HitTest(p geometry.Point2D) *Region {
	for i := len(s.regions) - 1; i >= 0; i-- {
		r := s.regions[i]
		if r.Footprint().Contains(p) && r.Opaque(p) {
			return r
		}
	}
	return nil
}
