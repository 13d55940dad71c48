package app

import (
	"errors"

	"defect-synth/internal/viewmap"
	"defect-synth/pkg/geometry"
)

// InputKind is the kind of pointer or keyboard event.
type InputKind int

const (
	InputPress InputKind = iota
	InputMove
	InputRelease
	InputScroll
	InputKey
)

// Pane identifies which image view an event happened on.
type Pane int

const (
	PaneSource Pane = iota
	PaneTarget
)

func (p Pane) String() string {
	if p == PaneTarget {
		return "target"
	}
	return "source"
}

// Button is the pointer button of a press.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
)

// Key names, matching fyne.KeyName values.
const (
	KeyRotateCW  = "R"
	KeyRotateCCW = "L"
	KeyDelete    = "Delete"
	KeyBackspace = "BackSpace"
	KeyEscape    = "Escape"
	KeyReturn    = "Return"
	KeyEnter     = "Enter"
)

// InputEvent is a UI-independent pointer or key event. Pos is in view
// (display) coordinates of Pane.
type InputEvent struct {
	Kind     InputKind
	Pane     Pane
	Pos      geometry.Point2D
	Button   Button
	ScrollDY float64 // positive scrolls up
	Key      string
}

// View returns the mapper of a pane.
func (s *State) View(p Pane) *viewmap.Mapper {
	if p == PaneTarget {
		return s.TargetView
	}
	return s.SourceView
}

// ViewSnapshot returns a copy of a pane's mapper for rendering.
func (s *State) ViewSnapshot(p Pane) viewmap.Mapper {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.View(p)
}

// ResizeView refits a pane's image to a new view size.
func (s *State) ResizeView(p Pane, w, h float64) {
	s.mu.Lock()
	s.View(p).Fit(w, h)
	s.mu.Unlock()
	s.Emit(EventViewChanged, p)
}

// ZoomView zooms a pane one step in or out around a display position.
func (s *State) ZoomView(p Pane, in bool, anchor geometry.Point2D) {
	s.mu.Lock()
	if in {
		s.View(p).ZoomIn(anchor)
	} else {
		s.View(p).ZoomOut(anchor)
	}
	s.mu.Unlock()
	s.Emit(EventViewChanged, p)
}

func (s *State) toSource(p Pane, display geometry.Point2D) (geometry.Point2D, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.View(p).ToSource(display)
}

// HandleInput applies one input event to the document.
//
// On the source pane a primary press adds a vertex and a secondary press
// closes the polygon, or discards it when it has fewer than three vertices.
// On the target pane a primary press selects and starts dragging the region
// under the pointer, scrolling over a region scales it and R/L rotate the
// active region. Scrolling anywhere else zooms the view.
func (s *State) HandleInput(ev InputEvent) error {
	var err error
	switch ev.Pane {
	case PaneSource:
		err = s.handleSource(ev)
	case PaneTarget:
		err = s.handleTarget(ev)
	}
	if errors.Is(err, ErrNoActiveRegion) {
		return nil
	}
	return err
}

func (s *State) handleSource(ev InputEvent) error {
	switch ev.Kind {
	case InputPress:
		if ev.Button == ButtonSecondary {
			if len(s.Polygon()) > 2 {
				_, err := s.FinalizePolygon()
				return err
			}
			s.ResetPolygon()
			return nil
		}
		s.AddVertex(ev.Pos)
	case InputScroll:
		if ev.ScrollDY != 0 {
			s.ZoomView(PaneSource, ev.ScrollDY > 0, ev.Pos)
		}
	case InputKey:
		switch ev.Key {
		case KeyEscape:
			s.ResetPolygon()
		case KeyReturn, KeyEnter:
			_, err := s.FinalizePolygon()
			return err
		}
	}
	return nil
}

func (s *State) handleTarget(ev InputEvent) error {
	switch ev.Kind {
	case InputPress:
		if ev.Button != ButtonPrimary {
			return nil
		}
		p, ok := s.toSource(PaneTarget, ev.Pos)
		if !ok {
			s.Deselect()
			return nil
		}
		hit := s.SelectAt(p)
		s.mu.Lock()
		s.drag = dragState{}
		if hit != nil {
			s.drag = dragState{active: true, offset: hit.Center().Sub(p)}
		}
		s.mu.Unlock()
	case InputMove:
		s.mu.RLock()
		drag := s.drag
		s.mu.RUnlock()
		if !drag.active {
			return nil
		}
		p, _ := s.toSource(PaneTarget, ev.Pos)
		return s.MoveActive(p.Add(drag.offset))
	case InputRelease:
		s.mu.Lock()
		s.drag = dragState{}
		s.mu.Unlock()
	case InputScroll:
		if ev.ScrollDY == 0 {
			return nil
		}
		if p, ok := s.toSource(PaneTarget, ev.Pos); ok && s.RegionAt(p) != nil {
			s.SelectAt(p)
			return s.NudgeScale(ev.ScrollDY > 0)
		}
		s.ZoomView(PaneTarget, ev.ScrollDY > 0, ev.Pos)
	case InputKey:
		step := s.Config().RotateStep
		switch ev.Key {
		case KeyRotateCW:
			return s.NudgeRotation(step)
		case KeyRotateCCW:
			return s.NudgeRotation(-step)
		case KeyDelete, KeyBackspace:
			return s.DeleteActive()
		}
	}
	return nil
}
