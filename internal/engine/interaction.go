package engine

import (
	"github.com/inamate/psdedit/internal/geom"
)

// Cursor is the pointer affordance the UI should show.
type Cursor string

const (
	CursorNone     Cursor = "none"
	CursorMove     Cursor = "move"
	CursorNWResize Cursor = "nw-resize"
	CursorNEResize Cursor = "ne-resize"
	CursorSEResize Cursor = "se-resize"
	CursorSWResize Cursor = "sw-resize"
)

func resizeCursor(h geom.Handle) Cursor {
	switch h {
	case geom.HandleTopLeft:
		return CursorNWResize
	case geom.HandleTopRight:
		return CursorNEResize
	case geom.HandleBottomRight:
		return CursorSEResize
	default:
		return CursorSWResize
	}
}

// DragState is one of Idle, Dragging or Resizing.
type DragState interface {
	dragState()
}

// Idle means no gesture is in progress.
type Idle struct{}

// Dragging translates the selected layer. Origin is the pointer position
// at pointer-down, in canvas coordinates.
type Dragging struct {
	Origin geom.Point
}

// Resizing scales the selected layer about the corner opposite Handle.
type Resizing struct {
	Handle geom.Handle
	Origin geom.Point
}

func (Idle) dragState()     {}
func (Dragging) dragState() {}
func (Resizing) dragState() {}

// SelectionState is the transient editing state for the selected layer.
// ActiveRect and ActiveM mirror the committed node; LiveM is the preview
// placement while a gesture runs and equals ActiveM otherwise.
type SelectionState struct {
	LayerID    string
	ActiveRect geom.Rect
	ActiveM    geom.Matrix
	LiveM      geom.Matrix
	Drag       DragState
	Cursor     Cursor
}

// Selected reports whether a layer is targeted.
func (s SelectionState) Selected() bool {
	return s.LayerID != ""
}

// Active reports whether a drag or resize is in progress.
func (s SelectionState) Active() bool {
	switch s.Drag.(type) {
	case Dragging, Resizing:
		return true
	}
	return false
}

// Quad returns the on-screen quad of the live placement.
func (s SelectionState) Quad(viewScale float64) geom.Quad {
	return geom.TransformRect(s.ActiveRect, geom.LiveMatrix(viewScale, s.LiveM))
}

// Event is a pointer event in canvas coordinates.
type Event interface {
	point() geom.Point
}

type PointerDown struct{ P geom.Point }
type PointerMove struct{ P geom.Point }
type PointerUp struct{ P geom.Point }

func (e PointerDown) point() geom.Point { return e.P }
func (e PointerMove) point() geom.Point { return e.P }
func (e PointerUp) point() geom.Point   { return e.P }

// Effect is what the caller must do after a transition.
type Effect struct {
	// Preview is set when LiveM changed and the composite should be redrawn.
	Preview bool
	// Commit is set on release when M must be written to the tree.
	Commit bool
	M      geom.Matrix
}

// Reduce advances the interaction state by one pointer event. It never
// touches the tree; commits are reported through the Effect.
func Reduce(s SelectionState, ev Event, viewScale float64) (SelectionState, Effect) {
	if !s.Selected() {
		s.Drag = Idle{}
		s.Cursor = CursorNone
		return s, Effect{}
	}
	if s.Drag == nil {
		s.Drag = Idle{}
	}
	p := ev.point()

	switch ev.(type) {
	case PointerDown:
		if s.Active() {
			return s, Effect{}
		}
		q := s.Quad(viewScale)
		if h, ok := geom.HandleAt(p, q); ok {
			s.Drag = Resizing{Handle: h, Origin: p}
			s.Cursor = resizeCursor(h)
		} else if geom.PointInQuad(p, q) {
			s.Drag = Dragging{Origin: p}
			s.Cursor = CursorMove
		}
		return s, Effect{}

	case PointerMove:
		switch d := s.Drag.(type) {
		case Dragging:
			delta := p.Sub(d.Origin).Div(viewScale)
			s.LiveM = geom.Compose(geom.Translation(delta.X, delta.Y), s.ActiveM)
			return s, Effect{Preview: true}
		case Resizing:
			s.LiveM = resize(s.ActiveRect, s.ActiveM, d.Handle, p.Sub(d.Origin).Div(viewScale))
			return s, Effect{Preview: true}
		default:
			s.Cursor = hover(p, s.Quad(viewScale))
			return s, Effect{}
		}

	case PointerUp:
		if !s.Active() {
			return s, Effect{}
		}
		live := s.LiveM
		changed := !live.ApproxEqual(s.ActiveM, 0)
		s.Drag = Idle{}
		s.ActiveM = live
		s.Cursor = hover(p, s.Quad(viewScale))
		return s, Effect{Preview: changed, Commit: changed, M: live}
	}
	return s, Effect{}
}

func hover(p geom.Point, q geom.Quad) Cursor {
	if h, ok := geom.HandleAt(p, q); ok {
		return resizeCursor(h)
	}
	if geom.PointInQuad(p, q) {
		return CursorMove
	}
	return CursorNone
}

// resize scales m about the corner opposite h so that corner h follows the
// document-space pointer delta. An axis whose handle and anchor coincide,
// or whose new extent would be zero, keeps its current scale.
func resize(rect geom.Rect, m geom.Matrix, h geom.Handle, delta geom.Point) geom.Matrix {
	q := geom.TransformRect(rect, m)
	anchor := q[h.Opposite()]
	corner := q[h]

	rx := axisRatio(corner.X, delta.X, anchor.X)
	ry := axisRatio(corner.Y, delta.Y, anchor.Y)

	about := geom.Compose(
		geom.Translation(anchor.X, anchor.Y),
		geom.Compose(geom.Scale(rx, ry), geom.Translation(-anchor.X, -anchor.Y)),
	)
	return geom.Compose(about, m)
}

func axisRatio(corner, delta, anchor float64) float64 {
	den := corner - anchor
	if den == 0 {
		return 1
	}
	r := (corner + delta - anchor) / den
	if r == 0 {
		return 1
	}
	return r
}
