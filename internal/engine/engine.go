package engine

import (
	"errors"
	"image"
	"log/slog"
	"math"

	"github.com/inamate/psdedit/internal/bundle"
	"github.com/inamate/psdedit/internal/composite"
	"github.com/inamate/psdedit/internal/document"
	"github.com/inamate/psdedit/internal/geom"
)

// MaxViewScale is the largest accepted zoom factor.
const MaxViewScale = 10.0

var (
	// ErrNoDocument is returned by commands that need a loaded document.
	ErrNoDocument = errors.New("engine: no document loaded")
	// ErrLayerNotFound is returned when an id matches no layer.
	ErrLayerNotFound = errors.New("engine: layer not found")
)

// Engine owns the document and the editing state for one editor. It is
// not safe for concurrent use; callers serialize access.
type Engine struct {
	// Document state
	doc *document.Document

	// Selection and gesture state (backend owns this)
	sel SelectionState

	viewScale float64
	sampling  composite.Sampling

	// Retained surfaces
	target  *image.RGBA
	overlay *image.RGBA

	// Dirty flag - composite needs redraw
	dirty bool
}

// NewEngine creates an engine with no document at view scale 1.
func NewEngine() *Engine {
	return &Engine{
		viewScale: 1,
		sampling:  composite.SamplingNearest,
		sel:       SelectionState{Drag: Idle{}, Cursor: CursorNone},
		dirty:     true,
	}
}

// SetSampling picks the resampling filter used by Render.
func (e *Engine) SetSampling(s composite.Sampling) {
	if e.sampling != s {
		e.sampling = s
		e.dirty = true
	}
}

// --- Commands (frontend → backend) ---

// LoadDocument replaces the current document. Selection is cleared.
func (e *Engine) LoadDocument(doc *document.Document) {
	e.doc = doc
	e.target = composite.NewTarget(doc.Width, doc.Height)
	e.clearSelection()
	e.dirty = true
	slog.Debug("document loaded", "id", doc.ID, "layers", document.Count(doc.Layers))
}

// UpdateDocument swaps in a newer revision of the same document while
// preserving selection and view state. Used when another editor commits.
// A selection whose layer no longer exists is cleared; a gesture in
// progress is dropped.
func (e *Engine) UpdateDocument(doc *document.Document) {
	if e.doc == nil || e.doc.Width != doc.Width || e.doc.Height != doc.Height {
		e.target = composite.NewTarget(doc.Width, doc.Height)
	}
	e.doc = doc
	if e.sel.Active() {
		e.sel.Drag = Idle{}
		e.sel.Cursor = CursorNone
	}
	e.refreshSelection()
	e.dirty = true
}

// LoadBundle imports a bundle manifest as a fresh document.
func (e *Engine) LoadBundle(data []byte) error {
	doc, err := bundle.Import(data)
	if err != nil {
		return err
	}
	e.LoadDocument(doc)
	return nil
}

// LoadSampleDocument loads the built-in sample document.
func (e *Engine) LoadSampleDocument() {
	e.LoadDocument(document.NewSampleDocument())
}

// SetSelection targets the layer with the given id; "" clears the
// selection. An unknown id clears the selection and returns
// ErrLayerNotFound.
func (e *Engine) SetSelection(id string) error {
	if id == "" {
		e.clearSelection()
		return nil
	}
	if e.doc == nil {
		return ErrNoDocument
	}
	n, ok := document.FindByID(e.doc.Layers, id)
	if !ok {
		e.clearSelection()
		return ErrLayerNotFound
	}
	e.sel = SelectionState{
		LayerID:    id,
		ActiveRect: n.Rect,
		ActiveM:    n.M,
		LiveM:      n.M,
		Drag:       Idle{},
		Cursor:     CursorNone,
	}
	return nil
}

// SetVisibility shows or hides a layer and its subtree.
func (e *Engine) SetVisibility(id string, visible bool) error {
	return e.update(id, document.Patch{Visible: &visible})
}

// ReplaceContent swaps a layer's raster. The layer keeps its position and
// matrix; its rect is resized to the new image.
func (e *Engine) ReplaceContent(id string, img image.Image) error {
	if e.doc == nil {
		return ErrNoDocument
	}
	n, ok := document.FindByID(e.doc.Layers, id)
	if !ok {
		return ErrLayerNotFound
	}
	content := document.ToNRGBA(img)
	if content == nil {
		return errEmptyContent
	}
	b := content.Bounds()
	rect := geom.RectWH(n.Rect.Left, n.Rect.Top, float64(b.Dx()), float64(b.Dy()))
	return e.update(id, document.Patch{Content: content, Rect: &rect})
}

// SetViewScale sets the uniform zoom. Non-positive or NaN values are
// ignored; values above MaxViewScale are clamped.
func (e *Engine) SetViewScale(scale float64) {
	if math.IsNaN(scale) || scale <= 0 {
		return
	}
	e.viewScale = math.Min(scale, MaxViewScale)
}

// PointerDown starts a drag or resize when it lands on the selection.
func (e *Engine) PointerDown(x, y float64) {
	e.dispatch(PointerDown{P: geom.Point{X: x, Y: y}})
}

// PointerMove updates the hover cursor or the live preview.
func (e *Engine) PointerMove(x, y float64) {
	e.dispatch(PointerMove{P: geom.Point{X: x, Y: y}})
}

// PointerUp ends the gesture and commits the live matrix. It reports
// whether the document changed.
func (e *Engine) PointerUp(x, y float64) bool {
	return e.dispatch(PointerUp{P: geom.Point{X: x, Y: y}})
}

func (e *Engine) dispatch(ev Event) (committed bool) {
	e.refreshSelection()

	next, eff := Reduce(e.sel, ev, e.viewScale)
	e.sel = next
	if eff.Preview {
		e.dirty = true
	}
	if eff.Commit {
		m := eff.M
		if err := e.update(e.sel.LayerID, document.Patch{M: &m}); err != nil {
			slog.Warn("commit transform", "layer", e.sel.LayerID, "error", err)
			return false
		}
		return true
	}
	return false
}

// update applies patch to one layer, bumps the document version and
// refreshes the cached selection.
func (e *Engine) update(id string, patch document.Patch) error {
	if e.doc == nil {
		return ErrNoDocument
	}
	if _, ok := document.FindByID(e.doc.Layers, id); !ok {
		return ErrLayerNotFound
	}
	next := *e.doc
	next.Layers = document.UpdateByID(e.doc.Layers, id, patch)
	next.Version++
	e.doc = &next
	e.dirty = true
	e.refreshSelection()
	return nil
}

// refreshSelection re-reads the selected node. A stale id clears the
// selection. While a gesture runs the live matrix is kept.
func (e *Engine) refreshSelection() {
	if !e.sel.Selected() {
		return
	}
	if e.doc == nil {
		e.clearSelection()
		return
	}
	n, ok := document.FindByID(e.doc.Layers, e.sel.LayerID)
	if !ok {
		slog.Debug("selection cleared", "layer", e.sel.LayerID, "reason", "not found")
		e.clearSelection()
		return
	}
	e.sel.ActiveRect = n.Rect
	e.sel.ActiveM = n.M
	if !e.sel.Active() {
		e.sel.LiveM = n.M
	}
}

func (e *Engine) clearSelection() {
	if e.sel.Active() {
		e.dirty = true
	}
	e.sel = SelectionState{Drag: Idle{}, Cursor: CursorNone}
}

// --- Queries (frontend ← backend) ---

// Render returns the composite of the current document, including the
// live preview of an active gesture. The surface is reused between calls
// and redrawn only when something changed. It returns nil when no
// document is loaded.
func (e *Engine) Render() *image.RGBA {
	if e.doc == nil {
		return nil
	}
	if e.dirty {
		opts := composite.Options{Sampling: e.sampling}
		if e.sel.Active() {
			opts.Override = &composite.Override{LayerID: e.sel.LayerID, M: e.sel.LiveM}
		}
		composite.Render(e.target, e.doc.Layers, opts)
		e.dirty = false
	}
	return e.target
}

// Cursor returns the current pointer affordance.
func (e *Engine) Cursor() Cursor {
	return e.sel.Cursor
}

// Overlay returns the selection guides, or false when nothing is selected.
func (e *Engine) Overlay() (Overlay, bool) {
	e.refreshSelection()
	if !e.sel.Selected() {
		return Overlay{}, false
	}
	return newOverlay(e.sel.LayerID, e.sel.Quad(e.viewScale)), true
}

// OverlayImage returns a transparent surface of the document size times
// the view scale with the selection guides drawn on it.
func (e *Engine) OverlayImage() *image.RGBA {
	if e.doc == nil {
		return nil
	}
	w := int(math.Ceil(float64(e.doc.Width) * e.viewScale))
	h := int(math.Ceil(float64(e.doc.Height) * e.viewScale))
	if e.overlay == nil || e.overlay.Rect.Dx() != w || e.overlay.Rect.Dy() != h {
		e.overlay = image.NewRGBA(image.Rect(0, 0, w, h))
	} else {
		clear(e.overlay.Pix)
	}
	if o, ok := e.Overlay(); ok {
		DrawOverlay(e.overlay, o.Quad)
	}
	return e.overlay
}

// Layers returns the current layer tree.
func (e *Engine) Layers() []document.LayerNode {
	if e.doc == nil {
		return nil
	}
	return e.doc.Layers
}

// Document returns the current document, or nil.
func (e *Engine) Document() *document.Document {
	return e.doc
}

// Selection returns the selected layer id, or "".
func (e *Engine) Selection() string {
	e.refreshSelection()
	return e.sel.LayerID
}

// State returns a copy of the interaction state.
func (e *Engine) State() SelectionState {
	return e.sel
}

// ViewScale returns the current zoom factor.
func (e *Engine) ViewScale() float64 {
	return e.viewScale
}

// Version returns the document version, or 0.
func (e *Engine) Version() int {
	if e.doc == nil {
		return 0
	}
	return e.doc.Version
}
