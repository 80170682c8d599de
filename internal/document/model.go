package document

import (
	"image"

	"github.com/inamate/psdedit/internal/geom"
)

// Document is an imported layered image: a canvas size and a layer tree.
type Document struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Width   int         `json:"width"`
	Height  int         `json:"height"`
	Version int         `json:"version"`
	Layers  []LayerNode `json:"layers"`
}

// Bounds returns the document canvas rectangle.
func (d *Document) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.Width, d.Height)
}

// LayerNode is one node of the layer tree. Nodes without Content are groups
// and contribute pixels only through their children.
type LayerNode struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Visible   bool         `json:"visible"`
	BlendMode BlendMode    `json:"blendMode"`
	Opacity   uint8        `json:"opacity"`
	Content   *image.NRGBA `json:"-"`
	Mask      *Mask        `json:"-"`
	Rect      geom.Rect    `json:"rect"`
	M         geom.Matrix  `json:"transform"`
	Children  []LayerNode  `json:"children"`
}

// Mask is an alpha raster subtracted from a layer's content before the
// layer is composited. Left/Top place it in the layer's local space.
type Mask struct {
	Image *image.NRGBA
	Left  int
	Top   int
}

// IsGroup reports whether the node has no pixels of its own.
func (n *LayerNode) IsGroup() bool {
	return n.Content == nil
}

// HasContent reports whether the node carries a drawable raster.
func (n *LayerNode) HasContent() bool {
	return n.Content != nil && !n.Content.Rect.Empty()
}

// HasMask reports whether the node carries a usable mask raster.
func (n *LayerNode) HasMask() bool {
	return n.Mask != nil && n.Mask.Image != nil && !n.Mask.Image.Rect.Empty()
}

// ContentMatrix maps content pixel coordinates to document space: the
// content's top-left sits at Rect.Left/Top in local space, then M applies.
func (n *LayerNode) ContentMatrix() geom.Matrix {
	return n.M.Multiply(geom.Translation(n.Rect.Left, n.Rect.Top))
}

// MaskMatrix maps mask pixel coordinates to document space. Masks share the
// layer's placement matrix.
func (n *LayerNode) MaskMatrix() geom.Matrix {
	if n.Mask == nil {
		return n.M
	}
	return n.M.Multiply(geom.Translation(float64(n.Mask.Left), float64(n.Mask.Top)))
}

// Patch lists the fields to replace on a node; nil fields are left alone.
type Patch struct {
	Name      *string
	Visible   *bool
	BlendMode *BlendMode
	Opacity   *uint8
	M         *geom.Matrix
	Rect      *geom.Rect
	Content   *image.NRGBA
	Mask      *Mask
	// ClearMask drops the node's mask; it wins over Mask.
	ClearMask bool
}

// Apply returns n with the patch merged in. Children are shared.
func (p Patch) Apply(n LayerNode) LayerNode {
	if p.Name != nil {
		n.Name = *p.Name
	}
	if p.Visible != nil {
		n.Visible = *p.Visible
	}
	if p.BlendMode != nil {
		n.BlendMode = *p.BlendMode
	}
	if p.Opacity != nil {
		n.Opacity = *p.Opacity
	}
	if p.M != nil {
		n.M = *p.M
	}
	if p.Rect != nil {
		n.Rect = *p.Rect
	}
	if p.Content != nil {
		n.Content = p.Content
	}
	if p.Mask != nil {
		n.Mask = p.Mask
	}
	if p.ClearMask {
		n.Mask = nil
	}
	return n
}
