package document

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/inamate/psdedit/internal/geom"
	"github.com/inamate/psdedit/internal/typeid"
)

// RawDocument is what the file parser hands over: canvas size plus the
// raw layer records, topmost first.
type RawDocument struct {
	Name   string
	Width  int
	Height int
	Layers []RawLayer
}

// RawLayer is one parsed layer record. Left/Top/Right/Bottom are the
// layer's coordinates in the document; Image holds its pixels.
type RawLayer struct {
	Name      string
	Visible   bool
	BlendMode string
	// Opacity is 0-255; nil means fully opaque.
	Opacity  *uint8
	Left     int
	Top      int
	Right    int
	Bottom   int
	Image    image.Image
	Mask     *RawMask
	Children []RawLayer
}

// RawMask is a parsed layer mask placed at Left/Top.
type RawMask struct {
	Left  int
	Top   int
	Image image.Image
}

// Import maps a parsed document onto a fresh layer tree: every node gets a
// new id and an identity placement matrix.
func Import(raw RawDocument) *Document {
	return &Document{
		ID:      typeid.NewDocumentID(),
		Name:    raw.Name,
		Width:   raw.Width,
		Height:  raw.Height,
		Version: 1,
		Layers:  importLayers(raw.Layers),
	}
}

func importLayers(raw []RawLayer) []LayerNode {
	layers := make([]LayerNode, 0, len(raw))
	for _, r := range raw {
		layers = append(layers, importLayer(r))
	}
	return layers
}

func importLayer(r RawLayer) LayerNode {
	opacity := uint8(255)
	if r.Opacity != nil {
		opacity = *r.Opacity
	}
	n := LayerNode{
		ID:        typeid.NewLayerID(),
		Name:      r.Name,
		Visible:   r.Visible,
		BlendMode: ParseBlendMode(r.BlendMode),
		Opacity:   opacity,
		Rect: geom.Rect{
			Left:   float64(r.Left),
			Top:    float64(r.Top),
			Right:  float64(r.Right),
			Bottom: float64(r.Bottom),
		},
		M:        geom.Identity(),
		Children: importLayers(r.Children),
	}

	// Zero-sized rasters are dropped here; the node still takes part in
	// traversal.
	if content := ToNRGBA(r.Image); content != nil {
		n.Content = content
		if n.Rect.IsEmpty() {
			n.Rect = geom.RectWH(n.Rect.Left, n.Rect.Top,
				float64(content.Rect.Dx()), float64(content.Rect.Dy()))
		}
	}
	if n.Rect.Width() < 0 || n.Rect.Height() < 0 {
		n.Rect = geom.RectWH(n.Rect.Left, n.Rect.Top, 0, 0)
	}
	if r.Mask != nil {
		if img := ToNRGBA(r.Mask.Image); img != nil {
			n.Mask = &Mask{Image: img, Left: r.Mask.Left, Top: r.Mask.Top}
		}
	}
	return n
}

// ToNRGBA copies img into an NRGBA whose bounds start at the origin. It
// returns nil for a nil or empty image.
func ToNRGBA(img image.Image) *image.NRGBA {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	if b.Empty() {
		return nil
	}
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
