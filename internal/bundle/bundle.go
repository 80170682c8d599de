// Package bundle reads and writes the JSON document manifest: canvas size
// plus a layer tree whose rasters are base64-encoded image files.
package bundle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/inamate/psdedit/internal/asset"
	"github.com/inamate/psdedit/internal/document"
	"github.com/inamate/psdedit/internal/geom"
	"github.com/inamate/psdedit/internal/typeid"
)

// ErrInvalid is returned for manifests that cannot describe a document.
var ErrInvalid = errors.New("bundle: invalid manifest")

// Manifest is the top-level bundle object.
type Manifest struct {
	ID      string  `json:"id,omitempty"`
	Name    string  `json:"name"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Version int     `json:"version,omitempty"`
	Layers  []Layer `json:"layers"`
}

// Layer is one manifest layer. Image and Mask.Image hold encoded PNG,
// JPEG, WebP or TGA bytes (base64 in JSON).
type Layer struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Visible   *bool     `json:"visible,omitempty"`
	BlendMode string    `json:"blendMode,omitempty"`
	Opacity   *int      `json:"opacity,omitempty"`
	Left      float64   `json:"left"`
	Top       float64   `json:"top"`
	Right     float64   `json:"right"`
	Bottom    float64   `json:"bottom"`
	Image     []byte    `json:"image,omitempty"`
	Mask      *Mask     `json:"mask,omitempty"`
	Transform []float64 `json:"transform,omitempty"`
	Children  []Layer   `json:"children,omitempty"`
}

// Mask is a layer mask raster and its local offset.
type Mask struct {
	Left  int    `json:"left"`
	Top   int    `json:"top"`
	Image []byte `json:"image"`
}

func parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if m.Width <= 0 || m.Height <= 0 {
		return nil, fmt.Errorf("%w: canvas %dx%d", ErrInvalid, m.Width, m.Height)
	}
	return &m, nil
}

// Import builds a fresh document from a manifest. Ids, versions and
// transforms in the manifest are ignored.
func Import(data []byte) (*document.Document, error) {
	m, err := parse(data)
	if err != nil {
		return nil, err
	}
	raw, err := rawLayers(m.Layers)
	if err != nil {
		return nil, err
	}
	return document.Import(document.RawDocument{
		Name:   m.Name,
		Width:  m.Width,
		Height: m.Height,
		Layers: raw,
	}), nil
}

func rawLayers(layers []Layer) ([]document.RawLayer, error) {
	out := make([]document.RawLayer, 0, len(layers))
	for _, l := range layers {
		op := opacity(l.Opacity)
		r := document.RawLayer{
			Name:      l.Name,
			Visible:   visible(l.Visible),
			BlendMode: l.BlendMode,
			Opacity:   &op,
			Left:      int(l.Left),
			Top:       int(l.Top),
			Right:     int(l.Right),
			Bottom:    int(l.Bottom),
		}
		img, mask, err := decodeRasters(l)
		if err != nil {
			return nil, err
		}
		if img != nil {
			r.Image = img
		}
		if mask != nil {
			r.Mask = &document.RawMask{Left: l.Mask.Left, Top: l.Mask.Top, Image: mask}
		}
		if r.Children, err = rawLayers(l.Children); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Restore rebuilds a stored snapshot, keeping ids, version and transforms.
// Missing ids are generated.
func Restore(data []byte) (*document.Document, error) {
	m, err := parse(data)
	if err != nil {
		return nil, err
	}
	layers, err := restoreLayers(m.Layers)
	if err != nil {
		return nil, err
	}
	doc := &document.Document{
		ID:      m.ID,
		Name:    m.Name,
		Width:   m.Width,
		Height:  m.Height,
		Version: m.Version,
		Layers:  layers,
	}
	if doc.ID == "" {
		doc.ID = typeid.NewDocumentID()
	}
	if doc.Version <= 0 {
		doc.Version = 1
	}
	return doc, nil
}

func restoreLayers(layers []Layer) ([]document.LayerNode, error) {
	out := make([]document.LayerNode, 0, len(layers))
	for _, l := range layers {
		n := document.LayerNode{
			ID:        l.ID,
			Name:      l.Name,
			Visible:   visible(l.Visible),
			BlendMode: document.ParseBlendMode(l.BlendMode),
			Opacity:   opacity(l.Opacity),
			Rect:      geom.Rect{Left: l.Left, Top: l.Top, Right: l.Right, Bottom: l.Bottom},
			M:         geom.Identity(),
		}
		if n.ID == "" {
			n.ID = typeid.NewLayerID()
		}
		if len(l.Transform) > 0 {
			m, ok := geom.FromSlice(l.Transform)
			if !ok {
				return nil, fmt.Errorf("%w: layer %q transform has %d values", ErrInvalid, l.Name, len(l.Transform))
			}
			n.M = m
		}

		img, mask, err := decodeRasters(l)
		if err != nil {
			return nil, err
		}
		n.Content = img
		if mask != nil {
			n.Mask = &document.Mask{Image: mask, Left: l.Mask.Left, Top: l.Mask.Top}
		}
		if n.Children, err = restoreLayers(l.Children); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func decodeRasters(l Layer) (img, mask *image.NRGBA, err error) {
	if len(l.Image) > 0 {
		if img, _, err = asset.DecodeBytes(l.Image); err != nil && !errors.Is(err, asset.ErrEmptyImage) {
			return nil, nil, fmt.Errorf("layer %q image: %w", l.Name, err)
		}
	}
	if l.Mask != nil && len(l.Mask.Image) > 0 {
		if mask, _, err = asset.DecodeBytes(l.Mask.Image); err != nil && !errors.Is(err, asset.ErrEmptyImage) {
			return nil, nil, fmt.Errorf("layer %q mask: %w", l.Name, err)
		}
	}
	return img, mask, nil
}

// Encode writes doc as a snapshot manifest with PNG rasters.
func Encode(doc *document.Document) ([]byte, error) {
	layers, err := encodeLayers(doc.Layers)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Manifest{
		ID:      doc.ID,
		Name:    doc.Name,
		Width:   doc.Width,
		Height:  doc.Height,
		Version: doc.Version,
		Layers:  layers,
	})
}

func encodeLayers(nodes []document.LayerNode) ([]Layer, error) {
	out := make([]Layer, 0, len(nodes))
	for _, n := range nodes {
		vis := n.Visible
		op := int(n.Opacity)
		l := Layer{
			ID:        n.ID,
			Name:      n.Name,
			Visible:   &vis,
			BlendMode: string(n.BlendMode),
			Opacity:   &op,
			Left:      n.Rect.Left,
			Top:       n.Rect.Top,
			Right:     n.Rect.Right,
			Bottom:    n.Rect.Bottom,
		}
		if !n.M.IsIdentity() {
			l.Transform = n.M.ToSlice()
		}

		var err error
		if n.HasContent() {
			if l.Image, err = encodePNG(n.Content); err != nil {
				return nil, fmt.Errorf("layer %q image: %w", n.Name, err)
			}
		}
		if n.HasMask() {
			data, err := encodePNG(n.Mask.Image)
			if err != nil {
				return nil, fmt.Errorf("layer %q mask: %w", n.Name, err)
			}
			l.Mask = &Mask{Left: n.Mask.Left, Top: n.Mask.Top, Image: data}
		}
		if l.Children, err = encodeLayers(n.Children); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func visible(v *bool) bool {
	return v == nil || *v
}

func opacity(v *int) uint8 {
	if v == nil {
		return 255
	}
	return uint8(min(max(*v, 0), 255))
}
