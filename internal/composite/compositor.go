// Package composite renders a layer tree into a single raster.
//
// Siblings are painted from the last index to the first so index 0 ends up
// on top. A node's own content is painted before its children. Hidden
// nodes hide their whole subtree. Groups have no intermediate surface:
// their children land directly on the target, so blend modes and masks
// apply per leaf layer.
package composite

import (
	"image"
	"image/color"
	"log/slog"

	"golang.org/x/image/draw"

	"github.com/inamate/psdedit/internal/document"
	"github.com/inamate/psdedit/internal/geom"
)

// Sampling selects how layer pixels are resampled through their matrix.
type Sampling string

const (
	// SamplingNearest picks the source pixel under each destination pixel
	// center. Integer translations reproduce the source exactly.
	SamplingNearest Sampling = "nearest"
	// SamplingBilinear interpolates between the four nearest source pixels.
	SamplingBilinear Sampling = "bilinear"
)

// ParseSampling maps a config string to a Sampling, defaulting to nearest.
func ParseSampling(s string) Sampling {
	if Sampling(s) == SamplingBilinear {
		return SamplingBilinear
	}
	return SamplingNearest
}

func (s Sampling) interpolator() draw.Interpolator {
	if s == SamplingBilinear {
		return draw.BiLinear
	}
	return draw.NearestNeighbor
}

// Options tunes a render.
type Options struct {
	Sampling Sampling
	// Override, when set, replaces the matrix of the layer with the given
	// id for this render only. Used for live drag/resize previews.
	Override *Override
}

// Override is a per-render placement for one layer.
type Override struct {
	LayerID string
	M       geom.Matrix
}

// NewTarget allocates a transparent target surface.
func NewTarget(width, height int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

// Render clears target and paints layers into it.
func Render(target *image.RGBA, layers []document.LayerNode, opts Options) {
	clear(target.Pix)

	r := &renderer{
		target:   target,
		scratch:  image.NewRGBA(target.Bounds()),
		interp:   opts.Sampling.interpolator(),
		override: opts.Override,
	}
	r.renderLayers(layers)
}

type renderer struct {
	target   *image.RGBA
	scratch  *image.RGBA
	maskBuf  *image.RGBA
	interp   draw.Interpolator
	override *Override
}

func (r *renderer) renderLayers(layers []document.LayerNode) {
	for i := len(layers) - 1; i >= 0; i-- {
		n := &layers[i]
		if !n.Visible {
			continue
		}
		if n.HasContent() {
			r.renderLayer(n)
		}
		r.renderLayers(n.Children)
	}
}

func (r *renderer) renderLayer(n *document.LayerNode) {
	m := n.M
	if r.override != nil && r.override.LayerID == n.ID {
		m = r.override.M
	}
	if !m.IsAffine() || m.IsDegenerate() {
		slog.Debug("skip layer content", "layer", n.ID, "reason", "degenerate matrix")
		return
	}

	placed := *n
	placed.M = m
	contentM := placed.ContentMatrix()

	dirty := geom.TransformRect(geom.RectFromImage(n.Content.Rect), contentM).
		ImageRect().Intersect(r.target.Rect)
	if dirty.Empty() {
		return
	}

	clearRect(r.scratch, dirty)
	r.interp.Transform(r.scratch, contentM.Aff3(), n.Content, n.Content.Rect, draw.Over, nil)

	if n.HasMask() {
		r.applyMask(&placed, dirty)
	}

	if n.BlendMode.Supported() && n.BlendMode != document.BlendNormal {
		blendRect(r.target, r.scratch, dirty, blendFuncFor(n.BlendMode), n.Opacity)
		return
	}
	if n.Opacity == 255 {
		draw.Draw(r.target, dirty, r.scratch, dirty.Min, draw.Over)
		return
	}
	draw.DrawMask(r.target, dirty, r.scratch, dirty.Min,
		image.NewUniform(color.Alpha{A: n.Opacity}), image.Point{}, draw.Over)
}

// applyMask draws the mask through the layer's placement and subtracts its
// alpha from the scratch surface (destination-out).
func (r *renderer) applyMask(n *document.LayerNode, dirty image.Rectangle) {
	if r.maskBuf == nil {
		r.maskBuf = image.NewRGBA(r.target.Bounds())
	}
	clearRect(r.maskBuf, dirty)

	mask := n.Mask.Image
	r.interp.Transform(r.maskBuf, n.MaskMatrix().Aff3(), mask, mask.Rect, draw.Over, nil)

	for y := dirty.Min.Y; y < dirty.Max.Y; y++ {
		for x := dirty.Min.X; x < dirty.Max.X; x++ {
			ma := uint32(r.maskBuf.Pix[r.maskBuf.PixOffset(x, y)+3])
			if ma == 0 {
				continue
			}
			i := r.scratch.PixOffset(x, y)
			keep := 255 - ma
			for c := 0; c < 4; c++ {
				r.scratch.Pix[i+c] = uint8((uint32(r.scratch.Pix[i+c])*keep + 127) / 255)
			}
		}
	}
}

func clearRect(img *image.RGBA, rect image.Rectangle) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		start := img.PixOffset(rect.Min.X, y)
		clear(img.Pix[start : start+rect.Dx()*4])
	}
}
