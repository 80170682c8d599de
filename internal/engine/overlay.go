package engine

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/vector"

	"github.com/inamate/psdedit/internal/geom"
)

// GuideColor is the selection outline and handle color (#6496C8).
var GuideColor = color.RGBA{R: 0x64, G: 0x96, B: 0xc8, A: 0xff}

// Overlay describes the selection guides in canvas coordinates.
type Overlay struct {
	LayerID string       `json:"layerId"`
	Quad    geom.Quad    `json:"quad"`
	Handles [4]geom.Rect `json:"handles"`
}

func newOverlay(id string, q geom.Quad) Overlay {
	o := Overlay{LayerID: id, Quad: q}
	for h := geom.HandleTopLeft; h <= geom.HandleBottomLeft; h++ {
		o.Handles[h] = geom.HandleBox(q, h)
	}
	return o
}

// DrawOverlay rasterizes a 1px outline of q and its four corner handles
// onto dst.
func DrawOverlay(dst *image.RGBA, q geom.Quad) {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())

	for i := 0; i < 4; i++ {
		edge(z, q[i], q[(i+1)%4], 0.5)
	}
	src := image.NewUniform(GuideColor)
	z.Draw(dst, b, src, image.Point{})

	// Handles go in a second pass so their winding cannot cancel the
	// outline's where they overlap.
	z.Reset(b.Dx(), b.Dy())
	for h := geom.HandleTopLeft; h <= geom.HandleBottomLeft; h++ {
		r := geom.HandleBox(q, h)
		z.MoveTo(float32(r.Left), float32(r.Top))
		z.LineTo(float32(r.Right), float32(r.Top))
		z.LineTo(float32(r.Right), float32(r.Bottom))
		z.LineTo(float32(r.Left), float32(r.Bottom))
		z.ClosePath()
	}

	z.Draw(dst, b, src, image.Point{})
}

// edge adds a segment from a to b widened by half on either side.
func edge(z *vector.Rasterizer, a, b geom.Point, half float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*half, dx/l*half

	z.MoveTo(float32(a.X+nx), float32(a.Y+ny))
	z.LineTo(float32(b.X+nx), float32(b.Y+ny))
	z.LineTo(float32(b.X-nx), float32(b.Y-ny))
	z.LineTo(float32(a.X-nx), float32(a.Y-ny))
	z.ClosePath()
}
