package composite

import (
	"image"
	"math"

	"github.com/inamate/psdedit/internal/document"
)

// blendFunc combines a backdrop channel cb with a source channel cs, both
// straight (non-premultiplied) in [0,1].
type blendFunc func(cb, cs float64) float64

func blendNormal(_, cs float64) float64    { return cs }
func blendMultiply(cb, cs float64) float64 { return cb * cs }
func blendScreen(cb, cs float64) float64   { return cb + cs - cb*cs }
func blendDarken(cb, cs float64) float64   { return math.Min(cb, cs) }
func blendLighten(cb, cs float64) float64  { return math.Max(cb, cs) }

func blendDifference(cb, cs float64) float64 { return math.Abs(cb - cs) }

func blendOverlay(cb, cs float64) float64 {
	// Hard light with the layers swapped.
	if cb <= 0.5 {
		return 2 * cb * cs
	}
	return 1 - 2*(1-cb)*(1-cs)
}

// blendFuncFor returns the per-channel function for a mode. Passthrough
// and unknown modes draw as normal.
func blendFuncFor(mode document.BlendMode) blendFunc {
	switch mode {
	case document.BlendMultiply:
		return blendMultiply
	case document.BlendScreen:
		return blendScreen
	case document.BlendOverlay:
		return blendOverlay
	case document.BlendDarken:
		return blendDarken
	case document.BlendLighten:
		return blendLighten
	case document.BlendDifference:
		return blendDifference
	default:
		return blendNormal
	}
}

// blendRect composites src onto dst inside r using a separable blend mode
// followed by source-over, with opacity (0-255) scaling the source alpha.
// Both images are premultiplied and share the same coordinate space.
func blendRect(dst, src *image.RGBA, r image.Rectangle, fn blendFunc, opacity uint8) {
	op := float64(opacity) / 255
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			si := src.PixOffset(x, y)
			sa8 := src.Pix[si+3]
			if sa8 == 0 {
				continue
			}
			di := dst.PixOffset(x, y)

			as := float64(sa8) / 255 * op
			ab := float64(dst.Pix[di+3]) / 255
			ao := as + ab*(1-as)
			if ao == 0 {
				continue
			}

			sScale := float64(sa8) / 255
			for c := 0; c < 3; c++ {
				cs := float64(src.Pix[si+c]) / 255 / sScale
				var cb float64
				if ab > 0 {
					cb = float64(dst.Pix[di+c]) / 255 / ab
				}
				mixed := (1-ab)*cs + ab*clamp01(fn(cb, cs))
				// Premultiplied source-over.
				co := as*mixed + ab*cb*(1-as)
				dst.Pix[di+c] = to8(co)
			}
			dst.Pix[di+3] = to8(ao)
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func to8(v float64) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}
