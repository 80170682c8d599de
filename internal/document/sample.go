package document

import (
	"image"
	"image/color"
)

// NewSampleDocument builds a small document used by demos: a background,
// a group with two shapes (one masked, one multiplied) and a hidden layer.
func NewSampleDocument() *Document {
	const w, h = 256, 256

	background := solid(w, h, color.NRGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 0xff})

	mask := image.NewNRGBA(image.Rect(0, 0, 48, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			if (x/8+y/8)%2 == 0 {
				mask.SetNRGBA(x, y, color.NRGBA{A: 0xff})
			}
		}
	}

	return Import(RawDocument{
		Name:   "Sample",
		Width:  w,
		Height: h,
		Layers: []RawLayer{
			{
				Name:    "Shapes",
				Visible: true,
				Children: []RawLayer{
					{
						Name:      "Blue",
						Visible:   true,
						BlendMode: "mul ",
						Left:      96, Top: 96, Right: 192, Bottom: 160,
						Image: solid(96, 64, color.NRGBA{R: 0x4a, G: 0x90, B: 0xd9, A: 0xff}),
					},
					{
						Name:      "Red",
						Visible:   true,
						BlendMode: "norm",
						Left:      48, Top: 48, Right: 144, Bottom: 144,
						Image: solid(96, 96, color.NRGBA{R: 0xe9, G: 0x45, B: 0x60, A: 0xff}),
						Mask:  &RawMask{Left: 72, Top: 72, Image: mask},
					},
				},
			},
			{
				Name:      "Hidden",
				Visible:   false,
				BlendMode: "norm",
				Left:      0, Top: 0, Right: 32, Bottom: 32,
				Image: solid(32, 32, color.NRGBA{G: 0xff, A: 0xff}),
			},
			{
				Name:      "Background",
				Visible:   true,
				BlendMode: "norm",
				Left:      0, Top: 0, Right: w, Bottom: h,
				Image: background,
			},
		},
	})
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}
