package bundle

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/inamate/psdedit/internal/document"
	"github.com/inamate/psdedit/internal/geom"
)

func pngBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testManifest(t *testing.T) []byte {
	t.Helper()
	hidden := false
	half := 128
	m := Manifest{
		ID:   "doc_ignored",
		Name: "test", Width: 64, Height: 48,
		Layers: []Layer{
			{
				Name: "group",
				Children: []Layer{
					{
						ID:   "layer_ignored",
						Name: "red", BlendMode: "mul ", Opacity: &half,
						Left: 4, Top: 4, Right: 24, Bottom: 14,
						Image:     pngBytes(t, 20, 10, color.NRGBA{R: 255, A: 255}),
						Mask:      &Mask{Left: 4, Top: 4, Image: pngBytes(t, 5, 5, color.NRGBA{A: 255})},
						Transform: []float64{2, 0, 3, 0, 2, 5, 0, 0, 1},
					},
				},
			},
			{Name: "hidden", Visible: &hidden, Image: pngBytes(t, 8, 8, color.NRGBA{B: 255, A: 255})},
		},
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestImport(t *testing.T) {
	doc, err := Import(testManifest(t))
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID == "doc_ignored" || doc.Width != 64 || doc.Height != 48 {
		t.Errorf("doc = %s %dx%d", doc.ID, doc.Width, doc.Height)
	}
	if document.Count(doc.Layers) != 3 {
		t.Fatalf("Count = %d, want 3", document.Count(doc.Layers))
	}

	red := doc.Layers[0].Children[0]
	if red.ID == "layer_ignored" {
		t.Error("Import kept the manifest id")
	}
	if !red.M.IsIdentity() {
		t.Error("Import kept the manifest transform")
	}
	if !red.HasContent() || !red.HasMask() {
		t.Error("rasters not decoded")
	}
	if red.BlendMode != document.BlendMultiply || red.Opacity != 128 {
		t.Errorf("blend=%s opacity=%d", red.BlendMode, red.Opacity)
	}
	if !doc.Layers[0].Visible || doc.Layers[1].Visible {
		t.Error("visibility defaults wrong")
	}
	hidden := doc.Layers[1]
	if hidden.Rect != geom.RectWH(0, 0, 8, 8) {
		t.Errorf("rect from image = %+v", hidden.Rect)
	}
}

func TestRestoreKeepsIdentity(t *testing.T) {
	doc, err := Restore(testManifest(t))
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID != "doc_ignored" {
		t.Errorf("ID = %q", doc.ID)
	}
	red, ok := document.FindByID(doc.Layers, "layer_ignored")
	if !ok {
		t.Fatal("layer id not restored")
	}
	want := geom.Compose(geom.Translation(3, 5), geom.Scale(2, 2))
	if !red.M.ApproxEqual(want, 1e-12) {
		t.Errorf("M = %v, want %v", red.M, want)
	}
}

func TestEncodeRestoreRoundTrip(t *testing.T) {
	doc := document.NewSampleDocument()
	red := doc.Layers[0].Children[1]
	m := geom.Translation(7, 9)
	doc.Layers = document.UpdateByID(doc.Layers, red.ID, document.Patch{M: &m})
	doc.Version = 4

	data, err := Encode(doc)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Restore(data)
	if err != nil {
		t.Fatal(err)
	}

	if got.ID != doc.ID || got.Version != 4 || got.Name != doc.Name {
		t.Errorf("header = %s v%d %q", got.ID, got.Version, got.Name)
	}
	wantIDs, gotIDs := document.IDs(doc.Layers), document.IDs(got.Layers)
	if len(wantIDs) != len(gotIDs) {
		t.Fatalf("ids = %v, want %v", gotIDs, wantIDs)
	}
	for i := range wantIDs {
		if wantIDs[i] != gotIDs[i] {
			t.Fatalf("ids = %v, want %v", gotIDs, wantIDs)
		}
	}

	n, _ := document.FindByID(got.Layers, red.ID)
	if n.M != m {
		t.Errorf("M = %v, want %v", n.M, m)
	}
	if !n.HasMask() || !bytes.Equal(n.Content.Pix, red.Content.Pix) {
		t.Error("rasters changed")
	}
	hidden, _ := document.FindByID(got.Layers, doc.Layers[1].ID)
	if hidden.Visible {
		t.Error("hidden layer restored visible")
	}
}

func TestInvalidManifest(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", `{`},
		{"zero canvas", `{"name":"x","width":0,"height":10}`},
		{"bad transform", `{"width":1,"height":1,"layers":[{"name":"a","transform":[1,2]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Restore([]byte(tt.data)); !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}

	if _, err := Import([]byte(`{"width":1,"height":1,"layers":[{"name":"a","image":"bm90IGFuIGltYWdl"}]}`)); err == nil {
		t.Error("undecodable image accepted")
	}
}

func TestZeroOpacityKept(t *testing.T) {
	zero := 0
	data, err := json.Marshal(Manifest{
		Name: "clear", Width: 8, Height: 8,
		Layers: []Layer{
			{Name: "clear", Opacity: &zero, Image: pngBytes(t, 8, 8, color.NRGBA{R: 255, A: 255})},
			{Name: "default", Image: pngBytes(t, 8, 8, color.NRGBA{R: 255, A: 255})},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	for name, load := range map[string]func([]byte) (*document.Document, error){
		"import":  Import,
		"restore": Restore,
	} {
		doc, err := load(data)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got := doc.Layers[0].Opacity; got != 0 {
			t.Errorf("%s: explicit opacity = %d, want 0", name, got)
		}
		if got := doc.Layers[1].Opacity; got != 255 {
			t.Errorf("%s: missing opacity = %d, want 255", name, got)
		}
	}
}
