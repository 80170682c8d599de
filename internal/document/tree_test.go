package document

import (
	"image"
	"image/color"
	"testing"

	"github.com/inamate/psdedit/internal/geom"
)

func testTree() []LayerNode {
	return []LayerNode{
		{ID: "a", Name: "A", Visible: true, M: geom.Identity()},
		{
			ID: "g", Name: "Group", Visible: true, M: geom.Identity(),
			Children: []LayerNode{
				{ID: "g1", Name: "G1", Visible: true, M: geom.Identity()},
				{
					ID: "g2", Name: "G2", Visible: true, M: geom.Identity(),
					Children: []LayerNode{
						{ID: "deep", Name: "Deep", Visible: true, M: geom.Identity()},
					},
				},
			},
		},
		{ID: "b", Name: "B", Visible: true, M: geom.Identity()},
	}
}

func TestFindByID(t *testing.T) {
	tree := testTree()
	tests := []struct {
		id       string
		wantName string
		wantOK   bool
	}{
		{"a", "A", true},
		{"g", "Group", true},
		{"deep", "Deep", true},
		{"b", "B", true},
		{"missing", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			n, ok := FindByID(tree, tt.id)
			if ok != tt.wantOK || n.Name != tt.wantName {
				t.Errorf("FindByID(%q) = %q, %v; want %q, %v", tt.id, n.Name, ok, tt.wantName, tt.wantOK)
			}
		})
	}
}

func TestIDsDocumentOrder(t *testing.T) {
	got := IDs(testTree())
	want := []string{"a", "g", "g1", "g2", "deep", "b"}
	if len(got) != len(want) {
		t.Fatalf("IDs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("IDs = %v, want %v", got, want)
		}
	}
}

func TestUpdateByID(t *testing.T) {
	tree := testTree()
	m := geom.Translation(10, 10)
	hidden := false

	next := UpdateByID(tree, "deep", Patch{M: &m, Visible: &hidden})

	n, ok := FindByID(next, "deep")
	if !ok {
		t.Fatal("updated node not found")
	}
	if n.M != m || n.Visible {
		t.Errorf("patch not applied: M=%v visible=%v", n.M, n.Visible)
	}
	if Count(next) != Count(tree) {
		t.Errorf("Count = %d, want %d", Count(next), Count(tree))
	}

	// The input tree is untouched.
	orig, _ := FindByID(tree, "deep")
	if !orig.M.IsIdentity() || !orig.Visible {
		t.Error("UpdateByID mutated its input")
	}

	// Siblings off the path are unchanged.
	for _, id := range []string{"a", "g1", "b"} {
		before, _ := FindByID(tree, id)
		after, _ := FindByID(next, id)
		if before.Name != after.Name || before.M != after.M || before.Visible != after.Visible {
			t.Errorf("sibling %q changed", id)
		}
	}
	// Slices along the path are copied.
	if &next[1].Children[0] == &tree[1].Children[0] {
		t.Error("path slice was not copied")
	}
}

func TestUpdateByIDNoMatch(t *testing.T) {
	tree := testTree()
	name := "x"
	next := UpdateByID(tree, "missing", Patch{Name: &name})
	if &next[0] != &tree[0] {
		t.Error("UpdateByID copied the tree without a match")
	}
}

func TestWalkSkipChildren(t *testing.T) {
	var seen []string
	Walk(testTree(), func(n *LayerNode, _ int) bool {
		seen = append(seen, n.ID)
		return n.ID != "g"
	})
	want := []string{"a", "g", "b"}
	if len(seen) != len(want) {
		t.Fatalf("Walk visited %v, want %v", seen, want)
	}
}

func TestMapPreservesStructure(t *testing.T) {
	tree := testTree()
	next := Map(tree, func(n LayerNode) LayerNode {
		n.Name += "!"
		return n
	})
	n, _ := FindByID(next, "deep")
	if n.Name != "Deep!" {
		t.Errorf("Name = %q, want %q", n.Name, "Deep!")
	}
	if Count(next) != Count(tree) {
		t.Error("Map changed node count")
	}
}

func TestPatchClearMask(t *testing.T) {
	n := LayerNode{Mask: &Mask{Image: image.NewNRGBA(image.Rect(0, 0, 1, 1))}}
	n = Patch{ClearMask: true}.Apply(n)
	if n.Mask != nil {
		t.Error("ClearMask left the mask")
	}
}

func TestImport(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})

	doc := Import(RawDocument{
		Name: "doc", Width: 100, Height: 100,
		Layers: []RawLayer{
			{
				Name: "group", Visible: true,
				Children: []RawLayer{
					{Name: "red", Visible: true, BlendMode: "norm", Right: 20, Bottom: 20, Image: img},
					{Name: "empty", Visible: true, Image: image.NewNRGBA(image.Rectangle{})},
				},
			},
			{Name: "masked", Visible: false, BlendMode: "hue ", Left: 5, Top: 5, Right: 25, Bottom: 25,
				Image: img, Mask: &RawMask{Left: 5, Top: 5, Image: img}},
		},
	})

	if doc.Width != 100 || doc.Height != 100 {
		t.Errorf("size = %dx%d", doc.Width, doc.Height)
	}
	if Count(doc.Layers) != 4 {
		t.Fatalf("Count = %d, want 4", Count(doc.Layers))
	}

	seen := map[string]bool{}
	Walk(doc.Layers, func(n *LayerNode, _ int) bool {
		if seen[n.ID] || n.ID == "" {
			t.Errorf("duplicate or empty id %q", n.ID)
		}
		seen[n.ID] = true
		if !n.M.IsIdentity() {
			t.Errorf("%s: M not identity", n.Name)
		}
		return true
	})

	group := doc.Layers[0]
	if !group.IsGroup() {
		t.Error("group has content")
	}
	if group.Children[1].Content != nil {
		t.Error("empty raster was kept")
	}
	red := group.Children[0]
	if !red.HasContent() || red.Rect != geom.RectWH(0, 0, 20, 20) {
		t.Errorf("red: content=%v rect=%+v", red.HasContent(), red.Rect)
	}
	if red.Opacity != 255 {
		t.Errorf("default opacity = %d, want 255", red.Opacity)
	}
	masked := doc.Layers[1]
	if !masked.HasMask() || masked.Visible || masked.BlendMode != BlendPassthrough {
		t.Errorf("masked: mask=%v visible=%v blend=%v", masked.HasMask(), masked.Visible, masked.BlendMode)
	}
}

func TestParseBlendMode(t *testing.T) {
	tests := []struct {
		key  string
		want BlendMode
	}{
		{"norm", BlendNormal},
		{"", BlendNormal},
		{"mul ", BlendMultiply},
		{"Multiply", BlendMultiply},
		{"scrn", BlendScreen},
		{"over", BlendOverlay},
		{"dark", BlendDarken},
		{"lite", BlendLighten},
		{"diff", BlendDifference},
		{"pass", BlendPassthrough},
		{"hue ", BlendPassthrough},
		{"color_dodge", BlendPassthrough},
	}
	for _, tt := range tests {
		if got := ParseBlendMode(tt.key); got != tt.want {
			t.Errorf("ParseBlendMode(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestContentMatrix(t *testing.T) {
	n := LayerNode{Rect: geom.RectWH(5, 7, 10, 10), M: geom.Scale(2, 2)}
	got := n.ContentMatrix().Apply(geom.Point{})
	if got != (geom.Point{X: 10, Y: 14}) {
		t.Errorf("content origin = %+v, want {10 14}", got)
	}
}

func TestSampleDocument(t *testing.T) {
	doc := NewSampleDocument()
	if Count(doc.Layers) != 5 {
		t.Errorf("Count = %d, want 5", Count(doc.Layers))
	}
}

func TestImportExplicitOpacity(t *testing.T) {
	transparent, half := uint8(0), uint8(128)
	doc := Import(RawDocument{
		Width: 10, Height: 10,
		Layers: []RawLayer{
			{Name: "clear", Visible: true, Opacity: &transparent},
			{Name: "half", Visible: true, Opacity: &half},
			{Name: "unset", Visible: true},
		},
	})
	want := []uint8{0, 128, 255}
	for i, n := range doc.Layers {
		if n.Opacity != want[i] {
			t.Errorf("%s: opacity = %d, want %d", n.Name, n.Opacity, want[i])
		}
	}
}
