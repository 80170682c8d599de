package geom

import "testing"

func TestPointInQuad(t *testing.T) {
	q := TransformRect(RectWH(0, 0, 20, 20), Identity())
	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"center", Point{10, 10}, true},
		{"near corner inside", Point{0.5, 0.5}, true},
		{"outside right", Point{21, 10}, false},
		{"outside above", Point{10, -1}, false},
		{"on top edge", Point{10, 0}, false},
		{"on left edge", Point{0, 10}, false},
		{"on corner", Point{20, 20}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointInQuad(tt.p, q); got != tt.want {
				t.Errorf("PointInQuad(%+v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestPointInQuadMirrored(t *testing.T) {
	// A negative x scale reverses the winding; the body must still hit.
	q := TransformRect(RectWH(0, 0, 20, 20), Compose(Translation(40, 0), Scale(-1, 1)))
	if !PointInQuad(Point{30, 10}, q) {
		t.Error("mirrored quad: center not inside")
	}
	if PointInQuad(Point{10, 10}, q) {
		t.Error("mirrored quad: point outside reported inside")
	}
}

func TestHandleAt(t *testing.T) {
	q := TransformRect(RectWH(10, 10, 100, 50), Identity())
	tests := []struct {
		name   string
		p      Point
		want   Handle
		wantOK bool
	}{
		{"top-left exact", Point{10, 10}, HandleTopLeft, true},
		{"top-right edge of box", Point{115, 5}, HandleTopRight, true},
		{"bottom-right inside body", Point{107, 57}, HandleBottomRight, true},
		{"bottom-left", Point{12, 62}, HandleBottomLeft, true},
		{"body only", Point{60, 35}, 0, false},
		{"just outside box", Point{115.5, 10}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := HandleAt(tt.p, q)
			if ok != tt.wantOK || (ok && h != tt.want) {
				t.Errorf("HandleAt(%+v) = %v, %v; want %v, %v", tt.p, h, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestHandleBeatsBody(t *testing.T) {
	q := TransformRect(RectWH(0, 0, 20, 20), Identity())
	p := Point{18, 18}
	if !PointInQuad(p, q) {
		t.Fatal("test point must be inside the body")
	}
	h, ok := HandleAt(p, q)
	if !ok || h != HandleBottomRight {
		t.Errorf("HandleAt = %v, %v; want bottom-right", h, ok)
	}
}

func TestHandleOpposite(t *testing.T) {
	pairs := map[Handle]Handle{
		HandleTopLeft:     HandleBottomRight,
		HandleTopRight:    HandleBottomLeft,
		HandleBottomRight: HandleTopLeft,
		HandleBottomLeft:  HandleTopRight,
	}
	for h, want := range pairs {
		if got := h.Opposite(); got != want {
			t.Errorf("%v.Opposite() = %v, want %v", h, got, want)
		}
	}
}

func TestLiveMatrix(t *testing.T) {
	q := TransformRect(RectWH(0, 0, 10, 10), LiveMatrix(2, Translation(5, 5)))
	want := Quad{{10, 10}, {30, 10}, {30, 30}, {10, 30}}
	if q != want {
		t.Errorf("quad = %v, want %v", q, want)
	}
}
