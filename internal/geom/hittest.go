package geom

// Handle identifies a corner of a selection quad.
type Handle int

const (
	HandleTopLeft Handle = iota
	HandleTopRight
	HandleBottomRight
	HandleBottomLeft
)

// HandleSize is the side length, in device pixels, of a corner handle's
// hit box.
const HandleSize = 10.0

// Opposite returns the corner diagonally across from h.
func (h Handle) Opposite() Handle {
	return (h + 2) % 4
}

// String returns the handle's compass name.
func (h Handle) String() string {
	switch h {
	case HandleTopLeft:
		return "nw"
	case HandleTopRight:
		return "ne"
	case HandleBottomRight:
		return "se"
	case HandleBottomLeft:
		return "sw"
	default:
		return "none"
	}
}

// LiveMatrix returns the screen placement of a layer: its matrix followed
// by the uniform view scale.
func LiveMatrix(viewScale float64, m Matrix) Matrix {
	return Compose(Scale(viewScale, viewScale), m)
}

// cross returns the z component of (b-a) x (p-a).
func cross(a, b, p Point) float64 {
	return (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
}

// PointInQuad reports whether p lies strictly inside the convex quad.
// Every edge, walked in the quad's stored order, must turn the same way
// toward p. Points on an edge are outside.
func PointInQuad(p Point, q Quad) bool {
	var pos, neg int
	for i := 0; i < 4; i++ {
		c := cross(q[i], q[(i+1)%4], p)
		switch {
		case c > 0:
			pos++
		case c < 0:
			neg++
		default:
			return false
		}
	}
	return pos == 4 || neg == 4
}

// HandleBox returns the hit box for corner h of q.
func HandleBox(q Quad, h Handle) Rect {
	c := q[h]
	half := HandleSize / 2
	return Rect{Left: c.X - half, Top: c.Y - half, Right: c.X + half, Bottom: c.Y + half}
}

// HandleAt returns the first corner whose hit box contains p, testing
// top-left, top-right, bottom-right, bottom-left in order.
func HandleAt(p Point, q Quad) (Handle, bool) {
	for h := HandleTopLeft; h <= HandleBottomLeft; h++ {
		if HandleBox(q, h).Contains(p) {
			return h, true
		}
	}
	return 0, false
}
