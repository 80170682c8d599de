package geom

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Matrix is a 3x3 homogeneous 2D transform, indexed [row][col]:
//
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0  1  |
//
// Interactive edits only ever produce scale (a, d) and translation
// (tx, ty); the full 3x3 form is kept so other transforms compose.
type Matrix [3][3]float64

// Identity returns the identity matrix.
func Identity() Matrix {
	return Matrix{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// Translation returns a translation matrix.
func Translation(dx, dy float64) Matrix {
	return Matrix{
		{1, 0, dx},
		{0, 1, dy},
		{0, 0, 1},
	}
}

// Scale returns a scale matrix about the origin.
func Scale(sx, sy float64) Matrix {
	return Matrix{
		{sx, 0, 0},
		{0, sy, 0},
		{0, 0, 1},
	}
}

// Compose returns a·b: b is applied first, then a.
func Compose(a, b Matrix) Matrix {
	return a.Multiply(b)
}

// Multiply returns m·other. This applies 'other' first, then 'm'.
func (m Matrix) Multiply(other Matrix) Matrix {
	var out Matrix
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r][c] = m[r][0]*other[0][c] + m[r][1]*other[1][c] + m[r][2]*other[2][c]
		}
	}
	return out
}

// TransformPoint applies m to p.
func TransformPoint(p Point, m Matrix) Point {
	return m.Apply(p)
}

// Apply transforms a point, dividing through by w when the bottom row is
// not affine.
func (m Matrix) Apply(p Point) Point {
	x := m[0][0]*p.X + m[0][1]*p.Y + m[0][2]
	y := m[1][0]*p.X + m[1][1]*p.Y + m[1][2]
	w := m[2][0]*p.X + m[2][1]*p.Y + m[2][2]
	if w != 0 && w != 1 {
		x /= w
		y /= w
	}
	return Point{X: x, Y: y}
}

// TransformRect maps the four corners of r through m. The quad keeps the
// rect's winding: top-left, top-right, bottom-right, bottom-left.
func TransformRect(r Rect, m Matrix) Quad {
	c := r.Corners()
	return Quad{m.Apply(c[0]), m.Apply(c[1]), m.Apply(c[2]), m.Apply(c[3])}
}

// Determinant returns the determinant of the 3x3 matrix.
func (m Matrix) Determinant() float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// IsDegenerate reports whether m collapses area (not invertible).
func (m Matrix) IsDegenerate() bool {
	return math.Abs(m.Determinant()) < 1e-12
}

// Invert returns the inverse of m. ok is false when m is degenerate, in
// which case the identity is returned.
func (m Matrix) Invert() (inv Matrix, ok bool) {
	det := m.Determinant()
	if math.Abs(det) < 1e-12 {
		return Identity(), false
	}
	invDet := 1 / det

	inv[0][0] = (m[1][1]*m[2][2] - m[1][2]*m[2][1]) * invDet
	inv[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) * invDet
	inv[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) * invDet
	inv[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) * invDet
	inv[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) * invDet
	inv[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) * invDet
	inv[2][0] = (m[1][0]*m[2][1] - m[1][1]*m[2][0]) * invDet
	inv[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) * invDet
	inv[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) * invDet
	return inv, true
}

// ScaleFactors returns the x and y scale of m (the lengths of the
// transformed unit axes).
func (m Matrix) ScaleFactors() (sx, sy float64) {
	return math.Hypot(m[0][0], m[1][0]), math.Hypot(m[0][1], m[1][1])
}

// TranslationPart returns (tx, ty).
func (m Matrix) TranslationPart() (float64, float64) {
	return m[0][2], m[1][2]
}

// IsAffine reports whether the bottom row is [0 0 1].
func (m Matrix) IsAffine() bool {
	return m[2][0] == 0 && m[2][1] == 0 && m[2][2] == 1
}

// IsIdentity checks if this is the identity matrix (within epsilon).
func (m Matrix) IsIdentity() bool {
	return m.ApproxEqual(Identity(), 1e-10)
}

// ApproxEqual compares every element within eps.
func (m Matrix) ApproxEqual(other Matrix, eps float64) bool {
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if math.Abs(m[r][c]-other[r][c]) > eps {
				return false
			}
		}
	}
	return true
}

// Aff3 returns the top two rows in the layout used by golang.org/x/image.
func (m Matrix) Aff3() f64.Aff3 {
	return f64.Aff3{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
	}
}

// ToSlice returns the matrix row-major for JSON serialization.
func (m Matrix) ToSlice() []float64 {
	return []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	}
}

// FromSlice builds a matrix from 9 row-major values or 6 affine values
// (a, c, tx, b, d, ty in row order). ok is false for any other length.
func FromSlice(v []float64) (Matrix, bool) {
	switch len(v) {
	case 9:
		return Matrix{
			{v[0], v[1], v[2]},
			{v[3], v[4], v[5]},
			{v[6], v[7], v[8]},
		}, true
	case 6:
		return Matrix{
			{v[0], v[1], v[2]},
			{v[3], v[4], v[5]},
			{0, 0, 1},
		}, true
	default:
		return Identity(), false
	}
}
