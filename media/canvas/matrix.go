package canvas

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Matrix entries follow f64.Aff3: x' = m[0]x + m[1]y + m[2], y' = m[3]x + m[4]y + m[5].
type Matrix = f64.Aff3

func identity() Matrix {
	return Matrix{1, 0, 0, 0, 1, 0}
}

// mul returns m∘n, the transform applying n first.
func mul(m, n Matrix) Matrix {
	return Matrix{
		m[0]*n[0] + m[1]*n[3],
		m[0]*n[1] + m[1]*n[4],
		m[0]*n[2] + m[1]*n[5] + m[2],
		m[3]*n[0] + m[4]*n[3],
		m[3]*n[1] + m[4]*n[4],
		m[3]*n[2] + m[4]*n[5] + m[5],
	}
}

func translation(x, y float64) Matrix {
	return Matrix{1, 0, x, 0, 1, y}
}

func scaling(sx, sy float64) Matrix {
	return Matrix{sx, 0, 0, 0, sy, 0}
}

func rotation(angle float64) Matrix {
	sin, cos := math.Sincos(angle)
	return Matrix{cos, -sin, 0, sin, cos, 0}
}

// apply maps the point (x, y) through m.
func apply(m Matrix, x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}
