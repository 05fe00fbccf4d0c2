package engine

import (
	"math"
	"math/cmplx"
)

// pivotEps is the smallest pivot magnitude considered non-singular.
const pivotEps = 1e-14

// solveLinear solves A x = b in place via Gauss-Jordan elimination with
// partial pivoting. It reports false when the system is judged singular
// (best available pivot below pivotEps). A and b are clobbered.
func solveLinear(a [][]float64, b []float64) ([]float64, bool) {
	n := len(a)
	if n == 0 || len(b) != n {
		return nil, false
	}
	for col := 0; col < n; col++ {
		// pick the row with the largest absolute pivot candidate
		best := col
		bestAbs := math.Abs(a[col][col])
		for r := col + 1; r < n; r++ {
			if ab := math.Abs(a[r][col]); ab > bestAbs {
				best, bestAbs = r, ab
			}
		}
		if bestAbs < pivotEps {
			return nil, false
		}
		if best != col {
			a[col], a[best] = a[best], a[col]
			b[col], b[best] = b[best], b[col]
		}
		piv := a[col][col]
		for j := col; j < n; j++ {
			a[col][j] /= piv
		}
		b[col] /= piv
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			f := a[r][col]
			if f == 0 {
				continue
			}
			for j := col; j < n; j++ {
				a[r][j] -= f * a[col][j]
			}
			b[r] -= f * b[col]
		}
	}
	return b, true
}

// durandKerner finds all roots of the monic polynomial
// z^n + c[0] z^(n-1) + ... + c[n-1] by simultaneous iteration. Initial
// guesses are spread evenly on the unit circle; iteration stops when the
// largest per-step root movement drops below 1e-9 or after 40 rounds.
func durandKerner(c []complex128) []complex128 {
	n := len(c)
	if n == 0 {
		return nil
	}
	roots := make([]complex128, n)
	for i := range roots {
		theta := 2*math.Pi*float64(i)/float64(n) + 0.5
		roots[i] = cmplx.Rect(1, theta)
	}
	eval := func(z complex128) complex128 {
		v := complex(1, 0)
		for _, ci := range c {
			v = v*z + ci
		}
		return v
	}
	for iter := 0; iter < 40; iter++ {
		maxMove := 0.0
		for i := range roots {
			num := eval(roots[i])
			den := complex(1, 0)
			for j := range roots {
				if j != i {
					den *= roots[i] - roots[j]
				}
			}
			if den == 0 {
				continue
			}
			next := roots[i] - num/den
			if move := cmplx.Abs(next - roots[i]); move > maxMove {
				maxMove = move
			}
			roots[i] = next
		}
		if maxMove < 1e-9 {
			break
		}
	}
	return roots
}

// arStability evaluates the characteristic polynomial
// z^p - phi[0] z^(p-1) - ... - phi[p-1] of an AR(p) model. The model is
// stable when every root lies strictly inside the unit circle; margin is
// 1 - max |root| (negative when unstable).
func arStability(phi []float64) (stable bool, margin float64) {
	p := len(phi)
	if p == 0 {
		return false, math.NaN()
	}
	if p == 1 {
		m := 1 - math.Abs(phi[0])
		return m > 0, m
	}
	coeffs := make([]complex128, p)
	for i, f := range phi {
		coeffs[i] = complex(-f, 0)
	}
	maxAbs := 0.0
	for _, r := range durandKerner(coeffs) {
		if ab := cmplx.Abs(r); ab > maxAbs {
			maxAbs = ab
		}
	}
	m := 1 - maxAbs
	return m > 0, m
}
