package engine

import (
	"math"
	"math/cmplx"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveLinear_Known2x2(t *testing.T) {
	a := [][]float64{{2, 1}, {1, 3}}
	b := []float64{3, 5}
	x, ok := solveLinear(a, b)
	require.True(t, ok)
	assert.InDelta(t, 0.8, x[0], 1e-12)
	assert.InDelta(t, 1.4, x[1], 1e-12)
}

func TestSolveLinear_PivotingHandlesZeroDiagonal(t *testing.T) {
	// naive elimination would divide by the zero at [0][0]
	a := [][]float64{{0, 1}, {1, 0}}
	b := []float64{2, 3}
	x, ok := solveLinear(a, b)
	require.True(t, ok)
	assert.InDelta(t, 3.0, x[0], 1e-12)
	assert.InDelta(t, 2.0, x[1], 1e-12)
}

func TestSolveLinear_SingularRejected(t *testing.T) {
	a := [][]float64{{1, 1}, {1, 1}}
	b := []float64{1, 2}
	_, ok := solveLinear(a, b)
	assert.False(t, ok, "rank-deficient system must be rejected")
}

func TestDurandKerner_QuadraticRoots(t *testing.T) {
	// z^2 - 1; roots +1 and -1
	roots := durandKerner([]complex128{0, -1})
	require.Len(t, roots, 2)
	re := []float64{real(roots[0]), real(roots[1])}
	sort.Float64s(re)
	assert.InDelta(t, -1.0, re[0], 1e-7)
	assert.InDelta(t, 1.0, re[1], 1e-7)
	for _, r := range roots {
		assert.InDelta(t, 0.0, imag(r), 1e-7)
	}
}

func TestDurandKerner_ComplexRoots(t *testing.T) {
	// z^2 + 1; roots +/- i
	roots := durandKerner([]complex128{0, 1})
	require.Len(t, roots, 2)
	for _, r := range roots {
		assert.InDelta(t, 1.0, cmplx.Abs(r), 1e-7)
		assert.InDelta(t, 0.0, real(r), 1e-7)
	}
}

func TestARStability_FirstOrder(t *testing.T) {
	stable, margin := arStability([]float64{0.5})
	assert.True(t, stable)
	assert.InDelta(t, 0.5, margin, 1e-12)

	stable, margin = arStability([]float64{1.5})
	assert.False(t, stable)
	assert.Less(t, margin, 0.0)
}

func TestARStability_SecondOrder(t *testing.T) {
	// z^2 - 0.25 = 0; roots +/- 0.5
	stable, margin := arStability([]float64{0, 0.25})
	assert.True(t, stable)
	assert.InDelta(t, 0.5, margin, 1e-6)

	// z^2 - 2z = 0 has a root at 2
	stable, margin = arStability([]float64{2, 0})
	assert.False(t, stable)
	assert.InDelta(t, -1.0, margin, 1e-6)
}

func TestARStability_Empty(t *testing.T) {
	stable, margin := arStability(nil)
	assert.False(t, stable)
	assert.True(t, math.IsNaN(margin))
}
