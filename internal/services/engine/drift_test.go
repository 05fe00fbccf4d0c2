package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrift_ScalesWithHorizon(t *testing.T) {
	returns := []float64{0.01, 0.01, 0.01, 0.01, 0.01, 0.01}
	res := Drift(returns, 4, []int{1, 3})
	require.Contains(t, res.MuHat, 1)
	require.Contains(t, res.MuHat, 3)

	i := len(returns) - 1
	assert.InDelta(t, 0.01, res.MuHat[1][i], 1e-12)
	assert.InDelta(t, 0.03, res.MuHat[3][i], 1e-12, "mu_hat is the rolling mean times k")
}

func TestDrift_TStatUndefinedOnZeroStd(t *testing.T) {
	returns := []float64{0.01, 0.01, 0.01, 0.01}
	res := Drift(returns, 4, []int{1})
	// constant returns: std is zero, t-stat has no meaning
	assert.True(t, math.IsNaN(res.TStat[1][3]))
}

func TestDrift_TStatGrowsWithEvidence(t *testing.T) {
	// mildly noisy positive drift
	returns := make([]float64, 120)
	for i := range returns {
		returns[i] = 0.002
		if i%2 == 0 {
			returns[i] = 0.001
		}
	}
	res := Drift(returns, 100, []int{1})
	early := math.Abs(res.TStat[1][4])
	late := math.Abs(res.TStat[1][99])
	assert.Greater(t, late, early, "more samples tighten the t-stat")
	assert.Greater(t, late, 10.0, "persistent drift is highly significant")
}

func TestDrift_WarmupNaN(t *testing.T) {
	res := Drift([]float64{0.01, 0.02}, 10, []int{1})
	assert.True(t, math.IsNaN(res.MuHat[1][0]), "no mean from a single sample")
	assert.False(t, math.IsNaN(res.MuHat[1][1]))
}
