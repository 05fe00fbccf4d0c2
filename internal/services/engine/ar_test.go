package engine

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func arTestSettings() Settings {
	return Settings{
		Enabled:  true,
		AROrders: []int{1},
		ARWin:    200,
		StrideAR: 10,
	}
}

// synthetic AR(1) process with phi=0.5 and small innovations
func ar1Process(n int, phi float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	r := make([]float64, n)
	r[0] = math.NaN() // first return is undefined, as in real series
	prev := 0.0
	for i := 1; i < n; i++ {
		v := phi*prev + 0.001*rng.NormFloat64()
		r[i] = v
		prev = v
	}
	return r
}

func TestFitAR_RecoversStableProcess(t *testing.T) {
	n := 400
	returns := ar1Process(n, 0.5, 7)
	sigma := constSeries(n, 0.001)

	out := FitAR(returns, sigma, arTestSettings())
	s, ok := out[1]
	require.True(t, ok)

	last := n - 1
	assert.Equal(t, 1.0, s.Stable[last], "phi=0.5 process fits as stable")
	assert.Greater(t, s.Margin[last], 0.2)
	assert.Less(t, s.Margin[last], 0.8, "margin tracks 1-|phi_hat|")
	assert.False(t, math.IsNaN(s.MuHat[last]), "forecast available every bar once fit")
	assert.False(t, math.IsNaN(s.InnovZ[last]))
	assert.Positive(t, s.Refits)
}

func TestFitAR_StabilityHeldBetweenRefits(t *testing.T) {
	n := 100
	returns := ar1Process(n, 0.4, 3)
	sigma := constSeries(n, 0.001)
	set := arTestSettings()
	set.StrideAR = 25

	s := FitAR(returns, sigma, set)[1]

	// find the first fit bar, then check the snapshot never reverts to NaN
	first := -1
	for i := range s.Stable {
		if !math.IsNaN(s.Stable[i]) {
			first = i
			break
		}
	}
	require.GreaterOrEqual(t, first, 0, "expected at least one successful fit")
	for i := first; i < n; i++ {
		assert.False(t, math.IsNaN(s.Stable[i]), "stability snapshot must be copied forward at %d", i)
		assert.False(t, math.IsNaN(s.Margin[i]), "margin snapshot must be copied forward at %d", i)
	}
}

func TestFitAR_ShortWindowNoFit(t *testing.T) {
	// 4 usable samples < p+4 for p=1 plus the NaN head
	returns := []float64{math.NaN(), 0.001, -0.002, 0.0015}
	sigma := constSeries(4, 0.001)

	s := FitAR(returns, sigma, arTestSettings())[1]
	for i := range s.MuHat {
		assert.True(t, math.IsNaN(s.MuHat[i]), "no forecast without a fit at %d", i)
		assert.True(t, math.IsNaN(s.Stable[i]))
	}
	assert.Zero(t, s.Refits)
	assert.Positive(t, s.FitFails)
}

func TestFitAR_DegenerateWindowStillForecasts(t *testing.T) {
	n := 120
	returns := ar1Process(n, 0.5, 11)
	// identical lag values from bar 60 on leave the ridge term as the only
	// thing keeping the system solvable
	for i := 60; i < n; i++ {
		returns[i] = 0.001
	}
	set := arTestSettings()
	set.ARWin = 40
	set.StrideAR = 10
	sigma := constSeries(n, 0.001)

	s := FitAR(returns, sigma, set)[1]
	assert.False(t, math.IsNaN(s.MuHat[n-1]), "forecasts keep flowing on degenerate data")
	assert.False(t, math.IsNaN(s.Stable[n-1]))
}
