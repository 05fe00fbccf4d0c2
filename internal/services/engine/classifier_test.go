package engine

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clfTestSettings() Settings {
	return Settings{
		Enabled:     true,
		Horizons:    []int{1},
		ClfTrain:    300,
		ClfBrier:    100,
		ClfSteps:    200,
		ClfLR:       0.05,
		ClfL2:       1,
		EntropyCeil: 0.98,
		StrideClf:   10,
	}
}

// signalSeries builds returns whose direction is perfectly predicted by the
// slope_z feature one bar earlier.
func signalSeries(n int, seed int64) (returns, slopeZ []float64) {
	rng := rand.New(rand.NewSource(seed))
	signs := make([]float64, n+1)
	for i := range signs {
		if rng.Float64() < 0.5 {
			signs[i] = -1
		} else {
			signs[i] = 1
		}
	}
	returns = make([]float64, n)
	slopeZ = make([]float64, n)
	returns[0] = math.NaN()
	for t := 1; t < n; t++ {
		returns[t] = 0.001 * signs[t]
	}
	for t := 0; t < n; t++ {
		slopeZ[t] = signs[t+1] // aligned so slope_z at t predicts the next return
	}
	return returns, slopeZ
}

func TestClassify_RecoversStrongSignal(t *testing.T) {
	n := 400
	returns, slopeZ := signalSeries(n, 5)
	zeros := make([]float64, n)

	out := Classify(returns, slopeZ, zeros, zeros, clfTestSettings())
	s, ok := out[1]
	require.True(t, ok)

	for t2 := 350; t2 < n-1; t2++ {
		p := s.PUp[t2]
		require.False(t, math.IsNaN(p), "prediction missing at %d", t2)
		if slopeZ[t2] > 0 {
			assert.GreaterOrEqual(t, p, 0.9, "positive slope_z at %d", t2)
		} else {
			assert.LessOrEqual(t, p, 0.1, "negative slope_z at %d", t2)
		}
	}
	assert.Positive(t, s.Refits)
}

func TestFutureUpLabels_NoLookahead(t *testing.T) {
	returns := []float64{math.NaN(), 0.01, -0.01, 0.02, 0.03, -0.02}
	for _, k := range []int{1, 2, 3} {
		labels := futureUpLabels(returns, k)
		for t2 := len(returns) - k; t2 < len(returns); t2++ {
			assert.True(t, math.IsNaN(labels[t2]),
				"label at %d must be undefined within %d bars of the end", t2, k)
		}
	}
	labels := futureUpLabels(returns, 1)
	assert.Equal(t, 1.0, labels[0], "next return positive")
	assert.Equal(t, 0.0, labels[1], "next return negative")
}

func TestFutureUpLabels_NonFiniteFutureUndefined(t *testing.T) {
	returns := []float64{0.01, math.NaN(), 0.01, 0.01}
	labels := futureUpLabels(returns, 2)
	assert.True(t, math.IsNaN(labels[0]), "a gap inside the horizon leaves the label undefined")
	assert.False(t, math.IsNaN(labels[1]))
}

func TestClassify_BrierCarriedForwardWithoutFreshLabel(t *testing.T) {
	n := 400
	returns, slopeZ := signalSeries(n, 9)
	gap := 200
	returns[gap] = math.NaN() // label at gap-1 becomes unresolvable
	zeros := make([]float64, n)

	s := Classify(returns, slopeZ, zeros, zeros, clfTestSettings())[1]

	require.False(t, math.IsNaN(s.Brier[gap-1]), "Brier established before the gap")
	assert.Equal(t, s.Brier[gap-1], s.Brier[gap], "no fresh label: Brier carried forward unchanged")
	assert.Equal(t, s.CalibOK[gap-1], s.CalibOK[gap], "calibration flag carried with it")
	// past the next refit the weights, and with them the scored errors, move
	assert.NotEqual(t, s.Brier[gap], s.Brier[gap+12], "scoring resumes once labels resolve again")
}

func TestClassify_EntropyAndConfidence(t *testing.T) {
	n := 400
	returns, slopeZ := signalSeries(n, 13)
	zeros := make([]float64, n)

	s := Classify(returns, slopeZ, zeros, zeros, clfTestSettings())[1]
	for t2 := 300; t2 < n; t2++ {
		h := s.Entropy[t2]
		if math.IsNaN(h) {
			continue
		}
		assert.GreaterOrEqual(t, h, 0.0)
		assert.LessOrEqual(t, h, 1.0, "Bernoulli entropy is at most one bit")
	}
	// a converged classifier on a clean signal is confident
	assert.Equal(t, 1.0, s.ConfOK[n-2])
}

func TestClampedSigmoid_Saturation(t *testing.T) {
	assert.Equal(t, 1.0, clampedSigmoid(40))
	assert.Equal(t, 0.0, clampedSigmoid(-40))
	assert.InDelta(t, 0.5, clampedSigmoid(0), 1e-12)
}
