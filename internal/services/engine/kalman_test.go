package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constSeries(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestKalmanTrend_ConstantPrice(t *testing.T) {
	n := 50
	logp := constSeries(n, math.Log(100.0))
	sigma := constSeries(n, 1e-6)

	res := KalmanTrend(logp, sigma, 1.0)
	require.Len(t, res.Slope, n)

	// constant observations: slope converges to zero within a few bars
	for i := 5; i < n; i++ {
		assert.InDelta(t, 0.0, res.Slope[i], 1e-6, "slope at %d", i)
		assert.InDelta(t, 100.0, res.Level[i], 1e-3, "level at %d", i)
	}
	last := res.SlopeZ[n-1]
	if !math.IsNaN(last) {
		assert.InDelta(t, 0.0, last, 0.5, "slope-z stays small on flat data")
	}
}

func TestKalmanTrend_TracksLinearTrend(t *testing.T) {
	// steady 0.1% log-return per bar
	n := 200
	logp := make([]float64, n)
	for i := range logp {
		logp[i] = math.Log(100) + 0.001*float64(i)
	}
	sigma := constSeries(n, 0.001)

	res := KalmanTrend(logp, sigma, 1.0)
	assert.InDelta(t, 0.001, res.Slope[n-1], 5e-4, "slope approaches the true drift")
	assert.Greater(t, res.SlopeZ[n-1], 1.0, "persistent trend shows up in slope-z")
}

func TestKalmanTrend_MissingObservationCoasts(t *testing.T) {
	logp := []float64{math.Log(100), math.Log(101), math.NaN(), math.Log(103)}
	sigma := constSeries(4, 0.01)

	res := KalmanTrend(logp, sigma, 1.0)
	// the gap bar keeps predicted state: level moved by the current slope
	assert.False(t, math.IsNaN(res.Level[2]), "prediction fills the gap")
	assert.False(t, math.IsNaN(res.Slope[2]))
	assert.False(t, math.IsNaN(res.Level[3]), "filter recovers after the gap")
}

func TestKalmanTrend_Empty(t *testing.T) {
	res := KalmanTrend(nil, nil, 1.0)
	assert.Empty(t, res.Level)
}
