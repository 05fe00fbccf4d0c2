package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingStd_LengthAndSign(t *testing.T) {
	for _, win := range []int{1, 2, 3, 10, 100} {
		series := []float64{1, 2, 3, 4, 5, 4, 3, 2, 1, 0}
		out := RollingStd(series, win)
		require.Len(t, out, len(series), "output length must equal input length (win=%d)", win)
		assert.True(t, math.IsNaN(out[0]), "first sample has no deviation yet (win=%d)", win)
		for i, v := range out {
			if !math.IsNaN(v) {
				assert.GreaterOrEqual(t, v, 0.0, "std must be non-negative at %d (win=%d)", i, win)
			}
		}
	}
}

func TestRollingStd_WarmupNaN(t *testing.T) {
	out := RollingStd([]float64{5, 5, 5}, 4)
	assert.True(t, math.IsNaN(out[0]))
	assert.False(t, math.IsNaN(out[1]), "two samples are enough")
	assert.InDelta(t, 0.0, out[2], 1e-12, "constant series has zero deviation")
}

func TestRollingMeanStd_KnownValues(t *testing.T) {
	mean, std := RollingMeanStd([]float64{2, 4, 6, 8}, 2)
	assert.InDelta(t, 3.0, mean[1], 1e-12)
	assert.InDelta(t, 5.0, mean[2], 1e-12)
	assert.InDelta(t, 7.0, mean[3], 1e-12)
	// sample std of {a, a+2} is sqrt(2)
	for i := 1; i < 4; i++ {
		assert.InDelta(t, math.Sqrt2, std[i], 1e-12, "index %d", i)
	}
}

func TestRollingMeanStd_NonFiniteClampsToZero(t *testing.T) {
	// A NaN sample accumulates as 0: it perturbs the window but does not
	// poison it.
	mean, std := RollingMeanStd([]float64{4, math.NaN(), 4, 4}, 4)
	assert.InDelta(t, 2.0, mean[1], 1e-12, "NaN counted as zero")
	assert.InDelta(t, 3.0, mean[3], 1e-12)
	assert.False(t, math.IsNaN(std[3]), "window must stay usable after a bad sample")

	meanInf, _ := RollingMeanStd([]float64{1, math.Inf(1), 1}, 3)
	assert.False(t, math.IsNaN(meanInf[2]))
	assert.InDelta(t, 2.0/3.0, meanInf[2], 1e-12)
}

func TestRollingWindow_Eviction(t *testing.T) {
	w := newRollingWindow(2)
	w.push(10)
	w.push(20)
	w.push(30) // evicts 10
	assert.Equal(t, 2, w.count())
	assert.InDelta(t, 25.0, w.mean(), 1e-12)
}
