package engine

import "math"

// DriftResult holds per-horizon drift projections keyed by horizon k.
// MuHat[k][i] is the rolling mean return at i projected k bars ahead;
// TStat[k][i] is a t-statistic proxy for that mean.
//
// This is a crude mean-model projection, not a regression: an r^2-style
// goodness-of-fit is intentionally not computed, only the t-stat proxy.
type DriftResult struct {
	MuHat map[int][]float64
	TStat map[int][]float64
}

// Drift computes rolling mean-return drift across the configured horizons.
// The t-stat at i is mean / (std / sqrt(min(window, i+1))) when std > 0,
// otherwise NaN.
func Drift(returns []float64, windowBars int, horizons []int) DriftResult {
	mean, std := RollingMeanStd(returns, windowBars)
	out := DriftResult{
		MuHat: make(map[int][]float64, len(horizons)),
		TStat: make(map[int][]float64, len(horizons)),
	}
	n := len(returns)

	tstat := make([]float64, n)
	for i := 0; i < n; i++ {
		eff := i + 1
		if eff > windowBars {
			eff = windowBars
		}
		if std[i] > 0 {
			tstat[i] = mean[i] / (std[i] / math.Sqrt(float64(eff)))
		} else {
			tstat[i] = math.NaN()
		}
	}

	for _, k := range horizons {
		mu := make([]float64, n)
		for i := 0; i < n; i++ {
			mu[i] = mean[i] * float64(k)
		}
		out.MuHat[k] = mu
		out.TStat[k] = tstat
	}
	return out
}
