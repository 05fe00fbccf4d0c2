package engine

import "math"

// KalmanResult holds the per-bar output of the local-linear trend filter.
// Level is exponentiated back to price units; Slope is the expected
// log-return per bar.
type KalmanResult struct {
	Level    []float64
	Slope    []float64
	SlopeStd []float64
	SlopeZ   []float64
}

// KalmanTrend runs a 2-state local-linear Kalman filter over log prices.
// State is [level, slope] with transition [[1,1],[0,1]]. Process noise scales
// with the local volatility estimate: qSlope = resp * max(1e-12, sigma^2) * 0.01,
// qLevel = qSlope * 0.1. Measurement variance R = max(1e-12, sigma^2).
// A non-finite observation skips the correction step; state and covariance
// keep their predicted values for that bar.
func KalmanTrend(logPrice, sigma []float64, resp float64) KalmanResult {
	n := len(logPrice)
	out := KalmanResult{
		Level:    make([]float64, n),
		Slope:    make([]float64, n),
		SlopeStd: make([]float64, n),
		SlopeZ:   make([]float64, n),
	}
	if n == 0 {
		return out
	}
	if resp < 0.05 {
		resp = 0.05
	} else if resp > 10 {
		resp = 10
	}

	level := logPrice[0]
	if math.IsNaN(level) || math.IsInf(level, 0) {
		level = 0
	}
	slope := 0.0
	// covariance, seeded small
	p00, p01, p10, p11 := 1e-3, 0.0, 0.0, 1e-3

	for i := 0; i < n; i++ {
		s2 := 0.0
		if i < len(sigma) {
			s2 = sigma[i] * sigma[i]
		}
		if !(s2 > 1e-12) {
			s2 = 1e-12
		}
		qSlope := resp * s2 * 0.01
		qLevel := qSlope * 0.1

		// predict: x' = F x, P' = F P F^T + Q with F = [[1,1],[0,1]]
		level += slope
		np00 := p00 + p10 + p01 + p11 + qLevel
		np01 := p01 + p11
		np10 := p10 + p11
		np11 := p11 + qSlope
		p00, p01, p10, p11 = np00, np01, np10, np11

		z := logPrice[i]
		if !math.IsNaN(z) && !math.IsInf(z, 0) {
			// update with H = [1,0], R = s2
			y := z - level
			s := p00 + s2
			k0 := p00 / s
			k1 := p10 / s
			level += k0 * y
			slope += k1 * y
			// P = (I - K H) P'
			np00 = (1 - k0) * p00
			np01 = (1 - k0) * p01
			np10 = p10 - k1*p00
			np11 = p11 - k1*p01
			p00, p01, p10, p11 = np00, np01, np10, np11
		}

		out.Level[i] = math.Exp(level)
		out.Slope[i] = slope
		sstd := math.NaN()
		if p11 >= 0 {
			sstd = math.Sqrt(p11)
		}
		out.SlopeStd[i] = sstd
		if sstd > 1e-15 {
			out.SlopeZ[i] = slope / sstd
		} else {
			out.SlopeZ[i] = math.NaN()
		}
	}
	return out
}
