package engine

import "math"

// ridgeLambda regularizes the AR normal equations.
const ridgeLambda = 1e-6

// ARSeries holds the per-bar output of one autoregressive order.
//
// MuHat[i] is the one-step-ahead return forecast made at bar i (for bar i+1)
// using the most recent successful fit. InnovZ[i] is the realized one-step
// innovation at i normalized by sigma. Stable/Margin are the stability
// snapshot recorded at the fit bar and held constant between refits; they are
// NaN only before the first successful fit.
type ARSeries struct {
	MuHat  []float64
	InnovZ []float64
	Stable []float64
	Margin []float64

	Refits   int
	FitFails int
}

// FitAR runs stride-gated ridge AR(p) fits for every configured order and
// emits forecasts and innovations every bar. A fit needs at least p+4 usable
// rows inside the trailing window and a non-singular system; otherwise the
// previous model is retained.
func FitAR(returns, sigma []float64, set Settings) map[int]ARSeries {
	out := make(map[int]ARSeries, len(set.AROrders))
	for _, p := range set.AROrders {
		out[p] = fitAROrder(returns, sigma, p, set.ARWin, set.StrideAR)
	}
	return out
}

func fitAROrder(returns, sigma []float64, p, window, stride int) ARSeries {
	n := len(returns)
	s := ARSeries{
		MuHat:  nanSlice(n),
		InnovZ: nanSlice(n),
		Stable: nanSlice(n),
		Margin: nanSlice(n),
	}
	if stride < 1 {
		stride = 1
	}

	var beta []float64
	lastStable := math.NaN()
	lastMargin := math.NaN()

	for i := 0; i < n; i++ {
		if i%stride == 0 {
			if b, ok := fitARWindow(returns, i, p, window); ok {
				s.Refits++
				beta = b
				st, m := arStability(b[1:])
				if st {
					lastStable = 1
				} else {
					lastStable = 0
				}
				lastMargin = m
			} else {
				s.FitFails++
			}
		}

		s.Stable[i] = lastStable
		s.Margin[i] = lastMargin

		if beta != nil {
			s.MuHat[i] = forecastAR(returns, i, beta)
		}
		if i > 0 && i-1 < n {
			prev := s.MuHat[i-1]
			r := returns[i]
			sg := sigma[i]
			if isFinite(prev) && isFinite(r) && sg > 0 {
				s.InnovZ[i] = (r - prev) / sg
			}
		}
	}
	return s
}

// fitARWindow solves the ridge normal equations (X^T X + lambda I) beta = X^T y
// over the trailing window ending at bar i.
func fitARWindow(returns []float64, i, p, window int) ([]float64, bool) {
	start := i - window + 1
	if start < p {
		start = p
	}
	d := p + 1
	xtx := make([][]float64, d)
	for r := range xtx {
		xtx[r] = make([]float64, d)
	}
	xty := make([]float64, d)
	rows := 0

	row := make([]float64, d)
	for t := start; t <= i; t++ {
		y := returns[t]
		if !isFinite(y) {
			continue
		}
		row[0] = 1
		ok := true
		for j := 1; j <= p; j++ {
			lag := returns[t-j]
			if !isFinite(lag) {
				ok = false
				break
			}
			row[j] = lag
		}
		if !ok {
			continue
		}
		rows++
		for a := 0; a < d; a++ {
			for b := a; b < d; b++ {
				xtx[a][b] += row[a] * row[b]
			}
			xty[a] += row[a] * y
		}
	}
	if rows < p+4 {
		return nil, false
	}
	for a := 0; a < d; a++ {
		for b := 0; b < a; b++ {
			xtx[a][b] = xtx[b][a]
		}
		xtx[a][a] += ridgeLambda
	}
	return solveLinear(xtx, xty)
}

// forecastAR predicts the next bar's return from the lags ending at bar i.
func forecastAR(returns []float64, i int, beta []float64) float64 {
	p := len(beta) - 1
	if i-p+1 < 0 {
		return math.NaN()
	}
	f := beta[0]
	for j := 1; j <= p; j++ {
		lag := returns[i+1-j]
		if !isFinite(lag) {
			return math.NaN()
		}
		f += beta[j] * lag
	}
	return f
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
