package engine

import "math"

// brierCalibMax is the rolling Brier score below which predictions are
// considered calibrated. Fixed and conservative; kept identical across
// horizons. A candidate for configurability, left as a constant for now.
const brierCalibMax = 0.25

// clfMinRows is the minimum number of resolvable training rows for a refit.
const clfMinRows = 8

// ClfSeries holds the per-bar output of one classification horizon.
// CalibOK is 1/0 once a Brier value exists, NaN before. ConfOK marks bars
// whose prediction entropy stays under the configured ceiling.
type ClfSeries struct {
	PUp     []float64
	Entropy []float64
	Brier   []float64
	CalibOK []float64
	ConfOK  []float64

	Refits   int
	FitFails int
}

// Classify trains an online L2-regularized logistic regression per horizon
// predicting "up over the next k bars" and scores its calibration with a
// rolling Brier window.
//
// The label at t is defined only when all k future returns exist and are
// finite, so no prediction is ever trained or scored against information
// that peeks past its own bar.
func Classify(returns, slopeZ, priceDevZ, volRatio []float64, set Settings) map[int]ClfSeries {
	n := len(returns)
	feats := make([][4]float64, n)
	for i := 0; i < n; i++ {
		feats[i] = [4]float64{1, finiteOrZero(slopeZ, i), finiteOrZero(priceDevZ, i), finiteOrZero(volRatio, i)}
	}

	out := make(map[int]ClfSeries, len(set.Horizons))
	for _, k := range set.Horizons {
		out[k] = classifyHorizon(returns, feats, k, set)
	}
	return out
}

func classifyHorizon(returns []float64, feats [][4]float64, k int, set Settings) ClfSeries {
	n := len(returns)
	s := ClfSeries{
		PUp:     nanSlice(n),
		Entropy: nanSlice(n),
		Brier:   nanSlice(n),
		CalibOK: nanSlice(n),
		ConfOK:  nanSlice(n),
	}
	labels := futureUpLabels(returns, k)

	var w [4]float64
	haveFit := false
	brierWin := newRollingWindow(set.ClfBrier)
	stride := set.StrideClf
	if stride < 1 {
		stride = 1
	}

	for t := 0; t < n; t++ {
		if t%stride == 0 {
			if fitLogistic(&w, feats, labels, t, k, set) {
				haveFit = true
				s.Refits++
			} else {
				s.FitFails++
			}
		}

		if haveFit {
			p := clampedSigmoid(dot4(w, feats[t]))
			s.PUp[t] = p
			h := bernoulliEntropy(p)
			s.Entropy[t] = h
			if h <= set.EntropyCeil {
				s.ConfOK[t] = 1
			} else {
				s.ConfOK[t] = 0
			}
		}

		// The label for bar t-k resolves at t; score the prediction made
		// there. Bars without a fresh label carry the previous value.
		scored := false
		if t-k >= 0 && !math.IsNaN(labels[t-k]) && isFinite(s.PUp[t-k]) {
			d := s.PUp[t-k] - labels[t-k]
			brierWin.push(d * d)
			scored = true
		}
		if scored {
			b := brierWin.mean()
			s.Brier[t] = b
			if b < brierCalibMax {
				s.CalibOK[t] = 1
			} else {
				s.CalibOK[t] = 0
			}
		} else if t > 0 {
			s.Brier[t] = s.Brier[t-1]
			s.CalibOK[t] = s.CalibOK[t-1]
		}
	}
	return s
}

// futureUpLabels marks bar t as 1 when the sum of the next k returns is
// positive. Undefined (NaN) when any of those returns is missing, which
// covers every t within k bars of the end of the series.
func futureUpLabels(returns []float64, k int) []float64 {
	n := len(returns)
	labels := nanSlice(n)
	for t := 0; t+k < n; t++ {
		sum := 0.0
		ok := true
		for j := 1; j <= k; j++ {
			r := returns[t+j]
			if !isFinite(r) {
				ok = false
				break
			}
			sum += r
		}
		if !ok {
			continue
		}
		if sum > 0 {
			labels[t] = 1
		} else {
			labels[t] = 0
		}
	}
	return labels
}

// fitLogistic runs batch gradient descent over the resolvable rows older than
// t-k inside the training window, warm-starting from the current weights.
// The intercept is excluded from regularization.
func fitLogistic(w *[4]float64, feats [][4]float64, labels []float64, t, k int, set Settings) bool {
	lo := t - set.ClfTrain
	if lo < 0 {
		lo = 0
	}
	hi := t - k // exclusive
	if hi <= lo {
		return false
	}

	idx := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		if !math.IsNaN(labels[i]) {
			idx = append(idx, i)
		}
	}
	if len(idx) < clfMinRows {
		return false
	}

	m := float64(len(idx))
	cur := *w
	for step := 0; step < set.ClfSteps; step++ {
		var grad [4]float64
		for _, i := range idx {
			p := clampedSigmoid(dot4(cur, feats[i]))
			e := p - labels[i]
			for j := 0; j < 4; j++ {
				grad[j] += e * feats[i][j]
			}
		}
		for j := 0; j < 4; j++ {
			g := grad[j] / m
			if j > 0 {
				g += set.ClfL2 * cur[j] / m
			}
			cur[j] -= set.ClfLR * g
		}
	}
	*w = cur
	return true
}

// clampedSigmoid saturates extreme logits to exactly 0 or 1 instead of
// overflowing.
func clampedSigmoid(logit float64) float64 {
	switch {
	case logit >= 35:
		return 1
	case logit <= -35:
		return 0
	default:
		return 1 / (1 + math.Exp(-logit))
	}
}

// bernoulliEntropy is the entropy of a Bernoulli(p) prediction in bits.
func bernoulliEntropy(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	return -p*math.Log2(p) - (1-p)*math.Log2(1-p)
}

func dot4(w, x [4]float64) float64 {
	return w[0]*x[0] + w[1]*x[1] + w[2]*x[2] + w[3]*x[3]
}

func finiteOrZero(s []float64, i int) float64 {
	if i >= len(s) {
		return 0
	}
	if v := s[i]; isFinite(v) {
		return v
	}
	return 0
}
