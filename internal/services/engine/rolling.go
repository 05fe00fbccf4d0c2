package engine

import "math"

// rollingWindow is a bounded FIFO of the last N samples with a running sum
// and sum of squares, giving O(1) mean/std per step.
//
// Non-finite inputs are substituted with 0 before accumulation so a single
// bad sample perturbs but does not poison the window. This clamp-to-zero
// policy is deliberate and load-bearing for reproducibility: the emitted
// statistic at that index reflects the substituted value.
type rollingWindow struct {
	buf   []float64
	head  int
	n     int
	sum   float64
	sumsq float64
}

func newRollingWindow(size int) *rollingWindow {
	if size < 1 {
		size = 1
	}
	return &rollingWindow{buf: make([]float64, size)}
}

func (w *rollingWindow) push(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	if w.n == len(w.buf) {
		old := w.buf[w.head]
		w.sum -= old
		w.sumsq -= old * old
	} else {
		w.n++
	}
	w.buf[w.head] = v
	w.head = (w.head + 1) % len(w.buf)
	w.sum += v
	w.sumsq += v * v
}

func (w *rollingWindow) count() int { return w.n }

func (w *rollingWindow) mean() float64 {
	if w.n == 0 {
		return math.NaN()
	}
	return w.sum / float64(w.n)
}

// std is the sample standard deviation, NaN below 2 samples, never negative.
func (w *rollingWindow) std() float64 {
	if w.n < 2 {
		return math.NaN()
	}
	n := float64(w.n)
	m := w.sum / n
	v := (w.sumsq - n*m*m) / (n - 1)
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v)
}

// RollingStd computes the rolling sample standard deviation of series over a
// window of windowBars samples. Output is aligned 1:1 with the input and is
// NaN until two samples have accumulated.
func RollingStd(series []float64, windowBars int) []float64 {
	_, std := RollingMeanStd(series, windowBars)
	return std
}

// RollingMeanStd computes rolling mean and sample standard deviation in one
// pass. Both outputs are aligned 1:1 with the input; mean and std are NaN
// until two samples have accumulated.
func RollingMeanStd(series []float64, windowBars int) (mean, std []float64) {
	w := newRollingWindow(windowBars)
	mean = make([]float64, len(series))
	std = make([]float64, len(series))
	for i, v := range series {
		w.push(v)
		if w.count() < 2 {
			mean[i] = math.NaN()
			std[i] = math.NaN()
			continue
		}
		mean[i] = w.mean()
		std[i] = w.std()
	}
	return mean, std
}
