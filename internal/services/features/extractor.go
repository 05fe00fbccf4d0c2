package features

import (
	"FeatCast/internal/domain/models"
)

// SessionVWAP computes the session-anchored volume-weighted average price,
// aligned 1:1 with the bars. The anchor resets whenever a bar falls on a new
// UTC day. A leading zero-volume run yields the bar close itself.
func SessionVWAP(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	var pv, vol float64
	var day int
	for i, b := range bars {
		d := b.Bucket.UTC().YearDay() + b.Bucket.UTC().Year()*1000
		if i == 0 || d != day {
			day = d
			pv, vol = 0, 0
		}
		typical := (b.High + b.Low + b.Close) / 3
		pv += typical * b.Volume
		vol += b.Volume
		if vol > 0 {
			out[i] = pv / vol
		} else {
			out[i] = b.Close
		}
	}
	return out
}
