package engine

import (
	"errors"
	"fmt"
	"sort"
)

// ErrSeriesNotFound is returned by Series for an unknown dotted path.
var ErrSeriesNotFound = errors.New("engine: series not found")

// buildRegistry indexes every derived series under a dotted path. Boolean
// flags are exposed as 0/1 floats so diagnostics layers can plot them like
// any other series.
func (s *Snapshot) buildRegistry() {
	reg := make(map[string][]float64, 16+4*len(s.AR)+4*len(s.Clf))

	reg["logp"] = s.LogPrice
	reg["ret"] = s.Returns
	reg["sigma"] = s.Sigma
	reg["sigma_short"] = s.SigmaShort
	reg["vol_ratio"] = s.VolRatio
	reg["price_dev_z"] = s.PriceDevZ

	reg["kalman.level"] = s.Kalman.Level
	reg["kalman.slope"] = s.Kalman.Slope
	reg["kalman.slope_std"] = s.Kalman.SlopeStd
	reg["kalman.slope_z"] = s.Kalman.SlopeZ

	for k, mu := range s.Drift.MuHat {
		reg[fmt.Sprintf("drift.k%d.mu_hat", k)] = mu
	}
	for k, t := range s.Drift.TStat {
		reg[fmt.Sprintf("drift.k%d.t_stat", k)] = t
	}

	for p, ar := range s.AR {
		reg[fmt.Sprintf("ar.ar%d.mu_hat_k1", p)] = ar.MuHat
		reg[fmt.Sprintf("ar.ar%d.innov_z", p)] = ar.InnovZ
		reg[fmt.Sprintf("ar.ar%d.stable", p)] = ar.Stable
		reg[fmt.Sprintf("ar.ar%d.margin", p)] = ar.Margin
	}

	for k, c := range s.Clf {
		reg[fmt.Sprintf("clf.k%d.p_up", k)] = c.PUp
		reg[fmt.Sprintf("clf.k%d.entropy", k)] = c.Entropy
		reg[fmt.Sprintf("clf.k%d.brier", k)] = c.Brier
		reg[fmt.Sprintf("clf.k%d.calib_ok", k)] = c.CalibOK
		reg[fmt.Sprintf("clf.k%d.conf_ok", k)] = c.ConfOK
	}

	reg["flags.warm"] = boolsToFloats(s.Warm)
	reg["flags.kalman_ok"] = boolsToFloats(s.KalmanOK)
	reg["flags.drift_ok"] = boolsToFloats(s.DriftOK)

	s.registry = reg
}

// Series retrieves a derived series by dotted path, e.g. "kalman.slope_z",
// "ar.ar1.mu_hat_k1", or "clf.k3.p_up".
func (s *Snapshot) Series(path string) ([]float64, error) {
	if v, ok := s.registry[path]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrSeriesNotFound, path)
}

// SeriesNames lists every registered dotted path in sorted order.
func (s *Snapshot) SeriesNames() []string {
	names := make([]string, 0, len(s.registry))
	for k := range s.registry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func boolsToFloats(bs []bool) []float64 {
	out := make([]float64, len(bs))
	for i, b := range bs {
		if b {
			out[i] = 1
		}
	}
	return out
}
