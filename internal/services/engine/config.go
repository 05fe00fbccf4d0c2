package engine

import (
	"math"
	"sort"
)

// Model keys used in the stride map.
const (
	ModelAR  = "ar"
	ModelClf = "clf"
)

// StrideAuto requests a cadence derived from the bar duration instead of a
// literal bar count.
const StrideAuto = "auto"

// Target wall-clock minutes between refits when a stride is "auto".
const (
	arAutoMinutes  = 20.0
	clfAutoMinutes = 30.0
)

// Defaults is the baseline engine configuration, expressed in minutes where a
// window is time-based. Values outside their valid range are clamped during
// Resolve; Resolve never fails.
type Defaults struct {
	Enabled bool `yaml:"enabled"`

	Horizons []float64 `yaml:"horizons"`  // forecast horizons in bars
	AROrders []float64 `yaml:"ar_orders"` // autoregressive lag orders, 1..5

	SigmaWinMin      float64 `yaml:"sigma_win_min"`
	SigmaShortWinMin float64 `yaml:"sigma_short_win_min"`
	DriftWinMin      float64 `yaml:"drift_win_min"`
	ARWinMin         float64 `yaml:"ar_win_min"`
	ClfTrainMin      float64 `yaml:"clf_train_min"`
	ClfBrierMin      float64 `yaml:"clf_brier_min"`

	ClfL2       float64 `yaml:"clf_l2"`
	ClfSteps    int     `yaml:"clf_steps"`
	ClfLR       float64 `yaml:"clf_lr"`
	EntropyCeil float64 `yaml:"entropy_ceil"`

	SigmaFloor  float64 `yaml:"sigma_floor"`
	KalmanResp  float64 `yaml:"kalman_resp"`
	DriftTSTMin float64 `yaml:"drift_tstat_min"`

	Strides map[string]string `yaml:"strides"` // per-model: literal bars or "auto"
}

// NewDefaults returns the stock configuration.
func NewDefaults() Defaults {
	return Defaults{
		Enabled:          true,
		Horizons:         []float64{1, 5, 15},
		AROrders:         []float64{1, 2},
		SigmaWinMin:      60,
		SigmaShortWinMin: 15,
		DriftWinMin:      120,
		ARWinMin:         240,
		ClfTrainMin:      480,
		ClfBrierMin:      120,
		ClfL2:            1.0,
		ClfSteps:         200,
		ClfLR:            0.05,
		EntropyCeil:      0.98,
		SigmaFloor:       1e-6,
		KalmanResp:       1.0,
		DriftTSTMin:      1.0,
		Strides:          map[string]string{ModelAR: StrideAuto, ModelClf: StrideAuto},
	}
}

// Overrides carries optional stored configuration. Nil fields inherit the
// default; the stride map merges key-by-key.
type Overrides struct {
	Enabled  *bool
	Horizons []float64
	AROrders []float64

	SigmaWinMin      *float64
	SigmaShortWinMin *float64
	DriftWinMin      *float64
	ARWinMin         *float64
	ClfTrainMin      *float64
	ClfBrierMin      *float64

	ClfL2       *float64
	ClfSteps    *int
	ClfLR       *float64
	EntropyCeil *float64

	SigmaFloor  *float64
	KalmanResp  *float64
	DriftTSTMin *float64

	Strides map[string]string
}

// AdHoc carries per-call flags layered on top of stored configuration.
type AdHoc struct {
	ForceEnable  bool
	ForceDisable bool
	Verbose      bool
}

// Settings is the fully resolved engine configuration with every window
// converted to bar counts. It is a pure value; equality of settings implies
// equality of computed features over the same window.
type Settings struct {
	Enabled    bool
	BarMinutes float64

	Horizons []int
	AROrders []int

	SigmaWin      int
	SigmaShortWin int
	DriftWin      int
	ARWin         int
	ClfTrain      int
	ClfBrier      int

	ClfL2       float64
	ClfSteps    int
	ClfLR       float64
	EntropyCeil float64

	SigmaFloor  float64
	KalmanResp  float64
	DriftTSTMin float64

	StrideAR  int
	StrideClf int

	Verbose bool
}

// Resolve merges defaults, optional stored overrides, and ad-hoc flags into a
// sanitized Settings. Invalid values are clamped or replaced with fallbacks;
// this function never fails.
func Resolve(def Defaults, ov *Overrides, flags AdHoc, barMinutes float64) Settings {
	if !(barMinutes > 0) {
		barMinutes = 1
	}

	d := def
	strides := make(map[string]string, len(d.Strides)+2)
	for k, v := range d.Strides {
		strides[k] = v
	}
	if ov != nil {
		if ov.Enabled != nil {
			d.Enabled = *ov.Enabled
		}
		if ov.Horizons != nil {
			d.Horizons = ov.Horizons
		}
		if ov.AROrders != nil {
			d.AROrders = ov.AROrders
		}
		overrideF(&d.SigmaWinMin, ov.SigmaWinMin)
		overrideF(&d.SigmaShortWinMin, ov.SigmaShortWinMin)
		overrideF(&d.DriftWinMin, ov.DriftWinMin)
		overrideF(&d.ARWinMin, ov.ARWinMin)
		overrideF(&d.ClfTrainMin, ov.ClfTrainMin)
		overrideF(&d.ClfBrierMin, ov.ClfBrierMin)
		overrideF(&d.ClfL2, ov.ClfL2)
		if ov.ClfSteps != nil {
			d.ClfSteps = *ov.ClfSteps
		}
		overrideF(&d.ClfLR, ov.ClfLR)
		overrideF(&d.EntropyCeil, ov.EntropyCeil)
		overrideF(&d.SigmaFloor, ov.SigmaFloor)
		overrideF(&d.KalmanResp, ov.KalmanResp)
		overrideF(&d.DriftTSTMin, ov.DriftTSTMin)
		for k, v := range ov.Strides {
			strides[k] = v
		}
	}

	enabled := d.Enabled
	if flags.ForceEnable {
		enabled = true
	}
	if flags.ForceDisable {
		enabled = false
	}

	return Settings{
		Enabled:    enabled,
		BarMinutes: barMinutes,

		Horizons: sanitizeIntList(d.Horizons, 1, 500, []int{1, 5, 15}),
		AROrders: sanitizeIntList(d.AROrders, 1, 5, []int{1, 2}),

		SigmaWin:      barsFromMinutes(d.SigmaWinMin, barMinutes),
		SigmaShortWin: barsFromMinutes(d.SigmaShortWinMin, barMinutes),
		DriftWin:      barsFromMinutes(d.DriftWinMin, barMinutes),
		ARWin:         barsFromMinutes(d.ARWinMin, barMinutes),
		ClfTrain:      barsFromMinutes(d.ClfTrainMin, barMinutes),
		ClfBrier:      barsFromMinutes(d.ClfBrierMin, barMinutes),

		ClfL2:       clampF(d.ClfL2, 0, 100),
		ClfSteps:    clampI(d.ClfSteps, 1, 2000),
		ClfLR:       clampF(d.ClfLR, 1e-4, 1),
		EntropyCeil: clampF(d.EntropyCeil, 0, 1),

		SigmaFloor:  clampF(d.SigmaFloor, 1e-9, 1),
		KalmanResp:  clampF(d.KalmanResp, 0.05, 10),
		DriftTSTMin: clampF(d.DriftTSTMin, 0, 100),

		StrideAR:  resolveStride(strides[ModelAR], arAutoMinutes, barMinutes),
		StrideClf: resolveStride(strides[ModelClf], clfAutoMinutes, barMinutes),

		Verbose: flags.Verbose,
	}
}

// barsFromMinutes converts a minute-based window to a bar count, at least 1.
func barsFromMinutes(minutes, barMinutes float64) int {
	n := int(math.Round(minutes / barMinutes))
	if n < 1 {
		return 1
	}
	return n
}

// resolveStride turns a stride spec into a bar cadence >= 1. Literal integers
// pass through floored; "auto" (or anything unparseable) derives the cadence
// from the model's target minutes.
func resolveStride(spec string, autoMinutes, barMinutes float64) int {
	if spec != "" && spec != StrideAuto {
		if n, ok := parseStrideLiteral(spec); ok {
			if n < 1 {
				return 1
			}
			return n
		}
	}
	return barsFromMinutes(autoMinutes, barMinutes)
}

func parseStrideLiteral(s string) (int, bool) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
		if n > 1<<20 {
			return 0, false
		}
	}
	if s == "" {
		return 0, false
	}
	return n, true
}

// sanitizeIntList floors, bounds, deduplicates, and sorts a list; an empty or
// fully invalid list falls back to the provided default.
func sanitizeIntList(in []float64, lo, hi int, fallback []int) []int {
	seen := make(map[int]bool, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		n := int(math.Floor(v))
		if n < lo || n > hi || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	if len(out) == 0 {
		out = append(out, fallback...)
	}
	sort.Ints(out)
	return out
}

func overrideF(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func clampF(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
