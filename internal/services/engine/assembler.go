package engine

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"time"

	"FeatCast/internal/domain/models"
	applogger "FeatCast/pkg/logger"
)

// minBars is the smallest window the engine will compute features over.
const minBars = 10

// Env carries the caller context the fingerprint and reference series depend
// on. It replaces any ambient session state: everything that can invalidate a
// cached snapshot must be in here, in the settings, or in the bars.
type Env struct {
	SourceID  string
	Toggles   map[string]bool
	Reference []float64 // optional, aligned by index (e.g. session VWAP)
}

// Fingerprint summarizes every input that affects the feature computation.
// It is a comparable value; two equal fingerprints mean the cached snapshot
// is still valid.
type Fingerprint struct {
	SourceID     string
	BarMinutes   float64
	Start        int64
	End          int64
	Bars         int
	Toggles      string
	SettingsHash uint64
}

// Snapshot is the complete feature registry for one bar window. All series
// are aligned 1:1 with the input bars. A snapshot is immutable once built.
type Snapshot struct {
	Fingerprint Fingerprint
	Bars        int
	ComputedAt  time.Time

	LogPrice   []float64
	Returns    []float64
	Sigma      []float64
	SigmaShort []float64
	VolRatio   []float64
	PriceDevZ  []float64

	Kalman KalmanResult
	Drift  DriftResult
	AR     map[int]ARSeries
	Clf    map[int]ClfSeries

	Warm     []bool
	KalmanOK []bool
	DriftOK  []bool

	registry map[string][]float64
}

// Metrics receives engine cache, compute, and model-fit observations.
type Metrics interface {
	RecordComputeHit()
	RecordRecompute(bars int, seconds float64)
	RecordFits(model string, refits, failures int)
}

// Engine memoizes the latest snapshot by fingerprint. It is a synchronous,
// pull-based computation with a single cache slot; it holds no locks and is
// not safe for concurrent use by multiple goroutines.
type Engine struct {
	last     *Snapshot
	lastFP   Fingerprint
	computes int

	log     *applogger.Logger
	metrics Metrics
}

type Option func(*Engine)

// WithLogger injects a structured logger.
func WithLogger(l *applogger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics injects a metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine with an empty cache slot.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Computes reports how many full recomputations have run. Cache hits do not
// increment it.
func (e *Engine) Computes() int { return e.computes }

// Compute returns the feature snapshot for the given window, recomputing only
// when the fingerprint changed. It returns nil when the engine is disabled or
// fewer than minBars bars are available; callers must treat nil as "no
// features yet", not an error.
func (e *Engine) Compute(bars []models.Bar, set Settings, env Env) *Snapshot {
	if !set.Enabled || len(bars) < minBars {
		return nil
	}

	fp := fingerprint(bars, set, env)
	if e.last != nil && fp == e.lastFP {
		if e.metrics != nil {
			e.metrics.RecordComputeHit()
		}
		return e.last
	}

	start := time.Now()
	snap := build(bars, set, env)
	snap.Fingerprint = fp
	e.last = snap
	e.lastFP = fp
	e.computes++

	dur := time.Since(start)
	if e.metrics != nil {
		e.metrics.RecordRecompute(len(bars), dur.Seconds())
		var refits, fails int
		for _, s := range snap.AR {
			refits += s.Refits
			fails += s.FitFails
		}
		e.metrics.RecordFits("ar", refits, fails)
		refits, fails = 0, 0
		for _, s := range snap.Clf {
			refits += s.Refits
			fails += s.FitFails
		}
		e.metrics.RecordFits("clf", refits, fails)
	}
	if e.log != nil && set.Verbose {
		e.log.Debug("feature snapshot rebuilt",
			applogger.String("source", env.SourceID),
			applogger.Int("bars", len(bars)),
			applogger.Duration("duration_ms", dur),
		)
	}
	return snap
}

// build recomputes every derived series from scratch over the full window.
func build(bars []models.Bar, set Settings, env Env) *Snapshot {
	n := len(bars)
	snap := &Snapshot{
		Bars:       n,
		ComputedAt: time.Now(),
		LogPrice:   make([]float64, n),
		Returns:    make([]float64, n),
		Sigma:      make([]float64, n),
		SigmaShort: make([]float64, n),
		VolRatio:   make([]float64, n),
		PriceDevZ:  nanSlice(n),
		Warm:       make([]bool, n),
		KalmanOK:   make([]bool, n),
		DriftOK:    make([]bool, n),
	}

	for i, b := range bars {
		if b.Close > 0 {
			snap.LogPrice[i] = math.Log(b.Close)
		} else {
			snap.LogPrice[i] = math.NaN()
		}
		if i == 0 {
			snap.Returns[i] = math.NaN()
		} else {
			snap.Returns[i] = snap.LogPrice[i] - snap.LogPrice[i-1]
		}
	}

	// sigma never drops below the floor, including during warmup; every
	// later division by sigma is safe.
	rawLong := RollingStd(snap.Returns, set.SigmaWin)
	rawShort := RollingStd(snap.Returns, set.SigmaShortWin)
	for i := 0; i < n; i++ {
		snap.Sigma[i] = flooredSigma(rawLong[i], set.SigmaFloor)
		snap.SigmaShort[i] = flooredSigma(rawShort[i], set.SigmaFloor)
		snap.VolRatio[i] = snap.SigmaShort[i] / snap.Sigma[i]
		if i < len(env.Reference) && env.Reference[i] > 0 && isFinite(snap.LogPrice[i]) {
			snap.PriceDevZ[i] = (snap.LogPrice[i] - math.Log(env.Reference[i])) / snap.Sigma[i]
		}
	}

	snap.Kalman = KalmanTrend(snap.LogPrice, snap.Sigma, set.KalmanResp)
	snap.Drift = Drift(snap.Returns, set.DriftWin, set.Horizons)
	snap.AR = FitAR(snap.Returns, snap.Sigma, set)
	snap.Clf = Classify(snap.Returns, snap.Kalman.SlopeZ, snap.PriceDevZ, snap.VolRatio, set)

	warmAt := set.SigmaWin
	if set.SigmaShortWin > warmAt {
		warmAt = set.SigmaShortWin
	}
	if set.DriftWin > warmAt {
		warmAt = set.DriftWin
	}
	minK := set.Horizons[0]
	for i := 0; i < n; i++ {
		snap.Warm[i] = i+1 >= warmAt
		snap.KalmanOK[i] = isFinite(snap.Kalman.SlopeZ[i])
		t := snap.Drift.TStat[minK][i]
		snap.DriftOK[i] = isFinite(t) && math.Abs(t) >= set.DriftTSTMin
	}

	snap.buildRegistry()
	return snap
}

func flooredSigma(raw, floor float64) float64 {
	if !isFinite(raw) || raw < floor {
		return floor
	}
	return raw
}

// fingerprint derives the cache key for a window. The settings hash folds in
// every resolved knob, so any configuration change forces a recompute.
func fingerprint(bars []models.Bar, set Settings, env Env) Fingerprint {
	return Fingerprint{
		SourceID:     env.SourceID,
		BarMinutes:   set.BarMinutes,
		Start:        bars[0].Bucket.UnixNano(),
		End:          bars[len(bars)-1].Bucket.UnixNano(),
		Bars:         len(bars),
		Toggles:      canonicalToggles(env.Toggles),
		SettingsHash: set.hash(),
	}
}

func canonicalToggles(m map[string]bool) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(k)
		if m[k] {
			sb.WriteString("=1")
		} else {
			sb.WriteString("=0")
		}
	}
	return sb.String()
}

// hash folds every resolved setting into a stable 64-bit value.
func (s Settings) hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	wu := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	wf := func(v float64) { wu(math.Float64bits(v)) }
	wi := func(v int) { wu(uint64(int64(v))) }

	if s.Enabled {
		wu(1)
	} else {
		wu(0)
	}
	wf(s.BarMinutes)
	wi(len(s.Horizons))
	for _, k := range s.Horizons {
		wi(k)
	}
	wi(len(s.AROrders))
	for _, p := range s.AROrders {
		wi(p)
	}
	wi(s.SigmaWin)
	wi(s.SigmaShortWin)
	wi(s.DriftWin)
	wi(s.ARWin)
	wi(s.ClfTrain)
	wi(s.ClfBrier)
	wf(s.ClfL2)
	wi(s.ClfSteps)
	wf(s.ClfLR)
	wf(s.EntropyCeil)
	wf(s.SigmaFloor)
	wf(s.KalmanResp)
	wf(s.DriftTSTMin)
	wi(s.StrideAR)
	wi(s.StrideClf)
	return h.Sum64()
}
