package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	domrepo "FeatCast/internal/domain/repository"
	"FeatCast/internal/services/engine"
	"FeatCast/internal/services/features"
	applogger "FeatCast/pkg/logger"
)

// FeaturesUseCase pulls a bar window from the store and runs the feature
// engine over it. Engines are kept per symbol+timeframe so each window keeps
// its own snapshot cache; the mutex serializes access since an Engine
// instance is not safe for concurrent use.
type FeaturesUseCase struct {
	store     domrepo.BarStore
	defaults  engine.Defaults
	overrides *engine.Overrides

	mu      sync.Mutex
	engines map[string]*engine.Engine

	newEngine func() *engine.Engine
	log       *applogger.Logger
}

func NewFeaturesUseCase(store domrepo.BarStore, defaults engine.Defaults, overrides *engine.Overrides, newEngine func() *engine.Engine) *FeaturesUseCase {
	if newEngine == nil {
		newEngine = func() *engine.Engine { return engine.New() }
	}
	return &FeaturesUseCase{
		store:     store,
		defaults:  defaults,
		overrides: overrides,
		engines:   make(map[string]*engine.Engine),
		newEngine: newEngine,
	}
}

// SetLogger injects a structured logger.
func (uc *FeaturesUseCase) SetLogger(l *applogger.Logger) { uc.log = l }

type GetFeaturesParams struct {
	Symbol    string
	N         int
	Timeframe domrepo.Timeframe
	Flags     engine.AdHoc
}

// GetFeaturesResult summarizes a feature snapshot for transport. Full series
// are retrieved individually via GetSeries.
type GetFeaturesResult struct {
	Symbol     string
	Timeframe  string
	Bars       int
	ComputedAt time.Time
	Series     []string
	Warm       bool
	KalmanOK   bool
	DriftOK    bool
}

// GetFeatures computes (or re-serves from cache) the feature snapshot for the
// latest N bars. A nil result with nil error means not-ready: too few bars or
// the engine is disabled.
func (uc *FeaturesUseCase) GetFeatures(ctx context.Context, p GetFeaturesParams) (*GetFeaturesResult, error) {
	snap, err := uc.snapshot(ctx, p.Symbol, p.N, p.Timeframe, p.Flags)
	if err != nil || snap == nil {
		return nil, err
	}

	last := snap.Bars - 1
	return &GetFeaturesResult{
		Symbol:     p.Symbol,
		Timeframe:  string(p.Timeframe),
		Bars:       snap.Bars,
		ComputedAt: snap.ComputedAt,
		Series:     snap.SeriesNames(),
		Warm:       snap.Warm[last],
		KalmanOK:   snap.KalmanOK[last],
		DriftOK:    snap.DriftOK[last],
	}, nil
}

type GetSeriesParams struct {
	Symbol    string
	Path      string
	N         int
	Tail      int
	Timeframe domrepo.Timeframe
	Flags     engine.AdHoc
}

// FloatSeries marshals non-finite values as JSON null so warmup NaNs survive
// the transport encoding.
type FloatSeries []float64

func (s FloatSeries) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(s)*8 + 2)
	buf.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf.WriteString("null")
		} else {
			buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (s *FloatSeries) UnmarshalJSON(b []byte) error {
	var raw []*float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make([]float64, len(raw))
	for i, p := range raw {
		if p == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *p
		}
	}
	*s = out
	return nil
}

type GetSeriesResult struct {
	Symbol    string
	Timeframe string
	Path      string
	Values    FloatSeries
}

// GetSeries retrieves one derived series by dotted path, optionally trimmed
// to the trailing Tail values.
func (uc *FeaturesUseCase) GetSeries(ctx context.Context, p GetSeriesParams) (*GetSeriesResult, error) {
	snap, err := uc.snapshot(ctx, p.Symbol, p.N, p.Timeframe, p.Flags)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, nil
	}

	vals, err := snap.Series(p.Path)
	if err != nil {
		return nil, err
	}
	if p.Tail > 0 && p.Tail < len(vals) {
		vals = vals[len(vals)-p.Tail:]
	}
	return &GetSeriesResult{
		Symbol:    p.Symbol,
		Timeframe: string(p.Timeframe),
		Path:      p.Path,
		Values:    vals,
	}, nil
}

// Warmup precomputes the snapshot for a symbol so later reads hit the cache.
// Used by the recompute job worker.
func (uc *FeaturesUseCase) Warmup(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) error {
	_, err := uc.snapshot(ctx, symbol, n, tf, engine.AdHoc{})
	return err
}

func (uc *FeaturesUseCase) snapshot(ctx context.Context, symbol string, n int, tf domrepo.Timeframe, flags engine.AdHoc) (*engine.Snapshot, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if n <= 0 {
		n = 600
	}

	bars, err := uc.store.GetLatestNBars(ctx, symbol, n, tf)
	if err != nil {
		return nil, fmt.Errorf("get bars: %w", err)
	}

	set := engine.Resolve(uc.defaults, uc.overrides, flags, domrepo.BarMinutes(tf))
	env := engine.Env{
		SourceID:  "clickhouse:" + symbol + ":" + string(tf),
		Reference: features.SessionVWAP(bars),
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	key := symbol + ":" + string(tf)
	eng, ok := uc.engines[key]
	if !ok {
		eng = uc.newEngine()
		uc.engines[key] = eng
	}
	snap := eng.Compute(bars, set, env)
	if snap == nil && uc.log != nil {
		uc.log.Debug("features not ready",
			applogger.String("symbol", symbol),
			applogger.Int("bars", len(bars)),
		)
	}
	return snap, nil
}
