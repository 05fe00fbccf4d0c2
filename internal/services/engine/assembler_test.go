package engine

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeatCast/internal/domain/models"
)

func testBars(n int, seed int64) []models.Bar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]models.Bar, n)
	price := 100.0
	t0 := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		price *= 1 + 0.002*rng.NormFloat64()
		bars[i] = models.Bar{
			Bucket: t0.Add(time.Duration(i) * time.Minute),
			Symbol: "TEST",
			Open:   price * 0.999,
			High:   price * 1.001,
			Low:    price * 0.998,
			Close:  price,
			Volume: 1000 + 10*float64(i%7),
		}
	}
	return bars
}

func testSettings() Settings {
	return Resolve(NewDefaults(), nil, AdHoc{}, 1)
}

func TestEngine_NotReady(t *testing.T) {
	e := New()
	set := testSettings()

	assert.Nil(t, e.Compute(testBars(9, 1), set, Env{SourceID: "t"}), "below the minimum window")

	set.Enabled = false
	assert.Nil(t, e.Compute(testBars(50, 1), set, Env{SourceID: "t"}), "engine disabled")
	assert.Equal(t, 0, e.Computes())
}

func TestEngine_CacheHitReturnsSameSnapshot(t *testing.T) {
	e := New()
	set := testSettings()
	bars := testBars(120, 2)
	env := Env{SourceID: "clickhouse:TEST:1m"}

	first := e.Compute(bars, set, env)
	require.NotNil(t, first)
	require.Equal(t, 1, e.Computes())

	second := e.Compute(bars, set, env)
	assert.Same(t, first, second, "unchanged fingerprint must return the cached snapshot")
	assert.Equal(t, 1, e.Computes(), "cache hit must not recompute")
}

func TestEngine_FingerprintInvalidation(t *testing.T) {
	e := New()
	set := testSettings()
	env := Env{SourceID: "clickhouse:TEST:1m"}
	bars := testBars(121, 2)

	first := e.Compute(bars[:120], set, env)
	require.NotNil(t, first)

	// appending one bar moves the window end and bar count
	second := e.Compute(bars, set, env)
	require.NotNil(t, second)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, e.Computes())

	// any settings change invalidates too
	set.KalmanResp = 2
	third := e.Compute(bars, set, env)
	assert.NotSame(t, second, third)

	// and so does a toggle flip
	env.Toggles = map[string]bool{"overlay": true}
	fourth := e.Compute(bars, set, env)
	assert.NotSame(t, third, fourth)
	assert.Equal(t, 4, e.Computes())
}

func TestEngine_SnapshotSeriesAligned(t *testing.T) {
	e := New()
	set := testSettings()
	bars := testBars(200, 3)

	snap := e.Compute(bars, set, Env{SourceID: "t"})
	require.NotNil(t, snap)

	n := len(bars)
	assert.Equal(t, n, snap.Bars)
	assert.Len(t, snap.LogPrice, n)
	assert.Len(t, snap.Returns, n)
	assert.Len(t, snap.Sigma, n)
	assert.Len(t, snap.Kalman.SlopeZ, n)
	for _, k := range set.Horizons {
		assert.Len(t, snap.Drift.MuHat[k], n)
		assert.Len(t, snap.Clf[k].PUp, n)
	}
	for _, p := range set.AROrders {
		assert.Len(t, snap.AR[p].MuHat, n)
	}
	assert.Len(t, snap.Warm, n)
}

func TestEngine_SigmaFloorHolds(t *testing.T) {
	e := New()
	set := testSettings()
	bars := testBars(60, 4)
	// flat closes produce zero realized vol
	for i := range bars {
		bars[i].Close = 100
	}

	snap := e.Compute(bars, set, Env{SourceID: "t"})
	require.NotNil(t, snap)
	for i, s := range snap.Sigma {
		assert.GreaterOrEqual(t, s, set.SigmaFloor, "sigma at %d", i)
		assert.False(t, math.IsNaN(snap.VolRatio[i]), "floored sigma keeps ratios defined")
	}
}

func TestEngine_ReferenceSeriesDeviation(t *testing.T) {
	e := New()
	set := testSettings()
	bars := testBars(60, 5)
	ref := make([]float64, len(bars))
	for i := range ref {
		ref[i] = bars[i].Close * 0.99 // price sits 1% above the reference
	}

	snap := e.Compute(bars, set, Env{SourceID: "t", Reference: ref})
	require.NotNil(t, snap)
	last := len(bars) - 1
	require.False(t, math.IsNaN(snap.PriceDevZ[last]))
	assert.Greater(t, snap.PriceDevZ[last], 0.0, "above reference means positive deviation")

	// without a reference the series stays undefined
	snap2 := e.Compute(bars, set, Env{SourceID: "t2"})
	assert.True(t, math.IsNaN(snap2.PriceDevZ[last]))
}

func TestEngine_BadBarDegradesLocally(t *testing.T) {
	e := New()
	set := testSettings()
	bars := testBars(120, 6)
	bars[60].Close = 0 // missing/invalid close

	snap := e.Compute(bars, set, Env{SourceID: "t"})
	require.NotNil(t, snap)
	assert.True(t, math.IsNaN(snap.LogPrice[60]))
	assert.True(t, math.IsNaN(snap.Returns[60]))
	assert.True(t, math.IsNaN(snap.Returns[61]), "return touching the bad close is undefined")
	assert.False(t, math.IsNaN(snap.Returns[62]), "later bars recover")
	assert.False(t, math.IsNaN(snap.Kalman.Level[119]), "filter keeps running past the gap")
}
