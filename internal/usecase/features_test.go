package usecase

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeatCast/internal/domain/models"
	domrepo "FeatCast/internal/domain/repository"
	"FeatCast/internal/services/engine"
)

type fakeBarStore struct {
	bars  []models.Bar
	calls int
}

func (f *fakeBarStore) GetBars(_ context.Context, _ string, _, _ time.Time, _ domrepo.Timeframe) ([]models.Bar, error) {
	f.calls++
	return f.bars, nil
}

func (f *fakeBarStore) GetLatestNBars(_ context.Context, _ string, n int, _ domrepo.Timeframe) ([]models.Bar, error) {
	f.calls++
	if len(f.bars) > n {
		return f.bars[len(f.bars)-n:], nil
	}
	return f.bars, nil
}

func randomBars(n int, seed int64) []models.Bar {
	rng := rand.New(rand.NewSource(seed))
	out := make([]models.Bar, n)
	price := 50.0
	t0 := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	for i := range out {
		price *= 1 + 0.001*rng.NormFloat64()
		out[i] = models.Bar{
			Bucket: t0.Add(time.Duration(i) * time.Minute),
			Symbol: "FAKE",
			Open:   price, High: price, Low: price, Close: price,
			Volume: 500,
		}
	}
	return out
}

func TestFeaturesUseCase_NotReadyBelowMinimum(t *testing.T) {
	store := &fakeBarStore{bars: randomBars(5, 1)}
	uc := NewFeaturesUseCase(store, engine.NewDefaults(), nil, nil)

	res, err := uc.GetFeatures(context.Background(), GetFeaturesParams{Symbol: "FAKE", N: 100, Timeframe: domrepo.TF1m})
	require.NoError(t, err)
	assert.Nil(t, res, "too few bars is not-ready, not an error")
}

func TestFeaturesUseCase_SnapshotCachedAcrossCalls(t *testing.T) {
	store := &fakeBarStore{bars: randomBars(150, 2)}
	var eng *engine.Engine
	uc := NewFeaturesUseCase(store, engine.NewDefaults(), nil, func() *engine.Engine {
		eng = engine.New()
		return eng
	})
	ctx := context.Background()
	p := GetFeaturesParams{Symbol: "FAKE", N: 150, Timeframe: domrepo.TF1m}

	first, err := uc.GetFeatures(ctx, p)
	require.NoError(t, err)
	require.NotNil(t, first)
	require.NotNil(t, eng)
	assert.Equal(t, 1, eng.Computes())

	_, err = uc.GetFeatures(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 1, eng.Computes(), "same window must hit the snapshot cache")

	// a new bar arrives
	store.bars = append(store.bars, randomBars(151, 2)[150])
	_, err = uc.GetFeatures(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 2, eng.Computes(), "window change forces one full recompute")
}

func TestFeaturesUseCase_GetSeries(t *testing.T) {
	store := &fakeBarStore{bars: randomBars(150, 3)}
	uc := NewFeaturesUseCase(store, engine.NewDefaults(), nil, nil)
	ctx := context.Background()

	res, err := uc.GetSeries(ctx, GetSeriesParams{
		Symbol: "FAKE", Path: "kalman.slope_z", N: 150, Tail: 10, Timeframe: domrepo.TF1m,
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Len(t, res.Values, 10, "tail trims to the trailing values")

	_, err = uc.GetSeries(ctx, GetSeriesParams{
		Symbol: "FAKE", Path: "no.such.series", N: 150, Timeframe: domrepo.TF1m,
	})
	assert.ErrorIs(t, err, engine.ErrSeriesNotFound)
}

func TestFeaturesUseCase_ForceDisable(t *testing.T) {
	store := &fakeBarStore{bars: randomBars(150, 4)}
	uc := NewFeaturesUseCase(store, engine.NewDefaults(), nil, nil)

	res, err := uc.GetFeatures(context.Background(), GetFeaturesParams{
		Symbol: "FAKE", N: 150, Timeframe: domrepo.TF1m,
		Flags: engine.AdHoc{ForceDisable: true},
	})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestFloatSeries_JSONRoundTrip(t *testing.T) {
	in := FloatSeries{1.5, math.NaN(), math.Inf(1), -2}

	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `[1.5,null,null,-2]`, string(b))

	var out FloatSeries
	require.NoError(t, json.Unmarshal(b, &out))
	require.Len(t, out, 4)
	assert.Equal(t, 1.5, out[0])
	assert.True(t, math.IsNaN(out[1]))
	assert.True(t, math.IsNaN(out[2]), "infinities come back as NaN")
	assert.Equal(t, -2.0, out[3])
}
