package api

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeatCast/internal/domain/models"
	domrepo "FeatCast/internal/domain/repository"
	icache "FeatCast/internal/service/cache"
	"FeatCast/internal/services/engine"
	"FeatCast/internal/usecase"
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

func newTestHandler(store *fakeBarStore) *FeaturesHandler {
	uc := usecase.NewFeaturesUseCase(store, engine.NewDefaults(), nil, nil)
	h := NewFeaturesHandler(uc)
	h.SetCache(icache.NewTTLCache())
	return h
}

func TestFeaturesHandler_MissingSymbol(t *testing.T) {
	h := newTestHandler(&fakeBarStore{bars: randomBars(150, 1)})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/cached/features", nil)
	h.Features().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeaturesHandler_NotEnoughBars(t *testing.T) {
	h := newTestHandler(&fakeBarStore{bars: randomBars(5, 2)})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/cached/features?symbol=FAKE", nil)
	h.Features().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeaturesHandler_FeaturesAndCache(t *testing.T) {
	store := &fakeBarStore{bars: randomBars(150, 3)}
	h := newTestHandler(store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/cached/features?symbol=FAKE&tf=1m", nil)
	h.Features().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var res usecase.GetFeaturesResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "FAKE", res.Symbol)
	assert.Equal(t, 150, res.Bars)
	assert.Contains(t, res.Series, "sigma")

	calls := store.calls
	rec2 := httptest.NewRecorder()
	h.Features().ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/api/cached/features?symbol=FAKE&tf=1m", nil))
	require.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, calls, store.calls, "second request must be served from the byte cache")
	assert.Equal(t, rec.Body.String(), rec2.Body.String())
}

func TestFeaturesHandler_Series(t *testing.T) {
	h := newTestHandler(&fakeBarStore{bars: randomBars(150, 4)})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/cached/series?symbol=FAKE&path=sigma&tail=20", nil)
	h.Series().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res usecase.GetSeriesResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "sigma", res.Path)
	assert.Len(t, res.Values, 20)
}

func TestFeaturesHandler_SeriesUnknownPath(t *testing.T) {
	h := newTestHandler(&fakeBarStore{bars: randomBars(150, 5)})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/cached/series?symbol=FAKE&path=nope", nil)
	h.Series().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFeaturesHandler_RateLimited(t *testing.T) {
	h := newTestHandler(&fakeBarStore{bars: randomBars(150, 6)})
	h.SetCache(nil)

	var limited bool
	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/cached/features?symbol=FAKE", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		h.Features().ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited, "burst past bucket capacity must be limited")
}
