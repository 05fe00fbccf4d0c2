package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	domrepo "FeatCast/internal/domain/repository"
	icache "FeatCast/internal/service/cache"
	"FeatCast/internal/service/metrics"
	"FeatCast/internal/service/ratelimit"
	"FeatCast/internal/usecase"
	applogger "FeatCast/pkg/logger"
	"FeatCast/pkg/util"
)

// FeaturesHandler serves the feature engine over plain net/http. It fronts
// the usecase with a short-TTL byte cache and a per-client token bucket so
// dashboards can poll without forcing recomputes.
type FeaturesHandler struct {
	features *usecase.FeaturesUseCase
	cache    icache.BytesCache
	rl       *ratelimit.Limiter
	l        *applogger.Logger
}

func NewFeaturesHandler(features *usecase.FeaturesUseCase) *FeaturesHandler {
	metrics.Register()
	return &FeaturesHandler{features: features, rl: ratelimit.New()}
}

func (h *FeaturesHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *FeaturesHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *FeaturesHandler) Features() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "features"
		defer func() { metrics.FeaturesLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		symbol := util.NormalizeSymbol(r.URL.Query().Get("symbol"))
		if symbol == "" {
			if h.l != nil {
				h.l.Warn("features missing symbol")
			}
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}
		n := util.ParseIntDefault(r.URL.Query().Get("n"), 600)
		tf := domrepo.Timeframe(r.URL.Query().Get("tf"))
		if tf == "" {
			tf = domrepo.TF1m
		}
		if !h.rl.Allow(r.RemoteAddr+":features", 5, 2) {
			if h.l != nil {
				h.l.Warn("features rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "features:" + symbol + ":" + string(tf)
		if b, ok := h.cacheGet(endpoint, cacheKey); ok {
			h.writeJSON(endpoint, w, b)
			return
		}
		res, err := h.features.GetFeatures(r.Context(), usecase.GetFeaturesParams{
			Symbol:    symbol,
			N:         n,
			Timeframe: tf,
		})
		if err != nil {
			metrics.FeaturesErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("features error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if res == nil {
			http.Error(w, "not enough bars", http.StatusNotFound)
			return
		}
		b, err := json.Marshal(res)
		if err != nil {
			if h.l != nil {
				h.l.Error("features marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		h.cacheSet(endpoint, cacheKey, b, 15*time.Second)
		h.writeJSON(endpoint, w, b)
	}
}

func (h *FeaturesHandler) Series() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "series"
		defer func() { metrics.FeaturesLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		symbol := util.NormalizeSymbol(r.URL.Query().Get("symbol"))
		path := r.URL.Query().Get("path")
		if symbol == "" || path == "" {
			if h.l != nil {
				h.l.Warn("series missing symbol or path")
			}
			http.Error(w, "symbol and path required", http.StatusBadRequest)
			return
		}
		n := util.ParseIntDefault(r.URL.Query().Get("n"), 600)
		tail := util.ParseIntDefault(r.URL.Query().Get("tail"), 0)
		tf := domrepo.Timeframe(r.URL.Query().Get("tf"))
		if tf == "" {
			tf = domrepo.TF1m
		}
		if !h.rl.Allow(r.RemoteAddr+":series", 5, 2) {
			if h.l != nil {
				h.l.Warn("series rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "series:" + symbol + ":" + path + ":" + strconv.Itoa(tail) + ":" + string(tf)
		if b, ok := h.cacheGet(endpoint, cacheKey); ok {
			h.writeJSON(endpoint, w, b)
			return
		}
		res, err := h.features.GetSeries(r.Context(), usecase.GetSeriesParams{
			Symbol:    symbol,
			Path:      path,
			N:         n,
			Tail:      tail,
			Timeframe: tf,
		})
		if err != nil {
			metrics.FeaturesErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("series error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if res == nil {
			http.Error(w, "not enough bars", http.StatusNotFound)
			return
		}
		b, err := json.Marshal(res)
		if err != nil {
			if h.l != nil {
				h.l.Error("series marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		h.cacheSet(endpoint, cacheKey, b, 15*time.Second)
		h.writeJSON(endpoint, w, b)
	}
}

func (h *FeaturesHandler) cacheGet(endpoint, key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil {
		if h.l != nil {
			h.l.Warn(endpoint+" cache_get_error", applogger.Error(err))
		}
		return nil, false
	}
	if ok {
		if h.l != nil {
			h.l.Debug(endpoint+" cache_hit", applogger.String("key", key))
		}
		return b, true
	}
	if h.l != nil {
		h.l.Debug(endpoint+" cache_miss", applogger.String("key", key))
	}
	return nil, false
}

func (h *FeaturesHandler) cacheSet(endpoint, key string, b []byte, ttl time.Duration) {
	if h.cache == nil {
		return
	}
	if err := h.cache.SetBytes(key, b, ttl); err != nil && h.l != nil {
		h.l.Warn(endpoint+" cache_set_error", applogger.Error(err))
	}
}

func (h *FeaturesHandler) writeJSON(endpoint string, w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(b); err != nil && h.l != nil {
		h.l.Warn(endpoint+" write_error", applogger.Error(err))
	}
}

