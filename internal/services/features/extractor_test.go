package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeatCast/internal/domain/models"
)

func bar(ts time.Time, h, l, c, v float64) models.Bar {
	return models.Bar{Bucket: ts, High: h, Low: l, Close: c, Volume: v}
}

func TestSessionVWAP_WeightsByVolume(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	bars := []models.Bar{
		bar(t0, 10, 10, 10, 100),
		bar(t0.Add(time.Minute), 20, 20, 20, 300),
	}
	v := SessionVWAP(bars)
	require.Len(t, v, 2)
	assert.InDelta(t, 10.0, v[0], 1e-12)
	assert.InDelta(t, 17.5, v[1], 1e-12, "(10*100 + 20*300) / 400")
}

func TestSessionVWAP_ResetsOnNewDay(t *testing.T) {
	d1 := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	d2 := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	bars := []models.Bar{
		bar(d1, 50, 50, 50, 1000),
		bar(d2, 20, 20, 20, 10),
	}
	v := SessionVWAP(bars)
	assert.InDelta(t, 20.0, v[1], 1e-12, "anchor resets at the session boundary")
}

func TestSessionVWAP_ZeroVolumeFallsBackToClose(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	v := SessionVWAP([]models.Bar{bar(t0, 15, 13, 14, 0)})
	assert.InDelta(t, 14.0, v[0], 1e-12)
}
