package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	got, ok := ParseTime("2025-03-10T14:30:00Z")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC), got.UTC())

	got, ok = ParseTime("2025-03-10T14:30:00.25Z")
	require.True(t, ok)
	assert.Equal(t, 250*int(time.Millisecond), got.Nanosecond())

	// unix seconds
	got, ok = ParseTime("1741617000")
	require.True(t, ok)
	assert.Equal(t, int64(1741617000), got.Unix())

	// unix milliseconds
	got, ok = ParseTime("1741617000500")
	require.True(t, ok)
	assert.Equal(t, int64(1741617000500), got.UnixMilli())

	_, ok = ParseTime("")
	assert.False(t, ok)
	_, ok = ParseTime("not-a-time")
	assert.False(t, ok)
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, def, ParseTimeDefault("garbage", def))
	assert.Equal(t, def, ParseTimeDefault("", def))
	assert.NotEqual(t, def, ParseTimeDefault("2025-03-10T00:00:00Z", def))
}

func TestAlignFromTo(t *testing.T) {
	from := time.Date(2025, 3, 10, 14, 32, 17, 0, time.UTC)
	to := time.Date(2025, 3, 10, 15, 3, 44, 0, time.UTC)

	f, tt := AlignFromTo(from, to, "1s")
	assert.Equal(t, from, f)
	assert.Equal(t, to, tt)

	f, tt = AlignFromTo(from, to, "1m")
	assert.Equal(t, time.Date(2025, 3, 10, 14, 32, 0, 0, time.UTC), f)
	assert.Equal(t, time.Date(2025, 3, 10, 15, 3, 0, 0, time.UTC), tt)

	f, tt = AlignFromTo(from, to, "5m")
	assert.Equal(t, time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC), f)
	assert.Equal(t, time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC), tt)

	// unknown timeframes align to one minute
	f, _ = AlignFromTo(from, to, "1h")
	assert.Equal(t, time.Date(2025, 3, 10, 14, 32, 0, 0, time.UTC), f)
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", NormalizeSymbol("  btcusdt "))
	assert.Equal(t, "AAPL", NormalizeSymbol("AAPL"))
}
