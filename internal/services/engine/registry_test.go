package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_SeriesLookup(t *testing.T) {
	e := New()
	set := testSettings()
	snap := e.Compute(testBars(150, 8), set, Env{SourceID: "t"})
	require.NotNil(t, snap)

	for _, path := range []string{
		"logp", "ret", "sigma", "sigma_short", "vol_ratio", "price_dev_z",
		"kalman.level", "kalman.slope", "kalman.slope_std", "kalman.slope_z",
		"drift.k1.mu_hat", "drift.k5.t_stat",
		"ar.ar1.mu_hat_k1", "ar.ar2.innov_z", "ar.ar1.stable", "ar.ar2.margin",
		"clf.k1.p_up", "clf.k5.entropy", "clf.k15.brier", "clf.k1.calib_ok",
		"flags.warm", "flags.kalman_ok", "flags.drift_ok",
	} {
		s, err := snap.Series(path)
		require.NoError(t, err, "path %q", path)
		assert.Len(t, s, snap.Bars, "path %q", path)
	}
}

func TestSnapshot_SeriesNotFound(t *testing.T) {
	e := New()
	snap := e.Compute(testBars(50, 8), testSettings(), Env{SourceID: "t"})
	require.NotNil(t, snap)

	_, err := snap.Series("kalman.bogus")
	assert.ErrorIs(t, err, ErrSeriesNotFound)
}

func TestSnapshot_SeriesNamesSorted(t *testing.T) {
	e := New()
	snap := e.Compute(testBars(50, 8), testSettings(), Env{SourceID: "t"})
	require.NotNil(t, snap)

	names := snap.SeriesNames()
	require.NotEmpty(t, names)
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
	assert.Contains(t, names, "clf.k1.conf_ok")
}
