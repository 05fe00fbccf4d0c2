package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_HorizonSanitization(t *testing.T) {
	def := NewDefaults()
	def.Horizons = []float64{3, 1, 1, 10.7}
	set := Resolve(def, nil, AdHoc{}, 1)
	assert.Equal(t, []int{1, 3, 10}, set.Horizons, "dedup, floor, sort")
}

func TestResolve_AROrderSanitization(t *testing.T) {
	def := NewDefaults()
	def.AROrders = []float64{2, 7, -1, 2.9}
	set := Resolve(def, nil, AdHoc{}, 1)
	assert.Equal(t, []int{2}, set.AROrders, "orders above 5 or below 1 are dropped")

	def.AROrders = []float64{0, 99}
	set = Resolve(def, nil, AdHoc{}, 1)
	assert.Equal(t, []int{1, 2}, set.AROrders, "fully invalid list falls back")
}

func TestResolve_BarsFromMinutes(t *testing.T) {
	def := NewDefaults()
	def.SigmaWinMin = 60

	set := Resolve(def, nil, AdHoc{}, 5)
	assert.Equal(t, 12, set.SigmaWin)

	// tiny windows still yield at least one bar
	def.SigmaShortWinMin = 0.01
	set = Resolve(def, nil, AdHoc{}, 5)
	assert.Equal(t, 1, set.SigmaShortWin)
}

func TestResolve_Strides(t *testing.T) {
	def := NewDefaults()
	def.Strides = map[string]string{ModelAR: "7", ModelClf: StrideAuto}
	set := Resolve(def, nil, AdHoc{}, 1)
	assert.Equal(t, 7, set.StrideAR, "literal passes through")
	assert.Equal(t, 30, set.StrideClf, "auto derives from target minutes / bar duration")

	// auto with coarser bars
	set = Resolve(def, nil, AdHoc{}, 5)
	assert.Equal(t, 6, set.StrideClf)

	// garbage resolves like auto, never below 1
	def.Strides = map[string]string{ModelAR: "zero", ModelClf: "0"}
	set = Resolve(def, nil, AdHoc{}, 1)
	assert.Equal(t, 20, set.StrideAR)
	assert.Equal(t, 1, set.StrideClf)
}

func TestResolve_OverridesMerge(t *testing.T) {
	def := NewDefaults()
	lr := 0.2
	enabled := false
	ov := &Overrides{
		Enabled: &enabled,
		ClfLR:   &lr,
		Strides: map[string]string{ModelAR: "3"},
	}
	set := Resolve(def, ov, AdHoc{}, 1)
	require.False(t, set.Enabled)
	assert.InDelta(t, 0.2, set.ClfLR, 1e-12)
	assert.Equal(t, 3, set.StrideAR, "stride map merges key-by-key")
	assert.Equal(t, 30, set.StrideClf, "unset stride key keeps default")
	assert.Equal(t, def.SigmaWinMin, 60.0, "defaults untouched by merge")
}

func TestResolve_AdHocFlags(t *testing.T) {
	def := NewDefaults()
	def.Enabled = false
	set := Resolve(def, nil, AdHoc{ForceEnable: true}, 1)
	assert.True(t, set.Enabled)

	def.Enabled = true
	set = Resolve(def, nil, AdHoc{ForceDisable: true}, 1)
	assert.False(t, set.Enabled, "disable wins over stored config")

	set = Resolve(def, nil, AdHoc{Verbose: true}, 1)
	assert.True(t, set.Verbose)
}

func TestResolve_ClampsHyperparameters(t *testing.T) {
	def := NewDefaults()
	def.KalmanResp = 99
	def.ClfSteps = -5
	def.ClfLR = 7
	def.SigmaFloor = 0
	set := Resolve(def, nil, AdHoc{}, 0) // invalid bar duration too

	assert.InDelta(t, 10.0, set.KalmanResp, 1e-12)
	assert.Equal(t, 1, set.ClfSteps)
	assert.InDelta(t, 1.0, set.ClfLR, 1e-12)
	assert.Greater(t, set.SigmaFloor, 0.0, "sigma floor must stay positive")
	assert.InDelta(t, 1.0, set.BarMinutes, 1e-12, "bad bar duration falls back to 1m")
}
