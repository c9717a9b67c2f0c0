package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRegime(t *testing.T) {
	cfg := DefaultEngineConfig()

	tests := []struct {
		trendPct float64
		want     MarketRegime
	}{
		{5.0, RegimeVolatile},
		{-4.5, RegimeVolatile},
		{4.0, RegimeVolatile},
		{3.0, RegimeBullish},
		{2.5, RegimeBullish},
		{1.5, RegimeWeakBullish},
		{0.8, RegimeWeakBullish},
		{0.0, RegimeNeutral},
		{-0.5, RegimeNeutral},
		{-1.2, RegimeWeakBearish},
		{-2.5, RegimeBearish},
		{-3.9, RegimeBearish},
	}

	for _, tt := range tests {
		got := ClassifyRegime(cfg, tt.trendPct)
		assert.Equal(t, tt.want, got.Regime, "trend %.1f%%", tt.trendPct)
		assert.Equal(t, tt.trendPct, got.TrendPct)
	}
}

func TestClassifyRegime_CarriesRegimeParams(t *testing.T) {
	cfg := DefaultEngineConfig()

	volatile := ClassifyRegime(cfg, 4.5)
	assert.InDelta(t, 0.85, volatile.ConfidenceMultiplier, 1e-9)
	assert.InDelta(t, 0.75, volatile.StressCap, 1e-9)

	neutral := ClassifyRegime(cfg, 0)
	assert.InDelta(t, 1.0, neutral.ConfidenceMultiplier, 1e-9)
	assert.Zero(t, neutral.StressCap)
}

func TestParamsFor_FallsBackToNeutral(t *testing.T) {
	cfg := DefaultEngineConfig()
	delete(cfg.Regimes, string(RegimeBearish))

	params := cfg.ParamsFor(RegimeBearish)
	assert.Equal(t, cfg.Regimes[string(RegimeNeutral)], params)
}
