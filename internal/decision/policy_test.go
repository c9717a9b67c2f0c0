package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-signal-engine/internal/entity"
)

func neutralRegime(cfg EngineConfig) RegimeAssessment {
	return ClassifyRegime(cfg, 0)
}

func TestDecide_NeutralBuy(t *testing.T) {
	cfg := DefaultEngineConfig()
	score, err := Score(cfg, bullishSnapshot(), nil)
	require.NoError(t, err)

	decision, err := Decide(cfg, score, neutralRegime(cfg), 0.10)
	require.NoError(t, err)

	// preliminary 0.6955 * 1.0 clears the 0.62 neutral buy threshold with
	// tech score 85 > 60, but misses the 0.77 strong margin.
	assert.Equal(t, entity.ActionBuy, decision.Action)
	assert.Equal(t, 1, decision.Direction)
	assert.InDelta(t, 0.6955, decision.Confidence, 1e-9)
	assert.GreaterOrEqual(t, decision.Confidence, 0.60)
	assert.LessOrEqual(t, decision.Confidence, 0.75)
	assert.False(t, decision.Vetoed)
}

func TestDecide_VolumeVetoForcesHold(t *testing.T) {
	cfg := DefaultEngineConfig()

	// Pump sentiment so confidence clears the buy threshold even after the
	// volume component collapses to its floor.
	s := bullishSnapshot()
	s.SentimentScore = 0.9
	s.SentimentConfidence = 0.9
	s.VolumeTrend = -0.50

	score, err := Score(cfg, s, nil)
	require.NoError(t, err)

	// technical 0.3825 + sentiment capped 0.30 + volume floor 0.05 = 0.7325
	require.Greater(t, score.Preliminary, cfg.ParamsFor(RegimeNeutral).Thresholds.Buy)

	decision, err := Decide(cfg, score, neutralRegime(cfg), s.VolumeTrend)
	require.NoError(t, err)

	assert.Equal(t, entity.ActionHold, decision.Action)
	assert.Equal(t, 0, decision.Direction)
	assert.True(t, decision.Vetoed)
	assert.Zero(t, decision.Magnitude)
}

func TestDecide_VetoIsAbsolute(t *testing.T) {
	cfg := DefaultEngineConfig()
	th := cfg.ParamsFor(RegimeNeutral).Thresholds

	// No preliminary confidence, however high, survives a volume trend
	// below the veto line.
	for _, preliminary := range []float64{0.3, 0.5, 0.7, 0.9, 1.2, 2.0} {
		score := &ScoreResult{TechnicalScore: 95, Preliminary: preliminary}
		decision, err := Decide(cfg, score, neutralRegime(cfg), th.VolumeVetoLow-0.01)
		require.NoError(t, err)
		assert.NotContains(t, []entity.SignalAction{entity.ActionBuy, entity.ActionStrongBuy}, decision.Action,
			"preliminary %.2f must not survive the veto", preliminary)
	}
}

func TestDecide_StrongBuyPromotion(t *testing.T) {
	cfg := DefaultEngineConfig()
	s := bullishSnapshot()
	s.SentimentScore = 0.9
	s.SentimentConfidence = 0.9

	score, err := Score(cfg, s, nil)
	require.NoError(t, err)

	// 0.3825 + 0.30 + 0.161 = 0.8435 > 0.62 + 0.15 with tech 85 > 75.
	decision, err := Decide(cfg, score, neutralRegime(cfg), s.VolumeTrend)
	require.NoError(t, err)

	assert.Equal(t, entity.ActionStrongBuy, decision.Action)
	assert.Equal(t, 1, decision.Direction)
}

func TestDecide_StrongSellPromotion(t *testing.T) {
	cfg := DefaultEngineConfig()

	// Fully bearish snapshot: tech score 0, weak sentiment, thin volume.
	s := bullishSnapshot()
	s.RSI = 75
	s.MACDLine = -0.8
	s.CurrentPrice = 90
	s.BollingerUpper = 98
	s.BollingerLower = 86
	s.SMA20 = 95
	s.SMA50 = 100
	s.SentimentScore = -0.6
	s.VolumeTrend = -0.10
	s.VolumeQuality = 0.3
	s.PriceVolumeCorrelation = -0.2

	score, err := Score(cfg, s, nil)
	require.NoError(t, err)

	decision, err := Decide(cfg, score, neutralRegime(cfg), s.VolumeTrend)
	require.NoError(t, err)

	// Preliminary clamps up to the 0.15 floor, far under sell 0.35 and the
	// 0.20 strong margin, with tech 0 < 25.
	assert.Equal(t, entity.ActionStrongSell, decision.Action)
	assert.Equal(t, -1, decision.Direction)
	assert.InDelta(t, cfg.ConfidenceFloor, decision.Confidence, 1e-9)
}

func TestDecide_ConfidenceClamped(t *testing.T) {
	cfg := DefaultEngineConfig()

	high := &ScoreResult{TechnicalScore: 90, Preliminary: 2.0}
	decision, err := Decide(cfg, high, neutralRegime(cfg), 0.2)
	require.NoError(t, err)
	assert.InDelta(t, cfg.ConfidenceCeiling, decision.Confidence, 1e-9)

	low := &ScoreResult{TechnicalScore: 50, Preliminary: 0.01}
	decision, err = Decide(cfg, low, neutralRegime(cfg), 0.0)
	require.NoError(t, err)
	assert.InDelta(t, cfg.ConfidenceFloor, decision.Confidence, 1e-9)
}

func TestDecide_StressCapAppliesInVolatileRegime(t *testing.T) {
	cfg := DefaultEngineConfig()
	regime := ClassifyRegime(cfg, 5.0)
	require.Equal(t, RegimeVolatile, regime.Regime)

	score := &ScoreResult{TechnicalScore: 90, Preliminary: 1.0}
	decision, err := Decide(cfg, score, regime, 0.2)
	require.NoError(t, err)

	// 1.0 * 0.85 = 0.85 is capped by the 0.75 stress cap.
	assert.InDelta(t, 0.75, decision.Confidence, 1e-9)
}

func TestDecide_RegimeMultiplierShiftsOutcome(t *testing.T) {
	cfg := DefaultEngineConfig()
	score, err := Score(cfg, bullishSnapshot(), nil)
	require.NoError(t, err)

	// 0.6955 * 0.90 = 0.62595 misses the 0.70 bearish buy threshold: the
	// same snapshot that buys in a neutral tape holds in a bearish one.
	bearish := ClassifyRegime(cfg, -3.0)
	decision, err := Decide(cfg, score, bearish, 0.10)
	require.NoError(t, err)
	assert.Equal(t, entity.ActionHold, decision.Action)
}

func TestDecide_MagnitudeBounded(t *testing.T) {
	cfg := DefaultEngineConfig()

	for _, tc := range []struct {
		tech        float64
		preliminary float64
		trend       float64
	}{
		{95, 1.5, 0.3},
		{85, 0.70, 0.1},
		{10, 0.05, -0.05},
		{50, 0.40, 0.0},
	} {
		score := &ScoreResult{TechnicalScore: tc.tech, Preliminary: tc.preliminary}
		decision, err := Decide(cfg, score, neutralRegime(cfg), tc.trend)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, decision.Magnitude, 0.0)
		assert.LessOrEqual(t, decision.Magnitude, cfg.MagnitudeMax)
		if decision.Action == entity.ActionHold {
			assert.Zero(t, decision.Magnitude)
		} else {
			assert.Greater(t, decision.Magnitude, 0.0)
		}
	}
}

func TestDecide_DirectionAlwaysAgreesWithAction(t *testing.T) {
	cfg := DefaultEngineConfig()

	regimes := []float64{5.0, 3.0, 1.5, 0, -1.2, -3.0, -4.5}
	for _, trendPct := range regimes {
		regime := ClassifyRegime(cfg, trendPct)
		for tech := 0.0; tech <= 100; tech += 10 {
			for preliminary := 0.0; preliminary <= 1.2; preliminary += 0.1 {
				for _, volTrend := range []float64{-0.5, -0.1, 0, 0.1, 0.5} {
					score := &ScoreResult{TechnicalScore: tech, Preliminary: preliminary}
					decision, err := Decide(cfg, score, regime, volTrend)
					require.NoError(t, err)
					assert.Equal(t, decision.Action.Direction(), decision.Direction)
				}
			}
		}
	}
}
