package decision

// Weights are the component weights of the confidence scorer. They are
// policy configuration, loaded from the engine config file; the defaults
// below are the tuned production values.
type Weights struct {
	Technical         float64 `mapstructure:"technical"`
	SentimentBase     float64 `mapstructure:"sentiment_base"`
	SentimentScale    float64 `mapstructure:"sentiment_scale"`
	SentimentCap      float64 `mapstructure:"sentiment_cap"`
	VolumeQuality     float64 `mapstructure:"volume_quality"`
	VolumeTrend       float64 `mapstructure:"volume_trend"`
	VolumeCorrelation float64 `mapstructure:"volume_correlation"`
	VolumeFloor       float64 `mapstructure:"volume_floor"`
	VolumeCap         float64 `mapstructure:"volume_cap"`
	RiskLowVol        float64 `mapstructure:"risk_low_vol"`
	RiskHighVol       float64 `mapstructure:"risk_high_vol"`
	MLFloor           float64 `mapstructure:"ml_floor"`
	MLCap             float64 `mapstructure:"ml_cap"`
}

// Thresholds are the regime-specific decision cutoffs.
type Thresholds struct {
	Buy                float64 `mapstructure:"buy"`
	Sell               float64 `mapstructure:"sell"`
	StrongMargin       float64 `mapstructure:"strong_margin"`
	MinTechScore       float64 `mapstructure:"min_tech_score"`
	StrongMinTechScore float64 `mapstructure:"strong_min_tech_score"`
	VolumeVetoLow      float64 `mapstructure:"volume_veto_low"`
	VolumeVetoHigh     float64 `mapstructure:"volume_veto_high"`
}

// RegimeParams bundles everything the policy needs for one market regime.
// Policy changes are edits to this table, not code branches.
type RegimeParams struct {
	ConfidenceMultiplier float64    `mapstructure:"confidence_multiplier"`
	StressCap            float64    `mapstructure:"stress_cap"` // 0 disables the cap
	Thresholds           Thresholds `mapstructure:"thresholds"`
}

// EngineConfig is the full policy configuration for scoring and decisions.
// It is constructed once at startup and passed explicitly; there is no
// ambient global state.
type EngineConfig struct {
	Weights            Weights                 `mapstructure:"weights"`
	Regimes            map[string]RegimeParams `mapstructure:"regimes"`
	ConfidenceFloor    float64                 `mapstructure:"confidence_floor"`
	ConfidenceCeiling  float64                 `mapstructure:"confidence_ceiling"`
	MagnitudeMax       float64                 `mapstructure:"magnitude_max"` // percent
	LowVolBandWidth    float64                 `mapstructure:"low_vol_band_width"`
	HighVolBandWidth   float64                 `mapstructure:"high_vol_band_width"`
	TrendClampAbs      float64                 `mapstructure:"trend_clamp_abs"`
	MLMagnitudeRef     float64                 `mapstructure:"ml_magnitude_ref"` // fractional move treated as full conviction
	BullishTrendPct    float64                 `mapstructure:"bullish_trend_pct"`
	WeakBullishPct     float64                 `mapstructure:"weak_bullish_trend_pct"`
	WeakBearishPct     float64                 `mapstructure:"weak_bearish_trend_pct"`
	BearishTrendPct    float64                 `mapstructure:"bearish_trend_pct"`
	VolatileTrendPct   float64                 `mapstructure:"volatile_trend_pct"`
	FailOnMissingModel bool                    `mapstructure:"fail_on_missing_model"`
	ModelVersion       string                  `mapstructure:"model_version"`
}

// DefaultEngineConfig returns the compiled-in policy values. The config file
// overrides any of them.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Weights: Weights{
			Technical:         0.45,
			SentimentBase:     0.08,
			SentimentScale:    0.30,
			SentimentCap:      0.30,
			VolumeQuality:     0.12,
			VolumeTrend:       0.50,
			VolumeCorrelation: 0.05,
			VolumeFloor:       0.05,
			VolumeCap:         0.25,
			RiskLowVol:        0.03,
			RiskHighVol:       -0.02,
			MLFloor:           0.02,
			MLCap:             0.12,
		},
		Regimes: map[string]RegimeParams{
			string(RegimeBullish): {
				ConfidenceMultiplier: 1.10,
				Thresholds: Thresholds{
					Buy: 0.58, Sell: 0.30, StrongMargin: 0.12,
					MinTechScore: 55, StrongMinTechScore: 70,
					VolumeVetoLow: -0.20, VolumeVetoHigh: 0.20,
				},
			},
			string(RegimeWeakBullish): {
				ConfidenceMultiplier: 1.05,
				Thresholds: Thresholds{
					Buy: 0.60, Sell: 0.32, StrongMargin: 0.13,
					MinTechScore: 58, StrongMinTechScore: 72,
					VolumeVetoLow: -0.18, VolumeVetoHigh: 0.18,
				},
			},
			string(RegimeNeutral): {
				ConfidenceMultiplier: 1.00,
				Thresholds: Thresholds{
					Buy: 0.62, Sell: 0.35, StrongMargin: 0.15,
					MinTechScore: 60, StrongMinTechScore: 75,
					VolumeVetoLow: -0.15, VolumeVetoHigh: 0.15,
				},
			},
			string(RegimeWeakBearish): {
				ConfidenceMultiplier: 0.95,
				Thresholds: Thresholds{
					Buy: 0.66, Sell: 0.38, StrongMargin: 0.15,
					MinTechScore: 65, StrongMinTechScore: 78,
					VolumeVetoLow: -0.12, VolumeVetoHigh: 0.12,
				},
			},
			string(RegimeBearish): {
				ConfidenceMultiplier: 0.90,
				Thresholds: Thresholds{
					Buy: 0.70, Sell: 0.42, StrongMargin: 0.15,
					MinTechScore: 70, StrongMinTechScore: 82,
					VolumeVetoLow: -0.10, VolumeVetoHigh: 0.10,
				},
			},
			string(RegimeVolatile): {
				ConfidenceMultiplier: 0.85,
				StressCap:            0.75,
				Thresholds: Thresholds{
					Buy: 0.68, Sell: 0.40, StrongMargin: 0.18,
					MinTechScore: 68, StrongMinTechScore: 80,
					VolumeVetoLow: -0.10, VolumeVetoHigh: 0.10,
				},
			},
		},
		ConfidenceFloor:   0.15,
		ConfidenceCeiling: 0.95,
		MagnitudeMax:      5.0,
		LowVolBandWidth:   0.04,
		HighVolBandWidth:  0.12,
		TrendClampAbs:     0.30,
		MLMagnitudeRef:    0.05,
		BullishTrendPct:   2.5,
		WeakBullishPct:    0.8,
		WeakBearishPct:    -0.8,
		BearishTrendPct:   -2.5,
		VolatileTrendPct:  4.0,
		ModelVersion:      "engine-v2",
	}
}

// ParamsFor returns the regime parameters for the given regime, falling back
// to NEUTRAL when the table has no entry.
func (c EngineConfig) ParamsFor(regime MarketRegime) RegimeParams {
	if p, ok := c.Regimes[string(regime)]; ok {
		return p
	}
	return c.Regimes[string(RegimeNeutral)]
}
