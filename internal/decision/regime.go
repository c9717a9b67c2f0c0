package decision

import "math"

// MarketRegime classifies the overall market trend. It selects the threshold
// table used by the decision policy.
type MarketRegime string

const (
	RegimeBullish     MarketRegime = "BULLISH"
	RegimeWeakBullish MarketRegime = "WEAK_BULLISH"
	RegimeNeutral     MarketRegime = "NEUTRAL"
	RegimeWeakBearish MarketRegime = "WEAK_BEARISH"
	RegimeBearish     MarketRegime = "BEARISH"
	RegimeVolatile    MarketRegime = "VOLATILE"
)

// RegimeAssessment is the classified regime plus the confidence adjustments
// the policy applies under it.
type RegimeAssessment struct {
	Regime               MarketRegime
	TrendPct             float64
	ConfidenceMultiplier float64
	StressCap            float64 // 0 means no cap
}

// ClassifyRegime maps an aggregate sector trend percentage onto a market
// regime. A trend swing beyond the volatile threshold in either direction is
// treated as stressed conditions regardless of sign.
func ClassifyRegime(cfg EngineConfig, trendPct float64) RegimeAssessment {
	var regime MarketRegime
	switch {
	case math.Abs(trendPct) >= cfg.VolatileTrendPct:
		regime = RegimeVolatile
	case trendPct >= cfg.BullishTrendPct:
		regime = RegimeBullish
	case trendPct >= cfg.WeakBullishPct:
		regime = RegimeWeakBullish
	case trendPct <= cfg.BearishTrendPct:
		regime = RegimeBearish
	case trendPct <= cfg.WeakBearishPct:
		regime = RegimeWeakBearish
	default:
		regime = RegimeNeutral
	}

	params := cfg.ParamsFor(regime)
	return RegimeAssessment{
		Regime:               regime,
		TrendPct:             trendPct,
		ConfidenceMultiplier: params.ConfidenceMultiplier,
		StressCap:            params.StressCap,
	}
}
