package decision

import (
	"fmt"
	"time"

	"stock-signal-engine/internal/entity"
	"stock-signal-engine/pkg/utils"
)

// ConfidenceBreakdown holds the named components that sum to the preliminary
// confidence. It is persisted verbatim next to the prediction for audit and
// never mutated after creation.
type ConfidenceBreakdown struct {
	Technical float64  `json:"technical"`
	Sentiment float64  `json:"sentiment"`
	Volume    float64  `json:"volume"`
	Risk      float64  `json:"risk"`
	ML        *float64 `json:"ml,omitempty"`
}

// Sum returns the unclamped preliminary confidence.
func (b ConfidenceBreakdown) Sum() float64 {
	total := b.Technical + b.Sentiment + b.Volume + b.Risk
	if b.ML != nil {
		total += *b.ML
	}
	return total
}

// MLSignal is the optional trained-model contribution, consumed through the
// model server client. Magnitude is the expected absolute move as a fraction.
type MLSignal struct {
	DirectionConfidence float64
	Magnitude           float64
	Version             string
}

// ScoreResult is the scorer output: the derived technical score, the
// component breakdown and their unclamped sum.
type ScoreResult struct {
	TechnicalScore float64
	Breakdown      ConfidenceBreakdown
	Preliminary    float64
}

// ValidateSnapshot rejects snapshots with missing or out-of-range fields
// before anything is scored.
func ValidateSnapshot(s *entity.FeatureSnapshot) error {
	if s == nil {
		return fmt.Errorf("%w: snapshot is nil", ErrValidation)
	}
	if s.StockCode == "" {
		return fmt.Errorf("%w: stock code is empty", ErrValidation)
	}
	if s.Timestamp.IsZero() || s.Timestamp.Equal(time.Time{}) {
		return fmt.Errorf("%w: timestamp is zero", ErrValidation)
	}
	if s.CurrentPrice <= 0 {
		return fmt.Errorf("%w: current price %.4f must be positive", ErrValidation, s.CurrentPrice)
	}
	if s.RSI < 0 || s.RSI > 100 {
		return fmt.Errorf("%w: rsi %.2f out of range [0,100]", ErrValidation, s.RSI)
	}
	if s.SentimentScore < -1 || s.SentimentScore > 1 {
		return fmt.Errorf("%w: sentiment score %.2f out of range [-1,1]", ErrValidation, s.SentimentScore)
	}
	if s.SentimentConfidence < 0 || s.SentimentConfidence > 1 {
		return fmt.Errorf("%w: sentiment confidence %.2f out of range [0,1]", ErrValidation, s.SentimentConfidence)
	}
	if s.VolumeQuality < 0 || s.VolumeQuality > 1 {
		return fmt.Errorf("%w: volume quality %.2f out of range [0,1]", ErrValidation, s.VolumeQuality)
	}
	if s.PriceVolumeCorrelation < -1 || s.PriceVolumeCorrelation > 1 {
		return fmt.Errorf("%w: price/volume correlation %.2f out of range [-1,1]", ErrValidation, s.PriceVolumeCorrelation)
	}
	if s.NewsCount < 0 {
		return fmt.Errorf("%w: news count %d is negative", ErrValidation, s.NewsCount)
	}
	if s.BollingerUpper < s.BollingerLower {
		return fmt.Errorf("%w: bollinger bands inverted", ErrValidation)
	}
	return nil
}

// TechnicalScore derives a 0..100 bullish-conviction score from the
// agreement of RSI, MACD and moving averages. 50 is neutral.
func TechnicalScore(s *entity.FeatureSnapshot) float64 {
	score := 50.0

	// RSI: oversold argues for a rebound, overbought against one.
	switch {
	case s.RSI <= 30:
		score += 15
	case s.RSI <= 45:
		score += 8
	case s.RSI >= 70:
		score -= 15
	case s.RSI >= 55:
		score -= 8
	}

	// MACD line sign.
	if s.MACDLine > 0 {
		score += 15
	} else if s.MACDLine < 0 {
		score -= 15
	}

	// Moving-average structure.
	if s.CurrentPrice > s.SMA20 {
		score += 10
	} else if s.CurrentPrice < s.SMA20 {
		score -= 10
	}
	if s.SMA20 > s.SMA50 {
		score += 10
	} else if s.SMA20 < s.SMA50 {
		score -= 10
	}

	return utils.Clamp(score, 0, 100)
}

// Score combines the weighted signal components into a confidence breakdown
// and its unclamped sum. It is a pure function: the same snapshot, model
// signal and configuration always produce the same result.
//
// When cfg.FailOnMissingModel is false a nil ml degrades gracefully to
// heuristics-only scoring and the ML component is omitted.
func Score(cfg EngineConfig, s *entity.FeatureSnapshot, ml *MLSignal) (*ScoreResult, error) {
	if err := ValidateSnapshot(s); err != nil {
		return nil, err
	}
	if ml == nil && cfg.FailOnMissingModel {
		return nil, fmt.Errorf("%w: fail_on_missing_model is enabled", ErrModelUnavailable)
	}

	w := cfg.Weights
	techScore := TechnicalScore(s)

	breakdown := ConfidenceBreakdown{
		Technical: (techScore / 100.0) * w.Technical,
		Sentiment: utils.Clamp(
			w.SentimentBase+s.SentimentScore*s.SentimentConfidence*w.SentimentScale,
			0, w.SentimentCap,
		),
		// The volume floor is strictly positive so a market-wide volume
		// contraction cannot zero the component and force HOLD.
		Volume: utils.Clamp(
			s.VolumeQuality*w.VolumeQuality+
				utils.Clamp(s.VolumeTrend, -cfg.TrendClampAbs, cfg.TrendClampAbs)*w.VolumeTrend+
				max(0, s.PriceVolumeCorrelation*w.VolumeCorrelation),
			w.VolumeFloor, w.VolumeCap,
		),
		Risk: riskAdjustment(cfg, s),
	}

	if ml != nil {
		conviction := ml.DirectionConfidence * utils.Clamp(ml.Magnitude/cfg.MLMagnitudeRef, 0, 1)
		mlComponent := w.MLFloor + conviction*(w.MLCap-w.MLFloor)
		breakdown.ML = &mlComponent
	}

	return &ScoreResult{
		TechnicalScore: techScore,
		Breakdown:      breakdown,
		Preliminary:    breakdown.Sum(),
	}, nil
}

// riskAdjustment buckets volatility by relative Bollinger band width: calm
// tape earns a small bonus, stressed tape a small penalty.
func riskAdjustment(cfg EngineConfig, s *entity.FeatureSnapshot) float64 {
	width := s.RelativeBandWidth()
	switch {
	case width > 0 && width < cfg.LowVolBandWidth:
		return cfg.Weights.RiskLowVol
	case width > cfg.HighVolBandWidth:
		return cfg.Weights.RiskHighVol
	default:
		return 0
	}
}
