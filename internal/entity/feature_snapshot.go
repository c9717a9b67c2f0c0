package entity

import "time"

// FeatureSnapshot is the immutable bundle of sentiment, technical and volume
// features for one symbol at one instant. It is produced by the external
// collector and never mutated by the engine; the copy stored on a prediction
// is for audit only.
type FeatureSnapshot struct {
	StockCode              string    `json:"stock_code"`
	Timestamp              time.Time `json:"timestamp"`
	SentimentScore         float64   `json:"sentiment_score"`      // -1..1
	SentimentConfidence    float64   `json:"sentiment_confidence"` // 0..1
	NewsCount              int       `json:"news_count"`
	RSI                    float64   `json:"rsi"` // 0..100
	MACDLine               float64   `json:"macd_line"`
	BollingerUpper         float64   `json:"bollinger_upper"`
	BollingerLower         float64   `json:"bollinger_lower"`
	SMA20                  float64   `json:"sma_20"`
	SMA50                  float64   `json:"sma_50"`
	VolumeTrend            float64   `json:"volume_trend"`   // signed fraction, e.g. +0.10 = 10% above baseline
	VolumeQuality          float64   `json:"volume_quality"` // 0..1
	PriceVolumeCorrelation float64   `json:"price_volume_correlation"`
	CurrentPrice           float64   `json:"current_price"`
}

// RelativeBandWidth returns the Bollinger band width as a fraction of the
// current price, used as the volatility proxy for the risk component.
func (s *FeatureSnapshot) RelativeBandWidth() float64 {
	if s.CurrentPrice <= 0 {
		return 0
	}
	return (s.BollingerUpper - s.BollingerLower) / s.CurrentPrice
}
