package dto

import "time"

// ChartResponse mirrors the Yahoo-style chart API used by the price source.
type ChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Candle is one price observation from the price source.
type Candle struct {
	Timestamp time.Time
	Close     float64
}

// MarketTrendResponse is the market context source payload: the aggregate
// sector trend in percent.
type MarketTrendResponse struct {
	TrendPct  float64   `json:"trend_pct"`
	AsOf      time.Time `json:"as_of"`
	IndexName string    `json:"index_name"`
}

// ModelPredictRequest is the model-server inference request.
type ModelPredictRequest struct {
	StockCode string             `json:"stock_code"`
	AsOf      time.Time          `json:"as_of"`
	Features  map[string]float64 `json:"features"`
}

// ModelPredictResponse is the model-server inference response.
type ModelPredictResponse struct {
	DirectionConfidence float64 `json:"direction_confidence"`
	Magnitude           float64 `json:"magnitude"`
	Version             string  `json:"version"`
}
