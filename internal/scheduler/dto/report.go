package dto

import (
	"encoding/json"
	"time"
)

// GetPredictionsParam filters prediction queries.
type GetPredictionsParam struct {
	StockCodes []string
	Statuses   []string
	Since      time.Time
	Limit      int
}

// PredictionResponse is the DTO for API responses containing one prediction
// and, when evaluated, its outcome.
type PredictionResponse struct {
	PredictionID        string           `json:"prediction_id"`
	StockCode           string           `json:"stock_code"`
	TradeDate           string           `json:"trade_date"`
	PredictionTimestamp time.Time        `json:"prediction_timestamp"`
	Action              string           `json:"action"`
	Direction           int              `json:"direction"`
	Confidence          float64          `json:"confidence"`
	Magnitude           float64          `json:"magnitude"`
	TechnicalScore      float64          `json:"technical_score"`
	Regime              string           `json:"regime"`
	ModelVersion        string           `json:"model_version"`
	Breakdown           json.RawMessage  `json:"breakdown"`
	EvaluationStatus    string           `json:"evaluation_status"`
	Outcome             *OutcomeResponse `json:"outcome,omitempty"`
}

// OutcomeResponse is the DTO for a realized outcome.
type OutcomeResponse struct {
	OutcomeID    string    `json:"outcome_id"`
	EntryPrice   float64   `json:"entry_price"`
	ExitPrice    float64   `json:"exit_price"`
	ActualReturn float64   `json:"actual_return"`
	Success      bool      `json:"success"`
	EvaluatedAt  time.Time `json:"evaluated_at"`
}

// ActionAccuracy is the hit rate for one action grade.
type ActionAccuracy struct {
	Evaluated int     `json:"evaluated"`
	Successes int     `json:"successes"`
	HitRate   float64 `json:"hit_rate"`
	AvgReturn float64 `json:"avg_return"`
}

// AccuracySummaryResponse aggregates prediction performance over a window.
type AccuracySummaryResponse struct {
	Since     time.Time                 `json:"since"`
	Total     int                       `json:"total"`
	Pending   int                       `json:"pending"`
	Evaluated int                       `json:"evaluated"`
	Failed    int                       `json:"failed"`
	Expired   int                       `json:"expired"`
	Successes int                       `json:"successes"`
	HitRate   float64                   `json:"hit_rate"`
	AvgReturn float64                   `json:"avg_return"`
	ByAction  map[string]ActionAccuracy `json:"by_action"`
}
