package dto

// StreamDataOutcomeEvaluate is the payload published per due prediction on
// the outcome.evaluate stream. Evaluation is idempotent by prediction row,
// so redelivery is harmless.
type StreamDataOutcomeEvaluate struct {
	PredictionRowID int64  `json:"prediction_row_id"`
	StockCode       string `json:"stock_code"`
}
