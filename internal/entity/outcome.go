package entity

import "time"

// Outcome is the realized result linked 1:1 to a prediction. Writes are
// idempotent: the unique index on prediction_row_id guarantees concurrent
// evaluators converge to a single row.
type Outcome struct {
	ID              int64     `json:"id" gorm:"primaryKey"`
	OutcomeID       string    `json:"outcome_id" gorm:"uniqueIndex;not null"`
	PredictionRowID int64     `json:"prediction_row_id" gorm:"uniqueIndex;not null"`
	EntryPrice      float64   `json:"entry_price" gorm:"not null"`
	ExitPrice       float64   `json:"exit_price" gorm:"not null"`
	ActualReturn    float64   `json:"actual_return" gorm:"not null"`
	Success         bool      `json:"success" gorm:"not null"`
	EvaluatedAt     time.Time `json:"evaluated_at" gorm:"not null"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Outcome) TableName() string {
	return "outcomes"
}
