package entity

import (
	"time"

	"gorm.io/datatypes"
)

// SignalAction is the graded trading action produced by the decision policy.
type SignalAction string

const (
	ActionStrongBuy  SignalAction = "STRONG_BUY"
	ActionBuy        SignalAction = "BUY"
	ActionHold       SignalAction = "HOLD"
	ActionSell       SignalAction = "SELL"
	ActionStrongSell SignalAction = "STRONG_SELL"
)

// Direction returns the signed direction implied by the action:
// +1 for buys, -1 for sells, 0 for hold.
func (a SignalAction) Direction() int {
	switch a {
	case ActionBuy, ActionStrongBuy:
		return 1
	case ActionSell, ActionStrongSell:
		return -1
	default:
		return 0
	}
}

// IsBuy reports whether the action is BUY or STRONG_BUY.
func (a SignalAction) IsBuy() bool {
	return a == ActionBuy || a == ActionStrongBuy
}

// IsSell reports whether the action is SELL or STRONG_SELL.
func (a SignalAction) IsSell() bool {
	return a == ActionSell || a == ActionStrongSell
}

// EvaluationStatus tracks a prediction through the outcome lifecycle.
type EvaluationStatus string

const (
	EvaluationPending   EvaluationStatus = "PENDING"
	EvaluationEvaluated EvaluationStatus = "EVALUATED"
	EvaluationFailed    EvaluationStatus = "FAILED"
	EvaluationExpired   EvaluationStatus = "EXPIRED"
)

// Prediction is one persisted trade recommendation. At most one row exists
// per (stock_code, trade_date); the unique index is the concurrency boundary
// for competing writers.
type Prediction struct {
	ID                  int64            `json:"id" gorm:"primaryKey"`
	PredictionID        string           `json:"prediction_id" gorm:"uniqueIndex;not null"`
	StockCode           string           `json:"stock_code" gorm:"uniqueIndex:idx_predictions_symbol_date;not null"`
	TradeDate           time.Time        `json:"trade_date" gorm:"uniqueIndex:idx_predictions_symbol_date;type:date;not null"`
	PredictionTimestamp time.Time        `json:"prediction_timestamp" gorm:"not null"`
	Action              SignalAction     `json:"action" gorm:"not null"`
	Direction           int              `json:"direction" gorm:"not null"`
	Confidence          float64          `json:"confidence" gorm:"not null"`
	Magnitude           float64          `json:"magnitude" gorm:"not null"`
	TechnicalScore      float64          `json:"technical_score"`
	Regime              string           `json:"regime"`
	ModelVersion        string           `json:"model_version"`
	Breakdown           datatypes.JSON   `json:"breakdown" gorm:"type:jsonb"`
	Snapshot            datatypes.JSON   `json:"snapshot" gorm:"type:jsonb"`
	SnapshotTimestamp   time.Time        `json:"snapshot_timestamp" gorm:"not null"`
	EntryPrice          float64          `json:"entry_price"`
	EvaluateAfter       time.Time        `json:"evaluate_after" gorm:"not null"`
	EvaluationStatus    EvaluationStatus `json:"evaluation_status" gorm:"not null;default:PENDING"`
	CreatedAt           time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
	Outcome             *Outcome         `json:"outcome,omitempty" gorm:"foreignKey:PredictionRowID"`
}

func (Prediction) TableName() string {
	return "predictions"
}
