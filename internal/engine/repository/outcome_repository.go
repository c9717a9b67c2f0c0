package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stock-signal-engine/internal/entity"
)

// OutcomesRepository persists realized outcomes. Create is idempotent by
// prediction row: concurrent evaluators converge to one stored row and the
// first write wins.
type OutcomesRepository interface {
	Create(ctx context.Context, outcome *entity.Outcome) (*entity.Outcome, error)
	FindByPredictionRowID(ctx context.Context, predictionRowID int64) (*entity.Outcome, error)
}

type outcomesRepository struct {
	db *gorm.DB
}

// NewOutcomesRepository creates a new OutcomesRepository.
func NewOutcomesRepository(db *gorm.DB) OutcomesRepository {
	return &outcomesRepository{db: db}
}

// Create inserts the outcome and flips its prediction to EVALUATED in one
// transaction. When a row already exists the stored values are returned
// unchanged.
func (r *outcomesRepository) Create(ctx context.Context, outcome *entity.Outcome) (*entity.Outcome, error) {
	var stored entity.Outcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "prediction_row_id"}},
			DoNothing: true,
		}).Create(outcome)
		if result.Error != nil {
			return result.Error
		}

		if err := tx.Where("prediction_row_id = ?", outcome.PredictionRowID).First(&stored).Error; err != nil {
			return err
		}

		return tx.Model(&entity.Prediction{}).
			Where("id = ?", outcome.PredictionRowID).
			Update("evaluation_status", entity.EvaluationEvaluated).Error
	})
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return &stored, nil
}

func (r *outcomesRepository) FindByPredictionRowID(ctx context.Context, predictionRowID int64) (*entity.Outcome, error) {
	var outcome entity.Outcome
	if err := r.db.WithContext(ctx).Where("prediction_row_id = ?", predictionRowID).First(&outcome).Error; err != nil {
		return nil, classifyStoreError(err)
	}
	return &outcome, nil
}
