package repository

import (
	"context"
	"time"

	"stock-signal-engine/internal/entity"
	"stock-signal-engine/internal/scheduler/dto"

	"gorm.io/gorm"
)

// PredictionsRepository is the scheduler's read-only view over predictions
// and their outcomes, used by the report API.
type PredictionsRepository interface {
	Get(ctx context.Context, param dto.GetPredictionsParam) ([]entity.Prediction, error)
	GetEvaluatedSince(ctx context.Context, since time.Time) ([]entity.Prediction, error)
	CountByStatusSince(ctx context.Context, since time.Time) (map[entity.EvaluationStatus]int, error)
}

// NewPredictionsRepository creates a new read-only predictions repository.
func NewPredictionsRepository(db *gorm.DB) PredictionsRepository {
	return &predictionsRepository{db: db}
}

type predictionsRepository struct {
	db *gorm.DB
}

// Get retrieves predictions matching the filter, newest first, with their
// outcomes preloaded.
func (r *predictionsRepository) Get(ctx context.Context, param dto.GetPredictionsParam) ([]entity.Prediction, error) {
	query := r.db.WithContext(ctx).Preload("Outcome")

	if len(param.StockCodes) > 0 {
		query = query.Where("stock_code IN ?", param.StockCodes)
	}
	if len(param.Statuses) > 0 {
		query = query.Where("evaluation_status IN ?", param.Statuses)
	}
	if !param.Since.IsZero() {
		query = query.Where("prediction_timestamp >= ?", param.Since)
	}
	if param.Limit > 0 {
		query = query.Limit(param.Limit)
	}

	var predictions []entity.Prediction
	if err := query.Order("prediction_timestamp desc").Find(&predictions).Error; err != nil {
		return nil, err
	}
	return predictions, nil
}

// GetEvaluatedSince retrieves evaluated predictions with outcomes for the
// accuracy report.
func (r *predictionsRepository) GetEvaluatedSince(ctx context.Context, since time.Time) ([]entity.Prediction, error) {
	var predictions []entity.Prediction
	err := r.db.WithContext(ctx).
		Preload("Outcome").
		Where("evaluation_status = ?", entity.EvaluationEvaluated).
		Where("prediction_timestamp >= ?", since).
		Find(&predictions).Error
	if err != nil {
		return nil, err
	}
	return predictions, nil
}

// CountByStatusSince counts predictions per evaluation status in the window.
func (r *predictionsRepository) CountByStatusSince(ctx context.Context, since time.Time) (map[entity.EvaluationStatus]int, error) {
	var rows []struct {
		EvaluationStatus entity.EvaluationStatus
		Count            int
	}
	err := r.db.WithContext(ctx).
		Model(&entity.Prediction{}).
		Select("evaluation_status, count(*) as count").
		Where("prediction_timestamp >= ?", since).
		Group("evaluation_status").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[entity.EvaluationStatus]int, len(rows))
	for _, row := range rows {
		counts[row.EvaluationStatus] = row.Count
	}
	return counts, nil
}
