package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stock-signal-engine/internal/entity"
	"stock-signal-engine/pkg/utils"
)

// DuplicatePolicy controls what happens when a second prediction arrives for
// the same (symbol, trade date) key.
type DuplicatePolicy string

const (
	// DuplicateReject refuses the conflicting write with ErrDuplicate.
	DuplicateReject DuplicatePolicy = "reject"
	// DuplicateUpsert replaces the decision columns of the existing row.
	DuplicateUpsert DuplicatePolicy = "upsert"
)

// PredictionsRepository is the persistence boundary for predictions. The
// unique index on (stock_code, trade_date) makes it safe for concurrent
// writers; either policy guarantees at most one row per key.
type PredictionsRepository interface {
	Create(ctx context.Context, prediction *entity.Prediction) error
	FindByRowID(ctx context.Context, id int64) (*entity.Prediction, error)
	FindDue(ctx context.Context, now time.Time, maxLookback time.Duration) ([]entity.Prediction, error)
	MarkExpired(ctx context.Context, now time.Time, maxLookback time.Duration) (int64, error)
	UpdateEvaluationStatus(ctx context.Context, id int64, status entity.EvaluationStatus) error
}

type predictionsRepository struct {
	db               *gorm.DB
	leakageTolerance time.Duration
	duplicatePolicy  DuplicatePolicy
}

// NewPredictionsRepository creates a new PredictionsRepository.
func NewPredictionsRepository(db *gorm.DB, leakageTolerance time.Duration, duplicatePolicy DuplicatePolicy) PredictionsRepository {
	return &predictionsRepository{
		db:               db,
		leakageTolerance: leakageTolerance,
		duplicatePolicy:  duplicatePolicy,
	}
}

// Create persists one prediction. A snapshot timestamped after the decision
// point plus tolerance is refused with ErrLeakage before touching storage.
func (r *predictionsRepository) Create(ctx context.Context, prediction *entity.Prediction) error {
	if prediction.SnapshotTimestamp.After(prediction.PredictionTimestamp.Add(r.leakageTolerance)) {
		return fmt.Errorf("%w: snapshot %s vs prediction %s (tolerance %s)",
			ErrLeakage,
			prediction.SnapshotTimestamp.Format(time.RFC3339),
			prediction.PredictionTimestamp.Format(time.RFC3339),
			r.leakageTolerance)
	}

	prediction.TradeDate = utils.TradeDate(prediction.PredictionTimestamp)

	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_code"}, {Name: "trade_date"}},
		DoNothing: true,
	}
	if r.duplicatePolicy == DuplicateUpsert {
		conflict.DoNothing = false
		conflict.DoUpdates = clause.AssignmentColumns([]string{
			"prediction_timestamp", "action", "direction", "confidence", "magnitude",
			"technical_score", "regime", "model_version", "breakdown", "snapshot",
			"snapshot_timestamp", "entry_price", "evaluate_after", "updated_at",
		})
	}

	result := r.db.WithContext(ctx).Clauses(conflict).Create(prediction)
	if result.Error != nil {
		return classifyStoreError(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s on %s", ErrDuplicate, prediction.StockCode, prediction.TradeDate.Format("2006-01-02"))
	}
	return nil
}

func (r *predictionsRepository) FindByRowID(ctx context.Context, id int64) (*entity.Prediction, error) {
	var prediction entity.Prediction
	if err := r.db.WithContext(ctx).Preload("Outcome").First(&prediction, id).Error; err != nil {
		return nil, classifyStoreError(err)
	}
	return &prediction, nil
}

// FindDue returns predictions whose horizon has elapsed, that are still
// inside the lookback window, and that have no outcome yet. FAILED rows are
// included so the next scan retries them.
func (r *predictionsRepository) FindDue(ctx context.Context, now time.Time, maxLookback time.Duration) ([]entity.Prediction, error) {
	var predictions []entity.Prediction
	err := r.db.WithContext(ctx).
		Where("evaluation_status IN ?", []entity.EvaluationStatus{entity.EvaluationPending, entity.EvaluationFailed}).
		Where("evaluate_after <= ?", now).
		Where("prediction_timestamp >= ?", now.Add(-maxLookback)).
		Order("evaluate_after ASC").
		Find(&predictions).Error
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return predictions, nil
}

// MarkExpired permanently skips predictions that fell out of the lookback
// window without an outcome. Returns the number of rows expired.
func (r *predictionsRepository) MarkExpired(ctx context.Context, now time.Time, maxLookback time.Duration) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.Prediction{}).
		Where("evaluation_status IN ?", []entity.EvaluationStatus{entity.EvaluationPending, entity.EvaluationFailed}).
		Where("prediction_timestamp < ?", now.Add(-maxLookback)).
		Update("evaluation_status", entity.EvaluationExpired)
	if result.Error != nil {
		return 0, classifyStoreError(result.Error)
	}
	return result.RowsAffected, nil
}

func (r *predictionsRepository) UpdateEvaluationStatus(ctx context.Context, id int64, status entity.EvaluationStatus) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Prediction{}).
		Where("id = ?", id).
		Update("evaluation_status", status)
	if result.Error != nil {
		return classifyStoreError(result.Error)
	}
	return nil
}
