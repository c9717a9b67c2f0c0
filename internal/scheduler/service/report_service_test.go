package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-signal-engine/internal/entity"
	"stock-signal-engine/internal/scheduler/dto"
	"stock-signal-engine/pkg/logger"
)

type fakePredictionsRepo struct {
	predictions []entity.Prediction
	counts      map[entity.EvaluationStatus]int
}

func (f *fakePredictionsRepo) Get(_ context.Context, param dto.GetPredictionsParam) ([]entity.Prediction, error) {
	if param.Limit > 0 && param.Limit < len(f.predictions) {
		return f.predictions[:param.Limit], nil
	}
	return f.predictions, nil
}

func (f *fakePredictionsRepo) GetEvaluatedSince(_ context.Context, _ time.Time) ([]entity.Prediction, error) {
	var evaluated []entity.Prediction
	for _, p := range f.predictions {
		if p.EvaluationStatus == entity.EvaluationEvaluated {
			evaluated = append(evaluated, p)
		}
	}
	return evaluated, nil
}

func (f *fakePredictionsRepo) CountByStatusSince(_ context.Context, _ time.Time) (map[entity.EvaluationStatus]int, error) {
	return f.counts, nil
}

func evaluatedPrediction(id int64, action entity.SignalAction, actualReturn float64, success bool) entity.Prediction {
	return entity.Prediction{
		ID:               id,
		PredictionID:     "pred",
		StockCode:        "BBCA",
		Action:           action,
		Direction:        action.Direction(),
		EvaluationStatus: entity.EvaluationEvaluated,
		Outcome: &entity.Outcome{
			PredictionRowID: id,
			ActualReturn:    actualReturn,
			Success:         success,
		},
	}
}

func TestGetAccuracySummary(t *testing.T) {
	repo := &fakePredictionsRepo{
		predictions: []entity.Prediction{
			evaluatedPrediction(1, entity.ActionBuy, 0.03, true),
			evaluatedPrediction(2, entity.ActionBuy, -0.02, false),
			evaluatedPrediction(3, entity.ActionSell, -0.04, true),
			evaluatedPrediction(4, entity.ActionHold, 0.001, true),
		},
		counts: map[entity.EvaluationStatus]int{
			entity.EvaluationEvaluated: 4,
			entity.EvaluationPending:   2,
			entity.EvaluationFailed:    1,
			entity.EvaluationExpired:   1,
		},
	}

	svc := NewReportService(repo, logger.NewNop())

	summary, err := svc.GetAccuracySummary(context.Background(), time.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 8, summary.Total)
	assert.Equal(t, 4, summary.Evaluated)
	assert.Equal(t, 2, summary.Pending)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Expired)
	assert.Equal(t, 3, summary.Successes)
	assert.InDelta(t, 0.75, summary.HitRate, 1e-9)
	// (0.03 - 0.02 - 0.04 + 0.001) / 4
	assert.InDelta(t, -0.007250, summary.AvgReturn, 1e-9)

	buy := summary.ByAction[string(entity.ActionBuy)]
	assert.Equal(t, 2, buy.Evaluated)
	assert.Equal(t, 1, buy.Successes)
	assert.InDelta(t, 0.5, buy.HitRate, 1e-9)
	assert.InDelta(t, 0.005, buy.AvgReturn, 1e-9)

	sell := summary.ByAction[string(entity.ActionSell)]
	assert.Equal(t, 1, sell.Evaluated)
	assert.InDelta(t, 1.0, sell.HitRate, 1e-9)
}

func TestGetAccuracySummary_EmptyWindow(t *testing.T) {
	repo := &fakePredictionsRepo{counts: map[entity.EvaluationStatus]int{}}
	svc := NewReportService(repo, logger.NewNop())

	summary, err := svc.GetAccuracySummary(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Zero(t, summary.Total)
	assert.Zero(t, summary.HitRate)
	assert.Empty(t, summary.ByAction)
}

func TestGetPredictions_IncludesOutcome(t *testing.T) {
	repo := &fakePredictionsRepo{
		predictions: []entity.Prediction{
			evaluatedPrediction(1, entity.ActionBuy, 0.03, true),
			{ID: 2, PredictionID: "p2", StockCode: "BBRI", Action: entity.ActionHold, EvaluationStatus: entity.EvaluationPending},
		},
	}
	svc := NewReportService(repo, logger.NewNop())

	responses, err := svc.GetPredictions(context.Background(), dto.GetPredictionsParam{})
	require.NoError(t, err)
	require.Len(t, responses, 2)

	require.NotNil(t, responses[0].Outcome)
	assert.InDelta(t, 0.03, responses[0].Outcome.ActualReturn, 1e-9)
	assert.Nil(t, responses[1].Outcome)
	assert.Equal(t, string(entity.EvaluationPending), responses[1].EvaluationStatus)
}
