package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-signal-engine/internal/engine/config"
	"stock-signal-engine/internal/engine/dto"
	"stock-signal-engine/internal/engine/repository"
	"stock-signal-engine/internal/entity"
	"stock-signal-engine/pkg/logger"
	"stock-signal-engine/pkg/retry"
)

type fakePredictionsRepo struct {
	predictions   map[int64]*entity.Prediction
	statusUpdates []entity.EvaluationStatus
	createErrs    []error
	created       []*entity.Prediction
}

func (f *fakePredictionsRepo) Create(_ context.Context, p *entity.Prediction) error {
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	f.created = append(f.created, p)
	return nil
}

func (f *fakePredictionsRepo) FindByRowID(_ context.Context, id int64) (*entity.Prediction, error) {
	p, ok := f.predictions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakePredictionsRepo) FindDue(_ context.Context, _ time.Time, _ time.Duration) ([]entity.Prediction, error) {
	return nil, nil
}

func (f *fakePredictionsRepo) MarkExpired(_ context.Context, _ time.Time, _ time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakePredictionsRepo) UpdateEvaluationStatus(_ context.Context, id int64, status entity.EvaluationStatus) error {
	f.statusUpdates = append(f.statusUpdates, status)
	if p, ok := f.predictions[id]; ok {
		p.EvaluationStatus = status
	}
	return nil
}

type fakeOutcomesRepo struct {
	stored      map[int64]*entity.Outcome
	createCalls int
	createErr   error
}

func (f *fakeOutcomesRepo) Create(_ context.Context, outcome *entity.Outcome) (*entity.Outcome, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if existing, ok := f.stored[outcome.PredictionRowID]; ok {
		return existing, nil
	}
	if f.stored == nil {
		f.stored = make(map[int64]*entity.Outcome)
	}
	f.stored[outcome.PredictionRowID] = outcome
	return outcome, nil
}

func (f *fakeOutcomesRepo) FindByPredictionRowID(_ context.Context, id int64) (*entity.Outcome, error) {
	if o, ok := f.stored[id]; ok {
		return o, nil
	}
	return nil, repository.ErrNotFound
}

type fakePriceRepo struct {
	prices map[string]float64 // keyed by "CODE@unix"
	err    error
}

func (f *fakePriceRepo) GetPriceAt(_ context.Context, stockCode string, at time.Time) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if price, ok := f.prices[priceKey(stockCode, at)]; ok {
		return price, nil
	}
	return 0, repository.ErrPriceUnavailable
}

func priceKey(code string, at time.Time) string {
	return fmt.Sprintf("%s@%d", code, at.Unix())
}

func evaluatorConfig() *config.Config {
	return &config.Config{
		Engine: config.Engine{
			EvaluationHorizon: 4 * time.Hour,
			MaxLookback:       72 * time.Hour,
			SuccessEpsilon:    0.002,
			StoreRetry:        retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
		},
	}
}

func pendingPrediction(id int64, action entity.SignalAction, entryPrice float64) *entity.Prediction {
	ts := time.Date(2026, 8, 20, 3, 0, 0, 0, time.UTC)
	return &entity.Prediction{
		ID:                  id,
		PredictionID:        fmt.Sprintf("pred-%d", id),
		StockCode:           "BBCA",
		PredictionTimestamp: ts,
		Action:              action,
		Direction:           action.Direction(),
		EntryPrice:          entryPrice,
		EvaluateAfter:       ts.Add(4 * time.Hour),
		EvaluationStatus:    entity.EvaluationPending,
	}
}

func newEvaluator(cfg *config.Config, predRepo *fakePredictionsRepo, outRepo *fakeOutcomesRepo, priceRepo *fakePriceRepo) OutcomeEvaluatorService {
	return NewOutcomeEvaluatorService(cfg, logger.NewNop(), nil, predRepo, outRepo, priceRepo)
}

func TestEvaluate_RecordsSuccessfulBuyOutcome(t *testing.T) {
	pred := pendingPrediction(1, entity.ActionBuy, 100)
	predRepo := &fakePredictionsRepo{predictions: map[int64]*entity.Prediction{1: pred}}
	outRepo := &fakeOutcomesRepo{}
	priceRepo := &fakePriceRepo{prices: map[string]float64{
		priceKey("BBCA", pred.PredictionTimestamp.Add(4*time.Hour)): 103,
	}}

	svc := newEvaluator(evaluatorConfig(), predRepo, outRepo, priceRepo)

	err := svc.Evaluate(context.Background(), dto.StreamDataOutcomeEvaluate{PredictionRowID: 1, StockCode: "BBCA"})
	require.NoError(t, err)

	stored := outRepo.stored[1]
	require.NotNil(t, stored)
	assert.Equal(t, 100.0, stored.EntryPrice)
	assert.Equal(t, 103.0, stored.ExitPrice)
	assert.InDelta(t, 0.03, stored.ActualReturn, 1e-9)
	assert.True(t, stored.Success)
	assert.NotEmpty(t, stored.OutcomeID)
}

func TestEvaluate_BackfillsEntryPriceAtOrAfterDecisionPoint(t *testing.T) {
	pred := pendingPrediction(2, entity.ActionSell, 0)
	predRepo := &fakePredictionsRepo{predictions: map[int64]*entity.Prediction{2: pred}}
	outRepo := &fakeOutcomesRepo{}
	priceRepo := &fakePriceRepo{prices: map[string]float64{
		priceKey("BBCA", pred.PredictionTimestamp):                  200,
		priceKey("BBCA", pred.PredictionTimestamp.Add(4*time.Hour)): 190,
	}}

	svc := newEvaluator(evaluatorConfig(), predRepo, outRepo, priceRepo)

	err := svc.Evaluate(context.Background(), dto.StreamDataOutcomeEvaluate{PredictionRowID: 2, StockCode: "BBCA"})
	require.NoError(t, err)

	stored := outRepo.stored[2]
	require.NotNil(t, stored)
	assert.Equal(t, 200.0, stored.EntryPrice)
	assert.InDelta(t, -0.05, stored.ActualReturn, 1e-9)
	assert.True(t, stored.Success)
}

func TestEvaluate_AlreadyEvaluatedIsNoOp(t *testing.T) {
	pred := pendingPrediction(3, entity.ActionBuy, 100)
	pred.EvaluationStatus = entity.EvaluationEvaluated
	predRepo := &fakePredictionsRepo{predictions: map[int64]*entity.Prediction{3: pred}}
	outRepo := &fakeOutcomesRepo{}
	priceRepo := &fakePriceRepo{err: repository.ErrPriceUnavailable}

	svc := newEvaluator(evaluatorConfig(), predRepo, outRepo, priceRepo)

	err := svc.Evaluate(context.Background(), dto.StreamDataOutcomeEvaluate{PredictionRowID: 3, StockCode: "BBCA"})
	require.NoError(t, err)
	assert.Zero(t, outRepo.createCalls)
}

func TestEvaluate_ExpiredIsSkipped(t *testing.T) {
	pred := pendingPrediction(4, entity.ActionBuy, 100)
	pred.EvaluationStatus = entity.EvaluationExpired
	predRepo := &fakePredictionsRepo{predictions: map[int64]*entity.Prediction{4: pred}}
	outRepo := &fakeOutcomesRepo{}

	svc := newEvaluator(evaluatorConfig(), predRepo, outRepo, &fakePriceRepo{})

	err := svc.Evaluate(context.Background(), dto.StreamDataOutcomeEvaluate{PredictionRowID: 4, StockCode: "BBCA"})
	require.NoError(t, err)
	assert.Zero(t, outRepo.createCalls)
}

func TestEvaluate_RedeliveryKeepsFirstOutcome(t *testing.T) {
	pred := pendingPrediction(5, entity.ActionBuy, 100)
	predRepo := &fakePredictionsRepo{predictions: map[int64]*entity.Prediction{5: pred}}
	outRepo := &fakeOutcomesRepo{}
	priceRepo := &fakePriceRepo{prices: map[string]float64{
		priceKey("BBCA", pred.PredictionTimestamp.Add(4*time.Hour)): 105,
	}}

	svc := newEvaluator(evaluatorConfig(), predRepo, outRepo, priceRepo)
	streamData := dto.StreamDataOutcomeEvaluate{PredictionRowID: 5, StockCode: "BBCA"}

	require.NoError(t, svc.Evaluate(context.Background(), streamData))
	first := *outRepo.stored[5]

	// Redelivered before the status flip became visible to this consumer.
	pred.EvaluationStatus = entity.EvaluationPending
	priceRepo.prices[priceKey("BBCA", pred.PredictionTimestamp.Add(4*time.Hour))] = 90

	require.NoError(t, svc.Evaluate(context.Background(), streamData))

	stored := outRepo.stored[5]
	assert.Equal(t, first.OutcomeID, stored.OutcomeID)
	assert.Equal(t, first.ExitPrice, stored.ExitPrice)
	assert.Equal(t, first.ActualReturn, stored.ActualReturn)
	assert.Equal(t, 2, outRepo.createCalls)
}

func TestEvaluate_DefersWhenExitPriceUnavailable(t *testing.T) {
	pred := pendingPrediction(6, entity.ActionBuy, 100)
	predRepo := &fakePredictionsRepo{predictions: map[int64]*entity.Prediction{6: pred}}
	outRepo := &fakeOutcomesRepo{}
	priceRepo := &fakePriceRepo{err: repository.ErrPriceUnavailable}

	svc := newEvaluator(evaluatorConfig(), predRepo, outRepo, priceRepo)

	err := svc.Evaluate(context.Background(), dto.StreamDataOutcomeEvaluate{PredictionRowID: 6, StockCode: "BBCA"})
	require.ErrorIs(t, err, repository.ErrPriceUnavailable)
	assert.Zero(t, outRepo.createCalls)
	// Deferral is not failure: the prediction keeps waiting for the next scan.
	assert.Empty(t, predRepo.statusUpdates)
	assert.Equal(t, entity.EvaluationPending, pred.EvaluationStatus)
}

func TestEvaluate_MarksFailedWhenStoreGivesUp(t *testing.T) {
	pred := pendingPrediction(7, entity.ActionBuy, 100)
	predRepo := &fakePredictionsRepo{predictions: map[int64]*entity.Prediction{7: pred}}
	outRepo := &fakeOutcomesRepo{createErr: repository.ErrPersistentStore}
	priceRepo := &fakePriceRepo{prices: map[string]float64{
		priceKey("BBCA", pred.PredictionTimestamp.Add(4*time.Hour)): 103,
	}}

	svc := newEvaluator(evaluatorConfig(), predRepo, outRepo, priceRepo)

	err := svc.Evaluate(context.Background(), dto.StreamDataOutcomeEvaluate{PredictionRowID: 7, StockCode: "BBCA"})
	require.ErrorIs(t, err, repository.ErrPersistentStore)
	assert.Equal(t, []entity.EvaluationStatus{entity.EvaluationFailed}, predRepo.statusUpdates)
	// Persistent errors are not retried.
	assert.Equal(t, 1, outRepo.createCalls)
}

func TestClassifySuccess(t *testing.T) {
	const epsilon = 0.002

	tests := []struct {
		name         string
		action       entity.SignalAction
		actualReturn float64
		want         bool
	}{
		{"buy cleared epsilon", entity.ActionBuy, 0.01, true},
		{"buy inside noise band", entity.ActionBuy, 0.001, false},
		{"buy wrong direction", entity.ActionBuy, -0.03, false},
		{"strong buy cleared epsilon", entity.ActionStrongBuy, 0.05, true},
		{"sell cleared epsilon", entity.ActionSell, -0.01, true},
		{"sell wrong direction", entity.ActionSell, 0.01, false},
		{"strong sell inside noise band", entity.ActionStrongSell, -0.001, false},
		{"hold stayed flat", entity.ActionHold, 0.001, true},
		{"hold negative but flat", entity.ActionHold, -0.0015, true},
		{"hold moved", entity.ActionHold, 0.01, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifySuccess(tt.action, tt.actualReturn, epsilon))
		})
	}
}
