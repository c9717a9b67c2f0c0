package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-signal-engine/internal/decision"
	"stock-signal-engine/internal/engine/config"
	"stock-signal-engine/internal/engine/dto"
	"stock-signal-engine/internal/engine/repository"
	"stock-signal-engine/internal/entity"
	"stock-signal-engine/pkg/logger"
	"stock-signal-engine/pkg/retry"
)

type fakeFeatureRepo struct {
	snapshots map[string]*entity.FeatureSnapshot
	errs      map[string]error
}

func (f *fakeFeatureRepo) GetSnapshot(_ context.Context, stockCode string) (*entity.FeatureSnapshot, error) {
	if err, ok := f.errs[stockCode]; ok {
		return nil, err
	}
	if s, ok := f.snapshots[stockCode]; ok {
		return s, nil
	}
	return nil, repository.ErrSnapshotUnavailable
}

type fakeMarketRepo struct {
	trendPct float64
	err      error
}

func (f *fakeMarketRepo) GetSectorTrend(_ context.Context) (*dto.MarketTrendResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.MarketTrendResponse{TrendPct: f.trendPct, AsOf: time.Now()}, nil
}

type fakeModelRepo struct {
	signal *decision.MLSignal
	err    error
}

func (f *fakeModelRepo) Predict(_ context.Context, _ *entity.FeatureSnapshot) (*decision.MLSignal, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.signal, nil
}

func signalConfig() *config.Config {
	return &config.Config{
		Engine: config.Engine{
			EvaluationHorizon: 4 * time.Hour,
			SuccessEpsilon:    0.002,
			StoreRetry:        retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
		},
		Policy: decision.DefaultEngineConfig(),
	}
}

func bullishSnapshot(stockCode string) *entity.FeatureSnapshot {
	return &entity.FeatureSnapshot{
		StockCode:              stockCode,
		Timestamp:              time.Now().UTC().Add(-time.Minute),
		SentimentScore:         0.3,
		SentimentConfidence:    0.8,
		NewsCount:              5,
		RSI:                    50,
		MACDLine:               1.2,
		BollingerUpper:         110,
		BollingerLower:         102,
		SMA20:                  100,
		SMA50:                  95,
		VolumeTrend:            0.10,
		VolumeQuality:          0.8,
		PriceVolumeCorrelation: 0.3,
		CurrentPrice:           105,
	}
}

func newSignalService(cfg *config.Config, features *fakeFeatureRepo, market *fakeMarketRepo, model *fakeModelRepo, predRepo *fakePredictionsRepo) SignalService {
	var modelRepo repository.ModelRepository
	if model != nil {
		modelRepo = model
	}
	return NewSignalService(cfg, logger.NewNop(), features, market, modelRepo, predRepo)
}

func TestGenerate_WritesPrediction(t *testing.T) {
	features := &fakeFeatureRepo{snapshots: map[string]*entity.FeatureSnapshot{"BBCA": bullishSnapshot("BBCA")}}
	predRepo := &fakePredictionsRepo{}

	svc := newSignalService(signalConfig(), features, &fakeMarketRepo{trendPct: 0}, nil, predRepo)

	prediction, err := svc.Generate(context.Background(), "BBCA")
	require.NoError(t, err)
	require.Len(t, predRepo.created, 1)

	assert.Equal(t, entity.ActionBuy, prediction.Action)
	assert.Equal(t, 1, prediction.Direction)
	assert.InDelta(t, 0.6955, prediction.Confidence, 1e-9)
	assert.Equal(t, 85.0, prediction.TechnicalScore)
	assert.Equal(t, string(decision.RegimeNeutral), prediction.Regime)
	assert.Equal(t, entity.EvaluationPending, prediction.EvaluationStatus)
	assert.NotEmpty(t, prediction.PredictionID)
	assert.Equal(t, 105.0, prediction.EntryPrice)
	assert.Equal(t, prediction.PredictionTimestamp.Add(4*time.Hour), prediction.EvaluateAfter)
	var breakdown map[string]float64
	require.NoError(t, json.Unmarshal(prediction.Breakdown, &breakdown))
	assert.Len(t, breakdown, 4)
	assert.InDelta(t, 0.3825, breakdown["technical"], 1e-9)
	assert.InDelta(t, 0.152, breakdown["sentiment"], 1e-9)
	assert.InDelta(t, 0.161, breakdown["volume"], 1e-9)
	assert.InDelta(t, 0.0, breakdown["risk"], 1e-9)
	assert.Contains(t, string(prediction.Snapshot), `"stock_code":"BBCA"`)
}

func TestGenerate_MarketFailureFallsBackToNeutral(t *testing.T) {
	features := &fakeFeatureRepo{snapshots: map[string]*entity.FeatureSnapshot{"BBCA": bullishSnapshot("BBCA")}}
	predRepo := &fakePredictionsRepo{}

	svc := newSignalService(signalConfig(), features, &fakeMarketRepo{err: errors.New("market source down")}, nil, predRepo)

	prediction, err := svc.Generate(context.Background(), "BBCA")
	require.NoError(t, err)
	assert.Equal(t, string(decision.RegimeNeutral), prediction.Regime)
	assert.Equal(t, entity.ActionBuy, prediction.Action)
}

func TestGenerate_ModelFailureDegradesToHeuristics(t *testing.T) {
	features := &fakeFeatureRepo{snapshots: map[string]*entity.FeatureSnapshot{"BBCA": bullishSnapshot("BBCA")}}
	predRepo := &fakePredictionsRepo{}
	model := &fakeModelRepo{err: decision.ErrModelUnavailable}

	svc := newSignalService(signalConfig(), features, &fakeMarketRepo{}, model, predRepo)

	prediction, err := svc.Generate(context.Background(), "BBCA")
	require.NoError(t, err)
	assert.NotContains(t, string(prediction.Breakdown), `"ml"`)
	assert.NotContains(t, prediction.ModelVersion, "+")
}

func TestGenerate_ModelSignalStampedIntoVersion(t *testing.T) {
	features := &fakeFeatureRepo{snapshots: map[string]*entity.FeatureSnapshot{"BBCA": bullishSnapshot("BBCA")}}
	predRepo := &fakePredictionsRepo{}
	model := &fakeModelRepo{signal: &decision.MLSignal{DirectionConfidence: 0.7, Magnitude: 0.04, Version: "gbm-7"}}

	svc := newSignalService(signalConfig(), features, &fakeMarketRepo{}, model, predRepo)

	prediction, err := svc.Generate(context.Background(), "BBCA")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(prediction.ModelVersion, "+gbm-7"))
	assert.Contains(t, string(prediction.Breakdown), `"ml"`)
}

func TestGenerate_MissingModelFailsWhenPolicyDemandsIt(t *testing.T) {
	cfg := signalConfig()
	cfg.Policy.FailOnMissingModel = true
	features := &fakeFeatureRepo{snapshots: map[string]*entity.FeatureSnapshot{"BBCA": bullishSnapshot("BBCA")}}
	predRepo := &fakePredictionsRepo{}

	svc := newSignalService(cfg, features, &fakeMarketRepo{}, nil, predRepo)

	_, err := svc.Generate(context.Background(), "BBCA")
	require.ErrorIs(t, err, decision.ErrModelUnavailable)
	assert.Empty(t, predRepo.created)
}

func TestGenerate_RetriesTransientStoreError(t *testing.T) {
	features := &fakeFeatureRepo{snapshots: map[string]*entity.FeatureSnapshot{"BBCA": bullishSnapshot("BBCA")}}
	predRepo := &fakePredictionsRepo{createErrs: []error{repository.ErrTransientStore, nil}}

	svc := newSignalService(signalConfig(), features, &fakeMarketRepo{}, nil, predRepo)

	_, err := svc.Generate(context.Background(), "BBCA")
	require.NoError(t, err)
	assert.Len(t, predRepo.created, 1)
}

func TestGenerateBatch_BucketsPerSymbolResults(t *testing.T) {
	invalid := bullishSnapshot("GOTO")
	invalid.RSI = 150

	features := &fakeFeatureRepo{
		snapshots: map[string]*entity.FeatureSnapshot{
			"BBCA": bullishSnapshot("BBCA"),
			"BBRI": bullishSnapshot("BBRI"),
			"GOTO": invalid,
		},
		errs: map[string]error{
			"ASII": repository.ErrSnapshotUnavailable,
			"TLKM": errors.New("collector exploded"),
		},
	}
	predRepo := &fakePredictionsRepo{createErrs: []error{nil, repository.ErrDuplicate}}

	svc := newSignalService(signalConfig(), features, &fakeMarketRepo{}, nil, predRepo)

	report := svc.GenerateBatch(context.Background(), []entity.Stock{
		{Code: "BBCA"}, {Code: "BBRI"}, {Code: "GOTO"}, {Code: "ASII"}, {Code: "TLKM"},
	})

	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 1, report.Written)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, 1, report.Deferred)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"TLKM"}, report.FailedCode)
}

func TestGenerateBatch_OneFailureDoesNotAbortBatch(t *testing.T) {
	features := &fakeFeatureRepo{
		snapshots: map[string]*entity.FeatureSnapshot{
			"BBCA": bullishSnapshot("BBCA"),
			"BBRI": bullishSnapshot("BBRI"),
		},
		errs: map[string]error{"TLKM": errors.New("collector exploded")},
	}
	predRepo := &fakePredictionsRepo{}

	svc := newSignalService(signalConfig(), features, &fakeMarketRepo{}, nil, predRepo)

	report := svc.GenerateBatch(context.Background(), []entity.Stock{
		{Code: "TLKM"}, {Code: "BBCA"}, {Code: "BBRI"},
	})

	assert.Equal(t, 2, report.Written)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, predRepo.created, 2)
}
