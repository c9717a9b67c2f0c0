package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"stock-signal-engine/internal/decision"
	"stock-signal-engine/internal/engine/config"
	"stock-signal-engine/internal/engine/dto"
	"stock-signal-engine/internal/engine/repository"
	"stock-signal-engine/internal/entity"
	"stock-signal-engine/pkg/logger"
	"stock-signal-engine/pkg/retry"
)

// SignalService turns feature snapshots into persisted predictions.
type SignalService interface {
	Generate(ctx context.Context, stockCode string) (*entity.Prediction, error)
	GenerateBatch(ctx context.Context, stocks []entity.Stock) *dto.SignalRunReport
}

type signalService struct {
	cfg            *config.Config
	log            *logger.Logger
	featureRepo    repository.FeatureRepository
	marketRepo     repository.MarketRepository
	modelRepo      repository.ModelRepository
	predictionRepo repository.PredictionsRepository
}

// NewSignalService creates a new SignalService. modelRepo may be nil when no
// model server is configured; scoring then runs heuristics-only.
func NewSignalService(
	cfg *config.Config,
	log *logger.Logger,
	featureRepo repository.FeatureRepository,
	marketRepo repository.MarketRepository,
	modelRepo repository.ModelRepository,
	predictionRepo repository.PredictionsRepository,
) SignalService {
	return &signalService{
		cfg:            cfg,
		log:            log,
		featureRepo:    featureRepo,
		marketRepo:     marketRepo,
		modelRepo:      modelRepo,
		predictionRepo: predictionRepo,
	}
}

// Generate runs the full decision pipeline for one symbol and persists the
// result. The returned errors keep their repository/decision sentinels so
// the batch runner can bucket them.
func (s *signalService) Generate(ctx context.Context, stockCode string) (*entity.Prediction, error) {
	snapshot, err := s.featureRepo.GetSnapshot(ctx, stockCode)
	if err != nil {
		return nil, err
	}
	if err := decision.ValidateSnapshot(snapshot); err != nil {
		return nil, err
	}

	regime := s.assessRegime(ctx)
	ml := s.modelSignal(ctx, snapshot)

	score, err := decision.Score(s.cfg.Policy, snapshot, ml)
	if err != nil {
		return nil, err
	}

	result, err := decision.Decide(s.cfg.Policy, score, regime, snapshot.VolumeTrend)
	if err != nil {
		return nil, err
	}

	prediction, err := s.buildPrediction(snapshot, score, result, regime, ml)
	if err != nil {
		return nil, err
	}

	err = retry.Do(ctx, s.cfg.Engine.StoreRetry, func() error {
		return s.predictionRepo.Create(ctx, prediction)
	}, repository.IsTransient)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "Prediction written",
		logger.StringField("stock_code", stockCode),
		logger.StringField("action", string(result.Action)),
		logger.Float64Field("confidence", result.Confidence),
		logger.StringField("regime", string(regime.Regime)),
	)
	return prediction, nil
}

// GenerateBatch runs Generate over the universe and aggregates the per-symbol
// results. One symbol's failure never aborts the batch.
func (s *signalService) GenerateBatch(ctx context.Context, stocks []entity.Stock) *dto.SignalRunReport {
	report := &dto.SignalRunReport{Total: len(stocks)}

	for _, stock := range stocks {
		if ctx.Err() != nil {
			s.log.WarnContext(ctx, "Signal batch interrupted", logger.IntField("remaining", report.Total-processed(report)))
			break
		}

		_, err := s.Generate(ctx, stock.Code)
		switch {
		case err == nil:
			report.Written++
		case errors.Is(err, repository.ErrDuplicate):
			report.Duplicates++
		case errors.Is(err, decision.ErrValidation), errors.Is(err, repository.ErrLeakage):
			report.Rejected++
			s.log.WarnContext(ctx, "Prediction rejected", logger.StringField("stock_code", stock.Code), logger.ErrorField(err))
		case errors.Is(err, repository.ErrSnapshotUnavailable):
			report.Deferred++
			s.log.WarnContext(ctx, "No feature snapshot, symbol deferred", logger.StringField("stock_code", stock.Code))
		default:
			report.Failed++
			report.FailedCode = append(report.FailedCode, stock.Code)
			s.log.ErrorContext(ctx, "Signal generation failed", logger.StringField("stock_code", stock.Code), logger.ErrorField(err))
		}
	}

	s.log.InfoContext(ctx, "Signal batch completed",
		logger.IntField("total", report.Total),
		logger.IntField("written", report.Written),
		logger.IntField("duplicates", report.Duplicates),
		logger.IntField("rejected", report.Rejected),
		logger.IntField("deferred", report.Deferred),
		logger.IntField("failed", report.Failed),
	)
	return report
}

func processed(r *dto.SignalRunReport) int {
	return r.Written + r.Duplicates + r.Rejected + r.Deferred + r.Failed
}

// assessRegime classifies the market regime from the sector trend. When the
// market source is down the engine keeps producing signals under NEUTRAL
// rather than stalling the whole batch.
func (s *signalService) assessRegime(ctx context.Context) decision.RegimeAssessment {
	trend, err := s.marketRepo.GetSectorTrend(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "Market trend unavailable, falling back to NEUTRAL regime", logger.ErrorField(err))
		return decision.ClassifyRegime(s.cfg.Policy, 0)
	}
	return decision.ClassifyRegime(s.cfg.Policy, trend.TrendPct)
}

// modelSignal fetches the optional ML contribution. nil means the model is
// unavailable or not configured; Score applies the missing-model policy.
func (s *signalService) modelSignal(ctx context.Context, snapshot *entity.FeatureSnapshot) *decision.MLSignal {
	if s.modelRepo == nil {
		return nil
	}
	ml, err := s.modelRepo.Predict(ctx, snapshot)
	if err != nil {
		s.log.WarnContext(ctx, "Model signal unavailable", logger.StringField("stock_code", snapshot.StockCode), logger.ErrorField(err))
		return nil
	}
	return ml
}

func (s *signalService) buildPrediction(
	snapshot *entity.FeatureSnapshot,
	score *decision.ScoreResult,
	result *decision.Decision,
	regime decision.RegimeAssessment,
	ml *decision.MLSignal,
) (*entity.Prediction, error) {
	breakdownJSON, err := json.Marshal(score.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("marshal breakdown: %w", err)
	}
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	modelVersion := s.cfg.Policy.ModelVersion
	if ml != nil && ml.Version != "" {
		modelVersion = fmt.Sprintf("%s+%s", modelVersion, ml.Version)
	}

	now := time.Now().UTC()
	return &entity.Prediction{
		PredictionID:        uuid.NewString(),
		StockCode:           snapshot.StockCode,
		PredictionTimestamp: now,
		Action:              result.Action,
		Direction:           result.Direction,
		Confidence:          result.Confidence,
		Magnitude:           result.Magnitude,
		TechnicalScore:      score.TechnicalScore,
		Regime:              string(regime.Regime),
		ModelVersion:        modelVersion,
		Breakdown:           datatypes.JSON(breakdownJSON),
		Snapshot:            datatypes.JSON(snapshotJSON),
		SnapshotTimestamp:   snapshot.Timestamp,
		EntryPrice:          snapshot.CurrentPrice,
		EvaluateAfter:       now.Add(s.cfg.Engine.EvaluationHorizon),
		EvaluationStatus:    entity.EvaluationPending,
	}, nil
}
