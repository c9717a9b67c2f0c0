package service

import (
	"context"
	"encoding/json"
	"time"

	"stock-signal-engine/internal/entity"
	"stock-signal-engine/internal/scheduler/dto"
	"stock-signal-engine/internal/scheduler/repository"
	"stock-signal-engine/pkg/logger"
)

// ReportService exposes predictions, outcomes and the aggregate accuracy
// report.
type ReportService interface {
	GetPredictions(ctx context.Context, param dto.GetPredictionsParam) ([]*dto.PredictionResponse, error)
	GetAccuracySummary(ctx context.Context, since time.Time) (*dto.AccuracySummaryResponse, error)
}

// NewReportService creates a new report service.
func NewReportService(predictionRepo repository.PredictionsRepository, logger *logger.Logger) ReportService {
	return &reportService{
		predictionRepo: predictionRepo,
		logger:         logger,
	}
}

type reportService struct {
	predictionRepo repository.PredictionsRepository
	logger         *logger.Logger
}

// GetPredictions retrieves predictions matching the filter.
func (s *reportService) GetPredictions(ctx context.Context, param dto.GetPredictionsParam) ([]*dto.PredictionResponse, error) {
	predictions, err := s.predictionRepo.Get(ctx, param)
	if err != nil {
		s.logger.Error("Failed to get predictions", logger.ErrorField(err))
		return nil, err
	}

	var responses []*dto.PredictionResponse
	for _, prediction := range predictions {
		responses = append(responses, s.mapToPredictionResponse(&prediction))
	}
	return responses, nil
}

// GetAccuracySummary aggregates hit rate and average return over the window,
// overall and per action grade.
func (s *reportService) GetAccuracySummary(ctx context.Context, since time.Time) (*dto.AccuracySummaryResponse, error) {
	counts, err := s.predictionRepo.CountByStatusSince(ctx, since)
	if err != nil {
		s.logger.Error("Failed to count predictions by status", logger.ErrorField(err))
		return nil, err
	}

	evaluated, err := s.predictionRepo.GetEvaluatedSince(ctx, since)
	if err != nil {
		s.logger.Error("Failed to get evaluated predictions", logger.ErrorField(err))
		return nil, err
	}

	summary := &dto.AccuracySummaryResponse{
		Since:     since,
		Pending:   counts[entity.EvaluationPending],
		Evaluated: counts[entity.EvaluationEvaluated],
		Failed:    counts[entity.EvaluationFailed],
		Expired:   counts[entity.EvaluationExpired],
		ByAction:  make(map[string]dto.ActionAccuracy),
	}
	summary.Total = summary.Pending + summary.Evaluated + summary.Failed + summary.Expired

	var totalReturn float64
	byAction := make(map[string]*dto.ActionAccuracy)
	for _, prediction := range evaluated {
		if prediction.Outcome == nil {
			continue
		}
		acc, ok := byAction[string(prediction.Action)]
		if !ok {
			acc = &dto.ActionAccuracy{}
			byAction[string(prediction.Action)] = acc
		}
		acc.Evaluated++
		acc.AvgReturn += prediction.Outcome.ActualReturn
		totalReturn += prediction.Outcome.ActualReturn
		if prediction.Outcome.Success {
			acc.Successes++
			summary.Successes++
		}
	}

	for action, acc := range byAction {
		if acc.Evaluated > 0 {
			acc.HitRate = float64(acc.Successes) / float64(acc.Evaluated)
			acc.AvgReturn /= float64(acc.Evaluated)
		}
		summary.ByAction[action] = *acc
	}
	if summary.Evaluated > 0 {
		summary.HitRate = float64(summary.Successes) / float64(summary.Evaluated)
		summary.AvgReturn = totalReturn / float64(summary.Evaluated)
	}

	return summary, nil
}

// mapToPredictionResponse maps an entity.Prediction to a dto.PredictionResponse.
func (s *reportService) mapToPredictionResponse(prediction *entity.Prediction) *dto.PredictionResponse {
	resp := &dto.PredictionResponse{
		PredictionID:        prediction.PredictionID,
		StockCode:           prediction.StockCode,
		TradeDate:           prediction.TradeDate.Format("2006-01-02"),
		PredictionTimestamp: prediction.PredictionTimestamp,
		Action:              string(prediction.Action),
		Direction:           prediction.Direction,
		Confidence:          prediction.Confidence,
		Magnitude:           prediction.Magnitude,
		TechnicalScore:      prediction.TechnicalScore,
		Regime:              prediction.Regime,
		ModelVersion:        prediction.ModelVersion,
		Breakdown:           json.RawMessage(prediction.Breakdown),
		EvaluationStatus:    string(prediction.EvaluationStatus),
	}

	if prediction.Outcome != nil {
		resp.Outcome = &dto.OutcomeResponse{
			OutcomeID:    prediction.Outcome.OutcomeID,
			EntryPrice:   prediction.Outcome.EntryPrice,
			ExitPrice:    prediction.Outcome.ExitPrice,
			ActualReturn: prediction.Outcome.ActualReturn,
			Success:      prediction.Outcome.Success,
			EvaluatedAt:  prediction.Outcome.EvaluatedAt,
		}
	}
	return resp
}
