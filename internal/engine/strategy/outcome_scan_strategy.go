package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stock-signal-engine/internal/engine/dto"
	"stock-signal-engine/internal/engine/repository"
	"stock-signal-engine/internal/entity"
	"stock-signal-engine/pkg/common"
	"stock-signal-engine/pkg/logger"
)

// OutcomeScanStrategy expires stale predictions and fans the due ones out on
// the outcome stream. Each due prediction becomes one stream message, so
// evaluation parallelizes across consumers.
type OutcomeScanStrategy struct {
	logger         *logger.Logger
	redisClient    *redis.Client
	predictionRepo repository.PredictionsRepository
	maxLookback    time.Duration
	streamMaxLen   int64
}

// NewOutcomeScanStrategy creates a new OutcomeScanStrategy.
func NewOutcomeScanStrategy(
	log *logger.Logger,
	redisClient *redis.Client,
	predictionRepo repository.PredictionsRepository,
	maxLookback time.Duration,
	streamMaxLen int64,
) JobExecutionStrategy {
	return &OutcomeScanStrategy{
		logger:         log,
		redisClient:    redisClient,
		predictionRepo: predictionRepo,
		maxLookback:    maxLookback,
		streamMaxLen:   streamMaxLen,
	}
}

// GetType returns the job type this strategy handles.
func (s *OutcomeScanStrategy) GetType() entity.JobType {
	return entity.JobTypeOutcomeScan
}

// Execute marks expired predictions, then publishes every due prediction to
// the outcome stream. Returns the scan report as JSON.
func (s *OutcomeScanStrategy) Execute(ctx context.Context, job *entity.Job) (string, error) {
	now := time.Now().UTC()

	expired, err := s.predictionRepo.MarkExpired(ctx, now, s.maxLookback)
	if err != nil {
		s.logger.Error("Failed to expire stale predictions", logger.ErrorField(err), logger.Field("job_id", job.ID))
		return "", fmt.Errorf("failed to expire stale predictions: %w", err)
	}
	if expired > 0 {
		s.logger.Warn("Expired stale predictions", logger.IntField("count", int(expired)))
	}

	due, err := s.predictionRepo.FindDue(ctx, now, s.maxLookback)
	if err != nil {
		s.logger.Error("Failed to find due predictions", logger.ErrorField(err), logger.Field("job_id", job.ID))
		return "", fmt.Errorf("failed to find due predictions: %w", err)
	}

	report := dto.OutcomeScanReport{Due: len(due), Expired: int(expired)}

	for _, prediction := range due {
		payload, err := json.Marshal(dto.StreamDataOutcomeEvaluate{
			PredictionRowID: prediction.ID,
			StockCode:       prediction.StockCode,
		})
		if err != nil {
			s.logger.Error("Failed to marshal outcome task", logger.ErrorField(err), logger.IntField("prediction_row_id", int(prediction.ID)))
			continue
		}

		if err := s.redisClient.XAdd(ctx, &redis.XAddArgs{
			Stream: common.RedisStreamOutcomeEvaluate,
			Values: map[string]interface{}{"payload": payload},
			MaxLen: s.streamMaxLen,
		}).Err(); err != nil {
			s.logger.Error("Failed to publish outcome task", logger.ErrorField(err), logger.IntField("prediction_row_id", int(prediction.ID)))
			continue
		}
		report.Published++
	}

	s.logger.Info("Outcome scan completed",
		logger.Field("job_id", job.ID),
		logger.IntField("due", report.Due),
		logger.IntField("published", report.Published),
		logger.IntField("expired", report.Expired),
	)

	output, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal scan report: %w", err)
	}
	return string(output), nil
}
