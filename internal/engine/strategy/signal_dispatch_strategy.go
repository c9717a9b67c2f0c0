package strategy

import (
	"context"
	"encoding/json"
	"fmt"

	"stock-signal-engine/internal/engine/dto"
	"stock-signal-engine/internal/engine/repository"
	"stock-signal-engine/internal/entity"
	"stock-signal-engine/pkg/logger"
)

// SignalBatchRunner runs one signal generation batch over a stock universe.
// It is the only part of the signal service this strategy needs.
type SignalBatchRunner interface {
	GenerateBatch(ctx context.Context, stocks []entity.Stock) *dto.SignalRunReport
}

// SignalDispatchStrategy runs one signal generation batch over the active
// stock universe. The job output is the run report so the execution history
// carries the per-batch counts.
type SignalDispatchStrategy struct {
	logger        *logger.Logger
	stocksRepo    repository.StocksRepository
	signalService SignalBatchRunner
}

// NewSignalDispatchStrategy creates a new SignalDispatchStrategy.
func NewSignalDispatchStrategy(
	log *logger.Logger,
	stocksRepo repository.StocksRepository,
	signalService SignalBatchRunner,
) JobExecutionStrategy {
	return &SignalDispatchStrategy{
		logger:        log,
		stocksRepo:    stocksRepo,
		signalService: signalService,
	}
}

// GetType returns the job type this strategy handles.
func (s *SignalDispatchStrategy) GetType() entity.JobType {
	return entity.JobTypeSignalDispatch
}

// Execute generates signals for every active stock and returns the batch
// report as JSON.
func (s *SignalDispatchStrategy) Execute(ctx context.Context, job *entity.Job) (string, error) {
	stocks, err := s.stocksRepo.GetActive(ctx)
	if err != nil {
		s.logger.Error("Failed to load active stocks", logger.ErrorField(err), logger.Field("job_id", job.ID))
		return "", fmt.Errorf("failed to load active stocks: %w", err)
	}

	if len(stocks) == 0 {
		s.logger.Warn("No active stocks, nothing to dispatch", logger.Field("job_id", job.ID))
		return `{"total":0}`, nil
	}

	report := s.signalService.GenerateBatch(ctx, stocks)

	output, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal run report: %w", err)
	}

	// A batch with failures still completes; the counts tell the story.
	return string(output), nil
}
