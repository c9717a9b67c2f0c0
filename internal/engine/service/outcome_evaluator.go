package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"stock-signal-engine/internal/engine/config"
	"stock-signal-engine/internal/engine/dto"
	"stock-signal-engine/internal/engine/repository"
	"stock-signal-engine/internal/entity"
	"stock-signal-engine/pkg/common"
	"stock-signal-engine/pkg/logger"
	"stock-signal-engine/pkg/retry"
)

// OutcomeEvaluatorService consumes due predictions from the outcome stream
// and records their realized outcomes. Evaluation is idempotent by
// prediction row, so redelivered messages converge to the stored result.
type OutcomeEvaluatorService interface {
	ProcessTask(ctx context.Context)
	ProcessRetries(ctx context.Context)
	Evaluate(ctx context.Context, streamData dto.StreamDataOutcomeEvaluate) error
}

type outcomeEvaluatorService struct {
	cfg            *config.Config
	log            *logger.Logger
	redisClient    *redis.Client
	predictionRepo repository.PredictionsRepository
	outcomeRepo    repository.OutcomesRepository
	priceRepo      repository.PriceRepository
}

// NewOutcomeEvaluatorService creates a new OutcomeEvaluatorService.
func NewOutcomeEvaluatorService(
	cfg *config.Config,
	log *logger.Logger,
	redisClient *redis.Client,
	predictionRepo repository.PredictionsRepository,
	outcomeRepo repository.OutcomesRepository,
	priceRepo repository.PriceRepository,
) OutcomeEvaluatorService {
	return &outcomeEvaluatorService{
		cfg:            cfg,
		log:            log,
		redisClient:    redisClient,
		predictionRepo: predictionRepo,
		outcomeRepo:    outcomeRepo,
		priceRepo:      priceRepo,
	}
}

func (s *outcomeEvaluatorService) ProcessTask(ctx context.Context) {
	streams, err := s.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		Streams:  []string{common.RedisStreamOutcomeEvaluate, ">"}, // ">" means only new messages
		Count:    1,
		Block:    2 * time.Second, // Block for 2 seconds to allow graceful shutdown
	}).Result()
	if err != nil {
		// Ignore context cancellation and timeout errors, as they are expected during shutdown or idle periods.
		if err == context.Canceled || err == redis.Nil {
			return
		}
		s.log.Error("Failed to read from stream", logger.ErrorField(err))
		return
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		s.log.Debug("No messages found", logger.StringField("stream", common.RedisStreamOutcomeEvaluate))
		return
	}

	message := streams[0].Messages[0]

	streamData, err := s.decodePayload(message)
	if err != nil {
		s.log.Error("Failed to decode outcome task", logger.ErrorField(err), logger.Field("message_id", message.ID))
		// Acknowledge the message to prevent reprocessing of a malformed message.
		if err := s.AckNDel(ctx, common.RedisStreamOutcomeEvaluate, message.ID); err != nil {
			s.log.Error("Failed to acknowledge malformed message", logger.ErrorField(err), logger.Field("message_id", message.ID))
		}
		return
	}

	loggerFields := []zap.Field{
		logger.StringField("stock_code", streamData.StockCode),
		logger.IntField("prediction_row_id", int(streamData.PredictionRowID)),
		logger.StringField("message_id", message.ID),
	}

	s.log.Debug("Processing outcome evaluation task", loggerFields...)

	if err := s.Evaluate(ctx, streamData); err != nil {
		loggerFields = append(loggerFields, logger.ErrorField(err))
		s.log.Error("Failed to evaluate outcome", loggerFields...)
		return
	}

	if err := s.AckNDel(ctx, common.RedisStreamOutcomeEvaluate, message.ID); err != nil {
		loggerFields = append(loggerFields, logger.ErrorField(err))
		s.log.Error("Failed to acknowledge and delete outcome task", loggerFields...)
		return
	}

	s.log.Debug("Outcome evaluation task processed successfully", loggerFields...)
}

// Evaluate records the realized outcome for one prediction. Returns nil when
// the prediction is already evaluated or expired. A price source miss defers
// the evaluation: the prediction stays PENDING and the next scan republishes
// it.
func (s *outcomeEvaluatorService) Evaluate(ctx context.Context, streamData dto.StreamDataOutcomeEvaluate) error {
	prediction, err := s.predictionRepo.FindByRowID(ctx, streamData.PredictionRowID)
	if err != nil {
		return err
	}

	switch prediction.EvaluationStatus {
	case entity.EvaluationEvaluated:
		s.log.Debug("Prediction already evaluated", logger.IntField("prediction_row_id", int(prediction.ID)))
		return nil
	case entity.EvaluationExpired:
		s.log.Debug("Prediction expired, skipping", logger.IntField("prediction_row_id", int(prediction.ID)))
		return nil
	}

	entryPrice := prediction.EntryPrice
	if entryPrice <= 0 {
		// Backfill from the first candle at or after the decision point, never
		// before it.
		entryPrice, err = s.priceRepo.GetPriceAt(ctx, prediction.StockCode, prediction.PredictionTimestamp)
		if err != nil {
			return fmt.Errorf("backfill entry price: %w", err)
		}
	}

	exitAt := prediction.PredictionTimestamp.Add(s.cfg.Engine.EvaluationHorizon)
	exitPrice, err := s.priceRepo.GetPriceAt(ctx, prediction.StockCode, exitAt)
	if err != nil {
		if errors.Is(err, repository.ErrPriceUnavailable) {
			s.log.Warn("Exit price not yet available, deferring evaluation",
				logger.StringField("stock_code", prediction.StockCode),
				logger.IntField("prediction_row_id", int(prediction.ID)))
			return err
		}
		return fmt.Errorf("resolve exit price: %w", err)
	}

	actualReturn := (exitPrice - entryPrice) / entryPrice

	outcome := &entity.Outcome{
		OutcomeID:       uuid.NewString(),
		PredictionRowID: prediction.ID,
		EntryPrice:      entryPrice,
		ExitPrice:       exitPrice,
		ActualReturn:    actualReturn,
		Success:         classifySuccess(prediction.Action, actualReturn, s.cfg.Engine.SuccessEpsilon),
		EvaluatedAt:     time.Now().UTC(),
	}

	var stored *entity.Outcome
	err = retry.Do(ctx, s.cfg.Engine.StoreRetry, func() error {
		var createErr error
		stored, createErr = s.outcomeRepo.Create(ctx, outcome)
		return createErr
	}, repository.IsTransient)
	if err != nil {
		if markErr := s.predictionRepo.UpdateEvaluationStatus(ctx, prediction.ID, entity.EvaluationFailed); markErr != nil {
			s.log.Error("Failed to mark prediction FAILED", logger.ErrorField(markErr), logger.IntField("prediction_row_id", int(prediction.ID)))
		}
		return fmt.Errorf("store outcome: %w", err)
	}

	s.log.Info("Outcome recorded",
		logger.StringField("stock_code", prediction.StockCode),
		logger.IntField("prediction_row_id", int(prediction.ID)),
		logger.StringField("action", string(prediction.Action)),
		logger.Float64Field("actual_return", stored.ActualReturn),
		logger.Field("success", stored.Success),
	)
	return nil
}

func (s *outcomeEvaluatorService) ProcessRetries(ctx context.Context) {
	msgs, _, err := s.redisClient.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   common.RedisStreamOutcomeEvaluate,
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer + "-retry",
		MinIdle:  s.cfg.Engine.RedisStreamOutcomeEvaluateMaxIdleDuration,
		Start:    "0",
		Count:    1,
	}).Result()

	if err != nil {
		s.log.Error("Failed to claim outcome task on retry", logger.ErrorField(err))
		return
	}

	if len(msgs) == 0 {
		s.log.Debug("Retry No pending messages found", logger.StringField("stream", common.RedisStreamOutcomeEvaluate))
		return
	}

	pendingInfo, err := s.redisClient.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: common.RedisStreamOutcomeEvaluate,
		Group:  common.RedisStreamGroup,
		Start:  msgs[0].ID,
		End:    msgs[0].ID,
		Count:  1,
	}).Result()

	if err != nil {
		s.log.Error("Failed to get pending info", logger.ErrorField(err))
		return
	}

	if len(pendingInfo) == 0 {
		s.log.Warn("pending msg not found, but exist on xautoclaim",
			logger.StringField("stream", common.RedisStreamOutcomeEvaluate),
			logger.StringField("message_id", msgs[0].ID))
		return
	}

	msg := msgs[0]
	streamData, err := s.decodePayload(msg)
	if err != nil {
		s.log.Error("Failed to decode outcome task on retry", logger.ErrorField(err), logger.Field("message_id", msg.ID))
		if err := s.AckNDel(ctx, common.RedisStreamOutcomeEvaluate, msg.ID); err != nil {
			s.log.Error("Failed to acknowledge malformed message", logger.ErrorField(err), logger.Field("message_id", msg.ID))
		}
		return
	}

	if err := s.Evaluate(ctx, streamData); err != nil {
		s.log.Error("Failed to evaluate outcome on retry", logger.ErrorField(err),
			logger.Field("message_id", msg.ID),
			logger.StringField("stock_code", streamData.StockCode),
			logger.IntField("prediction_row_id", int(streamData.PredictionRowID)))

		if pendingInfo[0].RetryCount+1 >= int64(s.cfg.Engine.RedisStreamOutcomeEvaluateMaxRetry) {
			s.log.Error("pending msg retry count exceeded",
				logger.StringField("stream", common.RedisStreamOutcomeEvaluate),
				logger.StringField("message_id", msg.ID),
				logger.StringField("stock_code", streamData.StockCode),
				logger.IntField("retry_count", int(pendingInfo[0].RetryCount+1)),
				logger.IntField("max_retry", s.cfg.Engine.RedisStreamOutcomeEvaluateMaxRetry),
			)
			// The prediction stays PENDING or FAILED in storage; the next scan
			// republishes it. Only the stream message is dropped.
			if err := s.AckNDel(ctx, common.RedisStreamOutcomeEvaluate, msg.ID); err != nil {
				s.log.Error("Failed to acknowledge and delete outcome task", logger.ErrorField(err), logger.Field("message_id", msg.ID))
			}
			return
		}
		return
	}

	if err := s.AckNDel(ctx, common.RedisStreamOutcomeEvaluate, msg.ID); err != nil {
		s.log.Error("Failed to acknowledge and delete outcome task", logger.ErrorField(err), logger.Field("message_id", msg.ID))
		return
	}
	s.log.Info("Retry outcome task processed successfully",
		logger.StringField("stock_code", streamData.StockCode),
		logger.IntField("prediction_row_id", int(streamData.PredictionRowID)))
}

func (s *outcomeEvaluatorService) decodePayload(msg redis.XMessage) (dto.StreamDataOutcomeEvaluate, error) {
	var streamData dto.StreamDataOutcomeEvaluate
	taskData, ok := msg.Values["payload"].(string)
	if !ok {
		return streamData, fmt.Errorf("field 'payload' not found or not a string in stream message")
	}
	if err := json.Unmarshal([]byte(taskData), &streamData); err != nil {
		return streamData, fmt.Errorf("unmarshal task data: %w", err)
	}
	return streamData, nil
}

func (s *outcomeEvaluatorService) AckNDel(ctx context.Context, streamName string, messageID string) error {
	if err := s.redisClient.XAck(ctx, streamName, common.RedisStreamGroup, messageID).Err(); err != nil {
		s.log.Error("Failed to acknowledge outcome task",
			logger.StringField("stream_name", streamName),
			logger.StringField("message_id", messageID),
			logger.ErrorField(err))
		return err
	}
	if err := s.redisClient.XDel(ctx, streamName, messageID).Err(); err != nil {
		s.log.Error("Failed to delete outcome task",
			logger.StringField("stream_name", streamName),
			logger.StringField("message_id", messageID),
			logger.ErrorField(err))
		return err
	}
	return nil
}

// classifySuccess grades a realized return against the action's direction.
// Epsilon keeps noise-level moves from counting either way: a HOLD succeeds
// only when the move stayed inside the band, a directional call only when it
// cleared it.
func classifySuccess(action entity.SignalAction, actualReturn, epsilon float64) bool {
	switch {
	case action.IsBuy():
		return actualReturn > epsilon
	case action.IsSell():
		return actualReturn < -epsilon
	default:
		return math.Abs(actualReturn) < epsilon
	}
}
