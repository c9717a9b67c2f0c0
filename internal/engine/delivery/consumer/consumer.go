package consumer

import (
	"context"
	"sync"
	"time"

	"stock-signal-engine/internal/engine/config"
	"stock-signal-engine/internal/engine/service"
	"stock-signal-engine/pkg/common"
	"stock-signal-engine/pkg/logger"
	"stock-signal-engine/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisConsumer manages the consumption of tasks from the Redis streams.
type RedisConsumer struct {
	cfg                     *config.Config
	redisClient             *redis.Client
	executorService         service.ExecutorService
	outcomeEvaluatorService service.OutcomeEvaluatorService
	logger                  *logger.Logger
	stopChan                chan struct{}
	wg                      sync.WaitGroup
}

// NewRedisConsumer creates a new RedisConsumer.
func NewRedisConsumer(
	cfg *config.Config,
	redisClient *redis.Client,
	executorService service.ExecutorService,
	outcomeEvaluatorService service.OutcomeEvaluatorService,
	log *logger.Logger,
) *RedisConsumer {
	return &RedisConsumer{
		cfg:                     cfg,
		redisClient:             redisClient,
		executorService:         executorService,
		outcomeEvaluatorService: outcomeEvaluatorService,
		logger:                  log,
		stopChan:                make(chan struct{}),
	}
}

// Start begins the consumer's task processing loops.
func (c *RedisConsumer) Start(ctx context.Context) {
	c.logger.Info("Redis consumer started")
	c.RegisterStreamHandler(ctx, c.executorService.ProcessTask, common.RedisStreamSchedulerTaskExecution, c.cfg.Engine.RedisStreamTaskExecutionTimeout)
	c.RegisterStreamHandler(ctx, c.outcomeEvaluatorService.ProcessTask, common.RedisStreamOutcomeEvaluate, c.cfg.Engine.RedisStreamOutcomeEvaluateTimeout)

	// handle retry
	c.RegisterTickerHandler(ctx, c.outcomeEvaluatorService.ProcessRetries, c.cfg.Engine.RedisStreamOutcomeEvaluateRetryInterval, c.cfg.Engine.RedisStreamOutcomeEvaluateMaxIdleDuration, common.RedisStreamOutcomeEvaluate+"-retry")
}

func (c *RedisConsumer) RegisterStreamHandler(ctx context.Context, fn func(ctx context.Context), streamName string, timeout time.Duration) {
	c.logger.Info("Registering stream handler", logger.Field("stream", streamName))
	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Redis consumer stopping due to context cancellation")
				return
			case <-c.stopChan:
				c.logger.Info("Redis consumer stopping")
				return
			default:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			}
		}
	})
}

func (c *RedisConsumer) RegisterTickerHandler(ctx context.Context, fn func(ctx context.Context), interval time.Duration, timeout time.Duration, name string) {
	c.logger.Info("Registering ticker handler",
		logger.Field("name", name),
		logger.Field("interval", interval),
		logger.Field("timeout", timeout))
	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			case <-ctx.Done():
				c.logger.Info("Ticker handler stopping due to context cancellation", logger.Field("name", name))
				return
			case <-c.stopChan:
				c.logger.Info("Ticker handler stopping", logger.Field("name", name))
				return
			}
		}
	})
}

// Stop gracefully shuts down the consumer.
func (c *RedisConsumer) Stop() {
	c.logger.Info("Redis consumer stopped")
	close(c.stopChan)
	c.wg.Wait()
}
