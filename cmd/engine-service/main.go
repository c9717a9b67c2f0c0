package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"stock-signal-engine/internal/engine/config"
	"stock-signal-engine/internal/engine/delivery/consumer"
	"stock-signal-engine/internal/engine/repository"
	"stock-signal-engine/internal/engine/service"
	"stock-signal-engine/internal/engine/strategy"
	"stock-signal-engine/pkg/common"
	"stock-signal-engine/pkg/logger"
	"stock-signal-engine/pkg/postgres"
	"stock-signal-engine/pkg/redis"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the engine service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Engine Service", zap.String("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", zap.Error(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Redis
	redisCfg := redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redis.NewClient(redisCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Create the consumer group if it doesn't exist
	// MKSTREAM creates the stream if it doesn't exist
	if err := redisClient.XGroupCreateMkStream(context.Background(), common.RedisStreamSchedulerTaskExecution, common.RedisStreamGroup, "0").Err(); err != nil {
		if err.Error() != "BUSYGROUP Consumer Group name already exists" {
			appLogger.Fatal("Failed to create consumer group", logger.ErrorField(err))
		}
	}
	if err := redisClient.XGroupCreateMkStream(context.Background(), common.RedisStreamOutcomeEvaluate, common.RedisStreamGroup, "0").Err(); err != nil {
		if err.Error() != "BUSYGROUP Consumer Group name already exists" {
			appLogger.Fatal("Failed to create consumer group", logger.ErrorField(err))
		}
	}

	// Initialize repositories
	jobRepo := repository.NewJobRepository(db.DB)
	historyRepo := repository.NewTaskExecutionHistoryRepository(db.DB)
	stocksRepo := repository.NewStocksRepository(db.DB)
	predictionRepo := repository.NewPredictionsRepository(db.DB, cfg.Engine.LeakageTolerance, repository.DuplicatePolicy(cfg.Engine.DuplicatePolicy))
	outcomeRepo := repository.NewOutcomesRepository(db.DB)
	featureRepo := repository.NewFeatureRepository(cfg, appLogger)
	priceRepo := repository.NewPriceRepository(cfg, appLogger)
	marketRepo := repository.NewMarketRepository(cfg, appLogger)

	// The ML component is optional. Without a model server the engine runs
	// heuristics-only.
	var modelRepo repository.ModelRepository
	if cfg.ModelAPI.BaseURL != "" {
		modelRepo = repository.NewModelRepository(cfg, appLogger)
	} else {
		appLogger.Info("No model server configured, running heuristics-only")
	}

	// Initialize services
	signalSvc := service.NewSignalService(cfg, appLogger, featureRepo, marketRepo, modelRepo, predictionRepo)
	outcomeEvaluatorSvc := service.NewOutcomeEvaluatorService(cfg, appLogger, redisClient.Client, predictionRepo, outcomeRepo, priceRepo)

	// Initialize Strategies
	strategies := []strategy.JobExecutionStrategy{
		strategy.NewHTTPStrategy(appLogger),
		strategy.NewSignalDispatchStrategy(appLogger, stocksRepo, signalSvc),
		strategy.NewOutcomeScanStrategy(appLogger, redisClient.Client, predictionRepo, cfg.Engine.MaxLookback, cfg.Redis.StreamMaxLen),
	}

	// Initialize executor service
	executorSvc := service.NewExecutorService(redisClient.Client, jobRepo, historyRepo, appLogger, strategies)

	// Initialize and start the Redis consumer
	redisConsumer := consumer.NewRedisConsumer(cfg, redisClient.Client, executorSvc, outcomeEvaluatorSvc, appLogger)
	redisConsumer.Start(ctx)

	appLogger.Info("Engine service started. Waiting for tasks...")

	// Wait for interrupt signal to gracefully shut down the service
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down engine service...")
	cancel()
	redisConsumer.Stop()
	appLogger.Info("Engine service stopped.")
}

func main() {
	rootCmd := &cobra.Command{Use: "engine-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-engine.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing engine-service CLI: %s\n", err)
		os.Exit(1)
	}
}
