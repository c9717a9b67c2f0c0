package config

import (
	"time"

	"stock-signal-engine/internal/decision"
	"stock-signal-engine/pkg/config"
	"stock-signal-engine/pkg/retry"
)

// Engine holds engine-service specific configuration.
type Engine struct {
	MaxConcurrentTasks              int           `mapstructure:"max_concurrent_tasks"`
	RedisStreamTaskExecutionTimeout time.Duration `mapstructure:"redis_stream_task_execution_timeout"`

	// Outcome evaluation stream
	RedisStreamOutcomeEvaluateTimeout         time.Duration `mapstructure:"redis_stream_outcome_evaluate_timeout"`
	RedisStreamOutcomeEvaluateRetryInterval   time.Duration `mapstructure:"redis_stream_outcome_evaluate_retry_interval"`
	RedisStreamOutcomeEvaluateMaxIdleDuration time.Duration `mapstructure:"redis_stream_outcome_evaluate_max_idle_duration"`
	RedisStreamOutcomeEvaluateMaxRetry        int           `mapstructure:"redis_stream_outcome_evaluate_max_retry"`

	// Prediction lifecycle
	LeakageTolerance  time.Duration `mapstructure:"leakage_tolerance"`
	EvaluationHorizon time.Duration `mapstructure:"evaluation_horizon"`
	MaxLookback       time.Duration `mapstructure:"max_lookback"`
	SuccessEpsilon    float64       `mapstructure:"success_epsilon"`
	DuplicatePolicy   string        `mapstructure:"duplicate_policy"` // "reject" or "upsert"

	StoreRetry retry.Policy `mapstructure:"store_retry"`
}

// ExternalAPI holds the settings shared by every outbound HTTP client.
type ExternalAPI struct {
	BaseURL             string        `mapstructure:"base_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
}

// ModelAPI holds the model-server client settings. An empty base URL
// disables the ML component entirely.
type ModelAPI struct {
	BaseURL             string        `mapstructure:"base_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
}

// Config holds the full configuration for the engine service.
type Config struct {
	App        config.App            `mapstructure:"app"`
	Logger     config.Logger         `mapstructure:"logger"`
	Database   config.Database       `mapstructure:"database"`
	Redis      config.Redis          `mapstructure:"redis"`
	Engine     Engine                `mapstructure:"engine"`
	Policy     decision.EngineConfig `mapstructure:"policy"`
	FeatureAPI ExternalAPI           `mapstructure:"feature_api"`
	PriceAPI   ExternalAPI           `mapstructure:"price_api"`
	MarketAPI  ExternalAPI           `mapstructure:"market_api"`
	ModelAPI   ModelAPI              `mapstructure:"model_api"`
}

// Load loads the engine configuration from the given path and fills in the
// compiled-in defaults for anything the file leaves unset.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults keeps a partially-specified config usable. The decision
// policy is all-or-nothing: a file without a regime table runs on the tuned
// defaults.
func applyDefaults(cfg *Config) {
	if len(cfg.Policy.Regimes) == 0 {
		cfg.Policy = decision.DefaultEngineConfig()
	}
	if cfg.Engine.LeakageTolerance == 0 {
		cfg.Engine.LeakageTolerance = 30 * time.Minute
	}
	if cfg.Engine.EvaluationHorizon == 0 {
		cfg.Engine.EvaluationHorizon = 4 * time.Hour
	}
	if cfg.Engine.MaxLookback == 0 {
		cfg.Engine.MaxLookback = 72 * time.Hour
	}
	if cfg.Engine.SuccessEpsilon == 0 {
		cfg.Engine.SuccessEpsilon = 0.002
	}
	if cfg.Engine.DuplicatePolicy == "" {
		cfg.Engine.DuplicatePolicy = "reject"
	}
	if cfg.Engine.StoreRetry.MaxAttempts == 0 {
		cfg.Engine.StoreRetry = retry.DefaultPolicy()
	}
}
