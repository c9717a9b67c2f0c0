package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"stock-signal-engine/internal/decision"
	"stock-signal-engine/internal/engine/config"
	"stock-signal-engine/internal/engine/dto"
	"stock-signal-engine/internal/entity"
	"stock-signal-engine/pkg/logger"
)

// ModelRepository runs inference against the external model server. All
// failure modes wrap decision.ErrModelUnavailable so the scorer's
// missing-model policy applies uniformly.
type ModelRepository interface {
	Predict(ctx context.Context, snapshot *entity.FeatureSnapshot) (*decision.MLSignal, error)
}

type modelRepository struct {
	cfg        *config.Config
	log        *logger.Logger
	httpClient *http.Client
}

// NewModelRepository creates a new ModelRepository.
func NewModelRepository(cfg *config.Config, log *logger.Logger) ModelRepository {
	timeout := cfg.ModelAPI.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &modelRepository{
		cfg:        cfg,
		log:        log,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (r *modelRepository) Predict(ctx context.Context, snapshot *entity.FeatureSnapshot) (*decision.MLSignal, error) {
	payload := dto.ModelPredictRequest{
		StockCode: snapshot.StockCode,
		AsOf:      snapshot.Timestamp,
		Features: map[string]float64{
			"rsi":                      snapshot.RSI,
			"macd_line":                snapshot.MACDLine,
			"sma_20":                   snapshot.SMA20,
			"sma_50":                   snapshot.SMA50,
			"sentiment_score":          snapshot.SentimentScore,
			"sentiment_confidence":     snapshot.SentimentConfidence,
			"volume_trend":             snapshot.VolumeTrend,
			"volume_quality":           snapshot.VolumeQuality,
			"price_volume_correlation": snapshot.PriceVolumeCorrelation,
			"current_price":            snapshot.CurrentPrice,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", decision.ErrModelUnavailable, err)
	}

	url := fmt.Sprintf("%s/v1/predict", r.cfg.ModelAPI.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", decision.ErrModelUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.log.WarnContext(ctx, "Model server request failed", logger.ErrorField(err), logger.StringField("stock_code", snapshot.StockCode))
		return nil, fmt.Errorf("%w: %v", decision.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", decision.ErrModelUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", decision.ErrModelUnavailable, err)
	}

	var out dto.ModelPredictResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", decision.ErrModelUnavailable, err)
	}
	if out.DirectionConfidence < 0 || out.DirectionConfidence > 1 {
		return nil, fmt.Errorf("%w: direction confidence %f out of range", decision.ErrModelUnavailable, out.DirectionConfidence)
	}

	return &decision.MLSignal{
		DirectionConfidence: out.DirectionConfidence,
		Magnitude:           out.Magnitude,
		Version:             out.Version,
	}, nil
}
