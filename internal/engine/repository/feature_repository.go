package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"stock-signal-engine/internal/engine/config"
	"stock-signal-engine/internal/entity"
	"stock-signal-engine/pkg/logger"
)

// FeatureRepository fetches the latest feature snapshot for a symbol from
// the external collector.
type FeatureRepository interface {
	GetSnapshot(ctx context.Context, stockCode string) (*entity.FeatureSnapshot, error)
}

type featureRepository struct {
	cfg        *config.Config
	log        *logger.Logger
	httpClient *http.Client
}

// NewFeatureRepository creates a new FeatureRepository.
func NewFeatureRepository(cfg *config.Config, log *logger.Logger) FeatureRepository {
	timeout := cfg.FeatureAPI.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &featureRepository{
		cfg:        cfg,
		log:        log,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (r *featureRepository) GetSnapshot(ctx context.Context, stockCode string) (*entity.FeatureSnapshot, error) {
	url := fmt.Sprintf("%s/v1/features/%s/latest", r.cfg.FeatureAPI.BaseURL, stockCode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.log.ErrorContext(ctx, "Feature collector request failed", logger.ErrorField(err), logger.StringField("stock_code", stockCode))
		return nil, fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: no snapshot for %s", ErrSnapshotUnavailable, stockCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSnapshotUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err)
	}

	var snapshot entity.FeatureSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSnapshotUnavailable, err)
	}
	if snapshot.StockCode == "" {
		snapshot.StockCode = stockCode
	}

	return &snapshot, nil
}
