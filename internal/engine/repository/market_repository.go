package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"stock-signal-engine/internal/engine/config"
	"stock-signal-engine/internal/engine/dto"
	"stock-signal-engine/pkg/logger"
)

const marketTrendCacheKey = "market:sector_trend"

// MarketRepository provides the aggregate sector trend used for regime
// classification. Failures surface as errors so the caller can decide the
// degraded behavior; this layer never substitutes a default.
type MarketRepository interface {
	GetSectorTrend(ctx context.Context) (*dto.MarketTrendResponse, error)
}

type marketRepository struct {
	cfg        *config.Config
	log        *logger.Logger
	httpClient *http.Client
	cache      *gocache.Cache
}

// NewMarketRepository creates a new MarketRepository.
func NewMarketRepository(cfg *config.Config, log *logger.Logger) MarketRepository {
	timeout := cfg.MarketAPI.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &marketRepository{
		cfg:        cfg,
		log:        log,
		httpClient: &http.Client{Timeout: timeout},
		cache:      gocache.New(5*time.Minute, 10*time.Minute),
	}
}

func (r *marketRepository) GetSectorTrend(ctx context.Context) (*dto.MarketTrendResponse, error) {
	if cached, found := r.cache.Get(marketTrendCacheKey); found {
		return cached.(*dto.MarketTrendResponse), nil
	}

	url := fmt.Sprintf("%s/v1/market/trend", r.cfg.MarketAPI.BaseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.log.WarnContext(ctx, "Market trend request failed", logger.ErrorField(err))
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market trend source returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var trend dto.MarketTrendResponse
	if err := json.Unmarshal(body, &trend); err != nil {
		return nil, fmt.Errorf("decode market trend: %w", err)
	}

	r.cache.Set(marketTrendCacheKey, &trend, gocache.DefaultExpiration)
	return &trend, nil
}
