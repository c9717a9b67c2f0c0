package repository

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"context"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"stock-signal-engine/internal/engine/config"
	"stock-signal-engine/internal/engine/dto"
	"stock-signal-engine/pkg/logger"
)

// priceWindow bounds how far past the requested instant a candle may be and
// still count as "the price at that time".
const priceWindow = 6 * time.Hour

// PriceRepository resolves realized prices from the external price source.
// GetPriceAt never returns a candle timestamped before the requested
// instant, which is what keeps entry-price backfill leakage-free.
type PriceRepository interface {
	GetPriceAt(ctx context.Context, stockCode string, at time.Time) (float64, error)
}

type priceRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
	cache          *gocache.Cache
}

// NewPriceRepository creates a new PriceRepository.
func NewPriceRepository(cfg *config.Config, log *logger.Logger) PriceRepository {
	perMinute := cfg.PriceAPI.MaxRequestPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	timeout := cfg.PriceAPI.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &priceRepository{
		cfg:            cfg,
		log:            log,
		httpClient:     &http.Client{Timeout: timeout},
		requestLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		cache:          gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// GetPriceAt returns the close of the first candle at or after the given
// instant, within the price window. A miss is ErrPriceUnavailable; the
// caller defers evaluation rather than failing it.
func (r *priceRepository) GetPriceAt(ctx context.Context, stockCode string, at time.Time) (float64, error) {
	candles, err := r.fetchCandles(ctx, stockCode, at, at.Add(priceWindow))
	if err != nil {
		return 0, err
	}

	for _, candle := range candles {
		if candle.Timestamp.Before(at) {
			continue
		}
		if candle.Close > 0 {
			return candle.Close, nil
		}
	}

	return 0, fmt.Errorf("%w: %s at %s", ErrPriceUnavailable, stockCode, at.Format(time.RFC3339))
}

func (r *priceRepository) fetchCandles(ctx context.Context, stockCode string, from, to time.Time) ([]dto.Candle, error) {
	cacheKey := fmt.Sprintf("%s:%d:%d", stockCode, from.Unix(), to.Unix())
	if cached, found := r.cache.Get(cacheKey); found {
		return cached.([]dto.Candle), nil
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", ErrPriceUnavailable, err)
	}

	url := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=15m",
		r.cfg.PriceAPI.BaseURL, stockCode, from.Unix(), to.Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.log.ErrorContext(ctx, "Price source request failed", logger.ErrorField(err), logger.StringField("stock_code", stockCode))
		return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.log.ErrorContext(ctx, "Price source returned non-OK status",
			logger.IntField("status_code", resp.StatusCode), logger.StringField("stock_code", stockCode))
		return nil, fmt.Errorf("%w: status %d", ErrPriceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	var chart dto.ChartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrPriceUnavailable, err)
	}
	if chart.Chart.Error != nil || len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: empty chart result for %s", ErrPriceUnavailable, stockCode)
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: no quote data for %s", ErrPriceUnavailable, stockCode)
	}

	quote := result.Indicators.Quote[0]
	candles := make([]dto.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		candles = append(candles, dto.Candle{
			Timestamp: time.Unix(ts, 0).UTC(),
			Close:     *quote.Close[i],
		})
	}

	r.cache.Set(cacheKey, candles, gocache.DefaultExpiration)
	return candles, nil
}
