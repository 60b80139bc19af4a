// Package ratesource provides the external exchange-rate API client.
package ratesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erp/vendor-invoice/internal/domain/currency"
	"github.com/erp/vendor-invoice/internal/domain/shared/valueobject"
	"github.com/erp/vendor-invoice/internal/infrastructure/config"
)

// ErrMissingAPIKey signals that the API tier is disabled by configuration
var ErrMissingAPIKey = errors.New("exchange rate API key is not configured")

// Ensure ExchangeRatesClient implements currency.RateSource
var _ currency.RateSource = (*ExchangeRatesClient)(nil)

// ExchangeRatesClient fetches single-pair conversions from an
// exchangeratesapi.io-compatible endpoint. The API is best effort: every
// failure mode (missing key, transport error, non-2xx, success=false body)
// surfaces as an error so the resolver falls through to stored rates.
type ExchangeRatesClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewExchangeRatesClient creates a rate API client from configuration
func NewExchangeRatesClient(cfg config.RateAPIConfig, logger *zap.Logger) *ExchangeRatesClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExchangeRatesClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// convertResponse is the wire format of the convert endpoint
type convertResponse struct {
	Success bool     `json:"success"`
	Result  *float64 `json:"result"`
	Error   struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// FetchRate fetches the current rate for one currency pair
func (c *ExchangeRatesClient) FetchRate(ctx context.Context, from, to valueobject.Currency) (decimal.Decimal, error) {
	if c.apiKey == "" {
		return decimal.Decimal{}, ErrMissingAPIKey
	}

	query := url.Values{}
	query.Set("access_key", c.apiKey)
	query.Set("from", string(from))
	query.Set("to", string(to))
	query.Set("amount", "1")
	endpoint := c.baseURL + "/convert?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to build rate request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("rate API request failed",
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err),
		)
		return decimal.Decimal{}, fmt.Errorf("rate API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, fmt.Errorf("rate API returned status %d", resp.StatusCode)
	}

	var body convertResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to decode rate response: %w", err)
	}
	if !body.Success || body.Result == nil {
		c.logger.Warn("rate API reported failure",
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.String("info", body.Error.Info),
		)
		return decimal.Decimal{}, fmt.Errorf("rate API error: %s", body.Error.Info)
	}

	rate := decimal.NewFromFloat(*body.Result)
	if !rate.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("rate API returned non-positive rate %s", rate)
	}

	c.logger.Info("fetched exchange rate",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("rate", rate.String()),
	)
	return rate, nil
}
