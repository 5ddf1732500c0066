/*
This file fetches current and historical USD prices from the CoinGecko v3 API.

Current prices use /simple/price, historical prices use /coins/{id}/history with a dd-mm-yyyy date.
*/

package datafetcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var ErrInvalidPriceData = errors.New("invalid price data received")

const coinGeckoKeyHeader = "x-cg-demo-api-key"

// CoinGeckoClient is the network price source.
type CoinGeckoClient struct {
	baseURL string
	req     requester
	logger  zerolog.Logger
}

type simplePriceResponse map[string]map[string]float64

type coinHistoryResponse struct {
	ID         string `json:"id"`
	MarketData *struct {
		CurrentPrice map[string]float64 `json:"current_price"`
	} `json:"market_data"`
}

// NewCoinGeckoClient creates a client against baseURL (e.g. https://api.coingecko.com/api/v3).
func NewCoinGeckoClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *CoinGeckoClient {
	clientLogger := log.With().Str("client", "coingecko").Logger()
	req := newRequester(timeout, clientLogger)
	if apiKey != "" {
		req.headers[coinGeckoKeyHeader] = apiKey
	}
	return &CoinGeckoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		req:     req,
		logger:  clientLogger,
	}
}

// CurrentPrice returns the current USD price for a CoinGecko id.
func (c *CoinGeckoClient) CurrentPrice(ctx context.Context, id string) (float64, error) {
	prices, err := c.CurrentPrices(ctx, []string{id})
	if err != nil {
		return 0, err
	}
	price, ok := prices[id]
	if !ok {
		return 0, fmt.Errorf("%w: no usd price for %s", ErrInvalidPriceData, id)
	}
	return price, nil
}

// CurrentPrices returns current USD prices for several ids in one request. Ids without a price are
// absent from the result.
func (c *CoinGeckoClient) CurrentPrices(ctx context.Context, ids []string) (map[string]float64, error) {
	if len(ids) == 0 {
		return map[string]float64{}, nil
	}
	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, url.QueryEscape(strings.Join(ids, ",")))

	var resp simplePriceResponse
	if err := c.req.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch current prices for %s: %w", strings.Join(ids, ","), err)
	}

	prices := make(map[string]float64, len(ids))
	for _, id := range ids {
		quote, ok := resp[id]
		if !ok {
			continue
		}
		usd, ok := quote["usd"]
		if !ok {
			continue
		}
		if err := validatePrice(usd, id); err != nil {
			return nil, err
		}
		prices[id] = usd
	}

	c.logger.Debug().Strs("ids", ids).Int("priced", len(prices)).Msg("Fetched current prices")
	return prices, nil
}

// HistoricalPrice returns the USD price of id on date (dd-mm-yyyy).
func (c *CoinGeckoClient) HistoricalPrice(ctx context.Context, id, date string) (float64, error) {
	endpoint := fmt.Sprintf("%s/coins/%s/history?date=%s", c.baseURL, url.PathEscape(id), url.QueryEscape(date))

	var resp coinHistoryResponse
	if err := c.req.getJSON(ctx, endpoint, &resp); err != nil {
		return 0, fmt.Errorf("failed to fetch historical price for %s on %s: %w", id, date, err)
	}
	if resp.MarketData == nil {
		return 0, fmt.Errorf("%w: no market data for %s on %s", ErrInvalidPriceData, id, date)
	}
	usd, ok := resp.MarketData.CurrentPrice["usd"]
	if !ok {
		return 0, fmt.Errorf("%w: no usd price for %s on %s", ErrInvalidPriceData, id, date)
	}
	if err := validatePrice(usd, id); err != nil {
		return 0, err
	}

	c.logger.Debug().Str("id", id).Str("date", date).Float64("price", usd).Msg("Fetched historical price")
	return usd, nil
}

func validatePrice(price float64, id string) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return fmt.Errorf("%w: price for %s is not finite", ErrInvalidPriceData, id)
	}
	if price < 0 {
		return fmt.Errorf("%w: price for %s is negative: %f", ErrInvalidPriceData, id, price)
	}
	return nil
}
