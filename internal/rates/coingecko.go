// internal/rates/coingecko.go
package rates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"brokerage-ledger/internal/domain"
)

// DefaultCoinGeckoURL is the public CoinGecko API root.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// coinGeckoIDs maps crypto currencies to CoinGecko coin ids.
var coinGeckoIDs = map[domain.Currency]string{
	domain.BTC:  "bitcoin",
	domain.ETH:  "ethereum",
	domain.USDT: "tether",
	domain.USDC: "usd-coin",
}

// CoinGecko fetches USD prices from the CoinGecko simple/price endpoint.
type CoinGecko struct {
	client *resty.Client
}

// NewCoinGecko creates a CoinGecko provider. apiKey may be empty for the public tier.
func NewCoinGecko(baseURL, apiKey string, timeout time.Duration) *CoinGecko {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader("x-cg-demo-api-key", apiKey)
	}
	return &CoinGecko{client: client}
}

func (c *CoinGecko) Name() string { return "coingecko" }

// Fetch requests all four crypto prices in one call.
func (c *CoinGecko) Fetch(ctx context.Context) (*Table, error) {
	ids := make([]string, 0, len(coinGeckoIDs))
	for _, cur := range domain.CryptoCurrencies {
		ids = append(ids, coinGeckoIDs[cur])
	}

	var result map[string]map[string]decimal.Decimal
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("ids", strings.Join(ids, ",")).
		SetQueryParam("vs_currencies", "usd").
		SetResult(&result).
		Get("/simple/price")
	if err != nil {
		return nil, fmt.Errorf("coingecko: request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("coingecko: unexpected status %d", resp.StatusCode())
	}

	usdRates := make(map[domain.Currency]decimal.Decimal, len(coinGeckoIDs))
	for cur, id := range coinGeckoIDs {
		price, ok := result[id]["usd"]
		if !ok {
			return nil, fmt.Errorf("coingecko: no usd price for %s", id)
		}
		usdRates[cur] = price
	}
	return NewTable(usdRates, c.Name(), time.Now())
}
