package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"tradecoach/internal/httpx"
	"tradecoach/internal/provider"
)

// FetchSpotPrice returns the current price of a coin id (e.g. "bitcoin").
func (c *Client) FetchSpotPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	const op = "spot"
	query := url.Values{}
	query.Set("ids", symbol)
	query.Set("vs_currencies", c.currency)

	// {"bitcoin": {"usd": 50123.45}}
	var body map[string]map[string]json.Number
	if err := httpx.GetJSON(ctx, c.httpClient, c.endpoint("/simple/price", query), c.header, &body); err != nil {
		return decimal.Zero, provider.Classify(c.name, op, err)
	}

	quotes, ok := body[symbol]
	if !ok {
		return decimal.Zero, provider.Fail(c.name, op, provider.ErrNoData, fmt.Errorf("id %q missing from response", symbol))
	}
	raw, ok := quotes[strings.ToLower(c.currency)]
	if !ok {
		return decimal.Zero, provider.Fail(c.name, op, provider.ErrNoData, fmt.Errorf("currency %q missing for %q", c.currency, symbol))
	}
	price, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, provider.Fail(c.name, op, provider.ErrMalformed, err)
	}
	return price, nil
}

type marketChart struct {
	Prices [][]json.Number `json:"prices"`
}

// FetchHistory returns lookbackDays of prices for a coin id. CoinGecko picks
// the granularity: 5-minute for one day, hourly up to 90 days.
func (c *Client) FetchHistory(ctx context.Context, symbol string, lookbackDays int) (provider.PriceSeries, error) {
	const op = "history"
	if lookbackDays <= 0 {
		lookbackDays = 1
	}
	query := url.Values{}
	query.Set("vs_currency", c.currency)
	query.Set("days", strconv.Itoa(lookbackDays))

	var body marketChart
	path := "/coins/" + url.PathEscape(symbol) + "/market_chart"
	if err := httpx.GetJSON(ctx, c.httpClient, c.endpoint(path, query), c.header, &body); err != nil {
		return nil, provider.Classify(c.name, op, err)
	}
	if len(body.Prices) == 0 {
		return nil, provider.Fail(c.name, op, provider.ErrNoData, fmt.Errorf("empty chart for %q", symbol))
	}

	series := make(provider.PriceSeries, 0, len(body.Prices))
	for i, pair := range body.Prices {
		// [1711929600000, 70744.15]
		if len(pair) != 2 {
			return nil, provider.Fail(c.name, op, provider.ErrMalformed, fmt.Errorf("point %d has %d fields", i, len(pair)))
		}
		ts, err := parseMillis(pair[0])
		if err != nil {
			return nil, provider.Fail(c.name, op, provider.ErrMalformed, fmt.Errorf("point %d timestamp: %w", i, err))
		}
		price, err := decimal.NewFromString(pair[1].String())
		if err != nil {
			return nil, provider.Fail(c.name, op, provider.ErrMalformed, fmt.Errorf("point %d price: %w", i, err))
		}
		series = append(series, provider.PricePoint{Timestamp: ts, Price: price})
	}
	sort.SliceStable(series, func(i, j int) bool { return series[i].Timestamp < series[j].Timestamp })
	return series, nil
}

func parseMillis(n json.Number) (int64, error) {
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
