package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"tradecoach/internal/httpx"
	"tradecoach/internal/provider"
	"tradecoach/internal/symbol"
)

type Config struct {
	Name       string
	URL        string // retail API, spot prices
	CandlesURL string // exchange API, candles
	Currency   string
	// Symbols translates canonical slugs to Coinbase tickers.
	Symbols symbol.Translator
	// Now anchors the history window. Defaults to time.Now.
	Now func() time.Time
}

// Provider answers with Coinbase spot prices. It uses tickers (BTC) rather
// than slugs (bitcoin), hence the translator.
type Provider struct {
	cfg    Config
	client httpx.Doer
}

func New(cfg Config, hc httpx.Doer) *Provider {
	if cfg.Name == "" {
		cfg.Name = "Coinbase"
	}
	if cfg.URL == "" {
		cfg.URL = "https://api.coinbase.com/v2"
	}
	if cfg.CandlesURL == "" {
		cfg.CandlesURL = "https://api.exchange.coinbase.com"
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Symbols.Table == nil {
		cfg.Symbols.Table = symbol.Tickers
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) product(slug, op string) (string, error) {
	ticker, err := p.cfg.Symbols.Ticker(slug)
	if err != nil {
		return "", provider.Fail(p.cfg.Name, op, provider.ErrNoData, err)
	}
	return ticker + "-" + strings.ToUpper(p.cfg.Currency), nil
}

type spotResponse struct {
	Data struct {
		Amount   string `json:"amount"`
		Base     string `json:"base"`
		Currency string `json:"currency"`
	} `json:"data"`
}

func (p *Provider) FetchSpotPrice(ctx context.Context, slug string) (decimal.Decimal, error) {
	const op = "spot"
	pair, err := p.product(slug, op)
	if err != nil {
		return decimal.Zero, err
	}

	var body spotResponse
	u := fmt.Sprintf("%s/prices/%s/spot", p.cfg.URL, url.PathEscape(pair))
	if err := httpx.GetJSON(ctx, p.client, u, nil, &body); err != nil {
		return decimal.Zero, provider.Classify(p.cfg.Name, op, err)
	}
	if body.Data.Amount == "" {
		return decimal.Zero, provider.Fail(p.cfg.Name, op, provider.ErrNoData, fmt.Errorf("no amount for %s", pair))
	}
	price, err := decimal.NewFromString(body.Data.Amount)
	if err != nil {
		return decimal.Zero, provider.Fail(p.cfg.Name, op, provider.ErrMalformed, err)
	}
	return price, nil
}

// maxCandles is the most candles the endpoint returns for one request.
const maxCandles = 300

// granularity picks the finest candle size that keeps the window under
// maxCandles.
func granularity(days int) int {
	switch {
	case days <= 1:
		return 300
	case days <= 12:
		return 3600
	case days <= 75:
		return 21600
	default:
		return 86400
	}
}

// FetchHistory returns close prices from exchange candles covering the last
// lookbackDays. Candles older than the window are dropped.
func (p *Provider) FetchHistory(ctx context.Context, slug string, lookbackDays int) (provider.PriceSeries, error) {
	const op = "history"
	pair, err := p.product(slug, op)
	if err != nil {
		return nil, err
	}
	if lookbackDays <= 0 {
		lookbackDays = 1
	}

	gran := granularity(lookbackDays)
	end := p.cfg.Now().UTC()
	start := end.AddDate(0, 0, -lookbackDays)
	if limit := end.Add(-time.Duration(maxCandles*gran) * time.Second); start.Before(limit) {
		start = limit
	}

	query := url.Values{}
	query.Set("granularity", strconv.Itoa(gran))
	query.Set("start", start.Format(time.RFC3339))
	query.Set("end", end.Format(time.RFC3339))
	u := fmt.Sprintf("%s/products/%s/candles?%s", p.cfg.CandlesURL, url.PathEscape(pair), query.Encode())

	// [[time, low, high, open, close, volume], ...] newest first
	var rows [][]json.Number
	if err := httpx.GetJSON(ctx, p.client, u, nil, &rows); err != nil {
		return nil, provider.Classify(p.cfg.Name, op, err)
	}
	if len(rows) == 0 {
		return nil, provider.Fail(p.cfg.Name, op, provider.ErrNoData, fmt.Errorf("no candles for %s", pair))
	}

	series := make(provider.PriceSeries, 0, len(rows))
	for i, row := range rows {
		if len(row) < 5 {
			return nil, provider.Fail(p.cfg.Name, op, provider.ErrMalformed, fmt.Errorf("candle %d has %d fields", i, len(row)))
		}
		sec, err := row[0].Int64()
		if err != nil {
			return nil, provider.Fail(p.cfg.Name, op, provider.ErrMalformed, fmt.Errorf("candle %d time: %w", i, err))
		}
		closePrice, err := decimal.NewFromString(row[4].String())
		if err != nil {
			return nil, provider.Fail(p.cfg.Name, op, provider.ErrMalformed, fmt.Errorf("candle %d close: %w", i, err))
		}
		if sec < start.Unix() {
			continue
		}
		series = append(series, provider.PricePoint{Timestamp: sec * 1000, Price: closePrice})
	}
	if len(series) == 0 {
		return nil, provider.Fail(p.cfg.Name, op, provider.ErrNoData, fmt.Errorf("no candles for %s since %s", pair, start.Format(time.RFC3339)))
	}
	sort.SliceStable(series, func(i, j int) bool { return series[i].Timestamp < series[j].Timestamp })
	return series, nil
}
