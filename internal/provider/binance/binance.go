// Package binance adapts the Binance spot REST API to provider.PriceSource.
// It is an optional third source; it quotes against USDT.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
	"tradecoach/internal/provider"
	"tradecoach/internal/symbol"
)

// invalidSymbolCode is the API error code Binance returns for unknown pairs.
const invalidSymbolCode = -1121

// maxKlines is the per-request candle limit of /api/v3/klines.
const maxKlines = 1000

type Config struct {
	Name    string
	BaseURL string
	Quote   string
	Symbols symbol.Translator
}

type Provider struct {
	cfg    Config
	client *gobinance.Client
	now    func() time.Time
}

// New builds a Provider. Only public market data endpoints are used so no
// API key is needed.
func New(cfg Config, hc *http.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "Binance"
	}
	if cfg.Quote == "" {
		cfg.Quote = "USDT"
	}
	if cfg.Symbols.Table == nil {
		cfg.Symbols.Table = symbol.Tickers
	}
	client := gobinance.NewClient("", "")
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}
	if hc != nil {
		client.HTTPClient = hc
	}
	return &Provider{cfg: cfg, client: client, now: time.Now}
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) pair(slug, op string) (string, error) {
	ticker, err := p.cfg.Symbols.Ticker(slug)
	if err != nil {
		return "", provider.Fail(p.cfg.Name, op, provider.ErrNoData, err)
	}
	return ticker + p.cfg.Quote, nil
}

func (p *Provider) classify(op string, err error) error {
	if common.IsAPIError(err) {
		if apiErr, ok := err.(*common.APIError); ok && apiErr.Code == invalidSymbolCode {
			return provider.Fail(p.cfg.Name, op, provider.ErrNoData, err)
		}
	}
	return provider.Fail(p.cfg.Name, op, provider.ErrTransport, err)
}

func (p *Provider) FetchSpotPrice(ctx context.Context, slug string) (decimal.Decimal, error) {
	const op = "spot"
	pair, err := p.pair(slug, op)
	if err != nil {
		return decimal.Zero, err
	}

	prices, err := p.client.NewListPricesService().Symbol(pair).Do(ctx)
	if err != nil {
		return decimal.Zero, p.classify(op, err)
	}
	for _, sp := range prices {
		if sp == nil || sp.Symbol != pair {
			continue
		}
		price, err := decimal.NewFromString(sp.Price)
		if err != nil {
			return decimal.Zero, provider.Fail(p.cfg.Name, op, provider.ErrMalformed, err)
		}
		return price, nil
	}
	return decimal.Zero, provider.Fail(p.cfg.Name, op, provider.ErrNoData, fmt.Errorf("no price for %s", pair))
}

// interval picks the finest kline interval whose candle count for the
// lookback fits in a single request.
func interval(days int) string {
	switch {
	case days*24*4 <= maxKlines:
		return "15m"
	case days*24 <= maxKlines:
		return "1h"
	case days*6 <= maxKlines:
		return "4h"
	default:
		return "1d"
	}
}

// FetchHistory returns kline close prices for the lookback window.
func (p *Provider) FetchHistory(ctx context.Context, slug string, lookbackDays int) (provider.PriceSeries, error) {
	const op = "history"
	pair, err := p.pair(slug, op)
	if err != nil {
		return nil, err
	}
	if lookbackDays <= 0 {
		lookbackDays = 1
	}

	start := p.now().AddDate(0, 0, -lookbackDays)
	klines, err := p.client.NewKlinesService().
		Symbol(pair).
		Interval(interval(lookbackDays)).
		StartTime(start.UnixMilli()).
		Limit(maxKlines).
		Do(ctx)
	if err != nil {
		return nil, p.classify(op, err)
	}
	if len(klines) == 0 {
		return nil, provider.Fail(p.cfg.Name, op, provider.ErrNoData, fmt.Errorf("no klines for %s", pair))
	}

	series := make(provider.PriceSeries, 0, len(klines))
	for i, k := range klines {
		closePrice, err := decimal.NewFromString(k.Close)
		if err != nil {
			return nil, provider.Fail(p.cfg.Name, op, provider.ErrMalformed, fmt.Errorf("kline %d close: %w", i, err))
		}
		series = append(series, provider.PricePoint{Timestamp: k.OpenTime, Price: closePrice})
	}
	return series, nil
}
