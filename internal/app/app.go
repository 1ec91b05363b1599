// Package app wires configuration into the running components shared by the
// server and the CLIs.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"tradecoach/internal/advisory"
	"tradecoach/internal/coach"
	"tradecoach/internal/config"
	"tradecoach/internal/httpx"
	"tradecoach/internal/indicator"
	"tradecoach/internal/logger"
	"tradecoach/internal/market"
	"tradecoach/internal/metrics"
	"tradecoach/internal/provider"
	"tradecoach/internal/provider/binance"
	"tradecoach/internal/provider/cache"
	"tradecoach/internal/provider/coinbase"
	"tradecoach/internal/provider/coingecko"
	"tradecoach/internal/provider/ratelimit"
	"tradecoach/internal/scheduler"
	"tradecoach/internal/symbol"
	"tradecoach/internal/tradeocr"
)

type App struct {
	Config    config.Config
	Log       *zap.Logger
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Cache     *cache.Cache
	Market    *market.Aggregator
	Coach     *coach.Service
	Extractor *tradeocr.Extractor
}

func sec(n int) time.Duration { return time.Duration(n) * time.Second }

// New builds every component from cfg. cfg must be valid.
func New(cfg config.Config, log *zap.Logger) (*App, error) {
	log = logger.OrNop(log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	hc := httpx.New(sec(cfg.Server.RequestTimeoutSec))

	primary, err := NewSource(cfg.Market.Primary, cfg, hc)
	if err != nil {
		return nil, fmt.Errorf("primary: %w", err)
	}
	var fallback provider.PriceSource
	if cfg.Market.Fallback != "" {
		if fallback, err = NewSource(cfg.Market.Fallback, cfg, hc); err != nil {
			return nil, fmt.Errorf("fallback: %w", err)
		}
	}

	c := cache.New(cache.WithTTL(sec(cfg.Market.CacheTTLSec)), cache.WithMaxItems(cfg.Market.CacheMaxItems))
	agg := market.New(primary, fallback, c, market.Options{
		PrimaryTimeout:  sec(cfg.Market.PrimaryTimeoutSec),
		FallbackTimeout: sec(cfg.Market.FallbackTimeoutSec),
		HistoryTimeout:  sec(cfg.Market.HistoryTimeoutSec),
		FallbackTTL:     sec(cfg.Market.FallbackCacheTTLSec),
		Logger:          log,
		Metrics:         m,
	})

	book, err := advisory.LoadPhrasebook(cfg.Coach.PhrasesFile)
	if err != nil {
		return nil, err
	}
	var rng advisory.RNG
	if cfg.Coach.Seed != 0 {
		rng = advisory.NewRNG(cfg.Coach.Seed)
	}
	svc := coach.New(agg, advisory.NewSelector(book, cfg.Coach.Selector, rng), coach.Options{
		HistoryDays: cfg.Market.HistoryDays,
		Indicators: indicator.Config{
			RSIPeriod:        cfg.Coach.RSIPeriod,
			EMAPeriod:        cfg.Coach.EMAPeriod,
			VolatilityPeriod: cfg.Coach.VolatilityPeriod,
			SupportWindow:    cfg.Coach.SupportWindow,
		},
		Thresholds: cfg.Coach.Thresholds,
		Logger:     log,
		Metrics:    m,
	})

	log.Info("market sources",
		zap.String("primary", primary.Name()),
		zap.String("fallback", cfg.Market.Fallback),
		zap.Duration("ttl", c.TTL()),
	)

	return &App{
		Config:    cfg,
		Log:       log,
		Registry:  reg,
		Metrics:   m,
		Cache:     c,
		Market:    agg,
		Coach:     svc,
		Extractor: tradeocr.NewExtractor(log, m),
	}, nil
}

// NewScheduler returns the cache warm-up and sweep scheduler, not yet started.
func (a *App) NewScheduler(ctx context.Context) (*scheduler.Scheduler, error) {
	s := scheduler.New(ctx, a.Market, a.Cache, scheduler.Config{
		RefreshSpec: a.Config.Market.RefreshCron,
		SweepSpec:   a.Config.Market.SweepCron,
		Symbols:     a.Config.Market.Symbols,
		Timeout:     sec(a.Config.Market.PrimaryTimeoutSec + a.Config.Market.FallbackTimeoutSec),
	}, a.Log, a.Metrics)
	if err := s.RegisterAll(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewSource builds the named price source behind its rate limiter.
func NewSource(name string, cfg config.Config, hc *httpx.Client) (provider.PriceSource, error) {
	var (
		src    provider.PriceSource
		limits config.Limits
	)
	switch name {
	case config.SourceCoinGecko:
		src = coingecko.New(cfg.CoinGecko.APIKey,
			coingecko.WithHTTPClient(hc),
			coingecko.WithBaseURL(cfg.CoinGecko.BaseURL),
			coingecko.WithCurrency(cfg.CoinGecko.Currency),
		)
		limits = cfg.CoinGecko.Limits
	case config.SourceCoinbase:
		src = coinbase.New(coinbase.Config{
			URL:        cfg.Coinbase.URL,
			CandlesURL: cfg.Coinbase.CandlesURL,
			Currency:   cfg.Coinbase.Currency,
			Symbols:    symbol.NewTranslator(cfg.Coinbase.LegacyDefaultSymbol),
		}, hc)
		limits = cfg.Coinbase.Limits
	case config.SourceBinance:
		var httpClient *http.Client
		if hc != nil {
			httpClient = hc.HTTP
		}
		src = binance.New(binance.Config{
			BaseURL: cfg.Binance.BaseURL,
			Quote:   cfg.Binance.Quote,
			Symbols: symbol.NewTranslator(""),
		}, httpClient)
		limits = cfg.Binance.Limits
	default:
		return nil, fmt.Errorf("unknown price source %q", name)
	}
	return ratelimit.Wrap(src, limits.MaxRequestsPerMinute, limits.Burst, sec(limits.MinRequestIntervalSec)), nil
}
