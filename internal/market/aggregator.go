// Package market turns a primary and a fallback price source plus a shared
// cache into a single current price with provenance.
package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"tradecoach/internal/logger"
	"tradecoach/internal/metrics"
	"tradecoach/internal/provider"
	"tradecoach/internal/provider/cache"
	"tradecoach/internal/symbol"
)

var (
	// ErrAllSourcesUnavailable is the only price failure callers see.
	ErrAllSourcesUnavailable = errors.New("all price sources unavailable")
	// ErrInsufficientHistory means the chart could not be used for indicators.
	ErrInsufficientHistory = errors.New("insufficient price history")
)

const (
	DefaultPrimaryTimeout  = 5 * time.Second
	DefaultFallbackTimeout = 10 * time.Second
	DefaultHistoryTimeout  = 10 * time.Second
	DefaultFallbackTTL     = 30 * time.Second
)

type Options struct {
	PrimaryTimeout  time.Duration
	FallbackTimeout time.Duration
	HistoryTimeout  time.Duration
	// FallbackTTL is used for quotes from the fallback so the primary is
	// retried sooner.
	FallbackTTL time.Duration
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Now         func() time.Time
}

//go:generate mockgen -package=market_test -destination=mock_price_source_test.go tradecoach/internal/provider PriceSource

type Aggregator struct {
	primary  provider.PriceSource
	fallback provider.PriceSource
	cache    *cache.Cache
	opts     Options
	log      *zap.Logger
	sf       singleflight.Group
}

// New builds an Aggregator. fallback may be nil.
func New(primary, fallback provider.PriceSource, c *cache.Cache, opts Options) *Aggregator {
	if opts.PrimaryTimeout <= 0 {
		opts.PrimaryTimeout = DefaultPrimaryTimeout
	}
	if opts.FallbackTimeout <= 0 {
		opts.FallbackTimeout = DefaultFallbackTimeout
	}
	if opts.HistoryTimeout <= 0 {
		opts.HistoryTimeout = DefaultHistoryTimeout
	}
	if opts.FallbackTTL <= 0 {
		opts.FallbackTTL = DefaultFallbackTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if c == nil {
		c = cache.New()
	}
	return &Aggregator{
		primary:  primary,
		fallback: fallback,
		cache:    c,
		opts:     opts,
		log:      logger.OrNop(opts.Logger).Named("market"),
	}
}

// Cache exposes the cache the aggregator writes through.
func (a *Aggregator) Cache() *cache.Cache { return a.cache }

func priceKey(sym string) string { return cache.Key(sym, "price", "spot") }

func chartKey(sym string, days int) string {
	return cache.Key(sym, "chart", fmt.Sprintf("%dd", days))
}

// CurrentPrice returns the cached quote for sym or fetches a fresh one,
// trying the primary first and the fallback second.
func (a *Aggregator) CurrentPrice(ctx context.Context, sym string) (Quote, error) {
	sym = symbol.Normalize(sym)
	key := priceKey(sym)

	if q, ok := cache.Lookup[Quote](a.cache, key); ok {
		a.opts.Metrics.CacheLookup("price", true)
		a.log.Debug("cache hit", zap.String("key", key))
		return q, nil
	}
	a.opts.Metrics.CacheLookup("price", false)
	a.log.Debug("cache miss", zap.String("key", key))

	return a.fetchShared(ctx, sym)
}

// Refresh fetches a fresh quote regardless of the cache and stores it through
// the same write path as CurrentPrice.
func (a *Aggregator) Refresh(ctx context.Context, sym string) (Quote, error) {
	return a.fetchShared(ctx, symbol.Normalize(sym))
}

func (a *Aggregator) fetchShared(ctx context.Context, sym string) (Quote, error) {
	v, err, _ := a.sf.Do(priceKey(sym), func() (any, error) {
		return a.fetchQuote(ctx, sym)
	})
	if err != nil {
		return Quote{}, err
	}
	q := v.(Quote)
	a.opts.Metrics.QuoteServed(q.Source.String())
	return q, nil
}

func (a *Aggregator) fetchQuote(ctx context.Context, sym string) (Quote, error) {
	key := priceKey(sym)

	q, err := a.spot(ctx, a.primary, sym, SourcePrimary, a.opts.PrimaryTimeout)
	if err == nil {
		a.cache.Set(key, q)
		return q, nil
	}
	if a.fallback == nil {
		a.log.Error("price unavailable", zap.String("symbol", sym), zap.Error(err))
		a.opts.Metrics.AllSourcesUnavailable()
		return Quote{}, fmt.Errorf("%w: %s", ErrAllSourcesUnavailable, sym)
	}
	a.log.Warn("primary failed, trying fallback",
		zap.String("symbol", sym),
		zap.String("provider", a.primary.Name()),
		zap.String("kind", provider.KindOf(err)),
		zap.Error(err),
	)

	q, ferr := a.spot(ctx, a.fallback, sym, SourceFallback, a.opts.FallbackTimeout)
	if ferr == nil {
		a.cache.SetWithTTL(key, q, a.opts.FallbackTTL)
		return q, nil
	}
	a.log.Error("all price sources failed",
		zap.String("symbol", sym),
		zap.NamedError("primary", err),
		zap.NamedError("fallback", ferr),
	)
	a.opts.Metrics.AllSourcesUnavailable()
	return Quote{}, fmt.Errorf("%w: %s", ErrAllSourcesUnavailable, sym)
}

func (a *Aggregator) spot(ctx context.Context, src provider.PriceSource, sym string, tag Source, timeout time.Duration) (Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	price, err := src.FetchSpotPrice(ctx, sym)
	a.opts.Metrics.Upstream(src.Name(), "spot", provider.KindOf(err), time.Since(start))
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Symbol:    sym,
		Price:     price,
		Source:    tag,
		Provider:  src.Name(),
		FetchedAt: a.opts.Now(),
	}, nil
}

// History returns the primary's price series for the lookback window. There
// is no fallback; failures wrap ErrInsufficientHistory. The returned series
// is a copy and may be modified.
func (a *Aggregator) History(ctx context.Context, sym string, days int) (provider.PriceSeries, error) {
	sym = symbol.Normalize(sym)
	key := chartKey(sym, days)

	if s, ok := cache.Lookup[provider.PriceSeries](a.cache, key); ok {
		a.opts.Metrics.CacheLookup("chart", true)
		return s.Clone(), nil
	}
	a.opts.Metrics.CacheLookup("chart", false)

	v, err, _ := a.sf.Do(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, a.opts.HistoryTimeout)
		defer cancel()

		start := time.Now()
		series, err := a.primary.FetchHistory(ctx, sym, days)
		a.opts.Metrics.Upstream(a.primary.Name(), "history", provider.KindOf(err), time.Since(start))
		if err != nil {
			a.log.Warn("history fetch failed", zap.String("symbol", sym), zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrInsufficientHistory, err)
		}
		if len(series) == 0 {
			return nil, fmt.Errorf("%w: empty series for %s", ErrInsufficientHistory, sym)
		}
		a.cache.Set(key, series)
		return series, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(provider.PriceSeries).Clone(), nil
}
