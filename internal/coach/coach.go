// Package coach assembles the advisory payload: the current price with its
// provenance, the market classification and the coach note.
package coach

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"tradecoach/internal/advisory"
	"tradecoach/internal/indicator"
	"tradecoach/internal/logger"
	"tradecoach/internal/market"
	"tradecoach/internal/metrics"
	"tradecoach/internal/provider"
	"tradecoach/internal/symbol"
)

// BusyNote is shown when the price is known but the history is not.
const BusyNote = "Market data busy. Showing live price."

// SimulatedProvider is the provider name of a caller supplied price.
const SimulatedProvider = "simulated"

// PriceFeed is satisfied by *market.Aggregator.
type PriceFeed interface {
	CurrentPrice(ctx context.Context, sym string) (market.Quote, error)
	History(ctx context.Context, sym string, days int) (provider.PriceSeries, error)
}

type Options struct {
	HistoryDays int
	Indicators  indicator.Config
	Thresholds  advisory.Thresholds
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Now         func() time.Time
}

// Indicators are rendered with two decimals; undefined values are omitted.
type Indicators struct {
	RSI        string `json:"rsi,omitempty"`
	EMA        string `json:"ema,omitempty"`
	Volatility string `json:"volatility,omitempty"`
	Support    string `json:"support,omitempty"`
	Resistance string `json:"resistance,omitempty"`
}

type Advice struct {
	Symbol     string          `json:"symbol"`
	Price      decimal.Decimal `json:"price"`
	Source     market.Source   `json:"source"`
	Provider   string          `json:"provider"`
	Trend      advisory.Trend  `json:"trend"`
	Risk       advisory.Risk   `json:"risk"`
	Note       string          `json:"note"`
	Bucket     advisory.Bucket `json:"bucket,omitempty"`
	Indicators Indicators      `json:"indicators"`
	Degraded   bool            `json:"degraded,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

type Service struct {
	feed     PriceFeed
	selector *advisory.Selector
	opts     Options
	log      *zap.Logger
}

func New(feed PriceFeed, selector *advisory.Selector, opts Options) *Service {
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = 14
	}
	if opts.Indicators == (indicator.Config{}) {
		opts.Indicators = indicator.DefaultConfig()
	}
	if opts.Thresholds == (advisory.Thresholds{}) {
		opts.Thresholds = advisory.DefaultThresholds()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if selector == nil {
		selector = advisory.NewSelector(nil, advisory.DefaultSelectorThresholds(), nil)
	}
	return &Service{feed: feed, selector: selector, opts: opts, log: logger.OrNop(opts.Logger).Named("coach")}
}

// Price returns the current quote for sym.
func (s *Service) Price(ctx context.Context, sym string) (market.Quote, error) {
	return s.feed.CurrentPrice(ctx, symbol.Normalize(sym))
}

// Advise builds the advisory for sym. A valid simulated price replaces the
// market quote. Only a price failure is returned as an error; a history
// failure yields a degraded advice carrying the price and BusyNote.
func (s *Service) Advise(ctx context.Context, sym string, simulated decimal.NullDecimal) (Advice, error) {
	sym = symbol.Normalize(sym)
	now := s.opts.Now()

	var q market.Quote
	if simulated.Valid {
		q = market.Quote{Symbol: sym, Price: simulated.Decimal, Source: market.SourceSimulated, Provider: SimulatedProvider, FetchedAt: now}
	} else {
		var err error
		if q, err = s.feed.CurrentPrice(ctx, sym); err != nil {
			return Advice{}, err
		}
	}

	adv := Advice{
		Symbol:    sym,
		Price:     q.Price,
		Source:    q.Source,
		Provider:  q.Provider,
		Trend:     advisory.Neutral,
		Risk:      advisory.RiskMedium,
		Note:      BusyNote,
		Degraded:  true,
		Timestamp: now,
	}

	snap, err := s.analyze(ctx, sym, q.Price, now)
	if err != nil {
		s.log.Warn("history unavailable, returning price only", zap.String("symbol", sym), zap.Error(err))
		s.opts.Metrics.Degraded()
		return adv, nil
	}

	class := advisory.Classify(snap, s.opts.Thresholds)
	pick := s.selector.Select(advisory.Context{Snapshot: snap, Classification: class})
	s.opts.Metrics.Advisory(string(pick.Bucket))

	adv.Trend = class.Trend
	adv.Risk = class.Risk
	adv.Note = pick.Note
	adv.Bucket = pick.Bucket
	adv.Indicators = render(snap)
	adv.Degraded = false
	return adv, nil
}

// analyze fetches history, replaces its last point with the live price and
// computes the snapshot. RSI and EMA must both be defined.
func (s *Service) analyze(ctx context.Context, sym string, price decimal.Decimal, now time.Time) (indicator.Snapshot, error) {
	series, err := s.feed.History(ctx, sym, s.opts.HistoryDays)
	if err != nil {
		return indicator.Snapshot{}, err
	}
	if len(series) == 0 {
		return indicator.Snapshot{}, market.ErrInsufficientHistory
	}
	series[len(series)-1] = provider.PricePoint{Timestamp: now.UnixMilli(), Price: price}

	snap, err := indicator.Compute(series, s.opts.Indicators)
	if err != nil {
		return indicator.Snapshot{}, fmt.Errorf("%w: %w", market.ErrInsufficientHistory, err)
	}
	if !snap.RSI.Valid || !snap.EMA.Valid {
		return indicator.Snapshot{}, fmt.Errorf("%w: %d points", market.ErrInsufficientHistory, len(series))
	}
	return snap, nil
}

func render(snap indicator.Snapshot) Indicators {
	out := Indicators{
		Volatility: decimal.NewFromFloat(snap.VolatilityPct).StringFixed(2) + "%",
		Support:    snap.Support.StringFixed(2),
		Resistance: snap.Resistance.StringFixed(2),
	}
	if snap.RSI.Valid {
		out.RSI = decimal.NewFromFloat(snap.RSI.Value).StringFixed(2)
	}
	if snap.EMA.Valid {
		out.EMA = decimal.NewFromFloat(snap.EMA.Value).StringFixed(2)
	}
	return out
}

// IsUnavailable reports whether err means no price could be obtained.
func IsUnavailable(err error) bool {
	return errors.Is(err, market.ErrAllSourcesUnavailable)
}
