// Package ratelimit gates calls to a price source so a free-tier upstream
// is not hammered when the cache is cold.
package ratelimit

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
	"tradecoach/internal/provider"
)

// Limited wraps a PriceSource and waits on a token bucket before every call.
// Waiting respects ctx, so a caller's timeout also bounds time spent queued.
type Limited struct {
	P       provider.PriceSource
	Limiter *rate.Limiter
}

// PerMinute allows rpm calls per minute with the given burst.
func PerMinute(p provider.PriceSource, rpm, burst int) *Limited {
	if burst <= 0 {
		burst = 1
	}
	return &Limited{P: p, Limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)}
}

// MinInterval enforces at least interval between consecutive calls.
func MinInterval(p provider.PriceSource, interval time.Duration) *Limited {
	return &Limited{P: p, Limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wrap picks a limiter from the settings: rpm wins over interval, and with
// neither set p is returned unchanged.
func Wrap(p provider.PriceSource, rpm, burst int, interval time.Duration) provider.PriceSource {
	switch {
	case rpm > 0:
		return PerMinute(p, rpm, burst)
	case interval > 0:
		return MinInterval(p, interval)
	default:
		return p
	}
}

func (l *Limited) Name() string { return l.P.Name() }

func (l *Limited) wait(ctx context.Context) error {
	if l.Limiter == nil {
		return nil
	}
	return l.Limiter.Wait(ctx)
}

func (l *Limited) FetchSpotPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := l.wait(ctx); err != nil {
		return decimal.Zero, provider.Fail(l.P.Name(), "spot", provider.ErrTransport, err)
	}
	return l.P.FetchSpotPrice(ctx, symbol)
}

func (l *Limited) FetchHistory(ctx context.Context, symbol string, lookbackDays int) (provider.PriceSeries, error) {
	if err := l.wait(ctx); err != nil {
		return nil, provider.Fail(l.P.Name(), "history", provider.ErrTransport, err)
	}
	return l.P.FetchHistory(ctx, symbol, lookbackDays)
}
