// Package indicator derives RSI, EMA, volatility and support/resistance
// proximity from a price series.
package indicator

import (
	"errors"
	"math"

	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"
	"tradecoach/internal/provider"
)

// ErrEmptySeries is returned by Compute for a series with no points.
var ErrEmptySeries = errors.New("empty price series")

type Config struct {
	RSIPeriod        int
	EMAPeriod        int
	VolatilityPeriod int
	// SupportWindow limits support/resistance to the last N points; zero
	// uses the whole series.
	SupportWindow int
}

func DefaultConfig() Config {
	return Config{RSIPeriod: 14, EMAPeriod: 20, VolatilityPeriod: 14}
}

// Reading is a value that may be undefined, e.g. RSI over too short a series.
type Reading struct {
	Value float64
	Valid bool
}

func valid(v float64) Reading { return Reading{Value: v, Valid: true} }

// Snapshot is recomputed per request and never stored.
type Snapshot struct {
	RSI                 Reading
	EMA                 Reading
	CurrentPrice        decimal.Decimal
	VolatilityPct       float64
	Support             decimal.Decimal
	Resistance          decimal.Decimal
	DistToSupportPct    Reading
	DistToResistancePct Reading
}

// Compute builds a Snapshot. The current price is the last point of series.
func Compute(series provider.PriceSeries, cfg Config) (Snapshot, error) {
	last, ok := series.Last()
	if !ok {
		return Snapshot{}, ErrEmptySeries
	}
	closes := series.Floats()

	snap := Snapshot{
		RSI:           RSI(closes, cfg.RSIPeriod),
		EMA:           EMA(closes, cfg.EMAPeriod),
		CurrentPrice:  last.Price,
		VolatilityPct: Volatility(closes, cfg.VolatilityPeriod),
	}

	window := series
	if cfg.SupportWindow > 0 && cfg.SupportWindow < len(series) {
		window = series[len(series)-cfg.SupportWindow:]
	}
	snap.Support, snap.Resistance = SupportResistance(window)
	snap.DistToSupportPct = Distance(snap.CurrentPrice, snap.Support, snap.Support)
	snap.DistToResistancePct = Distance(snap.Resistance, snap.CurrentPrice, snap.Resistance)
	return snap, nil
}

// RSI is Wilder's relative strength index of the last point. It needs
// period+1 prices.
func RSI(closes []float64, period int) Reading {
	if period <= 0 || len(closes) < period+1 {
		return Reading{}
	}
	if flat(closes) {
		// no losses: Wilder's convention
		return valid(100)
	}
	out := talib.Rsi(closes, period)
	return valid(math.Min(100, math.Max(0, out[len(out)-1])))
}

// EMA is the exponential moving average of the last point, seeded with the
// simple average of the first period prices.
func EMA(closes []float64, period int) Reading {
	if period <= 0 || len(closes) < period {
		return Reading{}
	}
	out := talib.Ema(closes, period)
	return valid(out[len(out)-1])
}

// Volatility is the population standard deviation of the percentage changes
// over the most recent period points. Below period+1 prices it is 0.
// Changes from or to a zero price are skipped.
func Volatility(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 0
	}
	changes := make([]float64, 0, period)
	for i := len(closes) - period; i < len(closes); i++ {
		prev, curr := closes[i-1], closes[i]
		if prev == 0 || curr == 0 {
			continue
		}
		changes = append(changes, (curr-prev)/prev*100)
	}
	if len(changes) < 2 {
		return 0
	}
	out := talib.StdDev(changes, len(changes), 1.0)
	return out[len(out)-1]
}

// SupportResistance returns the lowest and highest price of series.
func SupportResistance(series provider.PriceSeries) (support, resistance decimal.Decimal) {
	for i, p := range series {
		if i == 0 || p.Price.LessThan(support) {
			support = p.Price
		}
		if i == 0 || p.Price.GreaterThan(resistance) {
			resistance = p.Price
		}
	}
	return support, resistance
}

var hundred = decimal.NewFromInt(100)

// Distance is (a-b)/base*100. A zero base gives an invalid reading.
func Distance(a, b, base decimal.Decimal) Reading {
	if base.IsZero() {
		return Reading{}
	}
	return valid(a.Sub(b).Div(base).Mul(hundred).InexactFloat64())
}

func flat(closes []float64) bool {
	for _, c := range closes[1:] {
		if c != closes[0] {
			return false
		}
	}
	return true
}
