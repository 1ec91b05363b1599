package advisory

import (
	"github.com/shopspring/decimal"
	"tradecoach/internal/indicator"
)

type Trend string

// trendPrecision is the number of decimal places price and EMA are rounded
// to before they are compared, so float noise in the EMA cannot flip a flat
// market into a trend.
const trendPrecision = 8

const (
	Bullish Trend = "bullish"
	Bearish Trend = "bearish"
	Neutral Trend = "neutral"
)

type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Thresholds for the risk classification. Comparisons are strict.
type Thresholds struct {
	Overbought float64 `json:"overbought" yaml:"overbought"`
	Oversold   float64 `json:"oversold" yaml:"oversold"`
	StableLow  float64 `json:"stable_low" yaml:"stable_low"`
	StableHigh float64 `json:"stable_high" yaml:"stable_high"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Overbought: 70, Oversold: 30, StableLow: 45, StableHigh: 55}
}

type Classification struct {
	Trend Trend `json:"trend"`
	Risk  Risk  `json:"risk"`
}

// Classify maps a snapshot to trend and risk. An undefined EMA gives a
// neutral trend; an undefined RSI gives medium risk.
func Classify(snap indicator.Snapshot, th Thresholds) Classification {
	c := Classification{Trend: Neutral, Risk: RiskMedium}

	if snap.EMA.Valid {
		price := snap.CurrentPrice.Round(trendPrecision)
		ema := decimal.NewFromFloat(snap.EMA.Value).Round(trendPrecision)
		switch price.Cmp(ema) {
		case 1:
			c.Trend = Bullish
		case -1:
			c.Trend = Bearish
		}
	}

	if snap.RSI.Valid {
		rsi := snap.RSI.Value
		switch {
		case rsi > th.Overbought || rsi < th.Oversold:
			c.Risk = RiskHigh
		case rsi > th.StableLow && rsi < th.StableHigh:
			c.Risk = RiskLow
		}
	}
	return c
}
