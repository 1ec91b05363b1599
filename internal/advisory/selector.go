// Package advisory classifies an indicator snapshot and picks the coach note
// for it.
package advisory

import (
	"math/rand/v2"
	"sync"

	"tradecoach/internal/indicator"
)

// RNG picks an index in [0, n).
type RNG interface {
	IntN(n int) int
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRNG returns a goroutine safe RNG. The same seed gives the same picks.
func NewRNG(seed uint64) RNG {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed))}
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// SelectorThresholds drive the rule table. Comparisons are strict.
type SelectorThresholds struct {
	HighVolatility          float64 `json:"high_volatility" yaml:"high_volatility"`
	Zone                    float64 `json:"zone_pct" yaml:"zone_pct"`
	SupportOversoldRSI      float64 `json:"support_oversold_rsi" yaml:"support_oversold_rsi"`
	ResistanceOverboughtRSI float64 `json:"resistance_overbought_rsi" yaml:"resistance_overbought_rsi"`
	BullishHighRiskRSI      float64 `json:"bullish_high_risk_rsi" yaml:"bullish_high_risk_rsi"`
	MomentumRSI             float64 `json:"momentum_rsi" yaml:"momentum_rsi"`
	OversoldRSI             float64 `json:"oversold_rsi" yaml:"oversold_rsi"`
}

func DefaultSelectorThresholds() SelectorThresholds {
	return SelectorThresholds{
		HighVolatility:          3.0,
		Zone:                    2.0,
		SupportOversoldRSI:      35,
		ResistanceOverboughtRSI: 65,
		BullishHighRiskRSI:      70,
		MomentumRSI:             50,
		OversoldRSI:             30,
	}
}

// Context is what the selector reads.
type Context struct {
	indicator.Snapshot
	Classification
}

func (c Context) rsiAbove(v float64) bool { return c.RSI.Valid && c.RSI.Value > v }
func (c Context) rsiBelow(v float64) bool { return c.RSI.Valid && c.RSI.Value < v }

// Advice is the selected note and the bucket it came from.
type Advice struct {
	Bucket Bucket `json:"bucket"`
	Note   string `json:"note"`
}

type rule struct {
	match  func(Context) bool
	bucket func(Context) Bucket
}

type Selector struct {
	book  Phrasebook
	rules []rule
	rng   RNG
}

// NewSelector builds a Selector. A nil rng uses the global source.
func NewSelector(book Phrasebook, th SelectorThresholds, rng RNG) *Selector {
	if book == nil {
		book = DefaultPhrasebook()
	}
	if rng == nil {
		rng = globalRand{}
	}
	return &Selector{book: book, rules: rulesFor(th), rng: rng}
}

// rulesFor returns the rule table in priority order. The last rule always
// matches.
func rulesFor(th SelectorThresholds) []rule {
	always := func(Context) bool { return true }
	return []rule{
		{
			match:  func(c Context) bool { return c.VolatilityPct > th.HighVolatility },
			bucket: func(Context) Bucket { return HighVolatility },
		},
		{
			match: func(c Context) bool {
				return c.DistToSupportPct.Valid && c.DistToSupportPct.Value < th.Zone
			},
			bucket: func(c Context) Bucket {
				if c.rsiBelow(th.SupportOversoldRSI) {
					return SupportOversold
				}
				return NearSupport
			},
		},
		{
			match: func(c Context) bool {
				return c.DistToResistancePct.Valid && c.DistToResistancePct.Value < th.Zone
			},
			bucket: func(c Context) Bucket {
				if c.rsiAbove(th.ResistanceOverboughtRSI) {
					return ResistanceOverbought
				}
				return NearResistance
			},
		},
		{
			match: always,
			bucket: func(c Context) Bucket {
				switch c.Trend {
				case Bullish:
					switch {
					case c.rsiAbove(th.BullishHighRiskRSI):
						return BullishHighRisk
					case c.rsiAbove(th.MomentumRSI):
						return Momentum
					default:
						return Recovery
					}
				case Bearish:
					if c.rsiBelow(th.OversoldRSI) {
						return Oversold
					}
					return Downtrend
				default:
					return NeutralMarket
				}
			},
		},
	}
}

// Bucket returns the bucket of the first matching rule.
func (s *Selector) Bucket(c Context) Bucket {
	for _, r := range s.rules {
		if r.match(c) {
			return r.bucket(c)
		}
	}
	return NeutralMarket
}

// Select picks a note uniformly at random from the matching bucket.
func (s *Selector) Select(c Context) Advice {
	bucket := s.Bucket(c)
	notes := s.book[bucket]
	if len(notes) == 0 {
		return Advice{Bucket: bucket}
	}
	return Advice{Bucket: bucket, Note: notes[s.rng.IntN(len(notes))]}
}
