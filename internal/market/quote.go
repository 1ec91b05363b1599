package market

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Source tells which upstream produced a quote.
type Source int

const (
	SourcePrimary Source = iota
	SourceFallback
	SourceSimulated
)

func (s Source) String() string {
	switch s {
	case SourcePrimary:
		return "primary"
	case SourceFallback:
		return "fallback"
	case SourceSimulated:
		return "simulated"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Quote is a current price with its provenance. Source and Provider always
// name the adapter that actually answered.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Source    Source          `json:"source"`
	Provider  string          `json:"provider"`
	FetchedAt time.Time       `json:"timestamp"`
}
