package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"tradecoach/internal/httpx"
)

// Failure kinds reported by adapters. The aggregator falls back on any of
// them; the distinction only feeds logs and metrics.
var (
	ErrNoData    = errors.New("no data for symbol")
	ErrTransport = errors.New("transport failure")
	ErrMalformed = errors.New("malformed response")
)

// PricePoint is a single (epoch-ms, price) sample.
type PricePoint struct {
	Timestamp int64           `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
}

// PriceSeries is ordered by non-decreasing timestamp.
type PriceSeries []PricePoint

// Floats returns the prices as float64 for indicator math.
func (s PriceSeries) Floats() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Price.InexactFloat64()
	}
	return out
}

// Last returns the most recent point.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[len(s)-1], true
}

// Clone returns a copy that can be modified without touching cached data.
func (s PriceSeries) Clone() PriceSeries {
	if s == nil {
		return nil
	}
	out := make(PriceSeries, len(s))
	copy(out, s)
	return out
}

// PriceSource is the uniform shape of every upstream price provider.
type PriceSource interface {
	Name() string
	FetchSpotPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	FetchHistory(ctx context.Context, symbol string, lookbackDays int) (PriceSeries, error)
}

// SourceError carries the adapter, operation and failure kind of an upstream error.
type SourceError struct {
	Provider string
	Op       string
	Kind     error
	Err      error
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Provider, e.Op, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Fail builds a *SourceError.
func Fail(providerName, op string, kind, err error) error {
	return &SourceError{Provider: providerName, Op: op, Kind: kind, Err: err}
}

// KindOf returns a short label for the failure kind of err.
func KindOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "other"
	}
}

// Classify wraps an error from an HTTP based adapter into a *SourceError
// with the matching failure kind.
func Classify(providerName, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *httpx.StatusError
	var de *httpx.DecodeError
	switch {
	case errors.As(err, &se) && se.Code == http.StatusNotFound:
		return Fail(providerName, op, ErrNoData, err)
	case errors.As(err, &de):
		return Fail(providerName, op, ErrMalformed, err)
	default:
		return Fail(providerName, op, ErrTransport, err)
	}
}
