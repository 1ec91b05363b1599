package provider_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"tradecoach/internal/httpx"
	"tradecoach/internal/provider"
)

func TestSourceError_MatchesKindAndCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := provider.Fail("CoinGecko", "spot", provider.ErrTransport, cause)

	require.ErrorIs(t, err, provider.ErrTransport)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, provider.ErrNoData)
	require.Equal(t, "CoinGecko spot: transport failure: connection reset", err.Error())

	var se *provider.SourceError
	require.ErrorAs(t, fmt.Errorf("outer: %w", err), &se)
	require.Equal(t, "CoinGecko", se.Provider)
	require.Equal(t, "spot", se.Op)
}

func TestSourceError_NoCause(t *testing.T) {
	t.Parallel()

	err := provider.Fail("Coinbase", "history", provider.ErrNoData, nil)
	require.ErrorIs(t, err, provider.ErrNoData)
	require.Equal(t, "Coinbase history: no data for symbol", err.Error())
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "ok"},
		{"no data", provider.Fail("x", "spot", provider.ErrNoData, nil), "no_data"},
		{"malformed", provider.Fail("x", "spot", provider.ErrMalformed, errors.New("bad")), "malformed"},
		{"timeout", provider.Fail("x", "spot", provider.ErrTransport, context.DeadlineExceeded), "timeout"},
		{"transport", provider.Fail("x", "spot", provider.ErrTransport, errors.New("refused")), "transport"},
		{"other", errors.New("boom"), "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, provider.KindOf(tt.err))
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	require.NoError(t, provider.Classify("x", "spot", nil))

	err := provider.Classify("x", "spot", &httpx.StatusError{Code: 404})
	require.ErrorIs(t, err, provider.ErrNoData)

	err = provider.Classify("x", "spot", &httpx.StatusError{Code: 503})
	require.ErrorIs(t, err, provider.ErrTransport)

	err = provider.Classify("x", "spot", &httpx.DecodeError{Err: errors.New("unexpected EOF")})
	require.ErrorIs(t, err, provider.ErrMalformed)

	err = provider.Classify("x", "spot", errors.New("dial tcp: refused"))
	require.ErrorIs(t, err, provider.ErrTransport)
}

func TestPriceSeries(t *testing.T) {
	t.Parallel()

	var empty provider.PriceSeries
	_, ok := empty.Last()
	require.False(t, ok)
	require.Nil(t, empty.Clone())

	s := provider.PriceSeries{
		{Timestamp: 1, Price: decimal.RequireFromString("10.5")},
		{Timestamp: 2, Price: decimal.RequireFromString("11")},
	}
	require.Equal(t, []float64{10.5, 11}, s.Floats())

	last, ok := s.Last()
	require.True(t, ok)
	require.EqualValues(t, 2, last.Timestamp)

	c := s.Clone()
	c[0].Price = decimal.NewFromInt(99)
	require.True(t, s[0].Price.Equal(decimal.RequireFromString("10.5")))
}
