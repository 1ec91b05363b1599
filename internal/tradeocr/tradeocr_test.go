package tradeocr_test

import (
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"tradecoach/internal/metrics"
	"tradecoach/internal/tradeocr"
)

func requireValue(t *testing.T, want string, got decimal.NullDecimal) {
	t.Helper()
	require.True(t, got.Valid, "expected a value, got absent")
	require.True(t, decimal.RequireFromString(want).Equal(got.Decimal), "want %s, got %s", want, got.Decimal)
}

func TestDetectPosition(t *testing.T) {
	t.Parallel()

	tests := map[string]tradeocr.Position{
		"LONG position, was previously SHORT": tradeocr.Long,
		"short 10x BTCUSDT Perp":              tradeocr.Short,
		"Short ... then long":                 tradeocr.Long,
		"BTCUSDT Perpetual 20x":               tradeocr.Unknown,
		"":                                    tradeocr.Unknown,
	}
	for text, want := range tests {
		require.Equal(t, want, tradeocr.DetectPosition(text), text)
	}
}

func TestExtractNumberNear(t *testing.T) {
	t.Parallel()

	requireValue(t, "50000", tradeocr.ExtractNumberNear("Entry Price: $50,000.00", "Entry Price"))
	requireValue(t, "1234.5", tradeocr.ExtractNumberNear("entry price 1,234.5 USDT", "Entry Price"))
	requireValue(t, "64000", tradeocr.ExtractNumberNear("Mark Price\n\n  ~ 64000. USDT", "mark price"))
	requireValue(t, "0", tradeocr.ExtractNumberNear("Entry Price 0.00", "Entry Price"))
	requireValue(t, "7", tradeocr.ExtractNumberNear("Size (x1.5) Mark... 7", "Mark"))

	require.False(t, tradeocr.ExtractNumberNear("Entry Price: --", "Entry Price").Valid)
	require.False(t, tradeocr.ExtractNumberNear("Mark Price 100", "Entry").Valid)
	require.False(t, tradeocr.ExtractNumberNear("Entry Price ,,", "Entry Price").Valid)
}

func TestExtractNumberNear_KeywordIsLiteral(t *testing.T) {
	t.Parallel()

	// regexp metacharacters in the keyword must not be interpreted
	requireValue(t, "3", tradeocr.ExtractNumberNear("Size (USDT) 3", "Size (USDT)"))
	require.False(t, tradeocr.ExtractNumberNear("SizeXUSDT 3", "Size.USDT").Valid)
}

func TestExtractPNL(t *testing.T) {
	t.Parallel()

	requireValue(t, "-20.5", tradeocr.ExtractPNL("ROE: -20.5%"))
	requireValue(t, "150.25", tradeocr.ExtractPNL("PNL (USDT) +150.25"))
	requireValue(t, "1200", tradeocr.ExtractPNL("roe 1,200%"))
	require.False(t, tradeocr.ExtractPNL("Margin 20%").Valid)
}

func TestNoteFor(t *testing.T) {
	t.Parallel()

	pnl := func(s string) decimal.NullDecimal {
		return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
	}

	require.Equal(t, tradeocr.NoteStopLoss, tradeocr.NoteFor(tradeocr.ExtractPNL("ROE: -20.5%")))
	require.Equal(t, tradeocr.NoteDefault, tradeocr.NoteFor(pnl("-20")))
	require.Equal(t, tradeocr.NoteDefault, tradeocr.NoteFor(pnl("50")))
	require.Equal(t, tradeocr.NoteTakeProfit, tradeocr.NoteFor(pnl("50.01")))
	require.Equal(t, tradeocr.NoteDefault, tradeocr.NoteFor(pnl("0")))
	require.Equal(t, tradeocr.NoteDefault, tradeocr.NoteFor(decimal.NullDecimal{}))
}

func TestExtract_FullScreenshot(t *testing.T) {
	t.Parallel()

	text := `BTCUSDT Perpetual  Long 20x
Size (USDT)   1,000.00
Entry Price   61,250.5
Mark Price    64,310.2
Liq. Price    58,100
PNL (USDT)    +49.97
ROE           +99.9%`

	f := tradeocr.NewExtractor(nil, nil).Extract(text)
	require.Equal(t, tradeocr.Long, f.Position)
	requireValue(t, "61250.5", f.Entry)
	requireValue(t, "64310.2", f.Mark)
	// PNL comes first in the text so it wins over ROE
	requireValue(t, "49.97", f.PNL)
	require.Equal(t, tradeocr.NoteDefault, f.Note)
}

func TestExtract_KeywordPriority(t *testing.T) {
	t.Parallel()

	e := tradeocr.NewExtractor(nil, nil)

	f := e.Extract("Avg Price 3.21  Last Price 3.40")
	requireValue(t, "3.21", f.Entry)
	requireValue(t, "3.40", f.Mark)

	// a zero under a higher priority keyword is a value, not a miss
	f = e.Extract("Entry Price 0 Avg Price 12")
	requireValue(t, "0", f.Entry)
}

func TestExtract_PartialAndAmbiguous(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	e := tradeocr.NewExtractor(nil, m)

	f := e.Extract("Avg Price 12.5 | Entry Price ,,")
	requireValue(t, "12.5", f.Entry)
	require.False(t, f.Mark.Valid)
	require.False(t, f.PNL.Valid)
	require.Equal(t, tradeocr.Unknown, f.Position)
	require.Equal(t, tradeocr.NoteDefault, f.Note)

	require.Equal(t, float64(2), testutil.ToFloat64(m.ExtractedFields.WithLabelValues("entry", "ambiguous")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.ExtractedFields.WithLabelValues("entry", "found")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.ExtractedFields.WithLabelValues("mark", "absent")))
}

func TestFields_JSONUsesNullForAbsent(t *testing.T) {
	t.Parallel()

	f := tradeocr.NewExtractor(nil, nil).Extract("SHORT Entry Price 0")
	b, err := json.Marshal(f)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"position": "SHORT",
		"entry": "0",
		"mark": null,
		"pnl": null,
		"note": "Trade analyzed. Remember to manage your risk."
	}`, string(b))
}
