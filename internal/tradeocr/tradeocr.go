// Package tradeocr pulls trade facts out of text recognized from a trading
// app screenshot. The text is noisy so every rule is a best effort match and
// an unreadable value is reported as absent, never as zero.
package tradeocr

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"tradecoach/internal/logger"
	"tradecoach/internal/metrics"
)

type Position string

const (
	Long    Position = "LONG"
	Short   Position = "SHORT"
	Unknown Position = "UNKNOWN"
)

const (
	NoteDefault    = "Trade analyzed. Remember to manage your risk."
	NoteTakeProfit = "🔥 Great profit! Consider taking some off the table."
	NoteStopLoss   = "⚠️ Watch your stop loss. Don't let it bleed."
)

var (
	profitThreshold = decimal.NewFromInt(50)
	lossThreshold   = decimal.NewFromInt(-20)
)

// Keyword candidates in priority order.
var (
	EntryKeywords = []string{"Entry Price", "Entry", "Avg Price"}
	MarkKeywords  = []string{"Mark Price", "Mark", "Last Price"}
)

var pnlPattern = regexp.MustCompile(`(?i)(?:ROE|PNL)[^0-9\-+]*([\+\-]?[0-9,]+\.?[0-9]*)`)

// Fields are the extracted trade facts. Absent numbers marshal as null.
type Fields struct {
	Position Position            `json:"position"`
	Entry    decimal.NullDecimal `json:"entry"`
	Mark     decimal.NullDecimal `json:"mark"`
	PNL      decimal.NullDecimal `json:"pnl"`
	Note     string              `json:"note"`
}

// DetectPosition reports LONG if the text mentions it anywhere, else SHORT
// if that appears, else UNKNOWN.
func DetectPosition(text string) Position {
	upper := strings.ToUpper(text)
	switch {
	case strings.Contains(upper, string(Long)):
		return Long
	case strings.Contains(upper, string(Short)):
		return Short
	default:
		return Unknown
	}
}

type status int

const (
	absent status = iota
	found
	ambiguous
)

func (s status) String() string {
	switch s {
	case found:
		return "found"
	case ambiguous:
		return "ambiguous"
	default:
		return "absent"
	}
}

func numberPattern(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(keyword) + `[^0-9]*([0-9,]+\.?[0-9]*)`)
}

// parseToken strips thousands separators and a trailing point.
func parseToken(tok string) (decimal.Decimal, status) {
	tok = strings.ReplaceAll(tok, ",", "")
	tok = strings.TrimPrefix(tok, "+")
	tok = strings.TrimSuffix(tok, ".")
	if tok == "" || tok == "-" {
		return decimal.Zero, ambiguous
	}
	d, err := decimal.NewFromString(tok)
	if err != nil {
		return decimal.Zero, ambiguous
	}
	return d, found
}

func match(re *regexp.Regexp, text string) (decimal.Decimal, string, status) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero, "", absent
	}
	d, st := parseToken(m[1])
	return d, m[1], st
}

func toNull(d decimal.Decimal, st status) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: st == found}
}

// firstNumber is match without the raw token.
func firstNumber(re *regexp.Regexp, text string) decimal.NullDecimal {
	d, _, st := match(re, text)
	return toNull(d, st)
}

// ExtractNumberNear returns the first number that follows keyword.
func ExtractNumberNear(text, keyword string) decimal.NullDecimal {
	return firstNumber(numberPattern(keyword), text)
}

// ExtractPNL returns the signed number following ROE or PNL.
func ExtractPNL(text string) decimal.NullDecimal {
	return firstNumber(pnlPattern, text)
}

// NoteFor picks the note for a P&L percentage.
func NoteFor(pnl decimal.NullDecimal) string {
	switch {
	case !pnl.Valid:
		return NoteDefault
	case pnl.Decimal.GreaterThan(profitThreshold):
		return NoteTakeProfit
	case pnl.Decimal.LessThan(lossThreshold):
		return NoteStopLoss
	default:
		return NoteDefault
	}
}

type keywordRule struct {
	keyword string
	re      *regexp.Regexp
}

func compile(keywords []string) []keywordRule {
	out := make([]keywordRule, len(keywords))
	for i, kw := range keywords {
		out[i] = keywordRule{keyword: kw, re: numberPattern(kw)}
	}
	return out
}

// Extractor runs all rules over a text. It is safe for concurrent use.
type Extractor struct {
	entry   []keywordRule
	mark    []keywordRule
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewExtractor(log *zap.Logger, m *metrics.Metrics) *Extractor {
	return &Extractor{
		entry:   compile(EntryKeywords),
		mark:    compile(MarkKeywords),
		log:     logger.OrNop(log).Named("tradeocr"),
		metrics: m,
	}
}

// Extract never fails; fields it cannot read are left absent.
func (e *Extractor) Extract(text string) Fields {
	f := Fields{
		Position: DetectPosition(text),
		Entry:    e.firstOf("entry", e.entry, text),
		Mark:     e.firstOf("mark", e.mark, text),
	}

	d, tok, st := match(pnlPattern, text)
	e.record("pnl", "ROE|PNL", tok, st)
	f.PNL = toNull(d, st)
	f.Note = NoteFor(f.PNL)
	return f
}

// firstOf tries the rules in order; an ambiguous token falls through to the
// next keyword.
func (e *Extractor) firstOf(field string, rules []keywordRule, text string) decimal.NullDecimal {
	for _, r := range rules {
		d, tok, st := match(r.re, text)
		if st == ambiguous {
			e.record(field, r.keyword, tok, st)
			continue
		}
		if st == found {
			e.record(field, r.keyword, tok, st)
			return toNull(d, st)
		}
	}
	e.metrics.Extracted(field, absent.String())
	return decimal.NullDecimal{}
}

func (e *Extractor) record(field, keyword, tok string, st status) {
	e.metrics.Extracted(field, st.String())
	if st == ambiguous {
		e.log.Debug("unparsable value",
			zap.String("field", field),
			zap.String("keyword", keyword),
			zap.String("token", tok),
		)
	}
}
