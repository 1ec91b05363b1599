// Package symbol normalizes user supplied asset names and translates them to
// the identifier scheme each upstream uses.
package symbol

import (
	"errors"
	"fmt"
	"strings"
)

// Default is used when a request does not name an asset.
const Default = "bitcoin"

// ErrUnmapped is returned when an asset has no entry in a translation table.
var ErrUnmapped = errors.New("symbol not mapped")

// aliasMap folds tickers and spellings onto the canonical slug.
var aliasMap = map[string]string{
	"btc":      "bitcoin",
	"xbt":      "bitcoin",
	"bitcoin":  "bitcoin",
	"eth":      "ethereum",
	"ether":    "ethereum",
	"ethereum": "ethereum",
	"sol":      "solana",
	"solana":   "solana",
}

// Tickers maps canonical slugs to exchange tickers.
var Tickers = map[string]string{
	"bitcoin":  "BTC",
	"ethereum": "ETH",
	"solana":   "SOL",
}

// Normalize returns the canonical slug for s. Unknown names are lower-cased
// and passed through so the primary source can still try them.
func Normalize(s string) string {
	k := strings.ToLower(strings.TrimSpace(s))
	if k == "" {
		return Default
	}
	if norm, ok := aliasMap[k]; ok {
		return norm
	}
	return k
}

// Translator maps canonical slugs to an upstream's ticker scheme.
type Translator struct {
	Table map[string]string
	// LegacyDefault, when set, is returned for unmapped slugs instead of
	// failing. Kept for parity with the old hard-coded lookup.
	LegacyDefault string
}

// NewTranslator returns a Translator over Tickers.
func NewTranslator(legacyDefault string) Translator {
	return Translator{Table: Tickers, LegacyDefault: legacyDefault}
}

// Ticker translates a slug.
func (t Translator) Ticker(slug string) (string, error) {
	table := t.Table
	if table == nil {
		table = Tickers
	}
	if v, ok := table[Normalize(slug)]; ok {
		return v, nil
	}
	if t.LegacyDefault != "" {
		return t.LegacyDefault, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnmapped, slug)
}
