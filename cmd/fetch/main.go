// Command fetch prints a one-shot advisory for a list of symbols without
// starting the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"tradecoach/internal/app"
	"tradecoach/internal/coach"
	"tradecoach/internal/config"
	"tradecoach/internal/logger"
)

func main() {
	var symbolsCSV string
	var mockPrice string
	var primary string
	var fallback string
	var timeout int
	var configPath string
	var priceOnly bool

	flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", "BTC,ETH,SOL"), "comma-separated symbols")
	flag.StringVar(&mockPrice, "mock-price", "", "simulated price applied to every symbol")
	flag.StringVar(&primary, "primary", "", "override primary source (coingecko, coinbase, binance)")
	flag.StringVar(&fallback, "fallback", "", "override fallback source")
	flag.IntVar(&timeout, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 30), "overall timeout seconds")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config file (optional)")
	flag.BoolVar(&priceOnly, "price-only", false, "print quotes instead of advisories")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal("config: %v", err)
	}
	if primary != "" {
		cfg.Market.Primary = primary
	}
	if fallback != "" {
		cfg.Market.Fallback = fallback
	}
	if err := cfg.Validate(); err != nil {
		fatal("config: %v", err)
	}

	var simulated decimal.NullDecimal
	if mockPrice != "" {
		d, err := decimal.NewFromString(mockPrice)
		if err != nil || !d.IsPositive() {
			fatal("mock-price must be a positive number")
		}
		simulated = decimal.NullDecimal{Decimal: d, Valid: true}
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fatal("logger: %v", err)
	}
	defer func() { _ = log.Sync() }()
	decimal.MarshalJSONWithoutQuotes = true

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("wiring", zap.Error(err))
	}

	symbols := splitCSV(symbolsCSV)
	if len(symbols) == 0 {
		log.Fatal("no symbols provided")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	out := make([]any, len(symbols))
	var g errgroup.Group
	for i, sym := range symbols {
		g.Go(func() error {
			if priceOnly {
				q, err := a.Coach.Price(ctx, sym)
				if err != nil {
					return fmt.Errorf("%s: %w", sym, err)
				}
				out[i] = q
				return nil
			}
			adv, err := a.Coach.Advise(ctx, sym, simulated)
			if err != nil {
				return fmt.Errorf("%s: %w", sym, err)
			}
			out[i] = adv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if coach.IsUnavailable(err) {
			log.Error("no price source answered", zap.Error(err))
		} else {
			log.Error("fetch failed", zap.Error(err))
		}
	}

	results := make([]any, 0, len(out))
	for _, r := range out {
		if r != nil {
			results = append(results, r)
		}
	}
	if len(results) == 0 {
		log.Fatal("no results")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(results)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var x int
		_, _ = fmt.Sscanf(v, "%d", &x)
		if x != 0 {
			return x
		}
	}
	return def
}
