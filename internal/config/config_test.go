package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"tradecoach/internal/config"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "3000", cfg.Server.Port)
	require.Equal(t, config.SourceCoinGecko, cfg.Market.Primary)
	require.Equal(t, config.SourceCoinbase, cfg.Market.Fallback)
	require.Equal(t, 60, cfg.Market.CacheTTLSec)
	require.Equal(t, 30, cfg.Market.FallbackCacheTTLSec)
	require.Equal(t, 5, cfg.Market.PrimaryTimeoutSec)
	require.Equal(t, []string{"bitcoin", "ethereum", "solana"}, cfg.Market.Symbols)
	require.Equal(t, 70.0, cfg.Coach.Thresholds.Overbought)
	require.Equal(t, 3.0, cfg.Coach.Selector.HighVolatility)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, ".", "tradecoach.yaml", `
server:
  port: "8081"
market:
  primary: binance
  fallback: coingecko
  symbols: [bitcoin]
coinbase:
  legacy_default_symbol: BTC
  max_requests_per_minute: 10
coach:
  support_window: 48
  thresholds:
    overbought: 80
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "8081", cfg.Server.Port)
	require.Equal(t, config.SourceBinance, cfg.Market.Primary)
	require.Equal(t, []string{"bitcoin"}, cfg.Market.Symbols)
	require.Equal(t, "BTC", cfg.Coinbase.LegacyDefaultSymbol)
	require.Equal(t, 10, cfg.Coinbase.MaxRequestsPerMinute)
	require.Equal(t, 48, cfg.Coach.SupportWindow)
	require.Equal(t, 80.0, cfg.Coach.Thresholds.Overbought)
	// untouched fields keep their defaults
	require.Equal(t, 30.0, cfg.Coach.Thresholds.Oversold)
	require.Equal(t, 60, cfg.Market.CacheTTLSec)
}

func TestLoad_JSONDiscovered(t *testing.T) {
	t.Chdir(t.TempDir())
	writeFile(t, ".", "config.json", `{"market":{"cache_ttl_sec":90,"fallback":""},"coingecko":{"api_key":"k","burst":9}}`)

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, 90, cfg.Market.CacheTTLSec)
	require.Empty(t, cfg.Market.Fallback)
	require.Equal(t, "k", cfg.CoinGecko.APIKey)
	require.Equal(t, 9, cfg.CoinGecko.Burst)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	writeFile(t, ".", ".env", "COINGECKO_API_KEY=from-dotenv\nLOG_LEVEL=debug\n")
	// godotenv writes straight into the process environment
	t.Cleanup(func() {
		_ = os.Unsetenv("COINGECKO_API_KEY")
		_ = os.Unsetenv("LOG_LEVEL")
	})
	t.Setenv("PORT", "9999")
	t.Setenv("MARKET_CACHE_TTL_SEC", "120")
	t.Setenv("MARKET_FALLBACK_CACHE_TTL_SEC", "not-a-number")
	t.Setenv("MARKET_SYMBOLS", "bitcoin, solana ,")
	t.Setenv("MARKET_FALLBACK", "Binance")
	t.Setenv("COINBASE_LEGACY_DEFAULT", "btc")
	t.Setenv("COACH_SEED", "7")

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "9999", cfg.Server.Port)
	require.Equal(t, 120, cfg.Market.CacheTTLSec)
	require.Equal(t, 30, cfg.Market.FallbackCacheTTLSec)
	require.Equal(t, []string{"bitcoin", "solana"}, cfg.Market.Symbols)
	require.Equal(t, config.SourceBinance, cfg.Market.Fallback)
	require.Equal(t, "BTC", cfg.Coinbase.LegacyDefaultSymbol)
	require.Equal(t, uint64(7), cfg.Coach.Seed)
	require.Equal(t, "from-dotenv", cfg.CoinGecko.APIKey)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := config.Load(writeFile(t, ".", "bad.json", `{"market":`))
	require.ErrorContains(t, err, "parse config")

	_, err = config.Load(writeFile(t, ".", "bad.yaml", "market:\n  primary: kraken\n"))
	require.ErrorContains(t, err, "unknown source")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown primary", func(c *config.Config) { c.Market.Primary = "kraken" }},
		{"unknown fallback", func(c *config.Config) { c.Market.Fallback = "kraken" }},
		{"same source twice", func(c *config.Config) { c.Market.Fallback = c.Market.Primary }},
		{"zero ttl", func(c *config.Config) { c.Market.CacheTTLSec = 0 }},
		{"zero fallback ttl", func(c *config.Config) { c.Market.FallbackCacheTTLSec = 0 }},
		{"fallback ttl above primary", func(c *config.Config) { c.Market.FallbackCacheTTLSec = c.Market.CacheTTLSec + 1 }},
		{"zero timeout", func(c *config.Config) { c.Market.PrimaryTimeoutSec = 0 }},
		{"zero history", func(c *config.Config) { c.Market.HistoryDays = 0 }},
		{"zero rsi period", func(c *config.Config) { c.Coach.RSIPeriod = 0 }},
		{"negative window", func(c *config.Config) { c.Coach.SupportWindow = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}

	cfg := config.Default()
	cfg.Market.Fallback = ""
	require.NoError(t, cfg.Validate())

	cfg = config.Default()
	cfg.Market.FallbackCacheTTLSec = cfg.Market.CacheTTLSec
	require.NoError(t, cfg.Validate())
}
