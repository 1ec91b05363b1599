package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"tradecoach/internal/advisory"
)

// Source names accepted for market.primary and market.fallback.
const (
	SourceCoinGecko = "coingecko"
	SourceCoinbase  = "coinbase"
	SourceBinance   = "binance"
)

type Server struct {
	Port              string `json:"port" yaml:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
}

type Market struct {
	Primary             string   `json:"primary" yaml:"primary"`
	Fallback            string   `json:"fallback" yaml:"fallback"`
	CacheTTLSec         int      `json:"cache_ttl_sec" yaml:"cache_ttl_sec"`
	FallbackCacheTTLSec int      `json:"fallback_cache_ttl_sec" yaml:"fallback_cache_ttl_sec"`
	CacheMaxItems       int      `json:"cache_max_items" yaml:"cache_max_items"`
	PrimaryTimeoutSec   int      `json:"primary_timeout_sec" yaml:"primary_timeout_sec"`
	FallbackTimeoutSec  int      `json:"fallback_timeout_sec" yaml:"fallback_timeout_sec"`
	HistoryTimeoutSec   int      `json:"history_timeout_sec" yaml:"history_timeout_sec"`
	HistoryDays         int      `json:"history_days" yaml:"history_days"`
	Symbols             []string `json:"symbols" yaml:"symbols"`
	RefreshCron         string   `json:"refresh_cron" yaml:"refresh_cron"`
	SweepCron           string   `json:"sweep_cron" yaml:"sweep_cron"`
}

// Limits configure the upstream call gate. MaxRequestsPerMinute wins over
// MinRequestIntervalSec; zero for both disables limiting.
type Limits struct {
	MaxRequestsPerMinute  int `json:"max_requests_per_minute" yaml:"max_requests_per_minute"`
	Burst                 int `json:"burst" yaml:"burst"`
	MinRequestIntervalSec int `json:"min_request_interval_sec" yaml:"min_request_interval_sec"`
}

type CoinGecko struct {
	APIKey   string `json:"api_key" yaml:"api_key"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	Currency string `json:"currency" yaml:"currency"`
	Limits   `yaml:",inline"`
}

type Coinbase struct {
	URL        string `json:"url" yaml:"url"`
	CandlesURL string `json:"candles_url" yaml:"candles_url"`
	Currency   string `json:"currency" yaml:"currency"`
	// LegacyDefaultSymbol is used for unmapped assets instead of failing.
	LegacyDefaultSymbol string `json:"legacy_default_symbol" yaml:"legacy_default_symbol"`
	Limits              `yaml:",inline"`
}

type Binance struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	Quote   string `json:"quote" yaml:"quote"`
	Limits  `yaml:",inline"`
}

type Coach struct {
	RSIPeriod        int                         `json:"rsi_period" yaml:"rsi_period"`
	EMAPeriod        int                         `json:"ema_period" yaml:"ema_period"`
	VolatilityPeriod int                         `json:"volatility_period" yaml:"volatility_period"`
	SupportWindow    int                         `json:"support_window" yaml:"support_window"`
	Thresholds       advisory.Thresholds         `json:"thresholds" yaml:"thresholds"`
	Selector         advisory.SelectorThresholds `json:"selector" yaml:"selector"`
	PhrasesFile      string                      `json:"phrases_file" yaml:"phrases_file"`
	// Seed makes note selection reproducible; zero seeds randomly.
	Seed uint64 `json:"seed" yaml:"seed"`
}

type Log struct {
	Level       string `json:"level" yaml:"level"`
	Development bool   `json:"development" yaml:"development"`
}

type Config struct {
	Server    Server    `json:"server" yaml:"server"`
	Market    Market    `json:"market" yaml:"market"`
	CoinGecko CoinGecko `json:"coingecko" yaml:"coingecko"`
	Coinbase  Coinbase  `json:"coinbase" yaml:"coinbase"`
	Binance   Binance   `json:"binance" yaml:"binance"`
	Coach     Coach     `json:"coach" yaml:"coach"`
	Log       Log       `json:"log" yaml:"log"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "3000", RequestTimeoutSec: 15},
		Market: Market{
			Primary:             SourceCoinGecko,
			Fallback:            SourceCoinbase,
			CacheTTLSec:         60,
			FallbackCacheTTLSec: 30,
			CacheMaxItems:       10000,
			PrimaryTimeoutSec:   5,
			FallbackTimeoutSec:  10,
			HistoryTimeoutSec:   10,
			HistoryDays:         14,
			Symbols:             []string{"bitcoin", "ethereum", "solana"},
			RefreshCron:         "@every 60s",
			SweepCron:           "@every 5m",
		},
		CoinGecko: CoinGecko{
			BaseURL:  "https://api.coingecko.com/api/v3",
			Currency: "usd",
			Limits:   Limits{MaxRequestsPerMinute: 30, Burst: 5},
		},
		Coinbase: Coinbase{
			URL:        "https://api.coinbase.com/v2",
			CandlesURL: "https://api.exchange.coinbase.com",
			Currency:   "USD",
		},
		Binance: Binance{Quote: "USDT"},
		Coach: Coach{
			RSIPeriod:        14,
			EMAPeriod:        20,
			VolatilityPeriod: 14,
			Thresholds:       advisory.DefaultThresholds(),
			Selector:         advisory.DefaultSelectorThresholds(),
		},
		Log: Log{Level: "info"},
	}
}

// Load reads config from path. If path is empty, config.json, config.yaml
// or config.yml in the working directory is used when present; with no
// file the defaults apply. A .env file is loaded first if it exists, then
// environment variables override select fields.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		for _, candidate := range []string{"config.json", "config.yaml", "config.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := unmarshal(path, b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func unmarshal(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	envInt("REQUEST_TIMEOUT_SEC", &cfg.Server.RequestTimeoutSec)

	if v := os.Getenv("MARKET_PRIMARY"); v != "" {
		cfg.Market.Primary = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv("MARKET_FALLBACK"); ok {
		cfg.Market.Fallback = strings.ToLower(v)
	}
	envInt("MARKET_CACHE_TTL_SEC", &cfg.Market.CacheTTLSec)
	envInt("MARKET_FALLBACK_CACHE_TTL_SEC", &cfg.Market.FallbackCacheTTLSec)
	envInt("MARKET_HISTORY_DAYS", &cfg.Market.HistoryDays)
	if v := os.Getenv("MARKET_SYMBOLS"); v != "" {
		cfg.Market.Symbols = splitCSV(v)
	}
	if v, ok := os.LookupEnv("MARKET_REFRESH_CRON"); ok {
		cfg.Market.RefreshCron = v
	}

	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		cfg.CoinGecko.APIKey = v
	}
	envInt("COINGECKO_MAX_RPM", &cfg.CoinGecko.MaxRequestsPerMinute)
	if v, ok := os.LookupEnv("COINBASE_LEGACY_DEFAULT"); ok {
		cfg.Coinbase.LegacyDefaultSymbol = strings.ToUpper(v)
	}
	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		cfg.Binance.BaseURL = v
	}

	if v := os.Getenv("COACH_PHRASES_FILE"); v != "" {
		cfg.Coach.PhrasesFile = v
	}
	if v := os.Getenv("COACH_SEED"); v != "" {
		if x, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Coach.Seed = x
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_DEVELOPMENT"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y":
			cfg.Log.Development = true
		case "0", "false", "no", "n":
			cfg.Log.Development = false
		}
	}
}

// envInt sets *dst from key when it holds a non-negative integer.
func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if x, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && x >= 0 {
		*dst = x
	}
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

func knownSource(name string) bool {
	switch name {
	case SourceCoinGecko, SourceCoinbase, SourceBinance:
		return true
	}
	return false
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	m := c.Market
	switch {
	case !knownSource(m.Primary):
		return fmt.Errorf("market.primary: unknown source %q", m.Primary)
	case m.Fallback != "" && !knownSource(m.Fallback):
		return fmt.Errorf("market.fallback: unknown source %q", m.Fallback)
	case m.Fallback == m.Primary:
		return fmt.Errorf("market.fallback: must differ from primary %q", m.Primary)
	case m.CacheTTLSec <= 0 || m.FallbackCacheTTLSec <= 0:
		return errors.New("market: cache TTLs must be positive")
	case m.FallbackCacheTTLSec > m.CacheTTLSec:
		return fmt.Errorf("market.fallback_cache_ttl_sec (%d) must not exceed cache_ttl_sec (%d)", m.FallbackCacheTTLSec, m.CacheTTLSec)
	case m.PrimaryTimeoutSec <= 0 || m.FallbackTimeoutSec <= 0 || m.HistoryTimeoutSec <= 0:
		return errors.New("market: timeouts must be positive")
	case m.HistoryDays <= 0:
		return errors.New("market.history_days must be positive")
	}
	k := c.Coach
	if k.RSIPeriod <= 0 || k.EMAPeriod <= 0 || k.VolatilityPeriod <= 0 {
		return errors.New("coach: indicator periods must be positive")
	}
	if k.SupportWindow < 0 {
		return errors.New("coach.support_window must not be negative")
	}
	return nil
}
