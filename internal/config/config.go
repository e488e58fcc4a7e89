// Package config loads the environment-sourced options documented in the
// external-interfaces section of the system spec: broker/provider selection,
// IB connection parameters, cache TTLs, worker loop timing, and the optional
// report export directory.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/quantarena/arena/pkg/errors"
)

// Config is the fully resolved, validated runtime configuration.
type Config struct {
	BrokerType         string
	MarketDataProvider string

	IBHost              string
	IBPort              int
	IBClientID          int
	IBAccount           string
	IBConnectionTimeout time.Duration
	IBOrderTimeout      time.Duration
	IBFillPollInterval  time.Duration
	IBCancelWaitTime    time.Duration

	CacheTTLDaily    time.Duration
	CacheTTLHourly   time.Duration
	CacheTTLIntraday time.Duration
	CacheL1TTL       time.Duration
	CacheL1Size      int
	MarketHoursTTL   time.Duration

	DefaultHistoryDays int
	ArenaMaxSymbols    int
	YahooMaxRetries    int
	YahooRetryDelay    time.Duration

	WorkerPollInterval time.Duration
	HeartbeatInterval  time.Duration
	StaleThreshold     time.Duration
	SweepInterval      time.Duration

	DatabaseURL string

	APIAddr string

	ReportDir string
}

// Load reads a .env file if present (ignored when absent) and then resolves
// every recognized option from the environment, applying defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		BrokerType:         getString("BROKER_TYPE", "mock"),
		MarketDataProvider: getString("MARKET_DATA_PROVIDER", "yahoo"),

		IBHost:              getString("IB_HOST", "127.0.0.1"),
		IBPort:              getInt("IB_PORT", 4002),
		IBClientID:          getInt("IB_CLIENT_ID", 1),
		IBAccount:           getString("IB_ACCOUNT", ""),
		IBConnectionTimeout: getDuration("IB_CONNECTION_TIMEOUT", 10*time.Second),
		IBOrderTimeout:      getDuration("IB_ORDER_TIMEOUT", 30*time.Second),
		IBFillPollInterval:  getDuration("IB_FILL_POLL_INTERVAL", 2*time.Second),
		IBCancelWaitTime:    getDuration("IB_CANCEL_WAIT_TIME", 5*time.Second),

		CacheTTLDaily:    getDuration("CACHE_TTL_DAILY", 24*time.Hour),
		CacheTTLHourly:   getDuration("CACHE_TTL_HOURLY", time.Hour),
		CacheTTLIntraday: getDuration("CACHE_TTL_INTRADAY", 5*time.Minute),
		CacheL1TTL:       getDuration("CACHE_L1_TTL", 30*time.Second),
		CacheL1Size:      getInt("CACHE_L1_SIZE", 200),
		MarketHoursTTL:   getDuration("MARKET_HOURS_TTL", 5*time.Minute),

		DefaultHistoryDays: getInt("DEFAULT_HISTORY_DAYS", 365),
		ArenaMaxSymbols:    getInt("ARENA_MAX_SYMBOLS", 150),
		YahooMaxRetries:    getInt("YAHOO_MAX_RETRIES", 3),
		YahooRetryDelay:    getDuration("YAHOO_RETRY_DELAY", time.Second),

		WorkerPollInterval: getDuration("WORKER_POLL_INTERVAL", 5*time.Second),
		HeartbeatInterval:  getDuration("HEARTBEAT_INTERVAL", 30*time.Second),
		StaleThreshold:     getDuration("STALE_THRESHOLD", 5*time.Minute),
		SweepInterval:      getDuration("SWEEP_INTERVAL", 60*time.Second),

		DatabaseURL: getString("DATABASE_URL", "postgres://localhost:5432/arena?sslmode=disable"),

		APIAddr: getString("API_ADDR", ":8080"),

		ReportDir: getString("REPORT_DIR", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces the fatal-misconfiguration checks: the IB port must
// match the account-id prefix, and ib_account is mandatory when
// broker_type=ib.
func (c *Config) Validate() error {
	if c.BrokerType != "mock" && c.BrokerType != "ib" {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "broker_type must be mock or ib, got %q", c.BrokerType)
	}

	switch c.MarketDataProvider {
	case "yahoo", "ib", "mock":
	default:
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "market_data_provider must be yahoo, ib, or mock, got %q", c.MarketDataProvider)
	}

	if c.BrokerType == "ib" {
		if c.IBAccount == "" {
			return errors.New(errors.ErrCodeInvalidConfiguration, "ib_account is required when broker_type=ib")
		}

		switch {
		case len(c.IBAccount) > 0 && c.IBAccount[0] == 'D':
			if c.IBPort != 4001 {
				return errors.Newf(errors.ErrCodeInvalidConfiguration, "paper account %q requires ib_port=4001, got %d", c.IBAccount, c.IBPort)
			}
		case len(c.IBAccount) > 0 && c.IBAccount[0] == 'U':
			if c.IBPort != 4002 {
				return errors.Newf(errors.ErrCodeInvalidConfiguration, "live account %q requires ib_port=4002, got %d", c.IBAccount, c.IBPort)
			}
		}
	}

	return nil
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}

	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}

	return parsed
}
