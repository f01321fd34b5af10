// Package config loads the server configuration from an optional YAML file, an optional
// .env file and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	MarketData MarketDataConfig `yaml:"market_data"`
	QuoteCache QuoteCacheConfig `yaml:"quote_cache"`
	Exchanges  ExchangesConfig  `yaml:"exchanges"`
	Schedules  SchedulesConfig  `yaml:"schedules"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// DatabaseConfig selects and configures the persistence backend
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"` // "postgres" or "memory"
	DSN             string        `yaml:"dsn"`
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	Migrate         bool          `yaml:"migrate"`
}

// ConnectionString returns DSN or builds one from the individual fields
func (d DatabaseConfig) ConnectionString() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// RedisConfig configures the shared quote cache. When disabled the cache lives in process.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// MarketDataConfig configures the CoinMarketCap client
type MarketDataConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Limit   int           `yaml:"limit"`
	Convert string        `yaml:"convert"`
	Timeout time.Duration `yaml:"timeout"`
	RateRPS float64       `yaml:"rate_rps"`

	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

// QuoteCacheConfig holds the slot lifetimes
type QuoteCacheConfig struct {
	FreshTTL  time.Duration `yaml:"fresh_ttl"`
	BackupTTL time.Duration `yaml:"backup_ttl"`
}

// ExchangesConfig configures exchange imports
type ExchangesConfig struct {
	BinanceBaseURL string        `yaml:"binance_base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	RateRPS        float64       `yaml:"rate_rps"`
	Lookback       time.Duration `yaml:"lookback"`
}

// SchedulesConfig holds the background job intervals. Zero disables a job.
type SchedulesConfig struct {
	PriceRefresh time.Duration `yaml:"price_refresh"`
	CoinSync     time.Duration `yaml:"coin_sync"`
	Snapshot     time.Duration `yaml:"snapshot"`
	ExchangeSync time.Duration `yaml:"exchange_sync"`
}

// ServerConfig holds the listeners and the API token
type ServerConfig struct {
	GRPCAddr    string `yaml:"grpc_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	APIToken    string `yaml:"api_token"`
}

// LogConfig configures zerolog
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            "5432",
			User:            "postgres",
			Password:        "postgres",
			Name:            "cryptofolio",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			Migrate:         true,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "cryptofolio:quotes:",
		},
		MarketData: MarketDataConfig{
			BaseURL: "https://pro-api.coinmarketcap.com",
			Limit:   100,
			Convert: "USD",
			Timeout: 10 * time.Second,
			RateRPS: 1,

			BreakerFailures: 3,
			BreakerCooldown: 30 * time.Second,
		},
		QuoteCache: QuoteCacheConfig{
			FreshTTL:  15 * time.Second,
			BackupTTL: 5 * time.Minute,
		},
		Exchanges: ExchangesConfig{
			BinanceBaseURL: "https://api.binance.com",
			Timeout:        10 * time.Second,
			RateRPS:        10,
			Lookback:       30 * 24 * time.Hour,
		},
		Schedules: SchedulesConfig{
			PriceRefresh: 15 * time.Second,
			CoinSync:     2 * time.Hour,
			Snapshot:     24 * time.Hour,
			ExchangeSync: time.Hour,
		},
		Server: ServerConfig{
			GRPCAddr:    ":8080",
			MetricsAddr: ":9090",
			APIToken:    "dev-token",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if it exists),
// then the .env file (if it exists), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	// .env never overrides variables already set in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot run with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("invalid database driver %q: must be postgres or memory", c.Database.Driver)
	}
	if c.QuoteCache.FreshTTL <= 0 || c.QuoteCache.BackupTTL <= 0 {
		return errors.New("quote cache TTLs must be positive")
	}
	if c.QuoteCache.BackupTTL < c.QuoteCache.FreshTTL {
		return errors.New("quote cache backup TTL must not be shorter than the fresh TTL")
	}
	if c.MarketData.Limit <= 0 {
		return errors.New("market data limit must be positive")
	}
	if c.Server.APIToken == "" {
		return errors.New("server api token must not be empty")
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(cfg *Config) error {
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.DSN, "DB_CONN_STR")
	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Name, "DB_NAME")

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")

	setString(&cfg.MarketData.BaseURL, "COINMARKETCAP_URL")
	setString(&cfg.MarketData.APIKey, "COINMARKETCAP_API_KEY")

	setString(&cfg.Server.GRPCAddr, "GRPC_ADDRESS")
	setString(&cfg.Server.MetricsAddr, "METRICS_ADDRESS")
	setString(&cfg.Server.APIToken, "API_TOKEN")

	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	if err := setBool(&cfg.Redis.Enabled, "REDIS_ENABLED"); err != nil {
		return err
	}
	if err := setInt(&cfg.Redis.DB, "REDIS_DB"); err != nil {
		return err
	}
	if err := setInt(&cfg.MarketData.Limit, "COINMARKETCAP_LIMIT"); err != nil {
		return err
	}
	if err := setDuration(&cfg.QuoteCache.FreshTTL, "QUOTE_FRESH_TTL"); err != nil {
		return err
	}
	if err := setDuration(&cfg.QuoteCache.BackupTTL, "QUOTE_BACKUP_TTL"); err != nil {
		return err
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
