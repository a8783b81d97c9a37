// Package common provides configuration and logging shared by the server and the CLI
package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for folio
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Database    DatabaseConfig `toml:"database"`
	Logging     LoggingConfig  `toml:"logging"`
	Engine      EngineConfig   `toml:"engine"`
	Pricing     PricingConfig  `toml:"pricing"`
	Currency    CurrencyConfig `toml:"currency"`
	Clients     ClientsConfig  `toml:"clients"`
}

// ServerConfig holds gRPC server configuration
type ServerConfig struct {
	Address  string `toml:"address"`
	APIToken string `toml:"api_token"`
}

// DatabaseConfig holds the postgres connection settings.
// DSN wins over the individual fields when set.
type DatabaseConfig struct {
	DSN      string `toml:"dsn"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	SSLMode  string `toml:"sslmode"`
	Migrate  bool   `toml:"migrate"`
}

// ConnString returns the lib/pq connection string
func (c *DatabaseConfig) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// EngineConfig holds FIFO recompute configuration
type EngineConfig struct {
	SameDayPolicy string `toml:"same_day_policy"` // "in_order" or "buys_first"
	Workers       int    `toml:"workers"`
	TimeZone      string `toml:"time_zone"` // Calendar used to key snapshots and prices
}

// Location resolves the configured time zone, falling back to UTC
func (c *EngineConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PricingConfig holds price ingestion configuration
type PricingConfig struct {
	Concurrency int    `toml:"concurrency"`
	Timeout     string `toml:"timeout"`
}

// GetTimeout parses and returns the per-request timeout
func (c *PricingConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// CurrencyConfig names the reference and local currencies
type CurrencyConfig struct {
	Reference string `toml:"reference"`
	Local     string `toml:"local"`
}

// ClientsConfig holds market data client configurations
type ClientsConfig struct {
	Yahoo        ClientConfig `toml:"yahoo"`
	BTCTurk      ClientConfig `toml:"btcturk"`
	TEFAS        ClientConfig `toml:"tefas"`
	ExchangeRate ClientConfig `toml:"exchange_rate"`
}

// ClientConfig holds one HTTP client configuration
type ClientConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"` // requests per second
	UserAgent string `toml:"user_agent"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Address:  ":8080",
			APIToken: "dev-token",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Name:     "folio",
			SSLMode:  "disable",
			Migrate:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Engine: EngineConfig{
			SameDayPolicy: "in_order",
			Workers:       8,
			TimeZone:      "Europe/Istanbul",
		},
		Pricing: PricingConfig{
			Concurrency: 4,
			Timeout:     "15s",
		},
		Currency: CurrencyConfig{
			Reference: "USD",
			Local:     "TRY",
		},
		Clients: ClientsConfig{
			Yahoo: ClientConfig{
				BaseURL:   "https://query1.finance.yahoo.com",
				RateLimit: 5,
				UserAgent: "Mozilla/5.0",
			},
			BTCTurk: ClientConfig{
				BaseURL:   "https://api.btcturk.com",
				RateLimit: 5,
				UserAgent: "Mozilla/5.0",
			},
			TEFAS: ClientConfig{
				BaseURL:   "https://www.tefas.gov.tr",
				RateLimit: 2,
				UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			ExchangeRate: ClientConfig{
				BaseURL:   "https://api.exchangerate-api.com",
				RateLimit: 2,
			},
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FOLIO_ENV"); env != "" {
		config.Environment = env
	}
	if addr := os.Getenv("FOLIO_ADDRESS"); addr != "" {
		config.Server.Address = addr
	}
	if level := os.Getenv("FOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if policy := os.Getenv("FOLIO_SAME_DAY_POLICY"); policy != "" {
		config.Engine.SameDayPolicy = policy
	}

	// API_TOKEN and DB_* are kept for docker-compose setups
	if token := os.Getenv("API_TOKEN"); token != "" {
		config.Server.APIToken = token
	}
	if dsn := os.Getenv("DB_CONN_STR"); dsn != "" {
		config.Database.DSN = dsn
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		config.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Database.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		config.Database.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		config.Database.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		config.Database.Name = name
	}
}
