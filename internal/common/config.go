// Package common provides shared utilities for Buzzboard
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Buzzboard
type Config struct {
	Environment string        `toml:"environment"`
	IndexSymbol string        `toml:"index_symbol"` // quote symbol for the index itself (default "BUZZ")
	Server      ServerConfig  `toml:"server"`
	Data        DataConfig    `toml:"data"`
	Clients     ClientsConfig `toml:"clients"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DataConfig holds paths to the bundled CSV files and load parameters.
type DataConfig struct {
	Dir              string  `toml:"dir"`                // base directory for all CSV files
	CurrentHoldings  string  `toml:"current_holdings"`   // snapshot CSV filename
	Historical       string  `toml:"historical"`         // long-format history CSV filename
	Turnover         string  `toml:"turnover"`           // optional precomputed turnover CSV
	LastMonth        string  `toml:"last_month"`         // optional prior-month snapshot
	Descriptions     string  `toml:"descriptions"`       // company description CSV
	Sectors          string  `toml:"sectors"`            // ticker→sector CSV
	AssumedFundValue float64 `toml:"assumed_fund_value"` // used when MarketValue is absent
}

// Path joins the data directory with a configured filename.
func (d *DataConfig) Path(name string) string {
	return filepath.Join(d.Dir, name)
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Quotes QuotesConfig `toml:"quotes"`
}

// QuotesConfig holds quote host client configuration
type QuotesConfig struct {
	BaseURL         string `toml:"base_url"`
	RateLimit       int    `toml:"rate_limit"`
	Timeout         string `toml:"timeout"`
	RefreshInterval string `toml:"refresh_interval"` // background batch refresh cadence
}

// GetTimeout parses and returns the timeout duration
func (c *QuotesConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetRefreshInterval parses and returns the scheduler interval
func (c *QuotesConfig) GetRefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		IndexSymbol: "BUZZ",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Data: DataConfig{
			Dir:              "data",
			CurrentHoldings:  "current_holdings.csv",
			Historical:       "BuzzIndex_historical.csv",
			Turnover:         "BUZZ_Monthly_Turnover_Time_Series.csv",
			LastMonth:        "last_month.csv",
			Descriptions:     "company_description.csv",
			Sectors:          "sectors.csv",
			AssumedFundValue: 100_000_000,
		},
		Clients: ClientsConfig{
			Quotes: QuotesConfig{
				BaseURL:         "https://query1.finance.yahoo.com",
				RateLimit:       5,
				Timeout:         "10s",
				RefreshInterval: "10m",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console"},
			FilePath:   "./logs/buzzboard.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
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
	if env := os.Getenv("BUZZ_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("BUZZ_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("BUZZ_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("BUZZ_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("BUZZ_DATA_DIR"); path != "" {
		config.Data.Dir = path
	}

	if symbol := os.Getenv("BUZZ_INDEX_SYMBOL"); symbol != "" {
		config.IndexSymbol = strings.ToUpper(symbol)
	}

	if fv := os.Getenv("BUZZ_ASSUMED_FUND_VALUE"); fv != "" {
		if v, err := strconv.ParseFloat(fv, 64); err == nil && v > 0 {
			config.Data.AssumedFundValue = v
		}
	}

	if base := os.Getenv("BUZZ_QUOTES_BASE_URL"); base != "" {
		config.Clients.Quotes.BaseURL = base
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
