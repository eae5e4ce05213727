// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Funding   FundingConfig   `mapstructure:"funding"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	HealthPort  int    `mapstructure:"health_port"`
}

// FundingConfig holds funding-rate aggregation settings.
type FundingConfig struct {
	// Sources to query; empty means every registered connector.
	Sources []string `mapstructure:"sources"`
	// Sources to exclude even when Sources is empty.
	DisabledSources []string `mapstructure:"disabled_sources"`

	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	RefreshInterval   time.Duration `mapstructure:"refresh_interval"`
	PerSourceTimeout  time.Duration `mapstructure:"per_source_timeout"`
	BackgroundRefresh bool          `mapstructure:"background_refresh"`
}

// ArbitrageConfig holds arbitrage analyzer thresholds.
type ArbitrageConfig struct {
	MinFundingSpreadPercent float64 `mapstructure:"min_funding_spread_percent"`
	MaxPriceSpreadPercent   float64 `mapstructure:"max_price_spread_percent"`
	MinVolume24h            float64 `mapstructure:"min_volume_24h"`
	MinSources              int     `mapstructure:"min_sources"`
	MaxTimeToFundingHours   float64 `mapstructure:"max_time_to_funding_hours"`
	IncludeWithoutVolume    bool    `mapstructure:"include_without_volume"`
	DefaultLimit            int     `mapstructure:"default_limit"`
}

// MinFundingSpreadDecimal returns the minimum funding spread as decimal.Decimal.
func (c *ArbitrageConfig) MinFundingSpreadDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinFundingSpreadPercent)
}

// MaxPriceSpreadDecimal returns the maximum price spread as decimal.Decimal.
func (c *ArbitrageConfig) MaxPriceSpreadDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxPriceSpreadPercent)
}

// MinVolumeDecimal returns the minimum 24h quote volume as decimal.Decimal.
func (c *ArbitrageConfig) MinVolumeDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinVolume24h)
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("FR")
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "FR_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "FR_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "FR_LOG_LEVEL", "LOG_LEVEL")

	// Funding
	v.BindEnv("funding.sources", "FR_SOURCES")
	v.BindEnv("funding.disabled_sources", "FR_DISABLED_SOURCES")
	v.BindEnv("funding.cache_ttl", "FR_CACHE_TTL")
	v.BindEnv("funding.refresh_interval", "FR_REFRESH_INTERVAL")
	v.BindEnv("funding.per_source_timeout", "FR_PER_SOURCE_TIMEOUT")

	// Arbitrage
	v.BindEnv("arbitrage.min_funding_spread_percent", "FR_MIN_FUNDING_SPREAD")
	v.BindEnv("arbitrage.max_price_spread_percent", "FR_MAX_PRICE_SPREAD")
	v.BindEnv("arbitrage.min_volume_24h", "FR_MIN_VOLUME_24H")

	// Telemetry
	v.BindEnv("telemetry.enabled", "FR_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "FR_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "FR_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "funding-radar")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.health_port", 8081)

	// Funding defaults
	v.SetDefault("funding.sources", []string{})
	v.SetDefault("funding.disabled_sources", []string{})
	v.SetDefault("funding.cache_ttl", "60s")
	v.SetDefault("funding.refresh_interval", "120s")
	v.SetDefault("funding.per_source_timeout", "30s")
	v.SetDefault("funding.background_refresh", true)

	// Arbitrage defaults
	v.SetDefault("arbitrage.min_funding_spread_percent", 0.01)
	v.SetDefault("arbitrage.max_price_spread_percent", 1.0)
	v.SetDefault("arbitrage.min_volume_24h", 100000)
	v.SetDefault("arbitrage.min_sources", 2)
	v.SetDefault("arbitrage.max_time_to_funding_hours", 24.0)
	v.SetDefault("arbitrage.include_without_volume", false)
	v.SetDefault("arbitrage.default_limit", 10)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "funding-radar")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Funding.CacheTTL <= 0 {
		return fmt.Errorf("funding.cache_ttl must be positive, got %s", c.Funding.CacheTTL)
	}
	if c.Funding.RefreshInterval <= 0 {
		return fmt.Errorf("funding.refresh_interval must be positive, got %s", c.Funding.RefreshInterval)
	}
	if c.Funding.PerSourceTimeout <= 0 {
		return fmt.Errorf("funding.per_source_timeout must be positive, got %s", c.Funding.PerSourceTimeout)
	}
	if c.Arbitrage.MinFundingSpreadPercent < 0 {
		return fmt.Errorf("arbitrage.min_funding_spread_percent cannot be negative")
	}
	if c.Arbitrage.MaxPriceSpreadPercent < 0 {
		return fmt.Errorf("arbitrage.max_price_spread_percent cannot be negative")
	}
	if c.Arbitrage.MinVolume24h < 0 {
		return fmt.Errorf("arbitrage.min_volume_24h cannot be negative")
	}
	if c.Arbitrage.MinSources < 2 {
		return fmt.Errorf("arbitrage.min_sources must be at least 2, got %d", c.Arbitrage.MinSources)
	}
	return nil
}
