// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the application configuration from urna.yaml, the
// environment (URNA_ prefix, .env honored) and command line flags.
package config

import (
	"errors"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment variable, e.g. URNA_GEOCODE_API_KEY.
const EnvPrefix = "URNA"

// Config holds the full application configuration.
type Config struct {
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Data    DataConfig    `yaml:"data" mapstructure:"data"`
	Map     MapConfig     `yaml:"map" mapstructure:"map"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// GeocodeConfig configures the geocoding provider and the worker pool.
type GeocodeConfig struct {
	Provider      string        `yaml:"provider" mapstructure:"provider"`
	APIKey        string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL       string        `yaml:"base_url" mapstructure:"base_url"`
	CountryCode   string        `yaml:"country_code" mapstructure:"country_code"`
	AddressSuffix string        `yaml:"address_suffix" mapstructure:"address_suffix"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RateLimit     float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	Workers       int           `yaml:"workers" mapstructure:"workers"`
	TraceHTTP     bool          `yaml:"trace_http" mapstructure:"trace_http"`
	GoogleProject string        `yaml:"google_project" mapstructure:"google_project"`
}

// CacheConfig selects the geocode cache backend.
type CacheConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// DataConfig locates the input files.
type DataConfig struct {
	UploadsDir    string `yaml:"uploads_dir" mapstructure:"uploads_dir"`
	Neighborhoods string `yaml:"neighborhoods" mapstructure:"neighborhoods"`
}

// MapConfig tunes the map layers.
type MapConfig struct {
	H3Resolution int `yaml:"h3_resolution" mapstructure:"h3_resolution"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

var (
	providers = []string{"opencage", "google"}
	backends  = []string{"json", "duckdb", "sqlite"}
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	return LoadWith(viper.New())
}

// LoadWith reads configuration into v, which may already carry bound
// flags.
func LoadWith(v *viper.Viper) (*Config, error) {
	// .env only fills variables that are not already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		zap.L().Warn("ignoring .env", zap.Error(err))
	}

	// Config file
	v.SetConfigName("urna")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("geocode.provider", "opencage")
	v.SetDefault("geocode.api_key", "")
	v.SetDefault("geocode.base_url", "")
	v.SetDefault("geocode.country_code", "br")
	v.SetDefault("geocode.address_suffix", ", Acre")
	v.SetDefault("geocode.timeout", 10*time.Second)
	v.SetDefault("geocode.rate_limit", 10)
	v.SetDefault("geocode.workers", 10)
	v.SetDefault("geocode.trace_http", false)
	v.SetDefault("geocode.google_project", "")
	v.SetDefault("cache.backend", "json")
	v.SetDefault("cache.path", "geocode_cache.json")
	v.SetDefault("data.uploads_dir", "uploads")
	v.SetDefault("data.neighborhoods", "")
	v.SetDefault("map.h3_resolution", 8)
	v.SetDefault("server.addr", "localhost:8080")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	c.Geocode.Provider = strings.ToLower(c.Geocode.Provider)
	c.Cache.Backend = strings.ToLower(c.Cache.Backend)

	switch {
	case !slices.Contains(providers, c.Geocode.Provider):
		return eris.Errorf("config: geocode.provider must be one of %v, got %q", providers, c.Geocode.Provider)
	case !slices.Contains(backends, c.Cache.Backend):
		return eris.Errorf("config: cache.backend must be one of %v, got %q", backends, c.Cache.Backend)
	case c.Geocode.Workers < 1:
		return eris.Errorf("config: geocode.workers must be positive, got %d", c.Geocode.Workers)
	case c.Geocode.Timeout <= 0:
		return eris.Errorf("config: geocode.timeout must be positive, got %s", c.Geocode.Timeout)
	case c.Geocode.RateLimit < 0:
		return eris.Errorf("config: geocode.rate_limit can't be negative, got %v", c.Geocode.RateLimit)
	case c.Map.H3Resolution < 0 || c.Map.H3Resolution > 15:
		return eris.Errorf("config: map.h3_resolution must be within 0 and 15, got %d", c.Map.H3Resolution)
	}

	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.DisableStacktrace = true
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}

	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}

	zap.ReplaceGlobals(logger)

	return nil
}
