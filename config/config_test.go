// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// no urna.yaml nor .env in an empty directory
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "opencage", cfg.Geocode.Provider)
	assert.Equal(t, "br", cfg.Geocode.CountryCode)
	assert.Equal(t, ", Acre", cfg.Geocode.AddressSuffix)
	assert.Equal(t, 10*time.Second, cfg.Geocode.Timeout)
	assert.InDelta(t, 10.0, cfg.Geocode.RateLimit, 0.001)
	assert.Equal(t, 10, cfg.Geocode.Workers)
	assert.False(t, cfg.Geocode.TraceHTTP)
	assert.Equal(t, "json", cfg.Cache.Backend)
	assert.Equal(t, "geocode_cache.json", cfg.Cache.Path)
	assert.Equal(t, "uploads", cfg.Data.UploadsDir)
	assert.Empty(t, cfg.Data.Neighborhoods)
	assert.Equal(t, 8, cfg.Map.H3Resolution)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := `
log:
  level: debug
geocode:
  provider: Google
  timeout: 3s
  workers: 4
cache:
  backend: sqlite
  path: cache.db
map:
  h3_resolution: 7
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "urna.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "google", cfg.Geocode.Provider)
	assert.Equal(t, 3*time.Second, cfg.Geocode.Timeout)
	assert.Equal(t, 4, cfg.Geocode.Workers)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, "cache.db", cfg.Cache.Path)
	assert.Equal(t, 7, cfg.Map.H3Resolution)
	// Defaults still apply for unset values
	assert.Equal(t, "uploads", cfg.Data.UploadsDir)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "urna.yaml"), []byte("geocode:\n  workers: 4\n"), 0o644))
	t.Setenv("URNA_GEOCODE_WORKERS", "16")
	t.Setenv("URNA_GEOCODE_API_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Geocode.Workers)
	assert.Equal(t, "secret", cfg.Geocode.APIKey)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	// registered first so the variable godotenv sets is restored afterwards
	t.Setenv("URNA_DATA_UPLOADS_DIR", "")
	require.NoError(t, os.Unsetenv("URNA_DATA_UPLOADS_DIR"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("URNA_DATA_UPLOADS_DIR=/srv/tse\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/tse", cfg.Data.UploadsDir)
}

func TestLoadWithBoundValues(t *testing.T) {
	t.Chdir(t.TempDir())

	v := viper.New()
	v.Set("server.addr", ":9999")

	cfg, err := LoadWith(v)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "urna.yaml"), []byte("geocode: [\n"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Geocode: GeocodeConfig{Provider: "opencage", Workers: 1, Timeout: time.Second},
			Cache:   CacheConfig{Backend: "json"},
			Map:     MapConfig{H3Resolution: 8},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"upper case provider", func(c *Config) { c.Geocode.Provider = "GOOGLE" }, ""},
		{"unknown provider", func(c *Config) { c.Geocode.Provider = "nominatim" }, "geocode.provider"},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "redis" }, "cache.backend"},
		{"no workers", func(c *Config) { c.Geocode.Workers = 0 }, "geocode.workers"},
		{"no timeout", func(c *Config) { c.Geocode.Timeout = 0 }, "geocode.timeout"},
		{"negative rate", func(c *Config) { c.Geocode.RateLimit = -1 }, "geocode.rate_limit"},
		{"resolution too fine", func(c *Config) { c.Map.H3Resolution = 16 }, "map.h3_resolution"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestInitLogger(t *testing.T) {
	orig := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(orig) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "json"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "console"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	assert.Error(t, InitLogger(LogConfig{Level: "loud"}))
}
