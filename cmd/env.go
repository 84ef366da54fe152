// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/urnamapa/urnamapa/analysis"
	"github.com/urnamapa/urnamapa/config"
	"github.com/urnamapa/urnamapa/geocache"
	"github.com/urnamapa/urnamapa/geocode"
	"github.com/urnamapa/urnamapa/pipeline"
	"github.com/urnamapa/urnamapa/votes"
	"go.uber.org/zap"
)

// env holds what a command needs to build views.
type env struct {
	cache   geocache.Cache
	service *analysis.Service
}

// newEnv opens the cache and wires the analysis service from cfg. The
// geocoder is only built when withGeocoder is set, so views that never
// geocode run without credentials.
func newEnv(ctx context.Context, cfg *config.Config, withGeocoder bool) (*env, error) {
	cache, err := geocache.Open(cfg.Cache.Backend, cfg.Cache.Path)
	if err != nil {
		return nil, err
	}

	e := &env{
		cache: cache,
		service: &analysis.Service{
			Pipeline: &pipeline.Pipeline{
				Cache:   cache,
				Workers: cfg.Geocode.Workers,
				Timeout: cfg.Geocode.Timeout,
			},
			AddressSuffix: cfg.Geocode.AddressSuffix,
			H3Resolution:  cfg.Map.H3Resolution,
		},
	}

	if cfg.Data.Neighborhoods != "" {
		nb, err := votes.LoadNeighborhoodsFile(cfg.Data.Neighborhoods)
		if err != nil {
			e.Close()

			return nil, err
		}

		zap.L().Info("neighborhoods loaded", zap.String("file", cfg.Data.Neighborhoods), zap.Int("sections", len(nb)))
		e.service.Neighborhoods = nb
	}

	if withGeocoder {
		g, err := newGeocoder(ctx, cfg.Geocode)
		if err != nil {
			e.Close()

			return nil, err
		}

		e.service.Pipeline.Geocoder = g
	}

	return e, nil
}

func newGeocoder(ctx context.Context, gc config.GeocodeConfig) (geocode.Geocoder, error) {
	apiKey := gc.APIKey
	if apiKey == "" && gc.Provider == geocode.ProviderGoogle {
		zap.L().Info("geocode.api_key is not set, looking it up through ADC")

		key, err := geocode.APIKeyFromADC(ctx, gc.GoogleProject)
		if err != nil {
			return nil, eris.Wrap(err, "google maps key")
		}

		apiKey = key
	}

	var trace io.Writer
	if gc.TraceHTTP {
		trace = os.Stderr
	}

	g, err := geocode.New(geocode.Options{
		Provider:    gc.Provider,
		APIKey:      apiKey,
		BaseURL:     gc.BaseURL,
		CountryCode: gc.CountryCode,
		Timeout:     gc.Timeout,
		RateLimit:   gc.RateLimit,
		TraceWriter: trace,
		UserAgent:   "urna/" + Version,
	})
	if err != nil {
		return nil, err
	}

	zap.L().Debug("geocoder ready",
		zap.String("provider", gc.Provider),
		zap.Int("workers", gc.Workers),
		zap.Float64("rate_limit", gc.RateLimit),
	)

	return g, nil
}

func (e *env) Close() {
	if err := e.cache.Close(); err != nil {
		zap.L().Warn("closing geocode cache", zap.Error(err))
	}
}
