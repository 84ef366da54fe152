// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline resolves batches of addresses against the geocode cache
// and, for the misses, the external provider on a bounded worker pool.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/urnamapa/urnamapa/geocache"
	"github.com/urnamapa/urnamapa/geocode"
	"github.com/urnamapa/urnamapa/spatial"
	"github.com/urnamapa/urnamapa/utils/textutils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Defaults for a zero Pipeline.
const (
	DefaultWorkers = 10
	DefaultTimeout = 10 * time.Second
)

// Pipeline resolves addresses. The cache is shared by every batch; a batch
// never issues two provider calls for the same normalized address, but two
// concurrent batches may.
type Pipeline struct {
	Cache    geocache.Cache
	Geocoder geocode.Geocoder

	// Workers bounds concurrent provider calls.
	Workers int

	// Timeout bounds each provider call.
	Timeout time.Duration

	// Progress, when set, is called after every provider call with the
	// number of finished and total calls of the batch.
	Progress func(done, total int)
}

// Item is an address to resolve plus whatever the caller needs back.
type Item[T any] struct {
	Address string
	Value   T
}

// Result pairs an Item with its coordinate. Point is nil when the address
// could not be resolved, Err says why.
type Result[T any] struct {
	Address string
	Value   T
	Point   *spatial.Point
	Err     error
}

// Stats describes one batch.
type Stats struct {
	Items         int `json:"items"`
	Distinct      int `json:"distinct"`
	CacheHits     int `json:"cache_hits"`
	ProviderCalls int `json:"provider_calls"`
	Resolved      int `json:"resolved"`
	Failed        int `json:"failed"`
}

// Resolution is the outcome for one normalized address.
type Resolution struct {
	Point *spatial.Point
	Err   error
}

// ResolveBatch resolves every item. Results are in input order and items
// sharing a normalized address share the outcome.
func ResolveBatch[T any](ctx context.Context, p *Pipeline, items []Item[T]) ([]Result[T], Stats) {
	addresses := make([]string, len(items))
	for i, it := range items {
		addresses[i] = it.Address
	}

	resolved, stats := p.Resolve(ctx, addresses)

	ret := make([]Result[T], len(items))
	for i, it := range items {
		r := resolved[textutils.NormalizeAddress(it.Address)]
		ret[i] = Result[T]{
			Address: it.Address,
			Value:   it.Value,
			Point:   r.Point,
			Err:     r.Err,
		}
	}

	return ret, stats
}

// Resolve returns the outcome of every address keyed by its normalized form.
func (p *Pipeline) Resolve(ctx context.Context, addresses []string) (map[string]Resolution, Stats) {
	stats := Stats{Items: len(addresses)}
	ret := make(map[string]Resolution)

	// first seen original text of each miss goes to the provider
	var misses []string

	missText := make(map[string]string)

	for _, address := range addresses {
		k := textutils.NormalizeAddress(address)
		if _, ok := ret[k]; ok {
			continue
		}

		if _, ok := missText[k]; ok {
			continue
		}

		if pt, ok := p.Cache.Get(k); ok {
			ret[k] = Resolution{Point: &pt}
			stats.CacheHits++

			continue
		}

		missText[k] = address
		misses = append(misses, k)
	}

	stats.Distinct = stats.CacheHits + len(misses)

	if len(misses) > 0 {
		p.dispatch(ctx, misses, missText, ret, &stats)
	}

	for _, r := range ret {
		if r.Point != nil {
			stats.Resolved++
		} else {
			stats.Failed++
		}
	}

	zap.L().Debug("resolved address batch",
		zap.Int("items", stats.Items),
		zap.Int("distinct", stats.Distinct),
		zap.Int("cache_hits", stats.CacheHits),
		zap.Int("provider_calls", stats.ProviderCalls),
		zap.Int("failed", stats.Failed),
	)

	return ret, stats
}

func (p *Pipeline) dispatch(
	ctx context.Context,
	misses []string,
	missText map[string]string,
	ret map[string]Resolution,
	stats *Stats,
) {
	workers := p.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var (
		mu   sync.Mutex
		done int
	)

	record := func(k string, r Resolution, called bool) {
		mu.Lock()
		defer mu.Unlock()

		ret[k] = r

		if called {
			stats.ProviderCalls++
			done++

			if p.Progress != nil {
				p.Progress(done, len(misses))
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, k := range misses {
		if err := gctx.Err(); err != nil {
			record(k, Resolution{Err: err}, false)

			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				record(k, Resolution{Err: err}, false)

				return nil
			}

			pt, err := p.lookup(gctx, missText[k])
			if err != nil {
				zap.L().Warn("geocoding failed",
					zap.String("address", missText[k]),
					zap.Stringer("kind", geocode.TypeOf(err)),
					zap.Error(err),
				)
				record(k, Resolution{Err: err}, true)

				return nil
			}

			// persisted before anyone else can see it
			if err := p.Cache.Put(k, pt); err != nil {
				zap.L().Warn("caching geocode result", zap.String("address", k), zap.Error(err))
			}

			record(k, Resolution{Point: &pt}, true)

			return nil
		})
	}

	_ = g.Wait()
}

func (p *Pipeline) lookup(ctx context.Context, address string) (spatial.Point, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return p.Geocoder.Geocode(ctx, address)
}
