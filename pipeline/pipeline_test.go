// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urnamapa/urnamapa/geocache"
	"github.com/urnamapa/urnamapa/geocode"
	"github.com/urnamapa/urnamapa/spatial"
)

// countingGeocoder answers from a fixed table and counts calls per address.
type countingGeocoder struct {
	mu     sync.Mutex
	calls  map[string]int
	table  map[string]spatial.Point
	delay  time.Duration
	active atomic.Int32
	peak   atomic.Int32
}

func newCountingGeocoder(table map[string]spatial.Point) *countingGeocoder {
	return &countingGeocoder{calls: make(map[string]int), table: table}
}

func (g *countingGeocoder) Geocode(ctx context.Context, address string) (spatial.Point, error) {
	n := g.active.Add(1)
	defer g.active.Add(-1)

	for {
		peak := g.peak.Load()
		if n <= peak || g.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	g.mu.Lock()
	g.calls[address]++
	g.mu.Unlock()

	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return spatial.Point{}, &geocode.Error{Type: geocode.ErrorTypeTimeout, Message: "slow", Err: ctx.Err()}
		}
	}

	if p, ok := g.table[address]; ok {
		return p, nil
	}

	return spatial.Point{}, &geocode.Error{Type: geocode.ErrorTypeNotFound, Message: "no results"}
}

func (g *countingGeocoder) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for _, c := range g.calls {
		n += c
	}

	return n
}

func newPipeline(t *testing.T, g geocode.Geocoder) *Pipeline {
	t.Helper()

	return &Pipeline{
		Cache:    geocache.OpenJSON(filepath.Join(t.TempDir(), "geocode_cache.json")),
		Geocoder: g,
		Workers:  4,
		Timeout:  time.Second,
	}
}

func TestResolveRepeatedAddressCallsProviderOnce(t *testing.T) {
	g := newCountingGeocoder(map[string]spatial.Point{
		"Rua X, 1": {Lat: 1.5, Lng: 2.5},
	})
	p := newPipeline(t, g)

	results, stats := ResolveBatch(context.Background(), p, []Item[int]{
		{Address: "Rua X, 1", Value: 1},
		{Address: "Rua X, 1", Value: 2},
	})

	require.Len(t, results, 2)

	for i, r := range results {
		require.NotNil(t, r.Point)
		assert.Equal(t, spatial.Point{Lat: 1.5, Lng: 2.5}, *r.Point)
		assert.Equal(t, i+1, r.Value)
	}

	assert.Equal(t, 1, g.total())
	assert.Equal(t, Stats{Items: 2, Distinct: 1, ProviderCalls: 1, Resolved: 1}, stats)

	// a second batch is served from the cache
	_, stats = ResolveBatch(context.Background(), p, []Item[int]{{Address: "rua x, 1"}})
	assert.Equal(t, 1, g.total())
	assert.Equal(t, 1, stats.CacheHits)
	assert.Equal(t, 0, stats.ProviderCalls)
}

func TestResolveCallsEqualDistinctUncached(t *testing.T) {
	table := make(map[string]spatial.Point)
	for i := range 20 {
		table[fmt.Sprintf("Rua %d", i)] = spatial.Point{Lat: float64(i), Lng: float64(-i)}
	}

	g := newCountingGeocoder(table)
	g.delay = 5 * time.Millisecond
	p := newPipeline(t, g)

	require.NoError(t, p.Cache.Put("Rua 0", table["Rua 0"]))
	require.NoError(t, p.Cache.Put("Rua 1", table["Rua 1"]))

	var items []Item[string]
	for round := range 3 {
		for i := range 20 {
			items = append(items, Item[string]{Address: fmt.Sprintf("Rua %d", i), Value: fmt.Sprint(round)})
		}
	}

	items = append(items, Item[string]{Address: "Nowhere"})

	var progress atomic.Int32

	p.Progress = func(done, total int) {
		progress.Add(1)
		assert.Equal(t, 19, total)
		assert.LessOrEqual(t, done, total)
	}

	results, stats := ResolveBatch(context.Background(), p, items)

	assert.Equal(t, 19, g.total(), "18 uncached addresses plus the unknown one")
	assert.Equal(t, int32(19), progress.Load())
	assert.LessOrEqual(t, g.peak.Load(), int32(4))
	assert.Equal(t, Stats{Items: 61, Distinct: 21, CacheHits: 2, ProviderCalls: 19, Resolved: 20, Failed: 1}, stats)

	last := results[len(results)-1]
	assert.Nil(t, last.Point)
	assert.True(t, geocode.IsNotFound(last.Err))

	// negative results are not cached
	assert.Equal(t, 20, p.Cache.Len())

	for _, r := range results[:60] {
		require.NotNil(t, r.Point, r.Address)
		assert.Equal(t, table[r.Address], *r.Point)
	}
}

func TestResolveUsesFirstSeenText(t *testing.T) {
	g := newCountingGeocoder(map[string]spatial.Point{
		"Rua São José": {Lat: 3, Lng: 4},
	})
	p := newPipeline(t, g)

	results, _ := ResolveBatch(context.Background(), p, []Item[struct{}]{
		{Address: "Rua São José"},
		{Address: "RUA SAO JOSE"},
	})

	assert.Equal(t, map[string]int{"Rua São José": 1}, g.calls)
	require.NotNil(t, results[1].Point)
	assert.Equal(t, spatial.Point{Lat: 3, Lng: 4}, *results[1].Point)
}

func TestResolvePerCallTimeout(t *testing.T) {
	g := newCountingGeocoder(map[string]spatial.Point{"slow": {Lat: 1, Lng: 1}})
	g.delay = time.Second
	p := newPipeline(t, g)
	p.Timeout = 20 * time.Millisecond

	results, stats := ResolveBatch(context.Background(), p, []Item[int]{{Address: "slow"}})

	assert.Nil(t, results[0].Point)
	assert.Equal(t, geocode.ErrorTypeTimeout, geocode.TypeOf(results[0].Err))
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, p.Cache.Len())
}

func TestResolveCanceledContext(t *testing.T) {
	g := newCountingGeocoder(map[string]spatial.Point{"a": {Lat: 1, Lng: 1}})
	p := newPipeline(t, g)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, stats := ResolveBatch(ctx, p, []Item[int]{{Address: "a"}, {Address: "b"}})

	assert.Equal(t, 0, g.total())
	assert.Equal(t, 2, stats.Failed)

	for _, r := range results {
		assert.Nil(t, r.Point)
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestResolveEmpty(t *testing.T) {
	p := newPipeline(t, newCountingGeocoder(nil))

	results, stats := ResolveBatch[int](context.Background(), p, nil)
	assert.Empty(t, results)
	assert.Equal(t, Stats{}, stats)
}
