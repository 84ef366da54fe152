// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocache persists resolved addresses so that each distinct
// address is sent to the geocoding provider only once, across runs.
//
// Keys are normalized with textutils.NormalizeAddress before any lookup or
// write; callers may pass either raw or normalized addresses. Only
// successful resolutions are stored and entries never expire.
package geocache

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/urnamapa/urnamapa/spatial"
	"github.com/urnamapa/urnamapa/utils/textutils"
)

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendDuckDB = "duckdb"
	BackendSQLite = "sqlite"
)

// ErrIO marks failures reading or writing the durable store.
var ErrIO = eris.New("geocache: storage failure")

// Cache is a durable address to coordinate mapping, safe for concurrent use.
type Cache interface {
	// Get returns the cached coordinate of address.
	Get(address string) (spatial.Point, bool)

	// Put stores the coordinate and persists it before returning. Storing
	// the value already cached is a no-op.
	Put(address string, p spatial.Point) error

	// PutAll stores many entries at once and returns how many changed.
	PutAll(entries map[string]spatial.Point) (int, error)

	// Entries returns a copy of every cached entry.
	Entries() (map[string]spatial.Point, error)

	Len() int

	Close() error
}

// Open returns the cache for backend stored at path.
func Open(backend, path string) (Cache, error) {
	switch strings.ToLower(backend) {
	case "", BackendJSON:
		return OpenJSON(path), nil
	case BackendDuckDB:
		return OpenDuckDB(path)
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, eris.Errorf("geocache: unknown backend %q", backend)
	}
}

func key(address string) string {
	return textutils.NormalizeAddress(address)
}
