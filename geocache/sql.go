// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package geocache

import (
	"context"
	"database/sql"
	"maps"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/rotisserie/eris"
	"github.com/urnamapa/urnamapa/spatial"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // register sqlite driver
)

const createSchema = `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address VARCHAR PRIMARY KEY,
		lat DOUBLE NOT NULL,
		lng DOUBLE NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
`

// works on both DuckDB and SQLite
const upsertEntry = `
	INSERT INTO geocode_cache (address, lat, lng, updated_at)
	VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT (address) DO UPDATE SET
		lat = excluded.lat,
		lng = excluded.lng,
		updated_at = excluded.updated_at
`

// SQL stores the cache in a geocode_cache table, one row per address, and
// mirrors it in memory for lookups. Each Put is its own upsert statement.
type SQL struct {
	db *sql.DB

	mu      sync.RWMutex
	entries map[string]spatial.Point
}

// OpenDuckDB opens (or creates) a DuckDB database at path. An empty path
// is an in-memory database.
func OpenDuckDB(path string) (*SQL, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, eris.Wrap(err, "geocache: opening duckdb")
	}

	return NewSQL(db)
}

// OpenSQLite opens (or creates) a SQLite database at path in WAL mode.
func OpenSQLite(path string) (*SQL, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "geocache: opening sqlite")
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()

			return nil, eris.Wrapf(err, "geocache: sqlite %s", pragma)
		}
	}

	return NewSQL(db)
}

// NewSQL creates the schema if needed and loads every row. The cache owns
// db and closes it on Close.
func NewSQL(db *sql.DB) (*SQL, error) {
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, createSchema); err != nil {
		db.Close()

		return nil, eris.Wrap(err, "geocache: creating schema")
	}

	c := &SQL{db: db, entries: make(map[string]spatial.Point)}

	rows, err := db.QueryContext(ctx, `SELECT address, lat, lng FROM geocode_cache`)
	if err != nil {
		db.Close()

		return nil, eris.Wrap(err, "geocache: loading entries")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			address string
			p       spatial.Point
		)

		if err := rows.Scan(&address, &p.Lat, &p.Lng); err != nil {
			db.Close()

			return nil, eris.Wrap(err, "geocache: scanning entry")
		}

		c.entries[address] = p
	}

	if err := rows.Err(); err != nil {
		db.Close()

		return nil, eris.Wrap(err, "geocache: loading entries")
	}

	zap.L().Debug("loaded geocode cache", zap.Int("entries", len(c.entries)))

	return c, nil
}

// Get implements Cache.
func (c *SQL) Get(address string) (spatial.Point, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.entries[key(address)]

	return p, ok
}

// Put implements Cache.
func (c *SQL) Put(address string, p spatial.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key(address)

	changed, err := c.put(c.db, k, p)
	if changed {
		c.entries[k] = p
	}

	return err
}

func (c *SQL) put(exec interface {
	Exec(query string, args ...any) (sql.Result, error)
}, k string, p spatial.Point,
) (bool, error) {
	if old, ok := c.entries[k]; ok && old == p {
		return false, nil
	}

	if _, err := exec.Exec(upsertEntry, k, p.Lat, p.Lng); err != nil {
		return false, eris.Wrapf(ErrIO, "upserting %q: %v", k, err)
	}

	return true, nil
}

// PutAll implements Cache inside a single transaction.
func (c *SQL) PutAll(entries map[string]spatial.Point) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return 0, eris.Wrapf(ErrIO, "beginning transaction: %v", err)
	}

	changed := make(map[string]spatial.Point)

	for address, p := range entries {
		k := key(address)

		ok, err := c.put(tx, k, p)
		if err != nil {
			_ = tx.Rollback()

			return 0, err
		}

		if ok {
			changed[k] = p
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(ErrIO, "committing: %v", err)
	}

	maps.Copy(c.entries, changed)

	return len(changed), nil
}

// Entries implements Cache.
func (c *SQL) Entries() (map[string]spatial.Point, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return maps.Clone(c.entries), nil
}

// Len implements Cache.
func (c *SQL) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Close implements Cache.
func (c *SQL) Close() error {
	return c.db.Close()
}
