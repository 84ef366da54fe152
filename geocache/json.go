// Copyright 2025 The UrnaMapa Authors
// SPDX-License-Identifier: Apache-2.0

package geocache

import (
	"encoding/json"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/urnamapa/urnamapa/spatial"
	"go.uber.org/zap"
)

// JSONFile keeps the whole cache in memory and persists it as a single
// JSON object {"address": [lat, lng], ...}.
//
// Every change rewrites the snapshot to a temporary file in the same
// directory and renames it over the previous one, so a crash leaves either
// the old or the new snapshot on disk.
type JSONFile struct {
	path string

	mu      sync.RWMutex
	entries map[string]spatial.Point
}

// OpenJSON loads the snapshot at path. A missing or unreadable snapshot
// yields an empty cache; the problem is logged and the next write replaces
// the file.
func OpenJSON(path string) *JSONFile {
	c := &JSONFile{
		path:    path,
		entries: make(map[string]spatial.Point),
	}

	raw, err := readSnapshot(path)
	if err != nil {
		zap.L().Warn("starting with an empty geocode cache", zap.String("path", path), zap.Error(err))

		return c
	}

	// sorted so legacy keys that collide after normalization resolve
	// deterministically: the first one wins
	for _, k := range slices.Sorted(maps.Keys(raw)) {
		nk := key(k)
		if _, ok := c.entries[nk]; !ok {
			c.entries[nk] = spatial.PointFromPair(raw[k])
		}
	}

	if len(c.entries) != len(raw) {
		zap.L().Info("merged geocode cache keys after normalization",
			zap.Int("raw", len(raw)), zap.Int("normalized", len(c.entries)))
	}

	return c
}

func readSnapshot(path string) (map[string][2]float64, error) {
	ret := make(map[string][2]float64)

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return ret, nil
		}

		return nil, eris.Wrapf(ErrIO, "reading %s: %v", path, err)
	}

	if len(data) == 0 {
		return ret, nil
	}

	if err := json.Unmarshal(data, &ret); err != nil {
		return nil, eris.Wrapf(ErrIO, "decoding %s: %v", path, err)
	}

	return ret, nil
}

// Path returns the snapshot location.
func (c *JSONFile) Path() string {
	return c.path
}

// Get implements Cache.
func (c *JSONFile) Get(address string) (spatial.Point, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.entries[key(address)]

	return p, ok
}

// Put implements Cache. On a failed flush the entry is rolled back.
func (c *JSONFile) Put(address string, p spatial.Point) error {
	_, err := c.PutAll(map[string]spatial.Point{address: p})

	return err
}

// PutAll implements Cache with a single flush for the whole batch.
func (c *JSONFile) PutAll(entries map[string]spatial.Point) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := make(map[string]*spatial.Point)

	for address, p := range entries {
		k := key(address)

		old, ok := c.entries[k]
		if ok && old == p {
			continue
		}

		if _, seen := prev[k]; !seen {
			if ok {
				prev[k] = &old
			} else {
				prev[k] = nil
			}
		}

		c.entries[k] = p
	}

	if len(prev) == 0 {
		return 0, nil
	}

	if err := c.flush(); err != nil {
		for k, old := range prev {
			if old == nil {
				delete(c.entries, k)
			} else {
				c.entries[k] = *old
			}
		}

		return 0, err
	}

	return len(prev), nil
}

// flush writes the snapshot. Callers hold the write lock.
func (c *JSONFile) flush() error {
	snapshot := make(map[string][2]float64, len(c.entries))
	for k, p := range c.entries {
		snapshot[k] = p.Pair()
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return eris.Wrap(err, "geocache: encoding snapshot")
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return eris.Wrapf(ErrIO, "creating %s: %v", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(ErrIO, "creating temp snapshot: %v", err)
	}

	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}

	if cerr := tmp.Close(); err == nil {
		err = cerr
	}

	if err == nil {
		err = os.Rename(tmpName, c.path)
	}

	if err != nil {
		_ = os.Remove(tmpName)

		return eris.Wrapf(ErrIO, "writing %s: %v", c.path, err)
	}

	return nil
}

// Entries implements Cache.
func (c *JSONFile) Entries() (map[string]spatial.Point, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return maps.Clone(c.entries), nil
}

// Len implements Cache.
func (c *JSONFile) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Close implements Cache. Every Put is already on disk.
func (c *JSONFile) Close() error {
	return nil
}
