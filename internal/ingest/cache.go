package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gofrs/flock"

	"github.com/ai-vietnam/minda/internal/storage"
)

// CacheEntry holds the transformation outputs computed for one content hash.
type CacheEntry struct {
	Summary string `json:"summary"`
}

// Cache is a read-through cache from chunk content hash to enrichment
// output, persisted as a single JSON file. A missing or undecodable file
// degrades to an empty cache; ingestion never aborts over cache state.
//
// Cache is safe for concurrent use within a process; cross-process
// persistence is serialized with a file lock.
type Cache struct {
	path   string
	fl     *flock.Flock
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]CacheEntry
}

// LoadCache reads the cache file at path. Absence and decode failures both
// return a usable empty cache with a log trace, never an error.
func LoadCache(path string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		path:    path,
		fl:      storage.NewLock(path),
		logger:  logger,
		entries: make(map[string]CacheEntry),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("no cache file found, running without cache", "path", path)
	case err != nil:
		logger.Warn("reading cache file, running without cache", "path", path, "error", err)
	default:
		if err := json.Unmarshal(data, &c.entries); err != nil {
			logger.Warn("could not decode cache file, running without cache", "path", path, "error", err)
			c.entries = make(map[string]CacheEntry)
		} else {
			logger.Info("cache file found, running using cache", "path", path, "entries", len(c.entries))
		}
	}
	return c
}

// Get returns the cached entry for hash, if present.
func (c *Cache) Get(hash string) (CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[hash]
	return e, ok
}

// Put records the entry computed for hash.
func (c *Cache) Put(hash string, e CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hash] = e
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Persist writes the cache to its file atomically (temp file + rename)
// under a file lock so concurrent runs do not interleave writes.
func (c *Cache) Persist() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	return storage.WithLock(c.fl, func() error {
		return storage.WriteFileAtomic(c.path, data)
	})
}
