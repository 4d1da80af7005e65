// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/AeroFlaire/reference-checker/pkg/types"
)

const cacheDBFile = "lookups.db"

// defaultCacheTTL bounds how long a provider response is reused. Catalog
// records change rarely; a week keeps repeat runs over the same document
// cheap without serving stale data indefinitely.
const defaultCacheTTL = 7 * 24 * time.Hour

// Cache is an on-disk store of provider responses keyed by provider name
// and request key. It exists so that re-checking the same document does
// not re-issue identical lookups against rate-limited APIs. Verdicts are
// never cached, only upstream responses.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
}

// OpenCache opens or creates the lookup cache database under dir.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, cacheDBFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	c := &Cache{db: db, ttl: defaultCacheTTL}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return c, nil
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) createSchema() error {
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS lookups (
		provider TEXT NOT NULL,
		request_key TEXT NOT NULL,
		candidates TEXT NOT NULL,
		fetched_at TEXT NOT NULL,
		PRIMARY KEY (provider, request_key)
	)`)
	return err
}

// Get returns the cached candidates for a provider request, or ok=false on
// a miss or an expired entry. Errors are treated as misses: a broken cache
// must never break a lookup.
func (c *Cache) Get(provider, key string) (candidates []types.Candidate, ok bool) {
	var blob string
	var fetchedAt string
	err := c.db.QueryRow(
		`SELECT candidates, fetched_at FROM lookups WHERE provider = ? AND request_key = ?`,
		provider, key,
	).Scan(&blob, &fetchedAt)
	if err != nil {
		return nil, false
	}

	t, err := time.Parse(time.RFC3339, fetchedAt)
	if err != nil || time.Since(t) > c.ttl {
		return nil, false
	}

	if err := json.Unmarshal([]byte(blob), &candidates); err != nil {
		return nil, false
	}
	return candidates, true
}

// Put stores the candidates for a provider request, replacing any prior
// entry. Errors are swallowed for the same reason Get treats them as misses.
func (c *Cache) Put(provider, key string, candidates []types.Candidate) {
	blob, err := json.Marshal(candidates)
	if err != nil {
		return
	}
	c.db.Exec(
		`INSERT OR REPLACE INTO lookups (provider, request_key, candidates, fetched_at) VALUES (?, ?, ?, ?)`,
		provider, key, string(blob), time.Now().UTC().Format(time.RFC3339),
	)
}

// Prune deletes entries older than the TTL and returns how many were removed.
func (c *Cache) Prune() (int64, error) {
	cutoff := time.Now().Add(-c.ttl).UTC().Format(time.RFC3339)
	res, err := c.db.Exec(`DELETE FROM lookups WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}
	return res.RowsAffected()
}
