// Package store is the build cache: compiled VLBC modules keyed by the
// SHA-256 of their assembly source, persisted in SQLite so repeated builds
// of unchanged sources skip assembly entirely.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/vela-lang/vela/vlbc"
)

// payloadVersion is bumped whenever the payload schema changes; entries
// written under an older schema read back as misses and get rebuilt.
const payloadVersion = 1

// payload is the msgpack-encoded row value.
type payload struct {
	Version   int    `msgpack:"version"`
	SourceLen int    `msgpack:"source_len"`
	VLBC      []byte `msgpack:"vlbc"`
	CreatedAt int64  `msgpack:"created_at"` // unix seconds
}

// Cache is a SQLite-backed module cache. Safe for concurrent use within
// one process.
type Cache struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Key derives the cache key for an assembly source: hex SHA-256 of the
// exact source bytes.
func Key(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

// Open opens (creating if needed) the cache database at path. Use
// ":memory:" for an ephemeral cache.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS modules (
		key     TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating modules table: %w", err)
	}

	return &Cache{db: db, path: path}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Put stores a compiled module under key, replacing any prior entry.
func (c *Cache) Put(key string, sourceLen int, m *vlbc.Module) error {
	if key == "" || m == nil {
		return vlbc.Errorf(vlbc.ErrBadArgument, "cache put needs a key and a module")
	}

	encoded, err := m.Encode()
	if err != nil {
		return err
	}
	p := payload{
		Version:   payloadVersion,
		SourceLen: sourceLen,
		VLBC:      encoded,
		CreatedAt: time.Now().Unix(),
	}
	blob, err := msgpack.Marshal(&p)
	if err != nil {
		return fmt.Errorf("encoding cache payload: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.db.Exec(
		"INSERT OR REPLACE INTO modules (key, payload) VALUES (?, ?)",
		key, blob,
	); err != nil {
		return fmt.Errorf("storing module %s: %w", key, err)
	}
	return nil
}

// Get retrieves and validates the module stored under key. A missing key,
// a stale schema version, or a payload that no longer decodes all report
// NotFound; stale and corrupt rows are evicted on the way out.
func (c *Cache) Get(key string) (*vlbc.Module, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var blob []byte
	err := c.db.QueryRow("SELECT payload FROM modules WHERE key = ?", key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, vlbc.Errorf(vlbc.ErrNotFound, "no cached module for %s", key)
	}
	if err != nil {
		return nil, fmt.Errorf("querying module %s: %w", key, err)
	}

	var p payload
	if err := msgpack.Unmarshal(blob, &p); err != nil {
		c.evict(key)
		return nil, vlbc.Errorf(vlbc.ErrNotFound, "cached module %s is unreadable", key)
	}
	if p.Version != payloadVersion {
		c.evict(key)
		return nil, vlbc.Errorf(vlbc.ErrNotFound, "cached module %s has schema v%d, want v%d",
			key, p.Version, payloadVersion)
	}

	m, err := vlbc.Decode(p.VLBC)
	if err != nil {
		c.evict(key)
		return nil, vlbc.Errorf(vlbc.ErrNotFound, "cached module %s is corrupt", key)
	}
	return m, nil
}

// Delete removes the entry for key, if any.
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evict(key)
}

// evict removes a row. Callers hold c.mu.
func (c *Cache) evict(key string) error {
	if _, err := c.db.Exec("DELETE FROM modules WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting module %s: %w", key, err)
	}
	return nil
}

// Len reports the number of cached modules.
func (c *Cache) Len() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM modules").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting modules: %w", err)
	}
	return n, nil
}

// Purge drops every cached module.
func (c *Cache) Purge() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.db.Exec("DELETE FROM modules"); err != nil {
		return fmt.Errorf("purging cache: %w", err)
	}
	return nil
}
