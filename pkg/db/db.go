package db

import (
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultTTL is how long a cached response is considered fresh
const DefaultTTL = 7 * 24 * time.Hour

type DB struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// DefaultPath is the cache location used when none is configured
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".gimme-release-notes", "cache.db")
}

// NewDB opens (or creates) the SQLite database used to cache GitHub responses.
// A nil logger falls back to slog.Default().
func NewDB(path string, ttl time.Duration, logger *slog.Logger) (*DB, error) {
	if path == "" {
		path = DefaultPath()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Create cache directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// Pages write concurrently; a single connection avoids "database is locked"
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS github_response_cache (
			cache_key TEXT PRIMARY KEY,
			body BLOB,
			fetched_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db: db, ttl: ttl, logger: logger, now: time.Now}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// Get retrieves a cached response body. Stale entries count as missing.
func (d *DB) Get(key string) ([]byte, bool, error) {
	var body []byte
	var fetchedAt time.Time

	err := d.db.QueryRow(
		"SELECT body, fetched_at FROM github_response_cache WHERE cache_key = ?",
		key,
	).Scan(&body, &fetchedAt)

	if err == sql.ErrNoRows {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}

	if d.now().Sub(fetchedAt) > d.ttl {
		d.logger.Debug("cached response is stale, will refresh", "key", key)
		return nil, false, nil
	}

	return body, true, nil
}

// Put stores a response body
func (d *DB) Put(key string, body []byte) error {
	_, err := d.db.Exec(
		"INSERT OR REPLACE INTO github_response_cache (cache_key, body, fetched_at) VALUES (?, ?, ?)",
		key, body, d.now(),
	)
	return err
}

// Prune deletes entries older than the TTL and returns how many were removed
func (d *DB) Prune() (int64, error) {
	res, err := d.db.Exec(
		"DELETE FROM github_response_cache WHERE fetched_at < ?",
		d.now().Add(-d.ttl),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
