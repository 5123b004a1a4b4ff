// Package cache is a file-backed TTL cache for normalized provider
// responses, keyed by (provider, scope, request key). Caching is a
// performance optimization only: any storage trouble degrades to a miss.
package cache

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Edwardo1983/PROGNOZA/internal/series"
)

const schema = `
CREATE TABLE IF NOT EXISTS forecast_cache (
	provider TEXT NOT NULL,
	scope TEXT NOT NULL,
	cache_key TEXT NOT NULL,
	expires_at INTEGER NOT NULL,
	payload BLOB NOT NULL,
	PRIMARY KEY (provider, scope, cache_key)
);`

// Store persists serialized series with absolute expiry instants. A Store
// whose backing database could not be opened answers every Get with a miss
// and drops every Set.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the cache database at path. Failures are
// logged, not returned: the resulting store simply never hits.
func Open(path string) *Store {
	s := &Store{now: time.Now}
	if path == "" {
		return s
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Printf("cache: create dir %s: %v (caching disabled)", dir, err)
			return s
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		log.Printf("cache: open %s: %v (caching disabled)", path, err)
		return s
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	if _, err := db.Exec(schema); err != nil {
		log.Printf("cache: migrate %s: %v (caching disabled)", path, err)
		db.Close()
		return s
	}
	s.db = db
	return s
}

// New wraps an already-open database, running the schema bootstrap.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the cached series for the key, or ok=false on a miss.
// Not-found, expired and corrupted entries are indistinguishable to the
// caller; expired and corrupted rows are lazily deleted.
func (s *Store) Get(provider, scope, key string) (series.Series, bool) {
	if s.db == nil {
		return series.Series{}, false
	}
	var expiresAt int64
	var payload []byte
	err := s.db.QueryRow(`
		SELECT expires_at, payload FROM forecast_cache
		WHERE provider = ? AND scope = ? AND cache_key = ?
	`, provider, scope, key).Scan(&expiresAt, &payload)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("cache: read %s/%s: %v", provider, scope, err)
		}
		return series.Series{}, false
	}
	if s.now().Unix() >= expiresAt {
		s.delete(provider, scope, key)
		return series.Series{}, false
	}
	var out series.Series
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&out); err != nil {
		log.Printf("cache: corrupt entry %s/%s: %v", provider, scope, err)
		s.delete(provider, scope, key)
		return series.Series{}, false
	}
	return out, true
}

// Set stores the series under the key with an absolute expiry of now+ttl.
// Concurrent writers race with last-write-wins; entries are derived data.
func (s *Store) Set(provider, scope, key string, data series.Series, ttl time.Duration) {
	if s.db == nil || ttl <= 0 {
		return
	}
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(data); err != nil {
		log.Printf("cache: encode %s/%s: %v", provider, scope, err)
		return
	}
	expiresAt := s.now().Add(ttl).Unix()
	_, err := s.db.Exec(`
		REPLACE INTO forecast_cache (provider, scope, cache_key, expires_at, payload)
		VALUES (?, ?, ?, ?, ?)
	`, provider, scope, key, expiresAt, payload.Bytes())
	if err != nil {
		log.Printf("cache: write %s/%s: %v", provider, scope, err)
	}
}

func (s *Store) delete(provider, scope, key string) {
	s.db.Exec(`
		DELETE FROM forecast_cache
		WHERE provider = ? AND scope = ? AND cache_key = ?
	`, provider, scope, key)
}
