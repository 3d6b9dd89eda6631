// Package cache stores compiled programs in a local SQLite database,
// keyed by source hash. A hit skips compilation entirely; the cached
// bytes are the wire encoding of the program.
package cache

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tliron/commonlog"

	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("zlox.cache")

// ErrMiss indicates the requested program is not cached.
var ErrMiss = errors.New("program not cached")

// Store is the on-disk program cache. Safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens the cache database at path, creating the file and its
// parent directory as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		hash TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// OpenDefault opens the cache at $ZLOX_CACHE_DB, falling back to
// ~/.zlox/cache.db.
func OpenDefault() (*Store, error) {
	path := os.Getenv("ZLOX_CACHE_DB")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home dir: %w", err)
		}
		path = filepath.Join(home, ".zlox", "cache.db")
	}
	return Open(path)
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores a compiled program under its source hash, replacing any
// previous entry.
func (s *Store) Put(hash [32]byte, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO programs (hash, data, created_at) VALUES (?, ?, ?)",
		key(hash), data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving program: %w", err)
	}
	log.Debugf("stored %s (%d bytes)", key(hash), len(data))
	return nil
}

// Get returns the cached program for a source hash, or ErrMiss.
func (s *Store) Get(hash [32]byte) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM programs WHERE hash = ?", key(hash)).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debugf("miss %s", key(hash))
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("querying program: %w", err)
	}
	log.Debugf("hit %s", key(hash))
	return data, nil
}

// Delete removes a cached program. Deleting an absent entry is not an
// error.
func (s *Store) Delete(hash [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM programs WHERE hash = ?", key(hash)); err != nil {
		return fmt.Errorf("deleting program: %w", err)
	}
	return nil
}

// Count returns the number of cached programs.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM programs").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting programs: %w", err)
	}
	return n, nil
}

// Purge removes every cached program.
func (s *Store) Purge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM programs"); err != nil {
		return fmt.Errorf("purging cache: %w", err)
	}
	return nil
}

func key(hash [32]byte) string {
	return hex.EncodeToString(hash[:])
}
