package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	_ "modernc.org/sqlite"
)

// Preference keys. One row per key in the prefs table.
const (
	keyCookie        = "cookie"
	keyCompany       = "company"
	keyUnits         = "units"
	keyNotifications = "notifications"
)

// Store is the single source of truth for the Visual Coaching session
// cookie, plus the handful of user preferences the app persists. Values
// live in a SQLite key/value table fronted by an in-memory cache: each
// key is read from disk at most once per process, after that reads are
// served from memory. Last write wins.
type Store struct {
	db  *sql.DB
	log *slog.Logger

	mu    sync.RWMutex
	cache map[string]string
}

// Open opens (or creates) the store database at dir/state.db.
func Open(dir string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "state.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS prefs (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating prefs table: %w", err)
	}

	return &Store{db: db, log: log, cache: make(map[string]string)}, nil
}

// SaveCookie stores the session cookie, overwriting any prior value.
// The cookie is opaque; no shape validation is done.
func (s *Store) SaveCookie(cookie string) error {
	return s.set(keyCookie, cookie)
}

// Cookie returns the current session cookie, or "" if not logged in.
func (s *Store) Cookie() string {
	return s.get(keyCookie)
}

// LoggedIn reports whether a session cookie is present.
func (s *Store) LoggedIn() bool {
	return s.Cookie() != ""
}

// ClearCookie removes the session cookie. Idempotent.
func (s *Store) ClearCookie() error {
	return s.del(keyCookie)
}

func (s *Store) SetCompany(name string) error { return s.set(keyCompany, name) }
func (s *Store) Company() string              { return s.get(keyCompany) }

func (s *Store) SetUnits(units string) error { return s.set(keyUnits, units) }
func (s *Store) Units() string               { return s.get(keyUnits) }

// SetNotifications records the notifications preference.
func (s *Store) SetNotifications(enabled bool) error {
	return s.set(keyNotifications, strconv.FormatBool(enabled))
}

// Notifications reports the notifications preference. Unset means off.
func (s *Store) Notifications() bool {
	return s.get(keyNotifications) == "true"
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO prefs (key, value) VALUES (?, ?)`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}

	s.mu.Lock()
	s.cache[key] = value
	s.mu.Unlock()
	return nil
}

// get returns the cached value for key, loading it from the database on
// first access. A load failure is logged, treated as absent, and left
// uncached so a later read can retry.
func (s *Store) get(key string) string {
	s.mu.RLock()
	v, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return v
	}

	var value string
	err := s.db.QueryRow(`SELECT value FROM prefs WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.mu.Lock()
			s.cache[key] = ""
			s.mu.Unlock()
		} else {
			s.log.Warn("state read failed", "key", key, "error", err)
		}
		return ""
	}

	s.mu.Lock()
	s.cache[key] = value
	s.mu.Unlock()
	return value
}

func (s *Store) del(key string) error {
	_, err := s.db.Exec(`DELETE FROM prefs WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("clearing %s: %w", key, err)
	}

	s.mu.Lock()
	s.cache[key] = ""
	s.mu.Unlock()
	return nil
}
