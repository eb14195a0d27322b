package prefs

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type SQLiteKV struct {
	db *sql.DB
}

var _ KV = &SQLiteKV{}

// SQLiteDSNForFile turns a file path into a DSN with WAL and a busy timeout, creating the
// parent directory.
func SQLiteDSNForFile(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("sqlite prefs: empty path")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrap(err, "sqlite prefs: create directory")
		}
	}
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", "5000")
	return "file:" + path + "?" + q.Encode(), nil
}

// NewSQLiteKV opens (and migrates) the preferences database at path.
func NewSQLiteKV(path string) (*SQLiteKV, error) {
	dsn, err := SQLiteDSNForFile(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite prefs: open")
	}
	s := &SQLiteKV{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteKV) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS preferences (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at_ms INTEGER NOT NULL
		)
	`)
	return errors.Wrap(err, "sqlite prefs: migrate")
}

func (s *SQLiteKV) GetBool(ctx context.Context, key string) (bool, bool, error) {
	if s == nil || s.db == nil {
		return false, false, errors.New("sqlite prefs: db is nil")
	}
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, errors.Wrapf(err, "sqlite prefs: get %s", key)
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, errors.Wrapf(err, "sqlite prefs: decode %s", key)
	}
	return v, true, nil
}

func (s *SQLiteKV) SetBool(ctx context.Context, key string, value bool) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite prefs: db is nil")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at_ms) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at_ms = excluded.updated_at_ms
	`, key, strconv.FormatBool(value), time.Now().UnixMilli())
	return errors.Wrapf(err, "sqlite prefs: set %s", key)
}

func (s *SQLiteKV) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
