package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"codeberg.org/snonux/lexilive/internal/vocab"
)

// SavedWordsKey is the key holding the serialized saved word list
const SavedWordsKey = "lexilive.savedWords"

// ErrCorrupt is returned when the stored list cannot be decoded
var ErrCorrupt = vocab.ErrCorrupt

// ErrKeyNotFound is returned by Get for unknown keys
var ErrKeyNotFound = errors.New("key not found")

// SQLiteStore is a key-value store on top of SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open opens (and creates if needed) the database at path
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// The driver serialises writers anyway; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: path}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key text PRIMARY KEY,
		value text NOT NULL,
		updated_at integer NOT NULL
	)`)
	return err
}

// Path returns the database file path
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the raw value stored under key
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

// Put stores value under key, replacing any previous value
func (s *SQLiteStore) Put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Load returns the saved word list; a missing key is an empty list
func (s *SQLiteStore) Load(ctx context.Context) ([]vocab.SavedWord, error) {
	value, err := s.Get(ctx, SavedWordsKey)
	if errors.Is(err, ErrKeyNotFound) {
		return []vocab.SavedWord{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeWords(value)
}

// Save replaces the saved word list
func (s *SQLiteStore) Save(ctx context.Context, words []vocab.SavedWord) error {
	value, err := encodeWords(words)
	if err != nil {
		return err
	}
	return s.Put(ctx, SavedWordsKey, value)
}

func encodeWords(words []vocab.SavedWord) (string, error) {
	if words == nil {
		words = []vocab.SavedWord{}
	}
	data, err := json.Marshal(words)
	if err != nil {
		return "", fmt.Errorf("failed to encode word list: %w", err)
	}
	return string(data), nil
}

func decodeWords(value string) ([]vocab.SavedWord, error) {
	var words []vocab.SavedWord
	if err := json.Unmarshal([]byte(value), &words); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if words == nil {
		words = []vocab.SavedWord{}
	}
	return words, nil
}
