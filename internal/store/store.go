package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ferrova/tidalsnap/internal/models"
	"github.com/ferrova/tidalsnap/internal/shared"
)

// Well-known keys. Every durable value the service owns lives under one of
// these; anything else in the kv table is ignored.
const (
	KeyTokens      = "tokens"
	KeyPendingAuth = "pendingAuthorization"
	KeySelection   = "selectionConfig"
	KeySyncStatus  = "syncStatus"
	KeyAccessPin   = "accessPin"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// Store is a durable key → JSON value store backed by SQLite.
//
// Save overwrites atomically from the caller's point of view; Load reports
// a missing key as (false, nil) so callers can substitute defaults.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a store at the given SQLite path.
func Open(path string) (*Store, error) {
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, err
	}
	return New(db)
}

// New wraps an existing database connection, creating the kv table if needed.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save marshals v as JSON and upserts it under key.
func (s *Store) Save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %q: %w", key, err)
	}

	query := `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.Exec(query, key, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save %q: %w", key, err)
	}
	return nil
}

// Load unmarshals the value stored under key into v.
// Returns false with a nil error when the key is absent.
func (s *Store) Load(key string, v any) (bool, error) {
	var raw string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %q: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %q: %w", key, err)
	}
	return true, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// Selection returns the persisted SelectionConfig, or defaults when absent.
func (s *Store) Selection() (models.SelectionConfig, error) {
	sel := models.DefaultSelection()
	found, err := s.Load(KeySelection, &sel)
	if err != nil {
		return models.DefaultSelection(), err
	}
	if !found {
		return models.DefaultSelection(), nil
	}
	sel.Normalize()
	return sel, nil
}

// SaveSelection normalizes and persists the SelectionConfig wholesale.
func (s *Store) SaveSelection(sel models.SelectionConfig) error {
	sel.Normalize()
	return s.Save(KeySelection, sel)
}

// LastReport returns the most recent sync report, if any run has happened.
func (s *Store) LastReport() (*models.SyncReport, bool, error) {
	var report models.SyncReport
	found, err := s.Load(KeySyncStatus, &report)
	if err != nil || !found {
		return nil, false, err
	}
	return &report, true, nil
}

// SaveReport overwrites the durable status record.
func (s *Store) SaveReport(report *models.SyncReport) error {
	return s.Save(KeySyncStatus, report)
}

// Tokens returns the persisted provider credentials, if present.
func (s *Store) Tokens() (*models.Tokens, bool, error) {
	var tokens models.Tokens
	found, err := s.Load(KeyTokens, &tokens)
	if err != nil || !found {
		return nil, false, err
	}
	return &tokens, true, nil
}

// SaveTokens persists provider credentials.
func (s *Store) SaveTokens(tokens *models.Tokens) error {
	return s.Save(KeyTokens, tokens)
}

// ClearTokens removes persisted credentials (logout).
func (s *Store) ClearTokens() error {
	return s.Delete(KeyTokens)
}

// PendingAuth returns an in-flight device-code login, if one was started.
func (s *Store) PendingAuth() (*models.PendingAuth, bool, error) {
	var pending models.PendingAuth
	found, err := s.Load(KeyPendingAuth, &pending)
	if err != nil || !found {
		return nil, false, err
	}
	return &pending, true, nil
}

// SavePendingAuth persists a started device-code login.
func (s *Store) SavePendingAuth(pending *models.PendingAuth) error {
	return s.Save(KeyPendingAuth, pending)
}

// ClearPendingAuth removes the in-flight login after completion or expiry.
func (s *Store) ClearPendingAuth() error {
	return s.Delete(KeyPendingAuth)
}

// AccessPin returns the configured web PIN. Absent means the gate is open.
func (s *Store) AccessPin() (string, bool, error) {
	var pin string
	found, err := s.Load(KeyAccessPin, &pin)
	if err != nil || !found {
		return "", false, err
	}
	return pin, pin != "", nil
}

// SaveAccessPin sets the web PIN. An empty pin disables the gate.
func (s *Store) SaveAccessPin(pin string) error {
	if pin == "" {
		return s.Delete(KeyAccessPin)
	}
	return s.Save(KeyAccessPin, pin)
}
