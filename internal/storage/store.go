package storage

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// UserStore persists the little per-user state that must survive restarts:
// the API bearer token (encrypted at rest) and the most recently dispatched
// negotiation job, so a bare /offers works after the bot restarts.
type UserStore interface {
	GetToken(telegramID int64) (string, error)
	SetToken(telegramID int64, token string) error
	DeleteToken(telegramID int64) error

	GetLastJob(telegramID int64) (string, error)
	SetLastJob(telegramID int64, jobID string) error

	Close() error
}

// SQLiteStore implements UserStore using SQLite with encrypted tokens.
type SQLiteStore struct {
	db            *sql.DB
	encryptionKey []byte
	mu            sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) the store at dbPath. The
// encryptionKey encrypts and decrypts bearer tokens.
func NewSQLiteStore(dbPath string, encryptionKey []byte) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Tokens live here; keep the file private. Only works on creation.
	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		// Ignore error if file doesn't exist yet
	}

	store := &SQLiteStore{
		db:            db,
		encryptionKey: encryptionKey,
	}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	tokensQuery := `
	CREATE TABLE IF NOT EXISTS api_tokens (
		telegram_id INTEGER PRIMARY KEY,
		encrypted_token TEXT NOT NULL,
		last_updated DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(tokensQuery); err != nil {
		return fmt.Errorf("failed to create api_tokens table: %w", err)
	}

	jobsQuery := `
	CREATE TABLE IF NOT EXISTS last_jobs (
		telegram_id INTEGER PRIMARY KEY,
		job_id TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(jobsQuery); err != nil {
		return fmt.Errorf("failed to create last_jobs table: %w", err)
	}

	return nil
}

// GetToken returns the user's decrypted bearer token, or "" when none is set.
func (s *SQLiteStore) GetToken(telegramID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var encrypted string
	err := s.db.QueryRow(
		"SELECT encrypted_token FROM api_tokens WHERE telegram_id = ?", telegramID,
	).Scan(&encrypted)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query token: %w", err)
	}

	plaintext, err := Decrypt(encrypted, s.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token: %w", err)
	}
	return string(plaintext), nil
}

// SetToken stores the user's bearer token, encrypted.
func (s *SQLiteStore) SetToken(telegramID int64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	encrypted, err := Encrypt([]byte(token), s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO api_tokens (telegram_id, encrypted_token, last_updated)
		VALUES (?, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			encrypted_token = excluded.encrypted_token,
			last_updated = excluded.last_updated
	`, telegramID, encrypted, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// DeleteToken removes the user's bearer token.
func (s *SQLiteStore) DeleteToken(telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM api_tokens WHERE telegram_id = ?", telegramID); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// GetLastJob returns the user's most recent negotiation job id, or "".
func (s *SQLiteStore) GetLastJob(telegramID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var jobID string
	err := s.db.QueryRow(
		"SELECT job_id FROM last_jobs WHERE telegram_id = ?", telegramID,
	).Scan(&jobID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query last job: %w", err)
	}
	return jobID, nil
}

// SetLastJob remembers the user's most recent negotiation job id.
func (s *SQLiteStore) SetLastJob(telegramID int64, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO last_jobs (telegram_id, job_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			job_id = excluded.job_id,
			created_at = excluded.created_at
	`, telegramID, jobID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save last job: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
