// Package sqlitestore is a SQLite-backed implementation of
// spec.SessionStore. Session values written through it survive process
// restarts, so a conversation can resume against the same session.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/convodesk/convoskills-go/spec"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and applies
// pragmas and the schema. Idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent sessions.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, sessionID spec.SessionID, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_values WHERE session_id = ? AND key = ?`,
		string(sessionID), key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get session value: %w", err)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, sessionID spec.SessionID, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_values (session_id, key, value, updated_at)
		 VALUES (?, ?, ?, strftime('%s','now'))
		 ON CONFLICT(session_id, key) DO UPDATE SET
		   value = excluded.value,
		   updated_at = excluded.updated_at`,
		string(sessionID), key, value,
	)
	if err != nil {
		return fmt.Errorf("set session value: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, sessionID spec.SessionID, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_values WHERE session_id = ? AND key = ?`,
		string(sessionID), key,
	)
	if err != nil {
		return fmt.Errorf("delete session value: %w", err)
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID spec.SessionID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_values WHERE session_id = ?`,
		string(sessionID),
	)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}
