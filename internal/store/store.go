// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotFound      = errors.New("record not found")
	ErrNotUnique     = errors.New("record not unique")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// STORE
// =============================================================================

// Store is the SQLite-backed record store.
type Store struct {
	db *sql.DB

	// writeMu serializes writes. SQLite only supports one writer at a
	// time and the monotonic timestamp allocation below depends on
	// ordered message inserts.
	writeMu sync.Mutex

	// lastMsgAt tracks the last allocated message timestamp per chat,
	// in Unix milliseconds.
	lastMu    sync.Mutex
	lastMsgAt map[string]int64
}

// Open opens (creating if needed) the database at path, initializes the
// schema and seeds the built-in records.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
		"PRAGMA wal_autocheckpoint=1000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{
		db:        db,
		lastMsgAt: make(map[string]int64),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.seed(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed built-in records: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return err
	}
	_, err := s.db.Exec(InitMetadata)
	return err
}

// Close closes the store and releases resources.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// =============================================================================
// ID AND TIME HELPERS
// =============================================================================

// NewID returns a fresh record id with the given type prefix.
func NewID(prefix string) string {
	return prefix + "_" + uuid.New().String()
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func fromMillisPtr(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := fromMillis(ns.Int64)
	return &t
}

func toMillisPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toMillis(*t)
}

// allocMessageTime allocates a creation timestamp for a new message in
// chatID that is strictly greater than the last one allocated or stored.
// Callers must hold writeMu.
func (s *Store) allocMessageTime(chatID string) (time.Time, error) {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()

	last, ok := s.lastMsgAt[chatID]
	if !ok {
		var stored sql.NullInt64
		err := s.db.QueryRow(
			`SELECT MAX(created_at) FROM chat_messages WHERE chat_id = ?`,
			chatID,
		).Scan(&stored)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		if stored.Valid {
			last = stored.Int64
		}
	}

	now := time.Now().UnixMilli()
	if now < last+2 {
		now = last + 2
	}
	s.lastMsgAt[chatID] = now
	return fromMillis(now), nil
}
