// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlite provides a SQLite-backed shared result-cache tier. A
// database file on shared storage gives cross-process memoization of
// condition results without a network service.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tombee/condgate/pkg/condition"
)

// Compile-time interface assertion.
var _ condition.Store = (*Store)(nil)

// purgeInterval is how many writes happen between opportunistic sweeps of
// expired rows.
const purgeInterval = 256

// Store is a SQLite shared cache tier.
type Store struct {
	db     *sql.DB
	writes atomic.Int64
}

// Config contains SQLite connection configuration.
type Config struct {
	// Path is the database file path.
	Path string

	// WAL enables Write-Ahead Logging mode for concurrent reads.
	WAL bool
}

// New creates a new SQLite store.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writes, so only 1 connection for writes
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db}

	if err := s.configurePragmas(ctx, cfg.WAL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure pragmas: %w", err)
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// configurePragmas sets SQLite configuration options.
func (s *Store) configurePragmas(ctx context.Context, enableWAL bool) error {
	pragmas := []string{
		"PRAGMA busy_timeout=5000",  // 5 second timeout for lock contention
		"PRAGMA synchronous=NORMAL", // Balance between performance and durability
	}

	if enableWAL {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL") // Concurrent readers across processes
	}

	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

// migrate creates the cache table.
func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS condition_results (
			cache_key TEXT PRIMARY KEY,
			result INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_condition_results_expires_at ON condition_results(expires_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Get returns the cached result for key, treating expired rows as misses.
func (s *Store) Get(ctx context.Context, key string) (bool, bool, error) {
	var result int
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM condition_results WHERE cache_key = ? AND expires_at > ?`,
		key, time.Now().Unix(),
	).Scan(&result)
	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to query result: %w", err)
	}
	return result != 0, true, nil
}

// Set upserts the result for key with the given TTL and opportunistically
// sweeps expired rows every purgeInterval writes.
func (s *Store) Set(ctx context.Context, key string, value bool, ttl time.Duration) error {
	result := 0
	if value {
		result = 1
	}
	expiresAt := time.Now().Add(ttl).Unix()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO condition_results (cache_key, result, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET result = excluded.result, expires_at = excluded.expires_at`,
		key, result, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}

	if s.writes.Add(1)%purgeInterval == 0 {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM condition_results WHERE expires_at <= ?`, time.Now().Unix(),
		); err != nil {
			return fmt.Errorf("failed to purge expired rows: %w", err)
		}
	}

	return nil
}

// Len returns the number of unexpired rows. Used by tests and diagnostics.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM condition_results WHERE expires_at > ?`, time.Now().Unix(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
