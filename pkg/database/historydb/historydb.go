// Poolkeeper
// Copyright (c) 2026 The Poolkeeper Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Poolkeeper.
//
// Poolkeeper is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Poolkeeper is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Poolkeeper.  If not, see <http://www.gnu.org/licenses/>.

// Package historydb stores the daemon's operation log in sqlite.
package historydb

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/poolkeeper/poolkeeper/pkg/database"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const sqliteConnParams = "?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000"

// MaxPage caps a single ListHistory call.
const MaxPage = 100

type HistoryDB struct {
	sql  *sql.DB
	path string
}

// Open opens or creates the database at path and brings its schema up to
// date.
func Open(ctx context.Context, path string) (*HistoryDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create directory for database: %w", err)
	}

	sqlInstance, err := sql.Open("sqlite3", path+sqliteConnParams)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := sqlInstance.PingContext(ctx); err != nil {
		_ = sqlInstance.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &HistoryDB{sql: sqlInstance, path: path}
	if err := db.MigrateUp(); err != nil {
		_ = sqlInstance.Close()
		return nil, err
	}
	return db, nil
}

func (db *HistoryDB) Path() string {
	return db.path
}

func (db *HistoryDB) MigrateUp() error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	if err := database.MigrateUp(db.sql, migrationFiles, "migrations"); err != nil {
		return fmt.Errorf("failed to run history database migrations: %w", err)
	}
	return nil
}

// SetSQLForTesting swaps in sqlDB and migrates it.
func (db *HistoryDB) SetSQLForTesting(sqlDB *sql.DB) error {
	db.sql = sqlDB
	return db.MigrateUp()
}

func (db *HistoryDB) AddHistory(ctx context.Context, entry *database.HistoryEntry) error {
	if db.sql == nil {
		return database.ErrNullSQL
	}
	return sqlAddHistory(ctx, db.sql, entry)
}

func (db *HistoryDB) ListHistory(
	ctx context.Context,
	lastID int64,
	limit int,
) ([]database.HistoryEntry, error) {
	if db.sql == nil {
		return nil, database.ErrNullSQL
	}
	if limit <= 0 || limit > MaxPage {
		limit = MaxPage
	}
	return sqlListHistory(ctx, db.sql, lastID, limit)
}

// CleanupHistory deletes entries recorded before the cutoff and returns
// how many were removed.
func (db *HistoryDB) CleanupHistory(ctx context.Context, before time.Time) (int64, error) {
	if db.sql == nil {
		return 0, database.ErrNullSQL
	}
	return sqlCleanupHistory(ctx, db.sql, before)
}

func (db *HistoryDB) Close() error {
	if db.sql == nil {
		return nil
	}
	if err := db.sql.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
