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

package historydb

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/poolkeeper/poolkeeper/pkg/database"
	"github.com/rs/zerolog/log"
)

func closeStmt(stmt *sql.Stmt) {
	if err := stmt.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close sql statement")
	}
}

func sqlVacuum(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `vacuum;`); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}

func sqlAddHistory(ctx context.Context, db *sql.DB, entry *database.HistoryEntry) error {
	stmt, err := db.PrepareContext(ctx, `
		insert into History(
			Time, Event, Subject, Params
		) values (?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare history insert statement: %w", err)
	}
	defer closeStmt(stmt)

	params := string(entry.Params)
	if params == "" {
		params = "null"
	}
	res, err := stmt.ExecContext(ctx,
		entry.Time.UnixMilli(),
		entry.Event,
		entry.Subject,
		params,
	)
	if err != nil {
		return fmt.Errorf("failed to execute history insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get history entry id: %w", err)
	}
	entry.DBID = id
	return nil
}

func sqlListHistory(
	ctx context.Context,
	db *sql.DB,
	lastID int64,
	limit int,
) ([]database.HistoryEntry, error) {
	list := make([]database.HistoryEntry, 0, limit)
	if lastID <= 0 {
		lastID = math.MaxInt64
	}

	q, err := db.PrepareContext(ctx, `
		select
		DBID, Time, Event, Subject, Params
		from History
		where DBID < ?
		order by DBID desc
		limit ?;
	`)
	if err != nil {
		return list, fmt.Errorf("failed to prepare history query statement: %w", err)
	}
	defer closeStmt(q)

	rows, err := q.QueryContext(ctx, lastID, limit)
	if err != nil {
		return list, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql rows")
		}
	}()

	for rows.Next() {
		var row database.HistoryEntry
		var ms int64
		var params string
		if err := rows.Scan(&row.DBID, &ms, &row.Event, &row.Subject, &params); err != nil {
			return list, fmt.Errorf("failed to scan history row: %w", err)
		}
		row.Time = time.UnixMilli(ms)
		row.Params = []byte(params)
		list = append(list, row)
	}
	if err := rows.Err(); err != nil {
		return list, fmt.Errorf("failed to iterate history rows: %w", err)
	}
	return list, nil
}

func sqlCleanupHistory(ctx context.Context, db *sql.DB, before time.Time) (int64, error) {
	stmt, err := db.PrepareContext(ctx, `delete from History where Time < ?;`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare history cleanup statement: %w", err)
	}
	defer closeStmt(stmt)

	result, err := stmt.ExecContext(ctx, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to execute history cleanup: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		if err := sqlVacuum(ctx, db); err != nil {
			return rowsAffected, fmt.Errorf("cleanup succeeded but vacuum failed: %w", err)
		}
	}
	return rowsAffected, nil
}
