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

// Package database holds the record types shared by the daemon's SQL
// stores and the migration runner they use.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrNullSQL = errors.New("database is not connected")

// HistoryEntry is one recorded change to pool state. Subject names the
// object the change was about: a pool or filesystem uuid, a key
// description or a device node.
type HistoryEntry struct {
	Time    time.Time       `json:"time"`
	Event   string          `json:"event"`
	Subject string          `json:"subject"`
	Params  json.RawMessage `json:"params"`
	DBID    int64           `json:"id"`
}

type HistoryReader interface {
	// ListHistory returns entries older than lastID, newest first. A
	// lastID of 0 starts from the newest entry.
	ListHistory(ctx context.Context, lastID int64, limit int) ([]HistoryEntry, error)
}

type HistoryWriter interface {
	AddHistory(ctx context.Context, entry *HistoryEntry) error
	CleanupHistory(ctx context.Context, before time.Time) (int64, error)
}
