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
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/poolkeeper/poolkeeper/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *HistoryDB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "sub", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestHistoryDBPaging(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTemp(t)

	base := time.UnixMilli(1772366400000)
	for i := range 5 {
		entry := &database.HistoryEntry{
			Time:    base.Add(time.Duration(i) * time.Minute),
			Event:   "pools.created",
			Subject: string(rune('a' + i)),
			Params:  json.RawMessage(`{}`),
		}
		require.NoError(t, db.AddHistory(ctx, entry))
		assert.Equal(t, int64(i+1), entry.DBID)
	}

	page, err := db.ListHistory(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "e", page[0].Subject)
	assert.Equal(t, "d", page[1].Subject)

	page, err = db.ListHistory(ctx, page[1].DBID, 10)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "a", page[2].Subject)
	assert.True(t, page[2].Time.Equal(base))
}

func TestHistoryDBCleanup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTemp(t)

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, db.AddHistory(ctx, &database.HistoryEntry{Time: old, Event: "pools.destroyed"}))
	require.NoError(t, db.AddHistory(ctx, &database.HistoryEntry{Time: time.Now(), Event: "pools.created"}))

	n, err := db.CleanupHistory(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := db.ListHistory(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "pools.created", left[0].Event)
}

func TestHistoryDBReopenKeepsEntries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, db.AddHistory(ctx, &database.HistoryEntry{Time: time.Now(), Event: "keys.set"}))
	require.NoError(t, db.Close())

	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	list, err := db.ListHistory(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "keys.set", list[0].Event)
}

func TestHistoryDBNotConnected(t *testing.T) {
	t.Parallel()
	db := &HistoryDB{}

	_, err := db.ListHistory(context.Background(), 0, 1)
	require.ErrorIs(t, err, database.ErrNullSQL)
	require.ErrorIs(t, db.AddHistory(context.Background(), &database.HistoryEntry{}), database.ErrNullSQL)
	assert.NoError(t, db.Close())
}
