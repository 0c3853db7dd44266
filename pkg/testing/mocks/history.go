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

package mocks

import (
	"context"
	"time"

	"github.com/poolkeeper/poolkeeper/pkg/database"
	"github.com/stretchr/testify/mock"
)

// MockHistory implements both sides of the history store.
type MockHistory struct {
	mock.Mock
}

var (
	_ database.HistoryReader = (*MockHistory)(nil)
	_ database.HistoryWriter = (*MockHistory)(nil)
)

func (m *MockHistory) ListHistory(ctx context.Context, lastID int64, limit int) ([]database.HistoryEntry, error) {
	args := m.Called(ctx, lastID, limit)
	return get[[]database.HistoryEntry](args, 0), wrapErr(args, 1)
}

func (m *MockHistory) AddHistory(ctx context.Context, entry *database.HistoryEntry) error {
	args := m.Called(ctx, entry)
	return wrapErr(args, 0)
}

func (m *MockHistory) CleanupHistory(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return get[int64](args, 0), wrapErr(args, 1)
}
