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

package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/poolkeeper/poolkeeper/pkg/api/models"
	"github.com/poolkeeper/poolkeeper/pkg/database"
	"github.com/poolkeeper/poolkeeper/pkg/testing/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHistorySubject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		params string
		want   string
	}{
		{name: "pool", params: `{"uuid":"p1","method":"pools.create"}`, want: "p1"},
		{name: "key", params: `{"key_description":"k1","method":"keys.set"}`, want: "k1"},
		{name: "device", params: `{"devnode":"/dev/sdb","uuid":"d1","action":"add"}`, want: "/dev/sdb"},
		{name: "garbage", params: `[]`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := historySubject(models.Notification{Params: json.RawMessage(tt.params)})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHistoryRecorderRecordsAndCleansUp(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	hist := &mocks.MockHistory{}
	cleaned := make(chan struct{}, 2)
	hist.On("CleanupHistory", mock.Anything, clock.Now().Add(-time.Hour)).
		Return(int64(0), nil).Once().
		Run(func(mock.Arguments) { cleaned <- struct{}{} })

	recorded := make(chan *database.HistoryEntry, 1)
	hist.On("AddHistory", mock.Anything, mock.Anything).
		Return(nil).
		Run(func(args mock.Arguments) {
			recorded <- args.Get(1).(*database.HistoryEntry)
		})

	r := &historyRecorder{db: hist, clock: clock, retention: time.Hour}
	notifs := make(chan models.Notification, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, notifs) }()
	<-cleaned

	notifs <- models.Notification{
		Method: models.NotificationPoolsChanged,
		Params: json.RawMessage(`{"uuid":"p1","method":"pools.create"}`),
	}
	entry := <-recorded
	assert.Equal(t, models.NotificationPoolsChanged, entry.Event)
	assert.Equal(t, "p1", entry.Subject)
	assert.True(t, entry.Time.Equal(clock.Now()))

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	hist.On("CleanupHistory", mock.Anything, mock.Anything).
		Return(int64(3), nil).Once().
		Run(func(mock.Arguments) { cleaned <- struct{}{} })
	clock.Advance(historyCleanupInterval)
	<-cleaned

	close(notifs)
	require.NoError(t, <-done)
	hist.AssertExpectations(t)
}

func TestHistoryRecorderStopsOnContext(t *testing.T) {
	t.Parallel()

	hist := &mocks.MockHistory{}
	hist.On("CleanupHistory", mock.Anything, mock.Anything).Return(int64(0), assert.AnError)

	r := &historyRecorder{db: hist, clock: clockwork.NewFakeClock(), retention: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx, make(chan models.Notification)))
}
