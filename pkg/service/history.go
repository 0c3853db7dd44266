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
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/poolkeeper/poolkeeper/pkg/api/models"
	"github.com/poolkeeper/poolkeeper/pkg/database"
	"github.com/rs/zerolog/log"
)

const (
	historySubscriberBuffer = 64
	historyCleanupInterval  = 24 * time.Hour
)

// historyRecorder writes every broker notification to the history store and
// prunes entries older than the retention period once a day.
type historyRecorder struct {
	db        database.HistoryWriter
	clock     clockwork.Clock
	retention time.Duration
}

func historySubject(n models.Notification) string {
	var payload struct {
		UUID           string `json:"uuid"`
		KeyDescription string `json:"key_description"`
		Devnode        string `json:"devnode"`
	}
	if err := json.Unmarshal(n.Params, &payload); err != nil {
		return ""
	}
	switch {
	case payload.Devnode != "":
		return payload.Devnode
	case payload.KeyDescription != "":
		return payload.KeyDescription
	default:
		return payload.UUID
	}
}

func (r *historyRecorder) record(ctx context.Context, n models.Notification) {
	entry := &database.HistoryEntry{
		Time:    r.clock.Now(),
		Event:   n.Method,
		Subject: historySubject(n),
		Params:  n.Params,
	}
	if err := r.db.AddHistory(ctx, entry); err != nil {
		log.Error().Err(err).Str("event", n.Method).Msg("error recording history entry")
	}
}

func (r *historyRecorder) cleanup(ctx context.Context) {
	n, err := r.db.CleanupHistory(ctx, r.clock.Now().Add(-r.retention))
	if err != nil {
		log.Error().Err(err).Msg("error cleaning up history")
		return
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Msg("cleaned up history")
	}
}

// Run records notifications until ctx is done or the subscription closes.
func (r *historyRecorder) Run(ctx context.Context, notifs <-chan models.Notification) error {
	r.cleanup(ctx)

	ticker := r.clock.NewTicker(historyCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			r.cleanup(ctx)
		case n, ok := <-notifs:
			if !ok {
				return nil
			}
			r.record(ctx, n)
		}
	}
}
