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

// Package notifications publishes change events to the broker's source
// channel.
package notifications

import (
	"encoding/json"

	"github.com/poolkeeper/poolkeeper/pkg/api/models"
	"github.com/rs/zerolog/log"
)

// send never blocks: a full channel drops the notification, the same policy
// the broker applies to slow subscribers.
func send(ns chan<- models.Notification, method string, payload any) {
	params, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("method", method).Msg("error marshalling notification")
		return
	}

	select {
	case ns <- models.Notification{Method: method, Params: params}:
	default:
		log.Warn().Str("method", method).Msg("notification channel full, dropping notification")
	}
}

func PoolsChanged(ns chan<- models.Notification, payload models.PoolChanged) {
	send(ns, models.NotificationPoolsChanged, payload)
}

func FilesystemsChanged(ns chan<- models.Notification, payload models.PoolChanged) {
	send(ns, models.NotificationFSChanged, payload)
}

func KeysChanged(ns chan<- models.Notification, payload models.KeysChanged) {
	send(ns, models.NotificationKeysChanged, payload)
}

func DevicesChanged(ns chan<- models.Notification, payload models.DevicesChanged) {
	send(ns, models.NotificationDevicesChange, payload)
}
