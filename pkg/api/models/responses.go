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

package models

import (
	"github.com/poolkeeper/poolkeeper/pkg/database"
	"github.com/poolkeeper/poolkeeper/pkg/engine"
)

// ChangedResponse wraps the result of every mutating method. Changed is
// false when the request was a no-op.
type ChangedResponse struct {
	Result  any  `json:"result"`
	Changed bool `json:"changed"`
}

type VersionResponse struct {
	Version string `json:"version"`
}

type HistoryResponse struct {
	Entries []database.HistoryEntry `json:"entries"`
}

type PoolsResponse struct {
	Pools []engine.PoolInfo `json:"pools"`
}

type LockedPoolResponse struct {
	KeyDescription *string        `json:"key_description,omitempty"`
	Clevis         *ClevisParams  `json:"clevis,omitempty"`
	UUID           string         `json:"uuid"`
	Devices        []LockedDevice `json:"devices"`
}

type LockedDevice struct {
	Devnode string `json:"devnode"`
	UUID    string `json:"uuid"`
}

type KeysResponse struct {
	KeyDescriptions []string `json:"key_descriptions"`
}

// UUIDResult names the single entity a mutation touched.
type UUIDResult struct {
	UUID string `json:"uuid"`
}

type FilesystemResult struct {
	Name string `json:"name"`
	UUID string `json:"uuid"`
}

type UnlockResponse struct {
	Unlocked    []string `json:"unlocked"`
	StillLocked []string `json:"still_locked"`
}

// DevicesChanged is the payload of the devices.changed notification.
type DevicesChanged struct {
	Devnode string `json:"devnode"`
	UUID    string `json:"uuid"`
	Pool    string `json:"pool,omitempty"`
	Action  string `json:"action"`
}

// PoolChanged is the payload of the pools.changed and filesystems.changed
// notifications.
type PoolChanged struct {
	UUID   string `json:"uuid"`
	Method string `json:"method"`
}

// KeysChanged is the payload of the keys.changed notification.
type KeysChanged struct {
	KeyDescription string `json:"key_description"`
	Method         string `json:"method"`
}
