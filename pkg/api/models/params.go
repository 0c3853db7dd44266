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

import "encoding/json"

type PoolParams struct {
	UUID string `json:"uuid" validate:"required,uuid"`
}

type ClevisParams struct {
	Pin    string          `json:"pin" validate:"required"`
	Config json.RawMessage `json:"config,omitempty"`
}

type CreatePoolParams struct {
	KeyDescription *string       `json:"key_description,omitempty" validate:"omitempty,keydesc"`
	Clevis         *ClevisParams `json:"clevis,omitempty"`
	Name           string        `json:"name" validate:"required,poolname"`
	Redundancy     string        `json:"redundancy,omitempty" validate:"omitempty,oneof=none"`
	Devices        []string      `json:"devices" validate:"required,min=1,dive,required"`
}

type RenamePoolParams struct {
	UUID string `json:"uuid" validate:"required,uuid"`
	Name string `json:"name" validate:"required,poolname"`
}

type AddBlockdevsParams struct {
	UUID    string   `json:"uuid" validate:"required,uuid"`
	Tier    string   `json:"tier,omitempty" validate:"omitempty,oneof=data cache"`
	Devices []string `json:"devices" validate:"required,min=1,dive,required"`
}

type UnlockPoolParams struct {
	UUID   string `json:"uuid" validate:"required,uuid"`
	Method string `json:"method" validate:"required,oneof=clevis keyring"`
}

type BindClevisParams struct {
	UUID   string          `json:"uuid" validate:"required,uuid"`
	Pin    string          `json:"pin" validate:"required"`
	Config json.RawMessage `json:"config,omitempty"`
}

type FilesystemSpecParams struct {
	SizeBytes *uint64 `json:"size_bytes,omitempty" validate:"omitempty,gt=0"`
	Name      string  `json:"name" validate:"required,poolname"`
}

type CreateFilesystemsParams struct {
	Pool        string                 `json:"pool" validate:"required,uuid"`
	Filesystems []FilesystemSpecParams `json:"filesystems" validate:"required,min=1,dive"`
}

type DestroyFilesystemsParams struct {
	Pool        string   `json:"pool" validate:"required,uuid"`
	Filesystems []string `json:"filesystems" validate:"required,min=1,dive,uuid"`
}

type RenameFilesystemParams struct {
	Pool       string `json:"pool" validate:"required,uuid"`
	Filesystem string `json:"filesystem" validate:"required,uuid"`
	Name       string `json:"name" validate:"required,poolname"`
}

type SetKeyParams struct {
	KeyDescription string `json:"key_description" validate:"required,keydesc"`
	// Key is the key material, base64 encoded.
	Key string `json:"key" validate:"required,base64"`
}

type UnsetKeyParams struct {
	KeyDescription string `json:"key_description" validate:"required,keydesc"`
}

type HistoryParams struct {
	LastID int64 `json:"last_id" validate:"gte=0"`
	Limit  int   `json:"limit" validate:"gte=0,lte=100"`
}
