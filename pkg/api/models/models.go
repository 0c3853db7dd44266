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

// Package models holds the JSON-RPC envelope types and the parameter and
// result payloads of the control API.
package models

import "encoding/json"

const (
	MethodPools               = "pools"
	MethodPoolsGet            = "pools.get"
	MethodPoolsLocked         = "pools.locked"
	MethodPoolsCreate         = "pools.create"
	MethodPoolsDestroy        = "pools.destroy"
	MethodPoolsRename         = "pools.rename"
	MethodPoolsBlockdevsAdd   = "pools.blockdevs.add"
	MethodPoolsUnlock         = "pools.unlock"
	MethodPoolsClevisBind     = "pools.clevis.bind"
	MethodPoolsClevisUnbind   = "pools.clevis.unbind"
	MethodPoolsClevisRegen    = "pools.clevis.regen"
	MethodFilesystemsCreate   = "filesystems.create"
	MethodFilesystemsDestroy  = "filesystems.destroy"
	MethodFilesystemsRename   = "filesystems.rename"
	MethodKeys                = "keys"
	MethodKeysSet             = "keys.set"
	MethodKeysUnset           = "keys.unset"
	MethodVersion             = "version"
	MethodHistory             = "history"
	NotificationPoolsChanged  = "pools.changed"
	NotificationFSChanged     = "filesystems.changed"
	NotificationKeysChanged   = "keys.changed"
	NotificationDevicesChange = "devices.changed"
)

type Notification struct {
	Method string
	Params json.RawMessage
}

type RequestObject struct {
	ID      *RPCID          `json:"id,omitempty"`
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NotificationObject is a server-initiated JSON-RPC notification. It has no
// id.
type NotificationObject struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type ResponseObject struct {
	Result  any    `json:"result"`
	JSONRPC string `json:"jsonrpc"`
	ID      RPCID  `json:"id"`
}

// ResponseErrorObject is separate from ResponseObject so error responses
// omit result while successful nil results are still sent.
type ResponseErrorObject struct {
	Error   *ErrorObject `json:"error"`
	JSONRPC string       `json:"jsonrpc"`
	ID      RPCID        `json:"id"`
}
