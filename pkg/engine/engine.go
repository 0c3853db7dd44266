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

// Package engine defines the storage engine surface that the control API and
// the hotplug dispatcher drive, and the lock that serializes them.
package engine

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/poolkeeper/poolkeeper/pkg/engine/types"
)

var (
	// ErrNotFound is returned when an operation names a pool or filesystem
	// that does not exist and the operation has no idempotent reading.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when the requested end state contradicts the
	// current one, e.g. a pool name already used with other devices.
	ErrConflict = errors.New("conflict")
	// ErrInvalidArgument is returned for requests that can never succeed.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrLocked is returned when a mutation targets an encrypted pool that
	// has not been unlocked yet.
	ErrLocked = errors.New("pool is locked")
)

// BlockDevInfo is one member device of a pool.
type BlockDevInfo struct {
	Devnode string             `json:"devnode"`
	UUID    types.DevUUID      `json:"uuid"`
	Tier    types.BlockDevTier `json:"tier"`
}

// FilesystemInfo is one filesystem of a pool.
type FilesystemInfo struct {
	Created time.Time            `json:"created"`
	Name    types.Name           `json:"name"`
	UUID    types.FilesystemUUID `json:"uuid"`
}

// PoolInfo is a point-in-time copy of a pool. Mutating it does not change
// the engine.
type PoolInfo struct {
	Created     time.Time             `json:"created"`
	Encryption  *types.EncryptionInfo `json:"encryption,omitempty"`
	Name        types.Name            `json:"name"`
	BlockDevs   []BlockDevInfo        `json:"blockdevs"`
	Filesystems []FilesystemInfo      `json:"filesystems"`
	UUID        types.PoolUUID        `json:"uuid"`
	Redundancy  types.Redundancy      `json:"redundancy"`
}

// Encrypted reports whether the pool was created with encryption.
func (p PoolInfo) Encrypted() bool {
	return p.Encryption != nil && !p.Encryption.IsEmpty()
}

// FilesystemSpec requests one filesystem. A nil size means the engine
// default.
type FilesystemSpec struct {
	SizeBytes *uint64    `json:"size_bytes,omitempty"`
	Name      types.Name `json:"name"`
}

// FilesystemCreated is the element type of a filesystem create action.
type FilesystemCreated struct {
	Name types.Name           `json:"name"`
	UUID types.FilesystemUUID `json:"uuid"`
}

// Reader is the read-only part of an engine. It is what a shared lock
// acquisition hands out.
type Reader interface {
	Pools() []PoolInfo
	GetPool(uuid types.PoolUUID) (PoolInfo, bool)
	GetPoolByName(name types.Name) (PoolInfo, bool)
	LockedPools() map[types.PoolUUID]types.LockedPoolInfo
	KeyDescriptions() []types.KeyDescription
}

// Engine is the full engine surface. Every mutation reports what it changed
// with an action result; a request whose end state already holds returns the
// identity variant and no error.
type Engine interface {
	Reader

	CreatePool(
		name types.Name,
		devices []types.DevicePath,
		redundancy types.Redundancy,
		encryption *types.EncryptionInfo,
	) (types.CreateAction[types.PoolUUID], error)
	DestroyPool(pool types.PoolUUID) (types.DeleteAction[types.PoolUUID], error)
	RenamePool(pool types.PoolUUID, name types.Name) (types.RenameAction[types.PoolUUID], error)
	AddBlockdevs(
		pool types.PoolUUID,
		devices []types.DevicePath,
		tier types.BlockDevTier,
	) (types.SetCreateAction[types.DevUUID], error)

	CreateFilesystems(
		pool types.PoolUUID,
		specs []FilesystemSpec,
	) (types.SetCreateAction[FilesystemCreated], error)
	DestroyFilesystems(
		pool types.PoolUUID,
		filesystems []types.FilesystemUUID,
	) (types.SetDeleteAction[types.FilesystemUUID], error)
	RenameFilesystem(
		pool types.PoolUUID,
		fs types.FilesystemUUID,
		name types.Name,
	) (types.RenameAction[types.FilesystemUUID], error)

	SetKey(desc types.KeyDescription, key types.SizedKeyMemory) (types.MappingCreateAction[types.Key], error)
	UnsetKey(desc types.KeyDescription) (types.MappingDeleteAction[types.Key], error)

	BindClevis(pool types.PoolUUID, pin string, config json.RawMessage) (types.CreateAction[types.Clevis], error)
	UnbindClevis(pool types.PoolUUID) (types.DeleteAction[types.Clevis], error)
	RebindClevis(pool types.PoolUUID) (types.RegenAction, error)
	UnlockPool(pool types.PoolUUID, method types.UnlockMethod) (types.SetUnlockAction[types.DevUUID], error)

	// HandleEvent applies one hotplug notification. A nil result means the
	// event was not relevant to the engine.
	HandleEvent(event *types.UdevEngineEvent) types.EngineAction
}
