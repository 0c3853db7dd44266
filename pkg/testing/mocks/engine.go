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
	"encoding/json"
	"fmt"

	"github.com/poolkeeper/poolkeeper/pkg/engine"
	"github.com/poolkeeper/poolkeeper/pkg/engine/types"
	"github.com/stretchr/testify/mock"
)

// MockEngine is a mock implementation of the engine.Engine interface using
// testify/mock.
type MockEngine struct {
	mock.Mock
}

var _ engine.Engine = (*MockEngine)(nil)

func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

// get returns the i-th return value as T, or T's zero value when the
// expectation returned nil or another type.
func get[T any](args mock.Arguments, i int) T {
	if v, ok := args.Get(i).(T); ok {
		return v
	}
	var zero T
	return zero
}

func wrapErr(args mock.Arguments, i int) error {
	if err := args.Error(i); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

func (m *MockEngine) Pools() []engine.PoolInfo {
	args := m.Called()
	return get[[]engine.PoolInfo](args, 0)
}

func (m *MockEngine) GetPool(uuid types.PoolUUID) (engine.PoolInfo, bool) {
	args := m.Called(uuid)
	return get[engine.PoolInfo](args, 0), args.Bool(1)
}

func (m *MockEngine) GetPoolByName(name types.Name) (engine.PoolInfo, bool) {
	args := m.Called(name)
	return get[engine.PoolInfo](args, 0), args.Bool(1)
}

func (m *MockEngine) LockedPools() map[types.PoolUUID]types.LockedPoolInfo {
	args := m.Called()
	return get[map[types.PoolUUID]types.LockedPoolInfo](args, 0)
}

func (m *MockEngine) KeyDescriptions() []types.KeyDescription {
	args := m.Called()
	return get[[]types.KeyDescription](args, 0)
}

func (m *MockEngine) CreatePool(
	name types.Name,
	devices []types.DevicePath,
	redundancy types.Redundancy,
	encryption *types.EncryptionInfo,
) (types.CreateAction[types.PoolUUID], error) {
	args := m.Called(name, devices, redundancy, encryption)
	return get[types.CreateAction[types.PoolUUID]](args, 0), wrapErr(args, 1)
}

func (m *MockEngine) DestroyPool(pool types.PoolUUID) (types.DeleteAction[types.PoolUUID], error) {
	args := m.Called(pool)
	return get[types.DeleteAction[types.PoolUUID]](args, 0), wrapErr(args, 1)
}

func (m *MockEngine) RenamePool(pool types.PoolUUID, name types.Name) (types.RenameAction[types.PoolUUID], error) {
	args := m.Called(pool, name)
	return get[types.RenameAction[types.PoolUUID]](args, 0), wrapErr(args, 1)
}

func (m *MockEngine) AddBlockdevs(
	pool types.PoolUUID,
	devices []types.DevicePath,
	tier types.BlockDevTier,
) (types.SetCreateAction[types.DevUUID], error) {
	args := m.Called(pool, devices, tier)
	return get[types.SetCreateAction[types.DevUUID]](args, 0), wrapErr(args, 1)
}

func (m *MockEngine) CreateFilesystems(
	pool types.PoolUUID,
	specs []engine.FilesystemSpec,
) (types.SetCreateAction[engine.FilesystemCreated], error) {
	args := m.Called(pool, specs)
	return get[types.SetCreateAction[engine.FilesystemCreated]](args, 0), wrapErr(args, 1)
}

func (m *MockEngine) DestroyFilesystems(
	pool types.PoolUUID,
	filesystems []types.FilesystemUUID,
) (types.SetDeleteAction[types.FilesystemUUID], error) {
	args := m.Called(pool, filesystems)
	return get[types.SetDeleteAction[types.FilesystemUUID]](args, 0), wrapErr(args, 1)
}

func (m *MockEngine) RenameFilesystem(
	pool types.PoolUUID,
	fs types.FilesystemUUID,
	name types.Name,
) (types.RenameAction[types.FilesystemUUID], error) {
	args := m.Called(pool, fs, name)
	return get[types.RenameAction[types.FilesystemUUID]](args, 0), wrapErr(args, 1)
}

func (m *MockEngine) SetKey(
	desc types.KeyDescription,
	key types.SizedKeyMemory,
) (types.MappingCreateAction[types.Key], error) {
	args := m.Called(desc, key)
	return get[types.MappingCreateAction[types.Key]](args, 0), wrapErr(args, 1)
}

func (m *MockEngine) UnsetKey(desc types.KeyDescription) (types.MappingDeleteAction[types.Key], error) {
	args := m.Called(desc)
	return get[types.MappingDeleteAction[types.Key]](args, 0), wrapErr(args, 1)
}

func (m *MockEngine) BindClevis(
	pool types.PoolUUID,
	pin string,
	config json.RawMessage,
) (types.CreateAction[types.Clevis], error) {
	args := m.Called(pool, pin, config)
	return get[types.CreateAction[types.Clevis]](args, 0), wrapErr(args, 1)
}

func (m *MockEngine) UnbindClevis(pool types.PoolUUID) (types.DeleteAction[types.Clevis], error) {
	args := m.Called(pool)
	return get[types.DeleteAction[types.Clevis]](args, 0), wrapErr(args, 1)
}

func (m *MockEngine) RebindClevis(pool types.PoolUUID) (types.RegenAction, error) {
	args := m.Called(pool)
	return get[types.RegenAction](args, 0), wrapErr(args, 1)
}

func (m *MockEngine) UnlockPool(
	pool types.PoolUUID,
	method types.UnlockMethod,
) (types.SetUnlockAction[types.DevUUID], error) {
	args := m.Called(pool, method)
	return get[types.SetUnlockAction[types.DevUUID]](args, 0), wrapErr(args, 1)
}

// HandleEvent returns nil unless the expectation supplies an action.
func (m *MockEngine) HandleEvent(event *types.UdevEngineEvent) types.EngineAction {
	args := m.Called(event)
	return get[types.EngineAction](args, 0)
}
