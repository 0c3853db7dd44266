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

package types

// EngineAction is implemented by every action result. IsChanged is true only
// when the operation really changed engine state; the API layer emits change
// notifications on that and nothing else.
type EngineAction interface {
	IsChanged() bool
}

var (
	_ EngineAction = CreateAction[Key]{}
	_ EngineAction = DeleteAction[Key]{}
	_ EngineAction = RenameAction[PoolUUID]{}
	_ EngineAction = MappingCreateAction[Key]{}
	_ EngineAction = MappingDeleteAction[Key]{}
	_ EngineAction = SetCreateAction[DevUUID]{}
	_ EngineAction = SetDeleteAction[DevUUID]{}
	_ EngineAction = SetUnlockAction[DevUUID]{}
	_ EngineAction = RegenAction{}
)

// Key is the payload of key mapping actions; the key itself is never echoed.
type Key struct{}

// Clevis is the payload of clevis binding actions.
type Clevis struct{}

// ActionKind is the variant of an action result.
type ActionKind uint8

const (
	// ActionIdentity means the requested state already held.
	ActionIdentity ActionKind = iota
	ActionCreated
	ActionDeleted
	ActionRenamed
	// ActionNoSource means a rename target did not exist.
	ActionNoSource
	// ActionValueChanged means a mapping key existed with a different value.
	ActionValueChanged
)

func (k ActionKind) String() string {
	switch k {
	case ActionIdentity:
		return "identity"
	case ActionCreated:
		return "created"
	case ActionDeleted:
		return "deleted"
	case ActionRenamed:
		return "renamed"
	case ActionNoSource:
		return "no_source"
	case ActionValueChanged:
		return "value_changed"
	default:
		return "unknown"
	}
}

// CreateAction is the result of creating a single entity.
type CreateAction[T any] struct {
	value T
	kind  ActionKind
}

func CreateIdentity[T any]() CreateAction[T] {
	return CreateAction[T]{kind: ActionIdentity}
}

func Created[T any](v T) CreateAction[T] {
	return CreateAction[T]{kind: ActionCreated, value: v}
}

func (a CreateAction[T]) Kind() ActionKind { return a.kind }

func (a CreateAction[T]) IsChanged() bool { return a.kind == ActionCreated }

// Changed returns the created value, if anything was created.
func (a CreateAction[T]) Changed() (T, bool) {
	return a.value, a.kind == ActionCreated
}

// DeleteAction is the result of deleting a single entity.
type DeleteAction[T any] struct {
	value T
	kind  ActionKind
}

func DeleteIdentity[T any]() DeleteAction[T] {
	return DeleteAction[T]{kind: ActionIdentity}
}

func Deleted[T any](v T) DeleteAction[T] {
	return DeleteAction[T]{kind: ActionDeleted, value: v}
}

func (a DeleteAction[T]) Kind() ActionKind { return a.kind }

// IsChanged is true iff something existed and was removed.
func (a DeleteAction[T]) IsChanged() bool { return a.kind == ActionDeleted }

func (a DeleteAction[T]) Changed() (T, bool) {
	return a.value, a.kind == ActionDeleted
}

// RenameAction is the result of renaming an entity.
type RenameAction[T any] struct {
	value T
	kind  ActionKind
}

func RenameIdentity[T any]() RenameAction[T] {
	return RenameAction[T]{kind: ActionIdentity}
}

func RenameNoSource[T any]() RenameAction[T] {
	return RenameAction[T]{kind: ActionNoSource}
}

func Renamed[T any](v T) RenameAction[T] {
	return RenameAction[T]{kind: ActionRenamed, value: v}
}

func (a RenameAction[T]) Kind() ActionKind { return a.kind }

func (a RenameAction[T]) IsChanged() bool { return a.kind == ActionRenamed }

func (a RenameAction[T]) Changed() (T, bool) {
	return a.value, a.kind == ActionRenamed
}

// MappingCreateAction is the result of inserting a key into a
// collection-valued property.
type MappingCreateAction[T any] struct {
	value T
	kind  ActionKind
}

func MappingCreateIdentity[T any]() MappingCreateAction[T] {
	return MappingCreateAction[T]{kind: ActionIdentity}
}

func MappingCreated[T any](v T) MappingCreateAction[T] {
	return MappingCreateAction[T]{kind: ActionCreated, value: v}
}

func MappingValueChanged[T any](v T) MappingCreateAction[T] {
	return MappingCreateAction[T]{kind: ActionValueChanged, value: v}
}

func (a MappingCreateAction[T]) Kind() ActionKind { return a.kind }

func (a MappingCreateAction[T]) IsChanged() bool {
	return a.kind == ActionCreated || a.kind == ActionValueChanged
}

func (a MappingCreateAction[T]) Changed() (T, bool) {
	return a.value, a.IsChanged()
}

// MappingDeleteAction is the result of removing a key from a
// collection-valued property.
type MappingDeleteAction[T any] struct {
	value T
	kind  ActionKind
}

func MappingDeleteIdentity[T any]() MappingDeleteAction[T] {
	return MappingDeleteAction[T]{kind: ActionIdentity}
}

func MappingDeleted[T any](v T) MappingDeleteAction[T] {
	return MappingDeleteAction[T]{kind: ActionDeleted, value: v}
}

func (a MappingDeleteAction[T]) Kind() ActionKind { return a.kind }

func (a MappingDeleteAction[T]) IsChanged() bool { return a.kind == ActionDeleted }

func (a MappingDeleteAction[T]) Changed() (T, bool) {
	return a.value, a.kind == ActionDeleted
}

// SetCreateAction aggregates a multi-target create. Only the elements that
// were actually created are listed.
type SetCreateAction[T any] struct {
	changed []T
}

func NewSetCreateAction[T any](changed []T) SetCreateAction[T] {
	return SetCreateAction[T]{changed: cloneSlice(changed)}
}

func EmptySetCreateAction[T any]() SetCreateAction[T] {
	return SetCreateAction[T]{}
}

func (a SetCreateAction[T]) IsChanged() bool { return len(a.changed) > 0 }

func (a SetCreateAction[T]) Changed() []T { return cloneSlice(a.changed) }

// SetDeleteAction aggregates a multi-target delete. Only the elements that
// were actually removed are listed.
type SetDeleteAction[T any] struct {
	changed []T
}

func NewSetDeleteAction[T any](changed []T) SetDeleteAction[T] {
	return SetDeleteAction[T]{changed: cloneSlice(changed)}
}

func EmptySetDeleteAction[T any]() SetDeleteAction[T] {
	return SetDeleteAction[T]{}
}

func (a SetDeleteAction[T]) IsChanged() bool { return len(a.changed) > 0 }

func (a SetDeleteAction[T]) Changed() []T { return cloneSlice(a.changed) }

// SetUnlockAction is the result of unlocking the devices of a pool.
type SetUnlockAction[T any] struct {
	unlocked    []T
	stillLocked []T
}

func NewSetUnlockAction[T any](unlocked, stillLocked []T) SetUnlockAction[T] {
	return SetUnlockAction[T]{
		unlocked:    cloneSlice(unlocked),
		stillLocked: cloneSlice(stillLocked),
	}
}

func EmptySetUnlockAction[T any]() SetUnlockAction[T] {
	return SetUnlockAction[T]{}
}

func (a SetUnlockAction[T]) IsChanged() bool { return len(a.unlocked) > 0 }

func (a SetUnlockAction[T]) Unlocked() []T { return cloneSlice(a.unlocked) }

func (a SetUnlockAction[T]) StillLocked() []T { return cloneSlice(a.stillLocked) }

// RegenAction reports a regeneration, which always changes state but has
// nothing to return.
type RegenAction struct{}

func (RegenAction) IsChanged() bool { return true }

func cloneSlice[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
