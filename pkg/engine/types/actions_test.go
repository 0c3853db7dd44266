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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestCreateAction(t *testing.T) {
	t.Parallel()

	id := NewPoolUUID()

	created := Created(id)
	assert.Equal(t, ActionCreated, created.Kind())
	assert.True(t, created.IsChanged())
	got, ok := created.Changed()
	assert.True(t, ok)
	assert.Equal(t, id, got)

	identity := CreateIdentity[PoolUUID]()
	assert.Equal(t, ActionIdentity, identity.Kind())
	assert.False(t, identity.IsChanged())
	_, ok = identity.Changed()
	assert.False(t, ok)
}

func TestDeleteAction(t *testing.T) {
	t.Parallel()

	id := NewFilesystemUUID()
	assert.True(t, Deleted(id).IsChanged())
	assert.False(t, DeleteIdentity[FilesystemUUID]().IsChanged())

	got, ok := Deleted(id).Changed()
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestRenameAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		action  RenameAction[PoolUUID]
		kind    ActionKind
		changed bool
	}{
		{action: RenameIdentity[PoolUUID](), kind: ActionIdentity, changed: false},
		{action: RenameNoSource[PoolUUID](), kind: ActionNoSource, changed: false},
		{action: Renamed(NewPoolUUID()), kind: ActionRenamed, changed: true},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.kind, tt.action.Kind())
			assert.Equal(t, tt.changed, tt.action.IsChanged())
			_, ok := tt.action.Changed()
			assert.Equal(t, tt.changed, ok)
		})
	}
}

func TestMappingActions(t *testing.T) {
	t.Parallel()

	assert.True(t, MappingCreated(Key{}).IsChanged())
	assert.True(t, MappingValueChanged(Key{}).IsChanged())
	assert.Equal(t, ActionValueChanged, MappingValueChanged(Key{}).Kind())
	assert.False(t, MappingCreateIdentity[Key]().IsChanged())

	assert.True(t, MappingDeleted(Key{}).IsChanged())
	assert.False(t, MappingDeleteIdentity[Key]().IsChanged())
}

func TestSetUnlockAction(t *testing.T) {
	t.Parallel()

	dev := NewDevUUID()
	locked := NewDevUUID()

	action := NewSetUnlockAction([]DevUUID{dev}, []DevUUID{locked})
	assert.True(t, action.IsChanged())
	assert.Equal(t, []DevUUID{dev}, action.Unlocked())
	assert.Equal(t, []DevUUID{locked}, action.StillLocked())

	nothing := NewSetUnlockAction(nil, []DevUUID{locked})
	assert.False(t, nothing.IsChanged())
	assert.False(t, EmptySetUnlockAction[DevUUID]().IsChanged())
}

func TestRegenActionAlwaysChanged(t *testing.T) {
	t.Parallel()
	assert.True(t, RegenAction{}.IsChanged())
}

// TestPropertySetActionsChangedIffNonEmpty checks the aggregate flag and that
// the action does not alias the caller's slice.
func TestPropertySetActionsChangedIffNonEmpty(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		names := rapid.SliceOf(rapid.StringMatching(`[a-z]{1,8}`)).Draw(t, "names")

		create := NewSetCreateAction(names)
		del := NewSetDeleteAction(names)
		if create.IsChanged() != (len(names) > 0) {
			t.Fatalf("create changed=%v for %d names", create.IsChanged(), len(names))
		}
		if del.IsChanged() != (len(names) > 0) {
			t.Fatalf("delete changed=%v for %d names", del.IsChanged(), len(names))
		}
		if len(names) > 0 {
			names[0] = "mutated"
			if create.Changed()[0] == "mutated" || del.Changed()[0] == "mutated" {
				t.Fatal("set action aliases caller slice")
			}
		}
	})
}
