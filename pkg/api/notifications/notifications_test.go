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

package notifications

import (
	"encoding/json"
	"testing"

	"github.com/poolkeeper/poolkeeper/pkg/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationsCarryMethodAndPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		send   func(ns chan<- models.Notification)
		name   string
		method string
		params string
	}{
		{
			name: "pools",
			send: func(ns chan<- models.Notification) {
				PoolsChanged(ns, models.PoolChanged{UUID: "p1", Method: models.MethodPoolsCreate})
			},
			method: models.NotificationPoolsChanged,
			params: `{"uuid":"p1","method":"pools.create"}`,
		},
		{
			name: "filesystems",
			send: func(ns chan<- models.Notification) {
				FilesystemsChanged(ns, models.PoolChanged{UUID: "p1", Method: models.MethodFilesystemsRename})
			},
			method: models.NotificationFSChanged,
			params: `{"uuid":"p1","method":"filesystems.rename"}`,
		},
		{
			name: "keys",
			send: func(ns chan<- models.Notification) {
				KeysChanged(ns, models.KeysChanged{KeyDescription: "k", Method: models.MethodKeysSet})
			},
			method: models.NotificationKeysChanged,
			params: `{"key_description":"k","method":"keys.set"}`,
		},
		{
			name: "devices",
			send: func(ns chan<- models.Notification) {
				DevicesChanged(ns, models.DevicesChanged{Devnode: "/dev/sdb", UUID: "d1", Action: "add"})
			},
			method: models.NotificationDevicesChange,
			params: `{"devnode":"/dev/sdb","uuid":"d1","action":"add"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ns := make(chan models.Notification, 1)
			tt.send(ns)
			require.Len(t, ns, 1)
			n := <-ns
			assert.Equal(t, tt.method, n.Method)
			assert.JSONEq(t, tt.params, string(n.Params))
		})
	}
}

func TestFullChannelDrops(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	KeysChanged(ns, models.KeysChanged{KeyDescription: "a"})
	KeysChanged(ns, models.KeysChanged{KeyDescription: "b"})

	require.Len(t, ns, 1)
	var got models.KeysChanged
	require.NoError(t, json.Unmarshal((<-ns).Params, &got))
	assert.Equal(t, "a", got.KeyDescription)
}
