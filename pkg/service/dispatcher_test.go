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
	"testing"
	"time"

	"github.com/poolkeeper/poolkeeper/pkg/api/models"
	"github.com/poolkeeper/poolkeeper/pkg/engine"
	"github.com/poolkeeper/poolkeeper/pkg/engine/sim"
	"github.com/poolkeeper/poolkeeper/pkg/engine/types"
	"github.com/poolkeeper/poolkeeper/pkg/testing/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatcher(t *testing.T) (*Dispatcher, chan *types.UdevEngineEvent, chan models.Notification) {
	t.Helper()
	eng, err := sim.New()
	require.NoError(t, err)
	events := make(chan *types.UdevEngineEvent, 8)
	ns := make(chan models.Notification, 8)
	return NewDispatcher(engine.NewLockableEngine(eng), events, ns), events, ns
}

func decodeDevicesChanged(t *testing.T, n models.Notification) models.DevicesChanged {
	t.Helper()
	require.Equal(t, models.NotificationDevicesChange, n.Method)
	var payload models.DevicesChanged
	require.NoError(t, json.Unmarshal(n.Params, &payload))
	return payload
}

func TestDispatcherPublishesOnlyChanges(t *testing.T) {
	t.Parallel()
	d, _, ns := newDispatcher(t)
	dev, pool := types.NewDevUUID(), types.NewPoolUUID()

	d.Handle(helpers.OwnedDeviceEvent("add", "/dev/sdb", dev, pool))
	require.Len(t, ns, 1)
	assert.Equal(t, models.DevicesChanged{
		Devnode: "/dev/sdb",
		UUID:    dev.String(),
		Pool:    pool.String(),
		Action:  "add",
	}, decodeDevicesChanged(t, <-ns))

	// udev repeats change events for devices it already announced
	d.Handle(helpers.OwnedDeviceEvent("change", "/dev/sdb", dev, pool))
	assert.Empty(t, ns)

	d.Handle(helpers.OwnedDeviceEvent("remove", "/dev/sdb", dev, pool))
	require.Len(t, ns, 1)
	got := decodeDevicesChanged(t, <-ns)
	assert.Equal(t, "remove", got.Action)
	assert.Equal(t, dev.String(), got.UUID)

	d.Handle(helpers.OwnedDeviceEvent("remove", "/dev/sdb", dev, pool))
	assert.Empty(t, ns)
}

func TestDispatcherIgnoresForeignDevices(t *testing.T) {
	t.Parallel()
	d, _, ns := newDispatcher(t)

	d.Handle(types.NewUdevEngineEvent(&helpers.FakeUdevEvent{
		Action: "add",
		Dev: &helpers.FakeUdevDevice{
			Initialized: true,
			Node:        "/dev/sdc",
			Props:       map[string]string{"ID_FS_TYPE": "ext4"},
		},
	}))
	d.Handle(types.NewUdevEngineEvent(&helpers.FakeUdevEvent{
		Action: "add",
		Dev: &helpers.FakeUdevDevice{
			Node:  "/dev/sdd",
			Props: map[string]string{"ID_FS_TYPE": "poolkeeper", "ID_FS_UUID": types.NewDevUUID().String()},
		},
	}))
	assert.Empty(t, ns)
}

func TestDispatcherRunDrainsInOrder(t *testing.T) {
	t.Parallel()
	d, events, ns := newDispatcher(t)

	devs := []types.DevUUID{types.NewDevUUID(), types.NewDevUUID(), types.NewDevUUID()}
	for i, dev := range devs {
		events <- helpers.OwnedDeviceEvent("add", "/dev/sd"+string(rune('b'+i)), dev, types.NilPoolUUID())
	}
	close(events)

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop on closed channel")
	}

	require.Len(t, ns, len(devs))
	for _, dev := range devs {
		got := decodeDevicesChanged(t, <-ns)
		assert.Equal(t, dev.String(), got.UUID)
		assert.Empty(t, got.Pool)
	}
}

func TestDispatcherRunStopsWithContext(t *testing.T) {
	t.Parallel()
	d, _, _ := newDispatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))
}
