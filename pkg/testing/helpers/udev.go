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

package helpers

import (
	"maps"
	"slices"
	"sync/atomic"

	"github.com/pilebones/go-udev/netlink"
	"github.com/poolkeeper/poolkeeper/pkg/engine/types"
)

// FakeUdevDevice is a types.UdevDeviceSource built from plain values.
type FakeUdevDevice struct {
	Props       map[string]string
	Node        string
	Num         uint64
	HasNum      bool
	Initialized bool
}

func (d *FakeUdevDevice) IsInitialized() bool { return d.Initialized }

func (d *FakeUdevDevice) Devnode() (string, bool) { return d.Node, d.Node != "" }

func (d *FakeUdevDevice) Devnum() (uint64, bool) { return d.Num, d.HasNum }

// ForEachProperty visits properties in key order.
func (d *FakeUdevDevice) ForEachProperty(fn func(name, value string)) {
	for _, k := range slices.Sorted(maps.Keys(d.Props)) {
		fn(k, d.Props[k])
	}
}

// FakeUdevEvent is a types.UdevEventSource.
type FakeUdevEvent struct {
	Dev    *FakeUdevDevice
	Action string
}

func (e *FakeUdevEvent) EventType() types.UdevEventType { return types.ParseUdevEventType(e.Action) }

func (e *FakeUdevEvent) Device() types.UdevDeviceSource { return e.Dev }

// OwnedDeviceEvent returns the snapshot of an initialized event for a device
// carrying engine metadata. pool may be the nil uuid to omit the pool
// property.
func OwnedDeviceEvent(
	action string,
	devnode string,
	dev types.DevUUID,
	pool types.PoolUUID,
) *types.UdevEngineEvent {
	props := map[string]string{
		"ID_FS_TYPE": "poolkeeper",
		"ID_FS_UUID": dev.String(),
		"SUBSYSTEM":  "block",
		"DEVNAME":    devnode,
	}
	if !pool.IsNil() {
		props["POOLKEEPER_POOL_UUID"] = pool.String()
	}
	return types.NewUdevEngineEvent(&FakeUdevEvent{
		Action: action,
		Dev: &FakeUdevDevice{
			Initialized: true,
			Node:        devnode,
			Props:       props,
		},
	})
}

// FakeUdevSource is a udev.Source fed by Emit instead of a netlink socket.
type FakeUdevSource struct {
	queue      chan netlink.UEvent
	quit       chan struct{}
	monitoring chan struct{}
	closed     atomic.Bool
}

func NewFakeUdevSource() *FakeUdevSource {
	return &FakeUdevSource{
		quit:       make(chan struct{}, 1),
		monitoring: make(chan struct{}),
	}
}

func (f *FakeUdevSource) Connect() error { return nil }

func (f *FakeUdevSource) Monitor(queue chan netlink.UEvent, _ chan error) chan struct{} {
	f.queue = queue
	close(f.monitoring)
	return f.quit
}

func (f *FakeUdevSource) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *FakeUdevSource) Closed() bool { return f.closed.Load() }

// Emit waits for monitoring to begin, then delivers ev.
func (f *FakeUdevSource) Emit(ev netlink.UEvent) {
	<-f.monitoring
	f.queue <- ev
}

// OwnedUEvent is a raw, udev-processed event for a block device carrying
// engine metadata.
func OwnedUEvent(action, devname string, dev types.DevUUID) netlink.UEvent {
	return netlink.UEvent{
		Action: netlink.KObjAction(action),
		KObj:   "/devices/virtual/block/" + devname,
		Env: map[string]string{
			"ACTION":           action,
			"SUBSYSTEM":        "block",
			"DEVNAME":          devname,
			"MAJOR":            "8",
			"MINOR":            "16",
			"USEC_INITIALIZED": "1",
			"ID_FS_TYPE":       "poolkeeper",
			"ID_FS_UUID":       dev.String(),
		},
	}
}
