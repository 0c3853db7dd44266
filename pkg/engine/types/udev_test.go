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
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice mimics a producer that hands out strings backed by a buffer it
// overwrites after every notification.
type fakeDevice struct {
	node        *string
	num         *uint64
	props       [][2]string
	initialized bool
}

func (d *fakeDevice) IsInitialized() bool { return d.initialized }

func (d *fakeDevice) Devnode() (string, bool) {
	if d.node == nil {
		return "", false
	}
	return *d.node, true
}

func (d *fakeDevice) Devnum() (uint64, bool) {
	if d.num == nil {
		return 0, false
	}
	return *d.num, true
}

func (d *fakeDevice) ForEachProperty(fn func(name, value string)) {
	for _, p := range d.props {
		fn(p[0], p[1])
	}
}

type fakeEvent struct {
	dev    *fakeDevice
	action string
}

func (e *fakeEvent) EventType() UdevEventType { return ParseUdevEventType(e.action) }
func (e *fakeEvent) Device() UdevDeviceSource { return e.dev }

func TestUdevSnapshotWithoutDevnode(t *testing.T) {
	t.Parallel()

	ev := NewUdevEngineEvent(&fakeEvent{action: "add", dev: &fakeDevice{}})

	assert.Equal(t, UdevEventAdd, ev.EventType())
	_, ok := ev.Device().Devnode()
	assert.False(t, ok)
	_, ok = ev.Device().Devnum()
	assert.False(t, ok)
	assert.False(t, ev.Device().IsInitialized())
	assert.Empty(t, ev.Device().Properties())
}

func TestUdevSnapshotPropertyLookup(t *testing.T) {
	t.Parallel()

	node := "/dev/sdb"
	num := uint64(0x810)
	props := [][2]string{
		{"SUBSYSTEM", "block"},
		{"ID_FS_TYPE", "poolkeeper"},
		{"DEVTYPE", "disk"},
	}
	ev := NewUdevEngineEvent(&fakeEvent{
		action: "change",
		dev:    &fakeDevice{initialized: true, node: &node, num: &num, props: props},
	})

	dev := ev.Device()
	assert.True(t, dev.IsInitialized())
	gotNode, ok := dev.Devnode()
	require.True(t, ok)
	assert.Equal(t, "/dev/sdb", gotNode)
	gotNum, ok := dev.Devnum()
	require.True(t, ok)
	assert.Equal(t, num, gotNum)

	for _, p := range props {
		v, ok := dev.PropertyValue(p[0])
		assert.True(t, ok, p[0])
		assert.Equal(t, p[1], v)
	}
	_, ok = dev.PropertyValue("ID_FS_UUID")
	assert.False(t, ok)
	assert.Len(t, dev.Properties(), len(props))
}

func TestUdevSnapshotOutlivesProducerBuffer(t *testing.T) {
	t.Parallel()

	buf := []byte("ID_FS_TYPE")
	val := []byte("poolkeeper")
	// Zero-copy views into buffers the producer will overwrite.
	name := unsafe.String(&buf[0], len(buf))
	value := unsafe.String(&val[0], len(val))

	ev := NewUdevEngineEvent(&fakeEvent{
		action: "add",
		dev:    &fakeDevice{props: [][2]string{{name, value}}},
	})

	copy(buf, "XXXXXXXXXX")
	copy(val, "YYYYYYYYYY")

	got, ok := ev.Device().PropertyValue("ID_FS_TYPE")
	require.True(t, ok)
	assert.Equal(t, "poolkeeper", got)
}

func TestUdevPropertiesReturnsCopy(t *testing.T) {
	t.Parallel()

	ev := NewUdevEngineEvent(&fakeEvent{
		action: "add",
		dev:    &fakeDevice{props: [][2]string{{"A", "1"}}},
	})

	props := ev.Device().Properties()
	props["A"] = "2"
	props["B"] = "3"

	v, _ := ev.Device().PropertyValue("A")
	assert.Equal(t, "1", v)
	_, ok := ev.Device().PropertyValue("B")
	assert.False(t, ok)
}

func TestParseUdevEventType(t *testing.T) {
	t.Parallel()

	tests := map[string]UdevEventType{
		"add":     UdevEventAdd,
		"remove":  UdevEventRemove,
		"change":  UdevEventChange,
		"online":  UdevEventOnline,
		"offline": UdevEventOffline,
		"bind":    UdevEventUnknown,
		"":        UdevEventUnknown,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseUdevEventType(in), in)
	}
	assert.Equal(t, "offline", UdevEventOffline.String())
	assert.Equal(t, "unknown", UdevEventUnknown.String())
}
