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

import "strings"

// UdevEventType is the kind of a hotplug notification.
type UdevEventType uint8

const (
	UdevEventUnknown UdevEventType = iota
	UdevEventAdd
	UdevEventRemove
	UdevEventChange
	UdevEventOnline
	UdevEventOffline
)

// ParseUdevEventType maps a kernel action string to an event type. It is
// total: actions the engine has no use for (bind, move, ...) map to Unknown.
func ParseUdevEventType(action string) UdevEventType {
	switch action {
	case "add":
		return UdevEventAdd
	case "remove":
		return UdevEventRemove
	case "change":
		return UdevEventChange
	case "online":
		return UdevEventOnline
	case "offline":
		return UdevEventOffline
	default:
		return UdevEventUnknown
	}
}

func (t UdevEventType) String() string {
	switch t {
	case UdevEventAdd:
		return "add"
	case UdevEventRemove:
		return "remove"
	case UdevEventChange:
		return "change"
	case UdevEventOnline:
		return "online"
	case UdevEventOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// UdevEventSource is a hotplug notification borrowed from its producer. The
// producer may reuse its buffers as soon as the consumer returns, so nothing
// obtained from it may be retained.
type UdevEventSource interface {
	EventType() UdevEventType
	Device() UdevDeviceSource
}

// UdevDeviceSource is the borrowed device half of a UdevEventSource.
type UdevDeviceSource interface {
	IsInitialized() bool
	Devnode() (string, bool)
	Devnum() (uint64, bool)
	// ForEachProperty calls fn once per property. Strings passed to fn are
	// only valid for the duration of the call.
	ForEachProperty(fn func(name, value string))
}

// UdevEngineEvent is an owned snapshot of a hotplug notification. It is safe
// to queue, hand to another goroutine or replay after the producer is gone.
type UdevEngineEvent struct {
	device    UdevEngineDevice
	eventType UdevEventType
}

// NewUdevEngineEvent copies everything observable out of src.
func NewUdevEngineEvent(src UdevEventSource) *UdevEngineEvent {
	return &UdevEngineEvent{
		eventType: src.EventType(),
		device:    NewUdevEngineDevice(src.Device()),
	}
}

func (e *UdevEngineEvent) EventType() UdevEventType {
	return e.eventType
}

func (e *UdevEngineEvent) Device() *UdevEngineDevice {
	return &e.device
}

// UdevEngineDevice is an owned snapshot of the device a hotplug notification
// refers to.
type UdevEngineDevice struct {
	properties    map[string]string
	devnode       string
	devnum        uint64
	isInitialized bool
	hasDevnode    bool
	hasDevnum     bool
}

// NewUdevEngineDevice copies src. Absent fields become "none", never errors.
func NewUdevEngineDevice(src UdevDeviceSource) UdevEngineDevice {
	d := UdevEngineDevice{
		isInitialized: src.IsInitialized(),
		properties:    make(map[string]string),
	}
	if node, ok := src.Devnode(); ok {
		d.devnode = strings.Clone(node)
		d.hasDevnode = true
	}
	d.devnum, d.hasDevnum = src.Devnum()
	src.ForEachProperty(func(name, value string) {
		d.properties[strings.Clone(name)] = strings.Clone(value)
	})
	return d
}

func (d *UdevEngineDevice) IsInitialized() bool {
	return d.isInitialized
}

func (d *UdevEngineDevice) Devnode() (string, bool) {
	return d.devnode, d.hasDevnode
}

func (d *UdevEngineDevice) Devnum() (uint64, bool) {
	return d.devnum, d.hasDevnum
}

// PropertyValue looks up a single udev property.
func (d *UdevEngineDevice) PropertyValue(name string) (string, bool) {
	v, ok := d.properties[name]
	return v, ok
}

// Properties returns a copy of every property.
func (d *UdevEngineDevice) Properties() map[string]string {
	out := make(map[string]string, len(d.properties))
	for k, v := range d.properties {
		out[k] = v
	}
	return out
}
