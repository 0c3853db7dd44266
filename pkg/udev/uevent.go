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

// Package udev listens for block device hotplug notifications on the udev
// netlink socket and turns them into engine event snapshots.
package udev

import (
	"path/filepath"
	"strconv"

	"github.com/pilebones/go-udev/netlink"
	"github.com/poolkeeper/poolkeeper/pkg/engine/types"
	"golang.org/x/sys/unix"
)

// Properties read from a raw uevent.
const (
	PropDevname         = "DEVNAME"
	PropMajor           = "MAJOR"
	PropMinor           = "MINOR"
	PropUsecInitialized = "USEC_INITIALIZED"
	PropSubsystem       = "SUBSYSTEM"
)

// ueventSource exposes a raw uevent through the borrowed event interface.
type ueventSource struct {
	ev *netlink.UEvent
}

var (
	_ types.UdevEventSource  = ueventSource{}
	_ types.UdevDeviceSource = ueventDevice{}
)

func (s ueventSource) EventType() types.UdevEventType {
	return types.ParseUdevEventType(string(s.ev.Action))
}

func (s ueventSource) Device() types.UdevDeviceSource {
	return ueventDevice(s)
}

type ueventDevice struct {
	ev *netlink.UEvent
}

// IsInitialized is true once udev has processed its rules for the device;
// udev only stamps USEC_INITIALIZED at that point.
func (d ueventDevice) IsInitialized() bool {
	return d.ev.Env[PropUsecInitialized] != ""
}

func (d ueventDevice) Devnode() (string, bool) {
	name := d.ev.Env[PropDevname]
	if name == "" {
		return "", false
	}
	if !filepath.IsAbs(name) {
		name = filepath.Join("/dev", name)
	}
	return name, true
}

func (d ueventDevice) Devnum() (uint64, bool) {
	major, err := strconv.ParseUint(d.ev.Env[PropMajor], 10, 32)
	if err != nil {
		return 0, false
	}
	minor, err := strconv.ParseUint(d.ev.Env[PropMinor], 10, 32)
	if err != nil {
		return 0, false
	}
	return unix.Mkdev(uint32(major), uint32(minor)), true
}

func (d ueventDevice) ForEachProperty(fn func(name, value string)) {
	for k, v := range d.ev.Env {
		fn(k, v)
	}
}

// Snapshot copies a raw uevent into an engine event.
func Snapshot(ev *netlink.UEvent) *types.UdevEngineEvent {
	return types.NewUdevEngineEvent(ueventSource{ev: ev})
}
