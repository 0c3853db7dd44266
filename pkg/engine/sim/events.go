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

package sim

import (
	"maps"

	"github.com/poolkeeper/poolkeeper/pkg/engine/types"
	"github.com/rs/zerolog/log"
)

// Udev properties that identify a device owned by the engine.
const (
	PropFSType   = "ID_FS_TYPE"
	PropFSUUID   = "ID_FS_UUID"
	PropPoolUUID = "POOLKEEPER_POOL_UUID"

	OwnedFSType = "poolkeeper"
)

// LiminalDevice is a device announced by udev that carries engine metadata.
// Pool is nil when the device did not name its pool.
type LiminalDevice struct {
	Devnode string
	Devnum  uint64
	Pool    types.PoolUUID
}

// Liminal returns a copy of the devices currently known from hotplug events.
func (e *Engine) Liminal() map[types.DevUUID]LiminalDevice {
	return maps.Clone(e.liminal)
}

func (e *Engine) HandleEvent(event *types.UdevEngineEvent) types.EngineAction {
	dev := event.Device()
	kind := event.EventType()
	if !dev.IsInitialized() && kind != types.UdevEventRemove {
		return nil
	}
	devnode, hasNode := dev.Devnode()

	devUUID, owned := ownedDevice(dev, devnode)
	if !owned {
		// A wiped device stops carrying the signature. Its change and remove
		// events still have to retire the record kept for that location.
		if kind == types.UdevEventChange || kind == types.UdevEventRemove {
			return e.forgetLocation(dev, devnode, hasNode)
		}
		return nil
	}
	if !hasNode {
		return nil
	}

	switch kind {
	case types.UdevEventAdd, types.UdevEventChange:
		return e.deviceSeen(devUUID, devnode, dev)
	case types.UdevEventRemove:
		if _, known := e.liminal[devUUID]; !known {
			return types.DeleteIdentity[types.DevUUID]()
		}
		delete(e.liminal, devUUID)
		log.Info().Stringer("device", devUUID).Str("devnode", devnode).Msg("device removed")
		return types.Deleted(devUUID)
	default:
		return nil
	}
}

func ownedDevice(dev *types.UdevEngineDevice, devnode string) (types.DevUUID, bool) {
	if fsType, _ := dev.PropertyValue(PropFSType); fsType != OwnedFSType {
		return types.DevUUID{}, false
	}
	rawUUID, _ := dev.PropertyValue(PropFSUUID)
	devUUID, err := types.ParseDevUUID(rawUUID)
	if err != nil {
		log.Warn().Err(err).Str("devnode", devnode).Msg("ignoring device with unparseable uuid")
		return types.DevUUID{}, false
	}
	return devUUID, true
}

// forgetLocation drops the liminal record at the event's devnode or devnum.
// It returns nil when no record lives there.
func (e *Engine) forgetLocation(dev *types.UdevEngineDevice, devnode string, hasNode bool) types.EngineAction {
	devnum, hasNum := dev.Devnum()
	for devUUID, rec := range e.liminal {
		if (hasNode && rec.Devnode == devnode) || (hasNum && rec.Devnum != 0 && rec.Devnum == devnum) {
			delete(e.liminal, devUUID)
			log.Info().Stringer("device", devUUID).Str("devnode", rec.Devnode).
				Msg("device no longer carries engine metadata")
			return types.Deleted(devUUID)
		}
	}
	return nil
}

func (e *Engine) deviceSeen(
	devUUID types.DevUUID,
	devnode string,
	dev *types.UdevEngineDevice,
) types.CreateAction[types.DevUUID] {
	rec := LiminalDevice{Devnode: devnode}
	if devnum, ok := dev.Devnum(); ok {
		rec.Devnum = devnum
	}
	if rawPool, ok := dev.PropertyValue(PropPoolUUID); ok {
		pool, err := types.ParsePoolUUID(rawPool)
		if err != nil {
			log.Warn().Err(err).Str("devnode", devnode).Msg("device names an unparseable pool")
		} else {
			rec.Pool = pool
		}
	}

	if prev, known := e.liminal[devUUID]; known && prev == rec {
		return types.CreateIdentity[types.DevUUID]()
	}
	e.liminal[devUUID] = rec
	log.Info().Stringer("device", devUUID).Str("devnode", devnode).Stringer("pool", rec.Pool).Msg("device discovered")
	return types.Created(devUUID)
}
