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

	"github.com/poolkeeper/poolkeeper/pkg/api/models"
	"github.com/poolkeeper/poolkeeper/pkg/api/notifications"
	"github.com/poolkeeper/poolkeeper/pkg/engine"
	"github.com/poolkeeper/poolkeeper/pkg/engine/sim"
	"github.com/poolkeeper/poolkeeper/pkg/engine/types"
	"github.com/rs/zerolog/log"
)

// Dispatcher applies hotplug events to the engine one at a time, in the
// order the monitor delivered them.
type Dispatcher struct {
	le     engine.LockableEngine
	events <-chan *types.UdevEngineEvent
	ns     chan<- models.Notification
}

func NewDispatcher(
	le engine.LockableEngine,
	events <-chan *types.UdevEngineEvent,
	ns chan<- models.Notification,
) *Dispatcher {
	return &Dispatcher{le: le, events: events, ns: ns}
}

// Run drains events until the channel is closed or ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-d.events:
			if !ok {
				log.Debug().Msg("dispatcher: event channel closed")
				return nil
			}
			d.Handle(ev)
		}
	}
}

// Handle applies a single event under the engine write lock and publishes
// devices.changed when the engine state changed.
func (d *Dispatcher) Handle(ev *types.UdevEngineEvent) {
	var action types.EngineAction
	d.le.Write(func(e engine.Engine) {
		action = e.HandleEvent(ev)
	})
	if action == nil || !action.IsChanged() {
		return
	}

	payload := models.DevicesChanged{Action: ev.EventType().String()}
	if devnode, ok := ev.Device().Devnode(); ok {
		payload.Devnode = devnode
	}
	if pool, ok := ev.Device().PropertyValue(sim.PropPoolUUID); ok {
		payload.Pool = pool
	}
	switch a := action.(type) {
	case types.CreateAction[types.DevUUID]:
		if id, ok := a.Changed(); ok {
			payload.UUID = id.String()
		}
	case types.DeleteAction[types.DevUUID]:
		if id, ok := a.Changed(); ok {
			payload.UUID = id.String()
		}
	}

	notifications.DevicesChanged(d.ns, payload)
}
