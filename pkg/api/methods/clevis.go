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

package methods

import (
	"bytes"
	"fmt"

	"github.com/poolkeeper/poolkeeper/pkg/api/models"
	"github.com/poolkeeper/poolkeeper/pkg/api/models/requests"
	"github.com/poolkeeper/poolkeeper/pkg/api/notifications"
	"github.com/poolkeeper/poolkeeper/pkg/api/validation"
	"github.com/poolkeeper/poolkeeper/pkg/engine"
	"github.com/poolkeeper/poolkeeper/pkg/engine/types"
	"github.com/rs/zerolog/log"
)

func HandleClevisBind(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received clevis bind request")

	var params models.BindClevisParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	id, err := parsePoolUUID(params.UUID)
	if err != nil {
		return nil, err
	}
	config := bytes.Clone(params.Config)

	action, err := engine.WriteEngine(env.Engine, func(e engine.Engine) (types.CreateAction[types.Clevis], error) {
		return e.BindClevis(id, params.Pin, config)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to bind clevis: %w", err)
	}

	if !action.IsChanged() {
		return unchanged(), nil
	}
	notifications.PoolsChanged(env.Notifications, models.PoolChanged{
		UUID:   id.String(),
		Method: models.MethodPoolsClevisBind,
	})
	return changed(models.UUIDResult{UUID: id.String()}), nil
}

func HandleClevisUnbind(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received clevis unbind request")

	var params models.PoolParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	id, err := parsePoolUUID(params.UUID)
	if err != nil {
		return nil, err
	}

	action, err := engine.WriteEngine(env.Engine, func(e engine.Engine) (types.DeleteAction[types.Clevis], error) {
		return e.UnbindClevis(id)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unbind clevis: %w", err)
	}

	if !action.IsChanged() {
		return unchanged(), nil
	}
	notifications.PoolsChanged(env.Notifications, models.PoolChanged{
		UUID:   id.String(),
		Method: models.MethodPoolsClevisUnbind,
	})
	return changed(models.UUIDResult{UUID: id.String()}), nil
}

// HandleClevisRegen rebinds with fresh key material. It always changes
// state.
func HandleClevisRegen(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received clevis regen request")

	var params models.PoolParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	id, err := parsePoolUUID(params.UUID)
	if err != nil {
		return nil, err
	}

	action, err := engine.WriteEngine(env.Engine, func(e engine.Engine) (types.RegenAction, error) {
		return e.RebindClevis(id)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to regenerate clevis binding: %w", err)
	}

	if action.IsChanged() {
		notifications.PoolsChanged(env.Notifications, models.PoolChanged{
			UUID:   id.String(),
			Method: models.MethodPoolsClevisRegen,
		})
	}
	return models.ChangedResponse{
		Changed: action.IsChanged(),
		Result:  models.UUIDResult{UUID: id.String()},
	}, nil
}
