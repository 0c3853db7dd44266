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
	"slices"
	"strings"

	"github.com/poolkeeper/poolkeeper/pkg/api/models"
	"github.com/poolkeeper/poolkeeper/pkg/api/models/requests"
	"github.com/poolkeeper/poolkeeper/pkg/api/notifications"
	"github.com/poolkeeper/poolkeeper/pkg/api/validation"
	"github.com/poolkeeper/poolkeeper/pkg/engine"
	"github.com/poolkeeper/poolkeeper/pkg/engine/types"
	"github.com/rs/zerolog/log"
)

func HandlePools(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received pools request")

	return engine.ReadEngine(env.Engine, func(r engine.Reader) (models.PoolsResponse, error) {
		pools := r.Pools()
		if pools == nil {
			pools = []engine.PoolInfo{}
		}
		slices.SortFunc(pools, func(a, b engine.PoolInfo) int {
			return strings.Compare(a.Name.String(), b.Name.String())
		})
		return models.PoolsResponse{Pools: pools}, nil
	})
}

func HandlePoolsGet(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received pool get request")

	var params models.PoolParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	id, err := parsePoolUUID(params.UUID)
	if err != nil {
		return nil, err
	}

	return engine.ReadEngine(env.Engine, func(r engine.Reader) (engine.PoolInfo, error) {
		pool, ok := r.GetPool(id)
		if !ok {
			return engine.PoolInfo{}, fmt.Errorf("pool %s: %w", id, engine.ErrNotFound)
		}
		return pool, nil
	})
}

func HandlePoolsLocked(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received locked pools request")

	locked, err := engine.ReadEngine(env.Engine, func(r engine.Reader) (map[types.PoolUUID]types.LockedPoolInfo, error) {
		return r.LockedPools(), nil
	})
	if err != nil {
		return nil, err
	}

	resp := make([]models.LockedPoolResponse, 0, len(locked))
	for id, info := range locked {
		lp := models.LockedPoolResponse{
			UUID:    id.String(),
			Devices: make([]models.LockedDevice, 0, len(info.Devices)),
		}
		if info.Info.KeyDescription != nil {
			desc := info.Info.KeyDescription.String()
			lp.KeyDescription = &desc
		}
		if info.Info.Clevis != nil {
			lp.Clevis = &models.ClevisParams{
				Pin:    info.Info.Clevis.Pin,
				Config: info.Info.Clevis.Config,
			}
		}
		for _, d := range info.Devices {
			lp.Devices = append(lp.Devices, models.LockedDevice{
				Devnode: d.Devnode,
				UUID:    d.UUID.String(),
			})
		}
		resp = append(resp, lp)
	}
	slices.SortFunc(resp, func(a, b models.LockedPoolResponse) int {
		return strings.Compare(a.UUID, b.UUID)
	})

	return resp, nil
}

func encryptionFromParams(params *models.CreatePoolParams) (*types.EncryptionInfo, error) {
	if params.KeyDescription == nil && params.Clevis == nil {
		return nil, nil
	}

	enc := &types.EncryptionInfo{}
	if params.KeyDescription != nil {
		desc, err := types.NewKeyDescription(*params.KeyDescription)
		if err != nil {
			return nil, fmt.Errorf("invalid key description: %w", err)
		}
		enc.KeyDescription = &desc
	}
	if params.Clevis != nil {
		enc.Clevis = &types.ClevisInfo{
			Pin:    params.Clevis.Pin,
			Config: bytes.Clone(params.Clevis.Config),
		}
	}
	return enc, nil
}

func HandlePoolsCreate(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received pool create request")

	var params models.CreatePoolParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	redundancy, err := types.ParseRedundancy(params.Redundancy)
	if err != nil {
		return nil, fmt.Errorf("invalid redundancy: %w", err)
	}
	enc, err := encryptionFromParams(&params)
	if err != nil {
		return nil, err
	}
	// Paths touch the filesystem, so they are resolved before taking the
	// engine lock.
	devices, err := types.NewDevicePaths(params.Devices)
	if err != nil {
		return nil, fmt.Errorf("invalid devices: %w", err)
	}
	name := types.NewName(params.Name)

	action, err := engine.WriteEngine(env.Engine, func(e engine.Engine) (types.CreateAction[types.PoolUUID], error) {
		return e.CreatePool(name, devices, redundancy, enc)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	id, ok := action.Changed()
	if !ok {
		return unchanged(), nil
	}
	log.Info().Stringer("pool", id).Str("name", params.Name).Msg("pool created")
	notifications.PoolsChanged(env.Notifications, models.PoolChanged{
		UUID:   id.String(),
		Method: models.MethodPoolsCreate,
	})
	return changed(models.UUIDResult{UUID: id.String()}), nil
}

func HandlePoolsDestroy(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received pool destroy request")

	var params models.PoolParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	id, err := parsePoolUUID(params.UUID)
	if err != nil {
		return nil, err
	}

	action, err := engine.WriteEngine(env.Engine, func(e engine.Engine) (types.DeleteAction[types.PoolUUID], error) {
		return e.DestroyPool(id)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to destroy pool: %w", err)
	}

	if !action.IsChanged() {
		return unchanged(), nil
	}
	notifications.PoolsChanged(env.Notifications, models.PoolChanged{
		UUID:   id.String(),
		Method: models.MethodPoolsDestroy,
	})
	return changed(models.UUIDResult{UUID: id.String()}), nil
}

func HandlePoolsRename(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received pool rename request")

	var params models.RenamePoolParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	id, err := parsePoolUUID(params.UUID)
	if err != nil {
		return nil, err
	}
	name := types.NewName(params.Name)

	action, err := engine.WriteEngine(env.Engine, func(e engine.Engine) (types.RenameAction[types.PoolUUID], error) {
		return e.RenamePool(id, name)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rename pool: %w", err)
	}

	switch action.Kind() {
	case types.ActionNoSource:
		return nil, fmt.Errorf("pool %s: %w", id, engine.ErrNotFound)
	case types.ActionRenamed:
		notifications.PoolsChanged(env.Notifications, models.PoolChanged{
			UUID:   id.String(),
			Method: models.MethodPoolsRename,
		})
		return changed(models.UUIDResult{UUID: id.String()}), nil
	default:
		return unchanged(), nil
	}
}

func HandlePoolsBlockdevsAdd(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received add blockdevs request")

	var params models.AddBlockdevsParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	id, err := parsePoolUUID(params.UUID)
	if err != nil {
		return nil, err
	}
	tier := types.TierData
	if params.Tier != "" {
		tier, err = types.ParseBlockDevTier(params.Tier)
		if err != nil {
			return nil, fmt.Errorf("invalid tier: %w", err)
		}
	}
	devices, err := types.NewDevicePaths(params.Devices)
	if err != nil {
		return nil, fmt.Errorf("invalid devices: %w", err)
	}

	action, err := engine.WriteEngine(env.Engine, func(e engine.Engine) (types.SetCreateAction[types.DevUUID], error) {
		return e.AddBlockdevs(id, devices, tier)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add block devices: %w", err)
	}

	if !action.IsChanged() {
		return unchanged(), nil
	}
	notifications.PoolsChanged(env.Notifications, models.PoolChanged{
		UUID:   id.String(),
		Method: models.MethodPoolsBlockdevsAdd,
	})
	return changed(sortedStrings(action.Changed())), nil
}

func HandlePoolsUnlock(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received pool unlock request")

	var params models.UnlockPoolParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	id, err := parsePoolUUID(params.UUID)
	if err != nil {
		return nil, err
	}
	method, err := types.ParseUnlockMethod(params.Method)
	if err != nil {
		return nil, fmt.Errorf("invalid unlock method: %w", err)
	}

	action, err := engine.WriteEngine(env.Engine, func(e engine.Engine) (types.SetUnlockAction[types.DevUUID], error) {
		return e.UnlockPool(id, method)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unlock pool: %w", err)
	}

	resp := models.UnlockResponse{
		Unlocked:    sortedStrings(action.Unlocked()),
		StillLocked: sortedStrings(action.StillLocked()),
	}
	if !action.IsChanged() {
		return models.ChangedResponse{Changed: false, Result: resp}, nil
	}
	log.Info().Stringer("pool", id).Str("method", params.Method).Msg("pool unlocked")
	notifications.PoolsChanged(env.Notifications, models.PoolChanged{
		UUID:   id.String(),
		Method: models.MethodPoolsUnlock,
	})
	return changed(resp), nil
}
