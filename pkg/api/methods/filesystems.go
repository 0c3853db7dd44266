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

func HandleFilesystemsCreate(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received filesystems create request")

	var params models.CreateFilesystemsParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	pool, err := parsePoolUUID(params.Pool)
	if err != nil {
		return nil, err
	}
	specs := make([]engine.FilesystemSpec, 0, len(params.Filesystems))
	for _, fs := range params.Filesystems {
		specs = append(specs, engine.FilesystemSpec{
			Name:      types.NewName(fs.Name),
			SizeBytes: fs.SizeBytes,
		})
	}

	action, err := engine.WriteEngine(
		env.Engine,
		func(e engine.Engine) (types.SetCreateAction[engine.FilesystemCreated], error) {
			return e.CreateFilesystems(pool, specs)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystems: %w", err)
	}

	if !action.IsChanged() {
		return unchanged(), nil
	}
	created := action.Changed()
	result := make([]models.FilesystemResult, 0, len(created))
	for _, fs := range created {
		result = append(result, models.FilesystemResult{
			Name: fs.Name.String(),
			UUID: fs.UUID.String(),
		})
	}
	slices.SortFunc(result, func(a, b models.FilesystemResult) int {
		return strings.Compare(a.Name, b.Name)
	})

	notifications.FilesystemsChanged(env.Notifications, models.PoolChanged{
		UUID:   pool.String(),
		Method: models.MethodFilesystemsCreate,
	})
	return changed(result), nil
}

func HandleFilesystemsDestroy(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received filesystems destroy request")

	var params models.DestroyFilesystemsParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	pool, err := parsePoolUUID(params.Pool)
	if err != nil {
		return nil, err
	}
	ids := make([]types.FilesystemUUID, 0, len(params.Filesystems))
	for _, s := range params.Filesystems {
		id, err := types.ParseFilesystemUUID(s)
		if err != nil {
			return nil, fmt.Errorf("invalid filesystem uuid: %w", err)
		}
		ids = append(ids, id)
	}

	action, err := engine.WriteEngine(
		env.Engine,
		func(e engine.Engine) (types.SetDeleteAction[types.FilesystemUUID], error) {
			return e.DestroyFilesystems(pool, ids)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to destroy filesystems: %w", err)
	}

	if !action.IsChanged() {
		return unchanged(), nil
	}
	notifications.FilesystemsChanged(env.Notifications, models.PoolChanged{
		UUID:   pool.String(),
		Method: models.MethodFilesystemsDestroy,
	})
	return changed(sortedStrings(action.Changed())), nil
}

func HandleFilesystemsRename(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received filesystem rename request")

	var params models.RenameFilesystemParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	pool, err := parsePoolUUID(params.Pool)
	if err != nil {
		return nil, err
	}
	fsID, err := types.ParseFilesystemUUID(params.Filesystem)
	if err != nil {
		return nil, fmt.Errorf("invalid filesystem uuid: %w", err)
	}
	name := types.NewName(params.Name)

	action, err := engine.WriteEngine(
		env.Engine,
		func(e engine.Engine) (types.RenameAction[types.FilesystemUUID], error) {
			return e.RenameFilesystem(pool, fsID, name)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to rename filesystem: %w", err)
	}

	switch action.Kind() {
	case types.ActionNoSource:
		return nil, fmt.Errorf("filesystem %s: %w", fsID, engine.ErrNotFound)
	case types.ActionRenamed:
		notifications.FilesystemsChanged(env.Notifications, models.PoolChanged{
			UUID:   pool.String(),
			Method: models.MethodFilesystemsRename,
		})
		return changed(models.UUIDResult{UUID: fsID.String()}), nil
	default:
		return unchanged(), nil
	}
}
