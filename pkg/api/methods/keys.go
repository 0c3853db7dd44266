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
	"encoding/base64"
	"fmt"

	"github.com/poolkeeper/poolkeeper/pkg/api/models"
	"github.com/poolkeeper/poolkeeper/pkg/api/models/requests"
	"github.com/poolkeeper/poolkeeper/pkg/api/notifications"
	"github.com/poolkeeper/poolkeeper/pkg/api/validation"
	"github.com/poolkeeper/poolkeeper/pkg/engine"
	"github.com/poolkeeper/poolkeeper/pkg/engine/types"
	"github.com/rs/zerolog/log"
)

func HandleKeys(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received keys request")

	descs, err := engine.ReadEngine(env.Engine, func(r engine.Reader) ([]types.KeyDescription, error) {
		return r.KeyDescriptions(), nil
	})
	if err != nil {
		return nil, err
	}
	return models.KeysResponse{KeyDescriptions: sortedStrings(descs)}, nil
}

func HandleKeysSet(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received key set request")

	var params models.SetKeyParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	desc, err := types.NewKeyDescription(params.KeyDescription)
	if err != nil {
		return nil, fmt.Errorf("invalid key description: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(params.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: key is not base64", validation.ErrInvalidParams)
	}
	key := types.NewSizedKeyMemory(raw)
	clear(raw)

	action, err := engine.WriteEngine(env.Engine, func(e engine.Engine) (types.MappingCreateAction[types.Key], error) {
		return e.SetKey(desc, key)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set key: %w", err)
	}

	if !action.IsChanged() {
		return unchanged(), nil
	}
	log.Info().Str("key_description", params.KeyDescription).Stringer("kind", action.Kind()).Msg("key set")
	notifications.KeysChanged(env.Notifications, models.KeysChanged{
		KeyDescription: params.KeyDescription,
		Method:         models.MethodKeysSet,
	})
	return changed(nil), nil
}

func HandleKeysUnset(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received key unset request")

	var params models.UnsetKeyParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	desc, err := types.NewKeyDescription(params.KeyDescription)
	if err != nil {
		return nil, fmt.Errorf("invalid key description: %w", err)
	}

	action, err := engine.WriteEngine(env.Engine, func(e engine.Engine) (types.MappingDeleteAction[types.Key], error) {
		return e.UnsetKey(desc)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unset key: %w", err)
	}

	if !action.IsChanged() {
		return unchanged(), nil
	}
	notifications.KeysChanged(env.Notifications, models.KeysChanged{
		KeyDescription: params.KeyDescription,
		Method:         models.MethodKeysUnset,
	})
	return changed(nil), nil
}
