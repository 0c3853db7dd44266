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

// Package methods implements the JSON-RPC method handlers. Each handler
// validates its params, converts them to engine types without holding the
// engine lock, then performs exactly one locked engine call.
package methods

import (
	"fmt"
	"slices"

	"github.com/poolkeeper/poolkeeper/pkg/api/models"
	"github.com/poolkeeper/poolkeeper/pkg/api/models/requests"
	"github.com/poolkeeper/poolkeeper/pkg/config"
	"github.com/poolkeeper/poolkeeper/pkg/engine/types"
	"github.com/rs/zerolog/log"
)

func HandleVersion(_ requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received version request")
	return models.VersionResponse{
		Version: config.AppVersion,
	}, nil
}

// unchanged is the response of every mutation that turned out to be a
// no-op.
func unchanged() models.ChangedResponse {
	return models.ChangedResponse{Changed: false}
}

func changed(result any) models.ChangedResponse {
	return models.ChangedResponse{Changed: true, Result: result}
}

func sortedStrings[K interface{ String() string }](ids []K) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	slices.Sort(out)
	return out
}

func parsePoolUUID(s string) (types.PoolUUID, error) {
	id, err := types.ParsePoolUUID(s)
	if err != nil {
		return types.PoolUUID{}, fmt.Errorf("invalid pool uuid: %w", err)
	}
	return id, nil
}
