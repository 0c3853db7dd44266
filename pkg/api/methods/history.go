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
	"errors"

	"github.com/poolkeeper/poolkeeper/pkg/api/models"
	"github.com/poolkeeper/poolkeeper/pkg/api/models/requests"
	"github.com/poolkeeper/poolkeeper/pkg/api/validation"
	"github.com/poolkeeper/poolkeeper/pkg/database"
	"github.com/rs/zerolog/log"
)

var ErrHistoryDisabled = errors.New("history is disabled")

const defaultHistoryPage = 25

// HandleHistory pages through the operation log, newest first. Params are
// optional.
func HandleHistory(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received history request")

	if env.History == nil {
		return nil, ErrHistoryDisabled
	}

	params := models.HistoryParams{Limit: defaultHistoryPage}
	if len(env.Params) > 0 && string(env.Params) != "null" {
		if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
			return nil, err
		}
		if params.Limit == 0 {
			params.Limit = defaultHistoryPage
		}
	}

	entries, err := env.History.ListHistory(env.Context, params.LastID, params.Limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []database.HistoryEntry{}
	}
	return models.HistoryResponse{Entries: entries}, nil
}
