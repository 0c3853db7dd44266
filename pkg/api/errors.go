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

package api

import (
	"errors"

	"github.com/poolkeeper/poolkeeper/pkg/api/models"
	"github.com/poolkeeper/poolkeeper/pkg/api/validation"
	"github.com/poolkeeper/poolkeeper/pkg/engine"
	"github.com/poolkeeper/poolkeeper/pkg/engine/types"
)

// JSON-RPC error codes. Codes from -32001 down are engine error kinds.
const (
	ErrCodeParse          = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeServer         = -32000
	ErrCodeNotFound       = -32001
	ErrCodeConflict       = -32002
	ErrCodeIO             = -32003
	ErrCodeLocked         = -32004
)

var ErrMethodNotFound = errors.New("method not found")

var (
	JSONRPCErrorParseError = models.ErrorObject{
		Code:    ErrCodeParse,
		Message: "Parse error",
	}
	JSONRPCErrorInvalidRequest = models.ErrorObject{
		Code:    ErrCodeInvalidRequest,
		Message: "Invalid Request",
	}
)

// errorObject maps a handler error onto a JSON-RPC error by its kind.
func errorObject(err error) models.ErrorObject {
	var verr *validation.Error
	code := ErrCodeServer
	switch {
	case errors.Is(err, ErrMethodNotFound):
		code = ErrCodeMethodNotFound
	case errors.As(err, &verr),
		errors.Is(err, validation.ErrMissingParams),
		errors.Is(err, validation.ErrInvalidParams),
		errors.Is(err, types.ErrParse),
		errors.Is(err, engine.ErrInvalidArgument):
		code = ErrCodeInvalidParams
	case errors.Is(err, engine.ErrNotFound):
		code = ErrCodeNotFound
	case errors.Is(err, engine.ErrLocked):
		code = ErrCodeLocked
	case errors.Is(err, engine.ErrConflict):
		code = ErrCodeConflict
	case errors.Is(err, types.ErrIO):
		code = ErrCodeIO
	}
	return models.ErrorObject{Code: code, Message: err.Error()}
}
