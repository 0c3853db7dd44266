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

// Package validation unmarshals and checks JSON-RPC params before a handler
// touches the engine.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/poolkeeper/poolkeeper/pkg/engine/types"
)

var (
	ErrMissingParams = errors.New("missing params")
	ErrInvalidParams = errors.New("invalid params")
)

// MaxNameLength bounds pool and filesystem names.
const MaxNameLength = 255

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("poolname", validatePoolName)
	_ = v.RegisterValidation("keydesc", validateKeyDescription)

	return &Validator{validate: v}
}

var DefaultValidator = NewValidator()

// Validate checks params against its struct tags. Field failures are
// returned as *Error.
func (v *Validator) Validate(params any) error {
	if err := v.validate.Struct(params); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewError(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// ValidateAndUnmarshal decodes params into dest and validates the result.
func ValidateAndUnmarshal[T any](params json.RawMessage, dest *T) error {
	if len(params) == 0 || string(params) == "null" {
		return ErrMissingParams
	}
	if err := json.Unmarshal(params, dest); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return DefaultValidator.Validate(dest)
}

// Names are non-blank, bounded and free of path separators and control
// characters, since they end up in device-mapper and mount paths.
func validatePoolName(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if strings.TrimSpace(val) == "" || len(val) > MaxNameLength {
		return false
	}
	if val == "." || val == ".." || strings.ContainsRune(val, '/') {
		return false
	}
	return !strings.ContainsFunc(val, unicode.IsControl)
}

func validateKeyDescription(fl validator.FieldLevel) bool {
	_, err := types.NewKeyDescription(fl.Field().String())
	return err == nil
}
