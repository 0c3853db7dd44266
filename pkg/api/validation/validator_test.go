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

package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/poolkeeper/poolkeeper/pkg/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestValidatePoolName(t *testing.T) {
	t.Parallel()

	type testStruct struct {
		Name string `validate:"poolname"`
	}

	tests := []struct {
		name      string
		value     string
		wantError bool
	}{
		{name: "simple", value: "tank", wantError: false},
		{name: "spaces inside", value: "my pool", wantError: false},
		{name: "unicode", value: "pöol", wantError: false},
		{name: "blank", value: "   ", wantError: true},
		{name: "slash", value: "a/b", wantError: true},
		{name: "dot", value: ".", wantError: true},
		{name: "dotdot", value: "..", wantError: true},
		{name: "control char", value: "a\nb", wantError: true},
		{name: "too long", value: strings.Repeat("x", MaxNameLength+1), wantError: true},
		{name: "max length", value: strings.Repeat("x", MaxNameLength), wantError: false},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := v.Validate(&testStruct{Name: tt.value})
			if tt.wantError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "is not a valid name")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAndUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		check  func(t *testing.T, err error)
		name   string
		params string
	}{
		{
			name:   "missing",
			params: "",
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrMissingParams)
			},
		},
		{
			name:   "null",
			params: "null",
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrMissingParams)
			},
		},
		{
			name:   "wrong shape",
			params: `{"name": 3}`,
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrInvalidParams)
			},
		},
		{
			name:   "no devices",
			params: `{"name": "tank", "devices": []}`,
			check: func(t *testing.T, err error) {
				var verr *Error
				require.ErrorAs(t, err, &verr)
				require.Len(t, verr.Fields, 1)
				assert.Equal(t, "Devices", verr.Fields[0].Field)
				assert.Equal(t, "min", verr.Fields[0].Tag)
			},
		},
		{
			name:   "bad redundancy",
			params: `{"name": "tank", "devices": ["/dev/sda"], "redundancy": "raid5"}`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "redundancy must be one of: none")
			},
		},
		{
			name:   "blank key description",
			params: `{"name": "tank", "devices": ["/dev/sda"], "key_description": " "}`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "non-blank key description")
			},
		},
		{
			name:   "clevis without pin",
			params: `{"name": "tank", "devices": ["/dev/sda"], "clevis": {}}`,
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "pin is required")
			},
		},
		{
			name:   "valid",
			params: `{"name": "tank", "devices": ["/dev/sda"], "clevis": {"pin": "tang", "config": {"url": "http://tang"}}}`,
			check: func(t *testing.T, err error) {
				require.NoError(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var params models.CreatePoolParams
			tt.check(t, ValidateAndUnmarshal(json.RawMessage(tt.params), &params))
		})
	}
}

func TestValidateFilesystemSpecs(t *testing.T) {
	t.Parallel()

	var params models.CreateFilesystemsParams
	err := ValidateAndUnmarshal(json.RawMessage(`{
		"pool": "c9a1e1f5-5b5e-4c43-9d6b-0d5f0e0f2a11",
		"filesystems": [{"name": "ok"}, {"name": "", "size_bytes": 0}]
	}`), &params)

	var verr *Error
	require.ErrorAs(t, err, &verr)
	tags := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		tags = append(tags, f.Tag)
	}
	assert.ElementsMatch(t, []string{"required", "gt"}, tags)
}

func TestSetKeyRequiresBase64(t *testing.T) {
	t.Parallel()

	var params models.SetKeyParams
	err := ValidateAndUnmarshal(json.RawMessage(`{"key_description": "k", "key": "not base64!"}`), &params)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key must be base64 encoded")

	err = ValidateAndUnmarshal(json.RawMessage(`{"key_description": "k", "key": "c2VjcmV0"}`), &params)
	require.NoError(t, err)
}

// TestPropertyPoolNameWithoutSlashAccepted checks that short printable names
// without separators always pass.
func TestPropertyPoolNameWithoutSlashAccepted(t *testing.T) {
	t.Parallel()

	type testStruct struct {
		Name string `validate:"poolname"`
	}
	v := NewValidator()

	rapid.Check(t, func(t *rapid.T) {
		name := rapid.StringMatching(`[a-zA-Z0-9_-][a-zA-Z0-9 _.-]{0,40}`).Draw(t, "name")
		if err := v.Validate(&testStruct{Name: name}); err != nil {
			t.Fatalf("name %q rejected: %v", name, err)
		}
	})
}
