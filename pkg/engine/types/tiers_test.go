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

package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBlockDevTierEncoding(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint8(0), uint8(TierData))
	assert.Equal(t, uint8(1), uint8(TierCache))

	data, err := json.Marshal(map[string]BlockDevTier{"a": TierCache, "b": TierData})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"b":0}`, string(data))

	var out map[string]BlockDevTier
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, TierCache, out["a"])
	assert.Equal(t, TierData, out["b"])

	var bad BlockDevTier
	require.ErrorIs(t, json.Unmarshal([]byte(`7`), &bad), ErrParse)
	require.ErrorIs(t, json.Unmarshal([]byte(`"cache"`), &bad), ErrParse)

	_, err = ParseBlockDevTier("fast")
	require.ErrorIs(t, err, ErrParse)
}

func TestRedundancyEncoding(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint8(0), uint8(RedundancyNone))

	data, err := json.Marshal(struct {
		R Redundancy `json:"r"`
	}{R: RedundancyNone})
	require.NoError(t, err)
	assert.JSONEq(t, `{"r":0}`, string(data))

	var r Redundancy
	require.NoError(t, json.Unmarshal([]byte(`0`), &r))
	assert.Equal(t, RedundancyNone, r)
	require.ErrorIs(t, json.Unmarshal([]byte(`2`), &r), ErrParse)
	require.ErrorIs(t, json.Unmarshal([]byte(`"none"`), &r), ErrParse)
}

func TestParseEnumerations(t *testing.T) {
	t.Parallel()

	r, err := ParseRedundancy("none")
	require.NoError(t, err)
	assert.Equal(t, RedundancyNone, r)
	_, err = ParseRedundancy("raid1")
	require.ErrorIs(t, err, ErrParse)

	m, err := ParseUnlockMethod("keyring")
	require.NoError(t, err)
	assert.Equal(t, UnlockKeyring, m)
	_, err = ParseUnlockMethod("tpm")
	require.ErrorIs(t, err, ErrParse)

	rt, err := ParseReportType("errored_pool_report")
	require.NoError(t, err)
	assert.Equal(t, ReportErroredPoolDevices, rt)
	_, err = ParseReportType("engine_state_report")
	require.ErrorIs(t, err, ErrParse)
}

func TestKeyDescriptionAndMemory(t *testing.T) {
	t.Parallel()

	_, err := NewKeyDescription("  ")
	require.ErrorIs(t, err, ErrParse)

	desc, err := NewKeyDescription("pool-key")
	require.NoError(t, err)
	assert.Equal(t, "pool-key", desc.String())

	raw := []byte("secret")
	key := NewSizedKeyMemory(raw)
	raw[0] = 'X'
	assert.True(t, key.Equal(NewSizedKeyMemory([]byte("secret"))))
	assert.Equal(t, 6, key.Len())
	assert.NotContains(t, key.String(), "secret")
}

func TestPropertyNameComparesByContent(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "name")
		a := NewName(s)
		b := NewName(string([]byte(s)))
		if a != b {
			t.Fatalf("names with equal content differ: %q", s)
		}
		m := map[string]int{a.String(): 1}
		if m[b.String()] != 1 {
			t.Fatalf("lookup by borrowed string failed for %q", s)
		}
		if a.IsEmpty() != (s == "") {
			t.Fatalf("IsEmpty mismatch for %q", s)
		}
	})
}
