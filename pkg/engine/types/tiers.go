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
	"fmt"
)

// BlockDevTier is the role a block device plays within its pool. The integer
// values are part of the persisted metadata format.
type BlockDevTier uint8

const (
	TierData  BlockDevTier = 0
	TierCache BlockDevTier = 1
)

func (t BlockDevTier) String() string {
	switch t {
	case TierData:
		return "data"
	case TierCache:
		return "cache"
	default:
		return fmt.Sprintf("BlockDevTier(%d)", uint8(t))
	}
}

func ParseBlockDevTier(s string) (BlockDevTier, error) {
	switch s {
	case "data":
		return TierData, nil
	case "cache":
		return TierCache, nil
	default:
		return 0, fmt.Errorf("%w: %q is not a block device tier", ErrParse, s)
	}
}

// UnmarshalJSON accepts only the integer values of known tiers. Tiers
// encode as their integer backing.
func (t *BlockDevTier) UnmarshalJSON(data []byte) error {
	var v uint8
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: block device tier %s: %w", ErrParse, data, err)
	}
	switch BlockDevTier(v) {
	case TierData, TierCache:
		*t = BlockDevTier(v)
		return nil
	default:
		return fmt.Errorf("%w: %d is not a block device tier", ErrParse, v)
	}
}

// Redundancy is the redundancy level of a pool. Only None exists today;
// the type reserves room for more levels.
type Redundancy uint8

const RedundancyNone Redundancy = 0

func (r Redundancy) String() string {
	if r == RedundancyNone {
		return "none"
	}
	return fmt.Sprintf("Redundancy(%d)", uint8(r))
}

// UnmarshalJSON accepts only the integer values of known levels.
func (r *Redundancy) UnmarshalJSON(data []byte) error {
	var v uint8
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: redundancy %s: %w", ErrParse, data, err)
	}
	if Redundancy(v) != RedundancyNone {
		return fmt.Errorf("%w: %d is not a redundancy level", ErrParse, v)
	}
	*r = Redundancy(v)
	return nil
}

func ParseRedundancy(s string) (Redundancy, error) {
	if s == "" || s == "none" {
		return RedundancyNone, nil
	}
	return 0, fmt.Errorf("%w: %q is not a redundancy level", ErrParse, s)
}

// UnlockMethod selects how an encrypted pool is unlocked.
type UnlockMethod string

const (
	UnlockClevis  UnlockMethod = "clevis"
	UnlockKeyring UnlockMethod = "keyring"
)

func ParseUnlockMethod(s string) (UnlockMethod, error) {
	switch UnlockMethod(s) {
	case UnlockClevis, UnlockKeyring:
		return UnlockMethod(s), nil
	default:
		return "", fmt.Errorf("%w: %s is an invalid unlock method", ErrParse, s)
	}
}

// ReportType names a diagnostic report the engine can produce.
type ReportType string

const ReportErroredPoolDevices ReportType = "errored_pool_report"

func ParseReportType(s string) (ReportType, error) {
	if ReportType(s) == ReportErroredPoolDevices {
		return ReportErroredPoolDevices, nil
	}
	return "", fmt.Errorf("%w: report name %s not understood", ErrParse, s)
}
