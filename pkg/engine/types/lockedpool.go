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

// LockedPoolDevice is one member device of a pool that is still locked.
type LockedPoolDevice struct {
	Devnode string  `json:"devnode"`
	UUID    DevUUID `json:"uuid"`
}

// LockedPoolInfo is a snapshot of an encrypted pool that has not been
// unlocked yet. It is built on demand and not persisted.
type LockedPoolInfo struct {
	Info    EncryptionInfo     `json:"info"`
	Devices []LockedPoolDevice `json:"devices"`
}
