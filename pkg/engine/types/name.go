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

// Name is an immutable pool or filesystem name. Emptiness is not checked
// here; callers that accept names from users validate them first.
type Name struct {
	s string
}

func NewName(s string) Name {
	return Name{s: s}
}

// String borrows the name as a plain string, e.g. for map lookups.
func (n Name) String() string {
	return n.s
}

func (n Name) IsEmpty() bool {
	return n.s == ""
}

func (n Name) MarshalText() ([]byte, error) {
	return []byte(n.s), nil
}

func (n *Name) UnmarshalText(text []byte) error {
	n.s = string(text)
	return nil
}
