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
	"fmt"
	"path/filepath"
)

// DevicePath is a device path that was canonicalized against the live
// filesystem when it was constructed. It is never re-resolved; if the device
// later disappears the path is stale and callers must handle that.
type DevicePath struct {
	path string
}

// NewDevicePath resolves p to an absolute path with all symlinks followed.
// It fails with ErrIO if p does not exist or cannot be resolved.
func NewDevicePath(p string) (DevicePath, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return DevicePath{}, fmt.Errorf("%w: resolving device path %q: %w", ErrIO, p, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return DevicePath{}, fmt.Errorf("%w: resolving device path %q: %w", ErrIO, p, err)
	}
	return DevicePath{path: resolved}, nil
}

// NewDevicePaths resolves every path in ps, stopping at the first failure.
func NewDevicePaths(ps []string) ([]DevicePath, error) {
	out := make([]DevicePath, 0, len(ps))
	for _, p := range ps {
		dp, err := NewDevicePath(p)
		if err != nil {
			return nil, err
		}
		out = append(out, dp)
	}
	return out, nil
}

func (d DevicePath) String() string {
	return d.path
}

func (d DevicePath) IsZero() bool {
	return d.path == ""
}

func (d DevicePath) MarshalText() ([]byte, error) {
	return []byte(d.path), nil
}
